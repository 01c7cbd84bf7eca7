package transfercache

// Cache keys join the first letter of the request method to the full
// request URL with a ".". The three method-class letters that can
// ever be stored for a URL are G (GET), H (HEAD) and P (POST).
// The key text is part of the serialized state consumed client-side.
//
// Two methods sharing a first letter would collide. None of the
// handled read methods do; audit this before extending the method set.

func cacheKey(method, url string) string {
	return method[:1] + "." + url
}

// keyVariants returns every key that could exist for a URL,
// one per method class.
func keyVariants(url string) [3]string {
	return [3]string{
		"G." + url,
		"H." + url,
		"P." + url,
	}
}
