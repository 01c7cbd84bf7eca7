package transfercache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Snapshot is the recorded form of a response, as stored in the
// transfer state. The field names are part of the serialized state
// consumed during client hydration.
type Snapshot struct {
	Body       []byte              `json:"body,omitempty"`
	Headers    map[string][]string `json:"headers"`
	Status     int                 `json:"status"`
	StatusText string              `json:"statusText"`
	URL        string              `json:"url"`
}

// snapshotResponse captures res into a Snapshot.
// It reads the response body in full and replaces it with an
// equivalent re-readable one, so the caller sees the response
// unmodified. Every header is captured with its complete ordered
// value list. The snapshot URL is the URL the transport actually
// requested, which may differ from requestURL after redirects.
func snapshotResponse(res *http.Response, requestURL string) (Snapshot, error) {
	var body []byte
	if res.Body != nil {
		b, err := io.ReadAll(res.Body)
		res.Body.Close()
		res.Body = io.NopCloser(bytes.NewReader(b))
		if err != nil {
			return Snapshot{}, err
		}
		body = b
	}

	headers := make(map[string][]string, len(res.Header))
	for name, values := range res.Header {
		headers[name] = append([]string(nil), values...)
	}

	return Snapshot{
		Body:       body,
		Headers:    headers,
		Status:     res.StatusCode,
		StatusText: statusText(res),
		URL:        finalURL(res, requestURL),
	}, nil
}

// Response synthesizes a completed *http.Response from the snapshot.
func (s Snapshot) Response(req *http.Request) *http.Response {
	header := make(http.Header, len(s.Headers))
	for name, values := range s.Headers {
		for _, value := range values {
			header.Add(name, value)
		}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", s.Status, s.StatusText),
		StatusCode:    s.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(s.Body)),
		ContentLength: int64(len(s.Body)),
		Request:       req,
	}
}

func statusText(res *http.Response) string {
	prefix := strconv.Itoa(res.StatusCode) + " "
	if text := strings.TrimPrefix(res.Status, prefix); text != "" && text != res.Status {
		return text
	}
	return http.StatusText(res.StatusCode)
}

func finalURL(res *http.Response, requestURL string) string {
	if res.Request != nil && res.Request.URL != nil {
		return res.Request.URL.String()
	}
	return requestURL
}
