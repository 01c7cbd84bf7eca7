package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	transfercache "github.com/transfer-cache/transfer-cache"
	"github.com/transfer-cache/transfer-cache/transferstate"

	"github.com/rs/zerolog/hlog"
)

// renderer fetches the origin document through a fresh caching client
// per request and embeds the recorded transfer state into the page it
// sends back. Each render gets its own state and stability signal,
// one application instance per server-side render.
type renderer struct {
	origin    *url.URL
	allowList []string
	shared    transferstate.Store
	metrics   *transfercache.Metrics
}

func (s *renderer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	state := transferstate.New()
	var store transferstate.Store = state
	if s.shared != nil {
		store = transferstate.Layered(state, s.shared)
	}
	signal := transfercache.NewSignal()
	client := &http.Client{
		Transport: transfercache.New(transfercache.Config{
			Store:     store,
			Stability: signal,
			AllowList: s.allowList,
			Logger:    logger,
			Metrics:   s.metrics,
		}),
	}

	res, err := client.Get(s.origin.String() + r.URL.RequestURI())
	if err != nil {
		http.Error(w, "Could not get response", http.StatusBadGateway)
		return
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		http.Error(w, "Could not read response", http.StatusBadGateway)
		return
	}

	// the render is done, nothing may be cached beyond this point
	signal.MarkStable()

	stateJSON, err := state.ToJSON()
	if err != nil {
		logger.Error().Err(err).Msg("Could not serialize state")
		stateJSON = []byte("{}")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.StatusCode != http.StatusOK {
		w.WriteHeader(res.StatusCode)
	}
	fmt.Fprintf(w, page, body, stateJSON)
}

// State JSON comes from encoding/json, which escapes <, > and &, so
// inlining it in a script tag is safe.
const page = `<!DOCTYPE html>
<html>
<body>
%s
<script id="transfer-state" type="application/json">%s</script>
</body>
</html>
`
