package transfercache

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/transfer-cache/transfer-cache/transferstate"

	"github.com/rs/zerolog"
)

type Config struct {
	// Store holds the recorded response snapshots.
	// Must not be nil.
	Store transferstate.Store
	// Transport used for forwarded requests.
	// http.DefaultTransport is used if nil.
	Transport http.RoundTripper
	// Stability is the render-settled signal.
	// Caching stays active until it fires or a disqualifying request
	// is seen, whichever comes first. Optional.
	Stability *Signal
	// AllowList holds the URL prefixes eligible for caching.
	// Without it no request is ever cached.
	AllowList []string
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
	// Metrics to update. Optional.
	Metrics *Metrics
}

// Interceptor records responses fetched during a server-side render
// into the transfer state and replays them for identical requests,
// so the client never repeats those calls while hydrating.
// It implements http.RoundTripper.
//
// Caching is active from construction until either the stability
// signal fires or a disqualifying request is seen. Once disabled it
// never comes back for this instance.
type Interceptor struct {
	store     transferstate.Store
	transport http.RoundTripper
	allowList []string
	log       zerolog.Logger
	metrics   *Metrics
	active    atomic.Bool
}

// New initializes the interceptor.
// It subscribes to the stability signal in the background;
// construction does not block on it.
func New(config Config) *Interceptor {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	logger = logger.With().
		Str("component", "transfer-cache").
		Logger()

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	i := &Interceptor{
		store:     config.Store,
		transport: transport,
		allowList: config.AllowList,
		log:       logger,
		metrics:   config.Metrics,
	}
	i.active.Store(true)

	if config.Stability != nil {
		done := config.Stability.Done()
		go func() {
			<-done
			if i.active.CompareAndSwap(true, false) {
				i.log.Trace().Msg("Application stable, disabling cache")
			}
		}()
	}

	return i
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(r *http.Request) (*http.Response, error) {
	url := r.URL.String()

	if reason := i.disqualification(r, url); reason != "" {
		i.disqualify(url, reason)
	}

	if !i.active.Load() {
		return i.transport.RoundTrip(r)
	}

	key := cacheKey(method(r), url)
	if i.store.HasKey(key) {
		if res, ok := i.replay(key, r); ok {
			return res, nil
		}
		// in case we have a corrupted entry, we delete it and fetch anew
		i.store.Remove(key)
	}

	if i.metrics != nil {
		i.metrics.Misses.Inc()
	}
	res, err := i.transport.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if isSuccess(res.StatusCode) {
		i.record(key, url, res)
	}
	return res, nil
}

// disqualification returns a non-empty reason if the request must
// permanently disable caching: any mutating method, or a URL outside
// the allow-list.
func (i *Interceptor) disqualification(r *http.Request, url string) string {
	if m := method(r); m != http.MethodGet && m != http.MethodHead {
		return "method"
	}
	if !i.allowed(url) {
		return "allowlist"
	}
	return ""
}

func (i *Interceptor) allowed(url string) bool {
	for _, prefix := range i.allowList {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// disqualify flips the activity flag and removes every key variant
// that could exist for the URL. Removal is best effort: missing keys
// are not an error. A request already past its own check may still
// write afterwards; that write is simply never read again.
func (i *Interceptor) disqualify(url, reason string) {
	if i.active.CompareAndSwap(true, false) {
		i.log.Trace().Str("reason", reason).Str("url", url).Msg("Disabling cache")
	}
	for _, key := range keyVariants(url) {
		i.store.Remove(key)
		if i.metrics != nil {
			i.metrics.Invalidations.Inc()
		}
	}
	if i.metrics != nil {
		i.metrics.Disqualifications.WithLabelValues(reason).Inc()
	}
}

func (i *Interceptor) replay(key string, r *http.Request) (*http.Response, bool) {
	raw := i.store.Get(key, nil)
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		i.log.Error().Err(err).Str("key", key).Msg("Could not read from state")
		return nil, false
	}
	i.log.Trace().Str("key", key).Msg("Replaying recorded response")
	if i.metrics != nil {
		i.metrics.Replays.Inc()
	}
	return snap.Response(r), true
}

// record stores a snapshot of res under key as a side channel.
// The response body is buffered and restored, so the caller reads the
// response as if untouched. Failures skip the write and are logged;
// the interceptor raises no errors of its own.
func (i *Interceptor) record(key, url string, res *http.Response) {
	snap, err := snapshotResponse(res, url)
	if err != nil {
		i.log.Error().Err(err).Str("key", key).Msg("Could not record response")
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		i.log.Error().Err(err).Str("key", key).Msg("Could not record response")
		return
	}
	i.log.Trace().Str("key", key).Msg("Recording response")
	i.store.Set(key, raw)
}

// method normalizes the request method; an empty method means GET,
// as in net/http.
func method(r *http.Request) string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
