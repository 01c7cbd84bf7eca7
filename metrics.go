package transfercache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the interceptor.
type Metrics struct {
	Replays           prometheus.Counter
	Misses            prometheus.Counter
	Disqualifications *prometheus.CounterVec
	Invalidations     prometheus.Counter
}

// NewMetrics creates and registers all collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transfercache",
			Name:      "replays_total",
			Help:      "Total requests served from the transfer state.",
		}),

		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transfercache",
			Name:      "misses_total",
			Help:      "Total cacheable requests forwarded to the origin.",
		}),

		Disqualifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transfercache",
			Name:      "disqualifications_total",
			Help:      "Total requests that disabled caching, by reason.",
		}, []string{"reason"}),

		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transfercache",
			Name:      "invalidations_total",
			Help:      "Total cache key removals attempted on disqualification.",
		}),
	}

	reg.MustRegister(m.Replays, m.Misses, m.Disqualifications, m.Invalidations)
	return m
}
