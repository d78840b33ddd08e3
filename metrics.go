package dnscache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus counters for cache activity.
type Metrics struct {
	Hits            prometheus.Counter
	Misses          prometheus.Counter
	ResolveFailures prometheus.Counter
	RecordsPurged   prometheus.Counter
}

// NewMetrics creates cache counters under the given namespace, registered
// against the given registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	var factory = promauto.With(reg)

	return &Metrics{
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Number of lookups served from a live cached record.",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Number of lookups that required resolution.",
		}),
		ResolveFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_failures_total",
			Help:      "Number of cache misses where the resolver failed.",
		}),
		RecordsPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_purged_total",
			Help:      "Number of expired records physically removed.",
		}),
	}
}
