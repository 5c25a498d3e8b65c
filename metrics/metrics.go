// Package metrics exposes the daemon's Prometheus instrumentation
// (component Q), the observability counterpart to logging's
// structured logs. Grounded on the prometheus/client_golang dependency
// carried by bsc-erigon and blinklabs-io-shai's go.mod in the rest of
// the example pack.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the counters and gauges every indexed block and
// fetch cycle updates.
type Registry struct {
	registry *prometheus.Registry

	BlocksIndexed   prometheus.Counter
	EventsEmitted   prometheus.Counter
	ReorgsHandled   prometheus.Counter
	IndexHeight     prometheus.Gauge
	FetchQueueDepth prometheus.Gauge
	ApplyBlockSecs  prometheus.Histogram
}

// New registers and returns a fresh metric set.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,
		BlocksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boneindexd",
			Name:      "blocks_indexed_total",
			Help:      "Blocks successfully applied to the index.",
		}),
		EventsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boneindexd",
			Name:      "events_emitted_total",
			Help:      "Relic/inscription events emitted while applying blocks.",
		}),
		ReorgsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boneindexd",
			Name:      "reorgs_handled_total",
			Help:      "Chain reorganizations detected and rolled back.",
		}),
		IndexHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "boneindexd",
			Name:      "index_height",
			Help:      "Highest block height currently indexed.",
		}),
		FetchQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "boneindexd",
			Name:      "fetch_queue_depth",
			Help:      "Blocks fetched from the node but not yet applied.",
		}),
		ApplyBlockSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "boneindexd",
			Name:      "apply_block_seconds",
			Help:      "Time spent applying a single block to the index.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.BlocksIndexed, r.EventsEmitted, r.ReorgsHandled, r.IndexHeight, r.FetchQueueDepth, r.ApplyBlockSecs)
	return r
}

// Handler returns the HTTP handler to serve at the daemon's
// MetricsAddr (separate from the chi read API's listen address).
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
