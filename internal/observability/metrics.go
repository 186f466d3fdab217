// # internal/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recompile_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recompile_pass_seconds",
		Help:    "Time spent on an analysis pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	GraphClasses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recompile_graph_classes_total",
		Help: "Total number of classes in the dependents graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recompile_graph_edges_total",
		Help: "Total number of dependent edges in the graph.",
	})

	GraphUnbounded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recompile_graph_unbounded_total",
		Help: "Number of classes with unbounded impact.",
	})

	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recompile_queries_total",
		Help: "Total number of relevant-dependents queries.",
	}, []string{"result"})

	QueryCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recompile_query_cache_hits_total",
		Help: "Total number of queries answered from the cache.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recompile_watcher_events_total",
		Help: "Total number of debounced change batches received.",
	})

	FullRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recompile_full_rebuilds_total",
		Help: "Total number of passes that required a full rebuild.",
	})
)
