package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sparrow_build_seconds",
		Help:    "Time spent in a graph build phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sparrow_graph_nodes_total",
		Help: "Number of nodes in the most recently assembled graph.",
	})

	GraphRelationships = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sparrow_graph_relationships_total",
		Help: "Number of relationships in the most recently assembled graph.",
	})

	RelationshipsBuffered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparrow_relationships_buffered_total",
		Help: "Total number of relationships accepted into import buffers.",
	})

	RelationshipsDrained = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparrow_relationships_drained_total",
		Help: "Total number of relationships drained from import buffers into the topology.",
	})

	DanglingSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparrow_dangling_skipped_total",
		Help: "Total number of relationships dropped because an endpoint was not mapped.",
	})

	BuffersLeased = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sparrow_import_buffers_leased",
		Help: "Current number of import buffers leased to writer threads.",
	})

	FilteredViewsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparrow_filtered_views_built_total",
		Help: "Total number of node-filtered views constructed.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparrow_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparrow_rebuilds_total",
		Help: "Total number of graph rebuilds triggered by data file changes.",
	})
)
