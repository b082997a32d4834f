package ports

import (
	"context"
	"time"

	"sparrow/internal/engine/graph"
)

// BuildResult summarizes one completed build cycle.
type BuildResult struct {
	Nodes         int64
	Relationships int64
	Views         int
	Duration      time.Duration
}

// ViewStatus is the per-view slice of a status report.
type ViewStatus struct {
	Name          string
	Nodes         int64
	Relationships int64
}

// StatusReport describes the graph currently being served.
type StatusReport struct {
	Summary  graph.Summary
	Views    []ViewStatus
	Rebuilds int64
	BuiltAt  time.Time
	Duration time.Duration
}

// EngineService is the driving-port surface over build and query use cases.
// Command and UI adapters depend on this instead of the concrete App.
type EngineService interface {
	// Rebuild loads the data files and swaps in a freshly assembled graph.
	Rebuild(ctx context.Context) (BuildResult, error)

	// Status reports on the currently served graph. Degree statistics walk
	// the whole topology, so treat a call as a per-build cost.
	Status(ctx context.Context) (StatusReport, error)

	// Graph returns the current full graph, or nil before the first build.
	Graph() graph.Graph

	// View returns the named filtered view of the current build.
	View(name string) (graph.Graph, error)

	Close(ctx context.Context) error
}
