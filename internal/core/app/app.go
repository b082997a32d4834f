package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"

	"sparrow/internal/core/config"
	"sparrow/internal/core/errors"
	"sparrow/internal/core/ports"
	"sparrow/internal/core/watcher"
	"sparrow/internal/engine/graph"
	"sparrow/internal/shared/observability"
)

// App wires the import pipeline, the served graph, its configured views, and
// the data-file watcher. Served graphs are immutable: a data or config change
// is handled by assembling a replacement and swapping it in.
type App struct {
	// graphMu guards the served graph, its views, and the config pointer,
	// which live reload may swap. buildMu serializes whole rebuilds.
	graphMu   sync.RWMutex
	cfg       *config.Config
	graph     *graph.CSRGraph
	views     map[string]*graph.NodeFilteredGraph
	viewOrder []string
	builtAt   time.Time
	buildTime time.Duration

	buildMu  sync.Mutex
	rebuilds atomic.Int64

	updateMu sync.RWMutex
	onUpdate func(ports.StatusReport)

	watcher *watcher.Watcher
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := validateViewSelectors(cfg); err != nil {
		return nil, err
	}
	return &App{cfg: cfg}, nil
}

func validateViewSelectors(cfg *config.Config) error {
	for _, view := range cfg.Views {
		for _, selector := range view.Labels {
			if _, err := glob.Compile(selector); err != nil {
				return errors.Wrap(err, errors.CodeValidationError,
					fmt.Sprintf("view %q: invalid label selector %q", view.Name, selector))
			}
		}
	}
	return nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.graphMu.RLock()
	defer a.graphMu.RUnlock()
	return a.cfg
}

// SetUpdateHandler registers the callback fired after every completed build.
func (a *App) SetUpdateHandler(handler func(ports.StatusReport)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(report ports.StatusReport) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(report)
	}
}

// InitialBuild performs the first load of the data files.
func (a *App) InitialBuild(ctx context.Context) error {
	_, err := a.Rebuild(ctx)
	return err
}

// Rebuild loads the data files, assembles a fresh graph plus its configured
// views, and swaps them in. On failure the previous graph keeps serving.
func (a *App) Rebuild(ctx context.Context) (ports.BuildResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Rebuild")
	defer span.End()

	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	cfg := a.Config()
	start := time.Now()
	g, err := a.buildGraph(ctx, cfg)
	if err != nil {
		return ports.BuildResult{}, err
	}
	views, order, err := buildViews(g, cfg)
	if err != nil {
		return ports.BuildResult{}, err
	}
	elapsed := time.Since(start)

	a.graphMu.Lock()
	a.graph = g
	a.views = views
	a.viewOrder = order
	a.builtAt = time.Now()
	a.buildTime = elapsed
	a.graphMu.Unlock()

	a.rebuilds.Add(1)
	observability.RebuildsTotal.Inc()

	result := ports.BuildResult{
		Nodes:         g.NodeCount(),
		Relationships: g.RelationshipCount(),
		Views:         len(order),
		Duration:      elapsed,
	}
	slog.Info("graph ready",
		"nodes", result.Nodes,
		"relationships", result.Relationships,
		"views", result.Views,
		"duration", elapsed)

	a.emitUpdate(a.currentStatus())
	return result, nil
}

// ApplyConfig installs a reloaded configuration and rebuilds so new view
// definitions and engine settings take effect.
func (a *App) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if err := validateViewSelectors(cfg); err != nil {
		return err
	}

	a.graphMu.Lock()
	a.cfg = cfg
	a.graphMu.Unlock()

	if a.watcher != nil {
		a.watcher.SetDebounce(cfg.Watch.Debounce.Duration)
	}

	_, err := a.Rebuild(ctx)
	return err
}

// Graph returns the currently served graph, or nil before the first build.
func (a *App) Graph() graph.Graph {
	a.graphMu.RLock()
	defer a.graphMu.RUnlock()
	if a.graph == nil {
		return nil
	}
	return a.graph
}

// View returns the named filtered view of the current build.
func (a *App) View(name string) (graph.Graph, error) {
	a.graphMu.RLock()
	defer a.graphMu.RUnlock()
	view, ok := a.views[name]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "no view named %q", name)
	}
	return view, nil
}

// ViewNames lists the views of the current build in configuration order.
func (a *App) ViewNames() []string {
	a.graphMu.RLock()
	defer a.graphMu.RUnlock()
	return append([]string(nil), a.viewOrder...)
}

func (a *App) currentStatus() ports.StatusReport {
	a.graphMu.RLock()
	g := a.graph
	views := a.views
	order := append([]string(nil), a.viewOrder...)
	builtAt := a.builtAt
	buildTime := a.buildTime
	a.graphMu.RUnlock()

	report := ports.StatusReport{
		Rebuilds: a.rebuilds.Load(),
		BuiltAt:  builtAt,
		Duration: buildTime,
	}
	if g == nil {
		return report
	}
	report.Summary = graph.Summarize(g)
	for _, name := range order {
		view := views[name]
		report.Views = append(report.Views, ports.ViewStatus{
			Name:          name,
			Nodes:         view.NodeCount(),
			Relationships: view.RelationshipCount(),
		})
	}
	return report
}

// HandleChanges is the watcher callback. Any change to a data file makes the
// whole graph stale, so one full rebuild covers all pending paths.
func (a *App) HandleChanges(paths []string) {
	slog.Info("data files changed", "count", len(paths), "paths", paths)
	if _, err := a.Rebuild(context.Background()); err != nil {
		slog.Error("rebuild failed, keeping previous graph", "error", err)
	}
}

func (a *App) StartWatcher() error {
	cfg := a.Config()
	w, err := watcher.NewWatcher(cfg.Watch.Debounce.Duration, a.HandleChanges)
	if err != nil {
		return err
	}
	a.watcher = w
	return w.Watch([]string{cfg.Paths.NodesFile, cfg.Paths.RelationshipsFile})
}

func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			return err
		}
		a.watcher = nil
	}
	return nil
}

// PrintSummary writes the post-build console report.
func (a *App) PrintSummary() {
	report := a.currentStatus()

	fmt.Println(strings.Repeat("-", 40))
	if report.Rebuilds == 0 {
		fmt.Println("No graph built yet.")
		fmt.Println(strings.Repeat("-", 40))
		return
	}

	s := report.Summary
	fmt.Printf("Graph: %d nodes, %d relationships in %v\n", s.Nodes, s.Relationships, report.Duration)
	fmt.Printf("📊 Degree: mean=%.2f median=%.1f p90=%.1f max=%d\n",
		s.MeanDegree, s.MedianDegree, s.P90Degree, s.MaxDegree)

	if len(s.Labels) > 0 {
		parts := make([]string, 0, len(s.Labels))
		for _, lc := range s.Labels {
			parts = append(parts, fmt.Sprintf("%s=%d", lc.Label, lc.Count))
		}
		fmt.Printf("🏷️  Labels: %s\n", strings.Join(parts, ", "))
	}

	for _, v := range report.Views {
		fmt.Printf("🔭 View %q: %d nodes, %d relationships\n", v.Name, v.Nodes, v.Relationships)
	}
	fmt.Println(strings.Repeat("-", 40))
}
