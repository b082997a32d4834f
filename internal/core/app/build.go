package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"sparrow/internal/core/config"
	"sparrow/internal/core/errors"
	"sparrow/internal/engine/graph"
	"sparrow/internal/engine/idmap"
	"sparrow/internal/engine/load"
	"sparrow/internal/shared/observability"
	"sparrow/internal/shared/progress"
)

// buildGraph runs the full import pipeline: nodes into an IdMap, then
// relationships fanned out across builder workers, then assembly.
func (a *App) buildGraph(ctx context.Context, cfg *config.Config) (*graph.CSRGraph, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.buildGraph")
	defer span.End()

	nodes := idmap.NewNodesBuilder()
	err := readNodes(cfg.Paths.NodesFile, func(id int64, labels []string) error {
		_, err := nodes.Add(id, labels...)
		return err
	})
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, cfg.Paths.NodesFile)
	}
	ids := nodes.Build()
	slog.Debug("nodes registered", "count", ids.NodeCount(), "labels", len(ids.Labels()))

	builder, err := load.NewRelationshipsBuilder(ids, load.Config{
		Concurrency:               cfg.Engine.Concurrency,
		SkipDanglingRelationships: cfg.Engine.SkipDanglingRelationships,
		PropertyKeys:              cfg.Engine.PropertyKeys,
		DefaultValue:              cfg.Engine.DefaultValue,
		InverseIndex:              cfg.Engine.InverseIndex,
		CompressProperties:        cfg.Engine.CompressProperties,
	})
	if err != nil {
		return nil, err
	}

	workers := cfg.Engine.Concurrency
	if workers < 1 {
		workers = 1
	}

	var buffered atomic.Int64
	rows := make(chan relationshipRow, 1024)
	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for row := range rows {
				if err := builder.AddWithProperties(row.source, row.target, row.values...); err != nil {
					return errors.AddContext(err, "line", row.line)
				}
				buffered.Add(1)
			}
			return nil
		})
	}

	readErr := readRelationships(cfg.Paths.RelationshipsFile, func(row relationshipRow) error {
		select {
		case rows <- row:
			return nil
		case <-groupCtx.Done():
			return groupCtx.Err()
		}
	})
	close(rows)
	if err := group.Wait(); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, cfg.Paths.RelationshipsFile)
	}
	if readErr != nil {
		return nil, errors.AddContext(readErr, errors.CtxPath, cfg.Paths.RelationshipsFile)
	}

	tracker := progress.NewTracker("drain relationships", buffered.Load())
	g, err := builder.Build(load.WithDrainProgress(tracker.Add))
	if err != nil {
		return nil, err
	}
	tracker.Finish()
	return g, nil
}

// buildViews evaluates the configured views against a fresh graph. View
// node_ids are original ids and must all be registered.
func buildViews(g *graph.CSRGraph, cfg *config.Config) (map[string]*graph.NodeFilteredGraph, []string, error) {
	views := make(map[string]*graph.NodeFilteredGraph, len(cfg.Views))
	order := make([]string, 0, len(cfg.Views))
	for _, viewCfg := range cfg.Views {
		criteria := graph.FilterCriteria{Labels: viewCfg.Labels}
		for _, original := range viewCfg.NodeIDs {
			mapped := g.ToMappedNodeID(original)
			if mapped == idmap.NotFound {
				return nil, nil, errors.Newf(errors.CodeValidationError,
					"view %q references unknown node id %d", viewCfg.Name, original)
			}
			criteria.NodeIDs = append(criteria.NodeIDs, mapped)
		}

		view, err := graph.NewNodeFilteredGraph(g, criteria, cfg.Engine.Concurrency)
		if err != nil {
			return nil, nil, errors.AddContext(err, "view", viewCfg.Name)
		}
		views[viewCfg.Name] = view
		order = append(order, viewCfg.Name)
	}
	return views, order, nil
}
