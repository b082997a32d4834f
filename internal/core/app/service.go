package app

import (
	"context"
	"fmt"

	"sparrow/internal/core/errors"
	"sparrow/internal/core/ports"
	"sparrow/internal/engine/graph"
	"sparrow/internal/shared/observability"
)

type engineService struct {
	app *App
}

var _ ports.EngineService = (*engineService)(nil)

// EngineService exposes the app through its driving port.
func (a *App) EngineService() ports.EngineService {
	return &engineService{app: a}
}

func (s *engineService) Rebuild(ctx context.Context) (ports.BuildResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "engineService.Rebuild")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.BuildResult{}, err
	}
	if s.app == nil {
		return ports.BuildResult{}, fmt.Errorf("app is required")
	}
	result, err := s.app.Rebuild(ctx)
	if err != nil {
		return ports.BuildResult{}, errors.AddContext(err, errors.CtxOperation, "rebuild")
	}
	return result, nil
}

func (s *engineService) Status(ctx context.Context) (ports.StatusReport, error) {
	if err := ctx.Err(); err != nil {
		return ports.StatusReport{}, err
	}
	if s.app == nil {
		return ports.StatusReport{}, fmt.Errorf("app is required")
	}
	return s.app.currentStatus(), nil
}

func (s *engineService) Graph() graph.Graph {
	if s.app == nil {
		return nil
	}
	return s.app.Graph()
}

func (s *engineService) View(name string) (graph.Graph, error) {
	if s.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	return s.app.View(name)
}

func (s *engineService) Close(ctx context.Context) error {
	if s == nil || s.app == nil {
		return nil
	}
	return s.app.Close(ctx)
}
