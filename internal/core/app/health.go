package app

import (
	"context"
	"fmt"
	"time"

	"sparrow/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	// Check graph
	g := s.app.Graph()
	if g == nil {
		status.Status = "degraded"
		status.Components["graph"] = "not built"
	} else {
		status.Components["graph"] = fmt.Sprintf("ok (%d nodes, %d relationships)", g.NodeCount(), g.RelationshipCount())
	}

	// Check views
	cfg := s.app.Config()
	if expected := len(cfg.Views); expected > 0 {
		built := len(s.app.ViewNames())
		if built < expected {
			status.Status = "degraded"
			status.Components["views"] = fmt.Sprintf("%d of %d built", built, expected)
		} else {
			status.Components["views"] = fmt.Sprintf("ok (%d)", built)
		}
	}

	// Check watcher
	if cfg.Watch.Enabled {
		if s.app.watcher != nil {
			status.Components["watcher"] = "ok"
		} else {
			status.Status = "degraded"
			status.Components["watcher"] = "enabled but not running"
		}
	}

	status.Components["heap"] = fmt.Sprintf("%d MB", util.GetHeapAllocMB())

	return status
}
