package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"sparrow/internal/core/app"
	"sparrow/internal/core/ports"
	"sparrow/internal/shared/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ObservabilityServer hosts the metrics, health, and status endpoints.
type ObservabilityServer struct {
	addr          string
	healthService *app.HealthService
	engine        ports.EngineService
	limiter       *util.LimiterRegistry
	server        *http.Server
}

func NewObservabilityServer(addr string, healthService *app.HealthService, engine ports.EngineService) *ObservabilityServer {
	return &ObservabilityServer{
		addr:          addr,
		healthService: healthService,
		engine:        engine,
		limiter:       util.NewLimiterRegistry(20, 40, 10*time.Minute),
	}
}

func (s *ObservabilityServer) handler() http.Handler {
	mux := http.NewServeMux()

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.Handle("/health", s.limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := s.healthService.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	})))

	// Graph status report
	mux.Handle("/status", s.limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, err := s.engine.Status(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	})))

	return mux
}

// limit gates a handler with the per-client rate limiter.
func (s *ObservabilityServer) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := util.GetClientIP(r)
		if !s.limiter.Get(ip).Allow(1) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *ObservabilityServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.handler(),
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
