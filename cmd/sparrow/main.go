// # cmd/sparrow/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sparrow/internal/core/app"
	"sparrow/internal/core/config"
	"sparrow/internal/core/ports"
	"sparrow/internal/shared/observability"
	"sparrow/internal/ui/cli"
)

var (
	configPath = flag.String("config", "./sparrow.toml", "Path to config file")
	once       = flag.Bool("once", false, "Build the graph once and exit")
	watch      = flag.Bool("watch", false, "Watch data files even if the config disables it")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	stats      = flag.Bool("stats", false, "Print graph statistics and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *version {
		fmt.Printf("sparrow v%s\n", VERSION)
		return 0
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
					defer f.Close()
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./sparrow.toml" {
			cfg, err = config.Load("./sparrow.example.toml")
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			return 1
		}
	}

	// Positional arguments override the configured data files:
	// sparrow [flags] [nodes.csv relationships.csv]
	if flag.NArg() == 2 {
		cfg.Paths.NodesFile = flag.Arg(0)
		cfg.Paths.RelationshipsFile = flag.Arg(1)
	} else if flag.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: sparrow [flags] [nodes.csv relationships.csv]")
		return 2
	}
	if *watch {
		cfg.Watch.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, VERSION, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer application.Close(context.Background())

	// Initial build
	if err := application.InitialBuild(ctx); err != nil {
		slog.Error("initial build failed", "error", err)
		return 1
	}

	if *stats {
		report, err := application.EngineService().Status(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Print(formatStatusReport(report))
		return 0
	}

	if !*ui {
		application.PrintSummary()
	}

	if *once {
		return 0
	}

	// Observability server
	obsServer := cli.NewObservabilityServer(
		cfg.Observability.MetricsAddr,
		app.NewHealthService(application),
		application.EngineService(),
	)
	if err := obsServer.Start(ctx); err != nil {
		slog.Error("failed to start observability server", "error", err)
		return 1
	}
	defer obsServer.Stop(context.Background())

	// Watch mode
	if cfg.Watch.Enabled {
		if err := application.StartWatcher(); err != nil {
			slog.Error("failed to start watcher", "error", err)
			return 1
		}

		cfgWatcher := config.NewWatcher(*configPath, func(reloaded *config.Config) {
			if err := application.ApplyConfig(context.Background(), reloaded); err != nil {
				slog.Error("config reload failed", "error", err)
			}
		})
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	if *ui {
		if err := runUI(ctx, application); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return 0
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "sparrow", "sparrow.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "sparrow", "sparrow.log")
	}

	return "sparrow.log"
}

func formatStatusReport(report ports.StatusReport) string {
	var b strings.Builder

	b.WriteString("Graph Statistics\n")
	b.WriteString("================\n")
	b.WriteString(fmt.Sprintf("Nodes: %d\n", report.Summary.Nodes))
	b.WriteString(fmt.Sprintf("Relationships: %d\n", report.Summary.Relationships))
	b.WriteString(fmt.Sprintf("Build time: %v\n", report.Duration))
	b.WriteString("\n")

	b.WriteString("Degree distribution\n")
	b.WriteString(fmt.Sprintf("- mean: %.3f\n", report.Summary.MeanDegree))
	b.WriteString(fmt.Sprintf("- median: %.1f\n", report.Summary.MedianDegree))
	b.WriteString(fmt.Sprintf("- p90: %.1f\n", report.Summary.P90Degree))
	b.WriteString(fmt.Sprintf("- max: %d\n", report.Summary.MaxDegree))

	if len(report.Summary.Labels) > 0 {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Labels (%d)\n", len(report.Summary.Labels)))
		for _, lc := range report.Summary.Labels {
			b.WriteString(fmt.Sprintf("- %s: %d nodes\n", lc.Label, lc.Count))
		}
	}

	if len(report.Views) > 0 {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Views (%d)\n", len(report.Views)))
		for _, v := range report.Views {
			b.WriteString(fmt.Sprintf("- %s: %d nodes, %d relationships\n", v.Name, v.Nodes, v.Relationships))
		}
	}

	return b.String()
}
