package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: SPARROW_[SECTION]_[KEY].
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.NodesFile, "SPARROW_PATHS_NODES_FILE")
	setEnvString(&cfg.Paths.RelationshipsFile, "SPARROW_PATHS_RELATIONSHIPS_FILE")

	setEnvInt(&cfg.Engine.Concurrency, "SPARROW_ENGINE_CONCURRENCY")
	setEnvBool(&cfg.Engine.SkipDanglingRelationships, "SPARROW_ENGINE_SKIP_DANGLING_RELATIONSHIPS")
	setEnvBool(&cfg.Engine.InverseIndex, "SPARROW_ENGINE_INVERSE_INDEX")
	setEnvBool(&cfg.Engine.CompressProperties, "SPARROW_ENGINE_COMPRESS_PROPERTIES")

	setEnvBool(&cfg.Watch.Enabled, "SPARROW_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce.Duration, "SPARROW_WATCH_DEBOUNCE")

	setEnvString(&cfg.Observability.MetricsAddr, "SPARROW_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SPARROW_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}

func setEnvBool(target *bool, key string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("ignoring invalid boolean override", "key", key, "value", value)
		return
	}
	*target = parsed
}

func setEnvInt(target *int, key string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer override", "key", key, "value", value)
		return
	}
	*target = parsed
}

func setEnvDuration(target *time.Duration, key string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("ignoring invalid duration override", "key", key, "value", value)
		return
	}
	*target = parsed
}
