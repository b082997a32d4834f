package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Engine        Engine        `toml:"engine"`
	Watch         Watch         `toml:"watch"`
	Views         []View        `toml:"views"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	NodesFile         string `toml:"nodes_file"`
	RelationshipsFile string `toml:"relationships_file"`
}

type Engine struct {
	Concurrency               int      `toml:"concurrency"`
	SkipDanglingRelationships bool     `toml:"skip_dangling_relationships"`
	PropertyKeys              []string `toml:"property_keys"`
	DefaultValue              float64  `toml:"default_value"`
	InverseIndex              bool     `toml:"inverse_index"`
	CompressProperties        bool     `toml:"compress_properties"`
}

type Watch struct {
	Enabled  bool     `toml:"enabled"`
	Debounce Duration `toml:"debounce"`
}

// Duration decodes "500ms" style TOML strings into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// View declares a named node-filtered view evaluated after every build.
// Labels are glob selectors against the label registry; node_ids are original
// node ids from the data files. The view covers the union of both.
type View struct {
	Name    string   `toml:"name"`
	Labels  []string `toml:"labels"`
	NodeIDs []int64  `toml:"node_ids"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validatePaths(&cfg); err != nil {
		return nil, err
	}
	if err := validateEngine(&cfg); err != nil {
		return nil, err
	}
	if err := validateViews(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Engine.Concurrency == 0 {
		cfg.Engine.Concurrency = runtime.GOMAXPROCS(0)
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce.Duration == 0 {
		cfg.Watch.Debounce.Duration = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Observability.MetricsAddr) == "" {
		cfg.Observability.MetricsAddr = "127.0.0.1:9108"
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; the only supported version is 1", cfg.Version)
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if strings.TrimSpace(cfg.Paths.NodesFile) == "" {
		return fmt.Errorf("paths.nodes_file must not be empty")
	}
	if strings.TrimSpace(cfg.Paths.RelationshipsFile) == "" {
		return fmt.Errorf("paths.relationships_file must not be empty")
	}
	return nil
}

func validateEngine(cfg *Config) error {
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}

	seen := make(map[string]bool, len(cfg.Engine.PropertyKeys))
	for i, key := range cfg.Engine.PropertyKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("engine.property_keys[%d] must not be empty", i)
		}
		if seen[key] {
			return fmt.Errorf("duplicate engine.property_keys entry %q", key)
		}
		seen[key] = true
	}
	return nil
}

func validateViews(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Views))
	for i, view := range cfg.Views {
		ref := fmt.Sprintf("views[%d]", i)
		name := strings.TrimSpace(view.Name)
		if name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if seen[name] {
			return fmt.Errorf("duplicate view name %q", name)
		}
		seen[name] = true

		if len(view.Labels) == 0 && len(view.NodeIDs) == 0 {
			return fmt.Errorf("%s (%s) must select nodes via labels or node_ids", ref, name)
		}
		for _, id := range view.NodeIDs {
			if id < 0 {
				return fmt.Errorf("%s (%s) has negative node id %d", ref, name, id)
			}
		}
	}
	return nil
}
