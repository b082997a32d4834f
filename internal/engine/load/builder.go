// # internal/engine/load/builder.go

// Package load is the concurrent import pipeline: relationships stream in
// from many producers, land in thread-local buffers and are assembled into
// the immutable CSR graph on Build.
package load

import (
	"log/slog"
	"time"

	"sparrow/internal/core/errors"
	"sparrow/internal/engine/graph"
	"sparrow/internal/engine/idmap"
	"sparrow/internal/shared/observability"

	"github.com/google/uuid"
)

// Config controls one relationship import.
type Config struct {
	// Concurrency bounds the worker count of the assembly sort phase and is
	// the intended number of producer goroutines.
	Concurrency int

	// SkipDanglingRelationships silently drops relationships with an
	// unregistered endpoint instead of failing the add call.
	SkipDanglingRelationships bool

	// PropertyKeys names the relationship property columns in storage order.
	// The first key is the one weighted traversal reads.
	PropertyKeys []string

	// DefaultValue fills property slots of relationships added without an
	// explicit value.
	DefaultValue float64

	// InverseIndex additionally assembles the incoming-direction topology.
	InverseIndex bool

	// CompressProperties stores property columns in half precision.
	CompressProperties bool
}

// RelationshipsBuilder accepts relationships from concurrent producers,
// buffers them per thread and assembles the graph on Build. All add methods
// are safe for concurrent use from independent goroutines.
type RelationshipsBuilder struct {
	ids      *idmap.IdMap
	cfg      Config
	provider *bufferProvider
	buildID  string
}

func NewRelationshipsBuilder(ids *idmap.IdMap, cfg Config) (*RelationshipsBuilder, error) {
	if ids == nil {
		return nil, errors.New(errors.CodeValidationError, "relationships builder needs a built id map")
	}
	seen := make(map[string]struct{}, len(cfg.PropertyKeys))
	for _, key := range cfg.PropertyKeys {
		if key == "" {
			return nil, errors.New(errors.CodeValidationError, "relationship property keys must be non-empty")
		}
		if _, dup := seen[key]; dup {
			return nil, errors.Newf(errors.CodeValidationError, "duplicate relationship property key %q", key)
		}
		seen[key] = struct{}{}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &RelationshipsBuilder{
		ids:      ids,
		cfg:      cfg,
		provider: newBufferProvider(len(cfg.PropertyKeys), ids.NodeCount()),
		buildID:  uuid.NewString(),
	}, nil
}

// Add maps both original ids and buffers the relationship with default
// property values. Unregistered endpoints are skipped or rejected according
// to SkipDanglingRelationships.
func (b *RelationshipsBuilder) Add(originalSource, originalTarget int64) error {
	return b.AddWithProperties(originalSource, originalTarget)
}

func (b *RelationshipsBuilder) AddWithProperty(originalSource, originalTarget int64, value float64) error {
	return b.AddWithProperties(originalSource, originalTarget, value)
}

// AddWithProperties buffers a relationship carrying property values in
// PropertyKeys order. Missing trailing values fall back to DefaultValue;
// surplus values are rejected.
func (b *RelationshipsBuilder) AddWithProperties(originalSource, originalTarget int64, values ...float64) error {
	if len(values) > len(b.cfg.PropertyKeys) {
		return errors.Newf(errors.CodeValidationError,
			"%d property values for %d configured keys", len(values), len(b.cfg.PropertyKeys))
	}
	source := b.ids.ToMappedNodeID(originalSource)
	target := b.ids.ToMappedNodeID(originalTarget)
	if source == idmap.NotFound || target == idmap.NotFound {
		if b.cfg.SkipDanglingRelationships {
			observability.DanglingSkipped.Inc()
			return nil
		}
		return b.unmappedError(originalSource, originalTarget, source, target)
	}
	b.append(source, target, values)
	return nil
}

// unmappedError names every unregistered id of the call, not just the first.
func (b *RelationshipsBuilder) unmappedError(originalSource, originalTarget, source, target int64) error {
	missing := make([]int64, 0, 2)
	if source == idmap.NotFound {
		missing = append(missing, originalSource)
	}
	if target == idmap.NotFound {
		missing = append(missing, originalTarget)
	}
	err := errors.Newf(errors.CodeValidationError,
		"relationship (%d)-->(%d) references unregistered node ids %v", originalSource, originalTarget, missing)
	return errors.AddContext(err, errors.CtxBuildID, b.buildID)
}

// AddFromInternal buffers a relationship already expressed in internal ids,
// bypassing the id map lookup. It reports whether the relationship was
// accepted; only a NotFound endpoint is rejected. Ids must otherwise come
// from this builder's id map.
func (b *RelationshipsBuilder) AddFromInternal(source, target int64) bool {
	return b.AddFromInternalWithProperties(source, target)
}

func (b *RelationshipsBuilder) AddFromInternalWithProperty(source, target int64, value float64) bool {
	return b.AddFromInternalWithProperties(source, target, value)
}

func (b *RelationshipsBuilder) AddFromInternalWithProperties(source, target int64, values ...float64) bool {
	if source == idmap.NotFound || target == idmap.NotFound {
		return false
	}
	if len(values) > len(b.cfg.PropertyKeys) {
		panic(errors.Newf(errors.CodeInternal,
			"%d property values for %d configured keys", len(values), len(b.cfg.PropertyKeys)))
	}
	b.append(source, target, values)
	return true
}

func (b *RelationshipsBuilder) append(source, target int64, values []float64) {
	h := b.provider.Acquire()
	defer h.Release()
	h.Get().append(source, target, values, b.cfg.DefaultValue)
	observability.RelationshipsBuffered.Inc()
}

// BuildOption customizes one Build call.
type BuildOption func(*buildOptions)

type buildOptions struct {
	valueMapper   func(float64) float64
	drainProgress func(count int64)
}

// WithValueMapper transforms every property value as the columns are
// written. The mapper is called from multiple assembly workers concurrently
// and must be safe for that.
func WithValueMapper(mapper func(float64) float64) BuildOption {
	return func(o *buildOptions) { o.valueMapper = mapper }
}

// WithDrainProgress reports each drained buffer's record count. The callback
// must be safe for concurrent use.
func WithDrainProgress(progress func(count int64)) BuildOption {
	return func(o *buildOptions) { o.drainProgress = progress }
}

// Build drains all buffers and assembles the immutable graph. The builder is
// spent afterwards: further adds panic and a second Build fails.
func (b *RelationshipsBuilder) Build(opts ...BuildOption) (*graph.CSRGraph, error) {
	var options buildOptions
	for _, opt := range opts {
		opt(&options)
	}

	started := time.Now()
	chunks, err := b.provider.Close()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "closing import buffers")
	}

	g, err := assemble(b.ids, chunks, b.cfg, options)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxBuildID, b.buildID)
	}

	slog.Info("graph build complete",
		"build_id", b.buildID,
		"nodes", g.NodeCount(),
		"relationships", g.RelationshipCount(),
		"properties", len(b.cfg.PropertyKeys),
		"inverse_index", b.cfg.InverseIndex,
		"duration", time.Since(started))
	return g, nil
}
