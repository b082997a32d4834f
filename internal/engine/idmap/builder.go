package idmap

import (
	"fmt"

	"sparrow/internal/core/errors"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/tidwall/btree"
)

// NodesBuilder is the exclusive, single-threaded producer of an IdMap.
// Registration order assigns internal ids.
type NodesBuilder struct {
	toInternal map[int64]int64
	toOriginal []int64
	highest    int64
	labels     *btree.BTreeG[labelEntry]
	built      bool
}

func NewNodesBuilder() *NodesBuilder {
	return &NodesBuilder{
		toInternal: make(map[int64]int64),
		highest:    -1,
		labels:     btree.NewBTreeG[labelEntry](labelEntryLess),
	}
}

// Add registers an original id under zero or more labels and returns its
// internal id. Re-adding a known id returns the existing internal id and
// merges the labels. Original ids must be non-negative; the negative range
// is reserved for the NotFound sentinel.
func (b *NodesBuilder) Add(originalID int64, labels ...string) (int64, error) {
	if b.built {
		panic("idmap: NodesBuilder used after Build")
	}
	if originalID < 0 {
		return NotFound, errors.New(errors.CodeValidationError,
			fmt.Sprintf("original node id must be non-negative, got %d", originalID))
	}

	internal, ok := b.toInternal[originalID]
	if !ok {
		internal = int64(len(b.toOriginal))
		b.toInternal[originalID] = internal
		b.toOriginal = append(b.toOriginal, originalID)
		if originalID > b.highest {
			b.highest = originalID
		}
	}

	for _, label := range labels {
		if label == "" {
			continue
		}
		entry, ok := b.labels.Get(labelEntry{name: label})
		if !ok {
			entry = labelEntry{name: label, nodes: roaring64.NewBitmap()}
			b.labels.Set(entry)
		}
		entry.nodes.Add(uint64(internal))
	}

	return internal, nil
}

// NodeCount returns the number of distinct ids registered so far.
func (b *NodesBuilder) NodeCount() int64 {
	return int64(len(b.toOriginal))
}

// Build seals the builder and returns the immutable map. The builder must
// not be used afterwards.
func (b *NodesBuilder) Build() *IdMap {
	if b.built {
		panic("idmap: NodesBuilder.Build called twice")
	}
	b.built = true
	return &IdMap{
		toInternal:        b.toInternal,
		toOriginal:        b.toOriginal,
		highestOriginalID: b.highest,
		labels:            b.labels,
	}
}
