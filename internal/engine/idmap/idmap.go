// Package idmap maps arbitrary external node identifiers onto the dense
// internal id space [0, nodeCount) used by the storage engine's array-indexed
// structures, and keeps the node-label registry.
package idmap

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/tidwall/btree"
)

// NotFound is the sentinel returned by lookups for identifiers that were
// never registered. Lookups never fail with an error; callers decide whether
// a missing id is skippable or fatal.
const NotFound int64 = -1

type labelEntry struct {
	name  string
	nodes *roaring64.Bitmap
}

func labelEntryLess(a, b labelEntry) bool {
	return a.name < b.name
}

// IdMap is the immutable bidirectional mapping produced by a NodesBuilder.
// Internal ids are contiguous 0..NodeCount()-1 in registration order. Safe
// for unlimited concurrent readers once built.
type IdMap struct {
	toInternal        map[int64]int64
	toOriginal        []int64
	highestOriginalID int64
	labels            *btree.BTreeG[labelEntry]
}

// ToMappedNodeID returns the internal id for an original id, or NotFound.
func (m *IdMap) ToMappedNodeID(originalID int64) int64 {
	internal, ok := m.toInternal[originalID]
	if !ok {
		return NotFound
	}
	return internal
}

// ToOriginalNodeID returns the original id registered for an internal id.
func (m *IdMap) ToOriginalNodeID(internalID int64) int64 {
	if internalID < 0 || internalID >= int64(len(m.toOriginal)) {
		return NotFound
	}
	return m.toOriginal[internalID]
}

// ToRootNodeID is the identity on an unfiltered map. Filtered views layer
// their own translation on top of this.
func (m *IdMap) ToRootNodeID(internalID int64) int64 {
	return internalID
}

func (m *IdMap) ContainsOriginalID(originalID int64) bool {
	_, ok := m.toInternal[originalID]
	return ok
}

func (m *IdMap) NodeCount() int64 {
	return int64(len(m.toOriginal))
}

// HighestOriginalID returns the largest original id ever registered, or -1
// on an empty map.
func (m *IdMap) HighestOriginalID() int64 {
	return m.highestOriginalID
}

// HasLabel reports whether the node carries the label.
func (m *IdMap) HasLabel(internalID int64, label string) bool {
	entry, ok := m.labels.Get(labelEntry{name: label})
	if !ok {
		return false
	}
	return internalID >= 0 && entry.nodes.Contains(uint64(internalID))
}

// NodeLabels returns the labels of a node in lexical order.
func (m *IdMap) NodeLabels(internalID int64) []string {
	if internalID < 0 || internalID >= m.NodeCount() {
		return nil
	}
	var out []string
	m.labels.Ascend(labelEntry{}, func(entry labelEntry) bool {
		if entry.nodes.Contains(uint64(internalID)) {
			out = append(out, entry.name)
		}
		return true
	})
	return out
}

// Labels returns every registered label in lexical order.
func (m *IdMap) Labels() []string {
	out := make([]string, 0, m.labels.Len())
	m.labels.Ascend(labelEntry{}, func(entry labelEntry) bool {
		out = append(out, entry.name)
		return true
	})
	return out
}

// NodesWithLabel returns the set of internal ids carrying the label. The
// returned bitmap is shared engine state; callers must treat it as read-only.
func (m *IdMap) NodesWithLabel(label string) *roaring64.Bitmap {
	entry, ok := m.labels.Get(labelEntry{name: label})
	if !ok {
		return roaring64.NewBitmap()
	}
	return entry.nodes
}

// LabelCardinality returns the number of nodes carrying the label.
func (m *IdMap) LabelCardinality(label string) int64 {
	return int64(m.NodesWithLabel(label).GetCardinality())
}
