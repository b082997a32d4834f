package graph

import (
	"sparrow/internal/engine/idmap"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// FilteredIDMap translates between a filtered view's dense id space and the
// id space of the graph it restricts. Membership, rank and select on the
// subset bitmap cover all three directions without side tables.
type FilteredIDMap struct {
	nodes *roaring64.Bitmap
	count int64
}

func NewFilteredIDMap(nodes *roaring64.Bitmap) *FilteredIDMap {
	return &FilteredIDMap{nodes: nodes, count: int64(nodes.GetCardinality())}
}

func (f *FilteredIDMap) NodeCount() int64 {
	return f.count
}

func (f *FilteredIDMap) ContainsRootNodeID(rootID int64) bool {
	return rootID >= 0 && f.nodes.Contains(uint64(rootID))
}

// ToFilteredNodeID maps a parent-space id to its filtered id, or NotFound
// when the node is outside the subset. Rank counts subset members <= rootID,
// so a member's filtered id is its rank minus one.
func (f *FilteredIDMap) ToFilteredNodeID(rootID int64) int64 {
	if !f.ContainsRootNodeID(rootID) {
		return idmap.NotFound
	}
	return int64(f.nodes.Rank(uint64(rootID))) - 1
}

func (f *FilteredIDMap) ToRootNodeID(filteredID int64) int64 {
	if filteredID < 0 || filteredID >= f.count {
		return idmap.NotFound
	}
	root, err := f.nodes.Select(uint64(filteredID))
	if err != nil {
		return idmap.NotFound
	}
	return int64(root)
}

func (f *FilteredIDMap) rootSet() *roaring64.Bitmap {
	return f.nodes
}
