// # internal/engine/graph/filtered.go
package graph

import (
	"sync/atomic"

	"sparrow/internal/engine/idmap"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const uncomputed = -1

// NodeFilteredGraph presents a subset of an existing graph as a complete
// graph with its own dense id space, without copying adjacency data. Only
// relationships with both endpoints inside the subset are visible. Degree
// and total relationship count are computed lazily and cached write-once;
// the underlying graph is assumed immutable for the lifetime of the view.
type NodeFilteredGraph struct {
	root        Graph
	ids         *FilteredIDMap
	concurrency int

	// Shared between concurrent copies of the same view.
	degrees   []int64
	relCount  *atomic.Int64
	countOnce *singleflight.Group
}

func newNodeFilteredGraph(root Graph, ids *FilteredIDMap, concurrency int) *NodeFilteredGraph {
	if concurrency < 1 {
		concurrency = 1
	}
	degrees := make([]int64, ids.NodeCount())
	for i := range degrees {
		degrees[i] = uncomputed
	}
	relCount := &atomic.Int64{}
	relCount.Store(uncomputed)
	return &NodeFilteredGraph{
		root:        root,
		ids:         ids,
		concurrency: concurrency,
		degrees:     degrees,
		relCount:    relCount,
		countOnce:   &singleflight.Group{},
	}
}

func (g *NodeFilteredGraph) NodeCount() int64 {
	return g.ids.NodeCount()
}

// Degree counts the node's relationships whose target also lies inside the
// subset. The first call per node walks the root adjacency and caches the
// result; concurrent first calls do redundant work and converge on the same
// value instead of serializing on a lock.
func (g *NodeFilteredGraph) Degree(node int64) int64 {
	if cached := atomic.LoadInt64(&g.degrees[node]); cached != uncomputed {
		return cached
	}

	degree := int64(0)
	g.root.ForEachRelationship(g.ids.ToRootNodeID(node), func(_, target int64) bool {
		if g.ids.ContainsRootNodeID(target) {
			degree++
		}
		return true
	})

	atomic.StoreInt64(&g.degrees[node], degree)
	return degree
}

func (g *NodeFilteredGraph) DegreeInverse(node int64) (int64, error) {
	if !g.root.HasInverseIndex() {
		return 0, errNoInverseIndex()
	}
	degree := int64(0)
	err := g.root.ForEachInverseRelationship(g.ids.ToRootNodeID(node), func(_, source int64) bool {
		if g.ids.ContainsRootNodeID(source) {
			degree++
		}
		return true
	})
	return degree, err
}

func (g *NodeFilteredGraph) HasInverseIndex() bool {
	return g.root.HasInverseIndex()
}

// RelationshipCount is computed once across the whole view and cached.
// Concurrent first callers share a single computation.
func (g *NodeFilteredGraph) RelationshipCount() int64 {
	if cached := g.relCount.Load(); cached != uncomputed {
		return cached
	}

	result, _, _ := g.countOnce.Do("relationships", func() (interface{}, error) {
		if cached := g.relCount.Load(); cached != uncomputed {
			return cached, nil
		}
		count := g.countRelationships()
		g.relCount.Store(count)
		return count, nil
	})
	return result.(int64)
}

// countRelationships sums subset-internal degrees over contiguous partitions
// of the filtered id range, one counting task per partition with at most
// concurrency tasks in flight. Partitions are disjoint, so plain summation
// of partial results is safe.
func (g *NodeFilteredGraph) countRelationships() int64 {
	nodeCount := g.ids.NodeCount()
	if nodeCount == 0 {
		return 0
	}

	partitionSize := (nodeCount + int64(g.concurrency) - 1) / int64(g.concurrency)
	var total atomic.Int64
	var group errgroup.Group
	group.SetLimit(g.concurrency)

	for start := int64(0); start < nodeCount; start += partitionSize {
		end := min(start+partitionSize, nodeCount)
		group.Go(func() error {
			sum := int64(0)
			for node := start; node < end; node++ {
				sum += g.Degree(node)
			}
			total.Add(sum)
			return nil
		})
	}
	_ = group.Wait()

	return total.Load()
}

func (g *NodeFilteredGraph) ForEachRelationship(node int64, consumer RelationshipConsumer) {
	g.root.ForEachRelationship(g.ids.ToRootNodeID(node), g.wrapConsumer(node, consumer))
}

func (g *NodeFilteredGraph) ForEachRelationshipWeighted(node int64, fallback float64, consumer RelationshipWithPropertyConsumer) {
	g.root.ForEachRelationshipWeighted(g.ids.ToRootNodeID(node), fallback, g.wrapPropertyConsumer(node, consumer))
}

func (g *NodeFilteredGraph) ForEachRelationshipProperty(node int64, key string, fallback float64, consumer RelationshipWithPropertyConsumer) error {
	return g.root.ForEachRelationshipProperty(g.ids.ToRootNodeID(node), key, fallback, g.wrapPropertyConsumer(node, consumer))
}

func (g *NodeFilteredGraph) ForEachInverseRelationship(node int64, consumer RelationshipConsumer) error {
	if !g.root.HasInverseIndex() {
		return errNoInverseIndex()
	}
	return g.root.ForEachInverseRelationship(g.ids.ToRootNodeID(node), g.wrapConsumer(node, consumer))
}

// wrapConsumer drops edges whose far endpoint is outside the subset and
// presents both endpoints in filtered id space.
func (g *NodeFilteredGraph) wrapConsumer(node int64, consumer RelationshipConsumer) RelationshipConsumer {
	return func(_, other int64) bool {
		filtered := g.ids.ToFilteredNodeID(other)
		if filtered == idmap.NotFound {
			return true
		}
		return consumer(node, filtered)
	}
}

func (g *NodeFilteredGraph) wrapPropertyConsumer(node int64, consumer RelationshipWithPropertyConsumer) RelationshipWithPropertyConsumer {
	return func(_, other int64, property float64) bool {
		filtered := g.ids.ToFilteredNodeID(other)
		if filtered == idmap.NotFound {
			return true
		}
		return consumer(node, filtered, property)
	}
}

func (g *NodeFilteredGraph) HasRelationship(source, target int64) bool {
	return g.root.HasRelationship(g.ids.ToRootNodeID(source), g.ids.ToRootNodeID(target))
}

func (g *NodeFilteredGraph) ToMappedNodeID(originalID int64) int64 {
	return g.ids.ToFilteredNodeID(g.root.ToMappedNodeID(originalID))
}

func (g *NodeFilteredGraph) ToOriginalNodeID(node int64) int64 {
	return g.root.ToOriginalNodeID(g.ids.ToRootNodeID(node))
}

func (g *NodeFilteredGraph) ToRootNodeID(node int64) int64 {
	return g.root.ToRootNodeID(g.ids.ToRootNodeID(node))
}

func (g *NodeFilteredGraph) ContainsOriginalID(originalID int64) bool {
	return g.ToMappedNodeID(originalID) != idmap.NotFound
}

func (g *NodeFilteredGraph) ContainsRootNodeID(rootID int64) bool {
	return g.ids.ContainsRootNodeID(rootID)
}

func (g *NodeFilteredGraph) ToFilteredNodeID(rootID int64) int64 {
	return g.ids.ToFilteredNodeID(rootID)
}

func (g *NodeFilteredGraph) NodeLabels(node int64) []string {
	return g.root.NodeLabels(g.ids.ToRootNodeID(node))
}

func (g *NodeFilteredGraph) HasLabel(node int64, label string) bool {
	return g.root.HasLabel(g.ids.ToRootNodeID(node), label)
}

func (g *NodeFilteredGraph) NodesWithLabel(label string) *roaring64.Bitmap {
	inSubset := g.root.NodesWithLabel(label).Clone()
	inSubset.And(g.ids.rootSet())

	out := roaring64.NewBitmap()
	it := inSubset.Iterator()
	for it.HasNext() {
		out.Add(uint64(g.ids.ToFilteredNodeID(int64(it.Next()))))
	}
	return out
}

func (g *NodeFilteredGraph) Schema() Schema {
	return g.root.Schema()
}

// ConcurrentCopy returns an independent traversal handle backed by the same
// data, filter and caches. A degree computed through one handle is visible
// through all of them.
func (g *NodeFilteredGraph) ConcurrentCopy() Graph {
	return &NodeFilteredGraph{
		root:        g.root.ConcurrentCopy(),
		ids:         g.ids,
		concurrency: g.concurrency,
		degrees:     g.degrees,
		relCount:    g.relCount,
		countOnce:   g.countOnce,
	}
}
