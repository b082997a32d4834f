// # internal/engine/graph/csr.go
package graph

import (
	"fmt"
	"sort"

	"sparrow/internal/core/errors"
	"sparrow/internal/engine/idmap"
	"sparrow/internal/shared/observability"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/x448/float16"
)

// Topology is one direction of adjacency in CSR form. A node's targets live
// in targets[offsets[node]:offsets[node+1]], sorted ascending; parallel
// edges appear as repeated targets.
type Topology struct {
	offsets []int64
	targets []int64
}

func NewTopology(offsets, targets []int64) *Topology {
	if len(offsets) == 0 {
		panic("graph: topology offsets must have length nodeCount+1")
	}
	if offsets[0] != 0 || offsets[len(offsets)-1] != int64(len(targets)) {
		panic(fmt.Sprintf("graph: offsets spanning %d entries do not match %d targets",
			offsets[len(offsets)-1], len(targets)))
	}
	return &Topology{offsets: offsets, targets: targets}
}

func (t *Topology) NodeCount() int64 {
	return int64(len(t.offsets)) - 1
}

func (t *Topology) RelationshipCount() int64 {
	return int64(len(t.targets))
}

func (t *Topology) Degree(node int64) int64 {
	return t.offsets[node+1] - t.offsets[node]
}

func (t *Topology) slice(node int64) []int64 {
	return t.targets[t.offsets[node]:t.offsets[node+1]]
}

type propertyColumn interface {
	value(i int64) float64
}

type rawColumn []float64

func (c rawColumn) value(i int64) float64 { return c[i] }

type compressedColumn []float16.Float16

func (c compressedColumn) value(i int64) float64 { return float64(c[i].Float32()) }

// PropertyStore keeps relationship property columns aligned index-for-index
// with a topology's flattened target array. Compressed columns store 16-bit
// floats, halving memory at the cost of precision.
type PropertyStore struct {
	keys    []string
	columns map[string]propertyColumn
}

func NewPropertyStore(keys []string, columns [][]float64, compressed bool) *PropertyStore {
	if len(keys) != len(columns) {
		panic(fmt.Sprintf("graph: %d property keys for %d columns", len(keys), len(columns)))
	}
	store := &PropertyStore{
		keys:    append([]string(nil), keys...),
		columns: make(map[string]propertyColumn, len(keys)),
	}
	for i, key := range keys {
		if compressed {
			col := make(compressedColumn, len(columns[i]))
			for j, v := range columns[i] {
				col[j] = float16.Fromfloat32(float32(v))
			}
			store.columns[key] = col
		} else {
			store.columns[key] = rawColumn(columns[i])
		}
	}
	return store
}

func (s *PropertyStore) Keys() []string {
	if s == nil {
		return nil
	}
	return s.keys
}

func (s *PropertyStore) column(key string) (propertyColumn, bool) {
	if s == nil {
		return nil, false
	}
	col, ok := s.columns[key]
	return col, ok
}

// defaultColumn returns the first configured column, the one weighted
// traversal reads.
func (s *PropertyStore) defaultColumn() (propertyColumn, bool) {
	if s == nil || len(s.keys) == 0 {
		return nil, false
	}
	return s.columns[s.keys[0]], true
}

// CSRGraph is the immutable product of a relationships build: an identifier
// map, a forward topology, optional relationship properties and an optional
// inverse topology for incoming-direction traversal.
type CSRGraph struct {
	ids        *idmap.IdMap
	topology   *Topology
	properties *PropertyStore
	inverse    *Topology
}

func NewCSRGraph(ids *idmap.IdMap, topology *Topology, properties *PropertyStore, inverse *Topology) *CSRGraph {
	if topology.NodeCount() != ids.NodeCount() {
		panic(fmt.Sprintf("graph: topology covers %d nodes, id map %d", topology.NodeCount(), ids.NodeCount()))
	}
	if inverse != nil && inverse.NodeCount() != ids.NodeCount() {
		panic(fmt.Sprintf("graph: inverse topology covers %d nodes, id map %d", inverse.NodeCount(), ids.NodeCount()))
	}
	observability.GraphNodes.Set(float64(ids.NodeCount()))
	observability.GraphRelationships.Set(float64(topology.RelationshipCount()))
	return &CSRGraph{ids: ids, topology: topology, properties: properties, inverse: inverse}
}

func (g *CSRGraph) NodeCount() int64 {
	return g.ids.NodeCount()
}

func (g *CSRGraph) RelationshipCount() int64 {
	return g.topology.RelationshipCount()
}

func (g *CSRGraph) Degree(node int64) int64 {
	return g.topology.Degree(node)
}

func (g *CSRGraph) DegreeInverse(node int64) (int64, error) {
	if g.inverse == nil {
		return 0, errNoInverseIndex()
	}
	return g.inverse.Degree(node), nil
}

func (g *CSRGraph) HasInverseIndex() bool {
	return g.inverse != nil
}

func (g *CSRGraph) ForEachRelationship(node int64, consumer RelationshipConsumer) {
	for _, target := range g.topology.slice(node) {
		if !consumer(node, target) {
			return
		}
	}
}

func (g *CSRGraph) ForEachRelationshipWeighted(node int64, fallback float64, consumer RelationshipWithPropertyConsumer) {
	col, ok := g.properties.defaultColumn()
	g.forEachWithColumn(node, col, ok, fallback, consumer)
}

func (g *CSRGraph) ForEachRelationshipProperty(node int64, key string, fallback float64, consumer RelationshipWithPropertyConsumer) error {
	col, ok := g.properties.column(key)
	if !ok {
		return errors.New(errors.CodeNotFound,
			fmt.Sprintf("relationship property %q is not stored on this graph", key))
	}
	g.forEachWithColumn(node, col, true, fallback, consumer)
	return nil
}

func (g *CSRGraph) forEachWithColumn(node int64, col propertyColumn, ok bool, fallback float64, consumer RelationshipWithPropertyConsumer) {
	start := g.topology.offsets[node]
	for i, target := range g.topology.slice(node) {
		property := fallback
		if ok {
			property = col.value(start + int64(i))
		}
		if !consumer(node, target, property) {
			return
		}
	}
}

func (g *CSRGraph) ForEachInverseRelationship(node int64, consumer RelationshipConsumer) error {
	if g.inverse == nil {
		return errNoInverseIndex()
	}
	for _, source := range g.inverse.slice(node) {
		if !consumer(node, source) {
			break
		}
	}
	return nil
}

// HasRelationship reports whether at least one source→target relationship
// exists, by binary search over the sorted adjacency slice.
func (g *CSRGraph) HasRelationship(source, target int64) bool {
	adj := g.topology.slice(source)
	i := sort.Search(len(adj), func(i int) bool { return adj[i] >= target })
	return i < len(adj) && adj[i] == target
}

func (g *CSRGraph) ToMappedNodeID(originalID int64) int64 {
	return g.ids.ToMappedNodeID(originalID)
}

func (g *CSRGraph) ToOriginalNodeID(node int64) int64 {
	return g.ids.ToOriginalNodeID(node)
}

func (g *CSRGraph) ToRootNodeID(node int64) int64 {
	return node
}

func (g *CSRGraph) ContainsOriginalID(originalID int64) bool {
	return g.ids.ContainsOriginalID(originalID)
}

func (g *CSRGraph) NodeLabels(node int64) []string {
	return g.ids.NodeLabels(node)
}

func (g *CSRGraph) HasLabel(node int64, label string) bool {
	return g.ids.HasLabel(node, label)
}

func (g *CSRGraph) NodesWithLabel(label string) *roaring64.Bitmap {
	return g.ids.NodesWithLabel(label)
}

func (g *CSRGraph) IdMap() *idmap.IdMap {
	return g.ids
}

func (g *CSRGraph) Schema() Schema {
	return Schema{
		Labels:                 g.ids.Labels(),
		RelationshipProperties: g.properties.Keys(),
	}
}

// ConcurrentCopy returns the graph itself: traversal keeps no per-caller
// state, so the immutable structure is already safe to share.
func (g *CSRGraph) ConcurrentCopy() Graph {
	return g
}

func errNoInverseIndex() error {
	return errors.New(errors.CodeNotSupported,
		"graph was built without an inverse index; enable InverseIndex on the relationships builder to traverse incoming relationships")
}
