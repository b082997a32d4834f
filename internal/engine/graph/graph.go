// Package graph holds the immutable compressed-sparse-row graph produced by
// the load pipeline and the read-only node-filtered views layered on top.
package graph

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// RelationshipConsumer receives one relationship per call during traversal.
// Returning false stops the traversal early.
type RelationshipConsumer func(source, target int64) bool

// RelationshipWithPropertyConsumer additionally receives the property value
// selected for the traversal.
type RelationshipWithPropertyConsumer func(source, target int64, property float64) bool

// Schema describes the shape of a graph: its node labels and the ordered
// relationship property keys it stores.
type Schema struct {
	Labels                 []string
	RelationshipProperties []string
}

// Graph is the read surface shared by the root CSR graph and node-filtered
// views. All methods are safe for concurrent use; implementations are
// immutable apart from write-once caches.
type Graph interface {
	NodeCount() int64
	RelationshipCount() int64

	Degree(node int64) int64
	DegreeInverse(node int64) (int64, error)
	HasInverseIndex() bool

	ForEachRelationship(node int64, consumer RelationshipConsumer)
	ForEachRelationshipWeighted(node int64, fallback float64, consumer RelationshipWithPropertyConsumer)
	ForEachRelationshipProperty(node int64, key string, fallback float64, consumer RelationshipWithPropertyConsumer) error
	ForEachInverseRelationship(node int64, consumer RelationshipConsumer) error
	HasRelationship(source, target int64) bool

	ToMappedNodeID(originalID int64) int64
	ToOriginalNodeID(node int64) int64
	ToRootNodeID(node int64) int64
	ContainsOriginalID(originalID int64) bool

	NodeLabels(node int64) []string
	HasLabel(node int64, label string) bool
	NodesWithLabel(label string) *roaring64.Bitmap

	Schema() Schema
	ConcurrentCopy() Graph
}
