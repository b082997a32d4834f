// # internal/engine/load/assemble.go
package load

import (
	"math"
	"time"

	"sparrow/internal/core/errors"
	"sparrow/internal/engine/graph"
	"sparrow/internal/engine/idmap"
	"sparrow/internal/shared/observability"
	"sparrow/internal/shared/radix"

	"golang.org/x/sync/errgroup"
)

// assemble drains the surrendered chunks into one flat pair buffer, sorts
// every node's adjacency slice by target and emits the immutable CSR arrays.
//
// Record layout during the drain: one interleaved [target, firstPropertyBits]
// pair per relationship, a second property in a companion array, any further
// properties in per-record rows. The radix sort permutes all of them in
// lock-step, so property values stay attached to their relationship.
func assemble(ids *idmap.IdMap, chunks []*chunk, cfg Config, options buildOptions) (*graph.CSRGraph, error) {
	nodeCount := ids.NodeCount()
	propertyCount := len(cfg.PropertyKeys)
	arity := int64(2 + propertyCount)

	for _, c := range chunks {
		if int64(len(c.data))%arity != 0 {
			return nil, errors.Newf(errors.CodeInternal,
				"import buffer holds %d values, not a multiple of record arity %d", len(c.data), arity)
		}
	}

	phase := time.Now()

	offsets := make([]int64, nodeCount+1)
	total := int64(0)
	for _, c := range chunks {
		for i := 0; i < len(c.data); i += int(arity) {
			offsets[c.data[i]+1]++
		}
		total += c.records()
	}
	for i := int64(0); i < nodeCount; i++ {
		offsets[i+1] += offsets[i]
	}

	pairs := make([]int64, 2*total)
	var additional []int64
	var rows [][]int64
	if propertyCount >= 2 {
		additional = make([]int64, total)
	}
	if propertyCount >= 3 {
		rows = make([][]int64, total)
	}

	cursor := make([]int64, nodeCount)
	copy(cursor, offsets[:nodeCount])
	for _, c := range chunks {
		for i := 0; i < len(c.data); i += int(arity) {
			source := c.data[i]
			slot := cursor[source]
			cursor[source]++
			pairs[2*slot] = c.data[i+1]
			if propertyCount >= 1 {
				pairs[2*slot+1] = c.data[i+2]
			}
			if propertyCount >= 2 {
				additional[slot] = c.data[i+3]
			}
			if propertyCount >= 3 {
				rows[slot] = c.data[i+4 : i+int(arity)]
			}
		}
		if options.drainProgress != nil {
			options.drainProgress(c.records())
		}
		observability.RelationshipsDrained.Add(float64(c.records()))
	}

	observability.BuildDuration.WithLabelValues("drain").Observe(time.Since(phase).Seconds())
	phase = time.Now()

	targets := make([]int64, total)
	var columns [][]float64
	if propertyCount > 0 {
		columns = make([][]float64, propertyCount)
		for k := range columns {
			columns[k] = make([]float64, total)
		}
	}

	partition := (nodeCount + int64(cfg.Concurrency) - 1) / int64(cfg.Concurrency)
	var group errgroup.Group
	group.SetLimit(cfg.Concurrency)
	for start := int64(0); start < nodeCount; start += partition {
		end := min(start+partition, nodeCount)
		group.Go(func() error {
			sortAndEmit(start, end, offsets, pairs, additional, rows, targets, columns, options.valueMapper)
			return nil
		})
	}
	_ = group.Wait()

	observability.BuildDuration.WithLabelValues("sort").Observe(time.Since(phase).Seconds())

	var properties *graph.PropertyStore
	if propertyCount > 0 {
		properties = graph.NewPropertyStore(cfg.PropertyKeys, columns, cfg.CompressProperties)
	}

	var inverse *graph.Topology
	if cfg.InverseIndex {
		phase = time.Now()
		inverse = assembleInverse(offsets, targets, nodeCount)
		observability.BuildDuration.WithLabelValues("inverse").Observe(time.Since(phase).Seconds())
	}

	return graph.NewCSRGraph(ids, graph.NewTopology(offsets, targets), properties, inverse), nil
}

// sortAndEmit orders each node's pair slice by target and writes the node's
// final target and property columns. Partitions are disjoint node ranges, so
// workers never write the same index.
func sortAndEmit(start, end int64, offsets, pairs, additional []int64, rows [][]int64, targets []int64, columns [][]float64, mapper func(float64) float64) {
	histogram := radix.NewHistogram()
	var buf, additionalBuf []int64
	var rowBuf [][]int64

	for node := start; node < end; node++ {
		lo, hi := offsets[node], offsets[node+1]
		m := int(hi - lo)
		if m > 1 {
			length := 2 * m
			if len(buf) < length {
				buf = make([]int64, length)
			}
			var add, addBuf []int64
			if additional != nil {
				if len(additionalBuf) < m {
					additionalBuf = make([]int64, m)
				}
				add, addBuf = additional[lo:hi], additionalBuf[:m]
			}
			var extra, extraBuf [][]int64
			if rows != nil {
				if len(rowBuf) < m {
					rowBuf = make([][]int64, m)
				}
				extra, extraBuf = rows[lo:hi], rowBuf[:m]
			}
			radix.SortWith(pairs[2*lo:2*hi], buf[:length], histogram, length, add, addBuf, extra, extraBuf)
		}

		for i := lo; i < hi; i++ {
			targets[i] = pairs[2*i]
			if len(columns) >= 1 {
				columns[0][i] = mapValue(mapper, pairs[2*i+1])
			}
			if len(columns) >= 2 {
				columns[1][i] = mapValue(mapper, additional[i])
			}
			for k := 2; k < len(columns); k++ {
				columns[k][i] = mapValue(mapper, rows[i][k-2])
			}
		}
	}
}

func mapValue(mapper func(float64) float64, bits int64) float64 {
	v := math.Float64frombits(uint64(bits))
	if mapper != nil {
		v = mapper(v)
	}
	return v
}

// assembleInverse derives the incoming-direction topology from the finished
// forward arrays. Pairs are emitted source-ascending, so the stable by-second
// sort leaves each target's sources ascending as well.
func assembleInverse(offsets, targets []int64, nodeCount int64) *graph.Topology {
	total := int64(len(targets))
	pairs := make([]int64, 2*total)
	slot := int64(0)
	for source := int64(0); source < nodeCount; source++ {
		for i := offsets[source]; i < offsets[source+1]; i++ {
			pairs[2*slot] = source
			pairs[2*slot+1] = targets[i]
			slot++
		}
	}

	buf := make([]int64, 2*total)
	radix.SortBySecond(pairs, buf, radix.NewHistogram(), int(2*total))

	// The swap pass leaves each pair as [target, source].
	inOffsets := make([]int64, nodeCount+1)
	sources := make([]int64, total)
	for i := int64(0); i < total; i++ {
		inOffsets[pairs[2*i]+1]++
		sources[i] = pairs[2*i+1]
	}
	for i := int64(0); i < nodeCount; i++ {
		inOffsets[i+1] += inOffsets[i]
	}
	return graph.NewTopology(inOffsets, sources)
}
