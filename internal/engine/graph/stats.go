package graph

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// LabelCount pairs a label with its node cardinality.
type LabelCount struct {
	Label string
	Count int64
}

// Summary aggregates the headline statistics of a graph, including the
// degree distribution reported by the CLI and the health endpoint.
type Summary struct {
	Nodes         int64
	Relationships int64
	MeanDegree    float64
	MedianDegree  float64
	P90Degree     float64
	MaxDegree     int64
	Labels        []LabelCount
}

// Summarize walks the graph's degree distribution once and aggregates it.
func Summarize(g Graph) Summary {
	s := Summary{
		Nodes:         g.NodeCount(),
		Relationships: g.RelationshipCount(),
	}

	if s.Nodes > 0 {
		degrees := make([]float64, s.Nodes)
		for node := int64(0); node < s.Nodes; node++ {
			d := g.Degree(node)
			degrees[node] = float64(d)
			if d > s.MaxDegree {
				s.MaxDegree = d
			}
		}
		sort.Float64s(degrees)
		s.MeanDegree = stat.Mean(degrees, nil)
		s.MedianDegree = stat.Quantile(0.5, stat.Empirical, degrees, nil)
		s.P90Degree = stat.Quantile(0.9, stat.Empirical, degrees, nil)
	}

	for _, label := range g.Schema().Labels {
		s.Labels = append(s.Labels, LabelCount{
			Label: label,
			Count: int64(g.NodesWithLabel(label).GetCardinality()),
		})
	}
	return s
}
