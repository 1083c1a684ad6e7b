package batch

import (
	"context"

	"github.com/rohankatakam/pathgraph/internal/model"
)

// CountingSink discards batches and only counts them. Used for dry runs.
type CountingSink struct {
	Nodes       int
	Relations   int
	NodesByKind map[model.NodeKind]int
	RelsByKind  map[model.RelationKind]int
}

// NewCountingSink creates an empty counting sink
func NewCountingSink() *CountingSink {
	return &CountingSink{
		NodesByKind: make(map[model.NodeKind]int),
		RelsByKind:  make(map[model.RelationKind]int),
	}
}

// CreateNodes implements Sink
func (s *CountingSink) CreateNodes(_ context.Context, nodes []model.Node) error {
	s.Nodes += len(nodes)
	for _, n := range nodes {
		s.NodesByKind[n.Kind]++
	}
	return nil
}

// MergeRelations implements Sink
func (s *CountingSink) MergeRelations(_ context.Context, relations []model.Relation) error {
	s.Relations += len(relations)
	for _, r := range relations {
		s.RelsByKind[r.Kind]++
	}
	return nil
}
