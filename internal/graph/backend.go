package graph

import (
	"context"

	"github.com/rohankatakam/pathgraph/internal/batch"
)

// LoaderConfigName names the configuration record holding the allocator
// high-water mark
const LoaderConfigName = "surrogate_key"

// Store defines the graph store operations the loader needs. Node and
// relation writes are the batch.Sink half; the rest persists loader state
// and schema.
type Store interface {
	batch.Sink

	// LastSurrogateKey reads the persisted allocator high-water mark (0 when
	// no job has run against this store).
	LastSurrogateKey(ctx context.Context) (uint64, error)

	// SaveLastSurrogateKey raises the persisted high-water mark.
	SaveLastSurrogateKey(ctx context.Context, key uint64) error

	// EnsureIndexes creates the surrogate key index of every node label.
	EnsureIndexes(ctx context.Context) error

	// Close closes the backend connection
	Close(ctx context.Context) error
}
