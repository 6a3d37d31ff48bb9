// Package flat provides an exhaustive in-memory vector index. Every query
// scans the full embedding matrix, so nearest-neighbor results are exact.
// This is the right trade for the corpus sizes the pipeline targets (tens to
// low hundreds of chunks).
package flat

import (
	"context"
	"errors"
	"sort"
	"sync"

	"paperqa/internal/domain"
)

// Index is a flat squared-L2 index. Build replaces the matrix atomically
// under a write lock; concurrent queries against a built index are safe.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

func New() *Index { return &Index{} }

// Build replaces the index contents with the given vectors. All vectors must
// share one dimensionality. An empty build clears the index.
func (x *Index) Build(ctx context.Context, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dim := 0
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return errors.New("vector dimension mismatch")
		}
	}
	// Copy before taking the lock so readers only ever see a complete matrix.
	snapshot := make([][]float32, len(vectors))
	copy(snapshot, vectors)
	x.mu.Lock()
	x.dimension = dim
	x.vectors = snapshot
	x.mu.Unlock()
	return nil
}

// Query returns the k nearest vectors by squared Euclidean distance,
// ascending. Ties are broken by ordinal, so rebuilding from the same matrix
// yields identical orderings. k larger than the corpus returns everything.
func (x *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(x.vectors) == 0 {
		return nil, nil
	}
	if len(vector) != x.dimension {
		return nil, errors.New("query vector dimension mismatch")
	}
	hits := make([]domain.Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = domain.Hit{Ordinal: i, Distance: sqEuclidean(vector, v)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if k <= 0 || k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

func sqEuclidean(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
