// Package index implements the exact inner-product vector index and its
// on-disk bundle (vector file, metadata table, descriptor).
package index

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// Hit is one search result: the slot of the vector and its inner product with the query.
type Hit struct {
	Position int
	Score    float64
}

// Flat is an exact nearest-neighbor index over unit-norm vectors.
// A Flat never changes after construction; Append returns a new index.
// Concurrent Search calls are safe.
type Flat struct {
	dim  int
	data []float32 // row-major, count*dim
}

// NewFlat builds an index from vectors in the given order. Each vector is
// copied and L2-normalized. Position i of the index is vectors[i].
func NewFlat(dim int, vectors [][]float32) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension %d: %w", dim, domain.ErrEmbeddingDimMismatch)
	}
	f := &Flat{dim: dim, data: make([]float32, 0, len(vectors)*dim)}
	return f.appendVectors(vectors, 0)
}

// Append returns a new index holding the existing vectors followed by vectors.
// The receiver is left unchanged.
func (f *Flat) Append(vectors [][]float32) (*Flat, error) {
	next := &Flat{dim: f.dim, data: make([]float32, len(f.data), len(f.data)+len(vectors)*f.dim)}
	copy(next.data, f.data)
	return next.appendVectors(vectors, f.Count())
}

func (f *Flat) appendVectors(vectors [][]float32, offset int) (*Flat, error) {
	for i, v := range vectors {
		if len(v) != f.dim {
			return nil, &domain.DimensionMismatchError{Expected: f.dim, Got: len(v), Position: offset + i}
		}
		f.data = append(f.data, Normalize(v)...)
	}
	return f, nil
}

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int { return f.dim }

// Count returns the number of indexed vectors.
func (f *Flat) Count() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Vector returns a copy of the stored vector at position i.
func (f *Flat) Vector(i int) []float32 {
	out := make([]float32, f.dim)
	copy(out, f.data[i*f.dim:(i+1)*f.dim])
	return out
}

// Search returns at most k hits ordered by score descending, ties by lower position.
// The query is normalized before scoring.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("search k=%d: %w", k, domain.ErrInvalidK)
	}
	if len(query) != f.dim {
		return nil, &domain.DimensionMismatchError{Expected: f.dim, Got: len(query), Position: -1}
	}
	q := Normalize(query)

	n := f.Count()
	hits := make([]Hit, n)
	for i := range n {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var dot float64
		for j, x := range row {
			dot += float64(x) * float64(q[j])
		}
		hits[i] = Hit{Position: i, Score: dot}
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Normalize returns a unit-length copy of v. A zero vector is returned as zeros.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
