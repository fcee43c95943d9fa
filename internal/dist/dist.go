// Package dist computes the pairwise Euclidean distance matrix over a set
// of tree vectors. This is the dominant cost of the pipeline (O(n^2 *
// vector length)), so rows are computed in parallel; each worker owns its
// rows exclusively, so no locking is needed.
package dist

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

var ErrVectorLength = errors.New("vectors have unequal lengths")

// Symmetric matrix of pairwise distances with zero diagonal.
type Matrix struct {
	vals [][]float64
}

// Build computes the full matrix from n vectors of identical length using
// nprocs workers. Entry (i,j) is the Euclidean norm of the componentwise
// difference between vector i and vector j.
func Build(vecs [][]float64, nprocs int) (*Matrix, error) {
	n := len(vecs)
	for i, v := range vecs {
		if len(v) != len(vecs[0]) {
			return nil, fmt.Errorf("%w: vector %d has %d components, expected %d",
				ErrVectorLength, i+1, len(v), len(vecs[0]))
		}
	}
	vals := make([][]float64, n)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(nprocs)
	for i := range vals {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vals[i] = make([]float64, n)
			for j := range vals[i] {
				if j != i {
					vals[i][j] = floats.Distance(vecs[i], vecs[j], 2)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Matrix{vals: vals}, nil
}

// Number of trees (rows) in the matrix.
func (m *Matrix) Len() int {
	return len(m.vals)
}

func (m *Matrix) At(i, j int) float64 {
	return m.vals[i][j]
}

// Row returns the i-th row; the caller must not modify it.
func (m *Matrix) Row(i int) []float64 {
	return m.vals[i]
}
