// Package scale projects a distance matrix into a low-dimensional
// coordinate space via Principal Coordinates Analysis: square the
// distances, double-center, eigendecompose, and keep the axes with the
// largest eigenvalues.
package scale

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jsdoublel/treespace/internal/dist"
)

var (
	ErrAxisCount     = errors.New("axis count out of range [1, n-1]")
	ErrDecomposition = errors.New("eigendecomposition failed")
)

// Principal coordinates for a tree collection. Points[i] holds the k
// coordinates of tree i, axes ordered by descending eigenvalue.
// Eigenvalues holds the full ordered list (a scree summary of explained
// variance); RelEigenvalues is each positive eigenvalue's share of the
// positive total.
type Embedding struct {
	Points         [][]float64
	Eigenvalues    []float64
	RelEigenvalues []float64
}

// PCoA embeds the distance matrix on k axes. Since the matrix derives
// from Euclidean vector distances it is exactly embeddable; distances
// reconstructed from the kept axes approximate the originals with error
// bounded by the discarded eigenvalues.
func PCoA(m *dist.Matrix, k int) (*Embedding, error) {
	n := m.Len()
	if k < 1 || k >= n {
		return nil, fmt.Errorf("%w: k = %d, n = %d", ErrAxisCount, k, n)
	}
	b := gramMatrix(m)
	var eig mat.EigenSym
	if ok := eig.Factorize(b, true); !ok {
		return nil, ErrDecomposition
	}
	vals := eig.Values(nil) // ascending
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	emb := &Embedding{
		Points:         make([][]float64, n),
		Eigenvalues:    make([]float64, n),
		RelEigenvalues: make([]float64, n),
	}
	for a := 0; a < n; a++ {
		emb.Eigenvalues[a] = vals[n-1-a]
	}
	var posSum float64
	for _, v := range emb.Eigenvalues {
		posSum += math.Max(v, 0)
	}
	if posSum > 0 {
		for a, v := range emb.Eigenvalues {
			emb.RelEigenvalues[a] = math.Max(v, 0) / posSum
		}
	}
	for i := 0; i < n; i++ {
		emb.Points[i] = make([]float64, k)
		for a := 0; a < k; a++ {
			col := n - 1 - a
			// tiny negative eigenvalues are numeric noise; clamp
			emb.Points[i][a] = vecs.At(i, col) * math.Sqrt(math.Max(vals[col], 0))
		}
	}
	return emb, nil
}

// Double-centered Gram matrix: b_ij = -(d_ij^2 - rowmean_i - rowmean_j +
// grandmean) / 2. Symmetric by construction since the input is.
func gramMatrix(m *dist.Matrix) *mat.SymDense {
	n := m.Len()
	sq := make([][]float64, n)
	rowMeans := make([]float64, n)
	for i := range sq {
		sq[i] = make([]float64, n)
		for j := range sq[i] {
			d := m.At(i, j)
			sq[i][j] = d * d
		}
		rowMeans[i] = floats.Sum(sq[i]) / float64(n)
	}
	grand := floats.Sum(rowMeans) / float64(n)
	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, -0.5*(sq[i][j]-rowMeans[i]-rowMeans[j]+grand))
		}
	}
	return b
}
