// Package vectorize converts trees into Kendall-Colijn style vectors. Each
// tree maps to a fixed-length vector whose components are, for every
// unordered tip pair, the root depth of the pair's most recent common
// ancestor, followed by one root-to-tip depth term per tip. The lambda
// parameter blends topological depth (edge counts) with branch-length depth.
package vectorize

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/jsdoublel/treespace/internal/trees"
)

var (
	ErrLambdaOutOfRange = errors.New("lambda out of range [0, 1]")
	ErrBranchLength     = errors.New("negative branch length")
)

// Weight blending topology and branch lengths; 0 is pure topology, 1 is
// branch lengths only. Implements flag.Value.
type Lambda float64

func (l *Lambda) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%q is not a valid lambda value", s)
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s", ErrLambdaOutOfRange, s)
	}
	*l = Lambda(v)
	return nil
}

func (l Lambda) String() string {
	return strconv.FormatFloat(float64(l), 'f', -1, 64)
}

// Length of the vector for t tips: C(t,2) pair terms plus t tip terms.
func VecLen(t int) int {
	return t * (t + 1) / 2
}

// All vectorizes every tree in the collection, fanning out across nprocs
// workers. Vectors are directly comparable component by component since
// all trees share the collection's tip ordering.
func All(col *trees.Collection, lambda Lambda, nprocs int) ([][]float64, error) {
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("%w: %s", ErrLambdaOutOfRange, lambda)
	}
	vecs := make([][]float64, col.Len())
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(nprocs)
	for i := range col.Trees {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := Tree(col, i, lambda)
			if err != nil {
				return fmt.Errorf("tree %d: %w", i+1, err)
			}
			vecs[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}

// Tree vectorizes the i-th tree of the collection. Pair components come
// first in lexicographic order over the shared tip indexes, tip components
// follow in shared tip order.
func Tree(col *trees.Collection, i int, lambda Lambda) ([]float64, error) {
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("%w: %s", ErrLambdaOutOfRange, lambda)
	}
	td := col.Trees[i]
	if lambda > 0 && td.HasNegLength {
		return nil, ErrBranchLength
	}
	t := len(col.Tips)
	vec := make([]float64, 0, VecLen(t))
	for a := 0; a < t; a++ {
		for b := a + 1; b < t; b++ {
			m := td.MRCA(td.TipNode[a], td.TipNode[b])
			vec = append(vec, blend(lambda, td.Depths[m], td.PathLen[m]))
		}
	}
	for a := 0; a < t; a++ {
		n := td.TipNode[a]
		vec = append(vec, blend(lambda, td.Depths[n], td.PathLen[n]))
	}
	return vec, nil
}

func blend(lambda Lambda, depth int, pathLen float64) float64 {
	return (1-float64(lambda))*float64(depth) + float64(lambda)*pathLen
}
