// Package compare wires the pipeline stages together: vectorization,
// distance matrix, scaling, grove finding, and median selection. Every
// call recomputes from its inputs; there is no shared state between
// calls.
package compare

import (
	"fmt"
	"log"
	"math/rand"
	"slices"

	"github.com/jsdoublel/treespace/internal/cluster"
	"github.com/jsdoublel/treespace/internal/dist"
	"github.com/jsdoublel/treespace/internal/scale"
	"github.com/jsdoublel/treespace/internal/trees"
	"github.com/jsdoublel/treespace/internal/vectorize"
)

type Options struct {
	Lambda  vectorize.Lambda // topology vs branch-length weight
	NProcs  int              // number of parallel processes
	Axes    int              // principal coordinate axes to keep
	Groups  int              // number of groves to cut
	Linkage cluster.Linkage  // linkage mode for grove finding
	Sample  int              // subsample size (0 keeps every tree)
	Seed    int64            // seed for subsampling
}

// Subsample returns the tree indexes of a deterministic random subsample
// of size opts.Sample (every index, in order, when the sample covers the
// collection). The seed comes from the caller so runs are reproducible.
func Subsample(n int, opts Options) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if opts.Sample <= 0 || opts.Sample >= n {
		return idx
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	idx = idx[:opts.Sample]
	slices.Sort(idx)
	log.Printf("subsampled %d of %d trees (seed %d)", opts.Sample, n, opts.Seed)
	return idx
}

// Vectors computes the tree vectors for the collection.
func Vectors(col *trees.Collection, opts Options) ([][]float64, error) {
	log.Printf("vectorizing %d trees (lambda = %s)", col.Len(), opts.Lambda)
	vecs, err := vectorize.All(col, opts.Lambda, opts.NProcs)
	if err != nil {
		return nil, fmt.Errorf("vectorize error: %w", err)
	}
	return vecs, nil
}

// Distances computes the pairwise distance matrix for the collection.
func Distances(col *trees.Collection, opts Options) (*dist.Matrix, error) {
	vecs, err := Vectors(col, opts)
	if err != nil {
		return nil, err
	}
	log.Println("computing pairwise distances")
	m, err := dist.Build(vecs, opts.NProcs)
	if err != nil {
		return nil, fmt.Errorf("distance error: %w", err)
	}
	return m, nil
}

// Project computes the distance matrix and its principal coordinate
// embedding on opts.Axes axes.
func Project(col *trees.Collection, opts Options) (*dist.Matrix, *scale.Embedding, error) {
	m, err := Distances(col, opts)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("scaling to %d axes", opts.Axes)
	emb, err := scale.PCoA(m, opts.Axes)
	if err != nil {
		return nil, nil, fmt.Errorf("scaling error: %w", err)
	}
	return m, emb, nil
}

// Groves cuts the collection into opts.Groups groups.
func Groves(col *trees.Collection, opts Options) (*cluster.Grouping, error) {
	m, err := Distances(col, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("clustering into %d groves (%s linkage)", opts.Groups, opts.Linkage)
	grouping, err := cluster.Groves(m, opts.Groups, opts.Linkage)
	if err != nil {
		return nil, fmt.Errorf("clustering error: %w", err)
	}
	return grouping, nil
}

// Medians finds groves and then the median tree(s) of each grove.
func Medians(col *trees.Collection, opts Options) (*cluster.Grouping, []*cluster.MedianResult, error) {
	vecs, err := Vectors(col, opts)
	if err != nil {
		return nil, nil, err
	}
	log.Println("computing pairwise distances")
	m, err := dist.Build(vecs, opts.NProcs)
	if err != nil {
		return nil, nil, fmt.Errorf("distance error: %w", err)
	}
	log.Printf("clustering into %d groves (%s linkage)", opts.Groups, opts.Linkage)
	grouping, err := cluster.Groves(m, opts.Groups, opts.Linkage)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering error: %w", err)
	}
	log.Println("selecting median trees")
	medians := make([]*cluster.MedianResult, len(grouping.Groups))
	for id, group := range grouping.Groups {
		med, err := cluster.Median(group, vecs)
		if err != nil {
			return nil, nil, fmt.Errorf("median error in group %d: %w", id+1, err)
		}
		medians[id] = med
	}
	return grouping, medians, nil
}
