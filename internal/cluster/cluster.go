// Package cluster groups trees into "groves" of similar topology by
// agglomerative hierarchical clustering over the distance matrix, and
// selects representative median trees per grove.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jsdoublel/treespace/internal/dist"
)

var (
	ErrClusterCount   = errors.New("cluster count out of range [1, n]")
	ErrInvalidLinkage = errors.New("invalid linkage")
)

// How the distance between two clusters is derived from member distances.
type Linkage int

const (
	Single   Linkage = iota // minimum over member pairs
	Complete                // maximum over member pairs
	Average                 // mean over member pairs
)

var ParseLinkage = map[string]Linkage{
	"single":   Single,
	"complete": Complete,
	"average":  Average,
}

func (l *Linkage) Set(s string) error {
	if link, ok := ParseLinkage[s]; ok {
		*l = link
		return nil
	}
	return fmt.Errorf("%w %q", ErrInvalidLinkage, s)
}

func (l Linkage) String() string {
	for s, link := range ParseLinkage {
		if link == l {
			return s
		}
	}
	panic(fmt.Sprintf("linkage (%d) does not exist", l))
}

// A hard partition of tree indexes. Assignments maps tree index to group
// id; groups are numbered 1..k by each group's smallest member index, so
// the numbering is a pure function of the input.
type Grouping struct {
	Assignments []int   // tree index -> group id (1-based)
	Groups      [][]int // group id - 1 -> sorted member indexes
}

// Groves builds a dendrogram by agglomerative clustering with the chosen
// linkage and cuts it into exactly k groups. Merge ties are broken by the
// lowest index pair, so repeated runs produce identical groupings.
func Groves(m *dist.Matrix, k int, linkage Linkage) (*Grouping, error) {
	n := m.Len()
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k = %d, n = %d", ErrClusterCount, k, n)
	}
	// clusters stay ordered by smallest member, so scanning i < j visits
	// candidate merges in lowest-index-pair order
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}
	for len(clusters) > k {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := range clusters {
			for j := i + 1; j < len(clusters); j++ {
				if d := linkDist(m, clusters[i], clusters[j], linkage); d < best {
					best, bi, bj = d, i, j
				}
			}
		}
		merged := append(clusters[bi], clusters[bj]...)
		slices.Sort(merged)
		clusters[bi] = merged
		clusters = slices.Delete(clusters, bj, bj+1)
	}
	grouping := &Grouping{
		Assignments: make([]int, n),
		Groups:      clusters,
	}
	for id, members := range clusters {
		for _, t := range members {
			grouping.Assignments[t] = id + 1
		}
	}
	return grouping, nil
}

func linkDist(m *dist.Matrix, c1, c2 []int, linkage Linkage) float64 {
	var d float64
	switch linkage {
	case Single:
		d = math.Inf(1)
		for _, i := range c1 {
			for _, j := range c2 {
				d = math.Min(d, m.At(i, j))
			}
		}
	case Complete:
		for _, i := range c1 {
			for _, j := range c2 {
				d = math.Max(d, m.At(i, j))
			}
		}
	case Average:
		for _, i := range c1 {
			for _, j := range c2 {
				d += m.At(i, j)
			}
		}
		d /= float64(len(c1) * len(c2))
	default:
		panic(fmt.Sprintf("invalid linkage case (%d)", linkage))
	}
	return d
}
