// Package trees contains the tree collection model used throughout
// treespace: a set of rooted trees sharing one tip-label set, with the
// per-tree data (depths, root-path lengths, clades) precomputed for the
// comparison metrics.
package trees

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/evolbioinfo/gotree/tree"
)

var (
	ErrEmptyCollection = errors.New("empty tree collection")
	ErrUnrooted        = errors.New("not rooted")
	ErrInvalidTopology = errors.New("not a connected acyclic tree")
	ErrMulTree         = errors.New("contains duplicate labels")
	ErrTipSetMismatch  = errors.New("tip sets do not match")
)

// Expanded tree struct containing preprocessed data needed by the metrics.
// Node data slices are indexed by gotree node id.
type Tree struct {
	*tree.Tree
	Parent       []int            // parent node id (-1 at root)
	Depths       []int            // edges from root to each node
	PathLen      []float64        // summed branch length from root to each node
	Clades       []*bitset.BitSet // tips below each node, in shared tip indexes
	TipNode      []int            // shared tip index -> node id
	HasNegLength bool             // some edge carries a set negative length
}

// A collection of trees sharing one tip set. Tips holds the shared tip
// ordering (sorted labels of the first tree); every vector and per-tip
// output in the module is laid out in this order.
type Collection struct {
	Tips  []string
	Trees []*Tree

	index map[string]int // tip label -> shared index
}

// Validate a set of trees and preprocess the data needed for comparison.
// Returns an error if any tree is unrooted, disconnected, contains
// duplicate labels, or disagrees with the first tree on the tip set.
func NewCollection(trs []*tree.Tree) (*Collection, error) {
	if len(trs) == 0 {
		return nil, ErrEmptyCollection
	}
	tips := sortedTips(trs[0])
	index := make(map[string]int, len(tips))
	for i, name := range tips {
		index[name] = i
	}
	col := &Collection{Tips: tips, Trees: make([]*Tree, len(trs)), index: index}
	for i, tre := range trs {
		if err := tre.UpdateTipIndex(); err != nil {
			return nil, fmt.Errorf("tree %d %w", i+1, ErrMulTree)
		}
		if !tre.Rooted() {
			return nil, fmt.Errorf("tree %d is %w", i+1, ErrUnrooted)
		}
		if i != 0 && !slices.Equal(tips, sortedTips(tre)) {
			return nil, fmt.Errorf("tree %d: %w", i+1, ErrTipSetMismatch)
		}
		td, err := makeTree(tre, index)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i+1, err)
		}
		col.Trees[i] = td
	}
	return col, nil
}

// Number of trees in the collection.
func (col *Collection) Len() int {
	return len(col.Trees)
}

// TipIndex returns the shared index for a tip label.
func (col *Collection) TipIndex(name string) (int, bool) {
	i, ok := col.index[name]
	return i, ok
}

// Subset returns a collection over the given tree indexes, sharing the
// same tip ordering and preprocessed data.
func (col *Collection) Subset(idx []int) *Collection {
	sub := &Collection{Tips: col.Tips, Trees: make([]*Tree, len(idx)), index: col.index}
	for i, t := range idx {
		sub.Trees[i] = col.Trees[t]
	}
	return sub
}

func sortedTips(tre *tree.Tree) []string {
	tips := tre.AllTipNames()
	slices.Sort(tips)
	return tips
}

// Preprocess a single tree: parents, depths, root-path lengths, and
// per-node clades over the shared tip indexes.
func makeTree(tre *tree.Tree, index map[string]int) (*Tree, error) {
	nNodes := len(tre.Nodes())
	td := &Tree{
		Tree:    tre,
		Parent:  make([]int, nNodes),
		Depths:  make([]int, nNodes),
		PathLen: make([]float64, nNodes),
		Clades:  make([]*bitset.BitSet, nNodes),
		TipNode: make([]int, len(index)),
	}
	for i := range td.Parent {
		td.Parent[i] = -1
	}
	visited := 0
	tre.PreOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		visited++
		if cur != tre.Root() {
			td.Parent[cur.Id()] = prev.Id()
			td.Depths[cur.Id()] = td.Depths[prev.Id()] + 1
			td.PathLen[cur.Id()] = td.PathLen[prev.Id()] + edgeLength(e, td)
		}
		return true
	})
	if visited != nNodes {
		return nil, ErrInvalidTopology
	}
	var badTip error
	tre.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		td.Clades[cur.Id()] = bitset.New(uint(len(index)))
		if cur.Tip() {
			si, ok := index[cur.Name()]
			if !ok {
				badTip = fmt.Errorf("tip %q: %w", cur.Name(), ErrTipSetMismatch)
				return false
			}
			td.Clades[cur.Id()].Set(uint(si))
			td.TipNode[si] = cur.Id()
		} else {
			for _, u := range cur.Neigh() {
				if u.Id() != td.Parent[cur.Id()] {
					td.Clades[cur.Id()].InPlaceUnion(td.Clades[u.Id()])
				}
			}
		}
		return true
	})
	if badTip != nil {
		return nil, badTip
	}
	return td, nil
}

// Branch length of the edge leading into a node. gotree reports an absent
// length as exactly -1; that defaults to 1 so topologies without lengths
// still vectorize under lambda > 0. Any other negative length marks the
// tree so branch-length metrics can reject it.
func edgeLength(e *tree.Edge, td *Tree) float64 {
	l := e.Length()
	switch {
	case l == -1:
		return 1
	case l < 0:
		td.HasNegLength = true
	}
	return l
}

// Takes two node ids and returns the id of their most recent common
// ancestor. Well defined for polytomies of any degree.
func (td *Tree) MRCA(u, w int) int {
	for td.Depths[u] > td.Depths[w] {
		u = td.Parent[u]
	}
	for td.Depths[w] > td.Depths[u] {
		w = td.Parent[w]
	}
	for u != w {
		u, w = td.Parent[u], td.Parent[w]
	}
	return u
}

// n2 (shared tip index) is in the clade below node n1 (id)
func (td *Tree) InClade(n1ID int, tip int) bool {
	return td.Clades[n1ID].Test(uint(tip))
}
