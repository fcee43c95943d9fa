// Package diff computes per-tip ancestral differences between two trees:
// for each tip, how many of its ancestor clades (identified by their tip
// membership) differ between the trees. The counts are meant for an
// external renderer to color tips by; the total is a topological
// edit-style summary, not the vector-space distance.
package diff

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/jsdoublel/treespace/internal/trees"
)

var ErrTreeIndex = errors.New("tree index out of range")

// Per-tip ancestral difference counts in the collection's shared tip
// order, plus their total.
type Result struct {
	Counts []int
	Total  int
}

// Tips compares trees a and b (collection indexes). For each tip the
// ordered chains of ancestor clades, parent first, are compared position
// by position; a clade mismatch counts one, as does every unmatched
// position when the chains have different lengths. A tree compared with
// itself reports zero for every tip.
func Tips(col *trees.Collection, a, b int) (*Result, error) {
	if a < 0 || a >= col.Len() || b < 0 || b >= col.Len() {
		return nil, fmt.Errorf("%w: comparing %d and %d with %d trees", ErrTreeIndex, a+1, b+1, col.Len())
	}
	ta, tb := col.Trees[a], col.Trees[b]
	res := &Result{Counts: make([]int, len(col.Tips))}
	for tip := range col.Tips {
		ca := ancestorClades(ta, tip)
		cb := ancestorClades(tb, tip)
		n := 0
		for i := 0; i < len(ca) && i < len(cb); i++ {
			if !ca[i].Equal(cb[i]) {
				n++
			}
		}
		if len(ca) > len(cb) {
			n += len(ca) - len(cb)
		} else {
			n += len(cb) - len(ca)
		}
		res.Counts[tip] = n
		res.Total += n
	}
	return res, nil
}

// Clades on the path from the tip's parent to the root.
func ancestorClades(td *trees.Tree, tip int) []*bitset.BitSet {
	var chain []*bitset.BitSet
	for n := td.Parent[td.TipNode[tip]]; n != -1; n = td.Parent[n] {
		chain = append(chain, td.Clades[n])
	}
	return chain
}
