package cluster

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrEmptyGroup = errors.New("empty group")

// The representative selection for one group: the centroid of the group's
// vectors, every member tied at the minimum centroid distance, and that
// minimum. Ties are all reported; trees with identical encoded structure
// have identical vectors and so tie exactly.
type MedianResult struct {
	Centroid []float64
	Trees    []int // member indexes closest to the centroid
	Dist     float64
}

// Median finds the member(s) of a group whose vectors are closest to the
// group centroid (the geometric median restricted to observed points).
func Median(group []int, vecs [][]float64) (*MedianResult, error) {
	if len(group) == 0 {
		return nil, ErrEmptyGroup
	}
	centroid := make([]float64, len(vecs[group[0]]))
	for _, t := range group {
		floats.Add(centroid, vecs[t])
	}
	floats.Scale(1/float64(len(group)), centroid)
	res := &MedianResult{Centroid: centroid, Dist: math.Inf(1)}
	for _, t := range group {
		d := floats.Distance(centroid, vecs[t], 2)
		switch {
		case d < res.Dist:
			res.Dist = d
			res.Trees = []int{t}
		case d == res.Dist:
			res.Trees = append(res.Trees, t)
		}
	}
	return res, nil
}
