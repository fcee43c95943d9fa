package cluster

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jsdoublel/treespace/internal/dist"
)

func buildMatrix(t *testing.T, vecs [][]float64) *dist.Matrix {
	t.Helper()
	m, err := dist.Build(vecs, 1)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// Two tight bundles of three vectors each must split cleanly in two
// groups under every linkage.
func TestGrovesTwoClusters(t *testing.T) {
	vecs := [][]float64{
		{0, 0},
		{0.1, 0},
		{0, 0.1},
		{10, 10},
		{10.1, 10},
		{10, 10.1},
	}
	m := buildMatrix(t, vecs)
	for name, linkage := range ParseLinkage {
		t.Run(name, func(t *testing.T) {
			grouping, err := Groves(m, 2, linkage)
			if err != nil {
				t.Fatal(err)
			}
			expected := []int{1, 1, 1, 2, 2, 2}
			if !reflect.DeepEqual(grouping.Assignments, expected) {
				t.Errorf("assignments %v != expected %v", grouping.Assignments, expected)
			}
			if !reflect.DeepEqual(grouping.Groups, [][]int{{0, 1, 2}, {3, 4, 5}}) {
				t.Errorf("groups %v != expected", grouping.Groups)
			}
		})
	}
}

func TestGrovesDeterministicTies(t *testing.T) {
	// two zero-distance pairs; the lowest index pair merges first
	vecs := [][]float64{
		{0, 0},
		{1, 0},
		{0, 0},
		{1, 0},
	}
	m := buildMatrix(t, vecs)
	grouping, err := Groves(m, 2, Single)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(grouping.Assignments, []int{1, 2, 1, 2}) {
		t.Errorf("assignments %v != expected [1 2 1 2]", grouping.Assignments)
	}
	again, err := Groves(m, 2, Single)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(grouping, again) {
		t.Error("repeated clustering differs")
	}
}

func TestGrovesBounds(t *testing.T) {
	m := buildMatrix(t, [][]float64{{0}, {1}, {2}})
	if g, err := Groves(m, 1, Single); err != nil || len(g.Groups) != 1 {
		t.Errorf("k = 1 should produce one group, got %v, %v", g, err)
	}
	if g, err := Groves(m, 3, Single); err != nil || len(g.Groups) != 3 {
		t.Errorf("k = n should produce n groups, got %v, %v", g, err)
	}
	if _, err := Groves(m, 0, Single); !errors.Is(err, ErrClusterCount) {
		t.Errorf("unexpected error %v, expected %v", err, ErrClusterCount)
	}
	if _, err := Groves(m, 4, Single); !errors.Is(err, ErrClusterCount) {
		t.Errorf("unexpected error %v, expected %v", err, ErrClusterCount)
	}
}

func TestLinkageFlag(t *testing.T) {
	var l Linkage
	if err := l.Set("average"); err != nil || l != Average {
		t.Errorf("Set(average) = %v, %v", l, err)
	}
	if l.String() != "average" {
		t.Errorf("String() = %q", l.String())
	}
	if err := l.Set("ward"); !errors.Is(err, ErrInvalidLinkage) {
		t.Errorf("unexpected error %v, expected %v", err, ErrInvalidLinkage)
	}
}
