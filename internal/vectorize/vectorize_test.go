package vectorize

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"

	"github.com/jsdoublel/treespace/internal/trees"
)

func makeCollection(t *testing.T, newicks []string) *trees.Collection {
	t.Helper()
	trs := make([]*tree.Tree, len(newicks))
	for i, nwk := range newicks {
		tre, err := newick.NewParser(strings.NewReader(nwk)).Parse()
		if err != nil {
			t.Fatalf("invalid newick tree %q; test is written wrong", nwk)
		}
		trs[i] = tre
	}
	col, err := trees.NewCollection(trs)
	if err != nil {
		t.Fatal(err)
	}
	return col
}

func TestTree(t *testing.T) {
	testCases := []struct {
		name     string
		tre      string
		lambda   Lambda
		expected []float64
	}{
		{
			name:   "topology only",
			tre:    "((a:1,b:2):3,(c:1,d:1):2);",
			lambda: 0,
			// pairs (a,b) (a,c) (a,d) (b,c) (b,d) (c,d), then tips a b c d
			expected: []float64{1, 0, 0, 0, 0, 1, 2, 2, 2, 2},
		},
		{
			name:     "branch lengths only",
			tre:      "((a:1,b:2):3,(c:1,d:1):2);",
			lambda:   1,
			expected: []float64{3, 0, 0, 0, 0, 2, 4, 5, 3, 3},
		},
		{
			name:     "blended",
			tre:      "((a:1,b:2):3,(c:1,d:1):2);",
			lambda:   0.5,
			expected: []float64{2, 0, 0, 0, 0, 1.5, 3, 3.5, 2.5, 2.5},
		},
		{
			name:     "no lengths default to one",
			tre:      "((a,b),(c,d));",
			lambda:   1,
			expected: []float64{1, 0, 0, 0, 0, 1, 2, 2, 2, 2},
		},
		{
			name:     "polytomy",
			tre:      "((a,b,c),d);",
			lambda:   0,
			expected: []float64{1, 1, 0, 1, 0, 0, 2, 2, 2, 1},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			col := makeCollection(t, []string{test.tre})
			vec, err := Tree(col, 0, test.lambda)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(vec, test.expected) {
				t.Errorf("vector %v != expected %v", vec, test.expected)
			}
			if len(vec) != VecLen(len(col.Tips)) {
				t.Errorf("vector length %d != VecLen %d", len(vec), VecLen(len(col.Tips)))
			}
		})
	}
}

func TestIdenticalTopologyIgnoresLengths(t *testing.T) {
	col := makeCollection(t, []string{
		"((a:1,b:2):3,(c:1,d:1):2);",
		"((b:9,a:7):1,(d:2,c:4):8);", // same rooted topology, different lengths and rotation
	})
	vecs, err := All(col, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Errorf("topology-only vectors differ: %v != %v", vecs[0], vecs[1])
	}
	vecs, err = All(col, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Error("branch-length vectors should differ when lengths differ")
	}
}

func TestNegativeBranchLength(t *testing.T) {
	col := makeCollection(t, []string{"((a:1,b:-2):3,(c:1,d:1):2);"})
	if _, err := Tree(col, 0, 1); !errors.Is(err, ErrBranchLength) {
		t.Errorf("unexpected error %v, expected %v", err, ErrBranchLength)
	}
	// lengths are ignored entirely at lambda = 0
	if _, err := Tree(col, 0, 0); err != nil {
		t.Errorf("unexpected error %v at lambda = 0", err)
	}
	if _, err := All(col, 1, 1); !errors.Is(err, ErrBranchLength) {
		t.Errorf("unexpected error %v, expected %v", err, ErrBranchLength)
	}
}

func TestLambdaOutOfRange(t *testing.T) {
	col := makeCollection(t, []string{"((a,b),(c,d));"})
	if _, err := Tree(col, 0, 2); !errors.Is(err, ErrLambdaOutOfRange) {
		t.Errorf("unexpected error %v, expected %v", err, ErrLambdaOutOfRange)
	}
	if _, err := Tree(col, 0, -0.5); !errors.Is(err, ErrLambdaOutOfRange) {
		t.Errorf("unexpected error %v, expected %v", err, ErrLambdaOutOfRange)
	}
	if _, err := All(col, 2, 1); !errors.Is(err, ErrLambdaOutOfRange) {
		t.Errorf("unexpected error %v, expected %v", err, ErrLambdaOutOfRange)
	}
}

func TestAllMatchesTree(t *testing.T) {
	col := makeCollection(t, []string{
		"((a:1,b:2):3,(c:1,d:1):2);",
		"((a:1,c:1):1,(b:1,d:1):1);",
		"(((a,b),c),d);",
	})
	vecs, err := All(col, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range col.Trees {
		vec, err := Tree(col, i, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(vec, vecs[i]) {
			t.Errorf("All and Tree disagree for tree %d", i+1)
		}
	}
}

func TestLambdaFlag(t *testing.T) {
	var l Lambda
	if err := l.Set("0.25"); err != nil || l != 0.25 {
		t.Errorf("Set(0.25) = %v, %v", l, err)
	}
	if l.String() != "0.25" {
		t.Errorf("String() = %q", l.String())
	}
	if err := l.Set("1.5"); !errors.Is(err, ErrLambdaOutOfRange) {
		t.Errorf("unexpected error %v, expected %v", err, ErrLambdaOutOfRange)
	}
	if err := l.Set("-0.5"); !errors.Is(err, ErrLambdaOutOfRange) {
		t.Errorf("unexpected error %v, expected %v", err, ErrLambdaOutOfRange)
	}
	if err := l.Set("abc"); err == nil {
		t.Error("expected error for non-numeric lambda")
	}
}
