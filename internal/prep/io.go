// Package prep reads tree collection files and writes the comparison
// artifacts as CSV for external tools (renderers, notebooks) to consume.
package prep

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/io/nexus"
	"github.com/evolbioinfo/gotree/tree"

	"github.com/jsdoublel/treespace/internal/cluster"
	"github.com/jsdoublel/treespace/internal/diff"
	"github.com/jsdoublel/treespace/internal/dist"
	"github.com/jsdoublel/treespace/internal/scale"
)

var (
	ErrInvalidFile   = errors.New("invalid file")
	ErrInvalidFormat = errors.New("invalid format")
	ErrWritingFile   = errors.New("error writing file")
)

type Format int

const (
	Newick Format = iota
	Nexus
)

var ParseFormat = map[string]Format{
	"newick": Newick,
	"nexus":  Nexus,
}

func (f *Format) Set(s string) error {
	if format, ok := ParseFormat[s]; ok {
		*f = format
		return nil
	}
	return fmt.Errorf("\"%s\" is not a valid tree file format", s)
}

func (f Format) String() string {
	for s, fr := range ParseFormat {
		if fr == f {
			return s
		}
	}
	panic(fmt.Sprintf("format (%d) does not exist", f))
}

// A parsed tree collection plus display names (line numbers for newick
// files, tree names for nexus files).
type TreeSet struct {
	Trees []*tree.Tree
	Names []string
}

// Reads a tree collection file. Branch lengths are kept since the
// comparison metrics may use them; comments and supports are dropped.
// Returns an error if the file cannot be parsed or contains no trees.
func ReadTreeCollection(path string, format Format) (*TreeSet, error) {
	flags := log.Flags()
	lout := log.Writer()
	log.SetOutput(io.Discard) // don't log this bit as gotree can be noisy and lead to thousands of log messages
	defer func() {
		log.SetOutput(lout)
		log.SetFlags(flags)
	}()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s, %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(fmt.Sprintf("could not close file %s, %s", path, err))
		}
	}()
	return readTrees(file, path, format)
}

// Reads a file containing exactly one newick tree. Branch lengths are
// kept; comments and supports are dropped.
func ReadTreeFile(path string) (*tree.Tree, error) {
	flags := log.Flags()
	lout := log.Writer()
	log.SetOutput(io.Discard) // don't log this bit as gotree can be noisy and lead to thousands of log messages
	defer func() {
		log.SetOutput(lout)
		log.SetFlags(flags)
	}()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading tree file: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Count(raw, []byte{byte('\n')}) != 0 || len(raw) == 0 {
		return nil, fmt.Errorf("%w, there should only be exactly one newick tree in tree file %s",
			ErrInvalidFile, path)
	}
	tre, err := newick.NewParser(bytes.NewReader(raw)).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w, error parsing tree newick string from %s: %s",
			ErrInvalidFormat, path, err.Error())
	}
	tre.ClearComments()
	tre.ClearSupports()
	return tre, nil
}

func readTrees(r io.Reader, path string, format Format) (*TreeSet, error) {
	set := &TreeSet{}
	switch format {
	case Newick:
		scanner := bufio.NewScanner(r)
		for i := 0; scanner.Scan(); i++ {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			tre, err := newick.NewParser(bytes.NewReader(line)).Parse()
			if err != nil {
				return nil, fmt.Errorf("%w, error reading tree on line %d in %s: %s",
					ErrInvalidFormat, i+1, path, err.Error())
			}
			set.Trees = append(set.Trees, tre)
			set.Names = append(set.Names, strconv.Itoa(len(set.Trees)))
		}
		if len(set.Trees) < 1 {
			return nil, fmt.Errorf("%w, empty tree file %s", ErrInvalidFile, path)
		}
	case Nexus:
		nex, err := nexus.NewParser(r).Parse()
		if err != nil {
			return nil, fmt.Errorf("%w, error reading nexus file %s: %s",
				ErrInvalidFormat, path, err.Error())
		}
		nex.IterateTrees(func(s string, t *tree.Tree) {
			set.Trees = append(set.Trees, t)
			set.Names = append(set.Names, s)
		})
		if len(set.Trees) < 1 {
			return nil, fmt.Errorf("%w, no trees in nexus file %s", ErrInvalidFile, path)
		}
	default:
		return nil, fmt.Errorf("%w, not a valid file format", ErrInvalidFile)
	}
	for _, tre := range set.Trees {
		tre.ClearComments()
		tre.ClearSupports()
	}
	return set, nil
}

// Subset keeps the trees at the given indexes only, preserving order.
func (ts *TreeSet) Subset(idx []int) *TreeSet {
	sub := &TreeSet{
		Trees: make([]*tree.Tree, len(idx)),
		Names: make([]string, len(idx)),
	}
	for i, t := range idx {
		sub.Trees[i] = ts.Trees[t]
		sub.Names[i] = ts.Names[t]
	}
	return sub
}

func writeCSV(data [][]string, w io.Writer) (err error) {
	writer := csv.NewWriter(w)
	defer func() {
		writer.Flush()
		if err == nil {
			err = writer.Error()
		} else if writer.Error() != nil {
			log.Printf("error when flushing output csv, %s", writer.Error())
		}
	}()
	if err = writer.WriteAll(data); err != nil {
		err = fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return
}

// Write the distance matrix to w as csv; the header row and first column
// hold the tree names.
func WriteDistMatrixToCSV(m *dist.Matrix, names []string, w io.Writer) error {
	n := m.Len()
	data := make([][]string, n+1)
	data[0] = append([]string{"tree"}, names...)
	for i := 0; i < n; i++ {
		data[i+1] = make([]string, n+1)
		data[i+1][0] = names[i]
		for j := 0; j < n; j++ {
			data[i+1][j+1] = strconv.FormatFloat(m.At(i, j), 'f', -1, 64)
		}
	}
	return writeCSV(data, w)
}

// Write the principal coordinates to w as csv, one row per tree.
func WriteEmbeddingToCSV(emb *scale.Embedding, names []string, w io.Writer) error {
	k := len(emb.Points[0])
	data := make([][]string, len(emb.Points)+1)
	data[0] = []string{"tree"}
	for a := 1; a <= k; a++ {
		data[0] = append(data[0], fmt.Sprintf("axis%d", a))
	}
	for i, point := range emb.Points {
		data[i+1] = []string{names[i]}
		for _, c := range point {
			data[i+1] = append(data[i+1], strconv.FormatFloat(c, 'f', -1, 64))
		}
	}
	return writeCSV(data, w)
}

// Write the full eigenvalue list (the scree summary) to w as csv.
// Separate from the coordinates since its length (n) differs from the
// requested axis count.
func WriteEigenvaluesToCSV(emb *scale.Embedding, w io.Writer) error {
	data := make([][]string, len(emb.Eigenvalues)+1)
	data[0] = []string{"axis", "eigenvalue", "relative"}
	for a := range emb.Eigenvalues {
		data[a+1] = []string{
			strconv.Itoa(a + 1),
			strconv.FormatFloat(emb.Eigenvalues[a], 'f', -1, 64),
			strconv.FormatFloat(emb.RelEigenvalues[a], 'f', -1, 64),
		}
	}
	return writeCSV(data, w)
}

// Write the group assignment mapping to w as csv.
func WriteGrovesToCSV(g *cluster.Grouping, names []string, w io.Writer) error {
	data := make([][]string, len(g.Assignments)+1)
	data[0] = []string{"tree", "group"}
	for i, id := range g.Assignments {
		data[i+1] = []string{names[i], strconv.Itoa(id)}
	}
	return writeCSV(data, w)
}

// Write per-group median trees to w as csv; tied medians within a group
// each get their own row.
func WriteMediansToCSV(medians []*cluster.MedianResult, names []string, w io.Writer) error {
	data := [][]string{{"group", "tree", "centroid_dist"}}
	for id, med := range medians {
		for _, t := range med.Trees {
			data = append(data, []string{
				strconv.Itoa(id + 1),
				names[t],
				strconv.FormatFloat(med.Dist, 'f', -1, 64),
			})
		}
	}
	return writeCSV(data, w)
}

// Write per-tip ancestral difference counts to w as csv, with a trailing
// total row.
func WriteTipDiffToCSV(res *diff.Result, tips []string, w io.Writer) error {
	data := make([][]string, len(tips)+2)
	data[0] = []string{"tip", "differences"}
	for i, tip := range tips {
		data[i+1] = []string{tip, strconv.Itoa(res.Counts[i])}
	}
	data[len(tips)+1] = []string{"total", strconv.Itoa(res.Total)}
	return writeCSV(data, w)
}
