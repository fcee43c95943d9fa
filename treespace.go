/*
treespace compares collections of phylogenetic trees that share a tip set:
it encodes each tree as a Kendall-Colijn style vector, computes pairwise
Euclidean distances, projects them into principal coordinates, clusters
trees into groves, and selects representative median trees.

usage: treespace [ -f <format> | -l <lambda> | ... | -h | -v ] <command> <trees>

commands:

	dist		pairwise distance matrix between all trees
	pcoa		principal coordinates and eigenvalues
	groves		cut the tree collection into groups of similar topology
	median		representative (median) tree of each grove
	diff		per-tip ancestral differences between two trees

positional arguments:

	<trees>	newick (one per line) or nexus file of trees over one tip set
		(diff also accepts two files of one newick tree each)

flags:

	-f format
	  	tree file format [ newick | nexus ] (default "newick")
	-l lambda
	  	topology vs branch length weight in [0, 1] (default 0)
	-k int
	  	number of principal coordinate axes (default 5)
	-m int
	  	number of groves to cut (default 2)
	-L linkage
	  	linkage mode [ single | complete | average ] (default "single")
	-a int / -b int
	  	tree numbers compared by diff (default 1 and 2)
	-S int
	  	analyze a random subsample of this many trees
	-s int
	  	seed for subsampling
	-n int
	  	number of parallel processes
	-h	prints this message and exits
	-v	prints version number and exits

examples:

	treespace dist trees.nwk > dist.csv 2> log.txt
	treespace -k 3 pcoa trees.nwk > coords.csv 2> log.txt
	treespace -m 2 -L average groves trees.nwk > groups.csv 2> log.txt
	treespace -m 2 median trees.nwk > medians.csv 2> log.txt
	treespace -a 1 -b 4 diff trees.nwk > tipdiff.csv 2> log.txt
	treespace diff tree1.nwk tree2.nwk > tipdiff.csv 2> log.txt
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/evolbioinfo/gotree/tree"

	"github.com/jsdoublel/treespace/internal/cluster"
	"github.com/jsdoublel/treespace/internal/compare"
	"github.com/jsdoublel/treespace/internal/diff"
	"github.com/jsdoublel/treespace/internal/prep"
	"github.com/jsdoublel/treespace/internal/trees"
	"github.com/jsdoublel/treespace/internal/vectorize"
)

const (
	Version    = "v0.1.0"
	ErrMessage = "treespace incountered an error ::"

	Dist Command = iota
	PCoA
	Groves
	Median
	Diff
)

type Command int

var parseCommand = map[string]Command{
	"dist":   Dist,
	"pcoa":   PCoA,
	"groves": Groves,
	"median": Median,
	"diff":   Diff,
}

type args struct {
	command   Command        // pipeline stage to run
	format    prep.Format    // tree file format
	treeFile  string         // tree collection file
	treeFile2 string         // second single-tree file (diff only)
	diffA     int            // first tree compared by diff (1-based)
	diffB     int            // second tree compared by diff (1-based)
	opts      compare.Options
}

func setNProcs(nprocs int) int {
	maxProcs := runtime.GOMAXPROCS(0)
	switch {
	case nprocs > maxProcs:
		log.Printf("%d is greater than available processes (%d); limit set to %d\n", nprocs, maxProcs, maxProcs)
		return maxProcs
	case nprocs <= 0:
		log.Printf("number of processes not set; defaulting to %d processes\n", maxProcs)
		return maxProcs
	default:
		return nprocs
	}
}

func parseArgs() args {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr,
			"usage: treespace [ -f <format> | -l <lambda> | ... | -h | -v ] <command> <trees>\n",
			"\n",
			"commands:\n\n",
			"  dist\t\tpairwise distance matrix between all trees\n",
			"  pcoa\t\tprincipal coordinates and eigenvalues\n",
			"  groves\tcut the tree collection into groups of similar topology\n",
			"  median\trepresentative (median) tree of each grove\n",
			"  diff\t\tper-tip ancestral differences between two trees\n",
			"\n",
			"positional arguments:\n\n",
			"  <trees>\tnewick (one per line) or nexus file of trees over one tip set\n",
			"\t\t(diff also accepts two files of one newick tree each)\n",
			"\n",
			"flags:\n\n",
		)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr,
			"\n",
			"examples:\n\n",
			"\ttreespace dist trees.nwk > dist.csv 2> log.txt\n",
			"\ttreespace -k 3 pcoa trees.nwk > coords.csv 2> log.txt\n",
			"\ttreespace -m 2 -L average groves trees.nwk > groups.csv 2> log.txt\n",
			"\ttreespace -a 1 -b 4 diff trees.nwk > tipdiff.csv 2> log.txt\n",
			"\ttreespace diff tree1.nwk tree2.nwk > tipdiff.csv 2> log.txt\n",
		)
	}
	format := prep.Newick
	flag.Var(&format, "f", "tree file `format` [ newick | nexus ] (default \"newick\")")
	var lambda vectorize.Lambda
	flag.Var(&lambda, "l", "topology vs branch length `lambda` weight in [0, 1] (default 0)")
	linkage := cluster.Single
	flag.Var(&linkage, "L", "`linkage` mode [ single | complete | average ] (default \"single\")")
	axes := flag.Int("k", 5, "number of principal coordinate axes")
	groups := flag.Int("m", 2, "number of groves to cut")
	diffA := flag.Int("a", 1, "first tree number compared by diff")
	diffB := flag.Int("b", 2, "second tree number compared by diff")
	sample := flag.Int("S", 0, "analyze a random subsample of this many trees")
	seed := flag.Int64("s", 0, "seed for subsampling")
	help := flag.Bool("h", false, "prints this message and exits")
	ver := flag.Bool("v", false, "prints version number and exits")
	nprocs := flag.Int("n", 0, "number of parallel processes")
	flag.Parse()
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *ver {
		fmt.Printf("treespace version %s\n", Version)
		os.Exit(0)
	}
	if flag.NArg() < 2 || flag.NArg() > 3 {
		parserError("two positional arguments required: <command> <trees>")
	}
	cmd, ok := parseCommand[flag.Arg(0)]
	if !ok {
		parserError(fmt.Sprintf("\"%s\" is not a valid command: one of \"dist\", \"pcoa\", \"groves\", \"median\", or \"diff\" required", flag.Arg(0)))
	}
	if flag.NArg() == 3 && cmd != Diff {
		parserError("only the diff command accepts two tree files")
	}
	return args{
		command:   cmd,
		format:    format,
		treeFile:  flag.Arg(1),
		treeFile2: flag.Arg(2),
		diffA:     *diffA,
		diffB:     *diffB,
		opts: compare.Options{
			Lambda:  lambda,
			NProcs:  setNProcs(*nprocs),
			Axes:    *axes,
			Groups:  *groups,
			Linkage: linkage,
			Sample:  *sample,
			Seed:    *seed,
		},
	}
}

// reads the two single-tree files given to diff as a two-tree collection
func readTreePair(fileA, fileB string) (*prep.TreeSet, error) {
	treA, err := prep.ReadTreeFile(fileA)
	if err != nil {
		return nil, err
	}
	treB, err := prep.ReadTreeFile(fileB)
	if err != nil {
		return nil, err
	}
	return &prep.TreeSet{
		Trees: []*tree.Tree{treA, treB},
		Names: []string{fileA, fileB},
	}, nil
}

// prints message, usage, and exits (status code 1)
func parserError(message string) {
	fmt.Fprintln(os.Stderr, message)
	flag.Usage()
	os.Exit(1)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("treespace version %s", Version)
	args := parseArgs()
	var set *prep.TreeSet
	var err error
	if args.treeFile2 != "" {
		set, err = readTreePair(args.treeFile, args.treeFile2)
		args.diffA, args.diffB = 1, 2
	} else {
		set, err = prep.ReadTreeCollection(args.treeFile, args.format)
	}
	if err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
	idx := compare.Subsample(len(set.Trees), args.opts)
	set = set.Subset(idx)
	col, err := trees.NewCollection(set.Trees)
	if err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
	switch args.command {
	case Dist:
		m, err := compare.Distances(col, args.opts)
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if err := prep.WriteDistMatrixToCSV(m, set.Names, os.Stdout); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
	case PCoA:
		_, emb, err := compare.Project(col, args.opts)
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if err := prep.WriteEmbeddingToCSV(emb, set.Names, os.Stdout); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if err := prep.WriteEigenvaluesToCSV(emb, os.Stdout); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
	case Groves:
		grouping, err := compare.Groves(col, args.opts)
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if err := prep.WriteGrovesToCSV(grouping, set.Names, os.Stdout); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
	case Median:
		_, medians, err := compare.Medians(col, args.opts)
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if err := prep.WriteMediansToCSV(medians, set.Names, os.Stdout); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
	case Diff:
		res, err := diff.Tips(col, args.diffA-1, args.diffB-1)
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if err := prep.WriteTipDiffToCSV(res, col.Tips, os.Stdout); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
	default:
		panic(fmt.Sprintf("invalid command (%d)", args.command))
	}
}
