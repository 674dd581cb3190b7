package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/evolbioinfo/gotree/io/utils"

	"github.com/evolbioinfo/alisim/alphabet"
	"github.com/evolbioinfo/alisim/config"
	"github.com/evolbioinfo/alisim/indel"
	"github.com/evolbioinfo/alisim/simulator"
)

var Version string = "Unknown"

const helpmessage = `
alisim-go: phylogenetic sequence-alignment simulator.

Reads one or more Newick trees and evolves sequences down them under a
configurable substitution model, with optional insertions/deletions,
among-site rate heterogeneity, functional-divergence site permutation,
ascertainment-bias correction and a DNA sequencing-error model.
`

func parseFloatList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

func alisimMain() int {
	intree := flag.String("intree", "stdin", "input tree file (Newick)")
	seqLen := flag.Int("length", 0, "sequence length (if 0, the length of -root-seq is used)")
	numDatasets := flag.Int("num-datasets", 1, "number of alignments to simulate per input tree")
	alphabetKind := flag.String("alphabet-kind", "DNA", "alphabet kind: BIN, DNA, AA, NT2AA, CODON, MORPH")
	morphStates := flag.Int("morph-states", 2, "number of states for a MORPH alphabet")

	model := flag.String("model", "jc", "model spec: jc,k2p,f81,gtr,jtt,wag,lg,hivb,codon,equal; append +ASC for ascertainment-bias correction")
	parameters := flag.String("parameters", "", "comma-separated model parameters")

	branchScale := flag.Float64("branch-scale", 1.0, "global branch length scale")
	rateHet := flag.String("rate-heterogeneity", "none", "none, gamma, gamma-discrete, or free:<ncat>")
	gammaAlpha := flag.Float64("alpha", 1.0, "gamma shape parameter")
	gammaCat := flag.Int("gamma-cat", 4, "number of gamma categories")

	lengthRatio := flag.Float64("length-ratio", 0, "override the ascertainment oversampling ratio rho (0 = estimate it)")

	insertionRatio := flag.Float64("insertion-ratio", 0, "per-site insertion rate alpha_I")
	deletionRatio := flag.Float64("deletion-ratio", 0, "per-site deletion rate alpha_D")
	insertionDist := flag.String("insertion-distribution", "", "NEG_BIN, ZIPF, LAV, or GEO")
	insertionP1 := flag.Float64("insertion-param1", 0, "first insertion-length distribution parameter")
	insertionP2 := flag.Float64("insertion-param2", 0, "second insertion-length distribution parameter")
	deletionDist := flag.String("deletion-distribution", "", "NEG_BIN, ZIPF, LAV, or GEO")
	deletionP1 := flag.Float64("deletion-param1", 0, "first deletion-length distribution parameter")
	deletionP2 := flag.Float64("deletion-param2", 0, "second deletion-length distribution parameter")
	kappa := flag.Int("rebuild-indel-history-param", 5, "kappa: tip-count interval between full genome-tree rebuilds")

	fundiProportion := flag.Float64("fundi-proportion", 0, "proportion of sites permuted under the FunDi model")
	fundiTaxa := flag.String("fundi-taxa", "", "comma-separated taxon names the FunDi permutation applies to")

	outputFormat := flag.String("output-format", "PHYLIP", "PHYLIP or FASTA")
	compression := flag.Bool("compression", false, "gzip-compress the output alignment")

	simThresh := flag.Float64("simulation-thresh", 0, "override the TRANS_PROB/RATE_MATRIX switching threshold tau (0 = compute it)")

	ancestralPath := flag.String("root-seq", "", "FASTA file with the ancestral (root) sequence")
	writeInternal := flag.Bool("write-internal-sequences", false, "write internal-node sequences in addition to leaves")

	outAlign := flag.String("out-align", "stdout", "output alignment file")
	seed := flag.Int64("seed", time.Now().UTC().UnixNano(), "random seed")
	version := flag.Bool("version", false, "print version and exit")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, helpmessage)
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", os.Args[0], Version)
		return 0
	}

	params, err := parseFloatList(*parameters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wrong -parameters argument: %s\n", err)
		return 1
	}

	cfg := &config.Config{
		SequenceLength:           *seqLen,
		NumDatasets:              *numDatasets,
		AlphabetKind:             alphabet.Kind(strings.ToUpper(*alphabetKind)),
		MorphStates:              *morphStates,
		ModelSpec:                *model,
		ModelParam:               params,
		BranchScale:              *branchScale,
		RateHetSpec:              *rateHet,
		GammaAlpha:               *gammaAlpha,
		GammaCategories:          *gammaCat,
		LengthRatio:              *lengthRatio,
		InsertionRatio:           *insertionRatio,
		DeletionRatio:            *deletionRatio,
		InsertionDistKind:        indel.DistKind(strings.ToUpper(*insertionDist)),
		InsertionParam1:          *insertionP1,
		InsertionParam2:          *insertionP2,
		DeletionDistKind:         indel.DistKind(strings.ToUpper(*deletionDist)),
		DeletionParam1:           *deletionP1,
		DeletionParam2:           *deletionP2,
		FunDiProportion:          *fundiProportion,
		FunDiTaxonSet:            config.ParseFunDiTaxa(*fundiTaxa),
		OutputFormat:             *outputFormat,
		Compression:              *compression,
		SimulationThresh:         *simThresh,
		RebuildIndelHistoryParam: *kappa,
		AncestralSequencePath:    *ancestralPath,
		WriteInternalSeqs:        *writeInternal,
		OutAlignPath:             *outAlign,
		Seed:                     *seed,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}

	treeFile, treeReader, err := utils.GetReader(*intree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	defer treeFile.Close()
	treeChan := utils.ReadMultiTrees(treeReader, utils.FORMAT_NEWICK)

	var outAlignFile *os.File
	if *outAlign == "stdout" {
		outAlignFile = os.Stdout
	} else {
		outAlignFile, err = os.Create(*outAlign)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return 1
		}
		defer outAlignFile.Close()
	}

	ctx, err := simulator.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}

	for trees := range treeChan {
		for i := 0; i < cfg.NumDatasets; i++ {
			sink, err := ctx.RunOnTree(trees.Tree)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s\n", err)
				return 1
			}
			if err := sink.Flush(outAlignFile, cfg.Compression); err != nil {
				fmt.Fprintf(os.Stderr, "%s\n", err)
				return 1
			}
		}
	}
	return 0
}

func main() {
	os.Exit(alisimMain())
}
