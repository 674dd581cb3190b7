// Package config holds the flat, flag-populated configuration struct for
// one simulation run, in the same style as snag.go's block of top-level
// flag.* variables: every option is optional unless its comment says
// otherwise, and Validate is called once after flag.Parse.
package config

import (
	"fmt"
	"strings"

	"github.com/evolbioinfo/alisim/alphabet"
	"github.com/evolbioinfo/alisim/indel"
)

// Config is the full set of options §6 names.
type Config struct {
	// SequenceLength is required unless AncestralSequencePath is set.
	SequenceLength int
	NumDatasets    int

	AlphabetKind alphabet.Kind
	MorphStates  int // only meaningful when AlphabetKind == MORPH

	// ModelSpec names one catalog entry (jc, k2p, f81, gtr, jtt, wag, lg,
	// hivb, codon, equal) plus its comma-separated parameters, the same
	// "-model"/"-parameters" split snag.go uses.
	ModelSpec  string
	ModelParam []float64

	BranchScale     float64
	PartitionFile   string
	RateHetSpec     string // "none", "gamma", "gamma-discrete", or "free:<ncat>"
	GammaAlpha      float64
	GammaCategories int

	LengthRatio float64 // user override for rho; 0 means "estimate it"

	InsertionRatio float64
	DeletionRatio  float64

	InsertionDistKind indel.DistKind
	InsertionParam1   float64
	InsertionParam2   float64
	DeletionDistKind  indel.DistKind
	DeletionParam1    float64
	DeletionParam2    float64

	FunDiProportion float64
	FunDiTaxonSet   []string

	OutputFormat string // "PHYLIP" or "FASTA"
	Compression  bool

	SimulationThresh         float64 // user override for tau; 0 means "compute it"
	RebuildIndelHistoryParam int     // kappa

	AncestralSequencePath string
	WriteInternalSeqs     bool

	OutAlignPath string
	Seed         int64
}

// Validate checks the cross-field invariants §6/§7 name as configuration
// errors: unknown alphabet, missing required length, codon length not a
// multiple of 3, a FunDi taxon set that can't be validated until the tree
// is known (left to the caller), inconsistent indel configuration.
func (c *Config) Validate() error {
	switch c.AlphabetKind {
	case alphabet.BIN, alphabet.DNA, alphabet.AA, alphabet.NT2AA, alphabet.CODON, alphabet.MORPH:
	default:
		return fmt.Errorf("config: unknown alphabet kind %q", c.AlphabetKind)
	}

	if c.SequenceLength <= 0 && c.AncestralSequencePath == "" {
		return fmt.Errorf("config: sequence_length is required when no ancestral sequence is supplied")
	}
	if c.AlphabetKind == alphabet.CODON && c.SequenceLength > 0 && c.SequenceLength%3 != 0 {
		return fmt.Errorf("config: codon alphabet needs a sequence_length that is a multiple of 3, got %d", c.SequenceLength)
	}
	if c.AlphabetKind == alphabet.MORPH && c.MorphStates < 2 {
		return fmt.Errorf("config: MORPH alphabet needs morph_states >= 2, got %d", c.MorphStates)
	}

	if c.NumDatasets <= 0 {
		c.NumDatasets = 1
	}
	if c.BranchScale <= 0 {
		c.BranchScale = 1
	}
	if c.GammaCategories <= 0 {
		c.GammaCategories = 1
	}

	if c.InsertionRatio < 0 || c.DeletionRatio < 0 {
		return fmt.Errorf("config: insertion_ratio and deletion_ratio cannot be negative")
	}
	if c.InsertionRatio > 0 && c.InsertionDistKind == "" {
		return fmt.Errorf("config: insertion_ratio > 0 requires an insertion_distribution")
	}
	if c.DeletionRatio > 0 && c.DeletionDistKind == "" {
		return fmt.Errorf("config: deletion_ratio > 0 requires a deletion_distribution")
	}

	if c.FunDiProportion < 0 || c.FunDiProportion > 1 {
		return fmt.Errorf("config: fundi_proportion must be in [0,1], got %v", c.FunDiProportion)
	}
	if c.FunDiProportion > 0 && len(c.FunDiTaxonSet) == 0 {
		return fmt.Errorf("config: fundi_proportion > 0 requires a non-empty fundi_taxon_set")
	}

	switch strings.ToUpper(c.OutputFormat) {
	case "", "PHYLIP":
		c.OutputFormat = "PHYLIP"
	case "FASTA":
		c.OutputFormat = "FASTA"
	default:
		return fmt.Errorf("config: unknown output_format %q, want PHYLIP or FASTA", c.OutputFormat)
	}

	if c.RebuildIndelHistoryParam <= 0 {
		c.RebuildIndelHistoryParam = 5
	}
	return nil
}

// ParseFunDiTaxa splits the comma-separated -fundi-taxa flag value.
func ParseFunDiTaxa(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
