package config

import (
	"testing"

	"github.com/evolbioinfo/alisim/alphabet"
)

func TestValidateRequiresSequenceLengthOrAncestral(t *testing.T) {
	c := &Config{AlphabetKind: alphabet.DNA}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when neither sequence_length nor ancestral_sequence_path is set")
	}
	c.AncestralSequencePath = "root.fasta"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error once an ancestral sequence is supplied: %v", err)
	}
}

func TestValidateRejectsNonMultipleOfThreeCodonLength(t *testing.T) {
	c := &Config{AlphabetKind: alphabet.CODON, SequenceLength: 10}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for codon sequence_length not a multiple of 3")
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	c := &Config{AlphabetKind: alphabet.DNA, SequenceLength: 100}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.NumDatasets != 1 || c.BranchScale != 1 || c.GammaCategories != 1 || c.OutputFormat != "PHYLIP" || c.RebuildIndelHistoryParam != 5 {
		t.Fatalf("expected defaults to be filled in, got %+v", c)
	}
}

func TestValidateRequiresFunDiTaxa(t *testing.T) {
	c := &Config{AlphabetKind: alphabet.DNA, SequenceLength: 100, FunDiProportion: 0.2}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for fundi_proportion > 0 without a taxon set")
	}
}

func TestParseFunDiTaxaTrimsAndSkipsEmpty(t *testing.T) {
	got := ParseFunDiTaxa(" a, b ,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
