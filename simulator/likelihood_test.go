package simulator

import (
	"math"
	"testing"

	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/phylotree"
)

func twoLeafTree() *phylotree.Tree {
	return &phylotree.Tree{
		Nodes: map[int]*phylotree.Node{
			0: {ID: 0, Neighbors: []phylotree.Edge{{To: 1, Length: 0.1}, {To: 2, Length: 0.1}}},
			1: {ID: 1, Name: "a", IsLeaf: true, Neighbors: []phylotree.Edge{{To: 0, Length: 0.1}}},
			2: {ID: 2, Name: "b", IsLeaf: true, Neighbors: []phylotree.Edge{{To: 0, Length: 0.1}}},
		},
		RootID:  0,
		Rooted:  true,
		LeafNum: 2,
	}
}

func TestPatternLogLikelihoodRejectsWrongPatternLength(t *testing.T) {
	a, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := newFelsensteinLikelihood(twoLeafTree(), a)
	if _, err := f.PatternLogLikelihood([]int{0, 1, 0}); err == nil {
		t.Fatalf("expected error for a pattern with the wrong number of entries")
	}
}

func TestPatternLogLikelihoodIsNonPositive(t *testing.T) {
	a, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := newFelsensteinLikelihood(twoLeafTree(), a)
	ll, err := f.PatternLogLikelihood([]int{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ll > 0 {
		t.Fatalf("expected a log-likelihood <= 0, got %v", ll)
	}
	if math.IsNaN(ll) {
		t.Fatalf("expected a finite log-likelihood, got NaN")
	}
}

func TestPatternLogLikelihoodAllGapPatternIsCertain(t *testing.T) {
	a, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := newFelsensteinLikelihood(twoLeafTree(), a)
	ll, err := f.PatternLogLikelihood([]int{-1, -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ll) > 1e-9 {
		t.Fatalf("expected log-likelihood 0 (probability 1) for an all-gap pattern, got %v", ll)
	}
}
