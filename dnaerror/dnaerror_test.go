package dnaerror

import (
	"math/rand"
	"testing"
)

func TestApplyIsNoOpAtZeroProbability(t *testing.T) {
	seq := []int{0, 1, 2, 3}
	rng := rand.New(rand.NewSource(1))
	Apply(rng, seq, 4, 0, -1)
	want := []int{0, 1, 2, 3}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("expected no change at probability 0, got %v", seq)
		}
	}
}

func TestApplySkipsGapSites(t *testing.T) {
	seq := []int{-1, -1, -1}
	rng := rand.New(rand.NewSource(1))
	Apply(rng, seq, 4, 1.0, -1)
	for i, s := range seq {
		if s != -1 {
			t.Fatalf("gap site %d was rewritten: %v", i, seq)
		}
	}
}

func TestApplyAlwaysChangesStateAtProbabilityOne(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		seq := []int{2}
		Apply(rng, seq, 4, 1.0, -1)
		if seq[0] == 2 {
			t.Fatalf("expected a different state at errProb=1, got unchanged %d", seq[0])
		}
	}
}
