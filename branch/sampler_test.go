package branch

import (
	"math/rand"
	"testing"

	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/rateprofile"
)

func TestSwitchingThresholdBreakpoints(t *testing.T) {
	cases := []struct {
		seqLen          int
		continuousGamma bool
		wantA           float64
	}{
		{50000, false, 2.226},
		{200000, false, 1.4},
		{700000, false, 1.1},
		{2000000, false, 1.0},
		{50000, true, 13.307},
		{2000000, true, 6},
	}
	for _, c := range cases {
		got := SwitchingThreshold(c.seqLen, c.continuousGamma) * float64(c.seqLen)
		if diff := got - c.wantA; diff > 1e-2 || diff < -1e-2 {
			t.Errorf("seqLen=%d continuous=%v: got a=%v want a=%v", c.seqLen, c.continuousGamma, got, c.wantA)
		}
	}
}

func TestSelectMethodPrefersTransProbPastThreshold(t *testing.T) {
	thresh := SwitchingThreshold(1000, false)
	if m := SelectMethod(100, 1, thresh, false, false, false); m != TransProb {
		t.Fatalf("expected TransProb for a long branch, got %v", m)
	}
	if m := SelectMethod(0.000001, 1, thresh, false, false, false); m != RateMatrix {
		t.Fatalf("expected RateMatrix for a short branch, got %v", m)
	}
}

func TestSelectMethodForcesTransProbOnHeterotachy(t *testing.T) {
	thresh := SwitchingThreshold(1000, false)
	if m := SelectMethod(0, 1, thresh, true, false, false); m != TransProb {
		t.Fatalf("expected TransProb when heterotachy is set regardless of length")
	}
}

func TestZeroLengthBranchIsIdentity(t *testing.T) {
	adapter, err := modeladapter.NewEqualRates(4, []float64{0.25, 0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := New(adapter)
	rng := rand.New(rand.NewSource(7))
	parent := []int{0, 1, 2, 3, -1}
	profile := rateprofile.Empty()
	child, err := s.EvolveTransProb(rng, parent, 0, 1, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range parent {
		if child[i] != parent[i] {
			t.Fatalf("zero-length branch changed site %d: %d -> %d", i, parent[i], child[i])
		}
	}
}

func TestUnknownStatePropagatesThroughTransProb(t *testing.T) {
	adapter, err := modeladapter.NewEqualRates(4, []float64{0.25, 0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := New(adapter)
	rng := rand.New(rand.NewSource(3))
	parent := []int{-1, -1, -1}
	profile := rateprofile.Empty()
	child, err := s.EvolveTransProb(rng, parent, 1.0, 1, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, st := range child {
		if st != -1 {
			t.Fatalf("expected UNKNOWN to propagate at site %d, got %d", i, st)
		}
	}
}
