package branch

import (
	"math/rand"
	"testing"

	"github.com/evolbioinfo/alisim/indel"
	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/rateprofile"
)

func disabledCtrl(t *testing.T) *indel.Controller {
	ctrl, err := indel.New(rand.New(rand.NewSource(1)), 0, 0, nil, nil, 5, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ctrl
}

func TestEventLoopWithSubstitutionsOnlyPreservesLength(t *testing.T) {
	adapter, err := modeladapter.NewEqualRates(4, []float64{0.25, 0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := []int{0, 1, 2, 3}
	rng := rand.New(rand.NewSource(11))
	out, st, err := EventLoop(rng, seq, 2.0, 1, adapter, rateprofile.Empty(), disabledCtrl(t), true, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected length to stay 4 with no indels, got %d", len(out))
	}
	if st.NumGaps != 0 {
		t.Fatalf("expected no gaps, got %d", st.NumGaps)
	}
}

func TestEventLoopWithoutSubstitutionsLeavesSequenceUnchanged(t *testing.T) {
	adapter, err := modeladapter.NewEqualRates(4, []float64{0.25, 0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := []int{0, 1, 2, 3}
	rng := rand.New(rand.NewSource(5))
	out, _, err := EventLoop(rng, seq, 1.0, 1, adapter, rateprofile.Empty(), disabledCtrl(t), false, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 1, 2, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("expected sequence unchanged with substitutions disabled and indels disabled, got %v", out)
		}
	}
}

func TestEventLoopWithIndelsEnabledCanChangeLength(t *testing.T) {
	adapter, err := modeladapter.NewEqualRates(4, []float64{0.25, 0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	insDist, err := indel.NewLengthDist(indel.Geo, 0.5, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctrl, err := indel.New(rand.New(rand.NewSource(1)), 5.0, 0, insDist, nil, 4, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ctrl.Enabled() {
		t.Fatalf("expected controller to be enabled with a positive insertion rate")
	}
	seq := []int{0, 1, 2, 3}
	rng := rand.New(rand.NewSource(99))
	out, _, err := EventLoop(rng, seq, 0.5, 1, adapter, rateprofile.Empty(), ctrl, false, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) <= 4 {
		t.Fatalf("expected insertion-only indels to lengthen the sequence, got %d", len(out))
	}
}
