package indel

import (
	"math/rand"
	"testing"
)

func TestApplyInsertionSplicesAtPosition(t *testing.T) {
	seq := []int{0, 1, 2, 3}
	out := ApplyInsertion(seq, 2, []int{9, 9})
	want := []int{0, 1, 9, 9, 2, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v want %v", out, want)
		}
	}
}

func TestApplyDeletionStopsAtSequenceEnd(t *testing.T) {
	seq := []int{0, 1, 2}
	gapped, err := ApplyDeletion(seq, 1, 5, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gapped != 2 {
		t.Fatalf("expected 2 sites gapped (sequence end reached), got %d", gapped)
	}
	want := []int{0, -1, -1}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("got %v want %v", seq, want)
		}
	}
}

func TestApplyDeletionSkipsExistingGaps(t *testing.T) {
	seq := []int{0, -1, 2, 3}
	gapped, err := ApplyDeletion(seq, 0, 2, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gapped != 2 {
		t.Fatalf("expected 2 newly gapped sites, got %d", gapped)
	}
	want := []int{-1, -1, -1, 3}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("got %v want %v", seq, want)
		}
	}
}

func TestSelectPositionSkipsGaps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	gaps := map[int]bool{0: true, 1: true, 2: true}
	pos, err := SelectPosition(rng, 4, func(i int) bool { return gaps[i] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != 3 {
		t.Fatalf("expected only non-gap position 3, got %d", pos)
	}
}

func TestSelectPositionErrorsWhenAllGaps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := SelectPosition(rng, 3, func(int) bool { return true })
	if err == nil {
		t.Fatalf("expected error when no non-gap position exists")
	}
}

func TestRecordRejectsInvariantViolation(t *testing.T) {
	c := &Controller{head: &Insertion{}}
	c.tail = c.head
	if _, err := c.Record(5, 3, 6); err == nil {
		t.Fatalf("expected invariant violation error (5+3 > 6)")
	}
}

func TestRatesMatchFormula(t *testing.T) {
	c := &Controller{alphaI: 0.1, alphaD: 0.2, meanDel: 1.5}
	rIns, rDel := c.Rates(100, 5)
	wantIns := 0.1 * float64(100+1-5)
	wantDel := 0.2 * (float64(100-1-5) + 1.5)
	if rIns != wantIns || rDel != wantDel {
		t.Fatalf("got rIns=%v rDel=%v want rIns=%v rDel=%v", rIns, rDel, wantIns, wantDel)
	}
}

func TestLengthDistRejectsBadParams(t *testing.T) {
	if _, err := NewLengthDist(Geo, 1.5, 0, nil); err == nil {
		t.Fatalf("expected error for GEO p outside (0,1)")
	}
	if _, err := NewLengthDist(Zipf, 1.0, 1, nil); err == nil {
		t.Fatalf("expected error for ZIPF s <= 1")
	}
}

func TestLavaletteDrawStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	d, err := NewLengthDist(Lav, 1.2, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		k, err := d.Draw(rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if k < 1 || k > 10 {
			t.Fatalf("Lavalette draw %d out of bounds [1,10]", k)
		}
	}
}
