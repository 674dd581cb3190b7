package modeladapter

import (
	"math"
	"testing"
)

func TestNewEqualRatesRejectsMismatchedFrequencies(t *testing.T) {
	if _, err := NewEqualRates(4, []float64{0.25, 0.25}); err == nil {
		t.Fatalf("expected error for mismatched frequency length")
	}
}

func TestNewEqualRatesQMatrixRowsSumToZero(t *testing.T) {
	a, err := NewEqualRates(3, []float64{0.2, 0.3, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q, err := a.QMatrix(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			sum += q[i*3+j]
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("row %d does not sum to zero: %v", i, sum)
		}
	}
}

func TestPMatrixExpRowsAreStochastic(t *testing.T) {
	a, err := NewEqualRates(3, []float64{0.2, 0.3, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := a.PMatrix(0, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			if p[i*3+j] < 0 {
				t.Fatalf("negative probability at row %d col %d: %v", i, j, p[i*3+j])
			}
			sum += p[i*3+j]
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d does not sum to 1: %v", i, sum)
		}
	}
}

func TestPMatrixAtZeroLengthIsIdentity(t *testing.T) {
	a, err := NewEqualRates(3, []float64{0.2, 0.3, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := a.PMatrix(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(p[i*3+j]-want) > 1e-9 {
				t.Fatalf("P(0) not identity at (%d,%d): got %v", i, j, p[i*3+j])
			}
		}
	}
}

func TestQMatrixRejectsOutOfRangeMixture(t *testing.T) {
	a, err := NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.QMatrix(5); err == nil {
		t.Fatalf("expected error for out-of-range mixture index")
	}
}

func TestAscertainmentTogglesIndependentlyOfOtherFlags(t *testing.T) {
	a, err := NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AscertainmentEnabled() {
		t.Fatalf("expected ascertainment off by default")
	}
	a.SetAscertainment(true)
	if !a.AscertainmentEnabled() {
		t.Fatalf("expected ascertainment on after SetAscertainment(true)")
	}
}

func TestDNAErrProbDefaultsToZeroWhenUnset(t *testing.T) {
	a, err := NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.DNAErrProb(0) != 0 {
		t.Fatalf("expected 0 error probability when unset, got %v", a.DNAErrProb(0))
	}
	a.SetDNAError(true, []float64{0.1})
	if a.DNAErrProb(0) != 0.1 {
		t.Fatalf("expected configured error probability, got %v", a.DNAErrProb(0))
	}
}

func TestNewDNARejectsWrongParameterCount(t *testing.T) {
	if _, err := NewDNA(K2P, nil); err == nil {
		t.Fatalf("expected error for k2p with no kappa parameter")
	}
	if _, err := NewDNA(GTR, []float64{1, 2, 3}); err == nil {
		t.Fatalf("expected error for gtr with too few parameters")
	}
}

func TestNewCodonRejectsMismatchedFrequencyLength(t *testing.T) {
	if _, err := NewCodon(61, make([]int, 61), make([]float64, 10), 2, 0.5); err == nil {
		t.Fatalf("expected error for mismatched codon frequency length")
	}
}
