package lengthratio

import (
	"math"
	"testing"

	"github.com/evolbioinfo/alisim/modeladapter"
)

type constLikelihood struct {
	ll float64
}

func (c constLikelihood) PatternLogLikelihood(pattern []int) (float64, error) {
	return c.ll, nil
}

func TestEstimateReturnsUserOverrideVerbatim(t *testing.T) {
	a, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rho, err := Estimate(a, nil, 4, 3.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rho != 3.5 {
		t.Fatalf("expected the user override 3.5, got %v", rho)
	}
}

func TestEstimateReturnsOneWhenAscertainmentDisabled(t *testing.T) {
	a, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rho, err := Estimate(a, nil, 4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rho != 1 {
		t.Fatalf("expected rho=1 with ascertainment off, got %v", rho)
	}
}

func TestEstimateFallsBackOnPathologicalLikelihood(t *testing.T) {
	a, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.SetAscertainment(true)
	// log(1) per state, summed over 2 states -> p_const = 2 >= 1, pathological.
	rho, err := Estimate(a, constLikelihood{ll: 0}, 4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rho != FallbackRho {
		t.Fatalf("expected fallback rho %v, got %v", FallbackRho, rho)
	}
	if !a.AscertainmentEnabled() {
		t.Fatalf("expected ascertainment to be restored to enabled after Estimate returns")
	}
}

func TestEstimateComputesRhoFromConstantSiteProbability(t *testing.T) {
	a, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.SetAscertainment(true)
	// ln(0.1) per state -> p_const = 2*0.1 = 0.2 -> rho = 1/(1-0.2)+0.1 = 1.35
	rho, err := Estimate(a, constLikelihood{ll: math.Log(0.1)}, 4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1/(1-0.2) + 0.1
	if math.Abs(rho-want) > 1e-9 {
		t.Fatalf("expected rho=%v, got %v", want, rho)
	}
}

func TestTargetLengthRoundsUp(t *testing.T) {
	if got := TargetLength(10, 1.35); got != 14 {
		t.Fatalf("expected ceil(10*1.35)=14, got %d", got)
	}
}
