// Package branch implements the two alternative per-branch evolution
// algorithms — transition-probability-matrix sampling and Gillespie-style
// rate-matrix sampling — and the threshold logic that picks between them.
package branch

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/rateprofile"
)

// Method names one of the two per-branch algorithms.
type Method int

const (
	RateMatrix Method = iota
	TransProb
)

// SwitchingThreshold computes tau(L), the threshold §4.2 compares
// length*scale against to choose a method. a is piecewise-constant in L
// and differs depending on whether the rate model is a continuous gamma
// (continuousGamma) or discrete/no heterogeneity — the exact breakpoints
// and constants from original_source/simulator/alisimulator.cpp's
// computeSwitchingParam.
func SwitchingThreshold(seqLen int, continuousGamma bool) float64 {
	var a float64
	switch {
	case seqLen >= 1000000:
		a = iff(continuousGamma, 6, 1.0)
	case seqLen >= 500000:
		a = iff(continuousGamma, 7, 1.1)
	case seqLen >= 100000:
		a = iff(continuousGamma, 9.1, 1.4)
	default:
		a = iff(continuousGamma, 13.307, 2.226)
	}
	return a / float64(seqLen)
}

func iff(cond bool, t, f float64) float64 {
	if cond {
		return t
	}
	return f
}

// SelectMethod implements §4.2's method-selection rule: TRANS_PROB is
// used whenever any of the listed conditions hold, otherwise RATE_MATRIX.
func SelectMethod(edgeLen, scale, threshold float64, heterotachy, branchOverride, mixtureSampling bool) Method {
	if edgeLen*scale > threshold || heterotachy || branchOverride || mixtureSampling {
		return TransProb
	}
	return RateMatrix
}

// Sampler evolves a parent sequence down one branch under either method.
// It is stateless across branches except for the small per-mixture P(t)
// cache modeladapter.Adapter itself already keeps; Sampler instances are
// cheap and may be reused or reconstructed per branch.
type Sampler struct {
	adapter *modeladapter.Adapter
}

// New builds a Sampler over adapter.
func New(adapter *modeladapter.Adapter) *Sampler {
	return &Sampler{adapter: adapter}
}

// EvolveTransProb implements §4.2's TRANS_PROB method: for each site,
// UNKNOWN parent states stay UNKNOWN; otherwise the child state is drawn
// from the row of P(scale*branchLen*rate[i]) for the site's mixture
// class, via a cumulative row and the max-prob-first binary search
// optimization (check the unchanged-state cell before falling back to a
// full binary search).
func (s *Sampler) EvolveTransProb(rng *rand.Rand, parent []int, branchLen, scale float64, profile *rateprofile.Profile) ([]int, error) {
	child := make([]int, len(parent))
	cumCache := make(map[cumKey][]float64)

	for i, st := range parent {
		if st == unknownState {
			child[i] = st
			continue
		}
		mix := profile.ClassAt(i)
		rate := profile.RateAt(i)
		t := branchLen * scale * rate
		key := cumKey{mix, t}
		cum, ok := cumCache[key]
		if !ok {
			p, err := s.adapter.PMatrix(mix, t)
			if err != nil {
				return nil, fmt.Errorf("branch: computing P(t) for mixture %d: %w", mix, err)
			}
			cum = cumulativeRows(p, s.adapter.NumStates())
			cumCache[key] = cum
		}
		row := cum[st*s.adapter.NumStates() : (st+1)*s.adapter.NumStates()]
		child[i] = sampleFromCumRow(rng, row, st)
	}
	return child, nil
}

type cumKey struct {
	mix int
	t   float64
}

// unknownState mirrors alphabet.UNKNOWN without importing alphabet here
// (branch operates on plain state codes, not alphabet metadata); both
// packages use -1 as the sentinel.
const unknownState = -1

// cumulativeRows turns a flat row-major S*S probability matrix into its
// row-wise cumulative form, one contiguous S*S slice.
func cumulativeRows(p []float64, s int) []float64 {
	out := make([]float64, len(p))
	for i := 0; i < s; i++ {
		running := 0.0
		for j := 0; j < s; j++ {
			running += p[i*s+j]
			out[i*s+j] = running
		}
		// guard against floating point short-fall so the final cell is
		// always reachable
		out[i*s+s-1] = 1
	}
	return out
}

// sampleFromCumRow draws a new state from a single cumulative row,
// checking the unchanged-state (prev) cell first before a full binary
// search, per §4.2's "max-prob-first optimization".
func sampleFromCumRow(rng *rand.Rand, cum []float64, prev int) int {
	r := rng.Float64()
	lo := 0.0
	if prev > 0 {
		lo = cum[prev-1]
	}
	if r >= lo && r < cum[prev] {
		return prev
	}
	idx := sort.Search(len(cum), func(i int) bool { return cum[i] > r })
	if idx >= len(cum) {
		idx = len(cum) - 1
	}
	return idx
}
