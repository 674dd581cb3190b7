// Package lengthratio estimates the oversampling multiplier rho used to
// compensate for ascertainment-bias correction: simulating ceil(L*rho)
// sites and then dropping invariant columns should leave at least L
// variant sites.
package lengthratio

import (
	"fmt"
	"math"

	"github.com/evolbioinfo/alisim/modeladapter"
)

// FallbackRho is substituted whenever p_const or the resulting rho is
// non-finite, or p_const >= 1 (a numerical-pathology signal since p_const
// must lie in (0,1)), per §4.1 and §7's "numerical edge cases" policy.
const FallbackRho = 2.1

// Likelihood is the narrow slice of the external likelihood engine
// LengthRatioEstimator needs: the per-pattern log-likelihood of a
// pseudo-alignment, used only here (§1's "used only to estimate the
// ascertainment length ratio").
type Likelihood interface {
	// PatternLogLikelihood returns the log-likelihood of site pattern
	// pattern (one state per taxon) under the current tree and model.
	PatternLogLikelihood(pattern []int) (float64, error)
}

// Estimate computes rho for adapter's S-state model, given an
// override (userRho > 0 skips estimation entirely, §4.1 "if the user
// overrides via configuration, use that verbatim"). numTaxa is the
// number of leaves; the S all-constant site patterns (numTaxa entries
// each) are evaluated directly instead of a full pseudo-alignment.
func Estimate(adapter *modeladapter.Adapter, like Likelihood, numTaxa int, userRho float64) (float64, error) {
	if userRho > 0 {
		return userRho, nil
	}
	if !adapter.AscertainmentEnabled() {
		return 1, nil
	}

	wasEnabled := adapter.AscertainmentEnabled()
	adapter.SetAscertainment(false)
	defer adapter.SetAscertainment(wasEnabled) // restore on every exit path, per §4.1

	s := adapter.NumStates()
	pConst := 0.0
	for state := 0; state < s; state++ {
		pattern := make([]int, numTaxa)
		for i := range pattern {
			pattern[i] = state
		}
		ll, err := like.PatternLogLikelihood(pattern)
		if err != nil {
			return 0, fmt.Errorf("lengthratio: likelihood of all-%d pattern: %w", state, err)
		}
		pConst += math.Exp(ll)
	}

	// p_const must lie in (0,1); a non-finite value or one >= 1 signals
	// numerical pathology in the likelihood computation, not a valid
	// constant-site probability, per §4.1 and §7.
	if math.IsNaN(pConst) || math.IsInf(pConst, 0) || pConst >= 1 {
		return FallbackRho, nil
	}
	rho := 1/(1-pConst) + 0.1
	if math.IsNaN(rho) || math.IsInf(rho, 0) {
		return FallbackRho, nil
	}
	return rho, nil
}

// TargetLength returns ceil(L*rho).
func TargetLength(l int, rho float64) int {
	return int(math.Ceil(float64(l) * rho))
}
