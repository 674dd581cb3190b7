// Package dnaerror applies a model-reported sequencing-error probability
// to leaf sequences, the final per-leaf step in §4.6 (step 7) before a
// sequence is handed to the sink.
package dnaerror

import "math/rand"

// Apply mutates seq in place: with probability errProb, each non-UNKNOWN
// site is resampled to a uniformly random *different* state in [0, S).
// This mirrors original_source's changeSitesErrorModel, simplified to a
// uniform substitution error (the external model adapter is the
// authority on more elaborate error kernels; this is the generic
// fallback every alphabet supports).
func Apply(rng *rand.Rand, seq []int, s int, errProb float64, unknownState int) {
	if errProb <= 0 {
		return
	}
	for i, st := range seq {
		if st == unknownState {
			continue
		}
		if rng.Float64() >= errProb {
			continue
		}
		next := rng.Intn(s - 1)
		if next >= st {
			next++
		}
		seq[i] = next
	}
}
