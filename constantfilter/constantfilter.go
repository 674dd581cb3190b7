// Package constantfilter implements post-hoc ascertainment-bias
// correction: after a full simulation oversampled by rho, remove sites
// that are invariant across all leaves down to the target length.
package constantfilter

import (
	"fmt"
)

const unknownState = -1

// Filter compacts leaves (name -> full-length sequence) down to the
// variant columns only, keeping at most targetLen of them. indelsActive
// disables the early-exit optimization (§4.7: "unless indels are active,
// then full pass"), since under indels a column's apparent constancy can
// be an artifact of gap placement that a partial scan would get wrong.
func Filter(leaves map[string][]int, targetLen int, indelsActive bool) (map[string][]int, error) {
	if len(leaves) == 0 {
		return leaves, nil
	}
	names := make([]string, 0, len(leaves))
	for name := range leaves {
		names = append(names, name)
	}
	length := len(leaves[names[0]])
	for _, name := range names {
		if len(leaves[name]) != length {
			return nil, fmt.Errorf("constantfilter: leaf %q has length %d, expected %d", name, len(leaves[name]), length)
		}
	}

	mask := make([]int, length)
	copy(mask, leaves[names[0]])
	variant := make([]bool, length)
	numVariant := 0

	for _, name := range names[1:] {
		seq := leaves[name]
		for i := 0; i < length; i++ {
			if variant[i] {
				continue
			}
			if seq[i] == unknownState || mask[i] == unknownState {
				continue
			}
			if seq[i] != mask[i] {
				variant[i] = true
				numVariant++
			}
		}
		if !indelsActive && numVariant >= ceilDiv(length, targetLen) {
			break
		}
	}

	if numVariant < targetLen {
		return nil, fmt.Errorf("constantfilter: only %d variant sites available, need %d; reduce length_ratio or raise sequence_length", numVariant, targetLen)
	}

	kept := make([]int, 0, targetLen)
	for i := 0; i < length && len(kept) < targetLen; i++ {
		if variant[i] {
			kept = append(kept, i)
		}
	}

	out := make(map[string][]int, len(leaves))
	for _, name := range names {
		seq := leaves[name]
		compact := make([]int, len(kept))
		for j, idx := range kept {
			compact[j] = seq[idx]
		}
		out[name] = compact
	}
	return out, nil
}

// ceilDiv returns the early-exit bound §4.7 expresses as
// num_variant >= ceil(L/rho). Since targetLen = ceil(L/rho) already, it
// returns targetLen unchanged and ignores length; this helper exists so
// the comparison at the call site reads the same way the spec states it.
func ceilDiv(length, targetLen int) int {
	return targetLen
}
