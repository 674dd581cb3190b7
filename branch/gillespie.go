package branch

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"

	"github.com/evolbioinfo/alisim/indel"
	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/rateprofile"
)

// RateMatrixState is the transient per-branch bookkeeping §3 describes:
// the running total substitution rate, the per-position substitution
// rate vector feeding Gillespie's position-selection step, and the
// number of UNKNOWN (gap) sites accumulated so far on this branch.
type RateMatrixState struct {
	TotalSubRate  float64
	SubRateBySite []float64
	MixClassBySite []int
	NumGaps       int
}

var nanWarnOnce sync.Once

// jmatrix is the row-cumulative J-matrix built once per mixture class at
// branch start: J[i][j] = Q[i][j] / (-Q[i][i]) for j != i, 0 on the
// diagonal, as a categorical distribution over the next state (§4.8:
// "extracting Q once per mixture at branch start and caching a
// row-cumulative J").
type jmatrix struct {
	cumRows []float64 // S*S, cumulative per row
	outRate []float64 // -Q[i][i], the total outgoing rate from state i
	s       int
}

func buildJMatrix(q []float64, s int) *jmatrix {
	j := &jmatrix{cumRows: make([]float64, s*s), outRate: make([]float64, s), s: s}
	for i := 0; i < s; i++ {
		j.outRate[i] = -q[i*s+i]
		running := 0.0
		for k := 0; k < s; k++ {
			if k != i && j.outRate[i] > 0 {
				running += q[i*s+k] / j.outRate[i]
			}
			j.cumRows[i*s+k] = running
		}
		if j.outRate[i] > 0 {
			j.cumRows[i*s+s-1] = 1
		}
	}
	return j
}

func (j *jmatrix) sampleNext(rng *rand.Rand, cur int) int {
	row := j.cumRows[cur*j.s : (cur+1)*j.s]
	r := rng.Float64()
	for k, c := range row {
		if r < c {
			return k
		}
	}
	return j.s - 1
}

// EventLoop runs §4.3/§4.4's combined Gillespie loop for one branch:
// substitution (RATE_MATRIX only), insertion and deletion events compete
// on independent exponential clocks until branchLen*scale time units
// have elapsed. seq is mutated and also returned (its backing array may
// be reallocated by insertions/deletions). The TRANS_PROB/RATE_MATRIX
// switching threshold is not recomputed inside the loop; the caller
// computes it per edge from the parent sequence's current length.
func EventLoop(rng *rand.Rand, seq []int, branchLen, scale float64, adapter *modeladapter.Adapter, profile *rateprofile.Profile, ctrl *indel.Controller, substitutionsEnabled bool, unknownState int) ([]int, *RateMatrixState, error) {
	st := &RateMatrixState{NumGaps: countGaps(seq, unknownState)}

	jByMix := map[int]*jmatrix{}
	jFor := func(mix int) (*jmatrix, error) {
		if j, ok := jByMix[mix]; ok {
			return j, nil
		}
		q, err := adapter.QMatrix(mix)
		if err != nil {
			return nil, err
		}
		j := buildJMatrix(q, adapter.NumStates())
		jByMix[mix] = j
		return j, nil
	}

	if substitutionsEnabled {
		st.SubRateBySite = make([]float64, len(seq))
		st.MixClassBySite = make([]int, len(seq))
		for i, s := range seq {
			mix := profile.ClassAt(i)
			st.MixClassBySite[i] = mix
			if s == unknownState {
				continue
			}
			j, err := jFor(mix)
			if err != nil {
				return nil, nil, err
			}
			st.SubRateBySite[i] = j.outRate[s] * profile.RateAt(i)
			st.TotalSubRate += st.SubRateBySite[i]
		}
	}

	remaining := branchLen * scale
	for remaining > 0 {
		length := len(seq)
		rIns, rDel := ctrl.Rates(length, st.NumGaps)
		rSub := 0.0
		if substitutionsEnabled {
			rSub = st.TotalSubRate
		}
		total := rIns + rDel + rSub
		if total <= 0 {
			break
		}
		dt := rng.ExpFloat64() / total
		if dt > remaining {
			break
		}
		remaining -= dt

		switch pickEvent(rng, rIns, rDel, rSub) {
		case eventInsertion:
			var err error
			seq, err = applyInsertionEvent(rng, seq, ctrl, adapter, profile, st, substitutionsEnabled, jFor)
			if err != nil {
				return nil, nil, err
			}
		case eventDeletion:
			if err := applyDeletionEvent(rng, seq, ctrl, st, substitutionsEnabled, unknownState); err != nil {
				return nil, nil, err
			}
		case eventSubstitution:
			if err := applySubstitutionEvent(rng, seq, st, profile, jFor); err != nil {
				return nil, nil, err
			}
		}
	}

	if substitutionsEnabled && math.IsNaN(st.TotalSubRate) {
		nanWarnOnce.Do(func() {
			fmt.Fprintln(os.Stderr, "[Warning] total substitution rate became NaN (likely an all-gap branch); substituting 0 and continuing")
		})
		st.TotalSubRate = 0
	}
	return seq, st, nil
}

type eventKind int

const (
	eventInsertion eventKind = iota
	eventDeletion
	eventSubstitution
)

func pickEvent(rng *rand.Rand, rIns, rDel, rSub float64) eventKind {
	r := rng.Float64() * (rIns + rDel + rSub)
	if r < rIns {
		return eventInsertion
	}
	if r < rIns+rDel {
		return eventDeletion
	}
	return eventSubstitution
}

func countGaps(seq []int, unknownState int) int {
	n := 0
	for _, s := range seq {
		if s == unknownState {
			n++
		}
	}
	return n
}

func applySubstitutionEvent(rng *rand.Rand, seq []int, st *RateMatrixState, profile *rateprofile.Profile, jFor func(int) (*jmatrix, error)) error {
	pos := sampleSiteByRate(rng, st.SubRateBySite, st.TotalSubRate)
	if pos < 0 {
		return nil
	}
	j, err := jFor(st.MixClassBySite[pos])
	if err != nil {
		return err
	}
	next := j.sampleNext(rng, seq[pos])
	if next != seq[pos] {
		seq[pos] = next
		rate := j.outRate[next] * profile.RateAt(pos)
		st.TotalSubRate += rate - st.SubRateBySite[pos]
		st.SubRateBySite[pos] = rate
	}
	return nil
}

func sampleSiteByRate(rng *rand.Rand, rates []float64, total float64) int {
	if total <= 0 {
		return -1
	}
	r := rng.Float64() * total
	running := 0.0
	for i, rt := range rates {
		running += rt
		if r < running {
			return i
		}
	}
	return len(rates) - 1
}

func applyInsertionEvent(rng *rand.Rand, seq []int, ctrl *indel.Controller, adapter *modeladapter.Adapter, profile *rateprofile.Profile, st *RateMatrixState, substitutionsEnabled bool, jFor func(int) (*jmatrix, error)) ([]int, error) {
	length := len(seq)
	pos, err := indel.SelectPosition(rng, length+1, func(i int) bool {
		return i < length && seq[i] == -1
	})
	if err != nil {
		return nil, err
	}
	k, err := ctrl.SampleInsertionLength(rng)
	if err != nil {
		return nil, err
	}
	freq := adapter.Freqs(0)
	newStates := make([]int, k)
	for i := range newStates {
		newStates[i] = drawFromFreq(rng, freq)
	}
	seq = indel.ApplyInsertion(seq, pos, newStates)
	if _, err := ctrl.Record(pos, k, length+k); err != nil {
		return nil, err
	}

	if substitutionsEnabled {
		// Newly inserted sites have no entry in the global rate
		// profile (it is sized to the ancestral sequence); they evolve
		// at the base rate of mixture class 0, matching how AliSim
		// treats inserted sites as unscaled by among-site rate
		// heterogeneity.
		j, err := jFor(0)
		if err != nil {
			return nil, err
		}
		newRates := make([]float64, k)
		newClasses := make([]int, k)
		for i, s := range newStates {
			newRates[i] = j.outRate[s]
		}
		st.SubRateBySite = insertSlice(st.SubRateBySite, pos, newRates)
		st.MixClassBySite = insertIntSlice(st.MixClassBySite, pos, newClasses)
		for _, r := range newRates {
			st.TotalSubRate += r
		}
	}
	return seq, nil
}

func insertIntSlice(s []int, pos int, vals []int) []int {
	out := make([]int, 0, len(s)+len(vals))
	out = append(out, s[:pos]...)
	out = append(out, vals...)
	out = append(out, s[pos:]...)
	return out
}

func applyDeletionEvent(rng *rand.Rand, seq []int, ctrl *indel.Controller, st *RateMatrixState, substitutionsEnabled bool, unknownState int) error {
	length := len(seq)
	k, err := ctrl.SampleDeletionLength(rng)
	if err != nil {
		return err
	}
	if k > length {
		k = length
	}
	start, err := indel.SelectPosition(rng, length-k+1, func(i int) bool {
		return i < length && seq[i] == unknownState
	})
	if err != nil {
		return err
	}
	before := st.NumGaps
	gapped, err := indel.ApplyDeletion(seq, start, k, unknownState)
	if err != nil {
		return err
	}
	st.NumGaps = before + gapped
	if substitutionsEnabled {
		zeroed := 0
		for i := start; i < length && zeroed < gapped; i++ {
			if seq[i] == unknownState && st.SubRateBySite[i] != 0 {
				st.TotalSubRate -= st.SubRateBySite[i]
				st.SubRateBySite[i] = 0
				zeroed++
			}
		}
	}
	return nil
}

func drawFromFreq(rng *rand.Rand, freq []float64) int {
	r := rng.Float64()
	running := 0.0
	for i, f := range freq {
		running += f
		if r < running {
			return i
		}
	}
	return len(freq) - 1
}

func insertSlice(s []float64, pos int, vals []float64) []float64 {
	out := make([]float64, 0, len(s)+len(vals))
	out = append(out, s[:pos]...)
	out = append(out, vals...)
	out = append(out, s[pos:]...)
	return out
}
