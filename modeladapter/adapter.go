// Package modeladapter is a thin façade over the external substitution
// model catalog. It answers exactly the questions the simulation core
// needs — state frequencies, an instantaneous rate matrix per mixture
// class, and a branch-length transition-probability matrix — and reports
// the handful of model capability flags that change how a branch is
// simulated (mixture, heterotachy, DNA-error). Computing the catalog
// itself (closed-form rate matrices, eigendecomposition, frequency
// estimation, likelihood) is the concern of the packages it wraps, not of
// the simulator.
package modeladapter

import (
	"fmt"
	"math"

	"github.com/evolbioinfo/goalign/models"
	"github.com/evolbioinfo/goalign/models/dna"
	"github.com/evolbioinfo/goalign/models/protein"
	"gonum.org/v1/gonum/mat"
)

// Kind names one of the catalog entries this adapter knows how to build.
type Kind string

const (
	JC    Kind = "JC"
	K2P   Kind = "K2P"
	F81   Kind = "F81"
	GTR   Kind = "GTR"
	JTT   Kind = "JTT"
	WAG   Kind = "WAG"
	LG    Kind = "LG"
	HIVB  Kind = "HIVB"
	CODON Kind = "CODON"
	EQUAL Kind = "EQUAL" // equal-rates model, used for BIN and MORPH
)

// Adapter is the concrete ModelAdapter implementation. One Adapter
// represents a single mixture component list; a run with N mixture
// classes holds N of these, or one Adapter whose NMixtures() > 1 when the
// classes differ only by rate scale (the fused mixture/rate-heterogeneity
// case).
type Adapter struct {
	kind Kind
	s    int // number of states

	// one entry per mixture class
	q         [][]float64 // S*S row-major, per mixture (flattened)
	freqs     [][]float64 // per mixture
	weights   []float64
	goModel   []models.Model // non-nil entries use goalign for P(t); nil entries use Exp(Q*t)
	pijCache  []pijCacheEnt

	heterotachy   bool
	mixture       bool
	fused         bool
	dnaError      bool
	dnaErrProb    []float64 // per mixture, or single entry if not per-class
	ascertainment bool
}

type pijCacheEnt struct {
	t   float64
	pij *models.Pij
}

// NewDNA builds an Adapter over one of goalign's built-in DNA models, the
// same way snag.go's NewSnag constructs s.m for the "jc"/"k2p"/"f81"/"gtr"
// cases.
func NewDNA(kind Kind, params []float64) (*Adapter, error) {
	a := &Adapter{kind: kind, s: 4}
	freq := make([]float64, 4)
	var gm models.Model

	switch kind {
	case JC:
		for i := range freq {
			freq[i] = 0.25
		}
		m := dna.NewJCModel()
		m.InitModel()
		gm = m
	case K2P:
		if len(params) != 1 {
			return nil, fmt.Errorf("modeladapter: k2p needs 1 parameter (kappa), got %d", len(params))
		}
		for i := range freq {
			freq[i] = 0.25
		}
		m := dna.NewK2PModel()
		m.InitModel(params[0])
		gm = m
	case F81:
		if len(params) != 4 {
			return nil, fmt.Errorf("modeladapter: f81 needs 4 parameters (piA,piC,piG,piT), got %d", len(params))
		}
		copy(freq, params)
		m := dna.NewF81Model()
		m.InitModel(freq[0], freq[1], freq[2], freq[3])
		gm = m
	case GTR:
		if len(params) != 10 {
			return nil, fmt.Errorf("modeladapter: gtr needs 10 parameters, got %d", len(params))
		}
		copy(freq, params[6:10])
		m := dna.NewGTRModel()
		m.InitModel(params[0], params[1], params[2], params[3], params[4], params[5], freq[0], freq[1], freq[2], freq[3])
		gm = m
	default:
		return nil, fmt.Errorf("modeladapter: unsupported DNA model kind %q", kind)
	}

	q := buildQ(kind, freq, params)
	a.q = [][]float64{q}
	a.freqs = [][]float64{freq}
	a.weights = []float64{1}
	a.goModel = []models.Model{gm}
	a.pijCache = make([]pijCacheEnt, 1)
	return a, nil
}

// NewProtein builds an Adapter over one of goalign's built-in empirical
// amino-acid matrices, exactly as snag.go's NewSnag "jtt"/"wag"/"lg"/"hivb"
// branch does.
func NewProtein(kind Kind, gamma bool, alpha float64) (*Adapter, error) {
	var modelint int
	switch kind {
	case JTT:
		modelint = protein.MODEL_JTT
	case WAG:
		modelint = protein.MODEL_WAG
	case LG:
		modelint = protein.MODEL_LG
	case HIVB:
		modelint = protein.MODEL_HIVB
	default:
		return nil, fmt.Errorf("modeladapter: unsupported protein model kind %q", kind)
	}

	pm, err := protein.NewProtModel(modelint, gamma, alpha)
	if err != nil {
		return nil, err
	}
	freq := make([]float64, 20)
	for i := range freq {
		freq[i] = pm.Pi(i)
	}
	pm.InitModel(nil)

	a := &Adapter{kind: kind, s: 20}
	a.q = [][]float64{nil} // empirical Q is internal to goalign; only P(t) is exposed for protein
	a.freqs = [][]float64{freq}
	a.weights = []float64{1}
	a.goModel = []models.Model{pm}
	a.pijCache = make([]pijCacheEnt, 1)
	return a, nil
}

// NewCodon builds a Goldman-Yang-style codon Adapter with a single
// omega/kappa pair, parameterizing the 61x61 rate matrix the way
// mrrlab-godon's createTransitionMatrix does (dN/dS ratio omega scales
// nonsynonymous rates, kappa scales transitions).
func NewCodon(nstates int, codonIndex []int, freq []float64, kappa, omega float64) (*Adapter, error) {
	if len(freq) != nstates {
		return nil, fmt.Errorf("modeladapter: codon frequency vector has %d entries, want %d", len(freq), nstates)
	}
	q := buildCodonQ(nstates, codonIndex, freq, kappa, omega)
	a := &Adapter{kind: CODON, s: nstates}
	a.q = [][]float64{q}
	a.freqs = [][]float64{freq}
	a.weights = []float64{1}
	a.goModel = []models.Model{nil}
	a.pijCache = make([]pijCacheEnt, 1)
	return a, nil
}

// NewEqualRates builds an equal-rates model over s states with the given
// frequencies, used for BIN and MORPH alphabets.
func NewEqualRates(s int, freq []float64) (*Adapter, error) {
	if len(freq) != s {
		return nil, fmt.Errorf("modeladapter: frequency vector has %d entries, want %d", len(freq), s)
	}
	q := make([]float64, s*s)
	for i := 0; i < s; i++ {
		rowSum := 0.0
		for j := 0; j < s; j++ {
			if i == j {
				continue
			}
			q[i*s+j] = freq[j]
			rowSum += freq[j]
		}
		q[i*s+i] = -rowSum
	}
	a := &Adapter{kind: EQUAL, s: s}
	a.q = [][]float64{q}
	a.freqs = [][]float64{freq}
	a.weights = []float64{1}
	a.goModel = []models.Model{nil}
	a.pijCache = make([]pijCacheEnt, 1)
	return a, nil
}

// NumStates returns S.
func (a *Adapter) NumStates() int { return a.s }

// NMixtures returns the number of mixture classes this adapter carries.
func (a *Adapter) NMixtures() int { return len(a.q) }

// IsMixture reports whether this adapter represents a genuine
// substitution-level mixture (as opposed to a single component).
func (a *Adapter) IsMixture() bool { return a.mixture }

// IsFused reports whether the mixture weights coincide with a
// rate-heterogeneity partition (no separate RateProfile class index is
// needed).
func (a *Adapter) IsFused() bool { return a.fused }

// IsHeterotachy reports whether this model uses branch-specific multiple
// lengths (forcing TRANS_PROB per §4.2).
func (a *Adapter) IsHeterotachy() bool { return a.heterotachy }

// ContainsDNAError reports whether a DNA sequencing-error model should be
// applied to leaves after evolution.
func (a *Adapter) ContainsDNAError() bool { return a.dnaError }

// DNAErrProb returns the per-state error probability for mixture class
// mix (or the single configured value if the model isn't per-class).
func (a *Adapter) DNAErrProb(mix int) float64 {
	if len(a.dnaErrProb) == 0 {
		return 0
	}
	if mix < len(a.dnaErrProb) {
		return a.dnaErrProb[mix]
	}
	return a.dnaErrProb[0]
}

// SetDNAError configures the error model; DNAErrProb(mix) reads
// prob[mix], falling back to prob[0] for classes past the end of prob.
func (a *Adapter) SetDNAError(enabled bool, prob []float64) {
	a.dnaError = enabled
	a.dnaErrProb = prob
}

// Freqs returns the stationary frequency vector for mixture mix.
func (a *Adapter) Freqs(mix int) []float64 { return a.freqs[mix] }

// SetStateFrequency overrides the stationary frequency vector used by
// genome-position generation (root sequence draws, new insertion sites)
// for mixture mix. It does not recompute Q; callers needing a consistent
// model must rebuild the Adapter instead.
func (a *Adapter) SetStateFrequency(mix int, freq []float64) {
	a.freqs[mix] = freq
}

// MixtureClass returns which mixture class applies to a flat index i,
// for models where the mixture weights double as rate categories
// (fused mixtures). Non-fused models return 0.
func (a *Adapter) MixtureClass(i int) int {
	if !a.fused || len(a.weights) == 0 {
		return 0
	}
	return i % len(a.weights)
}

// AscertainmentEnabled reports whether ascertainment-bias correction
// (+ASC) is currently toggled on for this model.
func (a *Adapter) AscertainmentEnabled() bool { return a.ascertainment }

// SetAscertainment toggles ascertainment-bias correction. LengthRatioEstimator
// uses this to temporarily disable +ASC while probing the all-constant
// pattern likelihood (§4.1), then restores it.
func (a *Adapter) SetAscertainment(enabled bool) { a.ascertainment = enabled }

// QMatrix returns the instantaneous rate matrix for mixture class mix, as
// an S*S row-major slice (row i, column j at index i*S+j).
func (a *Adapter) QMatrix(mix int) ([]float64, error) {
	if mix < 0 || mix >= len(a.q) {
		return nil, fmt.Errorf("modeladapter: mixture index %d out of range [0,%d)", mix, len(a.q))
	}
	if a.q[mix] == nil {
		return nil, fmt.Errorf("modeladapter: mixture %d has no explicit Q matrix (empirical protein model; use PMatrix)", mix)
	}
	return a.q[mix], nil
}

// PMatrix returns the branch-length transition probability matrix P(t)
// for mixture class mix, as an S*S row-major slice.
func (a *Adapter) PMatrix(mix int, t float64) ([]float64, error) {
	if mix < 0 || mix >= len(a.goModel) {
		return nil, fmt.Errorf("modeladapter: mixture index %d out of range [0,%d)", mix, len(a.goModel))
	}
	if gm := a.goModel[mix]; gm != nil {
		return a.pMatrixGoalign(mix, gm, t)
	}
	return a.pMatrixExp(mix, t)
}

// pMatrixGoalign mirrors snag.go's per-branch models.NewPij/SetLength use:
// build the Pij lazily, reuse it across calls at the same length (the
// teacher's optimization when iterating sites at one branch length), and
// rebuild with SetLength otherwise.
func (a *Adapter) pMatrixGoalign(mix int, gm models.Model, t float64) ([]float64, error) {
	ent := a.pijCache[mix]
	var err error
	if ent.pij == nil {
		ent.pij, err = models.NewPij(gm, t)
		if err != nil {
			return nil, err
		}
	} else if ent.t != t {
		ent.pij.SetLength(t)
	}
	ent.t = t
	a.pijCache[mix] = ent

	s := a.s
	p := make([]float64, s*s)
	for i := 0; i < s; i++ {
		for j := 0; j < s; j++ {
			p[i*s+j] = ent.pij.Pij(i, j)
		}
	}
	return p, nil
}

// pMatrixExp computes P(t) = exp(Q*t) for models whose Q we hold
// explicitly (codon, equal-rates) via gonum's general matrix exponential,
// the numerically heavy step goalign's catalog would otherwise supply.
func (a *Adapter) pMatrixExp(mix int, t float64) ([]float64, error) {
	s := a.s
	qt := mat.NewDense(s, s, nil)
	q := a.q[mix]
	for i := 0; i < s; i++ {
		for j := 0; j < s; j++ {
			qt.Set(i, j, q[i*s+j]*t)
		}
	}
	var p mat.Dense
	p.Exp(qt)

	out := make([]float64, s*s)
	for i := 0; i < s; i++ {
		rowSum := 0.0
		for j := 0; j < s; j++ {
			v := p.At(i, j)
			if v < 0 {
				v = 0
			}
			out[i*s+j] = v
			rowSum += v
		}
		if rowSum > 0 {
			for j := 0; j < s; j++ {
				out[i*s+j] /= rowSum
			}
		}
	}
	return out, nil
}

// buildQ constructs the closed-form instantaneous rate matrix for the
// DNA catalog models, the part of the catalog the external model package
// doesn't expose directly (goalign only exposes P(t) via models.Pij).
// These are the textbook Jukes-Cantor/Kimura/Felsenstein/general-time-
// reversible rate matrices; no approximation is involved.
func buildQ(kind Kind, freq, params []float64) []float64 {
	s := 4
	q := make([]float64, s*s)
	setOffDiag := func(i, j int, rate float64) {
		q[i*s+j] = rate * freq[j]
	}

	switch kind {
	case JC:
		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				if i != j {
					setOffDiag(i, j, 1)
				}
			}
		}
	case K2P:
		kappa := params[0]
		// order A=0,C=1,G=2,T=3 to match goalign's dna index convention
		transitions := map[[2]int]bool{{0, 2}: true, {2, 0}: true, {1, 3}: true, {3, 1}: true}
		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				if i == j {
					continue
				}
				rate := 1.0
				if transitions[[2]int{i, j}] {
					rate = kappa
				}
				setOffDiag(i, j, rate)
			}
		}
	case F81:
		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				if i != j {
					setOffDiag(i, j, 1)
				}
			}
		}
	case GTR:
		// params[0..5] = a,b,c,d,e,f exchangeabilities in goalign's GTR
		// parameter order (AC,AG,AT,CG,CT,GT); symmetric exchangeability
		// matrix scaled by the target-state frequency.
		ex := [4][4]float64{}
		ex[0][1], ex[1][0] = params[0], params[0]
		ex[0][2], ex[2][0] = params[1], params[1]
		ex[0][3], ex[3][0] = params[2], params[2]
		ex[1][2], ex[2][1] = params[3], params[3]
		ex[1][3], ex[3][1] = params[4], params[4]
		ex[2][3], ex[3][2] = params[5], params[5]
		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				if i != j {
					setOffDiag(i, j, ex[i][j])
				}
			}
		}
	}

	for i := 0; i < s; i++ {
		rowSum := 0.0
		for j := 0; j < s; j++ {
			if i != j {
				rowSum += q[i*s+j]
			}
		}
		q[i*s+i] = -rowSum
	}
	normalizeQ(q, s, freq)
	return q
}

// buildCodonQ follows the Goldman-Yang parameterization used throughout
// the pack's codon-model code (mrrlab-godon's createTransitionMatrix):
// transitions within a codon position scaled by kappa, nonsynonymous
// substitutions scaled by omega, substitutions touching more than one
// codon position forbidden (rate 0).
func buildCodonQ(s int, codonIndex []int, freq []float64, kappa, omega float64) []float64 {
	q := make([]float64, s*s)
	pos := func(codon, p int) int { return (codon >> uint(2*(2-p))) & 3 }
	isTransition := func(a, b int) bool {
		return (a == 0 && b == 1) || (a == 1 && b == 0) || (a == 2 && b == 3) || (a == 3 && b == 2)
	}
	for i := 0; i < s; i++ {
		ci := codonIndex[i]
		for j := 0; j < s; j++ {
			if i == j {
				continue
			}
			cj := codonIndex[j]
			diffPos, diffNt := -1, -1
			ndiff := 0
			for p := 0; p < 3; p++ {
				if pos(ci, p) != pos(cj, p) {
					ndiff++
					diffPos, diffNt = p, pos(cj, p)
				}
			}
			if ndiff != 1 {
				continue // only single-nucleotide substitutions have nonzero instantaneous rate
			}
			rate := freq[j]
			if isTransition(pos(ci, diffPos), diffNt) {
				rate *= kappa
			}
			if !sameAminoAcid(ci, cj) {
				rate *= omega
			}
			q[i*s+j] = rate
		}
	}
	for i := 0; i < s; i++ {
		rowSum := 0.0
		for j := 0; j < s; j++ {
			if i != j {
				rowSum += q[i*s+j]
			}
		}
		q[i*s+i] = -rowSum
	}
	normalizeQ(q, s, freq)
	return q
}

func sameAminoAcid(codonA, codonB int) bool {
	return aminoAcidOf(codonA) == aminoAcidOf(codonB)
}

// aminoAcidOf looks up the standard genetic code translation for a codon
// index in the same T,C,A,G base-4 encoding used by buildCodonQ.
func aminoAcidOf(codon int) byte {
	const code = "FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"
	return code[codon]
}

// normalizeQ rescales q in place so that the expected substitution rate
// per unit time under the stationary distribution is 1, the convention
// branch lengths are measured in (used consistently with goalign's
// built-in models so branch scale means the same thing for both P(t)
// paths).
func normalizeQ(q []float64, s int, freq []float64) {
	rate := 0.0
	for i := 0; i < s; i++ {
		rate -= freq[i] * q[i*s+i]
	}
	if rate <= 0 || math.IsNaN(rate) {
		return
	}
	for i := range q {
		q[i] /= rate
	}
}
