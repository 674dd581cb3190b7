// Package simulator wires every other package into one run: parse
// configuration into a model adapter and indel controller, read the tree
// and optional ancestral sequence, estimate the ascertainment length
// ratio, walk the tree, and flush the result. Its exported Ctx/New/RunOnTree
// split mirrors snag.go's NewSnag/Simulate split, generalized to the full
// configuration surface §6 describes.
package simulator

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	gotree "github.com/evolbioinfo/gotree/tree"

	"github.com/evolbioinfo/alisim/alphabet"
	"github.com/evolbioinfo/alisim/branch"
	"github.com/evolbioinfo/alisim/config"
	"github.com/evolbioinfo/alisim/constantfilter"
	"github.com/evolbioinfo/alisim/fundi"
	"github.com/evolbioinfo/alisim/indel"
	"github.com/evolbioinfo/alisim/lengthratio"
	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/output"
	"github.com/evolbioinfo/alisim/phylotree"
	"github.com/evolbioinfo/alisim/rateprofile"
	"github.com/evolbioinfo/alisim/treewalker"
)

// Ctx holds the components that are shared across every tree/dataset a
// run simulates: the alphabet, model adapter, ancestral sequence and the
// shared RNG stream (§5's "exactly three process-wide structures" — the
// insertion list is per-tree, rebuilt by RunOnTree, but the RNG and the
// ModelAdapter live here for the whole run).
type Ctx struct {
	cfg     *config.Config
	alph    *alphabet.Ctx
	adapter *modeladapter.Adapter
	ascert  bool

	ancestral []int // nil if none supplied
	baseLen   int   // the length actually written out, after any ascertainment filtering

	rng *rand.Rand
}

// New builds a Ctx from cfg.
func New(cfg *config.Config) (*Ctx, error) {
	alph, err := alphabet.New(cfg.AlphabetKind, cfg.MorphStates)
	if err != nil {
		return nil, err
	}

	adapter, ascert, err := buildAdapter(cfg, alph)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	var ancestral []int
	baseLen := cfg.SequenceLength
	if cfg.AncestralSequencePath != "" {
		ancestral, err = readAncestral(cfg.AncestralSequencePath, alph)
		if err != nil {
			return nil, err
		}
		if baseLen <= 0 {
			baseLen = len(ancestral)
		}
	}
	if baseLen <= 0 {
		return nil, fmt.Errorf("simulator: no sequence_length and no ancestral sequence to infer it from")
	}

	return &Ctx{
		cfg:       cfg,
		alph:      alph,
		adapter:   adapter,
		ascert:    ascert,
		ancestral: ancestral,
		baseLen:   baseLen,
		rng:       rng,
	}, nil
}

// buildProfile builds the among-site rate profile per cfg.RateHetSpec,
// the §6 option that chooses between goalign's own discrete-gamma
// generator (the plain case, matching snag.go) and the gonum-backed
// continuous/free-rate path rateprofile.DiscreteGamma offers.
func buildProfile(cfg *config.Config, rng *rand.Rand, length int) (*rateprofile.Profile, error) {
	switch {
	case cfg.RateHetSpec == "" || cfg.RateHetSpec == "none":
		return rateprofile.Empty(), nil
	case cfg.RateHetSpec == "gamma":
		return rateprofile.DiscreteGammaFromGoalign(length, true, false, cfg.GammaAlpha, cfg.GammaCategories), nil
	case cfg.RateHetSpec == "gamma-discrete":
		return rateprofile.DiscreteGammaFromGoalign(length, true, true, cfg.GammaAlpha, cfg.GammaCategories), nil
	case strings.HasPrefix(cfg.RateHetSpec, "free:"):
		ncat, err := strconv.Atoi(strings.TrimPrefix(cfg.RateHetSpec, "free:"))
		if err != nil || ncat < 1 {
			return nil, fmt.Errorf("simulator: invalid rate_heterogeneity_spec %q", cfg.RateHetSpec)
		}
		return rateprofile.DiscreteGamma(rng, length, cfg.GammaAlpha, ncat)
	default:
		return nil, fmt.Errorf("simulator: unknown rate_heterogeneity_spec %q", cfg.RateHetSpec)
	}
}

// readAncestral parses an ancestral-sequence FASTA file generically
// across every supported alphabet via alphabet.Ctx.Decode, since
// goalign's own Nt2Index/AA2Index helpers only cover DNA and AA.
func readAncestral(path string, alph *alphabet.Ctx) ([]int, error) {
	raw, err := readFastaFirstRecord(path)
	if err != nil {
		return nil, fmt.Errorf("simulator: reading ancestral sequence: %w", err)
	}
	nsites := len(raw) / alph.CharsPerState()
	if nsites*alph.CharsPerState() != len(raw) {
		return nil, fmt.Errorf("simulator: ancestral sequence length %d is not a multiple of %d characters per state", len(raw), alph.CharsPerState())
	}
	seq := make([]int, nsites)
	for i := range seq {
		st, err := alph.Decode(raw, i*alph.CharsPerState(), '-')
		if err != nil {
			return nil, fmt.Errorf("simulator: decoding ancestral site %d: %w", i, err)
		}
		seq[i] = st
	}
	return seq, nil
}

// buildIndelController builds the Controller for cfg, or a disabled one
// when both rates are zero (RunOnTree still constructs one:
// treewalker.Walker always holds a non-nil Ctrl, per EventLoop's
// signature).
func buildIndelController(cfg *config.Config, rng *rand.Rand, startLength, leafNum int) (*indel.Controller, error) {
	var insDist, delDist *indel.LengthDist
	var err error
	if cfg.InsertionRatio > 0 {
		insDist, err = indel.NewLengthDist(cfg.InsertionDistKind, cfg.InsertionParam1, cfg.InsertionParam2, nil)
		if err != nil {
			return nil, err
		}
	}
	if cfg.DeletionRatio > 0 {
		delDist, err = indel.NewLengthDist(cfg.DeletionDistKind, cfg.DeletionParam1, cfg.DeletionParam2, nil)
		if err != nil {
			return nil, err
		}
	}
	return indel.New(rng, cfg.InsertionRatio, cfg.DeletionRatio, insDist, delDist, startLength, cfg.RebuildIndelHistoryParam, leafNum)
}

// RunOnTree evolves one dataset over gt and returns the populated Sink
// ready for output.Sink.Flush. Each call draws from c's shared RNG
// stream, matching snag.go's single-rand.Rand-per-process convention
// across -num-aligns replicates. Ascertainment's length ratio (§4.1) is
// estimated per tree, since the likelihood it probes depends on this
// tree's own branch lengths.
func (c *Ctx) RunOnTree(gt *gotree.Tree) (*output.Sink, error) {
	tr, err := phylotree.FromGotree(gt)
	if err != nil {
		return nil, err
	}

	targetLen := c.baseLen
	if c.ascert {
		like := newFelsensteinLikelihood(tr, c.adapter)
		rho, err := lengthratio.Estimate(c.adapter, like, tr.LeafNum, c.cfg.LengthRatio)
		if err != nil {
			return nil, err
		}
		targetLen = lengthratio.TargetLength(c.baseLen, rho)
	}

	profile, err := buildProfile(c.cfg, c.rng, targetLen)
	if err != nil {
		return nil, err
	}

	var scheme *fundi.Scheme
	if c.cfg.FunDiProportion > 0 {
		scheme, err = fundi.New(c.rng, c.cfg.FunDiProportion, targetLen, c.cfg.FunDiTaxonSet)
		if err != nil {
			return nil, err
		}
	}

	ctrl, err := buildIndelController(c.cfg, c.rng, targetLen, tr.LeafNum)
	if err != nil {
		return nil, err
	}

	sink := output.NewSink(c.cfg.OutputFormat, c.alph)
	w := &treewalker.Walker{
		Tree:                   tr,
		Sampler:                branch.New(c.adapter),
		Adapter:                c.adapter,
		Profile:                profile,
		Ctrl:                   ctrl,
		Sink:                   sink,
		RNG:                    c.rng,
		Scale:                  c.cfg.BranchScale,
		ContinuousGamma:        c.cfg.RateHetSpec == "gamma",
		UserThreshold:          c.cfg.SimulationThresh,
		Heterotachy:            c.adapter.IsHeterotachy(),
		MixtureSampling:        c.adapter.IsMixture(),
		WriteInternalSequences: c.cfg.WriteInternalSeqs,
		FunDi:                  scheme,
	}

	if err := tr.Graft(); err != nil {
		return nil, err
	}
	w.AssignRootSequence(c.ancestral, targetLen)

	if err := w.Walk(); err != nil {
		return nil, err
	}
	if err := w.ApplyDeferred(); err != nil {
		return nil, err
	}

	if c.ascert {
		compact, err := constantfilter.Filter(sink.Leaves(), c.baseLen, ctrl.Enabled())
		if err != nil {
			return nil, err
		}
		sink.SetLeaves(compact)
	}

	return sink, nil
}
