// Package rateprofile builds the per-site rate multipliers and mixture
// class indices consumed by concurrent per-branch sampling. A Profile is
// produced once, before simulation starts, and is read-only afterward.
package rateprofile

import (
	"fmt"
	"math/rand"

	"github.com/evolbioinfo/goalign/models"
	"gonum.org/v1/gonum/stat/distuv"
)

// expRandSource adapts a *math/rand.Rand to the golang.org/x/exp/rand.Source
// interface gonum's distuv package expects (Uint64/Seed(uint64)), so the
// same RNG driving the rest of the simulation can seed distuv draws too.
type expRandSource struct{ rng *rand.Rand }

func (s expRandSource) Uint64() uint64   { return s.rng.Uint64() }
func (s expRandSource) Seed(seed uint64) { s.rng.Seed(int64(seed)) }

// Profile holds per-site rate multipliers r[i] and per-site mixture-class
// indices m[i]. Both are empty when no rate heterogeneity is configured;
// BranchSampler treats that as "every site has rate 1, class 0".
type Profile struct {
	Rates   []float64
	Classes []int
}

// Empty returns a Profile with no heterogeneity: every BranchSampler call
// treats every site as rate 1, class 0.
func Empty() *Profile { return &Profile{} }

// NumSites returns the number of sites this profile was built for, or 0
// for an empty profile.
func (p *Profile) NumSites() int { return len(p.Rates) }

// RateAt returns the rate multiplier for site i, or 1 if the profile
// carries no rates or i falls past the end of it. A profile is built
// once, up front, at the pre-insertion target length; sites an indel
// event appends afterward (§4.4's "newly inserted sites have no entry in
// the global rate profile") have no rate assigned, so they fall back to
// the unscaled base rate rather than indexing out of range.
func (p *Profile) RateAt(i int) float64 {
	if i < 0 || i >= len(p.Rates) {
		return 1
	}
	return p.Rates[i]
}

// ClassAt returns the mixture class for site i, or 0 if the profile
// carries no classes or i falls past the end of it (see RateAt).
func (p *Profile) ClassAt(i int) int {
	if i < 0 || i >= len(p.Classes) {
		return 0
	}
	return p.Classes[i]
}

// DiscreteGammaFromGoalign builds a Profile using goalign's own
// GenerateRates helper, exactly the call snag.go's Simulate makes before
// its PreOrder traversal. This is the default path for plain DNA/AA
// simulations without a user rate file.
func DiscreteGammaFromGoalign(numSites int, useGamma, discrete bool, alpha float64, ncat int) *Profile {
	rates, cats := models.GenerateRates(numSites, useGamma, alpha, ncat, discrete)
	return &Profile{Rates: rates, Classes: cats}
}

// DiscreteGamma builds a Profile by discretizing a Gamma(alpha, alpha)
// distribution into ncat equal-probability categories (mean 1), using
// gonum's distuv.Gamma the way js-arias-phygeo/cats.Gamma.Cats does, then
// assigning each site to a uniformly drawn category. The simulator uses
// this path for the "free:<ncat>" rate-heterogeneity option; it draws
// from an explicit RNG source shared with the rest of the simulation.
func DiscreteGamma(rng *rand.Rand, numSites int, alpha float64, ncat int) (*Profile, error) {
	if ncat < 1 {
		return nil, fmt.Errorf("rateprofile: ncat must be >= 1, got %d", ncat)
	}
	gamma := distuv.Gamma{Alpha: alpha, Beta: alpha, Src: expRandSource{rng}}
	cats := make([]float64, ncat)
	for i := range cats {
		p := (float64(i) + 0.5) / float64(ncat)
		cats[i] = gamma.Quantile(p)
	}
	rates := make([]float64, numSites)
	classes := make([]int, numSites)
	for i := 0; i < numSites; i++ {
		c := rng.Intn(ncat)
		rates[i] = cats[c]
		classes[i] = c
	}
	return &Profile{Rates: rates, Classes: classes}, nil
}

// FromUserRates wraps an explicitly supplied per-site rate vector (the
// -rates file path in snag.go terms). classes is left empty: user rate
// files carry no mixture-class information.
func FromUserRates(rates []float64) *Profile {
	return &Profile{Rates: rates}
}

// Grow appends rates/classes for n freshly inserted sites, drawing each
// uniformly from catValues (class = index into catValues). When both the
// profile and catValues are empty this is a no-op, matching "empty
// profile means every site has rate 1" semantics; a non-empty profile
// with no catValues grows by rate 1, class 0 per site.
func (p *Profile) Grow(rng *rand.Rand, n int, catValues []float64) {
	if len(p.Rates) == 0 && len(catValues) == 0 {
		return
	}
	for i := 0; i < n; i++ {
		if len(catValues) == 0 {
			p.Rates = append(p.Rates, 1)
			p.Classes = append(p.Classes, 0)
			continue
		}
		c := rng.Intn(len(catValues))
		p.Rates = append(p.Rates, catValues[c])
		p.Classes = append(p.Classes, c)
	}
}
