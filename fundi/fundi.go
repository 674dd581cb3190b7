// Package fundi implements the functional-divergence (FunDi) per-taxon
// site-permutation operator: a random pairing of sites applied, at
// construction time, to a chosen subset of taxa.
package fundi

import (
	"fmt"
	"math/rand"
)

// Pairing is one {selected_site, new_position} swap target from §3's
// FunDiItem.
type Pairing struct {
	SelectedSite int
	NewPosition  int
}

// Scheme is the set of site pairings and the taxa they apply to, built
// once before traversal starts.
type Scheme struct {
	Pairings []Pairing
	Taxa     map[string]bool
}

// New builds a FunDi scheme: ceil(f*L) distinct sites are chosen
// uniformly, then paired with a derangement-like permutation (no site
// maps to itself) over that subset, per §4.6.
func New(rng *rand.Rand, f float64, numSites int, taxa []string) (*Scheme, error) {
	if f <= 0 || f > 1 {
		return nil, fmt.Errorf("fundi: proportion must be in (0,1], got %v", f)
	}
	n := int(f*float64(numSites) + 0.999999) // ceil
	if n < 1 {
		n = 1
	}
	if n > numSites {
		n = numSites
	}

	sites := rng.Perm(numSites)[:n]
	targets := make([]int, n)
	copy(targets, sites)
	derangement(rng, targets, sites)

	pairings := make([]Pairing, n)
	for i := range sites {
		pairings[i] = Pairing{SelectedSite: sites[i], NewPosition: targets[i]}
	}

	taxaSet := make(map[string]bool, len(taxa))
	for _, name := range taxa {
		taxaSet[name] = true
	}
	return &Scheme{Pairings: pairings, Taxa: taxaSet}, nil
}

// derangement shuffles targets (a copy of sites) until no element maps
// to its own original position, i.e. targets[i] != sites[i] for all i.
// For n==1 a genuine derangement is impossible; that single site is left
// mapped to itself (a same-site "swap" is a no-op, which is the only
// sensible behavior for a singleton selection).
func derangement(rng *rand.Rand, targets, sites []int) {
	if len(targets) <= 1 {
		return
	}
	for attempt := 0; attempt < 1000; attempt++ {
		rng.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })
		ok := true
		for i := range targets {
			if targets[i] == sites[i] {
				ok = false
				break
			}
		}
		if ok {
			return
		}
	}
}

// Applies reports whether taxon is in the FunDi taxon set.
func (s *Scheme) Applies(taxon string) bool {
	if s == nil {
		return false
	}
	return s.Taxa[taxon]
}

// Permute applies the scheme's pairings to seq in place: for each
// pairing, the value at SelectedSite is copied out first (so overlapping
// pairings don't clobber each other's source), then all copies are
// written to their NewPosition.
func (s *Scheme) Permute(seq []int) {
	if s == nil {
		return
	}
	saved := make([]int, len(s.Pairings))
	for i, p := range s.Pairings {
		saved[i] = seq[p.SelectedSite]
	}
	for i, p := range s.Pairings {
		seq[p.NewPosition] = saved[i]
	}
}
