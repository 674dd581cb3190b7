// Package indel maintains the singly-linked list of Insertion records,
// samples insertion/deletion sizes, applies them to a branch's sequence,
// and periodically rebuilds the genome tree used to reconcile those
// events across the phylogeny.
package indel

import (
	"fmt"
	"math/rand"

	"github.com/evolbioinfo/alisim/genometree"
)

// Insertion is re-exported from genometree: it is the record the genome
// tree walks, and indel is the only package that ever appends to it, so
// there is no benefit to a separate type.
type Insertion = genometree.Insertion

// Controller owns the global, append-only insertion list for one
// simulation run (§5 "Shared state": the insertion list is one of the
// three process-wide structures) plus the configured rate parameters and
// length distributions.
type Controller struct {
	head *Insertion // zero-length sentinel
	tail *Insertion

	alphaI, alphaD float64
	insDist        *LengthDist
	delDist        *LengthDist
	meanDel        float64

	// RebuildEvery is kappa * |leaves|: the tip-count interval at which
	// streaming reconciliation rebuilds the genome tree from scratch
	// instead of updating it incrementally (§4.5).
	RebuildEvery int

	enabled bool
}

// New builds a Controller. L is the starting sequence length, used only
// to estimate the mean deletion size once up front. If delDist is nil
// (deletion_ratio == 0) the mean is left at 0.
func New(rng *rand.Rand, alphaI, alphaD float64, insDist, delDist *LengthDist, startLength, kappa, leafNum int) (*Controller, error) {
	c := &Controller{
		head:    &Insertion{},
		alphaI:  alphaI,
		alphaD:  alphaD,
		insDist: insDist,
		delDist: delDist,
	}
	c.tail = c.head
	c.enabled = alphaI > 0 || alphaD > 0
	c.RebuildEvery = kappa * leafNum
	if c.RebuildEvery <= 0 {
		c.RebuildEvery = leafNum
	}

	if delDist != nil {
		mean, err := delDist.EstimateMean(rng, startLength)
		if err != nil {
			return nil, fmt.Errorf("indel: estimating mean deletion size: %w", err)
		}
		c.meanDel = mean
	}
	return c, nil
}

// Enabled reports whether either insertion or deletion has a nonzero
// configured rate.
func (c *Controller) Enabled() bool { return c.enabled }

// Head returns the sentinel head of the insertion list.
func (c *Controller) Head() *Insertion { return c.head }

// Tail returns the current tail of the insertion list.
func (c *Controller) Tail() *Insertion { return c.tail }

// Rates returns R_ins and R_del for a branch whose current sequence has
// length L and G gap (UNKNOWN) sites, per §4.3.
func (c *Controller) Rates(length, gaps int) (rIns, rDel float64) {
	rIns = c.alphaI * float64(length+1-gaps)
	rDel = c.alphaD * (float64(length-1-gaps) + c.meanDel)
	if rIns < 0 {
		rIns = 0
	}
	if rDel < 0 {
		rDel = 0
	}
	return
}

// SampleInsertionLength draws a positive insertion length.
func (c *Controller) SampleInsertionLength(rng *rand.Rand) (int, error) {
	if c.insDist == nil {
		return 0, fmt.Errorf("indel: no insertion distribution configured")
	}
	return c.insDist.Draw(rng)
}

// SampleDeletionLength draws a positive deletion length.
func (c *Controller) SampleDeletionLength(rng *rand.Rand) (int, error) {
	if c.delDist == nil {
		return 0, fmt.Errorf("indel: no deletion distribution configured")
	}
	return c.delDist.Draw(rng)
}

// SelectPosition implements the gap-aware position selection rule of
// §4.4: sample uniformly in [0, bound); if the landing site is a gap,
// scan forward to the next non-gap, retrying the whole draw up to
// `bound` times before giving up.
func SelectPosition(rng *rand.Rand, bound int, isGap func(int) bool) (int, error) {
	if bound <= 0 {
		return 0, nil
	}
	for attempt := 0; attempt < bound; attempt++ {
		pos := rng.Intn(bound)
		for pos < bound && isGap(pos) {
			pos++
		}
		if pos < bound {
			return pos, nil
		}
	}
	return 0, fmt.Errorf("indel: could not find a non-gap position in [0,%d) after %d attempts; deletion rate may be too high", bound, bound)
}

// ApplyInsertion splices newStates into seq at pos (inserting before the
// existing element at pos; pos == len(seq) appends at the tail) and
// returns the new sequence. It does not record the event on the
// insertion list; call Record for that.
func ApplyInsertion(seq []int, pos int, newStates []int) []int {
	out := make([]int, 0, len(seq)+len(newStates))
	out = append(out, seq[:pos]...)
	out = append(out, newStates...)
	out = append(out, seq[pos:]...)
	return out
}

// ApplyDeletion walks forward from start, replacing non-gap sites with
// UNKNOWN until k non-gap sites have been replaced or the sequence ends,
// and returns the number of sites actually newly gapped (which is <= k
// when the sequence ends first, per §4.4's "or the sequence end is
// reached").
func ApplyDeletion(seq []int, start, k, unknownState int) (gapped int, err error) {
	if start < 0 || start > len(seq) {
		return 0, fmt.Errorf("indel: deletion start %d out of range [0,%d]", start, len(seq))
	}
	for i := start; i < len(seq) && gapped < k; i++ {
		if seq[i] == unknownState {
			continue
		}
		seq[i] = unknownState
		gapped++
	}
	return gapped, nil
}

// Record appends a new Insertion event to the list and returns it,
// becoming the new tail. lengthAtEventTime (the length after the
// insertion) is used to assert the §8 invariant
// Position+Length <= sequence_length_at_that_event_time and to set
// Appended.
func (c *Controller) Record(position, length int, lengthAtEventTime int) (*Insertion, error) {
	if position+length > lengthAtEventTime {
		return nil, fmt.Errorf("indel: insertion invariant violated: position %d + length %d > sequence length %d", position, length, lengthAtEventTime)
	}
	ins := &Insertion{
		Position: position,
		Length:   length,
		Appended: position == lengthAtEventTime-length,
	}
	c.tail.Next = ins
	c.tail = ins
	return ins, nil
}

// FreezeNode attaches nodeID to the current tail's PhyloNodes, marking
// that the node stopped evolving at this point in the genome timeline
// (§4.6 step 5: leaves, when indels are enabled, attach to the current
// tail as they finish).
func (c *Controller) FreezeNode(nodeID int) {
	c.tail.PhyloNodes = append(c.tail.PhyloNodes, nodeID)
}
