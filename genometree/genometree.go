// Package genometree implements the coordinate-translation structure
// that reconciles original sequence positions with the extended sequence
// produced by insertions elsewhere in the phylogeny. Leaves (or internal
// nodes) that stopped evolving before an insertion need gap columns at
// the positions that insertion added; GenomeTree computes exactly where.
package genometree

import "fmt"

// Insertion is one recorded insertion event. It lives in this package
// (rather than in package indel, which owns the linked list and appends
// to it) so that the genome tree can walk and splice the list without
// indel depending back on genometree — indel imports this type and
// populates PhyloNodes/GenomeNodes as it attaches frozen nodes to the
// list; genometree itself only ever reads Position/Length/Next.
type Insertion struct {
	// Position is expressed in coordinates current at event time.
	Position int
	// Length is the number of sites inserted; always >= 1.
	Length int
	// Appended is true iff the insertion occurred at the sequence tail.
	Appended bool
	// Next chains to the following insertion event, in event order. The
	// list's head is a zero-length sentinel with Next pointing at the
	// first real event.
	Next *Insertion

	// PhyloNodes lists the ids of leaves (or, in internal-output mode,
	// any node) that stopped evolving between this event and the next.
	PhyloNodes []int
	// GenomeNodes mirrors PhyloNodes with the per-node genome tree
	// built at freeze time, so streaming reconciliation can export and
	// then drop both together.
	GenomeNodes []*Tree
}

// Segment is one run of the genome tree's partition of [0, current
// length): either a mapping from an original-coordinate span to a
// current-coordinate span, or a gap span with no original counterpart.
type Segment struct {
	NewLo, NewHi   int
	OrigLo, OrigHi int // OrigHi == OrigLo for a gap segment
	IsGap          bool
}

// Tree is an ordered collection of Segments partitioning [0, current
// length). It is rebuilt destructively (Build) or extended incrementally
// (Update); segments hold only coordinates and keep no reference to the
// Insertion records they were built from.
type Tree struct {
	segments []Segment
	length   int
}

// Build constructs a genome tree from scratch by replaying the insertion
// list starting at first (inclusive, typically the list's sentinel head)
// over a sequence that was baseLength long immediately before first took
// effect, all the way to the end of the list. This is the "rebuild from
// scratch" path of §4.5's reconciliation policy; BuildUpTo is the
// bounded variant, which stops before a given event rather than replaying
// everything (indel.Reconciler uses it for its periodic rebuilds).
func Build(first *Insertion, baseLength int) *Tree {
	return BuildUpTo(first, baseLength, nil)
}

// BuildUpTo replays the insertion list starting at first, stopping once
// until is reached (until is not itself applied). A nil until replays
// the whole remaining list, matching Build.
func BuildUpTo(first *Insertion, baseLength int, until *Insertion) *Tree {
	t := &Tree{segments: []Segment{{NewLo: 0, NewHi: baseLength, OrigLo: 0, OrigHi: baseLength}}, length: baseLength}
	for ins := first; ins != nil && ins != until; ins = ins.Next {
		t.apply(ins)
	}
	return t
}

// Update incrementally extends t to include one more event, cur, which
// must be prev's successor in the insertion list (prev is accepted only
// to make that precondition explicit at call sites; it is not otherwise
// used).
func (t *Tree) Update(prev, cur *Insertion) error {
	if prev != nil && prev.Next != cur {
		return fmt.Errorf("genometree: Update called with non-consecutive insertions")
	}
	t.apply(cur)
	return nil
}

// apply splices cur's insertion into the segment list: every segment
// whose current-coordinate span starts at or after cur.Position is
// shifted right by cur.Length, and a new gap segment of that length is
// inserted at cur.Position.
func (t *Tree) apply(cur *Insertion) {
	if cur.Length <= 0 {
		return // the sentinel head has zero length and is a no-op
	}
	pos := cur.Position
	out := make([]Segment, 0, len(t.segments)+1)
	inserted := false
	for _, s := range t.segments {
		switch {
		case s.NewHi <= pos:
			out = append(out, s)
		case s.NewLo >= pos:
			if !inserted {
				out = append(out, Segment{NewLo: pos, NewHi: pos + cur.Length, IsGap: true})
				inserted = true
			}
			out = append(out, shift(s, cur.Length))
		default:
			// pos falls strictly inside this segment: split it.
			left := s
			left.NewHi = pos
			if !s.IsGap {
				left.OrigHi = s.OrigLo + (pos - s.NewLo)
			}
			right := s
			right.NewLo = pos
			if !s.IsGap {
				right.OrigLo = s.OrigLo + (pos - s.NewLo)
			}
			right = shift(right, cur.Length)
			out = append(out, left, Segment{NewLo: pos, NewHi: pos + cur.Length, IsGap: true}, right)
			inserted = true
		}
	}
	if !inserted {
		out = append(out, Segment{NewLo: pos, NewHi: pos + cur.Length, IsGap: true})
	}
	t.segments = out
	t.length += cur.Length
}

func shift(s Segment, by int) Segment {
	s.NewLo += by
	s.NewHi += by
	return s
}

// Length returns the current total length spanned by the genome tree.
func (t *Tree) Length() int { return t.length }

// Export walks the segments in order, copying original-coordinate spans
// from oldSeq and writing unknownState for gap spans, producing a
// sequence of length newLength. It is the identity when no insertions
// have occurred (single non-gap segment spanning the whole range).
func (t *Tree) Export(oldSeq []int, newLength, unknownState int) ([]int, error) {
	out := make([]int, 0, newLength)
	for _, s := range t.segments {
		if s.IsGap {
			for i := s.NewLo; i < s.NewHi; i++ {
				out = append(out, unknownState)
			}
			continue
		}
		if s.OrigHi > len(oldSeq) {
			return nil, fmt.Errorf("genometree: segment references position %d beyond old sequence length %d", s.OrigHi, len(oldSeq))
		}
		out = append(out, oldSeq[s.OrigLo:s.OrigHi]...)
	}
	if len(out) != newLength {
		return nil, fmt.Errorf("genometree: exported length %d does not match expected %d", len(out), newLength)
	}
	return out, nil
}
