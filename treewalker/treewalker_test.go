package treewalker

import (
	"math/rand"
	"testing"

	"github.com/evolbioinfo/alisim/alphabet"
	"github.com/evolbioinfo/alisim/branch"
	"github.com/evolbioinfo/alisim/indel"
	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/output"
	"github.com/evolbioinfo/alisim/phylotree"
	"github.com/evolbioinfo/alisim/rateprofile"
)

func buildRootedPair() *phylotree.Tree {
	return &phylotree.Tree{
		Nodes: map[int]*phylotree.Node{
			0: {ID: 0, Neighbors: []phylotree.Edge{{To: 1, Length: 0.1}, {To: 2, Length: 0.1}}},
			1: {ID: 1, Name: "leafA", IsLeaf: true, Neighbors: []phylotree.Edge{{To: 0, Length: 0.1}}},
			2: {ID: 2, Name: "leafB", IsLeaf: true, Neighbors: []phylotree.Edge{{To: 0, Length: 0.1}}},
		},
		RootID:  0,
		Rooted:  true,
		LeafNum: 2,
	}
}

func newWalker(t *testing.T, ctrl *indel.Controller) *Walker {
	adapter, err := modeladapter.NewEqualRates(2, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alph, err := alphabet.New(alphabet.BIN, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &Walker{
		Tree:            buildRootedPair(),
		Sampler:         branch.New(adapter),
		Adapter:         adapter,
		Profile:         rateprofile.Empty(),
		Ctrl:            ctrl,
		Sink:            output.NewSink("PHYLIP", alph),
		RNG:             rand.New(rand.NewSource(7)),
		Scale:           1,
		ContinuousGamma: true,
	}
}

func disabledController(t *testing.T) *indel.Controller {
	ctrl, err := indel.New(rand.New(rand.NewSource(1)), 0, 0, nil, nil, 4, 5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ctrl
}

func TestWalkProducesOneSequencePerLeaf(t *testing.T) {
	w := newWalker(t, disabledController(t))
	w.AssignRootSequence(nil, 4)
	if err := w.Walk(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaves := w.Sink.Leaves()
	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(leaves))
	}
	for name, seq := range leaves {
		if len(seq) != 4 {
			t.Fatalf("leaf %q: expected length 4, got %d", name, len(seq))
		}
		for _, st := range seq {
			if st != 0 && st != 1 {
				t.Fatalf("leaf %q: state out of range: %v", name, st)
			}
		}
	}
}

func TestZeroLengthEdgeCopiesParentSequenceExactly(t *testing.T) {
	w := newWalker(t, disabledController(t))
	w.Tree.Nodes[1].Neighbors[0].Length = 0
	w.Tree.Nodes[0].Neighbors[0].Length = 0
	w.AssignRootSequence([]int{0, 1, 0, 1}, 4)
	if err := w.Walk(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := w.Sink.Leaves()["leafA"]
	want := []int{0, 1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected zero-length edge to copy parent exactly, got %v want %v", got, want)
		}
	}
}

func TestAssignRootSequencePadsShortAncestralFromFrequencies(t *testing.T) {
	w := newWalker(t, disabledController(t))
	w.AssignRootSequence([]int{0, 1}, 5)
	root := w.Tree.Nodes[0]
	if len(root.Sequence) != 5 {
		t.Fatalf("expected padded root sequence length 5, got %d", len(root.Sequence))
	}
	if root.Sequence[0] != 0 || root.Sequence[1] != 1 {
		t.Fatalf("expected the first two sites to be preserved verbatim, got %v", root.Sequence[:2])
	}
}
