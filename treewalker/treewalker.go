// Package treewalker drives the depth-first traversal that turns a root
// sequence and a tree into a full set of leaf (and optionally internal)
// sequences: it chooses a BranchSampler method per edge, runs the
// substitution/indel event loop, and finalizes leaves into the output
// sink as they complete.
package treewalker

import (
	"fmt"
	"math/rand"

	"github.com/evolbioinfo/alisim/branch"
	"github.com/evolbioinfo/alisim/dnaerror"
	"github.com/evolbioinfo/alisim/fundi"
	"github.com/evolbioinfo/alisim/indel"
	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/output"
	"github.com/evolbioinfo/alisim/phylotree"
	"github.com/evolbioinfo/alisim/rateprofile"
)

const unknownState = -1

// Walker holds everything one traversal needs, per §9's "thread a
// SimulatorCtx struct through all operations; no singletons" design note.
type Walker struct {
	Tree    *phylotree.Tree
	Sampler *branch.Sampler
	Adapter *modeladapter.Adapter
	Profile *rateprofile.Profile
	Ctrl    *indel.Controller
	Sink    *output.Sink
	RNG     *rand.Rand

	Scale                  float64 // global branch scale (partition rate already folded in by the caller)
	ContinuousGamma        bool
	UserThreshold          float64 // simulation_thresh override; 0 means "compute tau(L)"
	Heterotachy            bool
	BranchOverride         bool
	MixtureSampling        bool
	WriteInternalSequences bool
	FunDi                  *fundi.Scheme // nil when disabled

	reconciler *indel.Reconciler
	oldSeq     map[int][]int // node id -> sequence snapshot at freeze time, for the reconciler
}

// nodeExporter adapts Walker's node-id-keyed snapshots and Sink's
// name-keyed write method to indel.LeafExporter.
type nodeExporter struct {
	tree *phylotree.Tree
	sink *output.Sink
}

func (e *nodeExporter) ExportLeaf(nodeID int, seq []int) error {
	return e.sink.WriteLeaf(e.nodeName(nodeID), seq)
}

func (e *nodeExporter) nodeName(id int) string {
	n := e.tree.Nodes[id]
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("internal_%d", id)
}

// AssignRootSequence sets the root's sequence, per §4.6's "Ancestral
// sequence" rule: an ancestral alignment shorter than targetLen is
// extended with sites drawn from the root frequencies; its absence draws
// the whole root sequence from them. Callers must invoke w.Tree.Graft()
// first if the input tree was unrooted — grafting changes Tree.RootID, so
// assigning before grafting would attach the sequence to the wrong node.
func (w *Walker) AssignRootSequence(ancestral []int, targetLen int) {
	root := w.Tree.Nodes[w.Tree.RootID]
	if len(ancestral) >= targetLen {
		root.Sequence = ancestral[:targetLen]
	} else {
		root.Sequence = make([]int, targetLen)
		copy(root.Sequence, ancestral)
		for i := len(ancestral); i < targetLen; i++ {
			mix := w.Adapter.MixtureClass(i)
			root.Sequence[i] = drawFromFreq(w.RNG, w.Adapter.Freqs(mix))
		}
	}
	root.NumGaps = phylotree.NumGapsOf(root.Sequence)
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

// Walk runs the full traversal: §4.6's pre-traversal graft, then a
// depth-first pass over an explicit stack (§9 "convert DFS to an explicit
// stack to bound stack use"), evolving every edge and finalizing leaves
// (and, with WriteInternalSequences, internal nodes) as they complete.
func (w *Walker) Walk() error {
	if err := w.Tree.Graft(); err != nil {
		return fmt.Errorf("treewalker: %w", err)
	}
	root := w.Tree.Nodes[w.Tree.RootID]

	if w.Ctrl.Enabled() {
		w.oldSeq = make(map[int][]int)
		w.reconciler = indel.NewReconciler(w.Ctrl, &nodeExporter{tree: w.Tree, sink: w.Sink}, unknownState, len(root.Sequence))
	}

	if root.IsLeaf {
		// finalizeLeaf releases (and may permute) the sequence it is given,
		// so hand it a copy and keep the original for the root's children.
		seq := root.Sequence
		root.Sequence = append([]int(nil), seq...)
		if err := w.finalizeLeaf(root); err != nil {
			return err
		}
		root.Sequence = seq
	}

	type frame struct{ id, dad int }
	stack := []frame{{root.ID, -1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := w.Tree.Nodes[f.id]

		for _, childID := range node.Children(f.dad) {
			child := w.Tree.Nodes[childID]
			length := node.EdgeLength(childID)
			if err := w.evolveEdge(node, child, length); err != nil {
				return fmt.Errorf("treewalker: edge %d->%d: %w", f.id, childID, err)
			}
			if child.IsLeaf {
				if err := w.finalizeLeaf(child); err != nil {
					return err
				}
			}
			stack = append(stack, frame{childID, f.id})
		}

		if !node.IsLeaf {
			if err := w.finalizeInternal(node); err != nil {
				return err
			}
		}
	}

	if w.Ctrl.Enabled() {
		if err := w.reconciler.Flush(func(id int) []int { return w.oldSeq[id] }); err != nil {
			return fmt.Errorf("treewalker: final reconciliation: %w", err)
		}
	}
	return nil
}

// evolveEdge implements §4.2/§4.3/§4.6 step 3-4: pick the branch method,
// evolve parent into child, then (whenever indels are enabled or
// RATE_MATRIX ran) continue with the combined Gillespie event loop.
func (w *Walker) evolveEdge(parent, child *phylotree.Node, length float64) error {
	if length == 0 {
		child.Sequence = append([]int(nil), parent.Sequence...)
		child.NumGaps = parent.NumGaps
		return nil
	}

	threshold := w.UserThreshold
	if threshold <= 0 {
		threshold = branch.SwitchingThreshold(len(parent.Sequence), w.ContinuousGamma)
	}
	method := branch.SelectMethod(length, w.Scale, threshold, w.Heterotachy, w.BranchOverride, w.MixtureSampling)

	var err error
	if method == branch.TransProb {
		child.Sequence, err = w.Sampler.EvolveTransProb(w.RNG, parent.Sequence, length, w.Scale, w.Profile)
	} else {
		child.Sequence = append([]int(nil), parent.Sequence...)
	}
	if err != nil {
		return err
	}

	if w.Ctrl.Enabled() || method == branch.RateMatrix {
		seq, st, err := branch.EventLoop(w.RNG, child.Sequence, length, w.Scale, w.Adapter, w.Profile, w.Ctrl, method == branch.RateMatrix, unknownState)
		if err != nil {
			return err
		}
		child.Sequence = seq
		child.NumGaps = st.NumGaps
	} else {
		child.NumGaps = phylotree.NumGapsOf(child.Sequence)
	}
	return nil
}

// finalizeLeaf implements §4.6 steps 5-8 for one leaf: attach it to the
// insertion list (indels only), apply FunDi and the DNA-error model when
// that can happen immediately, and hand it to the sink. Under indels the
// leaf is frozen instead and the reconciler hands its padded sequence to
// the sink; nothing is written to a spill file.
//
// Under indels, FunDi is deferred until every leaf's genome-tree
// reconciliation has completed (§4.6 step 6); the DNA-error model is
// deferred alongside it so both run in one pass. It resamples each
// non-UNKNOWN site independently, so the gap padding does not change
// which sites it can touch.
func (w *Walker) finalizeLeaf(node *phylotree.Node) error {
	if w.Ctrl.Enabled() {
		w.Ctrl.FreezeNode(node.ID)
		w.oldSeq[node.ID] = node.Sequence
		node.Sequence = nil
		return w.reconciler.Advance(w.Ctrl.Tail(), func(id int) []int { return w.oldSeq[id] })
	}

	seq := node.Sequence
	if w.FunDi != nil && w.FunDi.Applies(node.Name) {
		w.FunDi.Permute(seq)
	}
	if w.Adapter.ContainsDNAError() {
		mix := 0
		dnaerror.Apply(w.RNG, seq, w.Adapter.NumStates(), w.Adapter.DNAErrProb(mix), unknownState)
	}
	if err := w.Sink.WriteLeaf(node.Name, seq); err != nil {
		return err
	}
	node.Sequence = nil
	return nil
}

// ApplyDeferred runs FunDi and the DNA-error model over every leaf once
// indel reconciliation has finished, for the case Walk's finalizeLeaf
// deferred them to (§4.6 step 6). It is a no-op when indels were
// disabled, since finalizeLeaf already applied both inline.
func (w *Walker) ApplyDeferred() error {
	if !w.Ctrl.Enabled() {
		return nil
	}
	leaves := w.Sink.Leaves()
	for name, seq := range leaves {
		if w.FunDi != nil && w.FunDi.Applies(name) {
			w.FunDi.Permute(seq)
		}
		if w.Adapter.ContainsDNAError() {
			dnaerror.Apply(w.RNG, seq, w.Adapter.NumStates(), w.Adapter.DNAErrProb(0), unknownState)
		}
	}
	w.Sink.SetLeaves(leaves)
	return nil
}

// finalizeInternal releases an internal node's sequence once every child
// has consumed it (§4.6 step 9, §9 "scoped allocation... released
// deterministically at end"), unless internal-sequence output was
// requested, in which case it is frozen (indels) or written directly
// (no indels) the same way a leaf would be.
func (w *Walker) finalizeInternal(node *phylotree.Node) error {
	if !w.WriteInternalSequences {
		node.Sequence = nil
		return nil
	}
	return w.finalizeLeaf(node)
}
