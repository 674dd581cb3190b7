package indel

import (
	"fmt"

	"github.com/evolbioinfo/alisim/genometree"
)

// LeafExporter is the narrow slice of OutputSink the streaming
// reconciler needs: somewhere to hand a finalized leaf sequence once the
// genome tree has padded it with gaps.
type LeafExporter interface {
	ExportLeaf(nodeID int, seq []int) error
}

// oldSeqByNode resolves a frozen node's pre-freeze sequence. The caller
// supplies it because the reconciler has no access to the phylotree
// arena (keeping the dependency direction one-way, indel -> genometree
// only).
type oldSeqByNode func(nodeID int) []int

// Reconciler drives §4.5's streaming reconciliation policy: as each leaf
// finalizes (freezes) at some point in the global insertion history,
// walk the insertion list forward, and whenever an event carries frozen
// leaves, export their new sequences through the genome tree current at
// that point and drop the references so their old sequence buffers can
// be collected. The genome tree is rebuilt from scratch every
// RebuildEvery tips processed and updated incrementally the rest of the
// time, bounding the incremental cost against accumulated segment count
// (§4.5).
type Reconciler struct {
	ctrl    *Controller
	sink    LeafExporter
	unknown int
	baseLen int // the sequence length before any insertion occurred

	processed   *Insertion // last insertion event whose frozen leaves have been exported
	current     *genometree.Tree
	currentLen  int
	tipsWritten int
}

// NewReconciler builds a Reconciler over ctrl's insertion list, where
// baseLength is the sequence length before any insertion ever occurred.
func NewReconciler(ctrl *Controller, sink LeafExporter, unknownState, baseLength int) *Reconciler {
	return &Reconciler{
		ctrl:       ctrl,
		sink:       sink,
		unknown:    unknownState,
		baseLen:    baseLength,
		processed:  ctrl.head,
		current:    genometree.Build(ctrl.head, baseLength),
		currentLen: baseLength,
	}
}

// Advance walks from the last-processed insertion event up to (and
// including) upTo, exporting every frozen leaf it finds along the way.
// Leaves freeze onto the *current* tail (Controller.FreezeNode), so
// r.processed itself — the sentinel head before any insertion has
// happened, or the tail of a prior Advance call that no new insertion
// has followed yet — can carry pending PhyloNodes of its own; those must
// be exported before (or even without) moving on to any later event.
func (r *Reconciler) Advance(upTo *Insertion, getOldSeq oldSeqByNode) error {
	if err := r.exportFrozen(r.processed, getOldSeq); err != nil {
		return err
	}
	if r.processed == upTo {
		return nil
	}

	for ins := r.processed.Next; ins != nil; ins = ins.Next {
		if err := r.current.Update(r.processed, ins); err != nil {
			return fmt.Errorf("indel: reconciler update: %w", err)
		}
		r.currentLen += ins.Length

		if err := r.exportFrozen(ins, getOldSeq); err != nil {
			return err
		}
		r.processed = ins

		if r.tipsWritten > 0 && r.tipsWritten%r.ctrl.RebuildEvery == 0 {
			r.current = genometree.BuildUpTo(r.ctrl.head, r.baseLen, r.processed.Next)
			r.currentLen = r.current.Length()
		}

		if ins == upTo {
			break
		}
	}
	return nil
}

// exportFrozen exports and clears every PhyloNode pending on ins, using
// the genome tree as it stands once ins has been folded in.
func (r *Reconciler) exportFrozen(ins *Insertion, getOldSeq oldSeqByNode) error {
	for _, nodeID := range ins.PhyloNodes {
		old := getOldSeq(nodeID)
		seq, err := r.current.Export(old, r.currentLen, r.unknown)
		if err != nil {
			return fmt.Errorf("indel: exporting node %d: %w", nodeID, err)
		}
		if err := r.sink.ExportLeaf(nodeID, seq); err != nil {
			return fmt.Errorf("indel: writing node %d: %w", nodeID, err)
		}
		r.tipsWritten++
	}
	ins.PhyloNodes = nil
	ins.GenomeNodes = nil
	return nil
}

// Flush processes every remaining insertion event, for use at the end of
// the traversal once all leaves have frozen.
func (r *Reconciler) Flush(getOldSeq oldSeqByNode) error {
	return r.Advance(r.ctrl.Tail(), getOldSeq)
}
