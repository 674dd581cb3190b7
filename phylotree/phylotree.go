// Package phylotree converts a parsed gotree topology into the arena
// representation the simulation core walks: nodes addressed by integer
// index, edges stored as a neighbor list with "dad" disambiguation
// resolved by the traversal rather than baked into the structure (§9
// design note: "Cyclic tree references... represent the tree as an arena
// of nodes addressed by index; edges store target indices plus edge
// metadata. Traversal passes (node, parent) explicitly.").
//
// Parsing the Newick file itself stays with gotree; this package only
// adapts its result.
package phylotree

import (
	"fmt"

	gotree "github.com/evolbioinfo/gotree/tree"
)

// Edge is one neighbor relationship out of a node: the id of the
// neighboring node and the branch length connecting them.
type Edge struct {
	To     int
	Length float64
}

// Node is one vertex of the arena. Sequence, NumGaps and
// NumChildrenDone are the transient simulation fields from §3's
// PhyloNode: the tree owns the sequence buffer and releases it once the
// DFS confirms it is no longer needed.
type Node struct {
	ID        int
	Name      string
	IsLeaf    bool
	Neighbors []Edge

	Sequence        []int
	NumGaps         int
	NumChildrenDone int
}

// Tree is the arena: every node reachable from RootID, addressed by ID.
// IDs are not guaranteed contiguous (grafting a new root can shift a
// colliding id), so Nodes is a map rather than a slice.
type Tree struct {
	Nodes   map[int]*Node
	RootID  int
	Rooted  bool
	LeafNum int

	nextID int // watermark for allocating fresh node ids
}

// FromGotree converts a parsed gotree.Tree into an arena. It does not
// reroot an unrooted tree; callers that need a rooted arena call Graft
// explicitly, matching §4.6's "pre-traversal" step being a distinct
// decision point from parsing.
func FromGotree(t *gotree.Tree) (*Tree, error) {
	if t == nil || t.Root() == nil {
		return nil, fmt.Errorf("phylotree: nil tree or tree has no root")
	}

	arena := &Tree{Nodes: make(map[int]*Node)}
	maxID := -1
	leafNum := 0

	var walkErr error
	t.PreOrder(func(cur, prev *gotree.Node, e *gotree.Edge) bool {
		id := cur.Id()
		if id > maxID {
			maxID = id
		}
		n, ok := arena.Nodes[id]
		if !ok {
			n = &Node{ID: id, Name: cur.Name(), IsLeaf: cur.Tip()}
			arena.Nodes[id] = n
		}
		if n.IsLeaf {
			leafNum++
		}
		if prev != nil {
			if e == nil {
				walkErr = fmt.Errorf("phylotree: edge to non-root node %d is nil", id)
				return false
			}
			length := e.Length()
			pid := prev.Id()
			p, ok := arena.Nodes[pid]
			if !ok {
				walkErr = fmt.Errorf("phylotree: parent node %d visited out of order", pid)
				return false
			}
			p.Neighbors = append(p.Neighbors, Edge{To: id, Length: length})
			n.Neighbors = append(n.Neighbors, Edge{To: pid, Length: length})
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	arena.RootID = t.Root().Id()
	arena.LeafNum = leafNum
	arena.nextID = maxID + 1
	arena.Rooted = isEffectivelyRooted(arena)
	return arena, nil
}

// isEffectivelyRooted treats a root with exactly two neighbors as rooted
// (bifurcating root) and anything else (0, 1, or 3+ neighbors at the
// root) as unrooted, the usual Newick-parsing convention gotree itself
// follows.
func isEffectivelyRooted(t *Tree) bool {
	root, ok := t.Nodes[t.RootID]
	if !ok {
		return false
	}
	return len(root.Neighbors) == 2
}

// Graft roots an unrooted tree by attaching a brand-new pendant leaf to
// one of the current root's neighbors with a zero-length branch, then
// making that new leaf the tree's root — exactly AliSim's re-rooting
// policy (original_source/simulator/alisimulator.cpp): new node id is
// LeafNum, shifted (multiplied by 10) if it collides with an existing id.
func (t *Tree) Graft() error {
	if t.Rooted {
		return nil
	}
	root, ok := t.Nodes[t.RootID]
	if !ok || len(root.Neighbors) == 0 {
		return fmt.Errorf("phylotree: cannot graft a root with no neighbors")
	}

	newID := t.LeafNum
	for {
		if _, collide := t.Nodes[newID]; !collide {
			break
		}
		newID *= 10
	}

	target := root.Neighbors[0].To
	targetNode := t.Nodes[target]

	newRoot := &Node{ID: newID, Name: "root", IsLeaf: true}
	newRoot.Neighbors = append(newRoot.Neighbors, Edge{To: target, Length: 0})
	targetNode.Neighbors = append(targetNode.Neighbors, Edge{To: newID, Length: 0})

	t.Nodes[newID] = newRoot
	t.RootID = newID
	t.Rooted = true
	t.LeafNum++
	if newID >= t.nextID {
		t.nextID = newID + 1
	}
	return nil
}

// AllocID returns a fresh node id not currently in use, for callers that
// need to synthesize nodes after construction (none in the baseline
// simulator, but kept for symmetry with Graft's id-shift policy).
func (t *Tree) AllocID() int {
	id := t.nextID
	t.nextID++
	return id
}

// Children returns the neighbor ids of n excluding dadID, the "dad
// disambiguation" §3 describes: the arena itself carries no parent
// pointers, so every traversal must say which neighbor it arrived from.
func (n *Node) Children(dadID int) []int {
	out := make([]int, 0, len(n.Neighbors))
	for _, e := range n.Neighbors {
		if e.To != dadID {
			out = append(out, e.To)
		}
	}
	return out
}

// EdgeLength returns the branch length from n to neighbor id to, or -1
// if to is not a neighbor of n.
func (n *Node) EdgeLength(to int) float64 {
	for _, e := range n.Neighbors {
		if e.To == to {
			return e.Length
		}
	}
	return -1
}

// NumGapsOf counts UNKNOWN (-1) states in seq, used to initialize a
// node's NumGaps when a sequence is assigned directly (e.g. the root's
// ancestral sequence).
func NumGapsOf(seq []int) int {
	n := 0
	for _, s := range seq {
		if s < 0 {
			n++
		}
	}
	return n
}
