package simulator

import (
	"fmt"
	"math"

	"github.com/evolbioinfo/alisim/modeladapter"
	"github.com/evolbioinfo/alisim/phylotree"
)

const unknownState = -1

// felsensteinLikelihood is the lengthratio.Likelihood implementation this
// module supplies for its own ascertainment-bias probing: a standard
// post-order pruning algorithm over the fixed topology and branch lengths
// of the tree being simulated on, under mixture class 0 of the configured
// model (ascertainment probing only needs a representative per-pattern
// likelihood, not the full mixture sum — §4.1 estimates p_const from the
// base model).
type felsensteinLikelihood struct {
	tree      *phylotree.Tree
	adapter   *modeladapter.Adapter
	postorder []int
	parent    map[int]int
	children  map[int][]int
	leafOrder []int
}

func newFelsensteinLikelihood(tree *phylotree.Tree, adapter *modeladapter.Adapter) *felsensteinLikelihood {
	f := &felsensteinLikelihood{
		tree:     tree,
		adapter:  adapter,
		parent:   make(map[int]int),
		children: make(map[int][]int),
	}

	type frame struct{ id, dad int }
	var preorder []int
	stack := []frame{{tree.RootID, -1}}
	f.parent[tree.RootID] = -1
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		preorder = append(preorder, top.id)
		node := tree.Nodes[top.id]
		kids := node.Children(top.dad)
		f.children[top.id] = kids
		for _, k := range kids {
			f.parent[k] = top.id
			stack = append(stack, frame{k, top.id})
		}
		if len(kids) == 0 {
			f.leafOrder = append(f.leafOrder, top.id)
		}
	}
	f.postorder = make([]int, len(preorder))
	for i, id := range preorder {
		f.postorder[len(preorder)-1-i] = id
	}
	return f
}

// PatternLogLikelihood implements lengthratio.Likelihood.
func (f *felsensteinLikelihood) PatternLogLikelihood(pattern []int) (float64, error) {
	if len(pattern) != len(f.leafOrder) {
		return 0, fmt.Errorf("simulator: pattern has %d entries, tree has %d leaves", len(pattern), len(f.leafOrder))
	}
	stateOf := make(map[int]int, len(f.leafOrder))
	for i, id := range f.leafOrder {
		stateOf[id] = pattern[i]
	}

	s := f.adapter.NumStates()
	partial := make(map[int][]float64, len(f.postorder))

	for _, id := range f.postorder {
		kids := f.children[id]
		if len(kids) == 0 {
			vec := make([]float64, s)
			st := stateOf[id]
			if st == unknownState {
				for i := range vec {
					vec[i] = 1
				}
			} else {
				vec[st] = 1
			}
			partial[id] = vec
			continue
		}
		vec := make([]float64, s)
		for i := range vec {
			vec[i] = 1
		}
		node := f.tree.Nodes[id]
		for _, childID := range kids {
			length := node.EdgeLength(childID)
			p, err := f.adapter.PMatrix(0, length)
			if err != nil {
				return 0, fmt.Errorf("simulator: P(t) for likelihood pruning: %w", err)
			}
			childVec := partial[childID]
			contrib := make([]float64, s)
			for i := 0; i < s; i++ {
				sum := 0.0
				for j := 0; j < s; j++ {
					sum += p[i*s+j] * childVec[j]
				}
				contrib[i] = sum
			}
			for i := 0; i < s; i++ {
				vec[i] *= contrib[i]
			}
		}
		partial[id] = vec
	}

	freq := f.adapter.Freqs(0)
	rootVec := partial[f.tree.RootID]
	total := 0.0
	for i, v := range rootVec {
		total += freq[i] * v
	}
	if total <= 0 {
		return math.Inf(-1), nil
	}
	return math.Log(total), nil
}
