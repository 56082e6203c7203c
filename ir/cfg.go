// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This file adapts the teacher's postorder/SCC machinery (dom.go, scc.go)
// from a *ssa.Func's block graph to ir.Proc's block graph. It backs
// Proc.HasLoop, which funccall's const/pure pass uses for the has_loop
// bit: the real dominator/loop analyzer is an external collaborator per
// spec.md §1, but something has to produce that answer here, the same
// way the teacher's own func_test.go builders stand in for a real front
// end in tests.

package ir

// Postorder computes a DFS postorder traversal of p's block graph,
// starting at Entry. Unreachable blocks are excluded.
func (p *Proc) Postorder() []*Block {
	if p.cachedPostorder != nil {
		return p.cachedPostorder
	}
	seen := make([]bool, len(p.Blocks))
	order := make([]*Block, 0, len(p.Blocks))

	type frame struct {
		b   *Block
		idx int
	}
	stack := []frame{{b: p.Entry}}
	seen[p.Entry.ID] = true
	for len(stack) > 0 {
		top := len(stack) - 1
		fr := &stack[top]
		if fr.idx < len(fr.b.Succs) {
			succ := fr.b.Succs[fr.idx]
			fr.idx++
			if !seen[succ.ID] {
				seen[succ.ID] = true
				stack = append(stack, frame{b: succ})
			}
			continue
		}
		stack = stack[:top]
		order = append(order, fr.b)
	}
	p.cachedPostorder = order
	return order
}

// SCCs returns the strongly connected components of p's block graph,
// topologically sorted by the kernel DAG, using Kosaraju-Sharir exactly
// the way the teacher's Func.SCCs does: a DFS postorder pass followed by
// a BFS over reversed edges in reverse postorder. The result is a push
// iterator with iter.Seq[[]*Block]'s underlying func type, written out
// because the module targets go 1.22.
func (p *Proc) SCCs() func(yield func([]*Block) bool) {
	return func(yield func([]*Block) bool) {
		po := p.Postorder()

		reachable := make([]bool, len(p.Blocks))
		for _, b := range po {
			reachable[b.ID] = true
		}

		seen := make([]bool, len(p.Blocks))
		queue := make([]*Block, 0, len(po))

		for i := len(po) - 1; i >= 0; i-- {
			leader := po[i]
			if seen[leader.ID] {
				continue
			}
			scc := make([]*Block, 0, 4)
			queue = append(queue, leader)
			seen[leader.ID] = true

			for len(queue) > 0 {
				b := queue[0]
				queue = queue[1:]
				scc = append(scc, b)
				for _, pred := range b.Preds {
					if reachable[pred.ID] && !seen[pred.ID] {
						seen[pred.ID] = true
						queue = append(queue, pred)
					}
				}
			}
			if !yield(scc) {
				return
			}
		}
	}
}

// HasLoop reports whether any SCC of p's block graph has more than one
// block, or a single block with a self-edge — i.e. whether p's CFG
// contains a cycle.
func (p *Proc) HasLoop() bool {
	found := false
	p.SCCs()(func(scc []*Block) bool {
		if len(scc) > 1 {
			found = true
			return false
		}
		b := scc[0]
		for _, s := range b.Succs {
			if s == b {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
