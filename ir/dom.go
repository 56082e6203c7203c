// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This file adapts the teacher's dom.go (postorder numbering + the
// "intersect" closest-common-dominator walk) from *ssa.Func's block
// graph to ir.Proc's, using the iterative Cooper-Harvey-Kennedy
// algorithm the intersect helper is built for.

package ir

// DomTree is a procedure's immediate-dominator tree, computed over
// Proc.Blocks as of the last time it went DominanceInvalid.
type DomTree struct {
	idom map[*Block]*Block
}

// Dominators returns p's dominator tree, computing (or recomputing,
// after an Invalidate(DominanceInvalid)) it on demand.
func (p *Proc) Dominators() *DomTree {
	if p.dom == nil {
		p.dom = computeDominators(p)
	}
	return p.dom
}

// IDom returns b's immediate dominator, or nil for the entry block.
func (t *DomTree) IDom(b *Block) *Block {
	if b == nil {
		return nil
	}
	return t.idom[b]
}

// Dominates reports whether a dominates b (a block always dominates
// itself).
func (t *DomTree) Dominates(a, b *Block) bool {
	for c := b; c != nil; c = t.idom[c] {
		if c == a {
			return true
		}
	}
	return false
}

// computeDominators runs the standard iterative dominator algorithm:
// repeatedly tighten each block's candidate immediate dominator to the
// intersection (via postorder numbering) of its predecessors' current
// dominators, until a fixed point is reached. Grounded on go-code/dom.go's
// postorderWithNumbering + intersect pair, re-expressed over ir.Block's
// plain Preds/Succs slices instead of *ssa.Edge.
func computeDominators(p *Proc) *DomTree {
	order := p.Postorder()
	if len(order) == 0 {
		return &DomTree{idom: map[*Block]*Block{}}
	}

	postnum := make(map[*Block]int, len(order))
	for i, b := range order {
		postnum[b] = i
	}

	idom := make(map[*Block]*Block, len(order))
	entry := order[len(order)-1]
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for i := len(order) - 2; i >= 0; i-- {
			b := order[i]
			var newIdom *Block
			for _, pred := range b.Preds {
				if idom[pred] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = pred
					continue
				}
				newIdom = intersect(newIdom, pred, postnum, idom)
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	idom[entry] = nil
	return &DomTree{idom: idom}
}

// intersect finds the closest common dominator of b and c, walking up
// each side's idom chain by postorder number until they meet.
func intersect(b, c *Block, postnum map[*Block]int, idom map[*Block]*Block) *Block {
	for b != c {
		for postnum[b] < postnum[c] {
			b = idom[b]
		}
		for postnum[c] < postnum[b] {
			c = idom[c]
		}
	}
	return b
}
