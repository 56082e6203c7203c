// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rss

import "github.com/praveenmunagapati/firmopt/ir"

// HeightGraph is the default ports.HeightOracle: it answers height and
// reachability queries against bi's consumer relation, augmented by any
// serialization edges added so far (spec.md §4.8, §6). A production
// embedding may supply a more efficient incremental oracle; this one
// recomputes its height memo on demand, which is adequate at
// basic-block scale.
type HeightGraph struct {
	bi     *BlockInfo
	extra  map[*ir.Node][]*ir.Node
	memo   map[*ir.Node]int
}

func NewHeightGraph(bi *BlockInfo) *HeightGraph {
	return &HeightGraph{bi: bi, extra: map[*ir.Node][]*ir.Node{}}
}

func (h *HeightGraph) outs(n *ir.Node) []*ir.Node {
	var out []*ir.Node
	if ni, ok := h.bi.info[n]; ok {
		for _, c := range ni.consumers {
			if !c.sink {
				out = append(out, c.node)
			}
		}
	}
	out = append(out, h.extra[n]...)
	return out
}

// AddEdge records a new src-before-tgt dependency, to be picked up on
// the next RecomputeBlock.
func (h *HeightGraph) AddEdge(src, tgt *ir.Node) {
	h.extra[src] = append(h.extra[src], tgt)
}

// Height returns the longest path from n to the block's sink.
func (h *HeightGraph) Height(n *ir.Node) int {
	if h.memo == nil {
		h.memo = map[*ir.Node]int{}
	}
	if v, ok := h.memo[n]; ok {
		return v
	}
	best := 0
	for _, o := range h.outs(n) {
		if hgt := h.Height(o); hgt+1 > best {
			best = hgt + 1
		}
	}
	h.memo[n] = best
	return best
}

// Reachable reports whether there is a path a -> ... -> b.
func (h *HeightGraph) Reachable(a, b *ir.Node) bool {
	if a == b {
		return true
	}
	visited := map[*ir.Node]bool{}
	var dfs func(n *ir.Node) bool
	dfs = func(n *ir.Node) bool {
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, o := range h.outs(n) {
			if o == b || dfs(o) {
				return true
			}
		}
		return false
	}
	return dfs(a)
}

// RecomputeBlock drops the memoized heights for b, so the next Height
// call reflects edges added since the last recompute.
func (h *HeightGraph) RecomputeBlock(b *ir.Block) {
	h.memo = nil
}
