// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rss

import (
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/ports"
)

// BuildBlockInfo computes the interesting set for (b, regClass) and, for
// every interesting node, its consumers() and descendants() relations
// (spec.md §4.4). idx must already be built over b's procedure.
func BuildBlockInfo(b *ir.Block, regClass ports.RegisterClass, arch ports.ArchDescriptor, idx *ir.OutEdgeIndex) *BlockInfo {
	bi := &BlockInfo{
		Block:    b,
		RegClass: regClass,
		info:     map[*ir.Node]*nodeInfo{},
		edgeIdx:  idx,
	}

	for _, n := range b.Nodes {
		if !isInteresting(n, regClass, arch) {
			continue
		}
		bi.interesting = append(bi.interesting, n)
		bi.info[n] = &nodeInfo{n: n, killer: sinkRef}
	}

	for _, n := range bi.interesting {
		ni := bi.info[n]
		cons, sink := directConsumers(n, b, idx)
		ni.consumers = cons
		ni.hasSinkCons = sink
		ni.liveOut = sink

		desc, dsink := transitiveDescendants(n, b, idx)
		ni.descendants = desc
		ni.hasSinkDesc = dsink

		ni.consumersIdx = sortedIndices(realNodes(cons))
		ni.descendantsIdx = sortedIndices(realNodes(desc))
	}

	return bi
}

// isInteresting is spec.md §4.4's predicate: a data-mode node, in the
// given register class, that is not a T-mode tuple and not an
// ABI-ignore helper.
func isInteresting(n *ir.Node, regClass ports.RegisterClass, arch ports.ArchDescriptor) bool {
	if n.Mode.Kind != ir.ModeData {
		return false
	}
	if n.Ignore() {
		return false
	}
	return arch.RegClassOf(n) == regClass
}

// directConsumers computes the single-hop consumer set of n: out-edge
// targets in b, unwrapping a T-mode target to its non-ignore Projs, and
// substituting the sink sentinel for any out-of-block use.
func directConsumers(n *ir.Node, b *ir.Block, idx *ir.OutEdgeIndex) ([]ref, bool) {
	var out []ref
	sink := false
	seen := map[*ir.Node]bool{}

	addReal := func(t *ir.Node) {
		if !seen[t] {
			seen[t] = true
			out = append(out, nodeRef(t))
		}
	}

	for _, t := range idx.Outs(n) {
		if t.Block != b {
			sink = true
			continue
		}
		if t.Mode.Kind == ir.ModeT {
			for _, proj := range idx.Outs(t) {
				if proj.Op == ir.OpProj && !proj.Ignore() {
					addReal(proj)
				}
			}
			continue
		}
		addReal(t)
	}
	if sink {
		out = append(out, sinkRef)
	}
	return out, sink
}

// transitiveDescendants is the transitive closure of directConsumers,
// starting from n's own direct consumers (n itself is excluded, matching
// the teacher-adjacent convention that descendants(u) never contains u).
func transitiveDescendants(n *ir.Node, b *ir.Block, idx *ir.OutEdgeIndex) ([]ref, bool) {
	var out []ref
	sink := false
	seen := map[*ir.Node]bool{n: true}

	first, firstSink := directConsumers(n, b, idx)
	sink = sink || firstSink

	var stack []*ir.Node
	for _, r := range first {
		if r.sink {
			continue
		}
		if !seen[r.node] {
			seen[r.node] = true
			out = append(out, r)
			stack = append(stack, r.node)
		}
	}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cons, consSink := directConsumers(cur, b, idx)
		sink = sink || consSink
		for _, r := range cons {
			if r.sink {
				continue
			}
			if !seen[r.node] {
				seen[r.node] = true
				out = append(out, r)
				stack = append(stack, r.node)
			}
		}
	}
	if sink {
		out = append(out, sinkRef)
	}
	return out, sink
}

func realNodes(refs []ref) []*ir.Node {
	out := make([]*ir.Node, 0, len(refs))
	for _, r := range refs {
		if !r.sink {
			out = append(out, r.node)
		}
	}
	return out
}
