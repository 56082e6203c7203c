// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rss implements the Touati-style register-pressure scheduling
// preparation analysis (spec.md §4.4-§4.9): per-block node info, the
// potential-killing DAG, bipartite decomposition with Greedy-K killer
// selection, the disjoint value DAG and its chain partition, and the
// serialization heuristic that inserts explicit dependency edges while
// saturation exceeds the register budget.
package rss

import (
	"sort"

	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/ports"
)

// ref is a potentially-sentinel reference, per spec.md §9's design note:
// "replace [pointer-identity sink/source sentinels] with tagged variants
// in the analysis-record type rather than synthetic IR nodes, so the IR
// is not polluted."
type ref struct {
	node *ir.Node
	sink bool
}

var sinkRef = ref{sink: true}

func nodeRef(n *ir.Node) ref { return ref{node: n} }

func (r ref) String() string {
	if r.sink {
		return "sink"
	}
	return r.node.String()
}

// nodeInfo is the per-interesting-node analysis record (rss_irn in
// spec.md §3).
type nodeInfo struct {
	n *ir.Node

	consumers    []ref
	consumersIdx []int // sorted Node.Index of the real (non-sink) consumers
	hasSinkCons  bool

	descendants    []ref
	descendantsIdx []int // sorted Node.Index of the real descendants
	hasSinkDesc    bool

	potentialKillers []*ir.Node // pkiller_list(u)
	killValues       []*ir.Node // kill_value_list(v): u such that v ∈ pkiller(u)

	liveOut bool
	killer  ref // killer(u); sinkRef initially

	// DVG fields (spec.md §4.7): dvgUsers is set by BuildDVG and
	// AddSerializationEdge, dvgPotentialKillers by DVG.BuildPKillers.
	// dvgDescendants/dvgDescendantsIdx are never filled in; DVG
	// descendants are computed on demand by DVG.descendants.
	dvgDescendants    []ref
	dvgDescendantsIdx []int
	dvgUsers          []*ir.Node
	dvgPotentialKillers []*ir.Node

	chain    *chain
	chainPos int // index of n within chain.nodes
}

// chain is an ordered path in the DVG chain partition (spec.md §3).
type chain struct {
	nodes []*ir.Node
}

// BlockInfo is the per-(block, register class) analysis state: the
// interesting set, its consumer/descendant relations, the PKG, the
// selected killer function, and (once computed) the DVG/chain
// partition. One BlockInfo is built, used, and discarded per block per
// register class (spec.md §5 arena lifecycle).
type BlockInfo struct {
	Block    *ir.Block
	RegClass ports.RegisterClass

	interesting []*ir.Node
	info        map[*ir.Node]*nodeInfo
	edgeIdx     *ir.OutEdgeIndex

	// dvgNodes and dvgSinkIdx are never assigned: ChainPartition indexes
	// the interesting slice directly and uses len(interesting) as the
	// sink's bipartite index.
	dvgNodes   []*ir.Node
	dvgSinkIdx int
}

func (bi *BlockInfo) infoOf(n *ir.Node) *nodeInfo {
	ni, ok := bi.info[n]
	if !ok {
		ir.Assert(false, "node %s is not in the interesting set for block %s", n, bi.Block)
	}
	return ni
}

func sortedIndices(nodes []*ir.Node) []int {
	idx := make([]int, len(nodes))
	for i, n := range nodes {
		idx[i] = n.Index
	}
	sort.Ints(idx)
	return idx
}

// bsearch reports whether target occurs in the ascending-sorted slice s
// (spec.md §4.5's BSEARCH).
func bsearch(s []int, target int) bool {
	i := sort.SearchInts(s, target)
	return i < len(s) && s[i] == target
}
