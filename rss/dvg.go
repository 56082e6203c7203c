// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rss

import (
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/ports"
)

// DVG is the disjoint value DAG built from a block's killing function
// k* (spec.md §4.7): one outgoing edge per interesting node, to its
// killer, converging on the implicit sink.
type DVG struct {
	bi    *BlockInfo
	succ  map[*ir.Node]ref // u -> killer(u)
	users map[*ir.Node][]*ir.Node

	// extra holds serialization edges layered on top of the killer
	// chain (spec.md §4.8's "append the new edge to the DVG"): src ->
	// tgt meaning src must execute before tgt.
	extra map[*ir.Node][]*ir.Node
}

// AddSerializationEdge records an emitted serialization edge (src, tgt)
// and extends dvg_user_list(tgt) with src (spec.md §4.8's emission step).
func (d *DVG) AddSerializationEdge(src, tgt *ir.Node) {
	if d.extra == nil {
		d.extra = map[*ir.Node][]*ir.Node{}
	}
	d.extra[src] = append(d.extra[src], tgt)
	d.users[tgt] = append(d.users[tgt], src)
	d.bi.infoOf(tgt).dvgUsers = d.users[tgt]
}

func (d *DVG) outEdges(u *ir.Node) []ref {
	out := make([]ref, 0, 1+len(d.extra[u]))
	if k, ok := d.succ[u]; ok {
		out = append(out, k)
	}
	for _, e := range d.extra[u] {
		out = append(out, nodeRef(e))
	}
	return out
}

// BuildDVG assumes AssignKillers has already run over bi.
func BuildDVG(bi *BlockInfo) *DVG {
	d := &DVG{bi: bi, succ: map[*ir.Node]ref{}, users: map[*ir.Node][]*ir.Node{}}
	for _, u := range bi.interesting {
		k := bi.infoOf(u).killer
		d.succ[u] = k
		if !k.sink {
			d.users[k.node] = append(d.users[k.node], u)
		}
	}
	for _, u := range bi.interesting {
		bi.infoOf(u).dvgUsers = d.users[u]
	}
	return d
}

// descendants returns u's DVG-descendants: the transitive closure of
// outEdges starting at u (the killer chain, plus any serialization
// edges inserted since), excluding sink.
func (d *DVG) descendants(u *ir.Node) map[*ir.Node]bool {
	out := map[*ir.Node]bool{}
	onStack := map[*ir.Node]bool{u: true}
	var visit func(cur *ir.Node)
	visit = func(cur *ir.Node) {
		for _, k := range d.outEdges(cur) {
			if k.sink {
				continue
			}
			ir.Assert(!onStack[k.node], "DVG cycle detected reaching %s from %s", k.node, u)
			if out[k.node] {
				continue
			}
			out[k.node] = true
			onStack[k.node] = true
			visit(k.node)
			onStack[k.node] = false
		}
	}
	visit(u)
	return out
}

// Descendants is the public, ordered form of descendants(u), excluding
// sink, for use by the serialization heuristic (spec.md §4.8's D(v)).
func (d *DVG) Descendants(u *ir.Node) []*ir.Node {
	set := d.descendants(u)
	out := make([]*ir.Node, 0, len(set))
	for _, v := range d.bi.interesting {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

// BuildPKillers computes dvg_pkiller(u) for every u: among u's DVG
// users, a user w qualifies iff no other DVG user has w among its own
// DVG-descendants (spec.md §4.7, the §4.5 predicate applied in-DVG).
func (d *DVG) BuildPKillers() {
	for _, u := range d.bi.interesting {
		users := d.users[u]
		ni := d.bi.infoOf(u)
		ni.dvgPotentialKillers = nil
		for _, w := range users {
			if d.isDVGPKiller(w, users) {
				ni.dvgPotentialKillers = append(ni.dvgPotentialKillers, w)
			}
		}
	}
}

func (d *DVG) isDVGPKiller(w *ir.Node, users []*ir.Node) bool {
	for _, other := range users {
		if other == w {
			continue
		}
		if d.descendants(other)[w] {
			return false
		}
	}
	return true
}

// ChainPartition builds the bipartite graph on the DVG's index-mapped
// nodes (left copy == right copy == interesting ∪ sink), one edge per
// DVG edge with weight 1, solves maximum-cardinality matching via m,
// and interprets the result as chain-successor pointers (spec.md §4.7).
// newMatcher must size its returned ports.Matcher for n+1 vertices on
// each side, n == len(bi.interesting).
func ChainPartition(bi *BlockInfo, d *DVG, newMatcher func(nLeft, nRight int) ports.Matcher) []*chain {
	n := len(bi.interesting)
	sinkIdx := n
	idxOf := make(map[*ir.Node]int, n)
	for i, u := range bi.interesting {
		idxOf[u] = i
	}

	m := newMatcher(n+1, n+1)
	for _, u := range bi.interesting {
		i := idxOf[u]
		for _, k := range d.outEdges(u) {
			j := sinkIdx
			if !k.sink {
				j = idxOf[k.node]
			}
			m.Add(i, j, 1)
		}
	}
	m.Prepare(true)
	match := m.Solve()

	hasIncoming := make([]bool, n+1)
	for _, j := range match {
		if j >= 0 {
			hasIncoming[j] = true
		}
	}

	var chains []*chain
	visited := make([]bool, n)
	for i, u := range bi.interesting {
		if visited[i] || hasIncoming[i] {
			continue
		}
		c := &chain{}
		cur, curIdx := u, i
		for {
			ni := bi.infoOf(cur)
			ni.chain = c
			ni.chainPos = len(c.nodes)
			c.nodes = append(c.nodes, cur)
			visited[curIdx] = true
			next := -1
			if curIdx < len(match) {
				next = match[curIdx]
			}
			if next == -1 || next == sinkIdx {
				break
			}
			cur, curIdx = bi.interesting[next], next
		}
		chains = append(chains, c)
	}
	return chains
}

// MaximalAntichain computes the block's register saturation: the
// maximal antichain over the chain partition (spec.md §4.7).
func MaximalAntichain(bi *BlockInfo, d *DVG, chains []*chain) []*ir.Node {
	v := make([]*ir.Node, len(chains))
	for i, c := range chains {
		v[i] = c.nodes[0]
	}

	for {
		swapped := false
		for i, u := range v {
			for j, other := range v {
				if i == j {
					continue
				}
				if d.descendants(u)[other] {
					if pred := bi.chainPredecessor(u); pred != nil {
						v[i] = pred
						swapped = true
					}
				}
			}
		}
		if !swapped {
			break
		}
	}
	return v
}

// chainPredecessor returns u's predecessor within its own chain, or nil
// if u starts its chain.
func (bi *BlockInfo) chainPredecessor(u *ir.Node) *ir.Node {
	ni := bi.infoOf(u)
	if ni.chain == nil || ni.chainPos == 0 {
		return nil
	}
	return ni.chain.nodes[ni.chainPos-1]
}
