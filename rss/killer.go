// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rss

import (
	"sort"

	"github.com/praveenmunagapati/firmopt/ir"
)

type edgeKey struct{ u, v *ir.Node }

// cbc is a connected bipartite component of the PKG (spec.md §3, §4.6).
type cbc struct {
	id int
	S  []*ir.Node // parents (values needing a killer)
	T  []*ir.Node // children (candidate killers)
	E  map[edgeKey]bool
}

// BuildCBCs partitions bi's PKG into connected bipartite components
// (spec.md §4.6, steps 1-4).
func BuildCBCs(bi *BlockInfo) []*cbc {
	visited := map[*ir.Node]bool{}
	var cbcs []*cbc
	nextID := 0

	for _, u := range bi.interesting {
		if visited[u] {
			continue
		}
		sSet := map[*ir.Node]bool{u: true}
		tSet := map[*ir.Node]bool{}
		for _, v := range bi.infoOf(u).potentialKillers {
			tSet[v] = true
		}

		for changed := true; changed; {
			changed = false
			for t := range tSet {
				for _, s := range bi.infoOf(t).killValues {
					if !sSet[s] {
						sSet[s] = true
						changed = true
					}
				}
			}
			for s := range sSet {
				for _, t := range bi.infoOf(s).potentialKillers {
					if !tSet[t] {
						tSet[t] = true
						changed = true
					}
				}
			}
		}

		for s := range sSet {
			visited[s] = true
		}
		for s := range sSet {
			if tSet[s] {
				delete(sSet, s)
			}
		}

		c := &cbc{id: nextID, S: nodeSlice(sSet), T: nodeSlice(tSet), E: map[edgeKey]bool{}}
		nextID++
		for _, s := range c.S {
			for _, v := range bi.infoOf(s).potentialKillers {
				if tSet[v] {
					c.E[edgeKey{s, v}] = true
				}
			}
		}
		cbcs = append(cbcs, c)
	}
	return cbcs
}

func nodeSlice(set map[*ir.Node]bool) []*ir.Node {
	out := make([]*ir.Node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// skEntry is one Saturating K-Set pick.
type skEntry struct {
	t       *ir.Node
	cost    float64
	parents []*ir.Node
}

// GreedyK runs the Saturating K-Set heuristic over one cbc (spec.md
// §4.6 steps 1-3), assigning killer(p) for every parent the component
// covers.
func GreedyK(c *cbc, bi *BlockInfo) {
	x := map[*ir.Node]bool{}
	for _, s := range c.S {
		x[s] = true
	}
	y := map[*ir.Node]bool{}
	var sks []skEntry

	for len(x) > 0 {
		var best *ir.Node
		bestCost := -1.0
		for _, t := range c.T {
			num := 0
			for s := range x {
				if c.E[edgeKey{s, t}] {
					num++
				}
			}
			denom := len(bi.infoOf(t).descendantsIdx) + len(y)
			var cost float64
			if denom == 0 {
				cost = float64(num)
			} else {
				cost = float64(num) / float64(denom)
			}
			if cost > bestCost {
				bestCost, best = cost, t
			}
		}
		if best == nil {
			break
		}

		var parents []*ir.Node
		for _, s := range c.S {
			if x[s] && c.E[edgeKey{s, best}] {
				parents = append(parents, s)
			}
		}
		for _, p := range parents {
			delete(x, p)
		}
		for _, d := range bi.infoOf(best).descendants {
			if !d.sink {
				y[d.node] = true
			}
		}
		sks = append(sks, skEntry{t: best, cost: bestCost, parents: parents})
	}

	sort.SliceStable(sks, func(i, j int) bool { return sks[i].cost < sks[j].cost })
	for i := len(sks) - 1; i >= 0; i-- {
		entry := sks[i]
		for _, p := range entry.parents {
			pi := bi.infoOf(p)
			if pi.killer == sinkRef {
				pi.killer = nodeRef(entry.t)
			}
		}
	}
}

// AssignKillers runs BuildCBCs then GreedyK over every component, giving
// every interesting node in bi a unique killer (possibly sink).
func AssignKillers(bi *BlockInfo) {
	for _, c := range BuildCBCs(bi) {
		GreedyK(c, bi)
	}
}
