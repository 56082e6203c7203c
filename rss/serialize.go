// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rss

import (
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/ports"
)

// SerializationEdge is one emitted add-dependency(src, tgt): src must
// execute before tgt in any valid scheduling of the block.
type SerializationEdge struct {
	Src, Tgt *ir.Node
	Omega1   int
	Omega2   int
}

type candidateEdge struct {
	src, tgt       *ir.Node
	omega1, omega2 int
	benefit        int
}

// Serialize runs spec.md §4.8's loop: while the block's register
// saturation exceeds availableRegs, pick the cheapest admissible
// serialization edge and emit it, re-deriving the chain partition and
// antichain each time. It returns the final antichain (saturation) and
// every edge it inserted, in emission order.
//
// addDependency is the IR-mutation side effect (spec.md §6:
// add-dependency(src, tgt)); it is a callback so this package never
// assumes anything about how the embedding IR records an explicit
// ordering constraint beyond the DVG/height-graph bookkeeping done here.
func Serialize(bi *BlockInfo, d *DVG, availableRegs int, hg *HeightGraph,
	newMatcher func(nLeft, nRight int) ports.Matcher, addDependency func(src, tgt *ir.Node)) ([]*ir.Node, []SerializationEdge) {

	d.BuildPKillers()
	chains := ChainPartition(bi, d, newMatcher)
	v := MaximalAntichain(bi, d, chains)

	var emitted []SerializationEdge

	for len(v) > availableRegs {
		chosen, ok := pickSerializationEdge(bi, d, v, hg, availableRegs)
		if !ok {
			break // spec.md §4.9: failed admissibility ⇒ stop, keep current saturation
		}

		if addDependency != nil {
			addDependency(chosen.src, chosen.tgt)
		}
		d.AddSerializationEdge(chosen.src, chosen.tgt)
		hg.AddEdge(chosen.src, chosen.tgt)
		hg.RecomputeBlock(bi.Block)

		emitted = append(emitted, SerializationEdge{Src: chosen.src, Tgt: chosen.tgt, Omega1: chosen.omega1, Omega2: chosen.omega2})

		d.BuildPKillers()
		chains = ChainPartition(bi, d, newMatcher)
		v = MaximalAntichain(bi, d, chains)
	}

	return v, emitted
}

// pickSerializationEdge evaluates every candidate (u, vCand, vv) triple
// per spec.md §4.8 and returns the chosen edge, or ok=false if no
// candidate has ω1 > 0.
func pickSerializationEdge(bi *BlockInfo, d *DVG, v []*ir.Node, hg *HeightGraph, availableRegs int) (candidateEdge, bool) {
	maxHeight := 0
	for _, n := range bi.interesting {
		if hgt := hg.Height(n); hgt > maxHeight {
			maxHeight = hgt
		}
	}

	var best, bestOmega20 *candidateEdge

	for _, u := range v {
		ni := bi.infoOf(u)
		for _, vv := range ni.dvgPotentialKillers {
			for _, vCand := range v {
				if vCand == u {
					continue
				}
				isKillerOfU := containsNode(ni.dvgPotentialKillers, vCand)
				var admissible bool
				if isKillerOfU {
					admissible = vCand != vv
				} else {
					admissible = !hg.Reachable(vCand, vv)
				}
				if !admissible {
					continue
				}

				dSet := map[*ir.Node]bool{}
				for _, x := range d.Descendants(vCand) {
					dSet[x] = true
				}

				mu1 := 0
				for _, x := range v {
					if dSet[x] {
						mu1++
					}
				}

				var mu2 int
				if isKillerOfU {
					mu2 = 0
				} else {
					uk := map[*ir.Node]bool{}
					for _, k := range ni.dvgPotentialKillers {
						uk[k] = true
						for _, dd := range d.Descendants(k) {
							uk[dd] = true
						}
					}
					for x := range uk {
						if !dSet[x] {
							mu2++
						}
					}
				}

				omega1 := mu1 - mu2
				hVCand := hg.Height(vCand)
				hVV := hg.Height(vv)
				raw := hVCand + (maxHeight - hVV) + 1 - maxHeight
				omega2 := 0
				if raw > 0 {
					omega2 = raw
				}
				benefit := availableRegs - omega1

				cand := candidateEdge{src: vCand, tgt: vv, omega1: omega1, omega2: omega2, benefit: benefit}
				if best == nil || cand.benefit < best.benefit {
					c := cand
					best = &c
				}
				if omega2 == 0 && (bestOmega20 == nil || cand.benefit < bestOmega20.benefit) {
					c := cand
					bestOmega20 = &c
				}
			}
		}
	}

	switch {
	case best != nil && best.omega1 > 0 && bestOmega20 != nil:
		return *bestOmega20, true
	case best != nil && best.omega1 > 0:
		return *best, true
	default:
		return candidateEdge{}, false
	}
}

func containsNode(nodes []*ir.Node, n *ir.Node) bool {
	for _, x := range nodes {
		if x == n {
			return true
		}
	}
	return false
}
