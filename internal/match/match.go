// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package match is the default ports.Matcher: an augmenting-path
// (Kuhn's algorithm) maximum-cardinality bipartite matcher, used by rss
// to solve the DVG's chain partition (spec.md §4.7, §9). No pack
// dependency solves unweighted maximum-cardinality bipartite matching
// with an add(i,j,w)/prepare(maximize)/solve() contract (see
// SPEC_FULL.md §2), so this is a justified standard-library-only
// component: O(V*E) worst case, matching the complexity spec.md §9
// calls out for "any exact maximum-cardinality bipartite matching
// implementation."
package match

// Matcher implements ports.Matcher.
type Matcher struct {
	nLeft, nRight int
	adj           map[int][]int
}

// New creates a matcher for a bipartite graph with nLeft left vertices
// and nRight right vertices, both 0-indexed.
func New(nLeft, nRight int) *Matcher {
	return &Matcher{nLeft: nLeft, nRight: nRight, adj: make(map[int][]int, nLeft)}
}

// Add records a candidate edge (i,j). Weight is accepted for interface
// parity with ports.Matcher but unused: this solver only maximizes
// cardinality.
func (m *Matcher) Add(i, j int, weight float64) {
	m.adj[i] = append(m.adj[i], j)
}

// Prepare is a no-op: maximize=false (minimum-weight assignment) isn't
// supported by this matcher; callers needing that would plug in a
// different ports.Matcher implementation.
func (m *Matcher) Prepare(maximize bool) {}

// Solve runs Kuhn's algorithm and returns, per left vertex, its matched
// right vertex or -1.
func (m *Matcher) Solve() []int {
	matchRight := make([]int, m.nRight)
	for i := range matchRight {
		matchRight[i] = -1
	}
	visited := make([]bool, m.nRight)

	var tryAugment func(u int) bool
	tryAugment = func(u int) bool {
		for _, v := range m.adj[u] {
			if visited[v] {
				continue
			}
			visited[v] = true
			if matchRight[v] == -1 || tryAugment(matchRight[v]) {
				matchRight[v] = u
				return true
			}
		}
		return false
	}

	for u := 0; u < m.nLeft; u++ {
		for i := range visited {
			visited[i] = false
		}
		tryAugment(u)
	}

	matchLeft := make([]int, m.nLeft)
	for i := range matchLeft {
		matchLeft[i] = -1
	}
	for v, u := range matchRight {
		if u != -1 {
			matchLeft[u] = v
		}
	}
	return matchLeft
}
