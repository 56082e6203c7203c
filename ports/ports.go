// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ports declares the external collaborators spec.md §6 lists:
// the height oracle, the bipartite matcher, the architecture descriptor,
// and the ABI descriptor. Production embeddings supply their own; this
// module ships default implementations (internal/match for the matcher,
// ir for a loop analyzer, archdesc.go for a toy architecture/ABI pair)
// purely so the package is self-contained and testable, the same role
// the teacher's func_test.go builders play for cmd/compile/internal/ssa.
package ports

import "github.com/praveenmunagapati/firmopt/ir"

// HeightOracle answers height and reachability queries against a
// block's dependency graph, augmented with any serialization edges
// inserted so far (spec.md §4.8, §6).
type HeightOracle interface {
	// Height returns the length of the longest path from n to the
	// block's sink in the (possibly serialization-augmented) data
	// dependency graph.
	Height(n *ir.Node) int
	// Reachable reports whether there is a path a -> ... -> b in the
	// block's height graph.
	Reachable(a, b *ir.Node) bool
	// RecomputeBlock recomputes height/reachability after a
	// serialization edge has been added to the block.
	RecomputeBlock(b *ir.Block)
}

// Matcher is a maximum-cardinality bipartite matcher (spec.md §4.7,
// §6, §9: "any exact maximum-cardinality bipartite matching
// implementation is acceptable"). Left and right vertices are both
// indexed 0..n-1 by the caller; weight is accepted for interface
// parity with a weighted assignment solver but the default
// implementation (internal/match) only needs cardinality.
type Matcher interface {
	Add(i, j int, weight float64)
	Prepare(maximize bool)
	// Solve returns, for each left vertex i, the matched right vertex
	// or -1 if i is unmatched.
	Solve() []int
}

// RegisterClass identifies one register file (e.g. general-purpose,
// floating point) an architecture exposes to rss.
type RegisterClass int

// ArchDescriptor exposes register-class iteration and ignore predicates
// (spec.md §6).
type ArchDescriptor interface {
	RegisterClasses() []RegisterClass
	// NumRegisters is the total register count of class rc, before
	// subtracting ABI-ignored registers.
	NumRegisters(rc RegisterClass) int
	// RegClassOf reports the register class a data-mode node belongs to.
	RegClassOf(n *ir.Node) RegisterClass
}

// ABIDescriptor exposes the ABI-reserved ("ignore") register count per
// class (spec.md §6): frame pointer, stack pointer, and similar
// registers the scheduler must never treat as general allocation
// candidates.
type ABIDescriptor interface {
	NumIgnoredRegisters(rc RegisterClass) int
}
