// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package funccall implements the whole-program procedure-property
// solver and call-site rewriter (spec.md §4.2-§4.3, §4.9): classifying
// every procedure as const/pure/nothrow/malloc, then specializing call
// sites that reach a classified callee.
package funccall

import (
	"github.com/praveenmunagapati/firmopt/debuglog"
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/lattice"
)

// Options configures one OptimizeFuncCalls run. The zero Options is a
// reasonable default (no diagnostics).
type Options struct {
	// ClosedWorld, when true, lets indirect calls with fully-known
	// callee sets (Node.Unknown == false) be classified like a direct
	// call AND'd over every callee (spec.md §4.2). When false, every
	// indirect call is treated conservatively (skipped).
	ClosedWorld bool
}

// Result is a procedure's inferred property set. Classify sets only
// Props; nothing fills in Reasons, which stays nil whether or not
// debuglog.ModuleFuncCall is enabled.
type Result struct {
	Props   lattice.Set
	Reasons []string
}

// Solver carries the process-wide ready/busy state for one
// OptimizeFuncCalls (or Classify) invocation (spec.md §5).
type Solver struct {
	opts Options
	dl   *debuglog.Sink

	procs []*ir.Proc
	byIdx map[int]*ir.Proc

	guard *ir.RecursionGuard // shared busy/ready bitset across both passes, per spec.md §5

	// nmDepth/cpDepth count nested classify calls for the pass currently
	// running: 0 means the call about to start is a top-level one (driven
	// directly by OptimizeFuncCalls' per-proc loop or by Classify), not a
	// recursive descent into a callee. Per spec.md §4.9, a tentative
	// result is only committed (done=true) when it is reached at this
	// top-level depth, or once it stops being tentative.
	nmDepth int
	cpDepth int

	// Pass A memoization: done/result, keyed by Proc.Index. Busy state
	// lives in guard, shared with Pass B.
	nmDone []bool
	nmRes  []lattice.Set

	// Pass B memoization: done/result, keyed by Proc.Index.
	cpDone []bool
	cpRes  []lattice.Set
}

// NewSolver builds a Solver over the given whole program.
func NewSolver(procs []*ir.Proc, opts Options, dl *debuglog.Sink) *Solver {
	n := 0
	for _, p := range procs {
		if p.Index >= n {
			n = p.Index + 1
		}
	}
	s := &Solver{
		opts:   opts,
		dl:     dl,
		procs:  procs,
		byIdx:  make(map[int]*ir.Proc, len(procs)),
		guard:  ir.NewRecursionGuard(n),
		nmDone: make([]bool, n),
		nmRes:  make([]lattice.Set, n),
		cpDone: make([]bool, n),
		cpRes:  make([]lattice.Set, n),
	}
	for _, p := range procs {
		s.byIdx[p.Index] = p
	}
	return s
}

// stripConfirmsCastsProjs follows Confirm/Cast/Proj chains down to the
// underlying value, per spec.md §4.2 Pass A's Return-value walk.
func stripConfirmsCastsProjs(n *ir.Node) *ir.Node {
	for {
		switch n.Op {
		case ir.OpConfirm, ir.OpCast:
			n = n.Ins[0]
		case ir.OpProj:
			n = n.ProjPred
		default:
			return n
		}
	}
}

// directCallee reports the single entity a direct call targets.
func directCallee(call *ir.Node) (*ir.Entity, bool) {
	if call.Indirect || len(call.Callees) != 1 {
		return nil, false
	}
	return call.Callees[0], true
}

// propsOf returns the authoritative (for external entities) or inferred
// (for entities with an Irg) property set, without recursing: callers
// that need the inferred set for a local entity call classifyNothrowMalloc/
// classifyConstPure directly.
func propsOf(e *ir.Entity) lattice.Set {
	return lattice.Set(e.Props)
}

// ==================== Pass A: nothrow + malloc ====================

// classifyNothrowMalloc runs spec.md §4.2 Pass A for p, memoizing the
// result and guarding against recursive re-entry.
func (s *Solver) classifyNothrowMalloc(p *ir.Proc) lattice.Set {
	i := p.Index
	if s.nmDone[i] {
		return s.nmRes[i]
	}
	if s.guard.Busy(i) {
		// Mutually recursive callee still being analyzed: contribute
		// nothing, but flag the result depending on it as tentative so
		// a later top-level call can retry it (spec.md §4.9).
		return lattice.New(lattice.Tentative)
	}
	topLevel := s.nmDepth == 0
	s.nmDepth++
	defer func() { s.nmDepth-- }()
	exit := s.guard.Enter(i)
	defer exit()

	acc := lattice.New(lattice.Nothrow, lattice.Malloc)
	returns := p.Returns()
	if len(returns) == 0 || totalResults(returns) == 0 {
		acc = acc.Without(lattice.Malloc)
	}
	tentative := false

	for _, ret := range returns {
		for r := 0; r < ret.NumReturnRes(); r++ {
			if !acc.Has(lattice.Malloc) {
				break
			}
			v := stripConfirmsCastsProjs(ret.ReturnRes(r))
			switch {
			case v.Op == ir.OpAlloc && v.Where == ir.HeapAlloc:
				// malloc preserved
			case v.Op == ir.OpCall:
				if callee, ok := directCallee(v); ok {
					if callee.Irg == p {
						// self-recursion contributes nothing
						continue
					}
					var sub lattice.Set
					if callee.Irg != nil {
						sub = s.classifyNothrowMalloc(callee.Irg)
						if sub.Has(lattice.Tentative) {
							tentative = true
						}
					} else {
						sub = propsOf(callee)
					}
					if !sub.Has(lattice.Malloc) {
						acc = acc.Without(lattice.Malloc)
					}
				} else if s.opts.ClosedWorld && len(v.Callees) > 0 && !v.Unknown {
					for _, callee := range v.Callees {
						var sub lattice.Set
						if callee.Irg != nil && callee.Irg != p {
							sub = s.classifyNothrowMalloc(callee.Irg)
						} else if callee.Irg == p {
							continue
						} else {
							sub = propsOf(callee)
						}
						if !sub.Has(lattice.Malloc) {
							acc = acc.Without(lattice.Malloc)
						}
					}
				} else {
					// zero callees, unknown entity, or open-world: skip
					// conservatively (spec.md §4.9).
					acc = acc.Without(lattice.Malloc)
				}
			default:
				acc = acc.Without(lattice.Malloc)
			}
		}
	}

	// Exception classification: every non-Return predecessor of the end
	// block.
	for _, pred := range p.NonReturnEndPreds() {
		if !acc.Has(lattice.Nothrow) {
			break
		}
		if pred.Op != ir.OpCall {
			acc = acc.Without(lattice.Nothrow)
			continue
		}
		if callee, ok := directCallee(pred); ok {
			if callee.Irg == p {
				continue
			}
			var sub lattice.Set
			if callee.Irg != nil {
				sub = s.classifyNothrowMalloc(callee.Irg)
			} else {
				sub = propsOf(callee)
			}
			if !sub.Has(lattice.Nothrow) {
				acc = acc.Without(lattice.Nothrow)
			}
		} else if s.opts.ClosedWorld && len(pred.Callees) > 0 && !pred.Unknown {
			for _, callee := range pred.Callees {
				var sub lattice.Set
				if callee.Irg != nil && callee.Irg != p {
					sub = s.classifyNothrowMalloc(callee.Irg)
				} else if callee.Irg == p {
					continue
				} else {
					sub = propsOf(callee)
				}
				if !sub.Has(lattice.Nothrow) {
					acc = acc.Without(lattice.Nothrow)
				}
			}
		} else {
			acc = acc.Without(lattice.Nothrow)
		}
	}

	if acc.Has(lattice.Malloc) {
		for _, ret := range returns {
			stored := false
			for r := 0; r < ret.NumReturnRes(); r++ {
				if isStored(ret.ReturnRes(r)) {
					stored = true
					break
				}
			}
			if stored {
				acc = acc.Without(lattice.Malloc)
				break
			}
		}
	}

	if tentative {
		acc = acc.With(lattice.Tentative)
	}
	if !acc.Has(lattice.Tentative) || topLevel {
		// Either the result no longer depends on a busy peer, or this is
		// the top-level call for p: there is no outer invocation left to
		// retry it from, so commit whatever was derived (spec.md §4.9).
		acc = acc.Without(lattice.Tentative)
		s.nmRes[i] = acc
		s.nmDone[i] = true
		s.guard.MarkReady(i)
		if s.dl.Enabled(debuglog.ModuleFuncCall) {
			s.dl.Printf(debuglog.ModuleFuncCall, "pass A %s -> %v", p.Name, acc)
		}
		return acc
	}
	s.nmRes[i] = acc
	if s.dl.Enabled(debuglog.ModuleFuncCall) {
		s.dl.Printf(debuglog.ModuleFuncCall, "pass A %s -> %v (tentative)", p.Name, acc)
	}
	return acc
}

func totalResults(returns []*ir.Node) int {
	n := 0
	for _, r := range returns {
		n += r.NumReturnRes()
	}
	return n
}

// isStored reports whether n (a value returned by a malloc candidate)
// might alias any surviving reference, per spec.md §4.2's is_stored
// table.
func isStored(n *ir.Node) bool {
	idx := ir.NewOutEdgeIndex(n.Block.Proc)
	var walk func(n *ir.Node, seen map[*ir.Node]bool) bool
	walk = func(n *ir.Node, seen map[*ir.Node]bool) bool {
		if seen[n] {
			return false
		}
		seen[n] = true
		for _, use := range idx.Outs(n) {
			switch use.Op {
			case ir.OpReturn, ir.OpLoad, ir.OpCmp:
				// safe
			case ir.OpStore:
				if use.StoreValue() == n {
					return true // stored-as-value: not safe
				}
				// stored-as-address is safe
			case ir.OpSel, ir.OpCast, ir.OpConfirm:
				if walk(use, seen) {
					return true
				}
			default:
				// includes OpCall (n feeds a parameter): not safe
				return true
			}
		}
		return false
	}
	return walk(n, map[*ir.Node]bool{})
}

// ==================== Pass B: const + pure ====================

// classifyConstPure runs spec.md §4.2 Pass B for p.
func (s *Solver) classifyConstPure(p *ir.Proc) lattice.Set {
	i := p.Index
	if s.cpDone[i] {
		return s.cpRes[i]
	}
	if s.guard.Busy(i) {
		return lattice.Bottom
	}
	if p.Self != nil && p.Self.Compound {
		s.cpDone[i] = true
		s.cpRes[i] = lattice.Bottom
		return lattice.Bottom
	}
	topLevel := s.cpDepth == 0
	s.cpDepth++
	defer func() { s.cpDepth-- }()
	exit := s.guard.Enter(i)
	defer exit()

	token := p.AcquireLink()
	defer token.Release()
	vg := p.NewVisitGen()
	vg.Reset()
	vg.Visit(p.InitialMem)

	acc := lattice.New(lattice.Const)
	tentative := false
	for _, ret := range p.Returns() {
		sub := s.walkMemChain(vg, p, ret.ReturnMem(), &tentative)
		// A Const return leaves acc as it is, a Pure one caps it at pure
		// and Bottom forces bottom, so a Load-weakened chain is not
		// re-escalated by the initial Const.
		switch {
		case sub == lattice.Bottom:
			acc = lattice.Bottom
		case !sub.Has(lattice.Const):
			acc = lattice.Weaken(acc)
		}
	}

	// A keep-alive that is a Block, or a non-memory node surviving into
	// End, disqualifies const/pure.
	for _, ka := range p.EndNode.Ins {
		if ka.Op == ir.OpBlock || (ka.Mode.Kind != ir.ModeM) {
			acc = lattice.Bottom
		}
	}

	if acc.Has(lattice.Const) && p.HasLoop() {
		acc = acc.With(lattice.HasLoop)
	}
	if tentative {
		acc = acc.With(lattice.Tentative)
	}
	if !acc.Has(lattice.Tentative) || topLevel {
		// Mirrors Pass A: commit once the result no longer depends on a
		// busy peer, or unconditionally at the top-level call, since
		// there is no outer invocation left to retry it from later
		// (spec.md §4.9).
		acc = acc.Without(lattice.Tentative)
		s.cpRes[i] = acc
		s.cpDone[i] = true
		s.guard.MarkReady(i)
		if s.dl.Enabled(debuglog.ModuleFuncCall) {
			s.dl.Printf(debuglog.ModuleFuncCall, "pass B %s -> %v", p.Name, acc)
		}
		return acc
	}
	s.cpRes[i] = acc
	if s.dl.Enabled(debuglog.ModuleFuncCall) {
		s.dl.Printf(debuglog.ModuleFuncCall, "pass B %s -> %v (tentative)", p.Name, acc)
	}
	return acc
}

// walkMemChain walks backwards through a memory chain starting at m,
// per spec.md §4.2 Pass B's opcode table.
func (s *Solver) walkMemChain(vg *ir.VisitGen, p *ir.Proc, m *ir.Node, tentative *bool) lattice.Set {
	if !vg.Visit(m) {
		// Revisiting a node already on this walk (a memory Phi feeding
		// back through a loop): contribute nothing further, the other
		// incoming paths of the meet already carry the real answer.
		return lattice.New(lattice.Const)
	}
	switch m.Op {
	case ir.OpProj:
		return s.walkMemChain(vg, p, m.ProjPred, tentative)
	case ir.OpNoMem:
		return lattice.New(lattice.Const)
	case ir.OpPhi, ir.OpSync:
		acc := lattice.New(lattice.Const)
		for _, in := range m.Ins {
			acc = lattice.Max(acc, s.walkMemChain(vg, p, in, tentative))
		}
		return acc
	case ir.OpLoad:
		if m.Volatile {
			return lattice.Bottom
		}
		return lattice.Weaken(s.walkMemChain(vg, p, m.LoadMem(), tentative))
	case ir.OpCall:
		callee, ok := directCallee(m)
		if !ok {
			// indirect memory-chain call is never allowed for const/pure
			return lattice.Bottom
		}
		if callee.Irg == p {
			// self-recursive: contributes nothing, matching Pass A's
			// self-call skip.
			return lattice.New(lattice.Const)
		}
		if callee.Irg == nil {
			return propsOf(callee) & lattice.New(lattice.Const, lattice.Pure)
		}
		if s.guard.Busy(callee.Irg.Index) {
			// mutually recursive, still in progress: non-terminating
			// recursion is not const/pure at this depth, but a later
			// top-level call for this procedure may retry once the
			// peer has settled (spec.md §4.9).
			*tentative = true
			return lattice.Bottom
		}
		sub := s.classifyConstPure(callee.Irg)
		if sub.Has(lattice.Tentative) {
			*tentative = true
		}
		// Mask Tentative out of the returned Set itself (it propagates
		// via the tentative out-parameter instead): a not-yet-committed
		// sub result can carry Tentative alone with no Const/Pure bit,
		// and letting that nonzero value reach Max would defeat its
		// literal-Bottom hard-zero check.
		return sub & lattice.New(lattice.Const, lattice.Pure)
	default:
		return lattice.Bottom
	}
}

// Classify runs both passes for a single procedure p, resolving
// whatever callees it reaches along the way. Exposed so callers and
// tests can classify one procedure without paying for a whole-program
// ready/busy pass (SPEC_FULL.md §3).
func (s *Solver) Classify(p *ir.Proc) Result {
	nm := s.classifyNothrowMalloc(p)
	cp := s.classifyConstPure(p)
	return Result{Props: nm | cp}
}
