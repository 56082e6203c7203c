// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package funccall

import (
	"github.com/praveenmunagapati/firmopt/debuglog"
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/lattice"
)

type rewriteKind int

const (
	kindFloatConst rewriteKind = iota
	kindNonFloatConst
	kindPure
	kindNothrow
)

type callRewrite struct {
	call    *ir.Node
	kind    rewriteKind
	origMem *ir.Node
}

// handledSentinel marks a call's scratch link as "already classified by
// this rewrite pass" during the two-pass walk (spec.md §4.3's "a
// sentinel pointer (any fixed, distinct address)"). Its identity, not
// its contents, is what matters.
var handledSentinel = new(struct{})

// RewriteCallSites implements spec.md §4.3: one pass over p's nodes,
// classifying each Call against propOf, then a second pass replacing
// each classified call's memory/exception/regular Projs.
//
// propOf resolves a callee entity's already-inferred property set; it
// is the solver's per-entity lookup (Solver.classifyNothrowMalloc /
// classifyConstPure results), kept as a function so rewriting can run
// independently of a live Solver in tests.
func RewriteCallSites(p *ir.Proc, propOf func(*ir.Entity) lattice.Set, dl *debuglog.Sink) {
	token := p.AcquireLink()
	defer token.Release()

	var rewrites []callRewrite
	var projs []*ir.Node
	noMem := findNoMem(p)

	for _, n := range p.Nodes() {
		if n.Op == ir.OpProj {
			if n.ProjPred != nil && n.ProjPred.Op == ir.OpCall {
				projs = append(projs, n)
			}
			continue
		}
		if n.Op != ir.OpCall {
			continue
		}
		callee, ok := directCallee(n)
		if !ok {
			// Indirect call: spec.md §4.9 says skip conservatively
			// unless every callee is known and homogeneous; rewriting
			// indirect calls is out of scope here (no component needs
			// it: §4.3 only lists "calls to classified procedures",
			// which presumes a resolvable entity).
			continue
		}
		props := propOf(callee)
		kind, classified := classifyCall(props)
		if !classified {
			continue
		}
		n.SetLink(handledSentinel)
		rewrites = append(rewrites, callRewrite{call: n, kind: kind, origMem: n.CallMem()})
		if dl.Enabled(debuglog.ModuleFuncCall) {
			dl.Printf(debuglog.ModuleFuncCall, "rewrite call %s in %s as %v", n, p.Name, kind)
		}
	}

	anyExceptionRemoved := false
	for _, rw := range rewrites {
		switch rw.kind {
		case kindFloatConst, kindPure:
			rw.call.SetCallMem(noMem)
			rw.call.SetPinned(ir.Floats)
		case kindNonFloatConst:
			// Memory-independent, but has_loop means the callee might
			// not terminate: leave pin-state alone so the call-site
			// rewriter doesn't let the scheduler hoist it out of its
			// block (spec.md §4.2 has_loop comment).
			rw.call.SetCallMem(noMem)
		case kindNothrow:
			// Subset rewrite: memory pinning untouched.
		}
	}

	for _, proj := range projs {
		call := proj.ProjPred
		if call.Link() != handledSentinel {
			continue
		}
		rw := rewriteFor(rewrites, call)
		switch {
		case proj.ProjNum == ir.ProjMem && touchesMem(rw.kind):
			if proj != rw.origMem {
				replaceUses(p, proj, rw.origMem)
			}
		case proj.ProjNum == ir.ProjException:
			bad := newBad(p)
			replaceUses(p, proj, bad)
			anyExceptionRemoved = true
		case proj.ProjNum == ir.ProjRegular && touchesMem(rw.kind):
			jmp := newJmp(p, call.Block)
			replaceUses(p, proj, jmp)
		}
	}

	if anyExceptionRemoved {
		p.Invalidate(ir.DominanceInvalid | ir.LoopInfoInvalid)
	}
}

// classifyCall buckets a callee's property set into one of the four
// call-site-rewrite lists (spec.md §4.3).
func classifyCall(props lattice.Set) (rewriteKind, bool) {
	switch {
	case props.Has(lattice.Const) && !props.Has(lattice.HasLoop):
		return kindFloatConst, true
	case props.Has(lattice.Const):
		return kindNonFloatConst, true
	case props.Has(lattice.Pure):
		return kindPure, true
	case props.Has(lattice.Nothrow):
		return kindNothrow, true
	default:
		return 0, false
	}
}

// touchesMem reports whether a rewrite kind rewrites the call's memory
// and regular-exit Projs (everything except the nothrow subset rewrite).
func touchesMem(k rewriteKind) bool { return k != kindNothrow }

func rewriteFor(rewrites []callRewrite, call *ir.Node) callRewrite {
	for _, rw := range rewrites {
		if rw.call == call {
			return rw
		}
	}
	panic("firmopt: proj references an unhandled call")
}

func findNoMem(p *ir.Proc) *ir.Node {
	for _, n := range p.Nodes() {
		if n.Op == ir.OpNoMem {
			return n
		}
	}
	b := p.Entry
	return p.NewNode(b, ir.OpNoMem, ir.MemMode)
}

func newBad(p *ir.Proc) *ir.Node {
	return p.NewNode(p.Entry, ir.OpBad, ir.CtrlMode)
}

func newJmp(p *ir.Proc, b *ir.Block) *ir.Node {
	return p.NewNode(b, ir.OpJmp, ir.CtrlMode)
}

// replaceUses rewrites every use of old to new across the procedure.
func replaceUses(p *ir.Proc, old, new *ir.Node) {
	for _, n := range p.Nodes() {
		for i, in := range n.Ins {
			if in == old {
				n.Ins[i] = new
			}
		}
	}
	for _, b := range p.Blocks {
		for i, pred := range b.CFGPreds {
			if pred == old {
				b.CFGPreds[i] = new
			}
		}
	}
	for i, ka := range p.EndNode.Ins {
		if ka == old {
			p.EndNode.Ins[i] = new
		}
	}
}
