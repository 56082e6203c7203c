// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package funccall

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/praveenmunagapati/firmopt/debuglog"
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/lattice"
)

// buildCallerGraph wires a caller with one Call whose mem/exception/
// regular Projs are all consumed, so a rewrite touches every edge kind
// spec.md §4.3 lists.
func buildCallerGraph(t *testing.T) (*ir.Proc, *ir.Node, *ir.Node, *ir.Block, *ir.Node) {
	b := ir.NewBuilder(0, "caller")
	entry := b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")

	callee := ir.ExternalEntity("callee", 0)
	call := b.Call("entry", mem, callee)
	memProj := b.Proj(call, ir.ProjMem, ir.MemMode)
	excProj := b.Proj(call, ir.ProjException, ir.CtrlMode)
	regProj := b.Proj(call, ir.ProjRegular, ir.CtrlMode)

	cont := b.Blk("cont")
	entry.AddSucc(cont, regProj)
	entry.AddSucc(b.Proc.EndBlock, excProj)

	addr := b.Val("cont", ir.OpSymConst, ir.DataMode(0))
	val := b.Val("cont", ir.OpSymConst, ir.DataMode(0))
	store := b.Val("cont", ir.OpStore, ir.MemMode, memProj, addr, val)
	b.Ret("cont", store)

	proc := b.End()
	return proc, call, store, cont, excProj
}

func TestRewriteFloatConstCall(t *testing.T) {
	proc, call, store, cont, excProj := buildCallerGraph(t)
	origMem := call.CallMem()

	propOf := func(e *ir.Entity) lattice.Set { return lattice.New(lattice.Const) }
	RewriteCallSites(proc, propOf, debuglog.New(0))

	assert.Equal(t, origMem, call.CallMem(), "float-const rewrite retargets to the no-mem node, which here is the initial mem itself")
	assert.Equal(t, ir.Floats, call.Pinned())
	assert.Equal(t, origMem, store.Ins[0], "store's mem input must now be the call's original mem")

	var foundBad bool
	for _, pred := range proc.EndBlock.CFGPreds {
		if pred.Op == ir.OpBad {
			foundBad = true
		}
		assert.NotEqual(t, excProj, pred, "exception proj must be replaced")
	}
	assert.True(t, foundBad)

	var foundJmp bool
	for _, pred := range cont.CFGPreds {
		if pred.Op == ir.OpJmp {
			foundJmp = true
		}
	}
	assert.True(t, foundJmp, "regular proj must be replaced by a Jmp")

	assert.True(t, proc.IsInvalid(ir.DominanceInvalid))
	assert.True(t, proc.IsInvalid(ir.LoopInfoInvalid))
}

func TestRewriteNonFloatConstLeavesPinState(t *testing.T) {
	proc, call, _, _, _ := buildCallerGraph(t)
	propOf := func(e *ir.Entity) lattice.Set { return lattice.New(lattice.Const, lattice.HasLoop) }
	RewriteCallSites(proc, propOf, debuglog.New(0))

	assert.Equal(t, ir.Pinned, call.Pinned(), "has_loop must keep the call pinned even though memory was cut")
}

func TestRewriteNothrowSubsetOnlyTouchesException(t *testing.T) {
	proc, call, store, _, _ := buildCallerGraph(t)
	origMem := call.CallMem()
	memProjBefore := store.Ins[0]

	propOf := func(e *ir.Entity) lattice.Set { return lattice.New(lattice.Nothrow) }
	RewriteCallSites(proc, propOf, debuglog.New(0))

	assert.Equal(t, origMem, call.CallMem(), "nothrow rewrite must not touch the memory input")
	assert.Equal(t, ir.Pinned, call.Pinned())
	assert.Equal(t, memProjBefore, store.Ins[0], "nothrow rewrite leaves the memory proj alone")

	var foundBad bool
	for _, pred := range proc.EndBlock.CFGPreds {
		if pred.Op == ir.OpBad {
			foundBad = true
		}
	}
	assert.True(t, foundBad)
}

func TestRewriteUnclassifiedCallUntouched(t *testing.T) {
	proc, call, _, _, _ := buildCallerGraph(t)
	origMem := call.CallMem()
	propOf := func(e *ir.Entity) lattice.Set { return lattice.Bottom }
	RewriteCallSites(proc, propOf, debuglog.New(0))

	assert.Equal(t, origMem, call.CallMem())
	assert.Equal(t, ir.Pinned, call.Pinned())
	assert.False(t, proc.IsInvalid(ir.DominanceInvalid))
}
