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

func TestClassifyNothrowMallocLeaf(t *testing.T) {
	b := ir.NewBuilder(0, "leaf")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	b.Ret("entry", mem)
	proc := b.End()
	b.SelfEntity(0, 0, 0)

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyNothrowMalloc(proc)
	assert.True(t, got.Has(lattice.Nothrow))
	assert.False(t, got.Has(lattice.Malloc), "zero return results never carries malloc")
}

func TestClassifyMallocPreservedWhenNotStored(t *testing.T) {
	b := ir.NewBuilder(0, "alloc")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	heap := b.Val("entry", ir.OpAlloc, ir.DataMode(0))
	heap.Where = ir.HeapAlloc
	b.Ret("entry", mem, heap)
	proc := b.End()
	b.SelfEntity(0, 0, 1)

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyNothrowMalloc(proc)
	assert.True(t, got.Has(lattice.Malloc))
	assert.True(t, got.Has(lattice.Nothrow))
}

func TestClassifyMallocClearedWhenStored(t *testing.T) {
	b := ir.NewBuilder(0, "alloc-stored")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	heap := b.Val("entry", ir.OpAlloc, ir.DataMode(0))
	heap.Where = ir.HeapAlloc
	addr := b.Val("entry", ir.OpSymConst, ir.DataMode(0))
	store := b.Val("entry", ir.OpStore, ir.MemMode, mem, addr, heap)
	b.Ret("entry", store, heap)
	proc := b.End()
	b.SelfEntity(0, 0, 1)

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyNothrowMalloc(proc)
	assert.False(t, got.Has(lattice.Malloc), "storing the alloc as a value aliases it")
}

func TestClassifyConstLeaf(t *testing.T) {
	b := ir.NewBuilder(0, "const-leaf")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	b.Ret("entry", mem)
	proc := b.End()
	b.SelfEntity(0, 0, 0)

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyConstPure(proc)
	assert.True(t, got.Has(lattice.Const))
	assert.False(t, got.Has(lattice.HasLoop))
}

func TestClassifyPureViaLoadWeakensConst(t *testing.T) {
	b := ir.NewBuilder(0, "pure-load")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	ld := b.Val("entry", ir.OpLoad, ir.MemMode, mem)
	b.Ret("entry", ld)
	proc := b.End()
	b.SelfEntity(0, 0, 0)

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyConstPure(proc)
	assert.True(t, got.Has(lattice.Pure))
	assert.False(t, got.Has(lattice.Const), "a Load must weaken const down to pure")
}

func TestClassifyVolatileLoadDisqualifies(t *testing.T) {
	b := ir.NewBuilder(0, "volatile-load")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	ld := b.Val("entry", ir.OpLoad, ir.MemMode, mem)
	ld.Volatile = true
	b.Ret("entry", ld)
	proc := b.End()
	b.SelfEntity(0, 0, 0)

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyConstPure(proc)
	assert.Equal(t, lattice.Bottom, got)
}

func TestClassifyConstWithLoopSetsHasLoop(t *testing.T) {
	b := ir.NewBuilder(0, "const-loop")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	b.Goto("entry", "head")
	b.Goto("head", "body")
	b.Goto("body", "head")
	b.Goto("head", "tail")
	b.Ret("tail", mem)
	proc := b.End()
	b.SelfEntity(0, 0, 0)

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyConstPure(proc)
	assert.True(t, got.Has(lattice.Const))
	assert.True(t, got.Has(lattice.HasLoop))
}

func TestClassifyMutualRecursionReachesBottom(t *testing.T) {
	a := ir.NewBuilder(0, "a")
	a.SetEntry("entry")
	a.SetEnd("exit")
	aMem := a.InitMem("entry")

	b := ir.NewBuilder(1, "b")
	b.SetEntry("entry")
	b.SetEnd("exit")
	bMem := b.InitMem("entry")

	aEntity := a.SelfEntity(0, 0, 1)
	bEntity := b.SelfEntity(0, 0, 1)

	callB := a.Call("entry", aMem, bEntity)
	memProjA := a.Proj(callB, ir.ProjMem, ir.MemMode)
	resProjA := a.Proj(callB, ir.ProjResult0, ir.DataMode(0))
	a.Ret("entry", memProjA, resProjA)
	aProc := a.End()

	callA := b.Call("entry", bMem, aEntity)
	memProjB := b.Proj(callA, ir.ProjMem, ir.MemMode)
	resProjB := b.Proj(callA, ir.ProjResult0, ir.DataMode(0))
	b.Ret("entry", memProjB, resProjB)
	bProc := b.End()

	s := NewSolver([]*ir.Proc{aProc, bProc}, Options{}, debuglog.New(0))
	got := s.classifyConstPure(aProc)
	assert.Equal(t, lattice.Bottom, got, "mutual recursion through a Call opcode never reaches NoMem")
}

func TestClassifySelfTailCallIsConst(t *testing.T) {
	b := ir.NewBuilder(0, "self-tail")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	self := b.SelfEntity(0, 0, 1)

	call := b.Call("entry", mem, self)
	memProj := b.Proj(call, ir.ProjMem, ir.MemMode)
	resProj := b.Proj(call, ir.ProjResult0, ir.DataMode(0))
	b.Ret("entry", memProj, resProj)
	proc := b.End()

	s := NewSolver([]*ir.Proc{proc}, Options{}, debuglog.New(0))
	got := s.classifyConstPure(proc)
	assert.True(t, got.Has(lattice.Const), "a self-recursive call through the memory chain contributes nothing, matching Pass A's self-call skip")
}

// TestClassifyThreeCycleNestedVisitsStayUncommitted covers a genuine
// 3-cycle (A -> B -> C -> A, no stores, no loops). B and C are each
// only reached as a nested dependency of A's top-level call, while
// their peers are still busy; such a result must stay uncommitted
// (cpDone false) so the whole-program driving loop's later direct
// calls for B and C can retry them instead of being permanently stuck
// with a traversal-order-dependent answer.
func TestClassifyThreeCycleNestedVisitsStayUncommitted(t *testing.T) {
	a := ir.NewBuilder(0, "a3")
	a.SetEntry("entry")
	a.SetEnd("exit")
	aMem := a.InitMem("entry")

	b := ir.NewBuilder(1, "b3")
	b.SetEntry("entry")
	b.SetEnd("exit")
	bMem := b.InitMem("entry")

	c := ir.NewBuilder(2, "c3")
	c.SetEntry("entry")
	c.SetEnd("exit")
	cMem := c.InitMem("entry")

	aEntity := a.SelfEntity(0, 0, 1)
	bEntity := b.SelfEntity(0, 0, 1)
	cEntity := c.SelfEntity(0, 0, 1)

	callB := a.Call("entry", aMem, bEntity)
	a.Ret("entry", a.Proj(callB, ir.ProjMem, ir.MemMode), a.Proj(callB, ir.ProjResult0, ir.DataMode(0)))
	aProc := a.End()

	callC := b.Call("entry", bMem, cEntity)
	b.Ret("entry", b.Proj(callC, ir.ProjMem, ir.MemMode), b.Proj(callC, ir.ProjResult0, ir.DataMode(0)))
	bProc := b.End()

	callA := c.Call("entry", cMem, aEntity)
	c.Ret("entry", c.Proj(callA, ir.ProjMem, ir.MemMode), c.Proj(callA, ir.ProjResult0, ir.DataMode(0)))
	cProc := c.End()

	s := NewSolver([]*ir.Proc{aProc, bProc, cProc}, Options{}, debuglog.New(0))
	gotA := s.classifyConstPure(aProc)
	assert.Equal(t, lattice.Bottom, gotA, "the top-level call for A commits while B and C are still busy")
	assert.True(t, s.cpDone[aProc.Index], "A's top-level call always commits, tentative or not")
	assert.False(t, s.cpDone[bProc.Index], "B was only reached as a nested dependency of A and must stay retryable")
	assert.False(t, s.cpDone[cProc.Index], "C was only reached as a nested dependency of B and must stay retryable")

	// The whole-program driving loop now reaches B directly: it must
	// settle and commit instead of staying permanently stuck.
	gotB := s.classifyConstPure(bProc)
	assert.Equal(t, lattice.Bottom, gotB)
	assert.True(t, s.cpDone[bProc.Index], "B's direct top-level call must commit")
}
