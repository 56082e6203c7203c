// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Builder is a small test-graph DSL, the analogue of the teacher's
// Bloc/Valu/Goto/If/Exit test helpers (func_test.go), adapted to this
// package's node model. It is not meant for production IR construction
// (that's the external IR builder's job per spec.md §1) — only for
// building the toy procedures funccall/rss tests run their analyses
// against.
type Builder struct {
	Proc   *Proc
	blocks map[string]*Block
}

// NewBuilder starts a new procedure named name at the given whole-
// program index.
func NewBuilder(index int, name string) *Builder {
	return &Builder{Proc: NewProc(index, name), blocks: map[string]*Block{}}
}

// Blk declares (or fetches) the named block.
func (b *Builder) Blk(name string) *Block {
	if blk, ok := b.blocks[name]; ok {
		return blk
	}
	blk := b.Proc.NewBlock()
	b.blocks[name] = blk
	return blk
}

// SetEntry marks the named block as the procedure's entry.
func (b *Builder) SetEntry(name string) *Block {
	blk := b.Blk(name)
	b.Proc.Entry = blk
	return blk
}

// SetEnd marks the named block as the procedure's end block.
func (b *Builder) SetEnd(name string) *Block {
	blk := b.Blk(name)
	b.Proc.EndBlock = blk
	return blk
}

// Val appends a node to the named block.
func (b *Builder) Val(block string, op Opcode, mode Mode, ins ...*Node) *Node {
	return b.Proc.NewNode(b.Blk(block), op, mode, ins...)
}

// InitMem creates the procedure's initial-memory node in block.
func (b *Builder) InitMem(block string) *Node {
	n := b.Val(block, OpNoMem, MemMode)
	b.Proc.InitialMem = n
	return n
}

// Goto links from -> to with a Jmp node living in from.
func (b *Builder) Goto(from, to string) *Node {
	fb, tb := b.Blk(from), b.Blk(to)
	jmp := b.Proc.NewNode(fb, OpJmp, CtrlMode)
	fb.AddSucc(tb, jmp)
	return jmp
}

// Ret appends a Return node in block, wiring it as a CFGPred of the end
// block (which must already be set).
func (b *Builder) Ret(block string, mem *Node, results ...*Node) *Node {
	ins := append([]*Node{mem}, results...)
	ret := b.Proc.NewNode(b.Blk(block), OpReturn, CtrlMode, ins...)
	bb := b.Blk(block)
	bb.AddSucc(b.Proc.EndBlock, ret)
	return ret
}

// BadExit appends a Bad node in block as a non-Return end predecessor
// (for testing exception-path classification).
func (b *Builder) BadExit(block string) *Node {
	bad := b.Proc.NewNode(b.Blk(block), OpBad, CtrlMode)
	bb := b.Blk(block)
	bb.AddSucc(b.Proc.EndBlock, bad)
	return bad
}

// End finalizes the procedure: creates the End node with the given
// keep-alive inputs.
func (b *Builder) End(keepAlives ...*Node) *Proc {
	b.Proc.EndNode = b.Proc.NewNode(b.Proc.EndBlock, OpEnd, AnyMode, keepAlives...)
	return b.Proc
}

// SelfEntity builds the procedure's own entity (Irg set to the procedure
// being built), records it as Proc.Self, and stores props on Proc.Props.
// External declarations are built with ExternalEntity instead.
func (b *Builder) SelfEntity(props uint8, nParams, nResults int) *Entity {
	e := &Entity{Name: b.Proc.Name, Irg: b.Proc, NParams: nParams, NResults: nResults}
	b.Proc.Self = e
	b.Proc.Props = props
	return e
}

// ExternalEntity builds an entity with no irg, whose property bitset is
// authoritative (spec.md §3).
func ExternalEntity(name string, props uint8) *Entity {
	return &Entity{Name: name, Props: props}
}

// Call appends a direct Call node targeting callee, in block.
func (b *Builder) Call(block string, mem *Node, callee *Entity, params ...*Node) *Node {
	ins := append([]*Node{mem, nil}, params...)
	n := b.Proc.NewNode(b.Blk(block), OpCall, TupleMode, ins...)
	n.Callees = []*Entity{callee}
	return n
}

// Proj appends a Proj node reading projNum from pred, in pred's block.
func (b *Builder) Proj(pred *Node, projNum int, mode Mode) *Node {
	n := b.Proc.NewNode(pred.Block, OpProj, mode, pred)
	n.ProjPred = pred
	n.ProjNum = projNum
	return n
}
