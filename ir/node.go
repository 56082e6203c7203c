// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir is the graph-services layer: a small, concrete Sea-of-Nodes
// style graph that funccall and rss are written against. A production
// embedding replaces this package with its own IR builder, opcode
// registry and per-node edge index (see SPEC_FULL.md §0); the accessor
// surface here is exactly the one listed in spec.md §6.
package ir

import "fmt"

// Opcode is drawn from a closed set of node kinds. The set below is a
// superset of the opcodes the analyses in funccall/rss inspect directly;
// anything else (arithmetic, constants, ...) falls through the default
// case of every switch that matters here, same as in the original design.
type Opcode int

const (
	OpInvalid Opcode = iota
	OpCall
	OpProj
	OpLoad
	OpStore
	OpPhi
	OpSync
	OpNoMem
	OpReturn
	OpBad
	OpBlock
	OpJmp
	OpSel
	OpSymConst
	OpAlloc
	OpCast
	OpConfirm
	OpCmp
	OpEnd
	// Not named by spec.md's closed set; opaque "other data" ops used to
	// build test graphs (arithmetic, literals). Every analysis here
	// treats them through the generic default case, exactly as it would
	// treat any other unlisted opcode.
	OpConst
	OpAdd
	OpArg
)

var opcodeNames = map[Opcode]string{
	OpInvalid: "Invalid", OpCall: "Call", OpProj: "Proj", OpLoad: "Load",
	OpStore: "Store", OpPhi: "Phi", OpSync: "Sync", OpNoMem: "NoMem",
	OpReturn: "Return", OpBad: "Bad", OpBlock: "Block", OpJmp: "Jmp",
	OpSel: "Sel", OpSymConst: "SymConst", OpAlloc: "Alloc", OpCast: "Cast",
	OpConfirm: "Confirm", OpCmp: "Cmp", OpEnd: "End", OpConst: "Const",
	OpAdd: "Add", OpArg: "Arg",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// ModeKind is the mode selector's coarse tag.
type ModeKind int

const (
	ModeM ModeKind = iota // memory
	ModeX                 // control
	ModeT                 // tuple
	ModeAny
	ModeData // everything else: int/float/pointer register classes
)

// Mode pairs the coarse tag with a register class, meaningful only when
// Kind == ModeData.
type Mode struct {
	Kind     ModeKind
	RegClass int
}

var (
	MemMode = Mode{Kind: ModeM}
	CtrlMode = Mode{Kind: ModeX}
	TupleMode = Mode{Kind: ModeT}
	AnyMode  = Mode{Kind: ModeAny}
)

func DataMode(regClass int) Mode { return Mode{Kind: ModeData, RegClass: regClass} }

// AllocWhere distinguishes stack allocation from heap allocation.
type AllocWhere int

const (
	StackAlloc AllocWhere = iota
	HeapAlloc
)

// PinState mirrors pinned(n)/set-pinned(n) from spec.md §6.
type PinState int

const (
	Pinned PinState = iota
	Floats
)

// Proj numbers used on Call tuples. Arbitrary small integers; only their
// identity relative to each other matters to this package.
const (
	ProjMem       = 0
	ProjException = 1
	ProjRegular   = 2
	ProjResult0   = 3
)

// Node is an opaque IR node identity, per spec.md §3.
type Node struct {
	Index int // stable per-procedure index, used for scratch arrays
	Op    Opcode
	Mode  Mode
	Ins   []*Node
	Block *Block

	link   any // mutable scratch link; see LinkToken
	pinned PinState
	ignore bool // ABI-side helper register, excluded from "interesting"

	// Proj
	ProjPred *Node
	ProjNum  int

	// Alloc
	Where AllocWhere

	// Load
	Volatile bool

	// SymConst / Call
	Entity   *Entity   // SymConst's wrapped entity
	Callees  []*Entity // resolved callee set for a Call (direct: len 1)
	Indirect bool      // true if this Call's pointer is a Sel, not a SymConst
	Unknown  bool      // true if callee-info contains an unresolved callee

	// generic debug label
	Name string
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return fmt.Sprintf("%s(v%d)", n.Name, n.Index)
	}
	return fmt.Sprintf("%s(v%d)", n.Op, n.Index)
}

// Link returns the node's scratch link. Callers must hold the owning
// procedure's LinkToken.
func (n *Node) Link() any { return n.link }

// SetLink sets the node's scratch link. Callers must hold the owning
// procedure's LinkToken.
func (n *Node) SetLink(v any) { n.link = v }

func (n *Node) Pinned() PinState     { return n.pinned }
func (n *Node) SetPinned(p PinState) { n.pinned = p }

func (n *Node) Ignore() bool      { return n.ignore }
func (n *Node) SetIgnore(b bool)  { n.ignore = b }

// CallMem returns a Call node's memory input (input 0 by convention).
func (n *Node) CallMem() *Node { return n.Ins[0] }

// SetCallMem retargets a Call node's memory input.
func (n *Node) SetCallMem(m *Node) { n.Ins[0] = m }

// CallPtr returns the callee-pointer input (input 1 by convention).
func (n *Node) CallPtr() *Node { return n.Ins[1] }

// CallParam returns the i'th parameter of a Call (inputs 2.. by convention).
func (n *Node) CallParam(i int) *Node { return n.Ins[2+i] }

// LoadMem returns a Load's memory input (input 0 by convention).
func (n *Node) LoadMem() *Node { return n.Ins[0] }

// StoreValue returns a Store's stored-value input (input 2 by convention:
// mem, addr, value).
func (n *Node) StoreValue() *Node { return n.Ins[2] }

// StoreAddr returns a Store's address input (input 1 by convention).
func (n *Node) StoreAddr() *Node { return n.Ins[1] }

// ReturnMem returns a Return's memory input (input 0 by convention).
func (n *Node) ReturnMem() *Node { return n.Ins[0] }

// ReturnRes returns the i'th returned value (inputs 1.. by convention).
func (n *Node) ReturnRes(i int) *Node { return n.Ins[1+i] }

// NumReturnRes reports how many values a Return node returns.
func (n *Node) NumReturnRes() int { return len(n.Ins) - 1 }

// Assert panics with a formatted message if cond is false. Internal
// invariant violations (scratch-link nesting, DVG cycles, out-of-range
// indices) are programmer errors per spec.md §7 and abort the process,
// the same way the teacher's Fatalf does for malformed CFGs.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("firmopt: assertion failed: "+format, args...))
	}
}
