// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Block is a basic block: a set of nodes plus the control-flow
// predecessors that feed the block (spec.md §6: Block-cfgpreds(b)).
type Block struct {
	ID    int
	Proc  *Proc
	Nodes []*Node
	// CFGPreds holds the control-predecessor nodes (Jmp/Return/Bad/Sel
	// targeting this block) in arbitrary but stable order.
	CFGPreds []*Node
	Preds    []*Block
	Succs    []*Block
}

func (b *Block) String() string { return blockName(b) }

// AddSucc links b to target as a control-flow successor, recording the
// reverse edge on target as well. The given cfgNode (a Jmp/Return/Bad/Sel
// living in b) becomes one of target's CFGPreds.
func (b *Block) AddSucc(target *Block, cfgNode *Node) {
	b.Succs = append(b.Succs, target)
	target.Preds = append(target.Preds, b)
	target.CFGPreds = append(target.CFGPreds, cfgNode)
}

func blockName(b *Block) string {
	if b == nil {
		return "<nil block>"
	}
	return "b" + itoa(b.ID)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	p := len(buf)
	for i > 0 {
		p--
		buf[p] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		p--
		buf[p] = '-'
	}
	return string(buf[p:])
}

// Entity is the callee reference of a direct Call (spec.md §3). For
// externally declared procedures (Irg == nil) Props is authoritative.
type Entity struct {
	Name     string
	Irg      *Proc
	Props    uint8 // lattice.Set bits; stored as uint8 to avoid an import cycle
	NParams  int
	NResults int
	Compound bool // has a compound (struct-like) parameter
}

// ConsistencyFlag names a piece of derived state a procedure rewrite can
// invalidate (spec.md §4.3, §6: clear-irg-state).
type ConsistencyFlag int

const (
	DominanceInvalid ConsistencyFlag = 1 << iota
	LoopInfoInvalid
)

// Proc is a connected IR subgraph (an "irg" in spec.md §3 terms).
type Proc struct {
	Index      int
	Name       string
	Entry      *Block
	EndBlock   *Block
	InitialMem *Node
	EndNode    *Node // End node; Ins are its keep-alives
	Blocks     []*Block
	Self       *Entity // this procedure's own entity, for self-recursion checks

	Props uint8 // lattice.Set bits (kept as uint8; see lattice.Set)

	invalid ConsistencyFlag

	linkHeld bool
	nextIdx  int

	cachedPostorder []*Block
	cachedSCCs      [][]*Block
	dom             *DomTree
}

// NewProc creates an empty procedure. Callers build it up with NewBlock/
// NewNode.
func NewProc(index int, name string) *Proc {
	return &Proc{Index: index, Name: name}
}

func (p *Proc) NewBlock() *Block {
	b := &Block{ID: len(p.Blocks), Proc: p}
	p.Blocks = append(p.Blocks, b)
	return b
}

// NewNode appends a node to block b, assigning it the next scratch index.
func (p *Proc) NewNode(b *Block, op Opcode, mode Mode, ins ...*Node) *Node {
	n := &Node{Index: p.nextIdx, Op: op, Mode: mode, Ins: ins, Block: b}
	p.nextIdx++
	b.Nodes = append(b.Nodes, n)
	return n
}

// NumNodes returns the number of nodes allocated in this procedure, i.e.
// the size scratch arrays indexed by Node.Index must have.
func (p *Proc) NumNodes() int { return p.nextIdx }

// Nodes returns every node in the procedure in block order.
func (p *Proc) Nodes() []*Node {
	out := make([]*Node, 0, p.nextIdx)
	for _, b := range p.Blocks {
		out = append(out, b.Nodes...)
	}
	return out
}

// Returns yields every Return node among the end block's control-flow
// predecessors.
func (p *Proc) Returns() []*Node {
	var out []*Node
	for _, pred := range p.EndBlock.CFGPreds {
		if pred.Op == OpReturn {
			out = append(out, pred)
		}
	}
	return out
}

// NonReturnEndPreds yields every control-flow predecessor of the end
// block that is not itself a Return (spec.md §4.2 exception classification).
func (p *Proc) NonReturnEndPreds() []*Node {
	var out []*Node
	for _, pred := range p.EndBlock.CFGPreds {
		if pred.Op != OpReturn {
			out = append(out, pred)
		}
	}
	return out
}

// Invalidate marks a piece of derived state stale. A CFG-shape change
// (edge splice, block removal) invalidates LoopInfoInvalid and also
// drops the cached postorder/SCC traversals, since both are computed
// over Block.Succs/Preds and would otherwise silently go stale.
func (p *Proc) Invalidate(f ConsistencyFlag) {
	p.invalid |= f
	if f&LoopInfoInvalid != 0 {
		p.cachedPostorder = nil
		p.cachedSCCs = nil
	}
	if f&DominanceInvalid != 0 {
		p.dom = nil
	}
}
func (p *Proc) IsInvalid(f ConsistencyFlag) bool { return p.invalid&f != 0 }

// RebuildEdgeIndex is the graph-services per-node edge index: it
// populates nothing on Node directly and caches nothing on Proc; it
// returns a fresh OutEdgeIndex (below) built over p's current nodes.
func (p *Proc) RebuildEdgeIndex() *OutEdgeIndex { return NewOutEdgeIndex(p) }

// OutEdgeIndex is a graph-services adapter giving O(1) amortized access
// to a node's out-edges (consumers), something the opaque external IR
// would normally expose directly (spec.md §6: out-edges(n)).
type OutEdgeIndex struct {
	outs [][]*Node // indexed by Node.Index
}

func NewOutEdgeIndex(p *Proc) *OutEdgeIndex {
	idx := &OutEdgeIndex{outs: make([][]*Node, p.NumNodes())}
	for _, n := range p.Nodes() {
		for _, in := range n.Ins {
			idx.outs[in.Index] = append(idx.outs[in.Index], n)
		}
	}
	return idx
}

func (idx *OutEdgeIndex) Outs(n *Node) []*Node { return idx.outs[n.Index] }

// LinkToken is a scoped reservation on a procedure's per-node scratch
// link field. At most one pass may hold it at a time (spec.md §3, §5).
type LinkToken struct {
	proc *Proc
}

// AcquireLink reserves the scratch link field for the duration of one
// analysis pass. Nested acquisition is an assertion failure.
func (p *Proc) AcquireLink() *LinkToken {
	Assert(!p.linkHeld, "nested scratch-link reservation on proc %s", p.Name)
	p.linkHeld = true
	return &LinkToken{proc: p}
}

// Release clears every node's link and frees the reservation. Safe to
// call multiple times and safe to defer unconditionally, so it fires on
// every exit path (success, early return, or assertion panic via
// recover in the caller, if any).
func (t *LinkToken) Release() {
	if t == nil || !t.proc.linkHeld {
		return
	}
	for _, n := range t.proc.Nodes() {
		n.link = nil
	}
	t.proc.linkHeld = false
}

// VisitGen is a per-procedure visited-generation counter: a monotonic
// counter plus a per-node stamp, so a traversal's "visited" test is a
// single integer compare instead of clearing a bool array every time
// (spec.md §5).
type VisitGen struct {
	proc  *Proc
	stamp []int
	gen   int
}

func (p *Proc) NewVisitGen() *VisitGen {
	return &VisitGen{proc: p, stamp: make([]int, p.NumNodes())}
}

// Reset starts a new traversal generation.
func (v *VisitGen) Reset() { v.gen++ }

// Visit marks n visited in the current generation, returning true the
// first time it's called for n since the last Reset.
func (v *VisitGen) Visit(n *Node) bool {
	if v.stamp[n.Index] == v.gen {
		return false
	}
	v.stamp[n.Index] = v.gen
	return true
}

// Visited reports whether n was already visited in the current generation.
func (v *VisitGen) Visited(n *Node) bool { return v.stamp[n.Index] == v.gen }

// RecursionGuard is the process-wide ready/busy bitset pair described in
// spec.md §5, shared for the duration of one optimize_funccalls call.
type RecursionGuard struct {
	busy  []bool
	ready []bool
}

func NewRecursionGuard(n int) *RecursionGuard {
	return &RecursionGuard{busy: make([]bool, n), ready: make([]bool, n)}
}

func (g *RecursionGuard) Busy(i int) bool  { return g.busy[i] }
func (g *RecursionGuard) Ready(i int) bool { return g.ready[i] }

// Enter marks procedure i busy and returns a func that clears it; callers
// defer the returned func so busy is cleared on every return path.
func (g *RecursionGuard) Enter(i int) func() {
	Assert(!g.busy[i], "recursive analysis re-entered procedure %d while busy", i)
	g.busy[i] = true
	return func() { g.busy[i] = false }
}

// MarkReady records top-level completion for procedure i. Never cleared
// between passes: nothrow/malloc results computed in pass A remain
// valid while pass B (const/pure) runs.
func (g *RecursionGuard) MarkReady(i int) { g.ready[i] = true }
