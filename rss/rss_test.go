// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rss

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/praveenmunagapati/firmopt/debuglog"
	"github.com/praveenmunagapati/firmopt/internal/archdesc"
	"github.com/praveenmunagapati/firmopt/internal/match"
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/ports"
)

// buildChain builds a straight-line block entry: v1 -> v2 -> v3 -> Return,
// a simple three-node interesting set with one real dependency chain.
func buildChain(t *testing.T) (*ir.Proc, *ir.Block, []*ir.Node) {
	b := ir.NewBuilder(0, "chain")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	v1 := b.Val("entry", ir.OpAdd, ir.DataMode(0))
	v2 := b.Val("entry", ir.OpAdd, ir.DataMode(0), v1)
	v3 := b.Val("entry", ir.OpAdd, ir.DataMode(0), v2)
	b.Ret("entry", mem, v3)
	proc := b.End()
	return proc, b.Blk("entry"), []*ir.Node{v1, v2, v3}
}

func TestBuildBlockInfoConsumersAndDescendants(t *testing.T) {
	proc, blk, vs := buildChain(t)
	arch := &archdesc.Simple{NumRegs: 4}
	idx := ir.NewOutEdgeIndex(proc)
	bi := BuildBlockInfo(blk, archdesc.GeneralPurpose, arch, idx)

	assert.ElementsMatch(t, vs, bi.interesting)

	v1i := bi.infoOf(vs[0])
	assert.Len(t, v1i.consumers, 1)
	assert.Equal(t, vs[1], v1i.consumers[0].node)
	assert.ElementsMatch(t, []*ir.Node{vs[1], vs[2], proc.Returns()[0]}, realNodes(v1i.descendants), "the in-block Return consuming v3 is a descendant too")
	assert.False(t, v1i.liveOut, "v1's only use is in-block")
}

func TestBuildPKGEveryNodeTriviallyKillsItself(t *testing.T) {
	proc, blk, vs := buildChain(t)
	arch := &archdesc.Simple{NumRegs: 4}
	idx := ir.NewOutEdgeIndex(proc)
	bi := BuildBlockInfo(blk, archdesc.GeneralPurpose, arch, idx)
	BuildPKG(bi)

	for _, v := range vs {
		ni := bi.infoOf(v)
		assert.Contains(t, ni.potentialKillers, v, "consumers(u) is always a subset of descendants(u) union {u}")
	}
}

func TestAssignKillersGivesEveryNodeAKiller(t *testing.T) {
	proc, blk, vs := buildChain(t)
	arch := &archdesc.Simple{NumRegs: 4}
	idx := ir.NewOutEdgeIndex(proc)
	bi := BuildBlockInfo(blk, archdesc.GeneralPurpose, arch, idx)
	BuildPKG(bi)
	AssignKillers(bi)

	for _, v := range vs {
		ni := bi.infoOf(v)
		if ni.killer.sink {
			continue
		}
		assert.Contains(t, ni.potentialKillers, ni.killer.node, "the assigned killer must have been a potential killer")
	}
}

func TestChainPartitionCoversEveryInterestingNode(t *testing.T) {
	proc, blk, vs := buildChain(t)
	arch := &archdesc.Simple{NumRegs: 4}
	idx := ir.NewOutEdgeIndex(proc)
	bi := BuildBlockInfo(blk, archdesc.GeneralPurpose, arch, idx)
	BuildPKG(bi)
	AssignKillers(bi)
	d := BuildDVG(bi)
	d.BuildPKillers()

	chains := ChainPartition(bi, d, func(nl, nr int) ports.Matcher { return match.New(nl, nr) })

	covered := map[*ir.Node]bool{}
	for _, c := range chains {
		for _, n := range c.nodes {
			assert.False(t, covered[n], "a node must belong to exactly one chain")
			covered[n] = true
		}
	}
	for _, v := range vs {
		assert.True(t, covered[v])
	}

	v := MaximalAntichain(bi, d, chains)
	assert.LessOrEqual(t, len(v), len(vs))
	assert.GreaterOrEqual(t, len(v), 1)
}

func TestPrepareReportsSaturationWithinOrEqualInterestingCount(t *testing.T) {
	proc, _, vs := buildChain(t)
	arch := &archdesc.Simple{NumRegs: 2, NumIgnored: 0}
	reports := Prepare(proc, arch, arch, nil, debuglog.New(0))

	assert.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, 2, r.AvailableRegs)
	assert.LessOrEqual(t, r.Saturation, len(vs))
	assert.GreaterOrEqual(t, r.Saturation, 0)
}

func TestPrepareSkipsBlocksWithNoInterestingNodes(t *testing.T) {
	b := ir.NewBuilder(0, "empty")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	b.Ret("entry", mem)
	proc := b.End()

	arch := &archdesc.Simple{NumRegs: 4}
	reports := Prepare(proc, arch, arch, nil, debuglog.New(0))
	assert.Empty(t, reports)
}
