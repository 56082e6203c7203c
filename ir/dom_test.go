// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDominatorsDiamond(t *testing.T) {
	b := NewBuilder(0, "diamond")
	entry := b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	left := b.Goto("entry", "left")
	right := b.Goto("entry", "right")
	_ = left
	_ = right
	b.Goto("left", "join")
	b.Goto("right", "join")
	b.Ret("join", mem)
	proc := b.End()

	dom := proc.Dominators()
	joinBlk := b.Blk("join")
	leftBlk := b.Blk("left")
	rightBlk := b.Blk("right")

	assert.Equal(t, entry, dom.IDom(joinBlk), "join is reached from two paths, so only entry dominates it")
	assert.Equal(t, entry, dom.IDom(leftBlk))
	assert.Equal(t, entry, dom.IDom(rightBlk))
	assert.Nil(t, dom.IDom(entry))
	assert.True(t, dom.Dominates(entry, joinBlk))
	assert.False(t, dom.Dominates(leftBlk, joinBlk), "left alone does not dominate join")
}

func TestDominatorsStraightLine(t *testing.T) {
	b := NewBuilder(0, "straight")
	entry := b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	b.Goto("entry", "mid")
	b.Goto("mid", "tail")
	b.Ret("tail", mem)
	proc := b.End()

	dom := proc.Dominators()
	mid := b.Blk("mid")
	tail := b.Blk("tail")

	assert.Equal(t, entry, dom.IDom(mid))
	assert.Equal(t, mid, dom.IDom(tail))
	assert.True(t, dom.Dominates(entry, tail))
}

func TestDominatorsRecomputeAfterInvalidate(t *testing.T) {
	b := NewBuilder(0, "recompute")
	b.SetEntry("entry")
	b.SetEnd("exit")
	mem := b.InitMem("entry")
	b.Ret("entry", mem)
	proc := b.End()

	first := proc.Dominators()
	proc.Invalidate(DominanceInvalid)
	second := proc.Dominators()
	assert.NotSame(t, first, second, "invalidation must force a fresh computation")
}
