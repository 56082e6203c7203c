// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archdesc is a minimal ports.ArchDescriptor/ports.ABIDescriptor
// pair: a single register class with a fixed register count and a fixed
// number of ABI-reserved registers. Production embeddings describe a
// real machine (AMD64, ARM64, ...); this is the toy stand-in the rest of
// the module is tested against, the same role the teacher's test-only
// Config/Types setup plays for cmd/compile/internal/ssa tests.
package archdesc

import (
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/ports"
)

// GeneralPurpose is the sole register class Simple exposes.
const GeneralPurpose ports.RegisterClass = 0

// Simple describes one register class with NumRegs total registers, of
// which NumIgnored are ABI-reserved (stack/frame pointer and similar).
type Simple struct {
	NumRegs    int
	NumIgnored int
	RegClassFn func(n *ir.Node) ports.RegisterClass
}

func (s *Simple) RegisterClasses() []ports.RegisterClass {
	return []ports.RegisterClass{GeneralPurpose}
}

func (s *Simple) NumRegisters(rc ports.RegisterClass) int { return s.NumRegs }

func (s *Simple) NumIgnoredRegisters(rc ports.RegisterClass) int { return s.NumIgnored }

func (s *Simple) RegClassOf(n *ir.Node) ports.RegisterClass {
	if s.RegClassFn != nil {
		return s.RegClassFn(n)
	}
	return GeneralPurpose
}
