// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debuglog generalizes the teacher's f.pass.debug verbosity
// level and f.LogStat key/value stat emission (likelyadjust.go) into a
// small per-module mask, matching spec.md §6's "debug-log sink with
// per-module mask." No third-party logging library is wired: the
// teacher never reaches for one (see SPEC_FULL.md §1), and the one pack
// repo that does (kanso-lang, tliron/commonlog) uses it for LSP
// request/response tracing, a concern with no component here.
package debuglog

import (
	"fmt"
	"log"
	"os"
)

// Module is one bit of the debug mask.
type Module uint32

const (
	ModuleFuncCall Module = 1 << iota
	ModuleRSS
	ModulePKG
	ModuleKiller
	ModuleDVG
	ModuleSerialize
)

var moduleNames = map[Module]string{
	ModuleFuncCall:  "funccall",
	ModuleRSS:       "rss",
	ModulePKG:       "pkg",
	ModuleKiller:    "killer",
	ModuleDVG:       "dvg",
	ModuleSerialize: "serialize",
}

func (m Module) String() string {
	if n, ok := moduleNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Module(%d)", uint32(m))
}

// Sink is the one user-visible channel out of the analyses (spec.md §7):
// everything else is a silent lattice degradation or an assertion panic.
type Sink struct {
	mask   Module
	logger *log.Logger
}

// New builds a Sink enabled for the given modules. A nil/zero mask is
// the common case and costs nothing beyond the mask check.
func New(mask Module) *Sink {
	return &Sink{mask: mask, logger: log.New(os.Stderr, "", 0)}
}

// Enabled reports whether m is turned on in this sink's mask, the
// direct analogue of the teacher's `f.pass.debug > regDebug` check.
func (s *Sink) Enabled(m Module) bool {
	return s != nil && s.mask&m != 0
}

// Printf logs a line if m is enabled.
func (s *Sink) Printf(m Module, format string, args ...any) {
	if !s.Enabled(m) {
		return
	}
	s.logger.Printf("[%s] "+format, append([]any{m}, args...)...)
}

// Stat emits a structured key/value stat line, the same shape as the
// teacher's f.LogStat(prefix, v1, k1, v2, k2, ...).
func (s *Sink) Stat(m Module, prefix string, kvs ...any) {
	if !s.Enabled(m) {
		return
	}
	line := prefix
	for i := 0; i+1 < len(kvs); i += 2 {
		line += fmt.Sprintf(" %v=%v", kvs[i+1], kvs[i])
	}
	s.logger.Println(line)
}
