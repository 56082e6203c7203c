// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package funccall

import (
	"github.com/praveenmunagapati/firmopt/debuglog"
	"github.com/praveenmunagapati/firmopt/ir"
	"github.com/praveenmunagapati/firmopt/lattice"
)

// OptimizeFuncCalls is the whole-program entry point named in spec.md
// §6: classify every procedure (Pass A then Pass B, in that order, so
// nothrow/malloc results are available while const/pure runs) and then
// rewrite call sites in every procedure. Idempotent: running it again
// after a prior run reclassifies already-specialized calls (which no
// longer match any callee needing a rewrite) as a no-op.
func OptimizeFuncCalls(procs []*ir.Proc, opts Options, dl *debuglog.Sink) {
	s := NewSolver(procs, opts, dl)

	for _, p := range procs {
		s.classifyNothrowMalloc(p)
	}
	for _, p := range procs {
		s.classifyConstPure(p)
	}

	propOf := func(e *ir.Entity) lattice.Set {
		if e.Irg == nil {
			return propsOf(e)
		}
		return s.nmRes[e.Irg.Index] | s.cpRes[e.Irg.Index]
	}

	for _, p := range procs {
		p.Props = uint8(s.nmRes[p.Index] | s.cpRes[p.Index])
		if p.Self != nil {
			p.Self.Props = p.Props
		}
	}

	for _, p := range procs {
		RewriteCallSites(p, propOf, dl)
	}
}
