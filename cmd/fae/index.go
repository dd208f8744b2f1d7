package main

import (
	"fmt"
	"io"

	"github.com/mvrmn/fae/internal/coordinator"
)

// printIndexSummary prints the final coordinator.State after a --index
// build, grounded on the teacher's cmd/codegrep/index.go summary printer
// but reporting the index build state machine of spec.md §3 instead of
// the teacher's ripgrep-compatibility counters.
func printIndexSummary(w io.Writer, engine *Engine) {
	s := engine.Coordinator().Snapshot()
	fmt.Fprintf(w, "phase:        %s\n", s.Phase)
	fmt.Fprintf(w, "files seen:   %d\n", s.FilesSeen)
	fmt.Fprintf(w, "files done:   %d/%d\n", s.FilesDone, s.FilesTotal)
	fmt.Fprintf(w, "symbols:      %d\n", s.Symbols)
	fmt.Fprintf(w, "bytes cached: %d\n", s.BytesCached)
	fmt.Fprintf(w, "duration:     %s\n", s.Duration)
	if s.Phase == coordinator.PhaseFailed {
		fmt.Fprintf(w, "reason:       %s\n", s.Reason)
	}
}
