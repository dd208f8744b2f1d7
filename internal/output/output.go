// Package output prints dispatch.Result streams for non-interactive use
// (spec.md §6): one match per line as "path:line:col:text", or grouped
// under a file heading with --heading. Grounded on the teacher's
// internal/output/text.go two-mode (plain vs. heading) printer, trimmed
// to the fields spec.md's CLI actually specifies (no ripgrep-style
// before/after context, no JSON mode — neither appears in spec.md §6's
// CLI table).
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mvrmn/fae/internal/dispatch"
)

// Printer writes a stream of dispatch.Result to an io.Writer in the
// format spec.md §6 describes.
type Printer struct {
	w       *bufio.Writer
	heading bool

	lastFile string
	any      bool
}

// NewPrinter returns a Printer. heading groups results under a per-file
// heading with indented match lines; otherwise each line is fully
// qualified as "path:line:col:text".
func NewPrinter(w io.Writer, heading bool) *Printer {
	return &Printer{w: bufio.NewWriter(w), heading: heading}
}

// Print writes one result line (or heading + indented line).
func (p *Printer) Print(r dispatch.Result) error {
	p.any = true
	text := displayText(r.Display)
	if !p.heading {
		_, err := fmt.Fprintf(p.w, "%s:%d:%d:%s\n", r.File, r.Line, r.Column, text)
		return err
	}
	if r.File != p.lastFile {
		if p.lastFile != "" {
			if _, err := fmt.Fprintln(p.w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(p.w, "%s\n", r.File); err != nil {
			return err
		}
		p.lastFile = r.File
	}
	_, err := fmt.Fprintf(p.w, "  %d:%d:%s\n", r.Line, r.Column, text)
	return err
}

// Diagnostic writes a non-fatal per-query diagnostic (invalid regex,
// timeout, backend exhaustion) in a form distinguishable from a match
// line, per spec.md §7's "diagnostic attached to the otherwise-empty
// stream".
func (p *Printer) Diagnostic(msg string) error {
	_, err := fmt.Fprintf(p.w, "# %s\n", msg)
	return err
}

// Flush flushes buffered output. Callers must call it once after the
// result stream and any diagnostic are written.
func (p *Printer) Flush() error { return p.w.Flush() }

// Any reports whether at least one result was printed.
func (p *Printer) Any() bool { return p.any }

func displayText(d dispatch.Display) string {
	switch d.Kind {
	case dispatch.DisplayContent:
		return d.Content.LineText
	case dispatch.DisplaySymbol:
		return fmt.Sprintf("%s %s", d.Symbol.Kind, d.Symbol.Name)
	case dispatch.DisplayFile:
		return d.File.FileName
	case dispatch.DisplayRegex:
		return d.Regex.LineText
	default:
		return ""
	}
}
