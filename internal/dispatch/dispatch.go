// Package dispatch implements the Search Dispatcher of spec.md §4.7: mode
// detection by leading-character prefix, one worker per dispatch, a
// bounded result channel with backpressure, and the "cancel previous,
// await its teardown, start new" sequence spec.md §9 calls for explicitly
// rather than relying on a runtime's implicit cancellation semantics.
//
// The actor loop here is grounded on the teacher's internal/search/engine.go
// coordination style (a long-lived struct fanning work out to per-mode
// searchers over channels); the explicit cancel-then-await handshake and
// the monotonic dispatch-id tagging are new, since the teacher never
// layers more than one search at a time.
package dispatch

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mvrmn/fae/internal/backend"
	"github.com/mvrmn/fae/internal/errs"
	"github.com/mvrmn/fae/internal/parser"
	"github.com/mvrmn/fae/internal/symbolindex"
)

// Mode is the search strategy selected by a query's leading character
// (spec.md §4.7's prefix table).
type Mode int

const (
	ModeContent Mode = iota
	ModeSymbol
	ModeVariable
	ModeFile
	ModeRegex
)

// DetectMode inspects the first non-whitespace character of query and
// returns the selected Mode and the query body with the prefix stripped.
// An empty query (or one with no non-whitespace content) selects
// ModeContent with an empty body.
func DetectMode(query string) (Mode, string) {
	trimmed := strings.TrimLeft(query, " \t")
	if trimmed == "" {
		return ModeContent, ""
	}
	switch trimmed[0] {
	case '#':
		return ModeSymbol, trimmed[1:]
	case '$':
		return ModeVariable, trimmed[1:]
	case '@', '>':
		return ModeFile, trimmed[1:]
	case '/':
		return ModeRegex, trimmed[1:]
	default:
		return ModeContent, trimmed
	}
}

// DisplayKind tags which variant of Display is populated.
type DisplayKind int

const (
	DisplayContent DisplayKind = iota
	DisplaySymbol
	DisplayFile
	DisplayRegex
)

// ContentDisplay is the Display payload for ModeContent results.
type ContentDisplay struct {
	LineText   string
	MatchStart int
	MatchEnd   int
}

// SymbolDisplayData is the Display payload for ModeSymbol/ModeVariable results.
type SymbolDisplayData struct {
	Name string
	Kind parser.SymbolKind
}

// FileDisplay is the Display payload for ModeFile results.
type FileDisplay struct {
	FileName string
}

// RegexDisplay is the Display payload for ModeRegex results.
type RegexDisplay struct {
	LineText    string
	MatchedText string
	MatchStart  int
	MatchEnd    int
}

// Display is the tagged variant spec.md §3 describes: a struct with an
// explicit Kind tag and one populated field, switched on by Kind rather
// than through interface-based subtype polymorphism (spec.md §9).
type Display struct {
	Kind    DisplayKind
	Content ContentDisplay
	Symbol  SymbolDisplayData
	File    FileDisplay
	Regex   RegexDisplay
}

// Result is one match produced by a dispatch.
type Result struct {
	DispatchID uint64
	File       string
	Line       int
	Column     int
	Display    Display
	Score      float64
}

// OutcomeKind enumerates how a dispatch ended (spec.md §7: "Each dispatch
// ends with exactly one of: normal completion, cancelled,
// truncated-at-limit, or failed-with-diagnostic").
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeCancelled
	OutcomeTruncated
	OutcomeFailed
)

// Outcome is the terminal message for a dispatch.
type Outcome struct {
	Kind  OutcomeKind
	Err   error
	Count int
}

// FileLister supplies the path list File mode fuzzy-matches over; the
// dispatcher doesn't own file discovery, it only reads a snapshot of it
// (spec.md: "from the File Discovery listing").
type FileLister interface {
	Files() []string
}

// SoftCap is the default per-dispatch result limit (spec.md §4.7).
const SoftCap = 1000

// resultBuffer is the bounded-channel size; sends block once full,
// applying backpressure rather than dropping results (spec.md §5).
const resultBuffer = 64

// Dispatcher routes queries to the four search strategies, owning the
// "cancel previous, await teardown, start new" sequence and the
// monotonically increasing dispatch id.
type Dispatcher struct {
	index     *symbolindex.Index
	files     FileLister
	backend   *backend.Adapter
	root      string
	limit     int
	threshold float64

	nextID atomic.Uint64

	mu      sync.Mutex
	current *active
}

type active struct {
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// DefaultThreshold is the fuzzy-match cutoff (spec.md §6's `--threshold`
// default): a hit is dropped once its normalized score exceeds this
// fraction. Lower is stricter.
const DefaultThreshold = 0.4

// New returns a Dispatcher rooted at root (used for content/regex
// backend searches). limit <= 0 uses SoftCap.
func New(index *symbolindex.Index, files FileLister, be *backend.Adapter, root string, limit int) *Dispatcher {
	if limit <= 0 {
		limit = SoftCap
	}
	return &Dispatcher{index: index, files: files, backend: be, root: root, limit: limit, threshold: DefaultThreshold}
}

// SetThreshold overrides the fuzzy-match cutoff used by Symbol and
// Variable mode.
func (d *Dispatcher) SetThreshold(t float64) { d.threshold = t }

// Dispatch cancels any prior uncompleted dispatch and awaits its teardown,
// then starts a new one for query, returning its result stream and a
// single-value outcome channel.
func (d *Dispatcher) Dispatch(ctx context.Context, query string) (<-chan Result, <-chan Outcome) {
	d.mu.Lock()
	prev := d.current
	d.mu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	id := d.nextID.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	a := &active{id: id, cancel: cancel, done: make(chan struct{})}

	d.mu.Lock()
	d.current = a
	d.mu.Unlock()

	out := make(chan Result, resultBuffer)
	outcome := make(chan Outcome, 1)

	mode, body := DetectMode(query)

	go func() {
		defer close(a.done)
		defer close(out)
		defer cancel()

		if body == "" {
			outcome <- Outcome{Kind: OutcomeCompleted}
			return
		}

		var o Outcome
		switch mode {
		case ModeSymbol:
			o = d.runFuzzy(runCtx, id, body, nil, out)
		case ModeVariable:
			o = d.runFuzzy(runCtx, id, body, variableKinds, out)
		case ModeFile:
			o = d.runFile(runCtx, id, body, out)
		case ModeRegex:
			o = d.runBackend(runCtx, id, body, backend.Regex, out)
		default:
			o = d.runBackend(runCtx, id, body, backend.Literal, out)
		}
		outcome <- o
	}()

	return out, outcome
}

var variableKinds = map[parser.SymbolKind]bool{
	parser.KindVariable:  true,
	parser.KindConstant:  true,
	parser.KindField:     true,
	parser.KindParameter: true,
}

func (d *Dispatcher) send(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *Dispatcher) runFuzzy(ctx context.Context, id uint64, query string, kinds map[parser.SymbolKind]bool, out chan<- Result) Outcome {
	matches := d.index.FuzzySearch(query, d.limit, kinds, ctx.Done())

	type hit struct {
		sym   parser.Symbol
		score float64
	}
	var hits []hit
	for _, m := range matches {
		denom := len(m.Name)
		if len(query) > denom {
			denom = len(query)
		}
		normalized := 0.0
		if denom > 0 {
			normalized = float64(m.Score) / float64(denom)
		}
		if normalized > d.threshold {
			continue
		}
		for _, sym := range d.index.Resolve(m.Name) {
			hits = append(hits, hit{sym: sym, score: float64(m.Score)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		if hits[i].sym.File != hits[j].sym.File {
			return hits[i].sym.File < hits[j].sym.File
		}
		return hits[i].sym.Line < hits[j].sym.Line
	})

	truncated := false
	if len(hits) > d.limit {
		hits = hits[:d.limit]
		truncated = true
	}

	count := 0
	for _, h := range hits {
		select {
		case <-ctx.Done():
			return Outcome{Kind: OutcomeCancelled, Count: count}
		default:
		}
		r := Result{
			DispatchID: id,
			File:       h.sym.File,
			Line:       h.sym.Line,
			Column:     h.sym.Column,
			Score:      h.score,
			Display:    Display{Kind: DisplaySymbol, Symbol: SymbolDisplayData{Name: h.sym.Name, Kind: h.sym.Kind}},
		}
		if !d.send(ctx, out, r) {
			return Outcome{Kind: OutcomeCancelled, Count: count}
		}
		count++
	}
	if truncated {
		return Outcome{Kind: OutcomeTruncated, Count: count}
	}
	return Outcome{Kind: OutcomeCompleted, Count: count}
}

func (d *Dispatcher) runFile(ctx context.Context, id uint64, query string, out chan<- Result) Outcome {
	files := d.files.Files()

	type hit struct {
		path  string
		score int
	}
	var hits []hit
	for _, f := range files {
		if s, ok := fuzzyScoreSubsequence(query, f); ok {
			hits = append(hits, hit{path: f, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].path < hits[j].path
	})

	truncated := false
	if len(hits) > d.limit {
		hits = hits[:d.limit]
		truncated = true
	}

	count := 0
	for _, h := range hits {
		select {
		case <-ctx.Done():
			return Outcome{Kind: OutcomeCancelled, Count: count}
		default:
		}
		r := Result{
			DispatchID: id,
			File:       h.path,
			Line:       1,
			Column:     1,
			Score:      float64(h.score),
			Display:    Display{Kind: DisplayFile, File: FileDisplay{FileName: h.path}},
		}
		if !d.send(ctx, out, r) {
			return Outcome{Kind: OutcomeCancelled, Count: count}
		}
		count++
	}
	if truncated {
		return Outcome{Kind: OutcomeTruncated, Count: count}
	}
	return Outcome{Kind: OutcomeCompleted, Count: count}
}

// fuzzyScoreSubsequence is a minimal case-insensitive subsequence scorer
// used for File mode, where the candidate set is paths rather than the
// symbol index's unique-name vector (so symbolindex.Index.FuzzySearch
// doesn't apply). Score is the number of extra (unmatched) characters
// consumed to complete the match; lower is better, consistent with
// spec.md §3's score convention.
func fuzzyScoreSubsequence(query, candidate string) (int, bool) {
	q := strings.ToLower(query)
	c := strings.ToLower(candidate)
	qi := 0
	consumed := 0
	for ci := 0; ci < len(c) && qi < len(q); ci++ {
		if c[ci] == q[qi] {
			qi++
		} else {
			consumed++
		}
	}
	if qi != len(q) {
		return 0, false
	}
	return consumed, true
}

func (d *Dispatcher) runBackend(ctx context.Context, id uint64, pattern string, mode backend.Mode, out chan<- Result) Outcome {
	matches, errc, cancel := d.backend.ContentSearch(ctx, pattern, mode, d.root)
	defer cancel()

	count := 0
	for m := range matches {
		if count >= d.limit {
			cancel()
			for range matches {
				// drain so the producer goroutine can observe the
				// cancellation and exit without blocking on a send.
			}
			return Outcome{Kind: OutcomeTruncated, Count: count}
		}
		kind := DisplayContent
		var disp Display
		if mode == backend.Regex {
			kind = DisplayRegex
			disp = Display{Kind: kind, Regex: RegexDisplay{
				LineText: m.Text, MatchedText: matchedSlice(m), MatchStart: m.MatchStart, MatchEnd: m.MatchEnd,
			}}
		} else {
			disp = Display{Kind: kind, Content: ContentDisplay{
				LineText: m.Text, MatchStart: m.MatchStart, MatchEnd: m.MatchEnd,
			}}
		}
		r := Result{DispatchID: id, File: m.File, Line: m.Line, Column: m.Column, Score: 0, Display: disp}
		if !d.send(ctx, out, r) {
			return Outcome{Kind: OutcomeCancelled, Count: count}
		}
		count++
	}

	if err := <-errc; err != nil {
		return Outcome{Kind: OutcomeFailed, Err: classifyBackendErr(err), Count: count}
	}
	if ctx.Err() != nil {
		return Outcome{Kind: OutcomeCancelled, Count: count}
	}
	return Outcome{Kind: OutcomeCompleted, Count: count}
}

// classifyBackendErr tags a terminal backend.ContentSearch error with the
// errs taxonomy's Class (spec.md §7) so the CLI can map it to the right
// exit code and the printed diagnostic carries a class label: a backend
// timeout is ClassTimeout, anything else (invalid pattern, external tool
// exhaustion) is ClassPerQuery, never fatal to the process.
func classifyBackendErr(err error) error {
	if errors.Is(err, backend.ErrTimeout) {
		return errs.Timeout(err)
	}
	return errs.PerQuery(err)
}

func matchedSlice(m backend.Match) string {
	if m.MatchStart < 0 || m.MatchEnd > len(m.Text) || m.MatchStart > m.MatchEnd {
		return ""
	}
	return m.Text[m.MatchStart:m.MatchEnd]
}
