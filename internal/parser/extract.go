package parser

import (
	"context"
	"fmt"
	"runtime"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParserTimeout is the soft wall-clock limit applied to a single file's
// parse (spec.md §5, §9 Open Question #3). The teacher has no equivalent
// timeout; tree-sitter's own Parse call has no cancellation hook, so the
// watchdog below races the parse against a timer on a separate goroutine
// rather than threading a context into the C call.
const ParserTimeout = 2 * time.Second

// ErrParseTimeout is returned when a single file's parse exceeds
// ParserTimeout.
var ErrParseTimeout = fmt.Errorf("parse exceeded %s", ParserTimeout)

type parseResult struct {
	tree *sitter.Tree
	err  error
}

// Extractor extracts symbols from source files using a pool of tree-sitter
// parsers (one per language, sized to the CPU-parallel pool) and a set of
// compiled queries, one fixed set per language (spec.md §4.2, §5).
type Extractor struct {
	pools   *pools
	queries *QueryManager
}

// NewExtractor returns an Extractor sized for concurrent use by up to
// workers goroutines per language. workers <= 0 defaults to
// runtime.GOMAXPROCS(0), matching the CPU-parallel pool spec.md §5
// describes.
func NewExtractor(workers int) *Extractor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Extractor{
		pools:   newPools(workers),
		queries: NewQueryManager(),
	}
}

// Close releases every pooled parser and compiled query. The Extractor
// must not be used after Close returns.
func (e *Extractor) Close() {
	e.pools.closeAll()
	e.queries.Close()
}

// Extract parses bytes as lang and returns the symbol records captured by
// that language's query set. A parser panic or a parse exceeding
// ParserTimeout is reported as an error for this file only; the caller is
// expected to continue with the rest of the batch (spec.md §4.2 failure
// semantics).
func (e *Extractor) Extract(ctx context.Context, path string, bytes []byte, lang Language) ([]Symbol, error) {
	pool, err := e.pools.get(lang)
	if err != nil {
		return nil, err
	}
	p, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire parser for %s: %w", lang, err)
	}

	query, err := e.queries.GetQuery(lang)
	if err != nil {
		pool.release(p)
		return nil, err
	}

	done := make(chan parseResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- parseResult{err: fmt.Errorf("parser panic: %v", r)}
			}
		}()
		tree := p.Parse(bytes, nil)
		done <- parseResult{tree: tree}
	}()

	select {
	case res := <-done:
		pool.release(p)
		if res.err != nil {
			return nil, &ExtractError{Path: path, Err: res.err}
		}
		defer res.tree.Close()
		return e.mine(res.tree, bytes, path, query), nil
	case <-time.After(ParserTimeout):
		go abandonParse(pool, p, done)
		return nil, &ExtractError{Path: path, Err: ErrParseTimeout}
	case <-ctx.Done():
		go abandonParse(pool, p, done)
		return nil, &ExtractError{Path: path, Err: ctx.Err()}
	}
}

// abandonParse waits for a parse goroutine that lost a race against a
// timeout or cancellation to actually finish, then closes the tree it
// produced (if any) and the parser itself rather than recycling either:
// the C parser is still owned by that goroutine until it returns, so
// handing it to another worker concurrently would race on the same
// *sitter.Parser. pool.discard lets a fresh parser take its place.
func abandonParse(pool *parserPool, p *sitter.Parser, done <-chan parseResult) {
	res := <-done
	if res.tree != nil {
		res.tree.Close()
	}
	p.Close()
	pool.discard()
}

// mine walks every query match over tree, turning "<category>.name"
// captures into symbol records. A partial parse (tree-sitter's error
// recovery) is still mined for captures within whatever subtrees it did
// recover, per spec.md §4.2.
func (e *Extractor) mine(tree *sitter.Tree, src []byte, path string, query *sitter.Query) []Symbol {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, tree.RootNode(), src)
	seen := make(map[[4]any]bool)
	var out []Symbol

	for match := matches.Next(); match != nil; match = matches.Next() {
		for _, cap := range match.Captures {
			capName := query.CaptureNames()[cap.Index]
			category, isName := captureCategory(capName)
			if !isName {
				continue
			}
			kind, ok := categoryKind[category]
			if !ok {
				continue
			}

			node := cap.Node
			start := node.StartPosition()
			sym := Symbol{
				Name:    string(src[node.StartByte():node.EndByte()]),
				Kind:    kind,
				File:    path,
				Line:    int(start.Row) + 1,
				Column:  int(start.Column) + 1,
				Context: lineAt(src, int(start.Row)),
			}
			if sym.Name == "" {
				continue
			}
			key := [4]any{sym.Name, sym.Kind, sym.Line, sym.Column}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sym)
		}
	}
	return out
}

// lineAt returns the 0-based row-th line of src as a string, without the
// trailing newline, for the context snippet of a symbol record.
func lineAt(src []byte, row int) string {
	line := 0
	start := 0
	for i, b := range src {
		if line == row {
			start = i
			break
		}
		if b == '\n' {
			line++
		}
	}
	if line != row {
		return ""
	}
	end := start
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return string(src[start:end])
}
