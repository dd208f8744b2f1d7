package parser

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// parserPool is a channel-backed pool of tree-sitter parsers for a single
// language, sized to the number of extraction workers so concurrent
// extraction never serializes on a single *sitter.Parser.
type parserPool struct {
	pool    chan *sitter.Parser
	lang    Language
	ts      *sitter.Language
	maxSize int

	mu      sync.Mutex
	created int
}

func newParserPool(lang Language, ts *sitter.Language, maxSize int) *parserPool {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &parserPool{
		pool:    make(chan *sitter.Parser, maxSize),
		lang:    lang,
		ts:      ts,
		maxSize: maxSize,
	}
}

// acquire returns a parser from the pool, creating one lazily up to
// maxSize, or blocking for a release once that cap is reached.
func (p *parserPool) acquire() (*sitter.Parser, error) {
	select {
	case parser := <-p.pool:
		return parser, nil
	default:
	}

	p.mu.Lock()
	if p.created < p.maxSize {
		parser := sitter.NewParser()
		if err := parser.SetLanguage(p.ts); err != nil {
			p.mu.Unlock()
			return nil, fmt.Errorf("set language %s: %w", p.lang, err)
		}
		p.created++
		p.mu.Unlock()
		return parser, nil
	}
	p.mu.Unlock()

	return <-p.pool, nil
}

// release returns parser to the pool for reuse. A parser that doesn't fit
// (shouldn't happen with balanced acquire/release) is closed instead of
// leaked.
func (p *parserPool) release(parser *sitter.Parser) {
	if parser == nil {
		return
	}
	select {
	case p.pool <- parser:
	default:
		parser.Close()
	}
}

// discard permanently removes one parser from this pool's accounting
// without returning it, letting a future acquire create a replacement.
// Used when a parser can't safely be recycled (its parse goroutine is
// still running after a timeout or cancellation).
func (p *parserPool) discard() {
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
}

func (p *parserPool) closeAll() {
	close(p.pool)
	for parser := range p.pool {
		parser.Close()
	}
}

// pools manages one parserPool per language, created on first use.
type pools struct {
	mu      sync.Mutex
	byLang  map[Language]*parserPool
	maxSize int
}

func newPools(maxSize int) *pools {
	return &pools{byLang: make(map[Language]*parserPool), maxSize: maxSize}
}

func (p *pools) get(lang Language) (*parserPool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pp, ok := p.byLang[lang]; ok {
		return pp, nil
	}
	sl := sitterLanguage(lang)
	if sl == nil {
		return nil, fmt.Errorf("no grammar registered for language %q", lang)
	}
	pp := newParserPool(lang, sl, p.maxSize)
	p.byLang[lang] = pp
	return pp, nil
}

func (p *pools) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pp := range p.byLang {
		pp.closeAll()
	}
	p.byLang = make(map[Language]*parserPool)
}
