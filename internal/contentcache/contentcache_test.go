package contentcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvrmn/fae/internal/parser"
)

func key(path string) Key {
	return Key{Path: path, Hash: parser.HashContent([]byte(path)), Language: parser.LangGo, GrammarVersion: 1}
}

func TestCache_GetPutRoundTrip(t *testing.T) {
	c := New(0)
	syms := []parser.Symbol{{Name: "foo", Kind: parser.KindFunction, File: "a.go", Line: 1, Column: 1}}

	_, ok := c.Get(key("a.go"))
	require.False(t, ok)

	c.Put(key("a.go"), syms)
	got, ok := c.Get(key("a.go"))
	require.True(t, ok)
	assert.Equal(t, syms, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_InvalidateDropsAllHashesForPath(t *testing.T) {
	c := New(0)
	k1 := key("a.go")
	syms := []parser.Symbol{{Name: "foo", Kind: parser.KindFunction, File: "a.go", Line: 1, Column: 1}}
	c.Put(k1, syms)

	c.Invalidate("a.go")
	_, ok := c.Get(k1)
	assert.False(t, ok)
}

func TestCache_EvictsUnderByteBudget(t *testing.T) {
	c := New(1) // tiny budget: every entry, the first included, exceeds it and is evicted
	big := make([]parser.Symbol, 100)
	for i := range big {
		big[i] = parser.Symbol{Name: "x", Kind: parser.KindVariable, File: "f.go", Line: i + 1, Column: 1}
	}
	c.Put(key("a.go"), big)
	c.Put(key("b.go"), big)

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Used, int64(entrySize(big)+1))
}
