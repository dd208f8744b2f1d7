package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_GoFunctionAndStruct(t *testing.T) {
	e := NewExtractor(2)
	defer e.Close()

	src := []byte("package p\n\nfunc foo() {}\n\ntype Bar struct{}\n")
	syms, err := e.Extract(context.Background(), "x.go", src, LangGo)
	require.NoError(t, err)

	var foo, bar *Symbol
	for i := range syms {
		switch syms[i].Name {
		case "foo":
			foo = &syms[i]
		case "Bar":
			bar = &syms[i]
		}
	}
	require.NotNil(t, foo)
	require.NotNil(t, bar)
	assert.Equal(t, KindFunction, foo.Kind)
	assert.Equal(t, 3, foo.Line)
	assert.Equal(t, KindStruct, bar.Kind)
	assert.Equal(t, 5, bar.Line)
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(2)
	defer e.Close()

	src := []byte("package p\n\nfunc foo() {}\n")
	first, err := e.Extract(context.Background(), "x.go", src, LangGo)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), "x.go", src, LangGo)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtract_DedupesWithinFile(t *testing.T) {
	e := NewExtractor(1)
	defer e.Close()

	src := []byte("package p\n\nfunc foo() {}\n")
	syms, err := e.Extract(context.Background(), "x.go", src, LangGo)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, s := range syms {
		seen[s.Name]++
	}
	assert.Equal(t, 1, seen["foo"])
}

func TestExtract_UnknownLanguage(t *testing.T) {
	e := NewExtractor(1)
	defer e.Close()

	_, err := e.Extract(context.Background(), "x.unknown", []byte("x"), Language("unknown"))
	require.Error(t, err)
}

// TestExtract_RealisticGoFixtures runs the extractor over a small realistic
// Go project (testdata/go) rather than one-liners, checking that every
// file yields at least one symbol and that well-known top-level
// declarations are actually found.
func TestExtract_RealisticGoFixtures(t *testing.T) {
	e := NewExtractor(2)
	defer e.Close()

	entries, err := os.ReadDir("testdata/go")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var all []Symbol
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		path := filepath.Join("testdata", "go", ent.Name())
		src, err := os.ReadFile(path)
		require.NoError(t, err)

		syms, err := e.Extract(context.Background(), path, src, LangGo)
		require.NoError(t, err)
		assert.NotEmptyf(t, syms, "expected symbols from %s", path)
		all = append(all, syms...)
	}

	byName := make(map[string]bool, len(all))
	for _, s := range all {
		byName[s.Name] = true
	}
	assert.True(t, byName["NewServer"], "expected NewServer to be extracted from main.go")
	assert.True(t, byName["ApplicationConfig"], "expected ApplicationConfig struct to be extracted")
}
