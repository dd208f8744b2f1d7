package diskstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvrmn/fae/internal/parser"
)

func sampleSymbols() []parser.Symbol {
	return []parser.Symbol{
		{Name: "foo", Kind: parser.KindFunction, File: "a.go", Line: 1, Column: 10},
		{Name: "Bar", Kind: parser.KindClass, File: "b.go", Line: 2, Column: 7},
		{Name: "foo", Kind: parser.KindFunction, File: "b.go", Line: 9, Column: 2},
	}
}

func TestStore_LookupAfterIngest(t *testing.T) {
	s := New()
	s.Ingest(sampleSymbols())

	got := s.Lookup("foo")
	require.Len(t, got, 2)
	assert.Equal(t, "a.go", got[0].File)
	assert.Equal(t, "b.go", got[1].File)

	assert.Nil(t, s.Lookup("nonexistent"))
	assert.Equal(t, 3, s.Len())
}

func TestStore_InvalidateDropsFile(t *testing.T) {
	s := New()
	s.Ingest(sampleSymbols())
	s.Invalidate("a.go")

	got := s.Lookup("foo")
	require.Len(t, got, 1)
	assert.Equal(t, "b.go", got[0].File)
}

func TestStore_IngestReplacesWholeFile(t *testing.T) {
	s := New()
	s.Ingest([]parser.Symbol{{Name: "old", Kind: parser.KindFunction, File: "a.go", Line: 1, Column: 1}})
	s.Ingest([]parser.Symbol{{Name: "new", Kind: parser.KindFunction, File: "a.go", Line: 2, Column: 1}})

	assert.Nil(t, s.Lookup("old"))
	assert.NotNil(t, s.Lookup("new"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New()
	s.Ingest(sampleSymbols())

	path := filepath.Join(t.TempDir(), "symbols.bin")
	require.NoError(t, s.Save(path, 1))

	loaded, err := Load(path, 1)
	require.NoError(t, err)
	assert.Equal(t, s.All(), loaded.All())
}

func TestStore_LoadVersionMismatch(t *testing.T) {
	s := New()
	s.Ingest(sampleSymbols())

	path := filepath.Join(t.TempDir(), "symbols.bin")
	require.NoError(t, s.Save(path, 1))

	_, err := Load(path, 2)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}
