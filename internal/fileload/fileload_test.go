package fileload

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRead_SmallFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	d, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(d.Bytes))
	require.NoError(t, d.Release())
}

func TestRead_LargeFileUsesMmap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "large.go")

	var content bytes.Buffer
	content.WriteString("package main\n\n")
	for content.Len() < mmapThreshold+1024 {
		content.WriteString("// filler line to exceed the mmap threshold\n")
	}
	require.NoError(t, os.WriteFile(path, content.Bytes(), 0o644))

	d, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, content.Len(), len(d.Bytes))
	require.True(t, bytes.Equal(content.Bytes(), d.Bytes))
	require.NoError(t, d.Release())
}

func TestRead_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.go")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	d, err := Read(path)
	require.NoError(t, err)
	require.Empty(t, d.Bytes)
	require.NoError(t, d.Release())
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.go"))
	require.Error(t, err)
}
