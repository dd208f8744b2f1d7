package walker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, results <-chan Result) []Result {
	t.Helper()
	var all []Result
	for r := range results {
		all = append(all, r)
	}
	return all
}

func pathsOf(results []Result) []string {
	var paths []string
	for _, r := range results {
		if r.Error == nil {
			paths = append(paths, r.RelPath)
		}
	}
	return paths
}

func TestWalker_New_Defaults(t *testing.T) {
	w, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, w)
	require.Equal(t, int64(DefaultMaxFileSize), w.config.MaxFileSize)
}

func TestWalker_DiscoversFilesAndSkipsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n")
	writeFile(t, filepath.Join(dir, "README.md"), "docs\n")
	writeFile(t, filepath.Join(dir, "build", "out.bin"), "binary-ish but short")
	writeFile(t, filepath.Join(dir, ".gitignore"), "build/\n")

	w, err := New(DefaultConfig())
	require.NoError(t, err)

	results, err := w.Walk(dir)
	require.NoError(t, err)

	found := pathsOf(collect(t, results))
	require.Contains(t, found, "main.go")
	require.Contains(t, found, "README.md")
	require.NotContains(t, found, "build/out.bin")
}

func TestWalker_SkipsHiddenByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".secret", "token.txt"), "hidden")
	writeFile(t, filepath.Join(dir, "visible.txt"), "shown")

	w, err := New(DefaultConfig())
	require.NoError(t, err)
	results, err := w.Walk(dir)
	require.NoError(t, err)

	found := pathsOf(collect(t, results))
	require.Contains(t, found, "visible.txt")
	require.NotContains(t, found, ".secret/token.txt")
}

func TestWalker_ExcludesOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.txt")
	big := filepath.Join(dir, "big.txt")
	writeFile(t, small, "tiny")
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0o644))

	cfg := DefaultConfig()
	cfg.MaxFileSize = 16
	w, err := New(cfg)
	require.NoError(t, err)

	results, err := w.Walk(dir)
	require.NoError(t, err)
	found := pathsOf(collect(t, results))
	require.Contains(t, found, "small.txt")
	require.NotContains(t, found, "big.txt")
}

func TestWalker_ExcludesBinaryContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "text.go"), "package main\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}, 0o644))

	w, err := New(DefaultConfig())
	require.NoError(t, err)
	results, err := w.Walk(dir)
	require.NoError(t, err)
	found := pathsOf(collect(t, results))
	require.Contains(t, found, "text.go")
	require.NotContains(t, found, "image.png")
}

func TestWalker_PermissionErrorsReportedDistinctlyNotAsBinary(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are meaningless running as root")
	}

	dir := t.TempDir()
	locked := filepath.Join(dir, "locked.txt")
	writeFile(t, locked, "secret")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o644) })

	w, err := New(DefaultConfig())
	require.NoError(t, err)
	results, err := w.Walk(dir)
	require.NoError(t, err)

	all := collect(t, results)
	var sawPermission bool
	for _, r := range all {
		if r.Path == locked {
			require.Error(t, r.Error)
			require.True(t, r.Permission)
			sawPermission = true
		}
	}
	require.True(t, sawPermission, "expected a permission diagnostic for the locked file")
}

func TestWalker_SymlinkCycleTraversedOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}

	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, filepath.Join(sub, "f.go"), "package sub\n")

	loop := filepath.Join(sub, "loop")
	require.NoError(t, os.Symlink(dir, loop))

	cfg := DefaultConfig()
	cfg.FollowSymlinks = true
	w, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg.Context = ctx

	results, err := w.Walk(dir)
	require.NoError(t, err)

	found := pathsOf(collect(t, results))
	count := 0
	for _, p := range found {
		if p == "sub/f.go" || p == filepath.Join("sub", "f.go") {
			count++
		}
	}
	require.Equal(t, 1, count, "file reachable only through a symlink cycle must be found exactly once")
}

func TestWalker_IncludeIgnoredDisablesFiltering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n")
	writeFile(t, filepath.Join(dir, "app.log"), "log line\n")

	cfg := DefaultConfig()
	cfg.IncludeIgnored = true
	w, err := New(cfg)
	require.NoError(t, err)

	results, err := w.Walk(dir)
	require.NoError(t, err)
	found := pathsOf(collect(t, results))
	require.Contains(t, found, "app.log")
}

func TestWalkSimple(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n")
	writeFile(t, filepath.Join(dir, "b.go"), "package b\n")

	results, err := WalkSimple(dir)
	require.NoError(t, err)
	require.Len(t, results, 2)
}
