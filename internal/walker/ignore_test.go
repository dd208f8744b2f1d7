package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIgnoreManager_BasicGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\nbuild/\n")

	im, err := NewIgnoreManager()
	require.NoError(t, err)
	require.NoError(t, im.LoadFromPath(dir))

	require.True(t, im.ShouldIgnore("app.log", false))
	require.True(t, im.ShouldIgnore("nested/app.log", false))
	require.False(t, im.ShouldIgnore("app.go", false))
	require.True(t, im.ShouldIgnore("build", true))
	require.True(t, im.ShouldIgnore("build/out.bin", false))
}

func TestIgnoreManager_Negation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n!keep.log\n")

	im, err := NewIgnoreManager()
	require.NoError(t, err)
	require.NoError(t, im.LoadFromPath(dir))

	require.True(t, im.ShouldIgnore("app.log", false))
	require.False(t, im.ShouldIgnore("keep.log", false))
}

func TestIgnoreManager_AnchoredVsUnanchored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "/only-root.txt\nanywhere.txt\n")

	im, err := NewIgnoreManager()
	require.NoError(t, err)
	require.NoError(t, im.LoadFromPath(dir))

	require.True(t, im.ShouldIgnore("only-root.txt", false))
	require.False(t, im.ShouldIgnore("nested/only-root.txt", false))

	require.True(t, im.ShouldIgnore("anywhere.txt", false))
	require.True(t, im.ShouldIgnore("nested/deep/anywhere.txt", false))
}

func TestIgnoreManager_NestedGitignoreOverridesAncestor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.tmp\n")
	writeFile(t, filepath.Join(dir, "sub", ".gitignore"), "!keep.tmp\n")

	im := NewIgnoreMatcher(false)
	im.LoadAncestors(filepath.Join(dir, "sub"))

	require.True(t, im.ShouldIgnore("sub/other.tmp", false))
	require.False(t, im.ShouldIgnore("sub/keep.tmp", false))
}

func TestIgnoreManager_DisabledNeverIgnores(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*\n")

	im := NewIgnoreMatcher(true)
	im.LoadAncestors(dir)
	require.False(t, im.ShouldIgnore("anything.go", false))
}

func TestIgnoreManager_AddRule(t *testing.T) {
	im, err := NewIgnoreManager()
	require.NoError(t, err)
	require.NoError(t, im.AddRule("*.generated.go"))
	require.True(t, im.ShouldIgnore("models.generated.go", false))
	require.False(t, im.ShouldIgnore("models.go", false))
}

func TestIgnoreManager_InvalidPatternSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "[\n*.ok\n")

	im, err := NewIgnoreManager()
	require.NoError(t, err)
	require.NoError(t, im.LoadFromPath(dir))
	require.True(t, im.ShouldIgnore("x.ok", false))
}
