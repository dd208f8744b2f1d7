package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvrmn/fae/internal/dispatch"
)

func contentResult(file string, line int) dispatch.Result {
	return dispatch.Result{
		File: file, Line: line, Column: 3,
		Display: dispatch.Display{Kind: dispatch.DisplayContent, Content: dispatch.ContentDisplay{LineText: "hello world"}},
	}
}

func TestPrinter_PlainFormat(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	require.NoError(t, p.Print(contentResult("a.go", 5)))
	require.NoError(t, p.Flush())
	assert.Equal(t, "a.go:5:3:hello world\n", buf.String())
}

func TestPrinter_HeadingGroupsByFile(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	require.NoError(t, p.Print(contentResult("a.go", 1)))
	require.NoError(t, p.Print(contentResult("a.go", 2)))
	require.NoError(t, p.Print(contentResult("b.go", 1)))
	require.NoError(t, p.Flush())

	assert.Equal(t, "a.go\n  1:3:hello world\n  2:3:hello world\n\nb.go\n  1:3:hello world\n", buf.String())
}

func TestPrinter_Any(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	assert.False(t, p.Any())
	_ = p.Print(contentResult("a.go", 1))
	assert.True(t, p.Any())
}
