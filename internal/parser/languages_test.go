package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageForFile(t *testing.T) {
	cases := map[string]Language{
		"main.go":     LangGo,
		"script.py":   LangPython,
		"app.js":      LangJavaScript,
		"app.tsx":     LangTypeScript,
		"lib.rs":      LangRust,
		"x.c":         LangC,
		"x.cpp":       LangCPP,
		"Main.java":   LangJava,
		"README.md":   "",
		"noext":       "",
	}
	for path, want := range cases {
		assert.Equal(t, want, LanguageForFile(path), path)
	}
}

func TestSupportedLanguages(t *testing.T) {
	langs := SupportedLanguages()
	assert.Contains(t, langs, LangGo)
	assert.Contains(t, langs, LangPython)
	assert.Contains(t, langs, LangTypeScript)
	assert.Contains(t, langs, LangRust)
	assert.Len(t, langs, 8)
}

func TestSitterLanguageUnknown(t *testing.T) {
	assert.Nil(t, sitterLanguage(Language("nope")))
}
