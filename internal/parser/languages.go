package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language identifies one of the supported grammars.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangJava       Language = "java"
)

// languageInfo pairs a grammar with the extensions that select it.
type languageInfo struct {
	lang       Language
	sitterLang *sitter.Language
	extensions []string
}

// registry is built once at package init: every grammar the corpus wires,
// regardless of whether every one has a full query set yet (a missing query
// for a language degrades that capture, it never disables the language
// registration itself).
var registry = []languageInfo{
	{LangGo, sitter.NewLanguage(tree_sitter_go.Language()), []string{".go"}},
	{LangPython, sitter.NewLanguage(tree_sitter_python.Language()), []string{".py", ".pyi"}},
	{LangJavaScript, sitter.NewLanguage(tree_sitter_javascript.Language()), []string{".js", ".mjs", ".jsx"}},
	{LangTypeScript, sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), []string{".ts", ".tsx"}},
	{LangRust, sitter.NewLanguage(tree_sitter_rust.Language()), []string{".rs"}},
	{LangC, sitter.NewLanguage(tree_sitter_c.Language()), []string{".c", ".h"}},
	{LangCPP, sitter.NewLanguage(tree_sitter_cpp.Language()), []string{".cpp", ".cc", ".cxx", ".hpp", ".hxx"}},
	{LangJava, sitter.NewLanguage(tree_sitter_java.Language()), []string{".java"}},
}

// LanguageForFile selects a language by file extension. The empty Language
// value means no grammar covers this file.
func LanguageForFile(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	for _, info := range registry {
		for _, e := range info.extensions {
			if e == ext {
				return info.lang
			}
		}
	}
	return ""
}

func sitterLanguage(lang Language) *sitter.Language {
	for _, info := range registry {
		if info.lang == lang {
			return info.sitterLang
		}
	}
	return nil
}

// SupportedLanguages lists every language registered in this process.
func SupportedLanguages() []Language {
	langs := make([]Language, 0, len(registry))
	for _, info := range registry {
		langs = append(langs, info.lang)
	}
	return langs
}
