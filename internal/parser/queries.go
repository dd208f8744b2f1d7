package parser

import (
	"fmt"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// querySource holds one fixed set of tree-pattern queries per language,
// combined into a single compiled sitter.Query (tree-sitter supports many
// patterns per query). Each pattern captures a name node tagged
// "<category>.name"; category maps directly to a SymbolKind.
var querySource = map[Language]string{
	LangGo: `
		(function_declaration name: (identifier) @function.name) @function.def
		(method_declaration name: (field_identifier) @method.name) @method.def
		(type_declaration (type_spec name: (type_identifier) @struct.name type: (struct_type))) @struct.def
		(type_declaration (type_spec name: (type_identifier) @interface.name type: (interface_type))) @interface.def
		(type_declaration (type_spec name: (type_identifier) @typealias.name type: (type_identifier))) @typealias.def
		(var_declaration (var_spec name: (identifier) @variable.name)) @variable.def
		(const_declaration (const_spec name: (identifier) @constant.name)) @constant.def
		(parameter_declaration name: (identifier) @parameter.name) @parameter.def
		(field_declaration name: (field_identifier) @field.name) @field.def
	`,
	LangPython: `
		(function_definition name: (identifier) @function.name) @function.def
		(class_definition name: (identifier) @class.name) @class.def
		(assignment left: (identifier) @variable.name) @variable.def
		(parameters (identifier) @parameter.name) @parameter.def
	`,
	LangJavaScript: `
		(function_declaration name: (identifier) @function.name) @function.def
		(class_declaration name: (identifier) @class.name) @class.def
		(method_definition name: (property_identifier) @method.name) @method.def
		(variable_declarator name: (identifier) @variable.name) @variable.def
		(formal_parameters (identifier) @parameter.name) @parameter.def
	`,
	LangTypeScript: `
		(function_declaration name: (identifier) @function.name) @function.def
		(class_declaration name: (type_identifier) @class.name) @class.def
		(method_definition name: (property_identifier) @method.name) @method.def
		(variable_declarator name: (identifier) @variable.name) @variable.def
		(formal_parameters (required_parameter pattern: (identifier) @parameter.name)) @parameter.def
		(interface_declaration name: (type_identifier) @interface.name) @interface.def
		(type_alias_declaration name: (type_identifier) @typealias.name) @typealias.def
		(enum_declaration name: (identifier) @enum.name) @enum.def
	`,
	LangRust: `
		(function_item name: (identifier) @function.name) @function.def
		(struct_item name: (type_identifier) @struct.name) @struct.def
		(enum_item name: (type_identifier) @enum.name) @enum.def
		(trait_item name: (type_identifier) @interface.name) @interface.def
		(let_declaration pattern: (identifier) @variable.name) @variable.def
		(const_item name: (identifier) @constant.name) @constant.def
		(type_item name: (type_identifier) @typealias.name) @typealias.def
		(field_declaration name: (field_identifier) @field.name) @field.def
	`,
	LangC: `
		(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function.def
		(struct_specifier name: (type_identifier) @struct.name) @struct.def
		(enum_specifier name: (type_identifier) @enum.name) @enum.def
		(declaration declarator: (init_declarator declarator: (identifier) @variable.name)) @variable.def
		(field_declaration declarator: (field_identifier) @field.name) @field.def
	`,
	LangCPP: `
		(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function.def
		(class_specifier name: (type_identifier) @class.name) @class.def
		(struct_specifier name: (type_identifier) @struct.name) @struct.def
		(enum_specifier name: (type_identifier) @enum.name) @enum.def
		(field_declaration declarator: (field_identifier) @field.name) @field.def
	`,
	LangJava: `
		(method_declaration name: (identifier) @method.name) @method.def
		(class_declaration name: (identifier) @class.name) @class.def
		(interface_declaration name: (identifier) @interface.name) @interface.def
		(enum_declaration name: (identifier) @enum.name) @enum.def
		(field_declaration declarator: (variable_declarator name: (identifier) @field.name)) @field.def
		(local_variable_declaration declarator: (variable_declarator name: (identifier) @variable.name)) @variable.def
		(formal_parameter name: (identifier) @parameter.name) @parameter.def
	`,
}

// categoryKind maps a query capture category to the SymbolKind it names.
var categoryKind = map[string]SymbolKind{
	"function":  KindFunction,
	"method":    KindMethod,
	"class":     KindClass,
	"struct":    KindStruct,
	"interface": KindInterface,
	"enum":      KindEnum,
	"variable":  KindVariable,
	"constant":  KindConstant,
	"typealias": KindTypeAlias,
	"field":     KindField,
	"parameter": KindParameter,
}

// QueryManager compiles and caches the per-language query set. Compilation
// is lazy and double-checked-locked: most languages are compiled once, on
// the first file of that language seen by the process.
type QueryManager struct {
	mu    sync.RWMutex
	cache map[Language]*sitter.Query
}

// NewQueryManager returns an empty query manager ready for use.
func NewQueryManager() *QueryManager {
	return &QueryManager{cache: make(map[Language]*sitter.Query)}
}

// GetQuery returns the compiled query for lang, compiling and caching it on
// first use. A compilation failure is fatal for that language's support, per
// the extraction contract; it is never retried with a different query.
func (qm *QueryManager) GetQuery(lang Language) (*sitter.Query, error) {
	qm.mu.RLock()
	q, ok := qm.cache[lang]
	qm.mu.RUnlock()
	if ok {
		return q, nil
	}

	qm.mu.Lock()
	defer qm.mu.Unlock()
	if q, ok = qm.cache[lang]; ok {
		return q, nil
	}

	src, ok := querySource[lang]
	if !ok {
		return nil, fmt.Errorf("no query set registered for language %q", lang)
	}
	sl := sitterLanguage(lang)
	if sl == nil {
		return nil, fmt.Errorf("no grammar registered for language %q", lang)
	}

	compiled, qerr := sitter.NewQuery(sl, src)
	if qerr != nil {
		return nil, fmt.Errorf("compile query for %s: %s", lang, qerr.Message)
	}
	qm.cache[lang] = compiled
	return compiled, nil
}

// Close releases every compiled query. The manager must not be used after
// Close returns.
func (qm *QueryManager) Close() {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	for lang, q := range qm.cache {
		q.Close()
		delete(qm.cache, lang)
	}
}

// captureCategory splits a dotted capture name at its first dot and returns
// the category before it, with isName true when the part after it is "name".
// A name without a dot yields ("", false).
func captureCategory(name string) (category string, isName bool) {
	category, field, found := strings.Cut(name, ".")
	if !found {
		return "", false
	}
	return category, field == "name"
}
