// Package walker provides gitignore support for file system traversal.
package walker

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreRule represents a single ignore rule, parsed gitignore-style but
// matched with doublestar glob semantics rather than a hand-rolled regex
// translation.
type IgnoreRule struct {
	Pattern  string // original pattern, as written in the ignore file
	Glob     string // doublestar-compatible glob derived from Pattern
	Negate   bool   // starts with "!"
	DirOnly  bool   // ends with "/"
	Anchored bool   // rooted to BaseDir rather than matching at any depth
	BaseDir  string
	LineNum  int
	Source   string
}

// IgnoreFile represents a single loaded ignore file and its rules.
type IgnoreFile struct {
	Path  string
	Dir   string
	Rules []*IgnoreRule
}

// IgnoreManager manages ignore rules across every .gitignore/.faeignore file
// found from a walk root up to the filesystem root, plus the user's global
// gitignore.
type IgnoreManager struct {
	files   []*IgnoreFile
	cache   sync.Map
	mu      sync.RWMutex
	enabled bool
}

// NewIgnoreManager creates an empty, enabled ignore manager.
func NewIgnoreManager() (*IgnoreManager, error) {
	return &IgnoreManager{enabled: true}, nil
}

// NewIgnoreMatcher is the constructor used by Walker; enabled mirrors
// Config.IncludeIgnored negated (disabled entirely when the caller asked to
// include ignored files).
func NewIgnoreMatcher(includeIgnored bool) *IgnoreManager {
	im, _ := NewIgnoreManager()
	im.enabled = !includeIgnored
	return im
}

// LoadAncestors loads ignore files from root up to the filesystem root, plus
// the global gitignore. It is a thin wrapper over LoadFromPath, which
// Walker.Walk calls directly once per walk.
func (im *IgnoreManager) LoadAncestors(root string) { _ = im.LoadFromPath(root) }

// loadDir loads any ignore file directly inside dir that has not already
// been loaded. Called as the walk descends so nested .gitignore files take
// effect without a second filesystem pass.
func (im *IgnoreManager) loadDir(dir string) {
	im.mu.Lock()
	defer im.mu.Unlock()
	for _, name := range []string{".gitignore", ".faeignore"} {
		path := filepath.Join(dir, name)
		loaded := false
		for _, f := range im.files {
			if f.Path == path {
				loaded = true
				break
			}
		}
		if loaded {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			if ignoreFile, err := im.loadIgnoreFile(path); err == nil {
				im.files = append(im.files, ignoreFile)
				im.cache = sync.Map{}
			}
		}
	}
}

// LoadFromPath loads ignore rules from .gitignore and .faeignore files
// starting from root and walking up the directory tree, plus the global
// gitignore.
func (im *IgnoreManager) LoadFromPath(root string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.files = im.files[:0]
	im.cache = sync.Map{}

	// Files are kept outermost first (global, then the farthest ancestor
	// down to root) so that, under last-match-wins, nearer files override.
	var chain []*IgnoreFile
	current := root
	for {
		var here []*IgnoreFile
		for _, name := range []string{".gitignore", ".faeignore"} {
			path := filepath.Join(current, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				if ignoreFile, err := im.loadIgnoreFile(path); err == nil {
					here = append(here, ignoreFile)
				}
			}
		}
		chain = append(here, chain...)

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	if globalPath := getGlobalGitignore(); globalPath != "" {
		if info, err := os.Stat(globalPath); err == nil && !info.IsDir() {
			if ignoreFile, err := im.loadIgnoreFile(globalPath); err == nil {
				chain = append([]*IgnoreFile{ignoreFile}, chain...)
			}
		}
	}

	im.files = append(im.files, chain...)
	return nil
}

func (im *IgnoreManager) loadIgnoreFile(path string) (*IgnoreFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ignoreFile := &IgnoreFile{Path: path, Dir: filepath.Dir(path)}

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := im.parseRule(line, ignoreFile.Dir, lineNum, path)
		if err != nil {
			continue
		}
		ignoreFile.Rules = append(ignoreFile.Rules, rule)
	}
	return ignoreFile, scanner.Err()
}

// parseRule parses a single gitignore-syntax line into an IgnoreRule with a
// doublestar glob, validated with doublestar.ValidatePattern so a malformed
// line is skipped rather than silently never matching.
func (im *IgnoreManager) parseRule(pattern, baseDir string, lineNum int, source string) (*IgnoreRule, error) {
	original := pattern

	rule := &IgnoreRule{Pattern: original, BaseDir: baseDir, LineNum: lineNum, Source: source}

	if strings.HasPrefix(pattern, "!") {
		rule.Negate = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		rule.DirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		rule.Anchored = true
		pattern = pattern[1:]
	} else if strings.Contains(pattern, "/") {
		rule.Anchored = true
	}

	glob := pattern
	if !rule.Anchored {
		glob = "**/" + pattern
	}
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid ignore pattern %q", original)
	}
	rule.Glob = glob
	return rule, nil
}

// ShouldIgnore reports whether relPath (slash-separated, relative to the
// walk root) is excluded by any loaded rule. Later rules override earlier
// ones, matching gitignore's own last-match-wins precedence.
func (im *IgnoreManager) ShouldIgnore(relPath string, isDir bool) bool {
	if !im.enabled {
		return false
	}

	cacheKey := relPath + ":" + boolKey(isDir)
	if cached, ok := im.cache.Load(cacheKey); ok {
		return cached.(bool)
	}

	im.mu.RLock()
	files := make([]*IgnoreFile, len(im.files))
	copy(files, im.files)
	im.mu.RUnlock()

	path := filepath.ToSlash(relPath)
	ignored := false
	for _, ignoreFile := range files {
		for _, rule := range ignoreFile.Rules {
			if ruleMatches(rule, path, isDir) {
				ignored = !rule.Negate
			}
		}
	}

	im.cache.Store(cacheKey, ignored)
	return ignored
}

func ruleMatches(rule *IgnoreRule, path string, isDir bool) bool {
	if rule.DirOnly && !isDir {
		// A directory-only rule can still exclude files underneath an
		// ignored directory; check whether path is nested inside a
		// matching directory prefix.
		parts := strings.Split(path, "/")
		for i := 1; i < len(parts); i++ {
			prefix := strings.Join(parts[:i], "/")
			if ok, _ := doublestar.Match(rule.Glob, prefix); ok {
				return true
			}
		}
		return false
	}

	ok, _ := doublestar.Match(rule.Glob, path)
	if ok {
		return true
	}
	// Non-anchored directory rules also cover everything nested beneath
	// them even though the glob only matched the directory itself.
	if rule.DirOnly {
		parts := strings.Split(path, "/")
		for i := 1; i <= len(parts); i++ {
			prefix := strings.Join(parts[:i], "/")
			if ok, _ := doublestar.Match(rule.Glob, prefix); ok {
				return true
			}
		}
	}
	return false
}

func boolKey(b bool) string {
	if b {
		return "d"
	}
	return "f"
}

// AddRule adds a single extra ignore pattern, e.g. from a CLI --exclude flag.
func (im *IgnoreManager) AddRule(pattern string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	rule, err := im.parseRule(pattern, "", 0, "custom")
	if err != nil {
		return err
	}
	im.files = append(im.files, &IgnoreFile{Path: "custom", Rules: []*IgnoreRule{rule}})
	im.cache = sync.Map{}
	return nil
}

// SetEnabled toggles ignore processing entirely.
func (im *IgnoreManager) SetEnabled(enabled bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.enabled = enabled
	im.cache = sync.Map{}
}

func getGlobalGitignore() string {
	if path := os.Getenv("GIT_CONFIG_GLOBAL"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{
		filepath.Join(home, ".gitignore_global"),
		filepath.Join(home, ".config", "git", "ignore"),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
