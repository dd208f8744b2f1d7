// Package walker provides file filtering capabilities
package walker

import (
	"io/fs"
	"path/filepath"
	"sync"
)

// Filters holds the file-admission rules File Discovery applies to every
// regular file the traversal visits, beyond the gitignore matching
// IgnoreManager already does: a size range and a hidden-file policy.
// Language/type detection is not part of this concern; spec.md's -t flag
// filters symbol kinds in the dispatcher, not file types at discovery
// time, and binary exclusion is walker.go's own IsBinaryFile check.
type Filters struct {
	maxSize     int64 // Maximum file size to consider
	minSize     int64 // Minimum file size to consider
	allowHidden bool  // Whether to allow hidden files
	mu          sync.RWMutex
}

// NewFilters creates a new file filter with the package's default size
// range and hidden-file policy.
func NewFilters() *Filters {
	return &Filters{
		maxSize:     DefaultMaxFileSize,
		minSize:     0,
		allowHidden: false,
	}
}

// ShouldInclude determines whether a file passes the size and
// hidden-file rules. Walker.visitFileTracked already applies its own
// MaxFileSize check before calling this, but ShouldInclude enforces its
// own maxSize/minSize independently so Filters stays usable on its own.
func (f *Filters) ShouldInclude(path string, info fs.FileInfo) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.maxSize > 0 && info.Size() > f.maxSize {
		return false
	}
	if f.minSize > 0 && info.Size() < f.minSize {
		return false
	}

	if !f.allowHidden && isHiddenFile(filepath.Base(path)) {
		return false
	}

	return true
}

// SetAllowHidden enables or disables inclusion of hidden files.
func (f *Filters) SetAllowHidden(allow bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowHidden = allow
}

// isHiddenFile checks if a filename represents a hidden file
func isHiddenFile(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
