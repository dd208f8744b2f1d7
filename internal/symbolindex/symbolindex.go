// Package symbolindex implements the symbol index of spec.md §4.3: an
// in-memory fuzzy index of unique symbol names backed by the sorted
// metadata store in internal/diskstore. Reads never block other reads;
// ingest and invalidate take the exclusive side of a sync.RWMutex so
// fuzzy_search/resolve always see a consistent snapshot of whatever has
// been ingested so far.
package symbolindex

import (
	"sort"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/mvrmn/fae/internal/diskstore"
	"github.com/mvrmn/fae/internal/parser"
)

// Match is one fuzzy_search hit: the position of the matched name in the
// unique-name vector, plus its score (lower is better, per spec.md §3's
// Result record convention).
type Match struct {
	NameIndex int
	Name      string
	Score     int
}

// Index is the process-scoped, long-lived symbol index. Construct with
// New; there is no package-level singleton so tests can instantiate fresh
// copies (spec.md §9, "Global mutable state").
type Index struct {
	mu      sync.RWMutex
	store   *diskstore.Store
	names   []string       // unique-name vector, insertion order of first sighting
	nameIdx map[string]int // name -> position in names
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		store:   diskstore.New(),
		nameIdx: make(map[string]int),
	}
}

// Ingest appends symbols, updating the unique-name vector (first-sighting
// order) and the sorted metadata store. Any record whose file matches one
// already present is replaced wholesale for that file, matching
// diskstore.Store.Ingest semantics.
func (ix *Index) Ingest(symbols []parser.Symbol) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.store.Ingest(symbols)
	for _, s := range symbols {
		if _, ok := ix.nameIdx[s.Name]; ok {
			continue
		}
		ix.nameIdx[s.Name] = len(ix.names)
		ix.names = append(ix.names, s.Name)
	}
}

// Invalidate drops every record for path from both the unique-name vector
// bookkeeping and the metadata store. A name that no longer has any
// surviving record is removed from the fuzzy-searchable vector entirely,
// since spec.md's invariant "resolve(name) returns a slice containing that
// record" must not be offered for a name with zero records.
func (ix *Index) Invalidate(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.store.Invalidate(path)
	ix.rebuildNamesLocked()
}

func (ix *Index) rebuildNamesLocked() {
	all := ix.store.All()
	seen := make(map[string]bool, len(all))
	names := ix.names[:0:0]
	idx := make(map[string]int, len(all))
	// preserve first-sighting order among survivors by walking the
	// previous vector first, then anything new (shouldn't occur on a
	// pure invalidate, but keeps the invariant under future callers that
	// mix ingest/invalidate without a lock in between).
	for _, n := range ix.names {
		if seen[n] {
			continue
		}
		if _, ok := ix.nameOf(all, n); ok {
			names = append(names, n)
			idx[n] = len(names) - 1
			seen[n] = true
		}
	}
	for _, s := range all {
		if seen[s.Name] {
			continue
		}
		names = append(names, s.Name)
		idx[s.Name] = len(names) - 1
		seen[s.Name] = true
	}
	ix.names = names
	ix.nameIdx = idx
}

func (ix *Index) nameOf(all []parser.Symbol, name string) (parser.Symbol, bool) {
	for _, s := range all {
		if s.Name == name {
			return s, true
		}
	}
	return parser.Symbol{}, false
}

// Resolve returns every symbol record sharing name, or nil if unknown.
func (ix *Index) Resolve(name string) []parser.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.Lookup(name)
}

// source adapts a string slice to fuzzy.Source so sahilm/fuzzy can match
// without a throwaway []string copy on every search.
type source []string

func (s source) String(i int) string { return s[i] }
func (s source) Len() int            { return len(s) }

// FuzzySearch runs the bonus/penalty fuzzy matcher (sahilm/fuzzy, the
// pack's Sublime/VSCode-style scorer) over the unique-name vector,
// restricted to kinds when non-empty (used for Variable mode's
// {variable, constant, field, parameter} restriction, spec.md §4.7).
// Ties are broken by shorter name first, then earlier index, per spec.md
// §4.3 — sahilm/fuzzy only returns its own score, so that tie-break is
// layered on top here. cancel, if non-nil, is checked once before the
// scoring pass and again between collected results; the scoring pass
// itself (one sahilm/fuzzy call over all candidates) is not interrupted.
func (ix *Index) FuzzySearch(query string, limit int, kinds map[parser.SymbolKind]bool, cancel <-chan struct{}) []Match {
	ix.mu.RLock()
	names := append([]string(nil), ix.names...)
	var allowed map[string]bool
	if len(kinds) > 0 {
		allowed = make(map[string]bool, len(names))
		for _, name := range names {
			for _, sym := range ix.store.Lookup(name) {
				if kinds[sym.Kind] {
					allowed[name] = true
					break
				}
			}
		}
	}
	ix.mu.RUnlock()

	if query == "" {
		return nil
	}

	candidates := names
	var filteredIdx []int
	if allowed != nil {
		candidates = candidates[:0:0]
		for i, n := range names {
			if allowed[n] {
				candidates = append(candidates, n)
				filteredIdx = append(filteredIdx, i)
			}
		}
	}

	select {
	case <-cancel:
		return nil
	default:
	}

	results := fuzzy.FindFrom(query, source(candidates))

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		select {
		case <-cancel:
			return matches
		default:
		}
		origIdx := r.Index
		if filteredIdx != nil {
			origIdx = filteredIdx[r.Index]
		}
		matches = append(matches, Match{
			NameIndex: origIdx,
			Name:      r.Str,
			Score:     -r.Score, // invert: spec.md's fuzzy score convention is lower-is-better
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score < matches[j].Score
		}
		if len(matches[i].Name) != len(matches[j].Name) {
			return len(matches[i].Name) < len(matches[j].Name)
		}
		return matches[i].NameIndex < matches[j].NameIndex
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Len reports the number of records currently held (Ready.symbols_total,
// spec.md §3).
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.Len()
}

// UniqueNameCount reports the size of the unique-name vector.
func (ix *Index) UniqueNameCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.names)
}

// Save persists the metadata store to path (see internal/diskstore).
func (ix *Index) Save(path string, grammarVersion uint32) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.Save(path, grammarVersion)
}

// LoadInto replaces ix's store and unique-name vector with the contents
// of a freshly loaded on-disk store. Used at startup when symbols.bin is
// fresh (spec.md §6).
func (ix *Index) LoadInto(store *diskstore.Store) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.store = store
	ix.names = nil
	ix.nameIdx = make(map[string]int)
	for _, s := range store.All() {
		if _, ok := ix.nameIdx[s.Name]; ok {
			continue
		}
		ix.nameIdx[s.Name] = len(ix.names)
		ix.names = append(ix.names, s.Name)
	}
}
