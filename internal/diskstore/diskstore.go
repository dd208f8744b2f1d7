// Package diskstore implements the sorted metadata store of spec.md §3: all
// symbol records in (name, file, line) order, queryable by name, and
// persisted as the versioned binary symbols.bin format spec.md §6 defines.
// The length-prefixed-string / fixed-width-integer binary.Write style is
// grounded on standardbeagle-lci's internal/testing/binary_snapshot.go,
// the one place in the pack that hand-rolls a binary format this way.
package diskstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mvrmn/fae/internal/parser"
)

// Magic identifies a fae symbols.bin file.
var Magic = [4]byte{'f', 'a', 'e', '1'}

// FormatVersion is the on-disk layout version. Bumping it invalidates
// every existing symbols.bin (spec.md §6: "readable only if the version
// and grammar version match the running binary").
const FormatVersion uint32 = 1

// Record is one entry of the sorted metadata store.
type Record struct {
	Name    string
	Kind    parser.SymbolKind
	File    string
	Line    int
	Column  int
	Context string
}

func fromSymbol(s parser.Symbol) Record {
	return Record{Name: s.Name, Kind: s.Kind, File: s.File, Line: s.Line, Column: s.Column, Context: s.Context}
}

func (r Record) toSymbol() parser.Symbol {
	return parser.Symbol{Name: r.Name, Kind: r.Kind, File: r.File, Line: r.Line, Column: r.Column, Context: r.Context}
}

// lessRecord orders records by the deterministic total order spec.md §3
// requires: name, then file, then line, all ascending.
func lessRecord(a, b Record) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Line < b.Line
}

// Store is the in-memory representation of the sorted metadata store: a
// sorted slice of records plus a name→contiguous-range index for
// lookup_by_name. It is not safe for concurrent use; callers needing
// concurrent reads/writes should hold it behind their own lock (the
// symbolindex package does this).
type Store struct {
	records []Record
	ranges  map[string][2]int // [start, end) into records, sorted order
}

// New returns an empty Store.
func New() *Store {
	return &Store{ranges: make(map[string][2]int)}
}

// Rebuild replaces the entire store's contents with symbols, re-sorting
// and re-indexing from scratch.
func (s *Store) Rebuild(symbols []parser.Symbol) {
	records := make([]Record, len(symbols))
	for i, sym := range symbols {
		records[i] = fromSymbol(sym)
	}
	sort.SliceStable(records, func(i, j int) bool { return lessRecord(records[i], records[j]) })
	s.records = records
	s.reindex()
}

// reindex rebuilds the name→range map from s.records, which must already
// be sorted by lessRecord.
func (s *Store) reindex() {
	ranges := make(map[string][2]int, len(s.ranges))
	i := 0
	for i < len(s.records) {
		name := s.records[i].Name
		j := i + 1
		for j < len(s.records) && s.records[j].Name == name {
			j++
		}
		ranges[name] = [2]int{i, j}
		i = j
	}
	s.ranges = ranges
}

// Ingest merges symbols into the store, replacing the whole set
// previously held for any file among them (spec.md §3: "re-indexing
// replaces the whole set for a file").
func (s *Store) Ingest(symbols []parser.Symbol) {
	if len(symbols) == 0 {
		return
	}
	files := make(map[string]bool, 4)
	for _, sym := range symbols {
		files[sym.File] = true
	}
	kept := s.records[:0:0]
	for _, r := range s.records {
		if !files[r.File] {
			kept = append(kept, r)
		}
	}
	for _, sym := range symbols {
		kept = append(kept, fromSymbol(sym))
	}
	sort.SliceStable(kept, func(i, j int) bool { return lessRecord(kept[i], kept[j]) })
	s.records = kept
	s.reindex()
}

// Invalidate drops every record for path.
func (s *Store) Invalidate(path string) {
	kept := s.records[:0:0]
	for _, r := range s.records {
		if r.File != path {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.reindex()
}

// Lookup returns the contiguous slice of records sharing name, or nil if
// name is unknown. The returned slice is freshly built on each call and
// does not alias the store's records.
func (s *Store) Lookup(name string) []parser.Symbol {
	rng, ok := s.ranges[name]
	if !ok {
		return nil
	}
	out := make([]parser.Symbol, 0, rng[1]-rng[0])
	for _, r := range s.records[rng[0]:rng[1]] {
		out = append(out, r.toSymbol())
	}
	return out
}

// Len reports the total number of records in the store.
func (s *Store) Len() int { return len(s.records) }

// All returns every record as symbols, in sorted order. Used for
// persistence and for rebuilding derived indexes (e.g. the unique-name
// vector).
func (s *Store) All() []parser.Symbol {
	out := make([]parser.Symbol, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.toSymbol())
	}
	return out
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Save writes the store to path in the symbols.bin format spec.md §6
// describes: a 4-byte magic, format version, grammar version, and record
// count header, followed by length-prefixed-string/fixed-width-integer
// records in little-endian.
func (s *Store) Save(path string, grammarVersion uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, FormatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, grammarVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s.records))); err != nil {
		return err
	}
	for _, r := range s.records {
		if err := writeString(w, r.Name); err != nil {
			return err
		}
		if err := writeString(w, string(r.Kind)); err != nil {
			return err
		}
		if err := writeString(w, r.File); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int64(r.Line)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int64(r.Column)); err != nil {
			return err
		}
		if err := writeString(w, r.Context); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ErrVersionMismatch indicates a symbols.bin whose format or grammar
// version doesn't match the running binary; the caller should rebuild
// the index from scratch rather than trust stale records (spec.md §6).
var ErrVersionMismatch = fmt.Errorf("symbols.bin version mismatch")

// Load reads a symbols.bin file previously written by Save. If the
// format or grammar version doesn't match, it returns
// ErrVersionMismatch and the caller must rebuild instead of reading it.
func Load(path string, grammarVersion uint32) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if !bytes.Equal(magic[:], Magic[:]) {
		return nil, ErrVersionMismatch
	}
	var formatVersion, fileGrammarVersion uint32
	if err := binary.Read(r, binary.LittleEndian, &formatVersion); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &fileGrammarVersion); err != nil {
		return nil, err
	}
	if formatVersion != FormatVersion || fileGrammarVersion != grammarVersion {
		return nil, ErrVersionMismatch
	}
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	records := make([]Record, 0, count)
	for i := uint64(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		file, err := readString(r)
		if err != nil {
			return nil, err
		}
		var line, column int64
		if err := binary.Read(r, binary.LittleEndian, &line); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &column); err != nil {
			return nil, err
		}
		context, err := readString(r)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Name: name, Kind: parser.SymbolKind(kind), File: file,
			Line: int(line), Column: int(column), Context: context,
		})
	}

	s := New()
	s.records = records
	s.reindex()
	return s, nil
}
