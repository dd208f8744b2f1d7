package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mvrmn/fae/internal/backend"
	"github.com/mvrmn/fae/internal/contentcache"
	"github.com/mvrmn/fae/internal/coordinator"
	"github.com/mvrmn/fae/internal/diskstore"
	"github.com/mvrmn/fae/internal/dispatch"
	"github.com/mvrmn/fae/internal/errs"
	"github.com/mvrmn/fae/internal/fileload"
	"github.com/mvrmn/fae/internal/obslog"
	"github.com/mvrmn/fae/internal/parser"
	"github.com/mvrmn/fae/internal/symbolindex"
	"github.com/mvrmn/fae/internal/walker"
	"github.com/mvrmn/fae/internal/watch"
)

// stateDirName is the on-disk state directory spec.md §6 describes.
const stateDirName = ".fae"

// Engine wires the data-flow spec.md §2 describes: File Discovery feeds
// the Symbol Extractor, which ingests into the Symbol Index; the Search
// Dispatcher reads from the index, the file list, or the External
// Backend Adapter depending on query mode. It is the cmd/fae-level
// assembly the component packages don't own individually (none of
// spec.md's named components is "the thing that starts them all up" —
// that responsibility is the CLI's, per spec.md §1's "OUT OF SCOPE"
// framing of the UI/CLI layer as an external collaborator of the core).
type Engine struct {
	root string

	walker    *walker.Walker
	extractor *parser.Extractor
	cache     *contentcache.Cache
	index     *symbolindex.Index
	coord     *coordinator.Coordinator
	backend   *backend.Adapter
	watcher   *watch.Watcher

	mu    sync.RWMutex
	files []string // relative paths last discovered; backs Files() for File mode

	inFlight sync.Map // path -> struct{}, in-flight extraction set (spec.md §4.7)
}

// EngineOptions configures discovery behavior for a new Engine, carrying
// the CLI flags of spec.md §6 that affect File Discovery.
type EngineOptions struct {
	IncludeIgnored bool
}

// NewEngine constructs an Engine rooted at root. It does not start
// indexing; call BuildIndex.
func NewEngine(root string, opts EngineOptions) (*Engine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.Config(fmt.Errorf("resolve root: %w", err))
	}
	wc := walker.DefaultConfig()
	wc.IncludeIgnored = opts.IncludeIgnored
	w, err := walker.New(wc)
	if err != nil {
		return nil, errs.Config(fmt.Errorf("create walker: %w", err))
	}
	return &Engine{
		root:      absRoot,
		walker:    w,
		extractor: parser.NewExtractor(runtime.GOMAXPROCS(0)),
		cache:     contentcache.New(0),
		index:     symbolindex.New(),
		coord:     coordinator.New(),
		backend:   backend.New(backend.DefaultTimeout),
	}, nil
}

// Close releases pooled parsers/queries and stops the file watcher, if
// running.
func (e *Engine) Close() {
	e.extractor.Close()
	if e.watcher != nil {
		e.watcher.Close()
	}
}

// Files implements dispatch.FileLister.
func (e *Engine) Files() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.files))
	copy(out, e.files)
	return out
}

// Dispatcher returns a dispatcher bound to this engine's index, file
// list, and backend.
func (e *Engine) Dispatcher(limit int) *dispatch.Dispatcher {
	return dispatch.New(e.index, e, e.backend, e.root, limit)
}

// Coordinator exposes index-build progress for the --index summary and
// CLI diagnostics.
func (e *Engine) Coordinator() *coordinator.Coordinator { return e.coord }

// BuildIndex discovers every file under the root, extracts symbols from
// each in parallel on a CPU-bound errgroup pool (spec.md §5's
// CPU-parallel plan), and ingests the results into the symbol index. If
// a fresh on-disk symbols.bin exists (matching format and grammar
// version), it is loaded instead of a full re-extraction.
func (e *Engine) BuildIndex(ctx context.Context) error {
	e.coord.BeginDiscovering()

	if store, err := diskstore.Load(filepath.Join(e.root, stateDirName, "symbols.bin"), parser.GrammarVersion); err == nil {
		e.index.LoadInto(store)
		e.mu.Lock()
		for _, s := range store.All() {
			e.files = appendUnique(e.files, s.File)
		}
		e.mu.Unlock()
		e.coord.Ready(int64(store.Len()))
		return nil
	}

	results, err := e.walker.Walk(e.root)
	if err != nil {
		return errs.Config(fmt.Errorf("walk %s: %w", e.root, err))
	}

	var paths []string
	for r := range results {
		if r.Error != nil {
			obslog.Warn("discovery diagnostic", "permission", r.Permission, "err", errs.PerFile(r.RelPath, r.Error))
			continue
		}
		e.coord.FileSeen()
		paths = append(paths, r.RelPath)
	}

	e.mu.Lock()
	e.files = paths
	e.mu.Unlock()

	e.coord.BeginExtracting(int64(len(paths)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, rel := range paths {
		rel := rel
		g.Go(func() error {
			return e.extractOne(gctx, rel)
		})
	}
	if err := g.Wait(); err != nil {
		wrapped := errs.Internal(err)
		e.coord.Failed(wrapped.Error())
		return wrapped
	}

	e.coord.Ready(int64(e.index.Len()))
	return e.persist()
}

// extractOne extracts and ingests symbols for one file, using the
// content cache and the in-flight set so a file already being extracted
// is never enqueued twice (spec.md §4.7). Per-file failures (unsupported
// language, parse error, read error) are logged and do not fail the
// overall build, matching spec.md §4.2/§7's per-file failure semantics.
func (e *Engine) extractOne(ctx context.Context, relPath string) error {
	if _, loaded := e.inFlight.LoadOrStore(relPath, struct{}{}); loaded {
		return nil
	}
	defer e.inFlight.Delete(relPath)

	lang := parser.LanguageForFile(relPath)
	if lang == "" {
		e.coord.FileExtracted(0)
		return nil
	}

	absPath := filepath.Join(e.root, relPath)
	data, err := fileload.Read(absPath)
	if err != nil {
		obslog.Warn("read failed", "err", errs.PerFile(relPath, err))
		e.coord.FileExtracted(0)
		return nil
	}
	defer data.Release()

	hash := parser.HashContent(data.Bytes)
	key := contentcache.Key{Path: relPath, Hash: hash, Language: lang, GrammarVersion: parser.GrammarVersion}

	syms, ok := e.cache.Get(key)
	if !ok {
		syms, err = e.extractor.Extract(ctx, relPath, data.Bytes, lang)
		if err != nil {
			obslog.Warn("extract failed", "err", classifyExtractErr(relPath, err))
			e.coord.FileExtracted(0)
			return nil
		}
		e.cache.Put(key, syms)
		e.coord.AddBytesCached(int64(len(data.Bytes)))
	}

	e.index.Ingest(syms)
	e.coord.FileExtracted(len(syms))
	return nil
}

// persist writes symbols.bin if the state directory exists or can be
// created; persistence is optional (spec.md §6), so a failure here is
// logged, not fatal.
func (e *Engine) persist() error {
	dir := filepath.Join(e.root, stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		obslog.Debug("state dir unavailable, skipping persistence", "err", err)
		return nil
	}
	if err := e.index.Save(filepath.Join(dir, "symbols.bin"), parser.GrammarVersion); err != nil {
		obslog.Warn("persist symbols.bin failed", "err", err)
	}
	return nil
}

// StartWatch begins watching the root for changes, re-extracting
// affected files and re-ingesting them on settle (spec.md §4.6). The
// symbol/variable/file-mode coherency policy (abort and restart the
// active dispatch) is the CLI/dispatcher's responsibility at the call
// site that owns the active query; StartWatch only keeps the index
// current.
func (e *Engine) StartWatch(ctx context.Context) error {
	w, err := watch.New(e.root, watch.DefaultDebounce, func(ev watch.Event) {
		e.handleWatchEvent(ctx, ev)
	})
	if err != nil {
		return err
	}
	e.watcher = w
	go w.Start(ctx)
	return nil
}

func (e *Engine) handleWatchEvent(ctx context.Context, ev watch.Event) {
	rel, err := filepath.Rel(e.root, ev.Path)
	if err != nil {
		return
	}

	if ev.Op == watch.OpRemove {
		e.index.Invalidate(rel)
		e.cache.Invalidate(rel)
		e.mu.Lock()
		e.files = removeOne(e.files, rel)
		e.mu.Unlock()
		return
	}

	info, statErr := os.Stat(ev.Path)
	if statErr != nil || info.IsDir() {
		return
	}

	e.coord.BeginExtracting(int64(len(e.Files())))
	e.mu.Lock()
	e.files = appendUnique(e.files, rel)
	e.mu.Unlock()
	e.cache.Invalidate(rel)
	// Invalidate the index before re-extracting, not just the cache: a
	// file edited down to zero extractable symbols must still drop its
	// stale records, and Store.Ingest only replaces a file's records when
	// the new symbol slice is non-empty.
	e.index.Invalidate(rel)
	if err := e.extractOne(ctx, rel); err != nil {
		obslog.Warn("re-extract failed", "path", rel, "err", err)
	}
	e.coord.Ready(int64(e.index.Len()))
}

// classifyExtractErr tags a single file's extraction failure with the
// errs taxonomy's Class (spec.md §7): a parser wall-clock timeout is
// ClassTimeout, anything else (grammar mismatch, parser panic) is
// ClassPerFile and never fails the overall build.
func classifyExtractErr(path string, err error) error {
	if errors.Is(err, parser.ErrParseTimeout) {
		return errs.NewFile(errs.ClassTimeout, path, err)
	}
	return errs.PerFile(path, err)
}

func appendUnique(files []string, f string) []string {
	for _, existing := range files {
		if existing == f {
			return files
		}
	}
	return append(files, f)
}

func removeOne(files []string, f string) []string {
	out := files[:0:0]
	for _, existing := range files {
		if existing != f {
			out = append(out, existing)
		}
	}
	return out
}
