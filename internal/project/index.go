// Package project maintains an index of parsed documents for every source
// file under a project root: discovery, symbol resolution, source
// extraction, and structural-edit orchestration. Per-file cache entries are
// exclusively owned by the Index and replaced atomically on edit.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kvisser/codetree/internal/editor"
	"github.com/kvisser/codetree/internal/pysrc"
)

// DefaultMaxFileSize caps parsed files at 1MB, matching the usual indexer
// guard against generated blobs.
const DefaultMaxFileSize = 1 << 20

// Index holds one parsed Document per indexed file, keyed by absolute path.
type Index struct {
	root string

	mu   sync.RWMutex
	docs map[string]*pysrc.Document

	// editLocks serializes structural edits per file. Indexing and editing
	// assume no concurrent mutation of the same file's cached document.
	editLocks sync.Map // abs path -> *sync.Mutex
}

// BuildOptions configures an index build.
type BuildOptions struct {
	// IncludeTests keeps files under tests/ directories and test_*.py
	// files in the final index. They are always parsed either way, so
	// builds stay deterministic; the filter applies at the end.
	IncludeTests bool
	// Concurrency bounds the parse worker pool. Defaults to NumCPU.
	Concurrency int
	// MaxFileSize skips larger files. Defaults to DefaultMaxFileSize.
	MaxFileSize int64
}

// NewIndex creates an empty index rooted at dir.
func NewIndex(dir string) (*Index, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", abs)
	}
	return &Index{root: abs, docs: make(map[string]*pysrc.Document)}, nil
}

// Root returns the absolute project root.
func (idx *Index) Root() string { return idx.root }

// Build discovers and parses every recognized file under the root.
// Unreadable or unparseable files are logged and skipped. Cancellation
// leaves already-parsed files in the index; partial results are valid.
func (idx *Index) Build(ctx context.Context, opts BuildOptions) error {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	paths, err := discover(idx.root, maxSize)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("file", path).Msg("skipping unreadable file")
				return nil
			}
			doc, err := pysrc.Parse(path, src)
			if err != nil {
				log.Warn().Err(err).Str("file", path).Msg("skipping unparseable file")
				return nil
			}
			idx.install(doc)
			return nil
		})
	}
	_ = g.Wait()

	if !opts.IncludeTests {
		idx.dropTestFiles()
	}

	log.Info().Int("files", len(idx.Files())).Str("root", idx.root).Msg("index built")
	return ctx.Err()
}

func (idx *Index) install(doc *pysrc.Document) {
	idx.mu.Lock()
	if old, ok := idx.docs[doc.Path]; ok {
		old.Close()
	}
	idx.docs[doc.Path] = doc
	idx.mu.Unlock()
}

func (idx *Index) dropTestFiles() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for path, doc := range idx.docs {
		rel, err := filepath.Rel(idx.root, path)
		if err != nil {
			continue
		}
		if isTestFile(rel) {
			doc.Close()
			delete(idx.docs, path)
		}
	}
}

// Files returns the absolute paths of all indexed files, sorted.
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	paths := make([]string, 0, len(idx.docs))
	for p := range idx.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Abs resolves a possibly root-relative file path to the absolute cache key.
func (idx *Index) Abs(file string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(idx.root, file)
}

// Rel converts an indexed absolute path to its slash-separated root-relative
// form, used as a stable identifier by the semantic tree.
func (idx *Index) Rel(file string) string {
	rel, err := filepath.Rel(idx.root, idx.Abs(file))
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

func (idx *Index) document(file string) (*pysrc.Document, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	doc, ok := idx.docs[idx.Abs(file)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotIndexed, file)
	}
	return doc, nil
}

// FileSource returns the full cached source of an indexed file.
func (idx *Index) FileSource(file string) (string, error) {
	doc, err := idx.document(file)
	if err != nil {
		return "", err
	}
	return string(doc.Source), nil
}

// ListSymbols returns all symbols of a file, ordered by position.
func (idx *Index) ListSymbols(file string) ([]pysrc.SymbolRecord, error) {
	doc, err := idx.document(file)
	if err != nil {
		return nil, err
	}
	return doc.SymbolList(), nil
}

// Resolve finds a symbol by qualified name. The exact name is tried first,
// then a whitespace-trimmed retry; a continued miss returns a
// SymbolNotFoundError listing the file's available names.
func (idx *Index) Resolve(file, symbolPath string) (pysrc.SymbolRecord, error) {
	doc, err := idx.document(file)
	if err != nil {
		return pysrc.SymbolRecord{}, err
	}
	if rec, ok := doc.Symbols[symbolPath]; ok {
		return rec, nil
	}
	if rec, ok := doc.Symbols[strings.TrimSpace(symbolPath)]; ok {
		return rec, nil
	}
	return pysrc.SymbolRecord{}, &SymbolNotFoundError{
		File:      doc.Path,
		Symbol:    symbolPath,
		Available: doc.SymbolNames(),
	}
}

// Source returns the exact source text of a symbol, sliced by the record's
// position: the start line's tail, full middle lines, and the end line's
// head.
func (idx *Index) Source(rec pysrc.SymbolRecord) (string, error) {
	doc, err := idx.document(rec.File)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(doc.Source), "\n")
	pos := rec.Pos
	if pos.StartLine < 1 || pos.EndLine > len(lines) {
		return "", fmt.Errorf("position %d..%d out of bounds for %s", pos.StartLine, pos.EndLine, rec.File)
	}

	clamp := func(line string, col int) int {
		if col > len(line) {
			return len(line)
		}
		return col
	}

	if pos.StartLine == pos.EndLine {
		line := lines[pos.StartLine-1]
		return line[clamp(line, pos.StartCol):clamp(line, pos.EndCol)], nil
	}

	head := lines[pos.StartLine-1]
	head = head[clamp(head, pos.StartCol):]
	middle := lines[pos.StartLine : pos.EndLine-1]
	tail := lines[pos.EndLine-1]
	tail = tail[:clamp(tail, pos.EndCol)]

	parts := make([]string, 0, len(middle)+2)
	parts = append(parts, head)
	parts = append(parts, middle...)
	parts = append(parts, tail)
	return strings.Join(parts, "\n"), nil
}

// SourceWithContext returns the symbol's source expanded by whole lines on
// each side, clamped to the file bounds.
func (idx *Index) SourceWithContext(rec pysrc.SymbolRecord, before, after int) (string, error) {
	doc, err := idx.document(rec.File)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(doc.Source), "\n")

	start := rec.Pos.StartLine - 1 - before
	if start < 0 {
		start = 0
	}
	end := rec.Pos.EndLine - 1 + after
	if end > len(lines)-1 {
		end = len(lines) - 1
	}
	return strings.Join(lines[start:end+1], "\n"), nil
}

func (idx *Index) editLock(abs string) *sync.Mutex {
	lock, _ := idx.editLocks.LoadOrStore(abs, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// EditSymbol inserts or replaces statements inside a function or method body
// at a visible relative line, then reparses, re-indexes, and atomically
// replaces the cached document. On any error the cached document is left
// unmodified. Returns the fresh record and the new file source.
func (idx *Index) EditSymbol(file, symbolPath string, relativeLine int, newStatements string, mode editor.Mode) (pysrc.SymbolRecord, string, error) {
	abs := idx.Abs(file)
	lock := idx.editLock(abs)
	lock.Lock()
	defer lock.Unlock()

	doc, err := idx.document(abs)
	if err != nil {
		return pysrc.SymbolRecord{}, "", err
	}
	if _, err := idx.Resolve(abs, symbolPath); err != nil {
		return pysrc.SymbolRecord{}, "", err
	}

	newSrc, err := editor.Apply(doc, symbolPath, relativeLine, newStatements, mode)
	if err != nil {
		return pysrc.SymbolRecord{}, "", err
	}

	newDoc, err := pysrc.Parse(abs, newSrc)
	if err != nil {
		return pysrc.SymbolRecord{}, "", fmt.Errorf("reparse after edit: %w", err)
	}
	rec, ok := newDoc.Symbols[symbolPath]
	if !ok {
		newDoc.Close()
		return pysrc.SymbolRecord{}, "", fmt.Errorf("%w: %s in %s", ErrInternalConsistency, symbolPath, abs)
	}

	idx.install(newDoc)
	return rec, string(newSrc), nil
}

// Close releases all cached parse trees.
func (idx *Index) Close() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, doc := range idx.docs {
		doc.Close()
	}
	idx.docs = make(map[string]*pysrc.Document)
}
