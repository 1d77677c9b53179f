// Package lspintar implements the symbol-resolution engine behind a
// JVM-polyglot language server: parse Java, Groovy, and Kotlin sources into
// concrete syntax trees, extract a normalized symbol model into a SQLite
// index, and answer definition, implementation, and hover queries through a
// layered search cascade over local scope, project, workspace, and external
// dependencies.
package lspintar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harbyn/lspintar/internal/depcache"
	"github.com/harbyn/lspintar/internal/extract"
	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/resolve"
	"github.com/harbyn/lspintar/internal/store"
	"github.com/harbyn/lspintar/internal/vcs"
)

// defaultRequestTimeout is the per-request soft timeout; the resolver
// aborts further cascade layers when it expires.
const defaultRequestTimeout = 5 * time.Second

// Engine orchestrates the pipeline: file discovery, change detection,
// extraction, index writes, and query access.
type Engine struct {
	store     *store.Store
	resolver  *resolve.Resolver
	cache     *depcache.Cache
	branches  *vcs.Tracker
	log       *slog.Logger
	languages map[lang.Language]bool // nil means all languages

	useParallel    bool
	requestTimeout time.Duration

	// hashes skips re-extraction of unchanged files within a session.
	mu     sync.Mutex
	hashes map[string]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...lang.Language) Option {
	return func(e *Engine) {
		e.languages = make(map[lang.Language]bool, len(languages))
		for _, l := range languages {
			e.languages[l] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default),
// IndexFiles parses and extracts on a worker pool with serial SQLite
// commits. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) { e.useParallel = parallel }
}

// WithDependencyCache wires the dependency cache used for external (JAR)
// symbol resolution.
func WithDependencyCache(c *depcache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRequestTimeout overrides the 5 s per-request soft timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) { e.requestTimeout = d }
}

// New creates an Engine backed by a SQLite database at dbPath, serving the
// workspace rooted at workspaceRoot.
func New(dbPath, workspaceRoot string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("lspintar: create store: %w", err)
	}
	e := &Engine{
		store:          s,
		branches:       vcs.NewTracker(workspaceRoot),
		log:            slog.Default(),
		useParallel:    true,
		requestTimeout: defaultRequestTimeout,
		hashes:         map[string]string{},
	}
	for _, opt := range opts {
		opt(e)
	}
	var external resolve.ExternalSource
	if e.cache != nil {
		external = e.cache
	}
	e.resolver = resolve.New(s, external, e.log)
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Branch returns the current VCS branch partition.
func (e *Engine) Branch() string {
	return e.branches.CurrentBranch()
}

// ScanDependencies populates the external tables from the build tool's
// class-path. Called synchronously at initialize when build_on_init is
// set; otherwise the resolver triggers the same once-guarded scan on the
// first external lookup.
func (e *Engine) ScanDependencies(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.EnsureScanned(ctx)
}

// RescanDependencies re-runs class-path discovery after a build-file or
// class-path change. Unchanged JARs are skipped by mtime; new or rebuilt
// ones are (re)indexed.
func (e *Engine) RescanDependencies(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Scan(ctx)
}

// languageFor applies the language filter.
func (e *Engine) languageFor(path string) (lang.Language, bool) {
	l, ok := lang.ForFile(path)
	if !ok {
		return "", false
	}
	if e.languages != nil && !e.languages[l] {
		return "", false
	}
	if _, ok := lang.GrammarFor(l); !ok {
		// Grammar unavailable: the pipeline for this language is disabled.
		return "", false
	}
	return l, true
}

// IndexFiles indexes the given file paths. An error on one file does not stop
// the others; the errors are collected and reported as one returned error.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.indexFilesParallel(ctx, paths)
	}
	var errs []error
	for _, path := range paths {
		if err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	l, ok := e.languageFor(path)
	if !ok {
		return nil // unsupported or filtered out
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if e.unchanged(path, content) {
		return nil
	}
	return e.indexContent(ctx, l, path, content, fileStamp(path))
}

// IndexSource indexes in-memory document content (didOpen/didChange).
func (e *Engine) IndexSource(ctx context.Context, path string, content []byte) error {
	l, ok := e.languageFor(path)
	if !ok {
		return nil
	}
	e.rememberHash(path, content)
	return e.indexContent(ctx, l, path, content, time.Now().Unix())
}

// indexContent parses, extracts, and atomically replaces the file's rows.
func (e *Engine) indexContent(ctx context.Context, l lang.Language, path string, content []byte, stamp int64) error {
	facade, err := lang.NewFacade(l)
	if err != nil {
		return nil // grammar unavailable: empty results, not errors
	}
	tree, err := facade.Parse(ctx, content)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	branch := e.Branch()
	result := extract.File(tree, path, branch, stamp)
	if err := e.store.UpsertFile(branch, path, result.Symbols, result.Supers, result.Ifaces); err != nil {
		return err
	}
	e.log.Debug("indexed file", "path", path, "symbols", len(result.Symbols))
	return nil
}

// RemoveFile deletes the file's rows when it is removed from the workspace.
func (e *Engine) RemoveFile(path string) error {
	e.mu.Lock()
	delete(e.hashes, path)
	e.mu.Unlock()
	return e.store.DeleteFile(e.Branch(), path)
}

func (e *Engine) unchanged(path string, content []byte) bool {
	hash := fmt.Sprintf("%x", sha256.Sum256(content))
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hashes[path] == hash {
		return true
	}
	e.hashes[path] = hash
	return false
}

func (e *Engine) rememberHash(path string, content []byte) {
	e.mu.Lock()
	e.hashes[path] = fmt.Sprintf("%x", sha256.Sum256(content))
	e.mu.Unlock()
}

// fileStamp derives last_modified from the file's mtime so re-extracting
// an unchanged file yields byte-identical rows.
func fileStamp(path string) int64 {
	if info, err := os.Stat(path); err == nil {
		return info.ModTime().Unix()
	}
	return 0
}

// skipDirs are directories excluded from workspace indexing.
var skipDirs = map[string]bool{
	"build":   true,
	"target":  true,
	"out":     true,
	".gradle": true,
}

// IndexDirectory walks root and indexes all files with supported
// extensions. If root is inside a git repository, uses git ls-files to
// respect .gitignore; falls back to a filesystem walk otherwise.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but
// not ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := e.languageFor(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, skipping hidden
// and build output directories.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := e.languageFor(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
