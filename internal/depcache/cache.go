// Package depcache discovers JAR dependencies from the build tool, indexes
// their class listings into the external symbol tables, and decompiles
// bytecode on demand when the resolver needs to navigate into it.
package depcache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/harbyn/lspintar/internal/store"
)

// BuildTool is the build-tool adapter the cache consumes: class-path and
// source-root discovery.
type BuildTool interface {
	Classpath(ctx context.Context) ([]string, error)
	SourceRoots(ctx context.Context) ([]string, error)
}

// Decompiler turns a classfile inside a JAR into Java-like source text.
type Decompiler interface {
	Decompile(ctx context.Context, jarPath, internalClassPath string) (string, error)
}

// Cache populates and serves the external symbol tables.
type Cache struct {
	store      *store.Store
	buildTool  BuildTool
	decompiler Decompiler
	cacheDir   string
	log        *slog.Logger

	// decompileTimeout bounds one decompiler invocation, independent of the
	// request's own deadline.
	decompileTimeout time.Duration

	// jarLocks guards scanning, one lock per JAR path.
	mu       sync.Mutex
	jarLocks map[string]*sync.Mutex

	// scanOnce gates the initial class-path scan: run eagerly at
	// initialize when build_on_init is set, lazily on the first external
	// lookup otherwise.
	scanOnce sync.Once

	// flights shares in-flight decompilations per (jar, classfile).
	flights singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithDecompileTimeout overrides the default 30 s decompilation timeout.
func WithDecompileTimeout(d time.Duration) Option {
	return func(c *Cache) { c.decompileTimeout = d }
}

// New builds a Cache writing decompiled sources under cacheDir.
func New(s *store.Store, buildTool BuildTool, dec Decompiler, cacheDir string, log *slog.Logger, opts ...Option) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		store:            s,
		buildTool:        buildTool,
		decompiler:       dec,
		cacheDir:         cacheDir,
		log:              log,
		decompileTimeout: 30 * time.Second,
		jarLocks:         map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetStore wires the symbol index after construction; used when the cache
// is built before the engine that owns the store.
func (c *Cache) SetStore(s *store.Store) {
	c.store = s
}

func (c *Cache) jarLock(jarPath string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.jarLocks[jarPath]
	if !ok {
		l = &sync.Mutex{}
		c.jarLocks[jarPath] = l
	}
	return l
}

// EnsureScanned runs the initial class-path scan exactly once, no matter
// how many callers race into it. The resolver's external layer calls this
// on every external lookup so that a server started with build_on_init
// false populates the cache only when a request actually needs it.
func (c *Cache) EnsureScanned(ctx context.Context) error {
	var err error
	c.scanOnce.Do(func() {
		err = c.Scan(ctx)
	})
	return err
}

// Scan queries the build tool for the class-path and indexes every JAR not
// previously seen (tracked by path + mtime). JARs scan in parallel; a
// per-JAR lock keeps concurrent Scan calls from duplicating work. Safe to
// call again on class-path change: unchanged JARs are skipped by mtime.
func (c *Cache) Scan(ctx context.Context) error {
	if c.buildTool == nil {
		return nil
	}
	jars, err := c.buildTool.Classpath(ctx)
	if err != nil {
		return fmt.Errorf("classpath discovery: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, jar := range jars {
		jar := jar
		g.Go(func() error {
			if err := c.scanJar(ctx, jar); err != nil {
				// One bad JAR never fails the whole scan.
				c.log.Warn("jar scan failed", "jar", jar, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// scanJar indexes a single JAR: class entries first as placeholder rows,
// then real spans from the sibling -sources.jar when one exists.
func (c *Cache) scanJar(ctx context.Context, jarPath string) error {
	lock := c.jarLock(jarPath)
	lock.Lock()
	defer lock.Unlock()

	info, err := os.Stat(jarPath)
	if err != nil {
		return fmt.Errorf("stat jar: %w", err)
	}
	mtime := info.ModTime().Unix()

	needs, err := c.store.JarNeedsScan(jarPath, mtime)
	if err != nil {
		return err
	}
	if !needs {
		return nil
	}
	if err := c.store.DeleteJarSymbols(jarPath); err != nil {
		return err
	}

	now := time.Now().Unix()
	entries, err := listClassEntries(jarPath)
	if err != nil {
		return fmt.Errorf("list jar entries: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		sym := classEntrySymbol(jarPath, entry, now)
		if sym == nil {
			continue
		}
		if err := c.store.UpsertExternalSymbol(sym); err != nil {
			return err
		}
	}

	if srcJar := sourcesJarFor(jarPath); srcJar != "" {
		if err := c.indexSourcesJar(ctx, jarPath, srcJar, now); err != nil {
			c.log.Warn("sources jar indexing failed", "jar", srcJar, "error", err)
		}
	}

	c.log.Info("indexed jar", "jar", filepath.Base(jarPath), "classes", len(entries))
	return c.store.MarkJarIndexed(jarPath, mtime)
}

// EnsureSource makes an external symbol navigable. Symbols backed by real
// source return immediately; bytecode-only symbols are decompiled once, the
// output written to the cache directory and re-extracted for real spans.
// Concurrent navigations to the same pending class share one decompilation;
// a cancelled request abandons its wait without cancelling the work.
func (c *Cache) EnsureSource(ctx context.Context, sym *store.ExternalSymbol) (*store.ExternalSymbol, error) {
	if !sym.NeedsDecompilation {
		return sym, nil
	}
	if c.decompiler == nil {
		return nil, fmt.Errorf("no decompiler configured")
	}

	key := sym.JarPath + "!" + sym.SourceFilePath
	ch := c.flights.DoChan(key, func() (any, error) {
		return c.decompileAndIndex(sym)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*store.ExternalSymbol), nil
	case <-ctx.Done():
		// The in-flight decompilation continues for other requests.
		return nil, ctx.Err()
	}
}

// decompileAndIndex runs one decompilation under its own timeout, caches
// the output named by FQN, and indexes it as new rows under the cache path.
// The placeholder rows stay; FQN lookups rank the decompiled rows first.
func (c *Cache) decompileAndIndex(sym *store.ExternalSymbol) (*store.ExternalSymbol, error) {
	dctx, cancel := context.WithTimeout(context.Background(), c.decompileTimeout)
	defer cancel()

	cachePath := filepath.Join(c.cacheDir, sym.FullyQualifiedName+".java")
	text, err := os.ReadFile(cachePath)
	if err != nil {
		// Not cached yet: invoke the decompiler adapter.
		decompiled, derr := c.decompiler.Decompile(dctx, sym.JarPath, sym.SourceFilePath)
		if derr != nil {
			return nil, fmt.Errorf("decompile %s: %w", sym.SourceFilePath, derr)
		}
		if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		if err := os.WriteFile(cachePath, []byte(decompiled), 0o644); err != nil {
			return nil, fmt.Errorf("write cache file: %w", err)
		}
		text = []byte(decompiled)
	}

	if err := c.indexExternalSource(dctx, sym.JarPath, cachePath, text, false); err != nil {
		return nil, err
	}
	resolved, err := c.store.FindExternalByFQN(sym.FullyQualifiedName)
	if err != nil {
		return nil, err
	}
	if resolved == nil || resolved.NeedsDecompilation {
		return nil, fmt.Errorf("decompiled output did not yield %s", sym.FullyQualifiedName)
	}
	return resolved, nil
}
