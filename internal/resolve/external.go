package resolve

import (
	"context"

	"github.com/harbyn/lspintar/internal/store"
)

// searchExternal is layer 4: consult the external tables, decompiling on
// demand when only bytecode was available.
func (r *Resolver) searchExternal(ctx context.Context, name string) (*target, error) {
	r.lazyScan(ctx)
	exts, err := r.store.FindExternalByShortName(name)
	if err != nil {
		return nil, err
	}
	if len(exts) == 0 {
		return nil, nil
	}
	return r.ensureExternal(ctx, exts[0]), nil
}

func (r *Resolver) externalByFQN(ctx context.Context, fqn string) (*target, error) {
	r.lazyScan(ctx)
	ext, err := r.store.FindExternalByFQN(fqn)
	if err != nil {
		return nil, err
	}
	if ext == nil {
		return nil, nil
	}
	return r.ensureExternal(ctx, ext), nil
}

// lazyScan triggers the dependency cache's first scan the moment an
// external lookup actually happens; a no-op on every call after the first.
// Scan failures are absorbed — the lookup proceeds against whatever rows
// exist.
func (r *Resolver) lazyScan(ctx context.Context) {
	if r.external == nil {
		return
	}
	if err := r.external.EnsureScanned(ctx); err != nil {
		r.log.Warn("lazy dependency scan failed", "error", err)
	}
}

// ensureExternal makes the external symbol navigable. Decompilation
// failures degrade to the JAR path with a zero span rather than erroring.
func (r *Resolver) ensureExternal(ctx context.Context, ext *store.ExternalSymbol) *target {
	if !ext.NeedsDecompilation {
		return &target{ext: ext}
	}
	if r.external == nil {
		return degradedExternal(ext)
	}
	resolved, err := r.external.EnsureSource(ctx, ext)
	if err != nil || resolved == nil {
		r.log.Warn("decompilation failed", "fqn", ext.FullyQualifiedName, "jar", ext.JarPath, "error", err)
		return degradedExternal(ext)
	}
	return &target{ext: resolved}
}

func degradedExternal(ext *store.ExternalSymbol) *target {
	return &target{loc: &Location{FilePath: ext.JarPath}}
}
