// Package buildtool discovers the dependency class-path and source roots.
// The full Gradle/Maven invocation lives outside this server; what ships
// here is the cache-directory fallback used when no build tool can be run.
package buildtool

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Adapter exposes class-path and source-root discovery.
type Adapter interface {
	Classpath(ctx context.Context) ([]string, error)
	SourceRoots(ctx context.Context) ([]string, error)
}

// GradleCache scans a Gradle cache directory tree for dependency JARs.
type GradleCache struct {
	// Dir is the cache root, e.g. ~/.gradle/caches/modules-2/files-2.1.
	Dir string

	// WorkspaceRoot anchors source-root discovery.
	WorkspaceRoot string
}

// Classpath walks Dir collecting .jar files, skipping -sources and -javadoc
// artifacts (sources JARs are found as siblings during scanning).
func (g *GradleCache) Classpath(ctx context.Context) ([]string, error) {
	if g.Dir == "" {
		return nil, nil
	}
	var jars []string
	err := filepath.WalkDir(g.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".jar") {
			return nil
		}
		if strings.HasSuffix(name, "-sources.jar") || strings.HasSuffix(name, "-javadoc.jar") {
			return nil
		}
		jars = append(jars, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jars, nil
}

// SourceRoots returns the conventional JVM source roots present under the
// workspace, per module.
func (g *GradleCache) SourceRoots(ctx context.Context) ([]string, error) {
	if g.WorkspaceRoot == "" {
		return nil, nil
	}
	var roots []string
	candidates := []string{
		filepath.Join("src", "main", "java"),
		filepath.Join("src", "main", "groovy"),
		filepath.Join("src", "main", "kotlin"),
		filepath.Join("src", "test", "java"),
		filepath.Join("src", "test", "groovy"),
		filepath.Join("src", "test", "kotlin"),
	}
	// The workspace root itself, then one level of modules.
	dirs := []string{g.WorkspaceRoot}
	if entries, err := os.ReadDir(g.WorkspaceRoot); err == nil {
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				dirs = append(dirs, filepath.Join(g.WorkspaceRoot, e.Name()))
			}
		}
	}
	for _, dir := range dirs {
		for _, c := range candidates {
			root := filepath.Join(dir, c)
			if info, err := os.Stat(root); err == nil && info.IsDir() {
				roots = append(roots, root)
			}
		}
	}
	return roots, nil
}
