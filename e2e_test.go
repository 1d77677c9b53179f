package lspintar

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbyn/lspintar/internal/depcache"
)

// newTestEngine indexes a fixture directory into a temp database.
func newTestEngine(t *testing.T, fixtureDir string, opts ...Option) *Engine {
	t.Helper()
	root, err := filepath.Abs(fixtureDir)
	require.NoError(t, err)

	opts = append(opts, WithParallel(true))
	e, err := New(filepath.Join(t.TempDir(), "index.db"), root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	require.NoError(t, e.IndexDirectory(context.Background(), root))
	return e
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return content
}

// findPos returns the zero-based (line, col) of the nth occurrence of needle.
func findPos(t *testing.T, content []byte, needle string, nth int) (uint32, uint32) {
	t.Helper()
	src := string(content)
	offset := 0
	for i := 0; i <= nth; i++ {
		idx := strings.Index(src[offset:], needle)
		require.GreaterOrEqual(t, idx, 0, "needle %q occurrence %d", needle, nth)
		offset += idx
		if i < nth {
			offset += len(needle)
		}
	}
	line := uint32(strings.Count(src[:offset], "\n"))
	lastNL := strings.LastIndexByte(src[:offset], '\n')
	return line, uint32(offset - lastNL - 1)
}

func fixturePath(parts ...string) string {
	return filepath.Join(append([]string{"testdata"}, parts...)...)
}

// writeTestJar creates a zip at path with the given entries.
func writeTestJar(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// staticJars is a fixed-classpath build tool adapter.
type staticJars []string

func (s staticJars) Classpath(context.Context) ([]string, error)   { return s, nil }
func (s staticJars) SourceRoots(context.Context) ([]string, error) { return nil, nil }

// countingDecompiler returns canned source and counts invocations.
type countingDecompiler struct {
	calls  atomic.Int64
	source string
}

func (d *countingDecompiler) Decompile(context.Context, string, string) (string, error) {
	d.calls.Add(1)
	return d.source, nil
}

// Scenario: interface jump across languages. Cursor on the Kotlin override
// of findById resolves to the findById declaration in the Java interface.
func TestE2E_InterfaceJumpAcrossLanguages(t *testing.T) {
	e := newTestEngine(t, fixturePath("polyglot-spring"))

	ktPath, err := filepath.Abs(fixturePath("polyglot-spring", "src", "main", "kotlin", "com", "example", "demo", "UserRepository.kt"))
	require.NoError(t, err)
	javaPath, err := filepath.Abs(fixturePath("polyglot-spring", "src", "main", "java", "com", "example", "demo", "BaseRepository.java"))
	require.NoError(t, err)

	ktSrc := readFixture(t, ktPath)
	line, col := findPos(t, ktSrc, "findById", 0)

	loc, err := e.Definition(context.Background(), ktPath, ktSrc, line, col+2)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, javaPath, loc.FilePath)

	javaSrc := readFixture(t, javaPath)
	wantLine, wantCol := findPos(t, javaSrc, "findById", 0)
	assert.Equal(t, int(wantLine), loc.LineStart)
	assert.Equal(t, int(wantCol), loc.CharStart)
}

// Scenario: qualifier jump. MAX_BATCH_SIZE in DataProcessor.MAX_BATCH_SIZE
// resolves to the constant; DataProcessor on the same line resolves to the
// interface, not the field.
func TestE2E_QualifierJump(t *testing.T) {
	e := newTestEngine(t, fixturePath("multi-module"))

	ctrlPath, err := filepath.Abs(fixturePath("multi-module", "service-web", "src", "main", "groovy", "com", "example", "web", "UserController.groovy"))
	require.NoError(t, err)
	procPath, err := filepath.Abs(fixturePath("multi-module", "service-api", "src", "main", "groovy", "com", "example", "api", "DataProcessor.groovy"))
	require.NoError(t, err)

	ctrlSrc := readFixture(t, ctrlPath)
	procSrc := readFixture(t, procPath)

	line, col := findPos(t, ctrlSrc, "MAX_BATCH_SIZE", 0)
	loc, err := e.Definition(context.Background(), ctrlPath, ctrlSrc, line, col+2)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, procPath, loc.FilePath)
	wantLine, _ := findPos(t, procSrc, "MAX_BATCH_SIZE", 0)
	assert.Equal(t, int(wantLine), loc.LineStart)

	// Receiver side of the same expression.
	line, col = findPos(t, ctrlSrc, "DataProcessor.MAX_BATCH_SIZE", 0)
	loc, err = e.Definition(context.Background(), ctrlPath, ctrlSrc, line, col+2)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, procPath, loc.FilePath)
	wantLine, _ = findPos(t, procSrc, "interface DataProcessor", 0)
	assert.Equal(t, int(wantLine), loc.LineStart, "resolves to the interface declaration, not the field")
}

// Scenario: inherited member via this. this.serviceName resolves to the
// field declared on BaseService.
func TestE2E_InheritedMemberViaThis(t *testing.T) {
	e := newTestEngine(t, fixturePath("multi-module"))

	ctrlPath, err := filepath.Abs(fixturePath("multi-module", "service-web", "src", "main", "groovy", "com", "example", "web", "UserController.groovy"))
	require.NoError(t, err)
	basePath, err := filepath.Abs(fixturePath("multi-module", "service-core", "src", "main", "groovy", "com", "example", "core", "BaseService.groovy"))
	require.NoError(t, err)

	ctrlSrc := readFixture(t, ctrlPath)
	line, col := findPos(t, ctrlSrc, "serviceName", 0)
	loc, err := e.Definition(context.Background(), ctrlPath, ctrlSrc, line, col+2)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, basePath, loc.FilePath)
}

// Scenario: implementation finder. DataProcessor's implementors include
// UserController.
func TestE2E_ImplementationFinder(t *testing.T) {
	e := newTestEngine(t, fixturePath("multi-module"))

	procPath, err := filepath.Abs(fixturePath("multi-module", "service-api", "src", "main", "groovy", "com", "example", "api", "DataProcessor.groovy"))
	require.NoError(t, err)
	ctrlPath, err := filepath.Abs(fixturePath("multi-module", "service-web", "src", "main", "groovy", "com", "example", "web", "UserController.groovy"))
	require.NoError(t, err)

	procSrc := readFixture(t, procPath)
	line, col := findPos(t, procSrc, "DataProcessor", 0)
	locs, err := e.Implementations(context.Background(), procPath, procSrc, line, col+2)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, ctrlPath, locs[0].FilePath)
}

// Scenario: external dependency with decompilation. Navigating to a
// bytecode-only class triggers one decompilation; the second request
// returns from cache.
func TestE2E_ExternalDecompilation(t *testing.T) {
	workspace := t.TempDir()
	appPath := filepath.Join(workspace, "App.java")
	appSrc := []byte(`import org.apache.commons.lang3.StringUtils;

public class App {
    void run() {
        StringUtils.capitalize("input");
    }
}
`)
	require.NoError(t, os.WriteFile(appPath, appSrc, 0o644))

	jarPath := filepath.Join(workspace, "commons-lang3.jar")
	writeTestJar(t, jarPath, map[string]string{
		"org/apache/commons/lang3/StringUtils.class": "\xca\xfe\xba\xbe",
	})

	dec := &countingDecompiler{source: `package org.apache.commons.lang3;

public class StringUtils {
    public static String capitalize(String str) {
        return str;
    }
}
`}
	cache := depcache.New(nil, staticJars{jarPath}, dec, filepath.Join(t.TempDir(), "decompiled"), nil)
	e, err := New(filepath.Join(t.TempDir(), "index.db"), workspace, WithDependencyCache(cache))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	cache.SetStore(e.Store())

	ctx := context.Background()
	require.NoError(t, e.IndexDirectory(ctx, workspace))

	// build_on_init is off: nothing scanned until the lookup below.
	var count int
	require.NoError(t, e.Store().DB().QueryRow("SELECT COUNT(*) FROM external_symbols").Scan(&count))
	assert.Zero(t, count, "no eager scan")

	line, col := findPos(t, appSrc, "StringUtils.capitalize", 0)
	loc, err := e.Definition(ctx, appPath, appSrc, line, col+2)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, int64(1), dec.calls.Load())
	assert.Contains(t, loc.FilePath, "decompiled", "location inside the decompiled cache file")

	// Second request: immediate, no re-decompilation.
	loc2, err := e.Definition(ctx, appPath, appSrc, line, col+2)
	require.NoError(t, err)
	require.NotNil(t, loc2)
	assert.Equal(t, loc.FilePath, loc2.FilePath)
	assert.Equal(t, int64(1), dec.calls.Load())
}

// Grammar unavailability: unsupported files return empty results, never
// errors.
func TestE2E_UnsupportedLanguageIsEmpty(t *testing.T) {
	e := newTestEngine(t, fixturePath("multi-module"))

	loc, err := e.Definition(context.Background(), "/w/Main.scala", []byte("object Main"), 0, 2)
	require.NoError(t, err)
	assert.Nil(t, loc)

	diags, err := e.Diagnostics(context.Background(), "/w/Main.scala", []byte("object Main"))
	require.NoError(t, err)
	assert.Nil(t, diags)
}

// Diagnostics: syntactic errors only, recomputed per content.
func TestE2E_Diagnostics(t *testing.T) {
	e := newTestEngine(t, fixturePath("multi-module"))

	broken := []byte("package p;\n\npublic class A {\n    void run( {\n}\n")
	diags, err := e.Diagnostics(context.Background(), "/w/A.java", broken)
	require.NoError(t, err)
	assert.NotEmpty(t, diags)

	clean := []byte("package p;\n\npublic class A {\n}\n")
	diags, err = e.Diagnostics(context.Background(), "/w/A.java", clean)
	require.NoError(t, err)
	assert.Empty(t, diags)
}
