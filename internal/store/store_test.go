package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// testSymbol builds a minimal valid symbol.
func testSymbol(fqn, short, symType, filePath string) *Symbol {
	return &Symbol{
		ShortName:          short,
		PackageName:        "com.example",
		FullyQualifiedName: fqn,
		FilePath:           filePath,
		FileType:           "java",
		SymbolType:         symType,
		Modifiers:          []string{"public"},
		LineStart:          0, LineEnd: 10,
		IdentLineStart: 0, IdentLineEnd: 0,
		IdentCharStart: 6, IdentCharEnd: 6 + len(short),
		LastModified: 1700000000,
	}
}

// =============================================================================
// Schema & lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	expectedTables := []string{
		"symbols", "symbol_super_mapping", "symbol_interface_mapping",
		"external_symbols", "indexed_jars",
	}
	for _, table := range expectedTables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// UpsertFile
// =============================================================================

func TestUpsertFile_InsertAndFind(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	sym := testSymbol("com.example.Foo", "Foo", TypeClass, "/w/Foo.java")
	require.NoError(t, s.UpsertFile("main", "/w/Foo.java", []*Symbol{sym}, nil, nil))

	got, err := s.FindByFQN("main", "com.example.Foo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Foo", got.ShortName)
	assert.Equal(t, "main", got.VCSBranch)
	assert.Equal(t, []string{"public"}, got.Modifiers)
}

func TestUpsertFile_AtomicReplace(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	old := testSymbol("com.example.Old", "Old", TypeClass, "/w/F.java")
	require.NoError(t, s.UpsertFile("main", "/w/F.java", []*Symbol{old}, nil, nil))

	repl := testSymbol("com.example.New", "New", TypeClass, "/w/F.java")
	require.NoError(t, s.UpsertFile("main", "/w/F.java", []*Symbol{repl}, nil, nil))

	gone, err := s.FindByFQN("main", "com.example.Old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	got, err := s.FindByFQN("main", "com.example.New")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestUpsertFile_IdempotentRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	mk := func() []*Symbol {
		a := testSymbol("com.example.Svc", "Svc", TypeClass, "/w/Svc.groovy")
		b := testSymbol("com.example.Svc.run", "run", TypeMethod, "/w/Svc.groovy")
		b.ParentName = ptr("com.example.Svc")
		b.Metadata.Parameters = []Parameter{{Name: "n", TypeName: "int"}}
		b.LineStart, b.LineEnd = 2, 4
		b.IdentLineStart, b.IdentLineEnd = 2, 2
		return []*Symbol{a, b}
	}
	require.NoError(t, s.UpsertFile("main", "/w/Svc.groovy", mk(), nil, nil))
	first, err := s.SymbolsByFile("main", "/w/Svc.groovy")
	require.NoError(t, err)

	require.NoError(t, s.UpsertFile("main", "/w/Svc.groovy", mk(), nil, nil))
	second, err := s.SymbolsByFile("main", "/w/Svc.groovy")
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		first[i].ID, second[i].ID = 0, 0 // ids are synthetic
		assert.Equal(t, first[i], second[i])
	}
}

func TestUpsertFile_BranchPartitioning(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	sym := testSymbol("com.example.Foo", "Foo", TypeClass, "/w/Foo.java")
	require.NoError(t, s.UpsertFile("feature", "/w/Foo.java", []*Symbol{sym}, nil, nil))

	got, err := s.FindByFQN("main", "com.example.Foo")
	require.NoError(t, err)
	assert.Nil(t, got, "main branch must not see feature rows")
}

func TestDeleteFile_RemovesAllRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	sym := testSymbol("com.example.Foo", "Foo", TypeClass, "/w/Foo.java")
	edge := &SuperEdge{SymbolFQN: "com.example.Foo", SuperShortName: "Base"}
	require.NoError(t, s.UpsertFile("main", "/w/Foo.java", []*Symbol{sym}, []*SuperEdge{edge}, nil))
	require.NoError(t, s.DeleteFile("main", "/w/Foo.java"))

	got, err := s.FindByFQN("main", "com.example.Foo")
	require.NoError(t, err)
	assert.Nil(t, got)

	edges, err := s.SuperEdgesFor("main", "com.example.Foo")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

// =============================================================================
// Query indices
// =============================================================================

func TestFindByShortName_OrderedByFQN(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	b := testSymbol("com.b.Foo", "Foo", TypeClass, "/w/b/Foo.java")
	a := testSymbol("com.a.Foo", "Foo", TypeClass, "/w/a/Foo.java")
	require.NoError(t, s.UpsertFile("main", "/w/b/Foo.java", []*Symbol{b}, nil, nil))
	require.NoError(t, s.UpsertFile("main", "/w/a/Foo.java", []*Symbol{a}, nil, nil))

	got, err := s.FindByShortName("main", "Foo")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "com.a.Foo", got[0].FullyQualifiedName)
	assert.Equal(t, "com.b.Foo", got[1].FullyQualifiedName)
}

func TestFindByParent_EnumeratesMembers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	cls := testSymbol("com.example.Foo", "Foo", TypeClass, "/w/Foo.java")
	m1 := testSymbol("com.example.Foo.run", "run", TypeMethod, "/w/Foo.java")
	m1.ParentName = ptr("com.example.Foo")
	m1.LineStart, m1.IdentLineStart, m1.IdentLineEnd = 2, 2, 2
	require.NoError(t, s.UpsertFile("main", "/w/Foo.java", []*Symbol{cls, m1}, nil, nil))

	members, err := s.FindByParent("main", "com.example.Foo")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "run", members[0].ShortName)
}

func TestFindAtPosition_InnermostFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	cls := testSymbol("com.example.Foo", "Foo", TypeClass, "/w/Foo.java")
	cls.LineStart, cls.LineEnd = 0, 20
	m := testSymbol("com.example.Foo.run", "run", TypeMethod, "/w/Foo.java")
	m.ParentName = ptr("com.example.Foo")
	m.LineStart, m.LineEnd = 5, 8
	m.IdentLineStart, m.IdentLineEnd = 5, 5
	require.NoError(t, s.UpsertFile("main", "/w/Foo.java", []*Symbol{cls, m}, nil, nil))

	got, err := s.FindAtPosition("main", "/w/Foo.java", 6)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run", got[0].ShortName, "innermost declaration first")
}

func TestFindByIdentPosition(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	sym := testSymbol("com.example.Foo", "Foo", TypeClass, "/w/Foo.java")
	require.NoError(t, s.UpsertFile("main", "/w/Foo.java", []*Symbol{sym}, nil, nil))

	got, err := s.FindByIdentPosition("main", "/w/Foo.java", 0, 6)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Foo", got.ShortName)

	missing, err := s.FindByIdentPosition("main", "/w/Foo.java", 0, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// Edges
// =============================================================================

func TestFindImplementors_ByShortNameAndResolved(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	impl := testSymbol("com.example.Impl", "Impl", TypeClass, "/w/Impl.java")
	edge := &InterfaceEdge{SymbolFQN: "com.example.Impl", InterfaceShortName: "Runner"}
	require.NoError(t, s.UpsertFile("main", "/w/Impl.java", []*Symbol{impl}, nil, []*InterfaceEdge{edge}))

	// Unresolved edge: matched by short name.
	got, err := s.FindImplementors("main", "Runner")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "com.example.Impl", got[0].FullyQualifiedName)

	// After resolution: matched by FQN.
	require.NoError(t, s.ResolveInterfaceEdges("main", "Runner", "com.api.Runner"))
	got, err = s.FindImplementors("main", "com.api.Runner")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestFindImplementors_EmptyForUnknownInterface(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.FindImplementors("main", "com.example.Nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindSubclasses(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	sub := testSymbol("com.example.Sub", "Sub", TypeClass, "/w/Sub.java")
	edge := &SuperEdge{SymbolFQN: "com.example.Sub", SuperShortName: "Base", ResolvedFQN: ptr("com.example.Base")}
	require.NoError(t, s.UpsertFile("main", "/w/Sub.java", []*Symbol{sub}, []*SuperEdge{edge}, nil))

	got, err := s.FindSubclasses("main", "com.example.Base")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "com.example.Sub", got[0].FullyQualifiedName)
}

// =============================================================================
// External symbols
// =============================================================================

func testExternal(fqn, short, jar, src string, pending bool) *ExternalSymbol {
	return &ExternalSymbol{
		ShortName:          short,
		PackageName:        "org.lib",
		FullyQualifiedName: fqn,
		JarPath:            jar,
		SourceFilePath:     src,
		FileType:           "java",
		SymbolType:         TypeClass,
		NeedsDecompilation: pending,
		LastModified:       1700000000,
	}
}

func TestExternal_UpsertUniqueOnJarSourceFQN(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	ext := testExternal("org.lib.Util", "Util", "/m2/lib.jar", "org/lib/Util.class", true)
	require.NoError(t, s.UpsertExternalSymbol(ext))
	// Same key again: replaced, not duplicated.
	ext2 := testExternal("org.lib.Util", "Util", "/m2/lib.jar", "org/lib/Util.class", false)
	require.NoError(t, s.UpsertExternalSymbol(ext2))

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM external_symbols").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.FindExternalByFQN("org.lib.Util")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.NeedsDecompilation)
}

func TestExternal_FindByFQNPrefersDecompiledRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	pending := testExternal("org.lib.Util", "Util", "/m2/lib.jar", "org/lib/Util.class", true)
	ready := testExternal("org.lib.Util", "Util", "/m2/lib.jar", "/cache/org.lib.Util.java", false)
	require.NoError(t, s.UpsertExternalSymbol(pending))
	require.NoError(t, s.UpsertExternalSymbol(ready))

	got, err := s.FindExternalByFQN("org.lib.Util")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.NeedsDecompilation)
	assert.Equal(t, "/cache/org.lib.Util.java", got.SourceFilePath)
}

func TestJarTracking(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	needs, err := s.JarNeedsScan("/m2/lib.jar", 100)
	require.NoError(t, err)
	assert.True(t, needs, "unseen jar needs scan")

	require.NoError(t, s.MarkJarIndexed("/m2/lib.jar", 100))
	needs, err = s.JarNeedsScan("/m2/lib.jar", 100)
	require.NoError(t, err)
	assert.False(t, needs)

	needs, err = s.JarNeedsScan("/m2/lib.jar", 200)
	require.NoError(t, err)
	assert.True(t, needs, "mtime change invalidates")
}

func TestDeleteJarSymbols(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.UpsertExternalSymbol(testExternal("org.lib.A", "A", "/m2/lib.jar", "org/lib/A.class", true)))
	require.NoError(t, s.MarkJarIndexed("/m2/lib.jar", 100))
	require.NoError(t, s.DeleteJarSymbols("/m2/lib.jar"))

	got, err := s.FindExternalByFQN("org.lib.A")
	require.NoError(t, err)
	assert.Nil(t, got)

	needs, err := s.JarNeedsScan("/m2/lib.jar", 100)
	require.NoError(t, err)
	assert.True(t, needs)
}
