package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/store"
)

func parse(t *testing.T, l lang.Language, src string) *lang.Tree {
	t.Helper()
	f, err := lang.NewFacade(l)
	require.NoError(t, err)
	tree, err := f.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func symbolByFQN(res *Result, fqn string) *store.Symbol {
	for _, s := range res.Symbols {
		if s.FullyQualifiedName == fqn {
			return s
		}
	}
	return nil
}

const javaSource = `package com.example;

import java.util.List;

/** Runs things. */
public class Runner extends Base implements Closeable {
    private String name;

    public Runner(String name) {
        this.name = name;
    }

    public List<String> run(int count) {
        int total = count;
        return null;
    }

    static class Inner {
        int depth;
    }
}
`

func TestExtract_JavaClass(t *testing.T) {
	t.Parallel()
	tree := parse(t, lang.Java, javaSource)
	res := File(tree, "/w/Runner.java", "main", 42)

	assert.Equal(t, "com.example", res.PackageName)

	cls := symbolByFQN(res, "com.example.Runner")
	require.NotNil(t, cls)
	assert.Equal(t, store.TypeClass, cls.SymbolType)
	assert.Equal(t, "Runner", cls.ShortName)
	assert.Contains(t, cls.Modifiers, "public")
	assert.Equal(t, "Base", *cls.ExtendsName)
	assert.Equal(t, []string{"Closeable"}, cls.ImplementsNames)
	assert.Equal(t, "Runs things.", cls.Metadata.Documentation)
	assert.Nil(t, cls.ParentName)
	assert.Equal(t, int64(42), cls.LastModified)
}

func TestExtract_JavaMembers(t *testing.T) {
	t.Parallel()
	tree := parse(t, lang.Java, javaSource)
	res := File(tree, "/w/Runner.java", "main", 42)

	field := symbolByFQN(res, "com.example.Runner.name")
	require.NotNil(t, field)
	assert.Equal(t, store.TypeField, field.SymbolType)
	assert.Equal(t, "String", field.Metadata.ReturnType)
	assert.Equal(t, "com.example.Runner", *field.ParentName)
	assert.Contains(t, field.Modifiers, "private")

	ctor := symbolByFQN(res, "com.example.Runner.Runner")
	require.NotNil(t, ctor)
	assert.Equal(t, store.TypeConstructor, ctor.SymbolType)
	require.Len(t, ctor.Metadata.Parameters, 1)
	assert.Equal(t, "name", ctor.Metadata.Parameters[0].Name)
	assert.Equal(t, "String", ctor.Metadata.Parameters[0].TypeName)

	method := symbolByFQN(res, "com.example.Runner.run")
	require.NotNil(t, method)
	assert.Equal(t, store.TypeMethod, method.SymbolType)
	assert.Equal(t, "List<String>", method.Metadata.ReturnType)
	require.Len(t, method.Metadata.Parameters, 1)
	assert.Equal(t, "int", method.Metadata.Parameters[0].TypeName)

	local := symbolByFQN(res, "com.example.Runner.run.total")
	require.NotNil(t, local)
	assert.Equal(t, store.TypeLocalVariable, local.SymbolType)

	param := symbolByFQN(res, "com.example.Runner.run.count")
	require.NotNil(t, param)
	assert.Equal(t, store.TypeParameter, param.SymbolType)
}

func TestExtract_NestedClassFQN(t *testing.T) {
	t.Parallel()
	tree := parse(t, lang.Java, javaSource)
	res := File(tree, "/w/Runner.java", "main", 42)

	inner := symbolByFQN(res, "com.example.Runner.Inner")
	require.NotNil(t, inner)
	assert.Equal(t, "com.example.Runner", *inner.ParentName)

	depth := symbolByFQN(res, "com.example.Runner.Inner.depth")
	require.NotNil(t, depth)
	assert.Equal(t, "com.example.Runner.Inner", *depth.ParentName)
}

func TestExtract_Edges(t *testing.T) {
	t.Parallel()
	tree := parse(t, lang.Java, javaSource)
	res := File(tree, "/w/Runner.java", "main", 42)

	require.Len(t, res.Supers, 1)
	assert.Equal(t, "com.example.Runner", res.Supers[0].SymbolFQN)
	assert.Equal(t, "Base", res.Supers[0].SuperShortName)
	assert.Nil(t, res.Supers[0].ResolvedFQN, "FQN resolved lazily")

	require.Len(t, res.Ifaces, 1)
	assert.Equal(t, "Closeable", res.Ifaces[0].InterfaceShortName)
}

func TestExtract_IdentSpanWithinFullSpan(t *testing.T) {
	t.Parallel()
	tree := parse(t, lang.Java, javaSource)
	res := File(tree, "/w/Runner.java", "main", 42)

	require.NotEmpty(t, res.Symbols)
	for _, s := range res.Symbols {
		assert.GreaterOrEqual(t, s.IdentLineStart, s.LineStart, s.FullyQualifiedName)
		assert.LessOrEqual(t, s.IdentLineEnd, s.LineEnd, s.FullyQualifiedName)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()
	tree1 := parse(t, lang.Java, javaSource)
	tree2 := parse(t, lang.Java, javaSource)

	res1 := File(tree1, "/w/Runner.java", "main", 42)
	res2 := File(tree2, "/w/Runner.java", "main", 42)

	require.Len(t, res2.Symbols, len(res1.Symbols))
	for i := range res1.Symbols {
		assert.Equal(t, res1.Symbols[i], res2.Symbols[i])
	}
}

func TestExtract_PackageAndImportSymbols(t *testing.T) {
	t.Parallel()
	tree := parse(t, lang.Java, javaSource)
	res := File(tree, "/w/Runner.java", "main", 42)

	pkg := symbolByFQN(res, "com.example")
	require.NotNil(t, pkg)
	assert.Equal(t, store.TypePackage, pkg.SymbolType)

	imp := symbolByFQN(res, "java.util.List")
	require.NotNil(t, imp)
	assert.Equal(t, store.TypeImport, imp.SymbolType)
	assert.Equal(t, "List", imp.ShortName)
}

func TestExtract_JavaEnumConstantsAreFields(t *testing.T) {
	t.Parallel()
	src := "package p;\n\npublic enum Color { RED, GREEN }\n"
	tree := parse(t, lang.Java, src)
	res := File(tree, "/w/Color.java", "main", 1)

	enum := symbolByFQN(res, "p.Color")
	require.NotNil(t, enum)
	assert.Equal(t, store.TypeEnumClass, enum.SymbolType)

	red := symbolByFQN(res, "p.Color.RED")
	require.NotNil(t, red)
	assert.Equal(t, store.TypeField, red.SymbolType)
	assert.Equal(t, "p.Color", *red.ParentName)
}

func TestExtract_JavaAnnotationDecl(t *testing.T) {
	t.Parallel()
	src := "package p;\n\npublic @interface Marker {}\n"
	tree := parse(t, lang.Java, src)
	res := File(tree, "/w/Marker.java", "main", 1)

	ann := symbolByFQN(res, "p.Marker")
	require.NotNil(t, ann)
	assert.Equal(t, store.TypeAnnotation, ann.SymbolType)
}

func TestExtract_GroovyImplicitPublic(t *testing.T) {
	t.Parallel()
	src := "package p\n\nclass Service {\n    void run() {\n    }\n}\n"
	tree := parse(t, lang.Groovy, src)
	res := File(tree, "/w/Service.groovy", "main", 1)

	cls := symbolByFQN(res, "p.Service")
	require.NotNil(t, cls)
	assert.Contains(t, cls.Modifiers, "public")
	assert.Equal(t, "groovy", cls.FileType)
}

func TestExtract_KotlinClassParameter(t *testing.T) {
	t.Parallel()
	src := "package p\n\nclass User(val id: Long, name: String)\n"
	tree := parse(t, lang.Kotlin, src)
	res := File(tree, "/w/User.kt", "main", 1)

	cls := symbolByFQN(res, "p.User")
	require.NotNil(t, cls)

	// val parameter produces both a Parameter and a Property sharing spans.
	var kinds []string
	for _, s := range res.Symbols {
		if s.ShortName == "id" {
			kinds = append(kinds, s.SymbolType)
		}
	}
	assert.ElementsMatch(t, []string{store.TypeParameter, store.TypeProperty}, kinds)

	// Plain parameter produces a Parameter only.
	var nameKinds []string
	for _, s := range res.Symbols {
		if s.ShortName == "name" {
			nameKinds = append(nameKinds, s.SymbolType)
		}
	}
	assert.Equal(t, []string{store.TypeParameter}, nameKinds)
}

func TestExtract_KotlinInterfaceConformance(t *testing.T) {
	t.Parallel()
	src := "package p\n\ninterface Repo\n\nclass UserRepo : Repo\n"
	tree := parse(t, lang.Kotlin, src)
	res := File(tree, "/w/UserRepo.kt", "main", 1)

	repo := symbolByFQN(res, "p.Repo")
	require.NotNil(t, repo)
	assert.Equal(t, store.TypeInterface, repo.SymbolType)

	// Bare user type in the delegation list records an interface edge.
	require.NotEmpty(t, res.Ifaces)
	assert.Equal(t, "p.UserRepo", res.Ifaces[0].SymbolFQN)
	assert.Equal(t, "Repo", res.Ifaces[0].InterfaceShortName)
}

func TestStripCommentMarkers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Runs things.", stripCommentMarkers("/** Runs things. */"))
	assert.Equal(t, "line one\nline two", stripCommentMarkers("/*\n * line one\n * line two\n */"))
	assert.Equal(t, "note", stripCommentMarkers("// note"))
	assert.Equal(t, "", stripCommentMarkers(""))
}
