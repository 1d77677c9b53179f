package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		lang Language
		ok   bool
	}{
		{"/w/Foo.java", Java, true},
		{"/w/Foo.groovy", Groovy, true},
		{"/w/build.gvy", Groovy, true},
		{"/w/Foo.kt", Kotlin, true},
		{"/w/build.kts", Kotlin, true},
		{"/w/Foo.KT", Kotlin, true},
		{"/w/Foo.scala", "", false},
		{"/w/Foo", "", false},
	}
	for _, tt := range tests {
		lang, ok := ForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.lang, lang, tt.path)
	}
}

func TestSupported_AllThreeGrammars(t *testing.T) {
	t.Parallel()
	assert.ElementsMatch(t, []Language{Java, Groovy, Kotlin}, Supported())
}

func parseJava(t *testing.T, src string) *Tree {
	t.Helper()
	f, err := NewFacade(Java)
	require.NoError(t, err)
	tree, err := f.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func TestParse_JavaTree(t *testing.T) {
	t.Parallel()
	tree := parseJava(t, "package p;\n\npublic class A {}\n")
	require.NotNil(t, tree.Root())
	assert.Equal(t, KindSourceFile, tree.KindOf(tree.Root()))
	assert.Empty(t, tree.Errors())
}

func TestNodeAt_DeepestIdentifier(t *testing.T) {
	t.Parallel()
	src := "package p;\n\npublic class Abc {}\n"
	tree := parseJava(t, src)

	// Line 2, col 13 is inside "Abc".
	n := tree.IdentifierAt(2, 13)
	require.NotNil(t, n)
	assert.Equal(t, "Abc", tree.Text(n))
}

func TestNodeAt_TokenBoundaryInclusive(t *testing.T) {
	t.Parallel()
	src := "package p;\n\npublic class Abc {}\n"
	tree := parseJava(t, src)

	// Col 16 is immediately after the last byte of "Abc" (cols 13..15).
	n := tree.IdentifierAt(2, 16)
	require.NotNil(t, n)
	assert.Equal(t, "Abc", tree.Text(n))
}

func TestErrors_BrokenSource(t *testing.T) {
	t.Parallel()
	tree := parseJava(t, "package p;\n\npublic class A {\n  void run( {\n}\n")
	errs := tree.Errors()
	assert.NotEmpty(t, errs)
	for _, e := range errs {
		assert.NotEmpty(t, e.Message)
	}
}

func TestClassLikeKind_Java(t *testing.T) {
	t.Parallel()
	tree := parseJava(t, "package p;\ninterface I {}\nclass C {}\nenum E { A }\n@interface N {}\n")
	root := tree.Root()

	var kinds []Kind
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if k := tree.ClassLikeKind(n); k != KindNone {
			kinds = append(kinds, k)
		}
	}
	assert.Equal(t, []Kind{KindInterfaceDecl, KindClassDecl, KindEnumDecl, KindAnnotationDecl}, kinds)
}

func TestKindFor_UnknownLanguage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, KindNone, KindFor("scala", "class_declaration"))
	assert.Equal(t, KindNone, KindFor(Java, "no_such_node"))
}
