package cursor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbyn/lspintar/internal/lang"
)

func parseJava(t *testing.T, src string) *lang.Tree {
	t.Helper()
	f, err := lang.NewFacade(lang.Java)
	require.NoError(t, err)
	tree, err := f.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

// position finds the zero-based (line, col) of the nth occurrence of needle.
func position(t *testing.T, src, needle string, nth int) (uint32, uint32) {
	t.Helper()
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

const demoSource = `package com.example;

import java.util.List;

public class Demo {
    private Helper helper;

    void handle(int count) {
        int limit = DataProcessor.MAX_BATCH_SIZE;
        helper.process(limit);
        this.helper = null;
        Demo d = new Demo();
        run();
    }

    void run() {
    }
}
`

func classifyAt(t *testing.T, src, needle string, nth int) Context {
	t.Helper()
	tree := parseJava(t, src)
	line, col := position(t, src, needle, nth)
	return Classify(tree, line, col+1)
}

func TestClassify_StaticAccessMember(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "MAX_BATCH_SIZE", 0)
	assert.Equal(t, RoleStaticAccess, cc.Role)
	assert.Equal(t, "MAX_BATCH_SIZE", cc.Name)
	assert.Equal(t, "DataProcessor", cc.TypeName)
}

func TestClassify_ReceiverOfStaticAccess(t *testing.T) {
	t.Parallel()
	// Cursor on the left of the dot: the receiver's own category wins.
	cc := classifyAt(t, demoSource, "DataProcessor", 0)
	assert.Equal(t, RoleTypeReference, cc.Role)
	assert.Equal(t, "DataProcessor", cc.Name)
}

func TestClassify_MethodCallWithReceiver(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "process", 0)
	assert.Equal(t, RoleMethodCall, cc.Role)
	assert.Equal(t, "process", cc.Name)
	assert.Equal(t, "helper", cc.Receiver)
	assert.Equal(t, 1, cc.Arity)
}

func TestClassify_VariableReceiver(t *testing.T) {
	t.Parallel()
	// "helper" in helper.process(...) — lowercase receiver is a variable use.
	cc := classifyAt(t, demoSource, "helper.process", 0)
	assert.Equal(t, RoleVariableUse, cc.Role)
	assert.Equal(t, "helper", cc.Name)
}

func TestClassify_ArgumentIsVariableUse(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "limit)", 0)
	assert.Equal(t, RoleVariableUse, cc.Role)
	assert.Equal(t, "limit", cc.Name)
}

func TestClassify_ThisQualified(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "helper = null", 0)
	assert.Equal(t, RoleThisQualified, cc.Role)
	assert.Equal(t, "helper", cc.Name)
}

func TestClassify_ConstructorCall(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "Demo()", 0)
	assert.Equal(t, RoleConstructorCall, cc.Role)
	assert.Equal(t, "Demo", cc.TypeName)
	assert.Equal(t, 0, cc.Arity)
}

func TestClassify_UnqualifiedCall(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "run()", 0)
	assert.Equal(t, RoleMethodCall, cc.Role)
	assert.Equal(t, "run", cc.Name)
	assert.Empty(t, cc.Receiver)
	assert.Equal(t, 0, cc.Arity)
}

func TestClassify_ImportTarget(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "List", 0)
	assert.Equal(t, RoleImportTarget, cc.Role)
	assert.Equal(t, []string{"java", "util", "List"}, cc.ImportParts)
	assert.Equal(t, 2, cc.ImportIndex)
}

func TestClassify_Declaration(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "Demo {", 0)
	assert.Equal(t, RoleDeclaration, cc.Role)
	assert.Equal(t, "Demo", cc.Name)
	assert.Equal(t, lang.KindClassDecl, cc.DeclKind)
}

func TestClassify_TypeReferenceInFieldDecl(t *testing.T) {
	t.Parallel()
	cc := classifyAt(t, demoSource, "Helper helper", 0)
	assert.Equal(t, RoleTypeReference, cc.Role)
	assert.Equal(t, "Helper", cc.Name)
}

func TestClassify_NothingUnderCursor(t *testing.T) {
	t.Parallel()
	tree := parseJava(t, demoSource)
	cc := Classify(tree, 1, 0)
	assert.Equal(t, RoleUnknown, cc.Role)
}
