// Package cursor classifies the identifier under a cursor position into its
// syntactic role. The classifier works on neutral node kinds so one pass
// covers all three grammars.
package cursor

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/harbyn/lspintar/internal/lang"
)

// Role tags what the user is pointing at.
type Role int

const (
	RoleUnknown Role = iota
	RoleTypeReference
	RoleFieldAccess
	RoleMethodCall
	RoleStaticAccess
	RoleThisQualified
	RoleConstructorCall
	RoleImportTarget
	RoleDeclaration
	RoleVariableUse
)

func (r Role) String() string {
	switch r {
	case RoleTypeReference:
		return "type_reference"
	case RoleFieldAccess:
		return "field_access"
	case RoleMethodCall:
		return "method_call"
	case RoleStaticAccess:
		return "static_access"
	case RoleThisQualified:
		return "this_qualified"
	case RoleConstructorCall:
		return "constructor_call"
	case RoleImportTarget:
		return "import_target"
	case RoleDeclaration:
		return "declaration"
	case RoleVariableUse:
		return "variable_use"
	default:
		return "unknown"
	}
}

// Context is the classified cursor position handed to the resolver.
type Context struct {
	Role Role

	// Name is the identifier text under the cursor.
	Name string

	// Receiver is the left side of a dotted access, as written. Empty for
	// unqualified calls and uses.
	Receiver string

	// ReceiverNode is the CST node of the receiver expression, when present.
	ReceiverNode *sitter.Node

	// TypeName carries the type for static access and constructor calls.
	TypeName string

	// Arity is the argument count for calls; -1 when not a call.
	Arity int

	// DeclKind is the neutral kind of the declaration when Role is
	// RoleDeclaration.
	DeclKind lang.Kind

	// ImportParts and ImportIndex locate the cursor inside an import path.
	ImportParts []string
	ImportIndex int

	// Node is the identifier node itself.
	Node *sitter.Node
}

// Classify locates the deepest identifier at (line, col) and determines its
// role. Returns a RoleUnknown context when nothing useful is under the
// cursor.
func Classify(t *lang.Tree, line, col uint32) Context {
	ident := t.IdentifierAt(line, col)
	if ident == nil {
		return Context{Role: RoleUnknown, Arity: -1}
	}
	ctx := Context{Name: t.Text(ident), Node: ident, Arity: -1}

	if t.KindOf(ident) == lang.KindThisExpr {
		ctx.Role = RoleThisQualified
		ctx.Name = ""
		return ctx
	}

	if imp := ancestorOfKind(t, ident, lang.KindImportDecl, 6); imp != nil {
		return classifyImport(t, imp, ident, ctx)
	}

	if decl, kind := declarationFor(t, ident); decl != nil {
		ctx.Role = RoleDeclaration
		ctx.DeclKind = kind
		return ctx
	}

	parent := ident.Parent()
	if parent == nil {
		ctx.Role = RoleVariableUse
		return ctx
	}

	switch t.KindOf(parent) {
	case lang.KindFieldAccess:
		return classifyDotted(t, parent, ident, ctx)
	case lang.KindMethodCall:
		return classifyCall(t, parent, ident, ctx)
	case lang.KindConstructorCall:
		ctx.Role = RoleConstructorCall
		ctx.TypeName = ctx.Name
		ctx.Arity = arityOf(t, parent)
		return ctx
	}

	// The identifier may sit one level down (e.g. inside a scoped type or a
	// Kotlin navigation suffix under a call expression).
	if gp := parent.Parent(); gp != nil {
		switch t.KindOf(gp) {
		case lang.KindFieldAccess:
			return classifyDotted(t, gp, ident, ctx)
		case lang.KindMethodCall:
			return classifyCall(t, gp, ident, ctx)
		case lang.KindConstructorCall:
			ctx.Role = RoleConstructorCall
			ctx.TypeName = ctx.Name
			ctx.Arity = arityOf(t, gp)
			return ctx
		}
	}

	if inTypePosition(t, ident) {
		ctx.Role = RoleTypeReference
		return ctx
	}

	ctx.Role = RoleVariableUse
	return ctx
}

// classifyDotted handles `recv.name` where name is not called. When the
// cursor covers the receiver itself, the receiver's own category wins: the
// user jumps to the receiver, not the member.
func classifyDotted(t *lang.Tree, access, ident *sitter.Node, ctx Context) Context {
	recv, member := accessParts(t, access)
	if recv != nil && containsNode(recv, ident) {
		return classifyReceiver(t, recv, ident, ctx)
	}
	if member != nil && !containsNode(member, ident) {
		// Cursor is elsewhere in the expression (e.g. an argument).
		ctx.Role = RoleVariableUse
		return ctx
	}
	ctx.Receiver = t.Text(recv)
	ctx.ReceiverNode = recv
	switch {
	case recv != nil && t.KindOf(recv) == lang.KindThisExpr:
		ctx.Role = RoleThisQualified
	case recv != nil && looksLikeTypeName(t, recv):
		ctx.Role = RoleStaticAccess
		ctx.TypeName = t.Text(recv)
	default:
		ctx.Role = RoleFieldAccess
	}
	return ctx
}

// classifyCall handles `recv.name(...)` and unqualified `name(...)`.
func classifyCall(t *lang.Tree, call, ident *sitter.Node, ctx Context) Context {
	recv, callee := callParts(t, call)
	if recv != nil && containsNode(recv, ident) {
		return classifyReceiver(t, recv, ident, ctx)
	}
	if callee != nil && !containsNode(callee, ident) {
		// Cursor on an argument, not the callee.
		ctx.Role = RoleVariableUse
		return ctx
	}
	ctx.Arity = arityOf(t, call)
	if recv == nil {
		// Kotlin constructor calls look like unqualified calls; the resolver
		// probes both members and types for capitalized names.
		if t.Lang() == lang.Kotlin && startsUpper(ctx.Name) {
			ctx.Role = RoleConstructorCall
			ctx.TypeName = ctx.Name
			return ctx
		}
		ctx.Role = RoleMethodCall
		return ctx
	}
	ctx.Receiver = t.Text(recv)
	ctx.ReceiverNode = recv
	switch {
	case t.KindOf(recv) == lang.KindThisExpr:
		ctx.Role = RoleThisQualified
	case looksLikeTypeName(t, recv):
		ctx.Role = RoleStaticAccess
		ctx.TypeName = t.Text(recv)
	default:
		ctx.Role = RoleMethodCall
	}
	return ctx
}

// classifyReceiver applies the receiver disambiguation rule: cursor on the
// left of the dot classifies as the receiver's own category.
func classifyReceiver(t *lang.Tree, recv, ident *sitter.Node, ctx Context) Context {
	ctx.Name = t.Text(ident)
	if t.KindOf(ident) == lang.KindThisExpr || t.KindOf(recv) == lang.KindThisExpr {
		ctx.Role = RoleThisQualified
		ctx.Name = ""
		return ctx
	}
	if looksLikeTypeName(t, ident) {
		ctx.Role = RoleTypeReference
	} else {
		ctx.Role = RoleVariableUse
	}
	return ctx
}

func classifyImport(t *lang.Tree, imp, ident *sitter.Node, ctx Context) Context {
	text := t.Text(imp)
	text = strings.TrimPrefix(text, "import")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "static"))
	parts := strings.Split(text, ".")
	idx := len(parts) - 1
	for i, p := range parts {
		if p == ctx.Name {
			idx = i
			break
		}
	}
	ctx.Role = RoleImportTarget
	ctx.ImportParts = parts
	ctx.ImportIndex = idx
	return ctx
}

// accessParts splits a field-access node into (receiver, member).
func accessParts(t *lang.Tree, n *sitter.Node) (recv, member *sitter.Node) {
	if o := n.ChildByFieldName("object"); o != nil {
		return o, n.ChildByFieldName("field")
	}
	// Kotlin navigation_expression: [expression, navigation_suffix].
	if n.NamedChildCount() >= 2 {
		recv = n.NamedChild(0)
		suffix := n.NamedChild(int(n.NamedChildCount()) - 1)
		if suffix.NamedChildCount() > 0 {
			member = suffix.NamedChild(0)
		} else {
			member = suffix
		}
		return recv, member
	}
	return nil, nil
}

// callParts splits a call node into (receiver, callee name node). A nil
// receiver means an unqualified call.
func callParts(t *lang.Tree, n *sitter.Node) (recv, name *sitter.Node) {
	if o := n.ChildByFieldName("object"); o != nil {
		return o, n.ChildByFieldName("name")
	}
	if nm := n.ChildByFieldName("name"); nm != nil {
		return nil, nm
	}
	// Kotlin call_expression: callee is the first named child; a dotted
	// callee is a navigation_expression.
	if n.NamedChildCount() > 0 {
		callee := n.NamedChild(0)
		if t.KindOf(callee) == lang.KindFieldAccess {
			return accessParts(t, callee)
		}
		return nil, callee
	}
	return nil, nil
}

// arityOf counts call arguments.
func arityOf(t *lang.Tree, call *sitter.Node) int {
	if args := call.ChildByFieldName("arguments"); args != nil {
		return int(args.NamedChildCount())
	}
	for i := 0; i < int(call.NamedChildCount()); i++ {
		c := call.NamedChild(i)
		switch c.Type() {
		case "argument_list", "value_arguments", "call_suffix":
			if c.Type() == "call_suffix" {
				for j := 0; j < int(c.NamedChildCount()); j++ {
					if c.NamedChild(j).Type() == "value_arguments" {
						return int(c.NamedChild(j).NamedChildCount())
					}
				}
				continue
			}
			return int(c.NamedChildCount())
		}
	}
	return 0
}

// declarationFor reports whether ident is the declaring identifier of its
// enclosing declaration, returning the declaration node and kind.
func declarationFor(t *lang.Tree, ident *sitter.Node) (*sitter.Node, lang.Kind) {
	for n := ident.Parent(); n != nil; n = n.Parent() {
		kind := t.KindOf(n)
		switch kind {
		case lang.KindClassDecl, lang.KindInterfaceDecl, lang.KindEnumDecl,
			lang.KindAnnotationDecl, lang.KindObjectDecl, lang.KindMethodDecl,
			lang.KindConstructorDecl, lang.KindFieldDecl, lang.KindPropertyDecl,
			lang.KindClassParam, lang.KindParamDecl, lang.KindLocalVarDecl,
			lang.KindEnumConstant:
			name := t.NameNode(n)
			if name != nil && sameNode(name, ident) {
				if kind == lang.KindClassDecl {
					kind = t.ClassLikeKind(n)
				}
				return n, kind
			}
			return nil, lang.KindNone
		case lang.KindBlock, lang.KindSourceFile:
			return nil, lang.KindNone
		}
	}
	return nil, lang.KindNone
}

// inTypePosition reports whether the identifier appears where only a type
// can: supertype clauses, casts, annotations, declared types.
func inTypePosition(t *lang.Tree, ident *sitter.Node) bool {
	if t.KindOf(ident) == lang.KindTypeIdentifier {
		return true
	}
	for n := ident.Parent(); n != nil; n = n.Parent() {
		switch t.KindOf(n) {
		case lang.KindSuperclassClause, lang.KindInterfacesClause,
			lang.KindDelegationSpec, lang.KindCastExpr, lang.KindAnnotationUse:
			return true
		case lang.KindBlock, lang.KindSourceFile, lang.KindMethodDecl,
			lang.KindClassDecl, lang.KindInterfaceDecl:
			return false
		}
		if typeNode(n.Type()) {
			return true
		}
	}
	return false
}

func typeNode(nodeType string) bool {
	switch nodeType {
	case "user_type", "type_reference", "generic_type", "scoped_type_identifier", "array_type", "nullable_type":
		return true
	}
	return false
}

// looksLikeTypeName applies the capitalized-simple-identifier heuristic for
// receivers; the resolver verifies against imports and scope afterwards.
func looksLikeTypeName(t *lang.Tree, n *sitter.Node) bool {
	switch t.KindOf(n) {
	case lang.KindTypeIdentifier:
		return true
	case lang.KindIdentifier:
		return startsUpper(t.Text(n))
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func containsNode(outer, inner *sitter.Node) bool {
	return outer.StartByte() <= inner.StartByte() && inner.EndByte() <= outer.EndByte()
}

// ancestorOfKind walks up at most depth levels looking for kind.
func ancestorOfKind(t *lang.Tree, n *sitter.Node, kind lang.Kind, depth int) *sitter.Node {
	for cur := n.Parent(); cur != nil && depth > 0; cur, depth = cur.Parent(), depth-1 {
		if t.KindOf(cur) == kind {
			return cur
		}
	}
	return nil
}
