package resolve

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/harbyn/lspintar/internal/lang"
)

// receiverType resolves the static type of a receiver expression to an FQN.
// Resolution recurses through variable declarations and chained calls,
// capped at maxReceiverDepth, with per-request memoization keyed by the
// receiver text at its byte offset.
func (r *Resolver) receiverType(ctx context.Context, req Request, recv *sitter.Node, recvText string, depth int) (string, error) {
	if depth > maxReceiverDepth {
		return "", nil
	}
	if err := cancelled(ctx); err != nil {
		return "", err
	}

	key := recvText
	if recv != nil {
		key = fmt.Sprintf("%s@%d", recvText, recv.StartByte())
	}
	if fqn, ok := r.memo[key]; ok {
		return fqn, nil
	}
	fqn, err := r.receiverTypeUncached(ctx, req, recv, recvText, depth)
	if err == nil {
		r.memo[key] = fqn
	}
	return fqn, err
}

func (r *Resolver) receiverTypeUncached(ctx context.Context, req Request, recv *sitter.Node, recvText string, depth int) (string, error) {
	t := req.Tree

	// this / self → enclosing class.
	if recvText == "this" || recvText == "self" || (recv != nil && t.KindOf(recv) == lang.KindThisExpr) {
		return enclosingTypeFQN(t, recv), nil
	}

	if recv != nil {
		switch t.KindOf(recv) {
		case lang.KindMethodCall:
			return r.chainedCallType(ctx, req, recv, depth)
		case lang.KindFieldAccess:
			return r.chainedFieldType(ctx, req, recv, depth)
		case lang.KindConstructorCall:
			if typeName := constructorTypeName(t, recv); typeName != "" {
				return r.resolveTypeName(ctx, req, typeName)
			}
		case lang.KindCastExpr:
			if typeName := castTypeName(t, recv); typeName != "" {
				return r.resolveTypeName(ctx, req, typeName)
			}
		}
	}

	// A type name visible via imports or local scope.
	if fqn, err := r.resolveTypeName(ctx, req, recvText); err != nil {
		return "", err
	} else if fqn != "" && looksQualifiedOrType(recvText) {
		return fqn, nil
	}

	// A variable: follow its declaration's declared type.
	if recv != nil {
		if cand := findLocalDecl(t, recv, recvText, -1); cand != nil && cand.typeText != "" {
			return r.resolveNamedType(ctx, req, cand.typeText, depth+1)
		}
	}

	// Last resort: a field of the enclosing class (implicit this).
	if recv != nil {
		if enclosing := enclosingTypeFQN(t, recv); enclosing != "" {
			if tgt, err := r.memberLookup(ctx, req, enclosing, recvText, -1); err == nil && tgt != nil && tgt.sym != nil {
				if declared := tgt.sym.Metadata.ReturnType; declared != "" {
					return r.resolveNamedType(ctx, req, declared, depth+1)
				}
			}
		}
	}
	return "", nil
}

// resolveNamedType resolves a declared type name, with generic arguments
// stripped, through one resolveTypeName lookup. Type aliases are not
// followed; depth only enforces the receiver recursion cap.
func (r *Resolver) resolveNamedType(ctx context.Context, req Request, typeText string, depth int) (string, error) {
	if depth > maxReceiverDepth {
		return "", nil
	}
	return r.resolveTypeName(ctx, req, stripGenericsText(typeText))
}

// chainedCallType resolves the declared return type of a chained call
// receiver: `a.b().c` needs b's return type.
func (r *Resolver) chainedCallType(ctx context.Context, req Request, call *sitter.Node, depth int) (string, error) {
	t := req.Tree
	recvNode, nameNode := splitCall(t, call)
	if nameNode == nil {
		return "", nil
	}
	methodName := t.Text(nameNode)

	var ownerFQN string
	var err error
	if recvNode != nil {
		ownerFQN, err = r.receiverType(ctx, req, recvNode, t.Text(recvNode), depth+1)
	} else {
		ownerFQN = enclosingTypeFQN(t, call)
	}
	if err != nil || ownerFQN == "" {
		return "", err
	}
	tgt, err := r.memberLookup(ctx, req, ownerFQN, methodName, -1)
	if err != nil || tgt == nil {
		return "", err
	}
	var ret string
	switch {
	case tgt.sym != nil:
		ret = tgt.sym.Metadata.ReturnType
	case tgt.ext != nil:
		ret = tgt.ext.Metadata.ReturnType
	}
	if ret == "" {
		return "", nil
	}
	return r.resolveNamedType(ctx, req, ret, depth+1)
}

// chainedFieldType resolves the declared type of a chained field receiver:
// `a.b.c` needs b's type.
func (r *Resolver) chainedFieldType(ctx context.Context, req Request, access *sitter.Node, depth int) (string, error) {
	t := req.Tree
	recvNode, memberNode := splitAccess(t, access)
	if memberNode == nil {
		return "", nil
	}
	memberName := t.Text(memberNode)
	if recvNode == nil {
		return "", nil
	}
	ownerFQN, err := r.receiverType(ctx, req, recvNode, t.Text(recvNode), depth+1)
	if err != nil || ownerFQN == "" {
		return "", err
	}
	tgt, err := r.memberLookup(ctx, req, ownerFQN, memberName, -1)
	if err != nil || tgt == nil {
		return "", err
	}
	var declared string
	switch {
	case tgt.sym != nil:
		declared = tgt.sym.Metadata.ReturnType
	case tgt.ext != nil:
		declared = tgt.ext.Metadata.ReturnType
	}
	if declared == "" {
		return "", nil
	}
	return r.resolveNamedType(ctx, req, declared, depth+1)
}

// splitCall extracts (receiver, name) from a call node across grammars.
func splitCall(t *lang.Tree, call *sitter.Node) (recv, name *sitter.Node) {
	if o := call.ChildByFieldName("object"); o != nil {
		return o, call.ChildByFieldName("name")
	}
	if n := call.ChildByFieldName("name"); n != nil {
		return nil, n
	}
	if call.NamedChildCount() > 0 {
		callee := call.NamedChild(0)
		if t.KindOf(callee) == lang.KindFieldAccess {
			return splitAccess(t, callee)
		}
		return nil, callee
	}
	return nil, nil
}

// splitAccess extracts (receiver, member) from a dotted access node.
func splitAccess(t *lang.Tree, access *sitter.Node) (recv, member *sitter.Node) {
	if o := access.ChildByFieldName("object"); o != nil {
		return o, access.ChildByFieldName("field")
	}
	if access.NamedChildCount() >= 2 {
		recv = access.NamedChild(0)
		suffix := access.NamedChild(int(access.NamedChildCount()) - 1)
		if suffix.NamedChildCount() > 0 {
			return recv, suffix.NamedChild(0)
		}
		return recv, suffix
	}
	return nil, nil
}

func constructorTypeName(t *lang.Tree, n *sitter.Node) string {
	if ft := n.ChildByFieldName("type"); ft != nil {
		return t.Text(ft)
	}
	if n.NamedChildCount() > 0 {
		return t.Text(n.NamedChild(0))
	}
	return ""
}

func castTypeName(t *lang.Tree, n *sitter.Node) string {
	if ft := n.ChildByFieldName("type"); ft != nil {
		return t.Text(ft)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_identifier", "user_type", "generic_type", "scoped_type_identifier":
			return t.Text(c)
		}
	}
	return ""
}

// looksQualifiedOrType reports whether text plausibly names a type rather
// than a variable: qualified, or capitalized.
func looksQualifiedOrType(text string) bool {
	if text == "" {
		return false
	}
	if text[0] >= 'A' && text[0] <= 'Z' {
		return true
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '.' {
			return true
		}
	}
	return false
}
