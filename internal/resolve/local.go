package resolve

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/harbyn/lspintar/internal/cursor"
	"github.com/harbyn/lspintar/internal/extract"
	"github.com/harbyn/lspintar/internal/lang"
)

// localCandidate is one declaration found by walking the CST outward from
// the cursor.
type localCandidate struct {
	ident      *sitter.Node
	decl       *sitter.Node
	kind       lang.Kind
	typeText   string
	paramCount int
}

// searchLocal is layer 1: walk enclosing scopes from the cursor outward and
// search declared identifiers. Arity matches take precedence over arity
// mismatches; within the same arity the first lexical match wins.
func (r *Resolver) searchLocal(req Request, cc cursor.Context) *target {
	cand := findLocalDecl(req.Tree, cc.Node, cc.Name, cc.Arity)
	if cand == nil {
		return nil
	}
	line := int(cand.ident.StartPoint().Row)
	col := int(cand.ident.StartPoint().Column)
	if sym, err := r.store.FindByIdentPosition(req.Branch, req.FilePath, line, col); err == nil && sym != nil {
		return fromSymbol(sym)
	}
	return &target{loc: &Location{
		FilePath:  req.FilePath,
		LineStart: line,
		CharStart: col,
		LineEnd:   int(cand.ident.EndPoint().Row),
		CharEnd:   int(cand.ident.EndPoint().Column),
	}}
}

// findLocalDecl searches enclosing scopes for a declaration of name.
// arity < 0 means the use is not a call.
func findLocalDecl(t *lang.Tree, from *sitter.Node, name string, arity int) *localCandidate {
	if from == nil {
		return nil
	}
	for scope := from.Parent(); scope != nil; scope = scope.Parent() {
		switch t.KindOf(scope) {
		case lang.KindBlock, lang.KindMethodDecl, lang.KindConstructorDecl,
			lang.KindClassDecl, lang.KindInterfaceDecl, lang.KindEnumDecl,
			lang.KindObjectDecl, lang.KindSourceFile:
		default:
			continue
		}
		cands := declarationsInScope(t, scope, name)
		if len(cands) == 0 {
			continue
		}
		if arity >= 0 {
			for _, c := range cands {
				if c.paramCount == arity {
					return c
				}
			}
		}
		return cands[0]
	}
	return nil
}

// declarationsInScope collects declarations of name directly inside scope,
// descending one level into body/parameter wrapper nodes.
func declarationsInScope(t *lang.Tree, scope *sitter.Node, name string) []*localCandidate {
	var cands []*localCandidate
	collect := func(n *sitter.Node) {
		if c := candidateFrom(t, n, name); c != nil {
			cands = append(cands, c)
		}
	}
	for i := 0; i < int(scope.NamedChildCount()); i++ {
		child := scope.NamedChild(i)
		if wrapperNode(child.Type()) {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				collect(child.NamedChild(j))
			}
			continue
		}
		collect(child)
	}
	return cands
}

// wrapperNode matches body and parameter containers whose children are the
// actual declarations.
func wrapperNode(nodeType string) bool {
	if strings.HasSuffix(nodeType, "_body") {
		return true
	}
	switch nodeType {
	case "formal_parameters", "function_value_parameters", "parameters",
		"primary_constructor", "statements", "enum_body_declarations":
		return true
	}
	return false
}

// candidateFrom turns a declaration node into a candidate when it declares
// name.
func candidateFrom(t *lang.Tree, n *sitter.Node, name string) *localCandidate {
	switch t.KindOf(n) {
	case lang.KindFieldDecl, lang.KindLocalVarDecl:
		declaredType := t.Text(n.ChildByFieldName("type"))
		if ident := declaratorNamed(t, n, name); ident != nil {
			return &localCandidate{ident: ident, decl: n, kind: t.KindOf(n), typeText: stripGenericsText(declaredType), paramCount: -1}
		}
	case lang.KindPropertyDecl, lang.KindParamDecl, lang.KindClassParam, lang.KindEnumConstant:
		ident := t.NameNode(n)
		if ident != nil && t.Text(ident) == name {
			return &localCandidate{ident: ident, decl: n, kind: t.KindOf(n), typeText: stripGenericsText(declaredTypeText(t, n)), paramCount: -1}
		}
	case lang.KindMethodDecl, lang.KindConstructorDecl:
		ident := t.NameNode(n)
		if ident != nil && t.Text(ident) == name {
			return &localCandidate{
				ident:      ident,
				decl:       n,
				kind:       t.KindOf(n),
				typeText:   stripGenericsText(returnTypeText(t, n)),
				paramCount: countParams(t, n),
			}
		}
	case lang.KindClassDecl, lang.KindInterfaceDecl, lang.KindEnumDecl,
		lang.KindAnnotationDecl, lang.KindObjectDecl:
		ident := t.NameNode(n)
		if ident != nil && t.Text(ident) == name {
			return &localCandidate{ident: ident, decl: n, kind: t.ClassLikeKind(n), typeText: name, paramCount: -1}
		}
	}
	return nil
}

// declaratorNamed finds the variable_declarator naming name inside a
// field/local declaration.
func declaratorNamed(t *lang.Tree, n *sitter.Node, name string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "variable_declarator", "variable_definition", "variable_declaration":
			if ident := t.NameNode(c); ident != nil && t.Text(ident) == name {
				return ident
			}
		}
	}
	if ident := t.NameNode(n); ident != nil && t.Text(ident) == name {
		return ident
	}
	return nil
}

// declaredTypeText mirrors the extractor's positional type scan.
func declaredTypeText(t *lang.Tree, n *sitter.Node) string {
	if ft := n.ChildByFieldName("type"); ft != nil {
		return t.Text(ft)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "user_type", "nullable_type", "type_reference", "type_identifier",
			"scoped_type_identifier", "generic_type", "array_type":
			return t.Text(c)
		case "variable_declaration":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				g := c.NamedChild(j)
				switch g.Type() {
				case "user_type", "nullable_type", "type_identifier":
					return t.Text(g)
				}
			}
		}
	}
	return ""
}

func returnTypeText(t *lang.Tree, n *sitter.Node) string {
	if ft := n.ChildByFieldName("type"); ft != nil {
		return t.Text(ft)
	}
	seenParams := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if wrapperNode(c.Type()) {
			seenParams = true
			continue
		}
		if !seenParams {
			continue
		}
		switch c.Type() {
		case "user_type", "nullable_type", "type_reference", "type_identifier",
			"scoped_type_identifier", "generic_type", "array_type":
			return t.Text(c)
		}
	}
	return ""
}

func countParams(t *lang.Tree, n *sitter.Node) int {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "formal_parameters", "function_value_parameters", "parameters", "parameter_list":
			count := 0
			for j := 0; j < int(c.NamedChildCount()); j++ {
				switch t.KindOf(c.NamedChild(j)) {
				case lang.KindParamDecl, lang.KindClassParam:
					count++
				}
			}
			return count
		}
	}
	return 0
}

func stripGenericsText(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "?")
}

// enclosingTypeFQN computes the FQN of the innermost type declaration
// containing n, from the CST alone.
func enclosingTypeFQN(t *lang.Tree, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	var names []string
	for cur := n; cur != nil; cur = cur.Parent() {
		switch t.KindOf(cur) {
		case lang.KindClassDecl, lang.KindInterfaceDecl, lang.KindEnumDecl,
			lang.KindAnnotationDecl, lang.KindObjectDecl:
			if ident := t.NameNode(cur); ident != nil {
				names = append([]string{t.Text(ident)}, names...)
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	if pkg := extract.PackageName(t); pkg != "" {
		return pkg + "." + strings.Join(names, ".")
	}
	return strings.Join(names, ".")
}
