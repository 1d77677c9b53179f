package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/store"
)

// PackageName extracts the declared package, or "" for the default package.
func PackageName(t *lang.Tree) string {
	return packageName(t)
}

// packageName extracts the declared package, or "" for the default package.
func packageName(t *lang.Tree) string {
	n := findPackageNode(t)
	if n == nil {
		return ""
	}
	text := t.Text(n)
	text = strings.TrimPrefix(text, "package")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	return strings.TrimSpace(text)
}

func findPackageNode(t *lang.Tree) *sitter.Node {
	root := t.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		if t.KindOf(c) == lang.KindPackageDecl {
			return c
		}
	}
	return nil
}

// ImportPaths collects the file's import paths as written, with ".*"
// preserved for wildcard imports. Used by the resolver's project layer.
func ImportPaths(t *lang.Tree) []string {
	var paths []string
	root := t.Root()
	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		if t.KindOf(n) == lang.KindImportDecl {
			if p := importPath(t, n); p != "" {
				paths = append(paths, p)
			}
			return
		}
		if depth >= 2 {
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i), depth+1)
		}
	}
	walk(root, 0)
	return paths
}

// importPath returns the imported path as written, with ".*" preserved for
// wildcard imports. Parsing the raw text keeps this uniform across the
// three grammars.
func importPath(t *lang.Tree, n *sitter.Node) string {
	text := t.Text(n)
	text = strings.TrimPrefix(text, "import")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimSpace(text)
	// Java static imports: the member path is what resolution needs.
	text = strings.TrimSpace(strings.TrimPrefix(text, "static"))
	// Kotlin aliases: "import a.b.C as D" — keep the source path.
	if i := strings.Index(text, " as "); i >= 0 {
		text = text[:i]
	}
	return text
}

// classSymbolType maps a refined class-like kind to the stored symbol type.
func classSymbolType(t *lang.Tree, n *sitter.Node) string {
	switch t.ClassLikeKind(n) {
	case lang.KindInterfaceDecl:
		return store.TypeInterface
	case lang.KindEnumDecl:
		return store.TypeEnumClass
	case lang.KindAnnotationDecl:
		return store.TypeAnnotation
	default:
		return store.TypeClass
	}
}

// typeNodeTypes are the node types that render a type expression.
var typeNodeTypes = map[string]bool{
	"type_identifier":        true,
	"scoped_type_identifier": true,
	"generic_type":           true,
	"user_type":              true,
	"nullable_type":          true,
	"type_reference":         true,
	"function_type":          true,
	"array_type":             true,
	"integral_type":          true,
	"floating_point_type":    true,
	"boolean_type":           true,
	"void_type":              true,
}

// stripGenerics removes a trailing type-argument list: "List<User>" → "List".
func stripGenerics(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// supertypes returns the declared superclass names and interface
// conformances, as written (generics stripped). Java and Groovy distinguish
// extends/implements clauses syntactically. Kotlin carries both in
// delegation specifiers: a constructor invocation marks a class supertype,
// a bare user type an interface conformance.
func supertypes(t *lang.Tree, n *sitter.Node) (supers, ifaces []string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch t.KindOf(c) {
		case lang.KindSuperclassClause:
			if name := firstTypeName(t, c); name != "" {
				supers = append(supers, name)
			}
		case lang.KindInterfacesClause:
			ifaces = append(ifaces, typeNames(t, c)...)
		case lang.KindDelegationSpec:
			name, isCtor := delegationTarget(t, c)
			if name == "" {
				continue
			}
			if isCtor {
				supers = append(supers, name)
			} else {
				ifaces = append(ifaces, name)
			}
		}
	}
	// Grammars exposing the clauses as fields rather than named nodes.
	if len(supers) == 0 {
		if sc := n.ChildByFieldName("superclass"); sc != nil {
			supers = append(supers, namesUnder(t, sc)...)
		}
	}
	if len(ifaces) == 0 {
		if ic := n.ChildByFieldName("interfaces"); ic != nil {
			ifaces = append(ifaces, namesUnder(t, ic)...)
		}
	}
	return supers, ifaces
}

// namesUnder permissively collects type-ish names under a clause node,
// accepting plain identifiers as some grammars use them for type names.
func namesUnder(t *lang.Tree, n *sitter.Node) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case typeNodeTypes[n.Type()]:
			names = append(names, stripGenerics(t.Text(n)))
			return
		case n.Type() == "identifier" || n.Type() == "simple_identifier":
			names = append(names, stripGenerics(t.Text(n)))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(n)
	return names
}

// firstTypeName returns the first type name under n.
func firstTypeName(t *lang.Tree, n *sitter.Node) string {
	if typeNodeTypes[n.Type()] {
		return stripGenerics(t.Text(n))
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if name := firstTypeName(t, n.NamedChild(i)); name != "" {
			return name
		}
	}
	return ""
}

// typeNames collects every type name under n (a type_list or similar).
func typeNames(t *lang.Tree, n *sitter.Node) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if typeNodeTypes[n.Type()] {
			names = append(names, stripGenerics(t.Text(n)))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(n)
	return names
}

// delegationTarget reads a Kotlin delegation specifier. Returns the named
// supertype and whether it was a constructor invocation.
func delegationTarget(t *lang.Tree, n *sitter.Node) (string, bool) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "constructor_invocation":
			return firstTypeName(t, c), true
		case "user_type", "type_identifier":
			return stripGenerics(t.Text(c)), false
		case "explicit_delegation":
			return firstTypeName(t, c), false
		}
	}
	return "", false
}

// paramContainerTypes are the nodes wrapping a formal parameter list.
var paramContainerTypes = map[string]bool{
	"formal_parameters":         true,
	"function_value_parameters": true,
	"parameters":                true,
	"parameter_list":            true,
	"primary_constructor":       true,
}

// parameters records the ordered parameter list of a callable, as written.
func parameters(t *lang.Tree, n *sitter.Node) []store.Parameter {
	container := n.ChildByFieldName("parameters")
	if container == nil {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if paramContainerTypes[c.Type()] {
				container = c
				break
			}
		}
	}
	if container == nil {
		return nil
	}
	var params []store.Parameter
	for i := 0; i < int(container.NamedChildCount()); i++ {
		p := container.NamedChild(i)
		switch t.KindOf(p) {
		case lang.KindParamDecl, lang.KindClassParam:
		default:
			continue
		}
		name := t.NameNode(p)
		if name == nil {
			continue
		}
		params = append(params, store.Parameter{
			Name:         t.Text(name),
			TypeName:     declaredType(t, p),
			DefaultValue: defaultValue(t, p),
		})
	}
	return params
}

// declaredType returns a parameter or variable's type expression as written.
func declaredType(t *lang.Tree, n *sitter.Node) string {
	if ft := n.ChildByFieldName("type"); ft != nil {
		return strings.TrimSpace(t.Text(ft))
	}
	return propertyType(t, n)
}

// propertyType scans named children for a type expression; Kotlin grammars
// attach it positionally rather than by field.
func propertyType(t *lang.Tree, n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if typeNodeTypes[c.Type()] {
			return strings.TrimSpace(t.Text(c))
		}
		if c.Type() == "variable_declaration" {
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if typeNodeTypes[c.NamedChild(j).Type()] {
					return strings.TrimSpace(t.Text(c.NamedChild(j)))
				}
			}
		}
	}
	return ""
}

func defaultValue(t *lang.Tree, n *sitter.Node) string {
	if dv := n.ChildByFieldName("default_value"); dv != nil {
		return strings.TrimSpace(t.Text(dv))
	}
	return ""
}

// returnType extracts a callable's declared return type, if present. Java
// exposes it as the "type" field; Kotlin places it after the parameter list.
func returnType(t *lang.Tree, n *sitter.Node) string {
	if ft := n.ChildByFieldName("type"); ft != nil {
		return stripGenericsKeepSimple(t.Text(ft))
	}
	seenParams := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if paramContainerTypes[c.Type()] {
			seenParams = true
			continue
		}
		if seenParams && typeNodeTypes[c.Type()] {
			return stripGenericsKeepSimple(t.Text(c))
		}
	}
	return ""
}

// stripGenericsKeepSimple trims whitespace but keeps the type text as
// written, including generics; chained-call resolution strips them later.
func stripGenericsKeepSimple(s string) string {
	return strings.TrimSpace(s)
}

// hasBindingKeyword reports whether a Kotlin class parameter is marked
// val/var and therefore also declares a property.
func hasBindingKeyword(t *lang.Tree, n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch strings.TrimSpace(t.Text(c)) {
		case "val", "var":
			if !c.IsNamed() || c.Type() == "binding_pattern_kind" {
				return true
			}
		}
	}
	return false
}

// docComment returns the cleaned doc comment preceding a declaration.
func docComment(t *lang.Tree, n *sitter.Node) string {
	return stripCommentMarkers(t.DocCommentBefore(n))
}

// stripCommentMarkers removes comment signifiers from a raw comment block.
func stripCommentMarkers(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// annotations collects annotation uses attached to a declaration via its
// modifier list.
func annotations(t *lang.Tree, n *sitter.Node) []string {
	var anns []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch t.KindOf(c) {
		case lang.KindModifiers:
			for j := 0; j < int(c.NamedChildCount()); j++ {
				m := c.NamedChild(j)
				if t.KindOf(m) == lang.KindAnnotationUse {
					anns = append(anns, strings.TrimSpace(t.Text(m)))
				}
			}
		case lang.KindAnnotationUse:
			anns = append(anns, strings.TrimSpace(t.Text(c)))
		}
	}
	return anns
}
