package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Facade is the per-language parser binding. A Facade is cheap and safe to
// create per goroutine; tree-sitter parsers must not be shared across
// threads, trees must not outlive a request.
type Facade struct {
	lang    Language
	grammar *sitter.Language
}

// NewFacade builds a parser facade for lang. Returns an error when the
// grammar is unavailable so the caller can disable that language's pipeline.
func NewFacade(lang Language) (*Facade, error) {
	g, ok := GrammarFor(lang)
	if !ok {
		return nil, fmt.Errorf("no grammar available for %s", lang)
	}
	return &Facade{lang: lang, grammar: g}, nil
}

// Language returns the facade's language tag.
func (f *Facade) Language() Language {
	return f.lang
}

// Parse produces a concrete syntax tree for src. The returned Tree owns a
// copy of neither parser nor source; callers must Close it when done.
func (f *Facade) Parse(ctx context.Context, src []byte) (*Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(f.grammar)
	t, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.lang, err)
	}
	return &Tree{lang: f.lang, src: src, tree: t}, nil
}

// Tree wraps a parsed CST together with the source bytes it was produced
// from. Trees are owned by a single request and are never shared between
// goroutines.
type Tree struct {
	lang Language
	src  []byte
	tree *sitter.Tree
}

// Root returns the root node of the tree.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Lang returns the language the tree was parsed as.
func (t *Tree) Lang() Language {
	return t.lang
}

// Source returns the source bytes backing the tree.
func (t *Tree) Source() []byte {
	return t.src
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(t.src)
}

// KindOf maps n's raw node type to the neutral kind for this tree's language.
func (t *Tree) KindOf(n *sitter.Node) Kind {
	if n == nil {
		return KindNone
	}
	return KindFor(t.lang, n.Type())
}

// NodeAt returns the deepest named node whose span contains the given
// zero-based line and column.
func (t *Tree) NodeAt(line, col uint32) *sitter.Node {
	pt := sitter.Point{Row: line, Column: col}
	return t.Root().NamedDescendantForPointRange(pt, pt)
}

// IdentifierAt returns the identifier token at the position. Token spans
// are end-exclusive in the grammar, but a cursor sitting at the right edge
// of a token still selects that token.
func (t *Tree) IdentifierAt(line, col uint32) *sitter.Node {
	if id := t.identifierAtExact(line, col); id != nil {
		return id
	}
	if col > 0 {
		return t.identifierAtExact(line, col-1)
	}
	return nil
}

func (t *Tree) identifierAtExact(line, col uint32) *sitter.Node {
	n := t.NodeAt(line, col)
	if n == nil {
		return nil
	}
	switch t.KindOf(n) {
	case KindIdentifier, KindTypeIdentifier, KindThisExpr:
		return n
	}
	return nil
}

// ParseError is a syntactic error reported by the grammar.
type ParseError struct {
	StartLine uint32
	StartCol  uint32
	EndLine   uint32
	EndCol    uint32
	Message   string
}

// Errors enumerates ERROR and missing nodes in the tree.
func (t *Tree) Errors() []ParseError {
	var errs []ParseError
	if !t.Root().HasError() {
		return errs
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.IsMissing() {
			errs = append(errs, ParseError{
				StartLine: n.StartPoint().Row,
				StartCol:  n.StartPoint().Column,
				EndLine:   n.EndPoint().Row,
				EndCol:    n.EndPoint().Column,
				Message:   fmt.Sprintf("missing %s", n.Type()),
			})
			return
		}
		if n.Type() == "ERROR" {
			errs = append(errs, ParseError{
				StartLine: n.StartPoint().Row,
				StartCol:  n.StartPoint().Column,
				EndLine:   n.EndPoint().Row,
				EndCol:    n.EndPoint().Column,
				Message:   "syntax error",
			})
			// Still descend: nested errors carry narrower spans.
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(t.Root())
	return errs
}

// ClassLikeKind refines a class-like declaration node into class, interface,
// enum, or annotation. Kotlin and Groovy grammars reuse one declaration node
// for several of these; the distinguishing keyword is an unnamed child.
func (t *Tree) ClassLikeKind(n *sitter.Node) Kind {
	switch t.KindOf(n) {
	case KindInterfaceDecl:
		return KindInterfaceDecl
	case KindEnumDecl:
		return KindEnumDecl
	case KindAnnotationDecl:
		return KindAnnotationDecl
	case KindObjectDecl:
		return KindObjectDecl
	case KindClassDecl:
		// fall through to keyword inspection
	default:
		return KindNone
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.IsNamed() {
			switch c.Type() {
			case "enum_class_body":
				return KindEnumDecl
			}
			continue
		}
		switch c.Content(t.src) {
		case "interface":
			return KindInterfaceDecl
		case "enum":
			return KindEnumDecl
		case "@interface", "annotation":
			return KindAnnotationDecl
		case "class":
			return KindClassDecl
		}
	}
	return KindClassDecl
}

// NameNode returns the identifier node naming a declaration, or nil. Most
// grammars expose it as the "name" field; Kotlin properties and Groovy
// variable declarators nest it one level down.
func (t *Tree) NameNode(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if name := n.ChildByFieldName("name"); name != nil {
		return firstIdentifier(t, name)
	}
	// Kotlin property_declaration → variable_declaration → simple_identifier.
	// Declarators win over direct identifiers, so a Java field's type name is
	// never taken for the declared name.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "variable_declaration", "variable_declarator", "multi_variable_declaration":
			if id := firstIdentifier(t, c); id != nil {
				return id
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "simple_identifier", "identifier", "type_identifier":
			return c
		}
	}
	return nil
}

// firstIdentifier descends to the first identifier-kind node under n,
// including n itself.
func firstIdentifier(t *Tree, n *sitter.Node) *sitter.Node {
	switch t.KindOf(n) {
	case KindIdentifier, KindTypeIdentifier:
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if id := firstIdentifier(t, n.NamedChild(i)); id != nil {
			return id
		}
	}
	return nil
}

// DocCommentBefore returns the comment node immediately preceding decl, if
// any. Used for hover payloads.
func (t *Tree) DocCommentBefore(decl *sitter.Node) string {
	if decl == nil {
		return ""
	}
	prev := decl.PrevNamedSibling()
	if prev == nil && decl.Parent() != nil {
		// Modifiers/annotations may wrap the declaration; look above them.
		prev = decl.Parent().PrevNamedSibling()
	}
	if prev != nil && t.KindOf(prev) == KindComment {
		return t.Text(prev)
	}
	return ""
}
