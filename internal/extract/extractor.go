// Package extract walks concrete syntax trees and emits normalized symbol
// records plus super/implements edges. One depth-first pass per file,
// maintaining a containment stack of the currently open declarations; a
// declaration's parent is the top of the stack at entry.
package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/store"
)

// Result is the extraction output for one file.
type Result struct {
	PackageName string
	Symbols     []*store.Symbol
	Supers      []*store.SuperEdge
	Ifaces      []*store.InterfaceEdge
}

// frame is one open declaration on the containment stack.
type frame struct {
	fqn     string
	symType string
}

type walker struct {
	tree   *lang.Tree
	path   string
	branch string
	now    int64
	pkg    string
	stack  []frame
	out    *Result
}

// File extracts all declarations from a parsed tree. now is the monotonic
// last_modified stamp applied to every produced row so that re-extracting an
// unchanged file yields identical rows.
func File(t *lang.Tree, filePath, branch string, now int64) *Result {
	w := &walker{
		tree:   t,
		path:   filePath,
		branch: branch,
		now:    now,
		out:    &Result{},
	}
	w.pkg = packageName(t)
	w.out.PackageName = w.pkg

	if w.pkg != "" {
		if pkgNode := findPackageNode(t); pkgNode != nil {
			sym := w.newSymbol(pkgNode, pkgNode, lastDot(w.pkg), store.TypePackage)
			sym.FullyQualifiedName = w.pkg
			w.emit(sym)
		}
	}

	w.walk(t.Root())
	return w.out
}

func (w *walker) top() *frame {
	if len(w.stack) == 0 {
		return nil
	}
	return &w.stack[len(w.stack)-1]
}

// qualify builds an FQN for a name declared at the current stack depth.
func (w *walker) qualify(name string) string {
	if top := w.top(); top != nil {
		return top.fqn + "." + name
	}
	if w.pkg != "" {
		return w.pkg + "." + name
	}
	return name
}

func (w *walker) parentFQN() *string {
	if top := w.top(); top != nil {
		fqn := top.fqn
		return &fqn
	}
	return nil
}

func (w *walker) emit(sym *store.Symbol) {
	w.out.Symbols = append(w.out.Symbols, sym)
}

func (w *walker) walk(n *sitter.Node) {
	t := w.tree
	switch t.KindOf(n) {
	case lang.KindImportDecl:
		w.emitImport(n)
		return
	case lang.KindClassDecl, lang.KindInterfaceDecl, lang.KindEnumDecl,
		lang.KindAnnotationDecl, lang.KindObjectDecl:
		w.walkTypeDecl(n)
		return
	case lang.KindMethodDecl:
		w.walkCallable(n, store.TypeMethod)
		return
	case lang.KindConstructorDecl:
		w.walkCallable(n, store.TypeConstructor)
		return
	case lang.KindFieldDecl:
		w.emitFieldDecl(n, store.TypeField)
		return
	case lang.KindPropertyDecl:
		w.emitProperty(n)
		return
	case lang.KindClassParam:
		w.emitClassParam(n)
		return
	case lang.KindParamDecl:
		w.emitParam(n)
		return
	case lang.KindLocalVarDecl:
		w.emitFieldDecl(n, store.TypeLocalVariable)
		return
	case lang.KindEnumConstant:
		w.emitEnumConstant(n)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
}

// walkTypeDecl emits a type symbol, its supertype edges, then recurses into
// the body with the declaration pushed on the containment stack. Nesting is
// unlimited; the FQN joins every enclosing declaration by dot.
func (w *walker) walkTypeDecl(n *sitter.Node) {
	t := w.tree
	name := t.NameNode(n)
	if name == nil {
		return
	}
	symType := classSymbolType(t, n)
	short := t.Text(name)
	fqn := w.qualify(short)

	sym := w.newSymbol(n, name, short, symType)
	sym.FullyQualifiedName = fqn
	sym.Modifiers = w.declModifiers(n)
	sym.Metadata.Documentation = docComment(t, n)
	sym.Metadata.Annotations = annotations(t, n)

	supers, ifaces := supertypes(t, n)
	if len(supers) > 0 {
		ext := supers[0]
		sym.ExtendsName = &ext
	}
	sym.ImplementsNames = ifaces
	w.emit(sym)

	for _, s := range supers {
		w.out.Supers = append(w.out.Supers, &store.SuperEdge{
			VCSBranch:      w.branch,
			SymbolFQN:      fqn,
			SuperShortName: lastDot(s),
			FilePath:       w.path,
		})
	}
	for _, i := range ifaces {
		w.out.Ifaces = append(w.out.Ifaces, &store.InterfaceEdge{
			VCSBranch:          w.branch,
			SymbolFQN:          fqn,
			InterfaceShortName: lastDot(i),
			FilePath:           w.path,
		})
	}

	w.stack = append(w.stack, frame{fqn: fqn, symType: symType})
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
	w.stack = w.stack[:len(w.stack)-1]
}

// walkCallable emits a method or constructor symbol, then recurses into the
// body for parameters and locals.
func (w *walker) walkCallable(n *sitter.Node, symType string) {
	t := w.tree
	name := t.NameNode(n)
	if name == nil && symType == store.TypeConstructor {
		// Kotlin secondary constructors have no name token; use the class.
		if top := w.top(); top != nil {
			short := lastDot(top.fqn)
			sym := w.newSymbol(n, n, short, symType)
			sym.FullyQualifiedName = top.fqn + "." + short
			w.finishCallable(n, sym)
			return
		}
	}
	if name == nil {
		return
	}
	short := t.Text(name)
	sym := w.newSymbol(n, name, short, symType)
	sym.FullyQualifiedName = w.qualify(short)
	w.finishCallable(n, sym)
}

func (w *walker) finishCallable(n *sitter.Node, sym *store.Symbol) {
	t := w.tree
	sym.Modifiers = w.declModifiers(n)
	sym.Metadata.Parameters = parameters(t, n)
	sym.Metadata.ReturnType = returnType(t, n)
	sym.Metadata.Documentation = docComment(t, n)
	sym.Metadata.Annotations = annotations(t, n)
	w.emit(sym)

	w.stack = append(w.stack, frame{fqn: sym.FullyQualifiedName, symType: sym.SymbolType})
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
	w.stack = w.stack[:len(w.stack)-1]
}

// emitFieldDecl handles Java/Groovy field and local variable declarations.
// One declaration may carry several declarators; each yields a symbol.
func (w *walker) emitFieldDecl(n *sitter.Node, symType string) {
	t := w.tree
	declaredType := t.Text(n.ChildByFieldName("type"))
	emitted := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "variable_declarator" && c.Type() != "variable_definition" {
			continue
		}
		name := t.NameNode(c)
		if name == nil {
			continue
		}
		w.emitVariable(n, name, t.Text(name), symType, declaredType)
		emitted = true
	}
	if !emitted {
		// Grammars without a declarator level: the name is a direct child.
		if name := t.NameNode(n); name != nil {
			w.emitVariable(n, name, t.Text(name), symType, declaredType)
		}
	}
}

// emitProperty handles Kotlin property declarations (and top-level ones).
func (w *walker) emitProperty(n *sitter.Node) {
	t := w.tree
	name := t.NameNode(n)
	if name == nil {
		return
	}
	symType := store.TypeProperty
	if top := w.top(); top != nil && (top.symType == store.TypeMethod || top.symType == store.TypeConstructor) {
		symType = store.TypeLocalVariable
	}
	w.emitVariable(n, name, t.Text(name), symType, propertyType(t, n))
}

// emitClassParam handles Kotlin primary constructor parameters. val/var
// parameters produce both a Parameter and a Property symbol sharing spans.
func (w *walker) emitClassParam(n *sitter.Node) {
	t := w.tree
	name := t.NameNode(n)
	if name == nil {
		return
	}
	short := t.Text(name)
	declared := propertyType(t, n)
	w.emitVariable(n, name, short, store.TypeParameter, declared)
	if hasBindingKeyword(t, n) {
		w.emitVariable(n, name, short, store.TypeProperty, declared)
	}
}

func (w *walker) emitParam(n *sitter.Node) {
	t := w.tree
	name := t.NameNode(n)
	if name == nil {
		return
	}
	declared := t.Text(n.ChildByFieldName("type"))
	if declared == "" {
		declared = propertyType(t, n)
	}
	w.emitVariable(n, name, t.Text(name), store.TypeParameter, declared)
}

func (w *walker) emitEnumConstant(n *sitter.Node) {
	t := w.tree
	name := t.NameNode(n)
	if name == nil {
		return
	}
	// Enum constants are Field-kind scoped to the enum class.
	w.emitVariable(n, name, t.Text(name), store.TypeField, "")
}

func (w *walker) emitVariable(decl, name *sitter.Node, short, symType, declaredType string) {
	sym := w.newSymbol(decl, name, short, symType)
	sym.FullyQualifiedName = w.qualify(short)
	switch symType {
	case store.TypeField, store.TypeProperty:
		sym.Modifiers = w.declModifiers(decl)
	default:
		sym.Modifiers = w.modifiers(decl)
	}
	if declaredType != "" {
		sym.Metadata.ReturnType = declaredType
	}
	w.emit(sym)
}

func (w *walker) emitImport(n *sitter.Node) {
	t := w.tree
	text := importPath(t, n)
	if text == "" {
		return
	}
	short := lastDot(text)
	sym := w.newSymbol(n, n, short, store.TypeImport)
	sym.FullyQualifiedName = text
	w.emit(sym)
}

// newSymbol fills the location and identity fields common to every record.
func (w *walker) newSymbol(decl, ident *sitter.Node, short, symType string) *store.Symbol {
	return &store.Symbol{
		VCSBranch:      w.branch,
		ShortName:      short,
		PackageName:    w.pkg,
		ParentName:     w.parentFQN(),
		FilePath:       w.path,
		FileType:       string(w.tree.Lang()),
		SymbolType:     symType,
		LineStart:      int(decl.StartPoint().Row),
		LineEnd:        int(decl.EndPoint().Row),
		CharStart:      int(decl.StartPoint().Column),
		CharEnd:        int(decl.EndPoint().Column),
		IdentLineStart: int(ident.StartPoint().Row),
		IdentLineEnd:   int(ident.EndPoint().Row),
		IdentCharStart: int(ident.StartPoint().Column),
		IdentCharEnd:   int(ident.EndPoint().Column),
		LastModified:   w.now,
	}
}

// modifiers collects declared modifier keywords, restricted to the
// normalized set shared by the three languages.
func (w *walker) modifiers(n *sitter.Node) []string {
	t := w.tree
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if t.KindOf(c) != lang.KindModifiers {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			word := strings.TrimSpace(t.Text(c.Child(j)))
			if normalizedModifiers[word] {
				mods = append(mods, word)
			}
		}
	}
	return mods
}

// declModifiers is modifiers plus Groovy's implicit public for
// declarations that can carry an access modifier (types, callables,
// fields); locals and parameters never get one.
func (w *walker) declModifiers(n *sitter.Node) []string {
	mods := w.modifiers(n)
	if w.tree.Lang() == lang.Groovy && !hasAccessModifier(mods) {
		mods = append([]string{"public"}, mods...)
	}
	return mods
}

var normalizedModifiers = map[string]bool{
	"public": true, "private": true, "protected": true,
	"static": true, "final": true, "abstract": true,
	"override": true, "open": true, "sealed": true,
	"data": true, "companion": true, "default": true,
}

func hasAccessModifier(mods []string) bool {
	for _, m := range mods {
		switch m {
		case "public", "private", "protected":
			return true
		}
	}
	return false
}

// lastDot returns the text after the final dot, or the whole string.
func lastDot(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
