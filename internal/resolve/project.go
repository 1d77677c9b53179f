package resolve

import (
	"context"
	"strings"

	"github.com/harbyn/lspintar/internal/extract"
)

// searchProject is layer 2: resolve a short name through the current file's
// imports (explicit first, then wildcard), then the current package.
func (r *Resolver) searchProject(req Request, name string) (*target, error) {
	for _, fqn := range r.importCandidates(req, name) {
		sym, err := r.store.FindByFQN(req.Branch, fqn)
		if err != nil {
			return nil, err
		}
		if sym != nil {
			return fromSymbol(sym), nil
		}
	}
	return nil, nil
}

// importCandidates produces candidate FQNs for name in order of precedence:
// explicit imports, wildcard expansions, the current package, and the
// default package.
func (r *Resolver) importCandidates(req Request, name string) []string {
	var explicit, wildcard []string
	for _, imp := range extract.ImportPaths(req.Tree) {
		if strings.HasSuffix(imp, ".*") {
			wildcard = append(wildcard, strings.TrimSuffix(imp, ".*")+"."+name)
			continue
		}
		if imp == name || strings.HasSuffix(imp, "."+name) {
			explicit = append(explicit, imp)
		}
	}
	candidates := append(explicit, wildcard...)
	if pkg := extract.PackageName(req.Tree); pkg != "" {
		candidates = append(candidates, pkg+"."+name)
	}
	candidates = append(candidates, name)
	return candidates
}

// resolveTypeName resolves a type name visible at the request site to an
// FQN, trying the name as written, the file's own type declarations, the
// import set, the package, the workspace, and finally the external index.
func (r *Resolver) resolveTypeName(ctx context.Context, req Request, name string) (string, error) {
	if err := cancelled(ctx); err != nil {
		return "", err
	}
	if name == "" {
		return "", nil
	}
	name = stripGenericsText(name)
	if strings.Contains(name, ".") {
		// Already qualified as written.
		if sym, err := r.store.FindByFQN(req.Branch, name); err == nil && sym != nil {
			return sym.FullyQualifiedName, nil
		}
		if ext, err := r.store.FindExternalByFQN(name); err == nil && ext != nil {
			return ext.FullyQualifiedName, nil
		}
		return name, nil
	}

	for _, fqn := range r.importCandidates(req, name) {
		sym, err := r.store.FindByFQN(req.Branch, fqn)
		if err != nil {
			continue
		}
		if sym != nil && sym.IsTypeDecl() {
			return sym.FullyQualifiedName, nil
		}
	}

	if syms, err := r.store.FindByShortName(req.Branch, name); err == nil {
		for _, sym := range syms {
			if sym.IsTypeDecl() {
				return sym.FullyQualifiedName, nil
			}
		}
	}

	if exts, err := r.store.FindExternalByShortName(name); err == nil {
		for _, ext := range exts {
			if isExternalType(ext.SymbolType) {
				return ext.FullyQualifiedName, nil
			}
		}
	}
	return "", nil
}

func isExternalType(symType string) bool {
	switch symType {
	case "class", "interface", "enum_class", "annotation":
		return true
	}
	return false
}
