package resolve

import (
	"context"

	"github.com/harbyn/lspintar/internal/cursor"
	"github.com/harbyn/lspintar/internal/store"
)

// Implementations enumerates concrete implementations for the interface or
// abstract method under the cursor by traversing the implements/super edges
// in reverse. An implementor of a subinterface counts.
func (r *Resolver) Implementations(ctx context.Context, req Request) ([]Location, error) {
	rr := r.perRequest()
	cc := cursor.Classify(req.Tree, req.Line, req.Col)

	switch cc.Role {
	case cursor.RoleDeclaration:
		// Cursor on a declaring identifier: a method inside an interface (or
		// an abstract method) fans out to overriding methods; a type name
		// fans out to implementing types.
		line := int(cc.Node.StartPoint().Row)
		col := int(cc.Node.StartPoint().Column)
		sym, err := rr.store.FindByIdentPosition(req.Branch, req.FilePath, line, col)
		if err != nil || sym == nil {
			return nil, err
		}
		if sym.SymbolType == store.TypeMethod {
			return rr.methodImplementations(ctx, req, sym)
		}
		return rr.typeImplementations(ctx, req, sym.FullyQualifiedName)
	case cursor.RoleMethodCall, cursor.RoleThisQualified, cursor.RoleStaticAccess,
		cursor.RoleFieldAccess:
		tgt, err := rr.resolve(ctx, req)
		if err != nil || tgt == nil || tgt.sym == nil {
			return nil, err
		}
		if tgt.sym.SymbolType == store.TypeMethod {
			return rr.methodImplementations(ctx, req, tgt.sym)
		}
		return rr.typeImplementations(ctx, req, tgt.sym.FullyQualifiedName)
	default:
		fqn, err := rr.resolveTypeName(ctx, req, cc.Name)
		if err != nil || fqn == "" {
			return nil, err
		}
		return rr.typeImplementations(ctx, req, fqn)
	}
}

// typeImplementations collects concrete implementors of the interface FQN,
// recursing through subinterfaces and abstract subclasses.
func (r *Resolver) typeImplementations(ctx context.Context, req Request, fqn string) ([]Location, error) {
	seen := map[string]bool{}
	var out []Location
	var visit func(key string) error
	visit = func(key string) error {
		if err := cancelled(ctx); err != nil {
			return err
		}
		if seen[key] {
			return nil
		}
		seen[key] = true

		impls, err := r.store.FindImplementors(req.Branch, key)
		if err != nil {
			return err
		}
		subs, err := r.store.FindSubclasses(req.Branch, key)
		if err != nil {
			return err
		}
		for _, sym := range append(impls, subs...) {
			if err := cancelled(ctx); err != nil {
				return err
			}
			if seen[sym.FullyQualifiedName] {
				continue
			}
			if sym.SymbolType == store.TypeInterface || hasModifier(sym, "abstract") {
				if err := visit(sym.FullyQualifiedName); err != nil {
					return err
				}
				continue
			}
			seen[sym.FullyQualifiedName] = true
			if loc := fromSymbol(sym).location(); loc != nil {
				out = append(out, *loc)
			}
		}
		return nil
	}
	if err := visit(fqn); err != nil {
		return nil, err
	}
	return out, nil
}

// methodImplementations finds, for an interface or abstract method, the
// matching method (same short name and arity) on every concrete implementor
// of the declaring type.
func (r *Resolver) methodImplementations(ctx context.Context, req Request, method *store.Symbol) ([]Location, error) {
	if method.ParentName == nil || *method.ParentName == "" {
		return nil, nil
	}
	implLocs, err := r.typeImplementations(ctx, req, *method.ParentName)
	if err != nil {
		return nil, err
	}
	arity := len(method.Metadata.Parameters)

	var out []Location
	for _, loc := range implLocs {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		impls, err := r.store.FindAtPosition(req.Branch, loc.FilePath, loc.LineStart)
		if err != nil || len(impls) == 0 {
			continue
		}
		implType := impls[0]
		members, err := r.store.FindByParent(req.Branch, implType.FullyQualifiedName)
		if err != nil {
			continue
		}
		for _, m := range members {
			if m.SymbolType != store.TypeMethod || m.ShortName != method.ShortName {
				continue
			}
			if len(m.Metadata.Parameters) != arity {
				continue
			}
			if l := fromSymbol(m).location(); l != nil {
				out = append(out, *l)
			}
		}
	}
	return out, nil
}

func hasModifier(sym *store.Symbol, mod string) bool {
	for _, m := range sym.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}
