package resolve

import (
	"context"

	"github.com/harbyn/lspintar/internal/store"
)

// memberLookup searches for member name on typeFQN, then on each supertype
// in BFS order over super- and implements-edges, including external
// supertypes. The cancellation token is checked between per-edge steps.
func (r *Resolver) memberLookup(ctx context.Context, req Request, typeFQN, name string, arity int) (*target, error) {
	queue := []string{typeFQN}
	seen := map[string]bool{typeFQN: true}

	for len(queue) > 0 {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		fqn := queue[0]
		queue = queue[1:]

		members, err := r.store.FindByParent(req.Branch, fqn)
		if err == nil {
			if m := pickOverload(members, name, arity, ""); m != nil {
				return fromSymbol(m), nil
			}
		}

		// A pending external type has no member rows until decompiled.
		if owner, err := r.store.FindExternalByFQN(fqn); err == nil && owner != nil && owner.NeedsDecompilation {
			r.ensureExternal(ctx, owner)
		}
		exts, err := r.store.FindExternalByParent(fqn)
		if err == nil {
			if ext := pickExternalOverload(exts, name, arity); ext != nil {
				return r.ensureExternal(ctx, ext), nil
			}
		}

		supers, err := r.supertypeFQNs(ctx, req, fqn)
		if err != nil {
			return nil, err
		}
		for _, s := range supers {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
	return nil, nil
}

func pickExternalOverload(exts []*store.ExternalSymbol, name string, arity int) *store.ExternalSymbol {
	var fallback *store.ExternalSymbol
	for _, e := range exts {
		if e.ShortName != name {
			continue
		}
		if arity >= 0 && len(e.Metadata.Parameters) == arity {
			return e
		}
		if fallback == nil {
			fallback = e
		}
	}
	return fallback
}

// supertypeFQNs resolves the direct supertypes of fqn. Edges with a NULL
// resolved FQN fall back to short-name lookup; a successful fallback also
// fills the edge for later queries.
func (r *Resolver) supertypeFQNs(ctx context.Context, req Request, fqn string) ([]string, error) {
	var out []string
	addEdge := func(short string, resolved *string, isSuper bool) error {
		if err := cancelled(ctx); err != nil {
			return err
		}
		if resolved != nil && *resolved != "" {
			out = append(out, *resolved)
			return nil
		}
		targetFQN, err := r.resolveTypeName(ctx, req, short)
		if err != nil {
			return err
		}
		if targetFQN == "" {
			return nil
		}
		out = append(out, targetFQN)
		if isSuper {
			_ = r.store.ResolveSuperEdges(req.Branch, short, targetFQN)
		} else {
			_ = r.store.ResolveInterfaceEdges(req.Branch, short, targetFQN)
		}
		return nil
	}

	supers, err := r.store.SuperEdgesFor(req.Branch, fqn)
	if err != nil {
		return nil, err
	}
	for _, e := range supers {
		if err := addEdge(e.SuperShortName, e.ResolvedFQN, true); err != nil {
			return nil, err
		}
	}
	ifaces, err := r.store.InterfaceEdgesFor(req.Branch, fqn)
	if err != nil {
		return nil, err
	}
	for _, e := range ifaces {
		if err := addEdge(e.InterfaceShortName, e.ResolvedFQN, false); err != nil {
			return nil, err
		}
	}

	// External types record their supertype on the row itself.
	if ext, err := r.store.FindExternalByFQN(fqn); err == nil && ext != nil && ext.ExtendsName != nil {
		if t, err := r.resolveTypeName(ctx, req, *ext.ExtendsName); err == nil && t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
