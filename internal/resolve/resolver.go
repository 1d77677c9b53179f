// Package resolve implements the layered search cascade that turns a
// classified cursor context into a target location or hover payload. Layers
// are consulted in order: local file, project (imports and package),
// workspace, external dependencies. Each layer is tried only when the
// previous returned nothing; recoverable errors are absorbed and the next
// layer tried.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/harbyn/lspintar/internal/cursor"
	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/store"
)

// ErrCancelled is returned when the request's cancellation token fired; the
// transport layer reports it as a cancelled request.
var ErrCancelled = errors.New("request cancelled")

// maxReceiverDepth caps recursive receiver-type resolution so mutually
// referring types cannot cycle.
const maxReceiverDepth = 8

// Location is a resolved target: a file path plus the identifier span.
type Location struct {
	FilePath  string
	LineStart int
	CharStart int
	LineEnd   int
	CharEnd   int
}

// target is a resolved symbol from either the workspace or the external
// tables; purely local CST hits carry only a location.
type target struct {
	sym *store.Symbol
	ext *store.ExternalSymbol
	loc *Location
}

func (t *target) location() *Location {
	switch {
	case t == nil:
		return nil
	case t.sym != nil:
		return &Location{
			FilePath:  t.sym.FilePath,
			LineStart: t.sym.IdentLineStart,
			CharStart: t.sym.IdentCharStart,
			LineEnd:   t.sym.IdentLineEnd,
			CharEnd:   t.sym.IdentCharEnd,
		}
	case t.ext != nil:
		return &Location{
			FilePath:  t.ext.SourceFilePath,
			LineStart: t.ext.IdentLineStart,
			CharStart: t.ext.IdentCharStart,
			LineEnd:   t.ext.IdentLineEnd,
			CharEnd:   t.ext.IdentCharEnd,
		}
	default:
		return t.loc
	}
}

func fromSymbol(sym *store.Symbol) *target {
	if sym == nil {
		return nil
	}
	return &target{sym: sym}
}

// ExternalSource is the dependency cache surface the resolver consumes:
// EnsureScanned populates the external tables on first use (the lazy half
// of build_on_init), EnsureSource makes one symbol navigable, decompiling
// on demand.
type ExternalSource interface {
	EnsureScanned(ctx context.Context) error
	EnsureSource(ctx context.Context, sym *store.ExternalSymbol) (*store.ExternalSymbol, error)
}

// Request carries one cursor query through the cascade.
type Request struct {
	Tree     *lang.Tree
	FilePath string
	Branch   string
	Line     uint32
	Col      uint32
}

// Resolver orchestrates the cascade over the symbol index and the
// dependency cache.
type Resolver struct {
	store    *store.Store
	external ExternalSource
	log      *slog.Logger

	// memo caches receiver-type resolutions within a single request; keyed
	// by receiver text at a byte offset.
	memo map[string]string
}

// New builds a Resolver. external may be nil, in which case navigation to
// undecompiled symbols degrades to the JAR path with a zero span.
func New(s *store.Store, external ExternalSource, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{store: s, external: external, log: log}
}

// perRequest returns a resolver clone with fresh request-scoped memoization.
func (r *Resolver) perRequest() *Resolver {
	return &Resolver{store: r.store, external: r.external, log: r.log, memo: map[string]string{}}
}

// Definition resolves the declaration targeted by the cursor. A nil
// location with nil error means NotFound, which the transport reports as an
// empty result per LSP convention.
func (r *Resolver) Definition(ctx context.Context, req Request) (*Location, error) {
	tgt, err := r.perRequest().resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return tgt.location(), nil
}

// resolve runs classification plus the cascade and returns the target.
func (r *Resolver) resolve(ctx context.Context, req Request) (*target, error) {
	cc := cursor.Classify(req.Tree, req.Line, req.Col)
	r.log.Debug("classified cursor",
		"file", req.FilePath, "line", req.Line, "col", req.Col,
		"role", cc.Role.String(), "name", cc.Name)

	switch cc.Role {
	case cursor.RoleUnknown:
		return nil, nil
	case cursor.RoleDeclaration:
		return r.declarationTarget(ctx, req, cc)
	case cursor.RoleImportTarget:
		return r.importTarget(ctx, req, cc)
	case cursor.RoleThisQualified:
		return r.thisQualified(ctx, req, cc)
	case cursor.RoleStaticAccess:
		return r.staticAccess(ctx, req, cc)
	case cursor.RoleFieldAccess, cursor.RoleMethodCall:
		if cc.Receiver != "" {
			return r.qualifiedMember(ctx, req, cc)
		}
		return r.cascade(ctx, req, cc)
	case cursor.RoleConstructorCall:
		return r.constructorTarget(ctx, req, cc)
	default:
		return r.cascade(ctx, req, cc)
	}
}

// cascade runs the four layers for an unqualified name.
func (r *Resolver) cascade(ctx context.Context, req Request, cc cursor.Context) (*target, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	if tgt := r.searchLocal(req, cc); tgt != nil {
		return tgt, nil
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	if tgt, err := r.searchProject(req, cc.Name); err == nil && tgt != nil {
		return tgt, nil
	} else if err != nil {
		r.log.Warn("project layer failed", "name", cc.Name, "error", err)
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	if tgt, err := r.searchWorkspace(req, cc.Name); err == nil && tgt != nil {
		return tgt, nil
	} else if err != nil {
		r.log.Warn("workspace layer failed", "name", cc.Name, "error", err)
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	return r.searchExternal(ctx, cc.Name)
}

// declarationTarget: the cursor sits on the declaring identifier. For an
// overriding method, definition jumps across to the declaration it
// overrides — possibly in another language; otherwise the declaration
// itself is the target.
func (r *Resolver) declarationTarget(ctx context.Context, req Request, cc cursor.Context) (*target, error) {
	n := cc.Node
	line, col := int(n.StartPoint().Row), int(n.StartPoint().Column)
	sym, err := r.store.FindByIdentPosition(req.Branch, req.FilePath, line, col)
	if err == nil && sym != nil {
		if sym.SymbolType == store.TypeMethod && sym.ParentName != nil {
			if base, err := r.overriddenMethod(ctx, req, sym); err != nil {
				return nil, err
			} else if base != nil {
				return base, nil
			}
		}
		return fromSymbol(sym), nil
	}
	return &target{loc: &Location{
		FilePath:  req.FilePath,
		LineStart: line,
		CharStart: col,
		LineEnd:   int(n.EndPoint().Row),
		CharEnd:   int(n.EndPoint().Column),
	}}, nil
}

// overriddenMethod finds the supertype declaration a method overrides, BFS
// over the declaring type's super- and implements-edges.
func (r *Resolver) overriddenMethod(ctx context.Context, req Request, method *store.Symbol) (*target, error) {
	supers, err := r.supertypeFQNs(ctx, req, *method.ParentName)
	if err != nil || len(supers) == 0 {
		return nil, err
	}
	arity := len(method.Metadata.Parameters)
	for _, superFQN := range supers {
		tgt, err := r.memberLookup(ctx, req, superFQN, method.ShortName, arity)
		if err != nil {
			return nil, err
		}
		if tgt != nil {
			return tgt, nil
		}
	}
	return nil, nil
}

// importTarget resolves the segment of an import statement under the
// cursor: a full path for the final segment, a package prefix otherwise.
func (r *Resolver) importTarget(ctx context.Context, req Request, cc cursor.Context) (*target, error) {
	fqn := strings.Join(cc.ImportParts[:cc.ImportIndex+1], ".")
	fqn = strings.TrimSuffix(fqn, ".*")
	if sym, err := r.store.FindByFQN(req.Branch, fqn); err == nil && sym != nil {
		return fromSymbol(sym), nil
	}
	return r.externalByFQN(ctx, fqn)
}

// thisQualified resolves `this.member`, searching the enclosing class and
// then its supertype chain; inherited members are found by the BFS.
func (r *Resolver) thisQualified(ctx context.Context, req Request, cc cursor.Context) (*target, error) {
	enclosing := enclosingTypeFQN(req.Tree, cc.Node)
	if enclosing == "" {
		return nil, nil
	}
	if cc.Name == "" {
		// Cursor on `this` itself: jump to the enclosing class.
		sym, err := r.store.FindByFQN(req.Branch, enclosing)
		if err != nil {
			return nil, err
		}
		return fromSymbol(sym), nil
	}
	return r.memberLookup(ctx, req, enclosing, cc.Name, cc.Arity)
}

// staticAccess resolves `Type.member`; the member side only — the receiver
// side classifies as a type reference and never reaches here.
func (r *Resolver) staticAccess(ctx context.Context, req Request, cc cursor.Context) (*target, error) {
	typeFQN, err := r.resolveTypeName(ctx, req, cc.TypeName)
	if err != nil || typeFQN == "" {
		return nil, err
	}
	return r.memberLookup(ctx, req, typeFQN, cc.Name, cc.Arity)
}

// qualifiedMember resolves `recv.member` by first resolving the receiver's
// type, then looking the member up on that type and its supertypes.
func (r *Resolver) qualifiedMember(ctx context.Context, req Request, cc cursor.Context) (*target, error) {
	typeFQN, err := r.receiverType(ctx, req, cc.ReceiverNode, cc.Receiver, 0)
	if err != nil {
		return nil, err
	}
	if typeFQN == "" {
		// Unresolved receiver: NotFound rather than guessing.
		return nil, nil
	}
	return r.memberLookup(ctx, req, typeFQN, cc.Name, cc.Arity)
}

// constructorTarget resolves `new T(...)` / Kotlin `T(...)`: prefer a
// declared constructor of matching arity, fall back to the type itself.
func (r *Resolver) constructorTarget(ctx context.Context, req Request, cc cursor.Context) (*target, error) {
	typeFQN, err := r.resolveTypeName(ctx, req, cc.TypeName)
	if err != nil {
		return nil, err
	}
	if typeFQN == "" {
		// Kotlin unqualified calls reach here for plain functions too.
		return r.cascade(ctx, req, cc)
	}
	members, err := r.store.FindByParent(req.Branch, typeFQN)
	if err == nil {
		if ctor := pickOverload(members, lastDot(typeFQN), cc.Arity, store.TypeConstructor); ctor != nil {
			return fromSymbol(ctor), nil
		}
	}
	if sym, err := r.store.FindByFQN(req.Branch, typeFQN); err == nil && sym != nil {
		return fromSymbol(sym), nil
	}
	return r.externalByFQN(ctx, typeFQN)
}

// pickOverload applies arity-first overload resolution: exact arity wins,
// then the first lexical match.
func pickOverload(members []*store.Symbol, name string, arity int, symType string) *store.Symbol {
	var fallback *store.Symbol
	for _, m := range members {
		if m.ShortName != name {
			continue
		}
		if symType != "" && m.SymbolType != symType {
			continue
		}
		if arity >= 0 && len(m.Metadata.Parameters) == arity {
			return m
		}
		if fallback == nil {
			fallback = m
		}
	}
	return fallback
}

func cancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

func lastDot(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
