package lspintar

import (
	"context"

	"github.com/harbyn/lspintar/internal/lang"
	"github.com/harbyn/lspintar/internal/resolve"
)

// Location is a resolved navigation target.
type Location = resolve.Location

// ErrCancelled propagates request cancellation to the transport layer.
var ErrCancelled = resolve.ErrCancelled

// Diagnostic is one syntactic parse error.
type Diagnostic struct {
	LineStart int
	CharStart int
	LineEnd   int
	CharEnd   int
	Message   string
}

// parseRequest parses the document content and builds a resolver request.
// Returns (nil, nil) for files whose language pipeline is disabled.
func (e *Engine) parseRequest(ctx context.Context, path string, content []byte, line, col uint32) (*resolve.Request, error) {
	l, ok := e.languageFor(path)
	if !ok {
		return nil, nil
	}
	facade, err := lang.NewFacade(l)
	if err != nil {
		return nil, nil
	}
	tree, err := facade.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	return &resolve.Request{
		Tree:     tree,
		FilePath: path,
		Branch:   e.Branch(),
		Line:     line,
		Col:      col,
	}, nil
}

// Definition answers a go-to-definition query for the cursor position. A
// nil location means no candidate was found across all layers (empty
// result per LSP convention).
func (e *Engine) Definition(ctx context.Context, path string, content []byte, line, col uint32) (*Location, error) {
	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()
	req, err := e.parseRequest(ctx, path, content, line, col)
	if err != nil || req == nil {
		return nil, err
	}
	defer req.Tree.Close()
	return e.resolver.Definition(ctx, *req)
}

// Hover answers a hover query with a rendered text block, or "" when
// nothing resolves.
func (e *Engine) Hover(ctx context.Context, path string, content []byte, line, col uint32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()
	req, err := e.parseRequest(ctx, path, content, line, col)
	if err != nil || req == nil {
		return "", err
	}
	defer req.Tree.Close()
	return e.resolver.Hover(ctx, *req)
}

// Implementations answers a go-to-implementation query: all concrete
// implementors of the interface or abstract method under the cursor.
func (e *Engine) Implementations(ctx context.Context, path string, content []byte, line, col uint32) ([]Location, error) {
	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()
	req, err := e.parseRequest(ctx, path, content, line, col)
	if err != nil || req == nil {
		return nil, err
	}
	defer req.Tree.Close()
	return e.resolver.Implementations(ctx, *req)
}

// Diagnostics reports syntactic parse errors for the document. Recomputed
// on every change; no semantic checks.
func (e *Engine) Diagnostics(ctx context.Context, path string, content []byte) ([]Diagnostic, error) {
	l, ok := e.languageFor(path)
	if !ok {
		return nil, nil
	}
	facade, err := lang.NewFacade(l)
	if err != nil {
		return nil, nil
	}
	tree, err := facade.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var diags []Diagnostic
	for _, pe := range tree.Errors() {
		diags = append(diags, Diagnostic{
			LineStart: int(pe.StartLine),
			CharStart: int(pe.StartCol),
			LineEnd:   int(pe.EndLine),
			CharEnd:   int(pe.EndCol),
			Message:   pe.Message,
		})
	}
	return diags, nil
}
