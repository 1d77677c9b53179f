package server

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/harbyn/lspintar"
)

func (s *Server) didOpen(glspCtx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	content := []byte(params.TextDocument.Text)
	s.docs.open(uri, content)

	path := uriToPath(uri)
	ctx := requestContext(glspCtx)
	if err := s.engine.IndexSource(ctx, path, content); err != nil {
		s.log.Warn("index on open failed", "path", path, "error", err)
	}
	s.publishDiagnostics(glspCtx, uri, path, content)
	return nil
}

func (s *Server) didChange(glspCtx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	content, ok := fullText(params.ContentChanges)
	if !ok {
		return nil
	}
	if !s.docs.setContent(uri, content) {
		s.docs.open(uri, content)
	}

	path := uriToPath(uri)
	ctx := requestContext(glspCtx)
	if err := s.engine.IndexSource(ctx, path, content); err != nil {
		s.log.Warn("index on change failed", "path", path, "error", err)
	}
	s.publishDiagnostics(glspCtx, uri, path, content)
	return nil
}

func (s *Server) didClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.docs.close(string(params.TextDocument.URI))
	return nil
}

// didChangeWatchedFiles picks up class-path changes mid-session: a touched
// build file or JAR re-runs dependency discovery (unchanged JARs are
// skipped by mtime), and source file deletions drop their index rows.
func (s *Server) didChangeWatchedFiles(glspCtx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	rescan := false
	for _, change := range params.Changes {
		path := uriToPath(string(change.URI))
		if buildFile(path) {
			rescan = true
			continue
		}
		if change.Type == protocol.FileChangeTypeDeleted {
			if err := s.engine.RemoveFile(path); err != nil {
				s.log.Warn("remove on delete failed", "path", path, "error", err)
			}
		}
	}
	if rescan {
		ctx := requestContext(glspCtx)
		if err := s.engine.RescanDependencies(ctx); err != nil {
			s.log.Warn("dependency rescan failed", "error", err)
		}
	}
	return nil
}

// buildFile reports paths whose change implies a possible class-path
// change.
func buildFile(path string) bool {
	switch filepath.Base(path) {
	case "build.gradle", "build.gradle.kts", "settings.gradle",
		"settings.gradle.kts", "gradle.properties", "pom.xml":
		return true
	}
	return filepath.Ext(path) == ".jar"
}

// fullText extracts the whole-document text from a full-sync change set.
func fullText(changes []any) ([]byte, bool) {
	for _, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			return []byte(c.Text), true
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				return []byte(c.Text), true
			}
		}
	}
	return nil, false
}

func (s *Server) definition(glspCtx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	path := uriToPath(uri)
	pos := params.Position

	var loc *lspintar.Location
	var err error
	ok := s.docs.withContent(uri, func(content []byte) {
		loc, err = s.engine.Definition(requestContext(glspCtx), path, content,
			uint32(pos.Line), uint32(pos.Character))
	})
	if !ok {
		return nil, nil
	}
	if errors.Is(err, lspintar.ErrCancelled) {
		return nil, err
	}
	if err != nil {
		s.log.Warn("definition failed", "path", path, "error", err)
		return nil, nil
	}
	if loc == nil {
		return nil, nil
	}
	return lspLocation(loc), nil
}

func (s *Server) implementation(glspCtx *glsp.Context, params *protocol.ImplementationParams) (any, error) {
	uri := string(params.TextDocument.URI)
	path := uriToPath(uri)
	pos := params.Position

	var locs []lspintar.Location
	var err error
	ok := s.docs.withContent(uri, func(content []byte) {
		locs, err = s.engine.Implementations(requestContext(glspCtx), path, content,
			uint32(pos.Line), uint32(pos.Character))
	})
	if !ok {
		return nil, nil
	}
	if errors.Is(err, lspintar.ErrCancelled) {
		return nil, err
	}
	if err != nil {
		s.log.Warn("implementation failed", "path", path, "error", err)
		return nil, nil
	}
	out := make([]protocol.Location, 0, len(locs))
	for i := range locs {
		out = append(out, lspLocation(&locs[i]))
	}
	return out, nil
}

func (s *Server) hover(glspCtx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := string(params.TextDocument.URI)
	path := uriToPath(uri)
	pos := params.Position

	var text string
	var err error
	ok := s.docs.withContent(uri, func(content []byte) {
		text, err = s.engine.Hover(requestContext(glspCtx), path, content,
			uint32(pos.Line), uint32(pos.Character))
	})
	if !ok {
		return nil, nil
	}
	if errors.Is(err, lspintar.ErrCancelled) {
		return nil, err
	}
	if err != nil {
		s.log.Warn("hover failed", "path", path, "error", err)
		return nil, nil
	}
	if text == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}, nil
}

func lspLocation(loc *lspintar.Location) protocol.Location {
	return protocol.Location{
		URI: protocol.DocumentUri(pathToURI(loc.FilePath)),
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(loc.LineStart), Character: uint32(loc.CharStart)},
			End:   protocol.Position{Line: uint32(loc.LineEnd), Character: uint32(loc.CharEnd)},
		},
	}
}

// requestContext surfaces the transport's cancellation token.
func requestContext(glspCtx *glsp.Context) context.Context {
	if glspCtx != nil && glspCtx.Context != nil {
		return glspCtx.Context
	}
	return context.Background()
}
