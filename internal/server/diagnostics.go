package server

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// publishDiagnostics reports the document's parse errors at Error severity.
// Diagnostics are recomputed on every change; a clean parse publishes an
// empty set so stale squiggles clear.
func (s *Server) publishDiagnostics(glspCtx *glsp.Context, uri, path string, content []byte) {
	diags, err := s.engine.Diagnostics(context.Background(), path, content)
	if err != nil {
		s.log.Warn("diagnostics failed", "path", path, "error", err)
		return
	}

	severity := protocol.DiagnosticSeverityError
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(d.LineStart), Character: uint32(d.CharStart)},
				End:   protocol.Position{Line: uint32(d.LineEnd), Character: uint32(d.CharEnd)},
			},
			Severity: &severity,
			Message:  d.Message,
		})
	}

	glspCtx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: out,
	})
}
