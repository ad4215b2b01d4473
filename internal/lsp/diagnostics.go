package lsp

import (
	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/workspace"
)

// publish sends the diagnostics of snap for path if the document is still
// open.
func (s *Server) publish(path string, snap workspace.Snapshot) {
	uri := pathToURI(path)
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	_, open := s.openDocs[uri]
	limit := s.maxDiagnostics
	trace := s.trace
	if open {
		s.published[uri] = struct{}{}
	}
	s.mu.Unlock()
	if !open {
		return
	}

	diags := snap.Diagnostics()
	if limit > 0 && len(diags) > limit {
		diags = diags[:limit]
	}
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, toLSPDiagnostic(uri, snap, d))
	}
	if trace {
		s.logger.Info("publish", "uri", uri, "version", snap.Version, "count", len(out))
	}
	version := snap.Version
	if err := s.sendPublish(uri, &version, out); err != nil {
		s.logger.Warn("failed to publish diagnostics", "uri", uri, "err", err)
	}
}

func (s *Server) sendPublish(uri string, version *int, diags []lspDiagnostic) error {
	if diags == nil {
		diags = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diags,
	})
}

func (s *Server) sendNotification(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// republishAll re-sends the last results of every open document, e.g. after
// the diagnostic limit changed.
func (s *Server) republishAll() {
	s.mu.Lock()
	coord := s.coord
	uris := make([]string, 0, len(s.openDocs))
	for uri := range s.openDocs {
		uris = append(uris, uri)
	}
	s.mu.Unlock()
	if coord == nil {
		return
	}
	for _, uri := range uris {
		path := uriToPath(uri)
		if snap, _ := coord.Diagnostics(path); snap.Result != nil {
			s.publish(path, snap)
		}
	}
}

func (s *Server) clearPublishedDiagnostics() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	uris := make([]string, 0, len(s.published))
	for uri := range s.published {
		uris = append(uris, uri)
	}
	clear(s.published)
	s.mu.Unlock()
	for _, uri := range uris {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logger.Warn("failed to clear diagnostics", "uri", uri, "err", err)
		}
	}
}

func toLSPDiagnostic(uri string, snap workspace.Snapshot, d diag.Diagnostic) lspDiagnostic {
	out := lspDiagnostic{
		Range:    rangeForSpan(snap.File, d.Primary),
		Severity: lspSeverity(d.Severity),
		Code:     d.Code.ID(),
		Source:   sourceName,
		Message:  d.Message,
		Data:     &diagnosticData{Key: d.Key()},
	}
	for _, n := range d.Notes {
		if snap.File == nil || n.Span.File != snap.File.ID {
			continue
		}
		out.RelatedInformation = append(out.RelatedInformation, diagnosticRelatedInformation{
			Location: location{URI: uri, Range: rangeForSpan(snap.File, n.Span)},
			Message:  n.Msg,
		})
	}
	return out
}

func lspSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	case diag.SevInfo:
		return 3
	default:
		return 4
	}
}

// fixTitle prefixes titles of fixes that need review so editors do not
// present them as one-click safe.
func fixTitle(f diag.Fix) string {
	if f.Applicability == diag.FixApplicabilityManualReview {
		return f.Title + " (review)"
	}
	return f.Title
}

// fixesOf returns d's fixes with stable ids.
func fixesOf(d diag.Diagnostic) []diag.Fix {
	return fix.WithFixIDs(d).Fixes
}
