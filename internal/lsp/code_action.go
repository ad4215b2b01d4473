package lsp

import (
	"encoding/json"
	"errors"

	"orlint/internal/fix"
	"orlint/internal/source"
	"orlint/internal/workspace"
)

func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	actions := []codeAction{}
	if !wantsQuickFix(params.Context.Only) {
		return s.sendResponse(msg.ID, actions)
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	coord := s.coord
	_, open := s.openDocs[uri]
	s.mu.Unlock()
	if coord == nil || !open {
		return s.sendResponse(msg.ID, actions)
	}
	// stale-флаг не важен: по нему ниже выбирается вид действия
	snap, _ := coord.Diagnostics(uriToPath(uri))
	if snap.Result == nil || snap.File == nil {
		return s.sendResponse(msg.ID, actions)
	}
	// без свежего результата правки по диапазонам опасны: отдаём команды,
	// которые координатор пересчитает на текущем тексте
	direct := !snap.Stale()
	want := spanForRange(snap.File, params.Range)

	for _, d := range snap.Diagnostics() {
		if len(d.Fixes) == 0 || !touches(d.Primary, want) {
			continue
		}
		related := []lspDiagnostic{toLSPDiagnostic(uri, snap, d)}
		key := d.Key()
		for _, f := range fixesOf(d) {
			action := codeAction{
				Title:       fixTitle(f),
				Kind:        "quickfix",
				Diagnostics: related,
				IsPreferred: f.IsPreferred,
			}
			if direct {
				edits := make([]textEdit, 0, len(f.Edits))
				for _, e := range f.Edits {
					edits = append(edits, textEdit{Range: rangeForSpan(snap.File, e.Span), NewText: e.NewText})
				}
				action.Edit = &workspaceEdit{Changes: map[string][]textEdit{uri: edits}}
			} else {
				action.Command = &command{
					Title:     action.Title,
					Command:   commandApplyFix,
					Arguments: []any{applyFixArgs{URI: uri, Key: key, FixID: f.ID}},
				}
			}
			actions = append(actions, action)
		}
	}
	return s.sendResponse(msg.ID, actions)
}

func wantsQuickFix(only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, kind := range only {
		if kind == "quickfix" {
			return true
		}
	}
	return false
}

// touches reports whether a and b overlap or share an endpoint; a cursor
// sitting at the end of a diagnostic still gets its fixes.
func touches(a, b source.Span) bool {
	return a.Start <= b.End && b.Start <= a.End
}

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	if params.Command != commandApplyFix {
		return s.sendError(msg.ID, codeInvalidParams, "unknown command "+params.Command)
	}
	if len(params.Arguments) != 1 {
		return s.sendError(msg.ID, codeInvalidParams, "expected one argument")
	}
	var args applyFixArgs
	if err := json.Unmarshal(params.Arguments[0], &args); err != nil || args.URI == "" || args.Key == "" {
		return s.sendError(msg.ID, codeInvalidParams, "invalid applyFix arguments")
	}
	uri := canonicalURI(args.URI)
	s.mu.Lock()
	coord := s.coord
	s.mu.Unlock()
	if coord == nil {
		return s.sendError(msg.ID, codeNotInitialized, "workspace is not initialized")
	}

	out, err := coord.ApplyFix(s.baseCtx, uriToPath(uri), args.Key, args.FixID)
	if err != nil {
		s.logger.Debug("applyFix failed", "uri", uri, "key", args.Key, "err", err)
		return s.sendError(msg.ID, applyFixErrorCode(err), err.Error())
	}

	s.mu.Lock()
	old, open := s.openDocs[uri]
	if open {
		s.openDocs[uri] = string(out.Content)
	}
	s.mu.Unlock()
	if open {
		edit := applyWorkspaceEditParams{
			Label: "orlint: apply fix",
			Edit: workspaceEdit{Changes: map[string][]textEdit{uri: {{
				Range:   lspRange{End: endPosition(old)},
				NewText: string(out.Content),
			}}}},
		}
		if err := s.sendRequest("workspace/applyEdit", edit); err != nil {
			return err
		}
	}
	return s.sendResponse(msg.ID, map[string]int{"applied": len(out.Applied)})
}

func applyFixErrorCode(err error) int {
	var stale *fix.StaleFixError
	switch {
	case errors.As(err, &stale),
		errors.Is(err, workspace.ErrTextChanged),
		errors.Is(err, workspace.ErrUnknownDiagnostic),
		errors.Is(err, fix.ErrNoFixes):
		return codeContentModified
	case errors.Is(err, workspace.ErrNotOpen):
		return codeInvalidParams
	default:
		return codeInternalError
	}
}
