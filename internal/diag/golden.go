package diag

import (
	"fmt"
	"path/filepath"
	"strings"

	"orlint/internal/source"
)

// FormatShortDiagnostics renders diagnostics one per line as
// "severity code path:line:col message". The input order is kept, so callers
// pass already sorted diagnostics. Notes follow their diagnostic when requested.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	lines := make([]string, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		if loc, ok := resolveSpan(fs, d.Primary); ok {
			lines = append(lines, fmt.Sprintf("%s %s %s:%d:%d %s",
				d.Severity.Label(), d.Code.ID(), loc.Path, loc.Line, loc.Column, sanitizeMessage(d.Message)))
		}
		if !includeNotes {
			continue
		}
		for _, note := range d.Notes {
			if nloc, ok := resolveSpan(fs, note.Span); ok {
				lines = append(lines, fmt.Sprintf("note %s %s:%d:%d %s",
					d.Code.ID(), nloc.Path, nloc.Line, nloc.Column, sanitizeMessage(note.Msg)))
			}
		}
	}
	return strings.Join(lines, "\n")
}

type resolvedSpan struct {
	Path   string
	Line   uint32
	Column uint32
}

func resolveSpan(fs *source.FileSet, span source.Span) (loc resolvedSpan, ok bool) {
	if int(span.File) >= fs.Len() {
		return resolvedSpan{}, false
	}
	file := fs.Get(span.File)
	if !span.Within(len(file.Content)) {
		return resolvedSpan{}, false
	}
	start := file.LineCol(span.Start)
	return resolvedSpan{
		Path:   normalizePath(file.FormatPath("relative", fs.BaseDir())),
		Line:   start.Line,
		Column: start.Col,
	}, true
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
