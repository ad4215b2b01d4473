package fix

import (
	"errors"
	"fmt"

	"orlint/internal/diag"
	"orlint/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// FixConflictError explains why a fix was skipped: one of its edits overlaps
// an edit of a fix that was accepted earlier. It is informational.
type FixConflictError struct {
	FixID    string
	Rule     diag.Code
	Span     source.Span
	WithID   string
	WithRule diag.Code
}

func (e *FixConflictError) Error() string {
	if e.FixID == e.WithID {
		return fmt.Sprintf("fix %s (%s) has overlapping edits", e.FixID, e.Rule)
	}
	return fmt.Sprintf("fix %s (%s) at %d..%d conflicts with fix %s (%s)",
		e.FixID, e.Rule, e.Span.Start, e.Span.End, e.WithID, e.WithRule)
}

// StaleFixError rejects the whole document: an accepted edit no longer fits
// the content it was computed for. Callers must re-analyze before retrying.
type StaleFixError struct {
	FixID    string
	Rule     diag.Code
	Span     source.Span
	Expected string
	Actual   string
	// Size of the content the fix was applied to.
	Size int
}

func (e *StaleFixError) Error() string {
	if !e.Span.Within(e.Size) {
		return fmt.Sprintf("stale fix %s (%s): edit %d..%d is outside the document (size %d)",
			e.FixID, e.Rule, e.Span.Start, e.Span.End, e.Size)
	}
	return fmt.Sprintf("stale fix %s (%s): expected %q at %d..%d, found %q",
		e.FixID, e.Rule, e.Expected, e.Span.Start, e.Span.End, e.Actual)
}

// Diagnostic converts the error into a file-level stale-fix diagnostic.
func (e *StaleFixError) Diagnostic(file source.FileID) diag.Diagnostic {
	return diag.New(diag.SevError, diag.StaleFix, source.Span{File: file}, e.Error())
}
