package diag

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"orlint/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// TextEdit replaces Span with NewText. OldText, when set, must match the
// current source under Span for the edit to be applied.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// FixKind classifies a fix for UI listings.
type FixKind uint8

const (
	FixKindQuickFix FixKind = iota
	FixKindRefactor
	FixKindRefactorRewrite
	FixKindSourceAction
)

// FixApplicability describes how safe it is to apply a fix without review.
type FixApplicability uint8

const (
	FixApplicabilityAlwaysSafe FixApplicability = iota
	FixApplicabilitySafeWithHeuristics
	FixApplicabilityManualReview
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilitySafeWithHeuristics:
		return "safe-with-heuristics"
	case FixApplicabilityManualReview:
		return "manual-review"
	}
	return "unknown"
}

// Fix is an atomic group of edits: it is applied completely or not at all.
type Fix struct {
	ID            string
	Title         string
	Kind          FixKind
	Applicability FixApplicability
	IsPreferred   bool
	Edits         []TextEdit
}

// Diagnostic is one finding. It is treated as immutable once reported.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithFix(title string, edits ...TextEdit) Diagnostic {
	d.Fixes = append(d.Fixes, Fix{Title: title, Edits: edits})
	return d
}

func (d Diagnostic) WithFixSuggestion(fix Fix) Diagnostic {
	d.Fixes = append(d.Fixes, fix)
	return d
}

// Key is a stable identity for the diagnostic within one analysis of one file.
// Editors use it to ask for a specific diagnostic's fix.
// Severity is not part of the key so config changes to severity keep it stable.
func (d Diagnostic) Key() string {
	h := xxhash.New()
	_, _ = h.WriteString(string(d.Code))
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], d.Primary.Start)
	binary.LittleEndian.PutUint32(buf[4:8], d.Primary.End)
	_, _ = h.Write(buf[:])
	_, _ = h.WriteString(d.Message)
	return strconv.FormatUint(h.Sum64(), 16)
}

// FixByID returns the fix with the given id; an empty id selects the preferred
// fix, or the first one when none is preferred.
func (d Diagnostic) FixByID(id string) (Fix, bool) {
	if len(d.Fixes) == 0 {
		return Fix{}, false
	}
	if id == "" {
		for _, f := range d.Fixes {
			if f.IsPreferred {
				return f, true
			}
		}
		return d.Fixes[0], true
	}
	for _, f := range d.Fixes {
		if f.ID == id {
			return f, true
		}
	}
	return Fix{}, false
}

// InBounds reports whether the primary span, notes and every fix edit fit a
// document of the given size.
func (d Diagnostic) InBounds(size int) bool {
	if !d.Primary.Within(size) {
		return false
	}
	for _, n := range d.Notes {
		if n.Span.File == d.Primary.File && !n.Span.Within(size) {
			return false
		}
	}
	for _, f := range d.Fixes {
		for _, e := range f.Edits {
			if !e.Span.Within(size) {
				return false
			}
		}
	}
	return true
}
