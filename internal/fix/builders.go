package fix

import (
	"orlint/internal/diag"
	"orlint/internal/source"
)

// Option mutates fix during construction.
type Option func(*diag.Fix)

// WithApplicability overrides applicability metadata.
func WithApplicability(app diag.FixApplicability) Option {
	return func(f *diag.Fix) {
		f.Applicability = app
	}
}

// WithKind overrides fix classification.
func WithKind(kind diag.FixKind) Option {
	return func(f *diag.Fix) {
		f.Kind = kind
	}
}

// Preferred marks fix as preferred suggestion.
func Preferred() Option {
	return func(f *diag.Fix) {
		f.IsPreferred = true
	}
}

// WithID sets stable identifier for fix.
func WithID(id string) Option {
	return func(f *diag.Fix) {
		f.ID = id
	}
}

func applyOptions(f diag.Fix, opts []Option) diag.Fix {
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

// InsertText creates fix that inserts text at the start of at.
func InsertText(title string, at source.Span, text string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    source.Span{File: at.File, Start: at.Start, End: at.Start},
		NewText: text,
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{edit},
	}
	return applyOptions(fix, opts)
}

// DeleteSpan removes text covered by span. expect is the text currently under
// span; the engine refuses the fix if the source no longer matches.
func DeleteSpan(title string, span source.Span, expect string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    span,
		NewText: "",
		OldText: expect,
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{edit},
	}
	return applyOptions(fix, opts)
}

// ReplaceSpan replaces text covered by span with newText.
func ReplaceSpan(title string, span source.Span, newText, expect string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    span,
		NewText: newText,
		OldText: expect,
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{edit},
	}
	return applyOptions(fix, opts)
}

// Rename replaces every span in spans with newText. Each span must currently
// read oldText. Used for paired edits such as an open and close tag.
func Rename(title string, spans []source.Span, oldText, newText string, opts ...Option) diag.Fix {
	edits := make([]diag.TextEdit, 0, len(spans))
	for _, sp := range spans {
		edits = append(edits, diag.TextEdit{Span: sp, NewText: newText, OldText: oldText})
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         edits,
	}
	return applyOptions(fix, opts)
}

// WrapWith surrounds span with prefix and suffix insertions.
func WrapWith(title string, span source.Span, prefix, suffix string, opts ...Option) diag.Fix {
	edits := []diag.TextEdit{
		{
			Span:    source.Span{File: span.File, Start: span.Start, End: span.Start},
			NewText: prefix,
		},
		{
			Span:    source.Span{File: span.File, Start: span.End, End: span.End},
			NewText: suffix,
		},
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindRefactorRewrite,
		Applicability: diag.FixApplicabilitySafeWithHeuristics,
		Edits:         edits,
	}
	return applyOptions(fix, opts)
}
