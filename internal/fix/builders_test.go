package fix

import (
	"testing"

	"orlint/internal/diag"
	"orlint/internal/source"
)

// TestInsertTextCollapsesSpan проверяет, что вставка всегда нулевой длины
func TestInsertTextCollapsesSpan(t *testing.T) {
	span := source.Span{File: 1, Start: 4, End: 9}
	fix := InsertText("Insert alt", span, ` alt=""`)

	if len(fix.Edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(fix.Edits))
	}
	edit := fix.Edits[0]
	if edit.Span.Start != 4 || edit.Span.End != 4 {
		t.Errorf("expected empty span at 4, got %s", edit.Span)
	}
	if edit.OldText != "" {
		t.Errorf("insertions carry no guard, got %q", edit.OldText)
	}
	if fix.Applicability != diag.FixApplicabilityAlwaysSafe {
		t.Errorf("expected AlwaysSafe, got %v", fix.Applicability)
	}
}

// TestDeleteSpanGuard проверяет ожидаемый текст удаления
func TestDeleteSpanGuard(t *testing.T) {
	span := source.Span{File: 1, Start: 9, End: 11}
	fix := DeleteSpan("Remove empty block", span, "{}")

	edit := fix.Edits[0]
	if edit.NewText != "" {
		t.Errorf("expected empty NewText for deletion, got %q", edit.NewText)
	}
	if edit.OldText != "{}" {
		t.Errorf("expected OldText '{}', got %q", edit.OldText)
	}
}

// TestMultipleOptions проверяет комбинацию нескольких опций
func TestMultipleOptions(t *testing.T) {
	span := source.Span{File: 1, Start: 0, End: 3}
	fix := ReplaceSpan(
		"Quote value",
		span,
		`"a"`,
		"a",
		Preferred(),
		WithID("custom-id"),
		WithKind(diag.FixKindRefactor),
		WithApplicability(diag.FixApplicabilitySafeWithHeuristics),
		nil,
	)

	if !fix.IsPreferred {
		t.Error("expected IsPreferred to be true")
	}
	if fix.ID != "custom-id" {
		t.Errorf("expected ID 'custom-id', got %q", fix.ID)
	}
	if fix.Kind != diag.FixKindRefactor {
		t.Errorf("expected Kind FixKindRefactor, got %v", fix.Kind)
	}
	if fix.Applicability != diag.FixApplicabilitySafeWithHeuristics {
		t.Errorf("expected Applicability SafeWithHeuristics, got %v", fix.Applicability)
	}
}

// TestWrapWith проверяет две вставки по краям
func TestWrapWith(t *testing.T) {
	span := source.Span{File: 1, Start: 8, End: 9}
	fix := WrapWith("Quote value", span, `"`, `"`)

	if len(fix.Edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(fix.Edits))
	}
	if fix.Edits[0].Span.Start != 8 || !fix.Edits[0].Span.Empty() {
		t.Errorf("prefix edit at %s", fix.Edits[0].Span)
	}
	if fix.Edits[1].Span.Start != 9 || !fix.Edits[1].Span.Empty() {
		t.Errorf("suffix edit at %s", fix.Edits[1].Span)
	}

	res, err := Apply([]byte("<div id=a>"), []Candidate{{
		Diag: diag.New(diag.SevHint, "style-quote-attributes", span, "unquoted"),
		Fix:  fix,
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(res.Content) != `<div id="a">` {
		t.Errorf("content = %q", res.Content)
	}
}

// TestRenameEditsEverySpan проверяет парное переименование
func TestRenameEditsEverySpan(t *testing.T) {
	spans := []source.Span{{File: 1, Start: 1, End: 4}, {File: 1, Start: 8, End: 11}}
	fix := Rename("Rename", spans, "Old", "New")
	if len(fix.Edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(fix.Edits))
	}
	for _, e := range fix.Edits {
		if e.OldText != "Old" || e.NewText != "New" {
			t.Errorf("edit = %+v", e)
		}
	}
}
