package fix

import (
	"testing"

	"orlint/internal/diag"
	"orlint/internal/source"
)

func sampleDiagnostics() []diag.Diagnostic {
	sp1 := source.Span{File: 1, Start: 0, End: 3}
	sp2 := source.Span{File: 1, Start: 10, End: 12}
	sp3 := source.Span{File: 1, Start: 20, End: 22}
	return []diag.Diagnostic{
		diag.New(diag.SevHint, "style-quote-attributes", sp1, "quote it").
			WithFixSuggestion(ReplaceSpan("add quotes", sp1, `"abc"`, "abc")),
		diag.New(diag.SevWarning, "style-empty-block", sp2, "empty block").
			WithFixSuggestion(DeleteSpan("delete block", sp2, "{}", WithID("empty-1"))),
		diag.New(diag.SevWarning, "custom-no-deprecated-components", sp3, "deprecated").
			WithFixSuggestion(ReplaceSpan("rename", sp3, "New", "Ol", WithApplicability(diag.FixApplicabilityManualReview))),
		diag.New(diag.SevError, "a11y-img-alt", sp3, "no fix"),
	}
}

func TestSelectAllSkipsUnsafe(t *testing.T) {
	cands, skips := Select(sampleDiagnostics(), SelectOptions{Mode: SelectAll})
	if len(cands) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cands))
	}
	if len(skips) != 1 || skips[0].Code != "custom-no-deprecated-components" {
		t.Fatalf("skips = %+v", skips)
	}
	if cands[0].Fix.ID != "style-quote-attributes-0-3-0" {
		t.Fatalf("synthetic id = %q", cands[0].Fix.ID)
	}
}

func TestSelectAllowUnsafe(t *testing.T) {
	cands, skips := Select(sampleDiagnostics(), SelectOptions{Mode: SelectAll, AllowUnsafe: true})
	if len(cands) != 3 || len(skips) != 0 {
		t.Fatalf("candidates = %d skips = %d", len(cands), len(skips))
	}
}

func TestSelectByRule(t *testing.T) {
	cands, _ := Select(sampleDiagnostics(), SelectOptions{Mode: SelectRule, Rule: "style-empty-block"})
	if len(cands) != 1 || cands[0].Fix.ID != "empty-1" {
		t.Fatalf("candidates = %+v", cands)
	}
}

func TestSelectByKeyIgnoresApplicability(t *testing.T) {
	diags := sampleDiagnostics()
	cands, skips := Select(diags, SelectOptions{Mode: SelectKey, Key: diags[2].Key()})
	if len(cands) != 1 || len(skips) != 0 {
		t.Fatalf("candidates = %+v skips = %+v", cands, skips)
	}
	if cands[0].Diag.Code != "custom-no-deprecated-components" {
		t.Fatalf("code = %s", cands[0].Diag.Code)
	}
}

func TestSelectByID(t *testing.T) {
	cands, _ := Select(sampleDiagnostics(), SelectOptions{Mode: SelectID, FixID: "empty-1"})
	if len(cands) != 1 || cands[0].Diag.Code != "style-empty-block" {
		t.Fatalf("candidates = %+v", cands)
	}
	cands, _ = Select(sampleDiagnostics(), SelectOptions{Mode: SelectID, FixID: "missing"})
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %+v", cands)
	}
}

func TestSelectDuplicateFixIDs(t *testing.T) {
	sp := source.Span{File: 1, Start: 0, End: 1}
	d := diag.New(diag.SevWarning, "r", sp, "m").WithFixSuggestion(InsertText("x", sp, "x", WithID("dup")))
	cands, skips := Select([]diag.Diagnostic{d, d}, SelectOptions{})
	if len(cands) != 1 || len(skips) != 1 || skips[0].Reason != "duplicate fix id" {
		t.Fatalf("candidates = %+v skips = %+v", cands, skips)
	}
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	diags := sampleDiagnostics()
	_, _ = Select(diags, SelectOptions{})
	if diags[0].Fixes[0].ID != "" {
		t.Fatalf("input diagnostic was mutated: %q", diags[0].Fixes[0].ID)
	}
}
