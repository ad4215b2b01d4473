package custom

import (
	"context"
	"testing"

	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/parser"
	"orlint/internal/rules"
	"orlint/internal/source"
)

func run(t *testing.T, src string, settings rules.Settings) ([]diag.Diagnostic, []byte) {
	t.Helper()
	fs := source.NewFileSet()
	doc := parser.ParseSource(fs, "test.orbit", []byte(src), parser.Options{})
	if len(doc.Diagnostics) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", doc.Diagnostics)
	}
	bag := diag.NewBag(0)
	r := noDeprecatedComponents{}
	ctx := rules.NewContext(context.Background(), r.Meta().ID, doc, fs.Get(doc.File), settings, diag.SevWarning, diag.BagReporter{Bag: bag})
	if err := r.Check(ctx); err != nil {
		t.Fatalf("check: %v", err)
	}
	return bag.Items(), fs.Get(doc.File).Content
}

func TestDeprecatedComponentRenamedByFix(t *testing.T) {
	settings := rules.Settings{Components: map[string]rules.ComponentSpec{
		"OldButton": {Deprecated: "Button"},
	}}
	diags, content := run(t, `<div><OldButton label="x">Go</OldButton><Button /></div>`, settings)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	d := diags[0]
	if d.Code != "custom-no-deprecated-components" || d.Severity != diag.SevWarning {
		t.Fatalf("diagnostic = %+v", d)
	}
	cands, _ := fix.Select(diags, fix.SelectOptions{})
	res, err := fix.Apply(content, cands)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := `<div><Button label="x">Go</Button><Button /></div>`
	if string(res.Content) != want {
		t.Fatalf("fixed = %q, want %q", res.Content, want)
	}
}

func TestDeprecatedSelfClosing(t *testing.T) {
	settings := rules.Settings{Components: map[string]rules.ComponentSpec{
		"Legacy": {Deprecated: "Modern"},
	}}
	diags, content := run(t, `<Legacy />`, settings)
	if len(diags) != 1 || len(diags[0].Fixes) != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
	cands, _ := fix.Select(diags, fix.SelectOptions{})
	res, err := fix.Apply(content, cands)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(res.Content) != `<Modern />` {
		t.Fatalf("fixed = %q", res.Content)
	}
}

func TestNotDeprecatedIsQuiet(t *testing.T) {
	settings := rules.Settings{Components: map[string]rules.ComponentSpec{
		"Button": {Required: []string{"label"}},
	}}
	diags, _ := run(t, `<Button label="x" />`, settings)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestRegisterIsCustomOrigin(t *testing.T) {
	reg := rules.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatal(err)
	}
	if o, ok := reg.Origin("custom-no-deprecated-components"); !ok || o != rules.OriginCustom {
		t.Fatalf("origin = %v, %v", o, ok)
	}
}
