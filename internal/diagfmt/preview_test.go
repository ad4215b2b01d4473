package diagfmt

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"orlint/internal/analyzer"
	"orlint/internal/config"
	"orlint/internal/diag"
	"orlint/internal/parser"
	"orlint/internal/rules"
	"orlint/internal/rules/builtin"
	"orlint/internal/source"
)

const fixablePage = "<template>\n" +
	"\t<div class=\"a\" class=\"b\"></div>\n" +
	"\t<img src=\"a.png\">\n" +
	"</template>\n" +
	"<style>\n" +
	".empty {}\n" +
	"</style>\n"

// превью строятся по фиксам встроенных правил на реальном разборе
func TestFixPreviewsOfBuiltinRules(t *testing.T) {
	reg := rules.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	doc := parser.ParseSource(fs, "page.orbit", []byte(fixablePage), parser.Options{})
	res, err := analyzer.Analyze(context.Background(), doc, fs.Get(doc.File), config.Defaults(reg), reg, analyzer.Options{})
	if err != nil {
		t.Fatal(err)
	}

	type preview struct{ Before, After []string }
	got := make(map[diag.Code]preview)
	for _, d := range res.Diagnostics {
		if len(d.Fixes) == 0 {
			continue
		}
		p, err := buildFixEditPreview(fs, d.Fixes[0].Edits[0])
		if err != nil {
			t.Fatalf("%s: %v", d.Code, err)
		}
		got[d.Code] = preview{Before: p.before, After: p.after}
	}

	want := map[diag.Code]preview{
		"no-duplicate-attributes": {
			Before: []string{"\t<div class=\"a\" class=\"b\"></div>"},
			After:  []string{"\t<div class=\"b\"></div>"},
		},
		"a11y-img-alt": {
			Before: []string{"\t<img src=\"a.png\">"},
			After:  []string{"\t<img alt=\"\" src=\"a.png\">"},
		},
		// строка удаляется целиком, поэтому в блок попадает и следующая
		"style-empty-block": {
			Before: []string{".empty {}", "</style>"},
			After:  []string{"</style>"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("previews (-want +got):\n%s", diff)
	}
}

func TestFixPreviewRejectsForeignSpan(t *testing.T) {
	fs := source.NewFileSet()
	doc := parser.ParseSource(fs, "page.orbit", []byte(fixablePage), parser.Options{})
	edit := diag.TextEdit{Span: source.Span{File: doc.File, Start: 0, End: uint32(len(fixablePage) + 5)}}
	if _, err := buildFixEditPreview(fs, edit); err == nil {
		t.Fatal("edit past the end of the file accepted")
	}
	edit.Span.File = doc.File + 1
	if _, err := buildFixEditPreview(fs, edit); err == nil {
		t.Fatal("edit in an unknown file accepted")
	}
}
