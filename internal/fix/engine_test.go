package fix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"orlint/internal/diag"
	"orlint/internal/source"
)

func cand(rule diag.Code, id string, start, end uint32, newText, oldText string) Candidate {
	sp := source.Span{File: 1, Start: start, End: end}
	return Candidate{
		Diag: diag.New(diag.SevWarning, rule, sp, string(rule)+" message"),
		Fix: diag.Fix{
			ID:    id,
			Title: id,
			Edits: []diag.TextEdit{{Span: sp, NewText: newText, OldText: oldText}},
		},
	}
}

func TestApplyNonOverlapping(t *testing.T) {
	content := []byte("<div id=a class=b></div>")
	cands := []Candidate{
		cand("style-quote-attributes", "q2", 16, 17, `"b"`, "b"),
		cand("style-quote-attributes", "q1", 8, 9, `"a"`, "a"),
	}
	res, err := Apply(content, cands)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := `<div id="a" class="b"></div>`
	if string(res.Content) != want {
		t.Fatalf("content = %q, want %q", res.Content, want)
	}
	if len(res.Applied) != 2 || res.Applied[0].ID != "q1" || res.Applied[1].ID != "q2" {
		t.Fatalf("applied = %+v", res.Applied)
	}
	if len(res.Skipped) != 0 {
		t.Fatalf("unexpected skips: %+v", res.Skipped)
	}
	if string(content) != "<div id=a class=b></div>" {
		t.Fatalf("input content was mutated: %q", content)
	}
}

// Spans [10,20) и [15,25): применяется первый, второй пропускается.
func TestApplyConflictFirstWins(t *testing.T) {
	content := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	cands := []Candidate{
		cand("rule-b", "second", 15, 25, "Y", "fghijklmno"),
		cand("rule-a", "first", 10, 20, "X", "abcdefghij"),
	}
	res, err := Apply(content, cands)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got, want := string(res.Content), "0123456789Xklmnopqrstuvwxyz"; got != want {
		t.Fatalf("content = %q, want %q", got, want)
	}
	if len(res.Applied) != 1 || res.Applied[0].ID != "first" {
		t.Fatalf("applied = %+v", res.Applied)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	var conflict *FixConflictError
	if !errors.As(res.Skipped[0].Err, &conflict) {
		t.Fatalf("skip error = %v, want *FixConflictError", res.Skipped[0].Err)
	}
	if conflict.FixID != "second" || conflict.WithID != "first" {
		t.Fatalf("conflict = %+v", conflict)
	}
	if !IsConflict(res.Skipped[0].Err) {
		t.Fatalf("IsConflict = false")
	}
}

// Одинаковый старт: порядок по id правила.
func TestApplyTieBreakByRule(t *testing.T) {
	content := []byte("abcdef")
	cands := []Candidate{
		cand("zeta", "z", 1, 3, "Z", "bc"),
		cand("alpha", "a", 1, 4, "A", "bcd"),
	}
	res, err := Apply(content, cands)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(res.Content) != "aAef" {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Skipped[0].ID != "z" {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
}

func TestApplyStaleRejectsWholeDocument(t *testing.T) {
	content := []byte("<img src=x>")
	cands := []Candidate{
		cand("r1", "ok", 0, 4, "<IMG", "<img"),
		cand("r2", "stale", 5, 8, "SRC", "alt"),
	}
	res, err := Apply(content, cands)
	if res != nil {
		t.Fatalf("expected nil result on stale fix, got %+v", res)
	}
	var stale *StaleFixError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %v, want *StaleFixError", err)
	}
	if stale.FixID != "stale" || stale.Actual != "src" || stale.Expected != "alt" {
		t.Fatalf("stale = %+v", stale)
	}
}

func TestApplyOutOfRangeIsStale(t *testing.T) {
	content := []byte("short")
	_, err := Apply(content, []Candidate{cand("r", "far", 3, 40, "", "")})
	var stale *StaleFixError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %v, want *StaleFixError", err)
	}
	if stale.Size != len(content) {
		t.Fatalf("size = %d", stale.Size)
	}
}

func TestApplyNoFixes(t *testing.T) {
	res, err := Apply([]byte("x"), nil)
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("err = %v, want ErrNoFixes", err)
	}
	if res == nil || string(res.Content) != "x" {
		t.Fatalf("result = %+v", res)
	}
}

func TestApplyInsertionsAtSamePoint(t *testing.T) {
	content := []byte("ab")
	c1 := cand("r1", "one", 1, 1, "1", "")
	c2 := cand("r2", "two", 1, 1, "2", "")
	res, err := Apply(content, []Candidate{c2, c1})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(res.Content) != "a12b" {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestApplyMultiEditFixIsAtomic(t *testing.T) {
	content := []byte("<Old>x</Old>")
	open := source.Span{File: 1, Start: 1, End: 4}
	closeTag := source.Span{File: 1, Start: 8, End: 11}
	rename := Candidate{
		Diag: diag.New(diag.SevWarning, "custom-no-deprecated-components", open, "deprecated"),
		Fix:  Rename("rename", []source.Span{open, closeTag}, "Old", "New", WithID("rename")),
	}
	// пересекается только с закрывающим тегом
	other := cand("zz", "other", 9, 10, "l", "l")

	res, err := Apply(content, []Candidate{other, rename})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(res.Content) != "<New>x</New>" {
		t.Fatalf("content = %q", res.Content)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].ID != "other" {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	if res.EditCount != 2 {
		t.Fatalf("edit count = %d", res.EditCount)
	}
}

func TestApplySelfOverlappingFixSkipped(t *testing.T) {
	sp := source.Span{File: 1, Start: 0, End: 2}
	c := Candidate{
		Diag: diag.New(diag.SevWarning, "r", sp, "m"),
		Fix: diag.Fix{ID: "bad", Edits: []diag.TextEdit{
			{Span: sp, NewText: "x"},
			{Span: source.Span{File: 1, Start: 1, End: 3}, NewText: "y"},
		}},
	}
	_, err := Apply([]byte("abcd"), []Candidate{c})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("err = %v, want ErrNoFixes", err)
	}
}

func TestWriteFilePreservesMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.orbit")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, []byte("new")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Fatalf("content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}
