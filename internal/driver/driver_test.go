package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"orlint/internal/analyzer"
	"orlint/internal/config"
	"orlint/internal/diag"
	"orlint/internal/observ"
	"orlint/internal/rules"
	"orlint/internal/rules/builtin"
	"orlint/internal/rules/custom"
	"orlint/internal/source"
)

const (
	missingAlt = "<template>\n\t<img src=\"x.png\">\n</template>\n"
	cleanPage  = "<template>\n\t<img src=\"x.png\" alt=\"logo\">\n</template>\n"
	duplicated = "<template>\n\t<div class=\"a\" class=\"b\"></div>\n</template>\n"
	deduped    = "<template>\n\t<div class=\"b\"></div>\n</template>\n"
)

func newRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	reg := rules.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		t.Fatal(err)
	}
	return reg
}

func newResolver(reg *rules.Registry, root string) *config.Resolver {
	return config.NewResolver(config.Defaults(reg), config.ResolverOptions{Root: root})
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func codes(diags []diag.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"orlint.toml":    "[analyzer]\nexclude = [\"gen/**\"]\n",
		"a.orbit":        cleanPage,
		"sub/b.orbit":    cleanPage,
		".cache/c.orbit": cleanPage,
		"gen/d.orbit":    cleanPage,
		"notes.txt":      "not markup",
	})
	reg := newRegistry(t)
	targets, err := Discover([]string{
		root,
		filepath.Join(root, "a.orbit"),
		filepath.Join(root, "notes.txt"),
		filepath.Join(root, "gen", "d.orbit"),
		filepath.Join(root, "missing.orbit"),
	}, newResolver(reg, root))
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, tg := range targets {
		rel, _ := filepath.Rel(root, tg.Path)
		if tg.Err != nil {
			rel += " (error)"
		}
		got = append(got, filepath.ToSlash(rel))
	}
	want := []string{"a.orbit", "missing.orbit (error)", "notes.txt", "sub/b.orbit"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
	if n := len(Paths(targets)); n != 3 {
		t.Fatalf("Paths: want 3 readable targets, got %d", n)
	}
}

func TestRunReportsDiagnosticsAndIOErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"bad.orbit": missingAlt, "good.orbit": cleanPage})
	reg := newRegistry(t)
	resolver := newResolver(reg, root)
	targets, err := Discover([]string{root, filepath.Join(root, "gone.orbit")}, resolver)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), targets, resolver, reg, Options{Jobs: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Files) != 3 {
		t.Fatalf("want 3 file results, got %d", len(res.Files))
	}
	byName := make(map[string]FileResult)
	for _, fr := range res.Files {
		byName[filepath.Base(fr.Path)] = fr
	}
	if got := codes(byName["bad.orbit"].Result.Diagnostics); !slices.Contains(got, "a11y-img-alt") {
		t.Fatalf("bad.orbit: want a11y-img-alt, got %v", got)
	}
	if diag.HasErrors(byName["good.orbit"].Result.Diagnostics) {
		t.Fatalf("good.orbit: unexpected errors %v", codes(byName["good.orbit"].Result.Diagnostics))
	}
	gone := byName["gone.orbit"]
	if !errors.Is(gone.Err, os.ErrNotExist) {
		t.Fatalf("gone.orbit: want ErrNotExist, got %v", gone.Err)
	}
	if diff := cmp.Diff([]string{"io-error"}, codes(gone.Result.Diagnostics)); diff != "" {
		t.Fatalf("gone.orbit diagnostics (-want +got):\n%s", diff)
	}
	if got := res.FileSet.Get(gone.File).Path; !strings.HasSuffix(got, "gone.orbit") {
		t.Fatalf("io-error attributed to %q", got)
	}
	if !res.HasErrors() {
		t.Fatal("HasErrors: want true")
	}
	if len(res.Diagnostics) < 2 {
		t.Fatalf("want diagnostics of every file, got %d", len(res.Diagnostics))
	}
}

func TestRunUsesCache(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"page.orbit": missingAlt})
	reg := newRegistry(t)
	resolver := newResolver(reg, root)
	cache, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	metrics := observ.NewMetrics()
	opts := Options{Cache: cache, CacheSalt: "test", Analyzer: analyzer.Options{Metrics: metrics}}
	targets := []Target{{Path: filepath.Join(root, "page.orbit")}}

	first, err := Run(context.Background(), targets, resolver, reg, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(context.Background(), targets, resolver, reg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Files[0].Cached || !second.Files[0].Cached {
		t.Fatalf("cached: first=%v second=%v", first.Files[0].Cached, second.Files[0].Cached)
	}
	if diff := cmp.Diff(first.Diagnostics, second.Diagnostics, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("cached diagnostics differ (-first +second):\n%s", diff)
	}
	if got := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Fatalf("cache hits: want 1, got %v", got)
	}

	// другой набор правил не должен попадать в тот же ключ
	opts.Analyzer.Only = []diag.Code{"a11y-img-alt"}
	third, err := Run(context.Background(), targets, resolver, reg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.Files[0].Cached {
		t.Fatal("run with different options reused the cache")
	}
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"page.orbit": cleanPage})
	reg := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, []Target{{Path: filepath.Join(root, "page.orbit")}}, newResolver(reg, root), reg, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestRunProgressEvents(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.orbit": cleanPage, "b.orbit": missingAlt})
	reg := newRegistry(t)
	resolver := newResolver(reg, root)
	targets, err := Discover([]string{root}, resolver)
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu     sync.Mutex
		events []Event
	)
	sink := SinkFunc(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})
	if _, err := Run(context.Background(), targets, resolver, reg, Options{Progress: sink}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, tg := range targets {
		var queued, done bool
		for _, ev := range events {
			if ev.File != tg.Path {
				continue
			}
			queued = queued || ev.Status == StatusQueued
			done = done || ev.Status == StatusDone
		}
		if !queued || !done {
			t.Fatalf("%s: queued=%v done=%v", tg.Path, queued, done)
		}
	}
	last := events[len(events)-1]
	if last.File != "" || last.Status != StatusDone {
		t.Fatalf("last event should close the run, got %+v", last)
	}
}

func TestFixWritesFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"lf.orbit":   duplicated,
		"crlf.orbit": strings.ReplaceAll(duplicated, "\n", "\r\n"),
	})
	reg := newRegistry(t)
	resolver := newResolver(reg, root)
	targets, err := Discover([]string{root}, resolver)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Fix(context.Background(), targets, resolver, reg, FixOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, fr := range res.Files {
		if fr.Fix == nil || !fr.Fix.Written || len(fr.Fix.Applied) != 1 {
			t.Fatalf("%s: unexpected outcome %+v", fr.Path, fr.Fix)
		}
		if slices.Contains(codes(fr.Result.Diagnostics), "no-duplicate-attributes") {
			t.Fatalf("%s: fixed diagnostic still reported", fr.Path)
		}
		if got := res.FileSet.Get(fr.File).Content; string(got) != deduped {
			t.Fatalf("%s: final file in set = %q", fr.Path, got)
		}
	}

	want := map[string]string{
		"lf.orbit":   deduped,
		"crlf.orbit": strings.ReplaceAll(deduped, "\n", "\r\n"),
	}
	for name, content := range want {
		got, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != content {
			t.Fatalf("%s on disk = %q, want %q", name, got, content)
		}
	}
}

func TestFixDryRun(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"page.orbit": duplicated})
	reg := newRegistry(t)
	resolver := newResolver(reg, root)
	path := filepath.Join(root, "page.orbit")

	res, err := Fix(context.Background(), []Target{{Path: path}}, resolver, reg, FixOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	out := res.Files[0].Fix
	if !out.Changed || out.Written || string(out.Content) != deduped {
		t.Fatalf("dry run outcome: changed=%v written=%v content=%q", out.Changed, out.Written, out.Content)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != duplicated {
		t.Fatalf("dry run modified the file: %q", got)
	}
}

func TestFixOnlySelectedRule(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"page.orbit": duplicated})
	reg := newRegistry(t)
	resolver := newResolver(reg, root)

	res, err := Fix(context.Background(), []Target{{Path: filepath.Join(root, "page.orbit")}}, resolver, reg,
		FixOptions{Rule: "a11y-img-alt", DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	out := res.Files[0].Fix
	if out.Changed || len(out.Applied) != 0 {
		t.Fatalf("fix of another rule changed the file: %+v", out)
	}
	if !slices.Contains(codes(res.Diagnostics), "no-duplicate-attributes") {
		t.Fatal("unfixed diagnostic missing from result")
	}
}

// один и тот же набор файлов даёт одинаковые диагностики при любом числе воркеров
func TestRunJobsDoNotChangeResults(t *testing.T) {
	root := t.TempDir()
	variants := []string{
		missingAlt,
		duplicated,
		cleanPage,
		"<template>\n\t<button></button>\n\t<input type=text>\n\t<h1>a</h1><h3>b</h3>\n</template>\n",
		"<ul>\n\t<li each={items} on:click={() => pick(item)}>{item}</li>\n</ul>\n<style>\n.x {}\n</style>\n",
	}
	files := make(map[string]string)
	for i := range 40 {
		files[filepath.Join("pages", string(rune('a'+i%26))+strings.Repeat("x", i/26)+".orbit")] = variants[i%len(variants)]
	}
	writeFiles(t, root, files)
	reg := newRegistry(t)
	resolver := newResolver(reg, root)
	targets, err := Discover([]string{root}, resolver)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 40 {
		t.Fatalf("discovered %d files", len(targets))
	}

	type entry struct {
		Key      string
		Code     diag.Code
		Severity diag.Severity
	}
	collect := func(jobs int) map[string][]entry {
		res, err := Run(context.Background(), targets, resolver, reg, Options{Jobs: jobs})
		if err != nil {
			t.Fatal(err)
		}
		out := make(map[string][]entry)
		for _, fr := range res.Files {
			var got []entry
			for _, d := range fr.Result.Diagnostics {
				got = append(got, entry{Key: d.Key(), Code: d.Code, Severity: d.Severity})
			}
			out[fr.Path] = got
		}
		return out
	}

	sequential := collect(1)
	parallel := collect(16)
	if diff := cmp.Diff(sequential, parallel); diff != "" {
		t.Fatalf("jobs=1 vs jobs=16 (-sequential +parallel):\n%s", diff)
	}
	total := 0
	for _, got := range sequential {
		total += len(got)
	}
	if total == 0 {
		t.Fatal("fixtures produced no diagnostics")
	}
}

// после исправления ни одно правило с фиксом больше не срабатывает,
// а повторный запуск fix ничего не меняет
func TestFixIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"orlint.toml": "root = true\n\n[components.OldButton]\ndeprecated = \"Button\"\n",
		"page.orbit": "<template>\n" +
			"\t<div class=\"a\" class=\"b\" id=main></div>\n" +
			"\t<img src=\"a.png\">\n" +
			"\t<OldButton>Go</OldButton>\n" +
			"</template>\n" +
			"<style>\n" +
			".empty {}\n" +
			".ok { color: red; }\n" +
			"</style>\n",
	})
	reg := newRegistry(t)
	if err := custom.Register(reg); err != nil {
		t.Fatal(err)
	}
	resolver := newResolver(reg, root)
	targets := []Target{{Path: filepath.Join(root, "page.orbit")}}
	opts := FixOptions{AllowUnsafe: true}

	before, err := Run(context.Background(), targets, resolver, reg, opts.Options)
	if err != nil {
		t.Fatal(err)
	}
	var fixable []string
	for _, d := range before.Diagnostics {
		if len(d.Fixes) > 0 {
			fixable = append(fixable, d.Code.ID())
		}
	}
	want := []string{"no-duplicate-attributes", "style-quote-attributes", "a11y-img-alt", "custom-no-deprecated-components", "style-empty-block"}
	if diff := cmp.Diff(want, fixable, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("fixable diagnostics before fix (-want +got):\n%s", diff)
	}

	first, err := Fix(context.Background(), targets, resolver, reg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if out := first.Files[0].Fix; !out.Written || len(out.Applied) != len(want) {
		t.Fatalf("first fix: written=%v applied=%d", out.Written, len(out.Applied))
	}
	fixed, err := os.ReadFile(targets[0].Path)
	if err != nil {
		t.Fatal(err)
	}

	after, err := Run(context.Background(), targets, resolver, reg, opts.Options)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range after.Diagnostics {
		if slices.Contains(want, d.Code.ID()) {
			t.Errorf("%s still reported after fix: %s", d.Code, d.Message)
		}
	}

	second, err := Fix(context.Background(), targets, resolver, reg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if out := second.Files[0].Fix; out.Changed || len(out.Applied) != 0 {
		t.Fatalf("second fix changed the file: %+v", out)
	}
	again, err := os.ReadFile(targets[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(fixed) {
		t.Fatalf("second fix rewrote the file:\n%s\nvs\n%s", again, fixed)
	}
}

func TestWithExtraKeepsOrder(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("page.orbit", []byte(missingAlt))
	res := &analyzer.Result{Diagnostics: []diag.Diagnostic{
		diag.NewError("a11y-img-alt", source.Span{File: id, Start: 0, End: 10}, "<img> is missing an alt attribute"),
		diag.NewWarning("style-empty-block", source.Span{File: id, Start: 12, End: 14}, "empty style rule"),
	}}
	extra := []diag.Diagnostic{
		diag.NewError(diag.IOError, source.Span{File: id}, "permission denied"),
		diag.NewError(diag.IOError, source.Span{File: id, Start: 12, End: 12}, "late"),
	}

	got := withExtra(res, extra)
	if diff := cmp.Diff([]string{"a11y-img-alt", "io-error", "io-error", "style-empty-block"}, codes(got.Diagnostics)); diff != "" {
		t.Fatalf("merged order (-want +got):\n%s", diff)
	}
	if !slices.IsSortedFunc(got.Diagnostics, diag.Compare) {
		t.Fatal("merged diagnostics are not sorted")
	}
	if len(res.Diagnostics) != 2 {
		t.Fatal("withExtra modified the original result")
	}
}
