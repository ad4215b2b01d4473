package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"orlint/internal/analyzer"
	"orlint/internal/ast"
	"orlint/internal/config"
	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/rules"
	"orlint/internal/rules/builtin"
	"orlint/internal/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = 5 * time.Second

type fixture struct {
	c    *Coordinator
	dir  string
	path string
	runs atomic.Int32
	// started получает сигнал, когда правило block ждёт отмены
	started chan struct{}
}

// newFixture builds a coordinator over the built-in rules plus two test rules:
// count-runs counts executions, block-on-marker waits for cancellation when
// the text contains "BLOCK".
func newFixture(t *testing.T, debounce time.Duration) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), started: make(chan struct{}, 8)}
	f.path = filepath.Join(f.dir, "page.orbit")

	reg := rules.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		t.Fatal(err)
	}
	testRule := func(id diag.Code, fn func(*rules.Context) error) rules.Rule {
		return rules.Func{
			M:  rules.Meta{ID: id, Category: rules.CategoryBestPractice, DefaultSeverity: diag.SevHint, Description: string(id)},
			Fn: fn,
		}
	}
	reg.MustRegister(testRule("count-runs", func(*rules.Context) error {
		f.runs.Add(1)
		return nil
	}), rules.OriginCustom)
	reg.MustRegister(testRule("block-on-marker", func(ctx *rules.Context) error {
		if !strings.Contains(string(ctx.File.Content), "BLOCK") {
			return nil
		}
		f.started <- struct{}{}
		<-ctx.Ctx.Done()
		return ctx.Ctx.Err()
	}), rules.OriginCustom)

	resolver := config.NewResolver(config.Defaults(reg), config.ResolverOptions{Root: f.dir, Debounce: 20 * time.Millisecond})
	f.c = New(context.Background(), Options{Registry: reg, Resolver: resolver, Debounce: debounce})
	t.Cleanup(f.c.Shutdown)
	return f
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return ev
	case <-time.After(waitFor):
		t.Fatalf("no event within %s", waitFor)
	}
	return Event{}
}

func waitState(t *testing.T, c *Coordinator, path string, want State, version int) Snapshot {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		snap, _ := c.Diagnostics(path)
		if snap.State == want && snap.Version == version {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := c.Diagnostics(path)
	t.Fatalf("state = %s v%d, want %s v%d", snap.State, snap.Version, want, version)
	return snap
}

func codesOf(snap Snapshot) []string {
	var out []string
	for _, d := range snap.Diagnostics() {
		out = append(out, string(d.Code))
	}
	return out
}

func hasCode(snap Snapshot, code diag.Code) bool {
	for _, d := range snap.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestOpenPublishesReady(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<img src="a.png">`), 1); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	if ev.Path != f.path || ev.Snapshot.State != Ready {
		t.Fatalf("event = %s %s", ev.Path, ev.Snapshot.State)
	}
	if !hasCode(ev.Snapshot, "a11y-img-alt") {
		t.Fatalf("diagnostics = %v", codesOf(ev.Snapshot))
	}
	snap, stale := f.c.Diagnostics(f.path)
	if stale || snap.Version != 1 || snap.Err != nil {
		t.Fatalf("snapshot = %+v stale=%v", snap, stale)
	}
	if got := f.c.Files(); len(got) != 1 || got[0] != f.path {
		t.Fatalf("files = %v", got)
	}
}

func TestUnknownFile(t *testing.T) {
	f := newFixture(t, time.Hour)
	if snap, stale := f.c.Diagnostics(f.path); !stale || snap.State != Unanalyzed {
		t.Fatalf("unknown file: %+v %v", snap, stale)
	}
	if err := f.c.Edit(f.path, nil, 2); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Edit err = %v", err)
	}
	if err := f.c.Save(f.path); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Save err = %v", err)
	}
}

func TestEditIsStaleUntilAnalyzed(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<img src="a.png">`), 1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events)

	if err := f.c.Edit(f.path, []byte(`<img src="a.png" alt="logo">`), 2); err != nil {
		t.Fatal(err)
	}
	snap, stale := f.c.Diagnostics(f.path)
	if !stale || snap.State != Stale || snap.Version != 1 || snap.CurrentVersion != 2 {
		t.Fatalf("after edit: state=%s v%d/%d stale=%v", snap.State, snap.Version, snap.CurrentVersion, stale)
	}
	// последний результат остаётся доступен
	if !hasCode(snap, "a11y-img-alt") {
		t.Fatalf("last result lost: %v", codesOf(snap))
	}

	// Save не ждёт таймер
	if err := f.c.Save(f.path); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	if ev.Snapshot.Version != 2 || hasCode(ev.Snapshot, "a11y-img-alt") {
		t.Fatalf("after save: v%d %v", ev.Snapshot.Version, codesOf(ev.Snapshot))
	}
	if _, stale := f.c.Diagnostics(f.path); stale {
		t.Fatalf("still stale after save")
	}
}

func TestDebounceCoalescesEdits(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<img src="a.png">`), 1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events)
	if got := f.runs.Load(); got != 1 {
		t.Fatalf("runs after open = %d", got)
	}

	texts := []string{`<img`, `<img alt`, `<img alt="x"`, `<img alt="x">`, `<img alt="x" src="b.png">`}
	for i, text := range texts {
		if err := f.c.Edit(f.path, []byte(text), i+2); err != nil {
			t.Fatal(err)
		}
	}
	ev := waitEvent(t, events)
	if ev.Snapshot.Version != len(texts)+1 {
		t.Fatalf("event version = %d", ev.Snapshot.Version)
	}
	if got := f.runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want one run per quiet period", got)
	}
}

func TestEditCancelsRunningCycle(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<p>BLOCK</p>`), 1); err != nil {
		t.Fatal(err)
	}
	select {
	case <-f.started:
	case <-time.After(waitFor):
		t.Fatalf("blocking rule never started")
	}
	if err := f.c.Edit(f.path, []byte(`<img src="a.png">`), 2); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Save(f.path); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	if ev.Snapshot.Version != 2 {
		t.Fatalf("first published version = %d; cancelled cycle must not publish", ev.Snapshot.Version)
	}
	if ev.Snapshot.State != Ready || !hasCode(ev.Snapshot, "a11y-img-alt") {
		t.Fatalf("snapshot = %s %v", ev.Snapshot.State, codesOf(ev.Snapshot))
	}
}

func TestSubscribeOnlyOnChangedSet(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte("<img src=\"a.png\">\n"), 1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events)

	// новый текст, те же диагностики
	if err := f.c.Edit(f.path, []byte("<img src=\"a.png\">\n\n"), 2); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Save(f.path); err != nil {
		t.Fatal(err)
	}
	waitState(t, f.c, f.path, Ready, 2)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for unchanged set: v%d", ev.Snapshot.Version)
	default:
	}

	if err := f.c.Edit(f.path, []byte("<img src=\"a.png\" alt=\"\">\n"), 3); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Save(f.path); err != nil {
		t.Fatal(err)
	}
	if ev := waitEvent(t, events); ev.Snapshot.Version != 3 {
		t.Fatalf("event version = %d", ev.Snapshot.Version)
	}
}

func TestApplyFix(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<div class="a" class="b"></div>`), 1); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	var target diag.Diagnostic
	for _, d := range ev.Snapshot.Diagnostics() {
		if d.Code == "no-duplicate-attributes" {
			target = d
		}
	}
	if target.Code == "" {
		t.Fatalf("no duplicate-attribute diagnostic: %v", codesOf(ev.Snapshot))
	}

	if _, err := f.c.ApplyFix(context.Background(), f.path, "nope", ""); !errors.Is(err, ErrUnknownDiagnostic) {
		t.Fatalf("unknown key err = %v", err)
	}

	res, err := f.c.ApplyFix(context.Background(), f.path, target.Key(), "")
	if err != nil {
		t.Fatalf("ApplyFix: %v", err)
	}
	if got, want := string(res.Content), `<div class="b"></div>`; got != want {
		t.Fatalf("content = %q, want %q", got, want)
	}
	text, version, ok := f.c.Text(f.path)
	if !ok || string(text) != `<div class="b"></div>` || version != 2 {
		t.Fatalf("Text = %q v%d", text, version)
	}
	snap := waitState(t, f.c, f.path, Ready, 2)
	if hasCode(snap, "no-duplicate-attributes") {
		t.Fatalf("fixed diagnostic still reported")
	}

	// ключ прежнего анализа больше ничего не адресует
	if _, err := f.c.ApplyFix(context.Background(), f.path, target.Key(), ""); !errors.Is(err, ErrUnknownDiagnostic) {
		t.Fatalf("second apply err = %v", err)
	}
}

func TestApplyFixReanalyzesStaleText(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<div class="a" class="b"></div>`), 1); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	var old diag.Diagnostic
	for _, d := range ev.Snapshot.Diagnostics() {
		if d.Code == "no-duplicate-attributes" {
			old = d
		}
	}

	// дубликат сдвинулся; результат ещё не пересчитан
	edited := `<p></p><div class="a" class="b"></div>`
	if err := f.c.Edit(f.path, []byte(edited), 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.ApplyFix(context.Background(), f.path, old.Key(), ""); !errors.Is(err, ErrUnknownDiagnostic) {
		t.Fatalf("stale key err = %v", err)
	}

	// ключ, вычисленный по текущему тексту, работает
	fresh, err := f.c.current(context.Background(), f.path, []byte(edited), nil)
	if err != nil {
		t.Fatal(err)
	}
	var key string
	for _, d := range fresh.Diagnostics {
		if d.Code == "no-duplicate-attributes" {
			key = d.Key()
		}
	}
	res, err := f.c.ApplyFix(context.Background(), f.path, key, "")
	if err != nil {
		t.Fatalf("ApplyFix: %v", err)
	}
	if got := string(res.Content); got != `<p></p><div class="b"></div>` {
		t.Fatalf("content = %q", got)
	}
}

func TestApplyFixStaleEdit(t *testing.T) {
	f := newFixture(t, time.Hour)
	// фикс, рассчитанный под другой текст, отвергается целиком
	f.c.analyzeFn = func(ctx context.Context, doc *ast.Document, file *source.File, cfg *config.Effective, reg *rules.Registry, opts analyzer.Options) (*analyzer.Result, error) {
		res, err := analyzer.Analyze(ctx, doc, file, cfg, reg, opts)
		if err != nil {
			return nil, err
		}
		d := diag.NewWarning("count-runs", source.Span{File: doc.File, Start: 0, End: 1}, "guarded").
			WithFixSuggestion(fix.ReplaceSpan("swap", source.Span{File: doc.File, Start: 0, End: 1}, "[", "X"))
		res.Diagnostics = append(res.Diagnostics, d)
		return res, nil
	}
	if err := f.c.Open(f.path, []byte(`<p></p>`), 1); err != nil {
		t.Fatal(err)
	}
	snap := waitState(t, f.c, f.path, Ready, 1)
	var key string
	for _, d := range snap.Diagnostics() {
		if d.Message == "guarded" {
			key = d.Key()
		}
	}
	_, err := f.c.ApplyFix(context.Background(), f.path, key, "")
	var stale *fix.StaleFixError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %v, want *fix.StaleFixError", err)
	}
	if text, version, _ := f.c.Text(f.path); string(text) != `<p></p>` || version != 1 {
		t.Fatalf("text changed: %q v%d", text, version)
	}
}

func TestDegradedKeepsLastResult(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.c.analyzeFn = func(ctx context.Context, doc *ast.Document, file *source.File, cfg *config.Effective, reg *rules.Registry, opts analyzer.Options) (*analyzer.Result, error) {
		if strings.Contains(string(file.Content), "FAIL") {
			return nil, errors.New("analysis exploded")
		}
		return analyzer.Analyze(ctx, doc, file, cfg, reg, opts)
	}
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<img src="a.png">`), 1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events)
	if err := f.c.Edit(f.path, []byte(`<p>FAIL</p>`), 2); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Save(f.path); err != nil {
		t.Fatal(err)
	}
	snap := waitState(t, f.c, f.path, Degraded, 1)
	if snap.Err == nil || !hasCode(snap, "a11y-img-alt") {
		t.Fatalf("degraded snapshot = %+v", snap)
	}

	// восстановление
	if err := f.c.Edit(f.path, []byte(`<p>ok</p>`), 3); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Save(f.path); err != nil {
		t.Fatal(err)
	}
	if snap := waitState(t, f.c, f.path, Ready, 3); snap.Err != nil {
		t.Fatalf("err not cleared: %v", snap.Err)
	}
}

func TestReanalyzeAllAfterConfigChange(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<img src="a.png">`), 1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events)

	cfg := filepath.Join(f.dir, "orlint.toml")
	if err := os.WriteFile(cfg, []byte("[rules]\ndisabled = [\"a11y-*\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.c.Resolver().Invalidate(cfg)
	f.c.ReanalyzeAll()

	ev := waitEvent(t, events)
	if hasCode(ev.Snapshot, "a11y-img-alt") {
		t.Fatalf("disabled rule still reported: %v", codesOf(ev.Snapshot))
	}
	if f.runs.Load() != 2 {
		t.Fatalf("runs = %d", f.runs.Load())
	}
}

func TestWatchConfig(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(4)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte(`<img src="a.png">`), 1); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.c.WatchConfig(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watch: %v", err)
		}
	}()

	cfg := filepath.Join(f.dir, "orlint.toml")
	deadline := time.After(waitFor)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ev := <-events:
			if hasCode(ev.Snapshot, "a11y-img-alt") {
				t.Fatalf("config change not applied: %v", codesOf(ev.Snapshot))
			}
			return
		case <-tick.C:
			if err := os.WriteFile(cfg, []byte("[rules]\ndisabled = [\"a11y-img-alt\"]\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatalf("no re-analysis after config change")
		}
	}
}

func TestCloseAndShutdown(t *testing.T) {
	f := newFixture(t, time.Hour)
	events, unsubscribe := f.c.Subscribe(1)
	defer unsubscribe()

	if err := f.c.Open(f.path, []byte("<p>\r\nx</p>"), 1); err != nil {
		t.Fatal(err)
	}
	if text, _, _ := f.c.Text(f.path); string(text) != "<p>\nx</p>" {
		t.Fatalf("text not normalized: %q", text)
	}
	if err := f.c.Close(f.path); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Close(f.path); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("second close err = %v", err)
	}
	if _, err := f.c.ApplyFix(context.Background(), f.path, "k", ""); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("ApplyFix after close err = %v", err)
	}

	f.c.Shutdown()
	if err := f.c.Open(f.path, []byte("<p></p>"), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("Open after shutdown err = %v", err)
	}
	// канал подписки закрыт; события закрытого файла могли прийти раньше
	for range events {
	}
	f.c.Shutdown()
}
