package analyzer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"orlint/internal/ast"
	"orlint/internal/config"
	"orlint/internal/diag"
	"orlint/internal/logx"
	"orlint/internal/observ"
	"orlint/internal/project"
	"orlint/internal/rules"
	"orlint/internal/source"
)

// Options tune one analysis. The zero value runs every enabled rule with
// GOMAXPROCS parallelism and no instrumentation.
type Options struct {
	// ExcludeCategories are skipped regardless of configuration.
	ExcludeCategories []rules.Category
	// Only restricts the run to these rule ids when non-empty.
	Only []diag.Code
	// Jobs bounds concurrent rules; <= 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the result after sorting; 0 means unlimited.
	MaxDiagnostics int

	Timer   *observ.Timer
	Metrics *observ.Metrics
	Tracer  trace.Tracer
	Logger  *log.Logger
}

// Result is one complete analysis of one document.
type Result struct {
	Path          string
	ContentHash   project.Digest
	ConfigVersion project.Digest
	// Diagnostics are sorted with diag.Compare.
	Diagnostics []diag.Diagnostic
	Duration    time.Duration
	RulesRun    int
	Timings     observ.Report
}

// HasErrors reports whether any diagnostic has Error severity.
func (r *Result) HasErrors() bool {
	return r != nil && diag.HasErrors(r.Diagnostics)
}

// Plan returns the rules that would run for cfg, sorted by id.
func Plan(reg *rules.Registry, cfg *config.Effective, opts Options) []rules.Rule {
	var out []rules.Rule
	for _, r := range reg.All() {
		m := r.Meta()
		if !cfg.Enabled(m.ID) {
			continue
		}
		if slices.Contains(opts.ExcludeCategories, m.Category) {
			continue
		}
		if len(opts.Only) > 0 && !slices.Contains(opts.Only, m.ID) {
			continue
		}
		if m.Category == rules.CategoryAccessibility && m.MinLevel > cfg.AccessibilityLevel {
			continue
		}
		out = append(out, r)
	}
	return out
}

// outcome of one rule; indexes are unique per goroutine, no lock needed.
type outcome struct {
	diags []diag.Diagnostic
	err   error
	dur   time.Duration
	start time.Time
	stack []byte
}

// Analyze runs the planned rules over doc. file must be the source file doc
// was parsed from. If ctx is cancelled before every rule finished, Analyze
// returns nil and ctx.Err(): a result is either complete or absent.
func Analyze(ctx context.Context, doc *ast.Document, file *source.File, cfg *config.Effective, reg *rules.Registry, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil || file == nil || cfg == nil || reg == nil {
		return nil, errors.New("analyzer: nil document, file, config or registry")
	}
	logger := logx.OrDiscard(opts.Logger)
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observ.Tracer()
	}
	timer := opts.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}

	started := time.Now()
	ctx, span := tracer.Start(ctx, "analyzer.Analyze", trace.WithAttributes(
		attribute.String("orlint.file", doc.Path),
		attribute.Int("orlint.size", int(doc.Size)),
	))
	defer span.End()

	plan := Plan(reg, cfg, opts)
	settings := cfg.Settings()
	outcomes := make([]outcome, len(plan))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	rulesPhase := timer.Begin("rules")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(plan))))
	for i, r := range plan {
		g.Go(func() error {
			// отмена проверяется только на границе правил
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = runRule(gctx, r, doc, file, settings, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil || ctx.Err() != nil {
		if err == nil {
			err = ctx.Err()
		}
		span.SetStatus(codes.Error, "cancelled")
		logger.Debug("analysis cancelled", "file", doc.Path, "err", err)
		return nil, err
	}
	timer.End(rulesPhase, fmt.Sprintf("%d rules", len(plan)))

	bag := diag.NewBag(0)
	for _, d := range doc.Diagnostics {
		bag.Add(d)
	}
	for _, d := range cfg.IssueDiagnostics(doc.FileStartSpan()) {
		bag.Add(d)
	}
	size := int(doc.Size)
	for i, r := range plan {
		id := r.Meta().ID
		out := outcomes[i]
		if out.err == nil {
			out.diags, out.err = validate(id, out.diags, size)
		}
		timer.Add(observ.NestedPrefix+string(id), out.start, out.dur, "")
		opts.Metrics.ObserveRule(string(id), out.dur, out.err != nil)
		if out.err != nil {
			logger.Warn("rule failed", "rule", id, "file", doc.Path, "err", out.err)
			if out.stack != nil {
				logger.Debug("rule panic stack", "rule", id, "stack", string(out.stack))
			}
			span.RecordError(out.err, trace.WithAttributes(attribute.String("orlint.rule", string(id))))
			bag.Add(diag.New(diag.SevWarning, diag.RuleExecutionError, doc.FileStartSpan(), out.err.Error()))
			continue
		}
		for _, d := range out.diags {
			bag.Add(d)
		}
	}
	bag.Sort()
	bag.Dedup()

	items := bag.Items()
	if opts.MaxDiagnostics > 0 && len(items) > opts.MaxDiagnostics {
		items = items[:opts.MaxDiagnostics]
	}
	res := &Result{
		Path:          doc.Path,
		ContentHash:   doc.ContentHash,
		ConfigVersion: cfg.Version,
		Diagnostics:   slices.Clip(items),
		Duration:      time.Since(started),
		RulesRun:      len(plan),
		Timings:       timer.Report(),
	}
	counts := diag.CountBySeverity(res.Diagnostics)
	bySev := make(map[string]int, len(counts))
	for sev, n := range counts {
		if n > 0 {
			bySev[diag.Severity(sev).Label()] = n
		}
	}
	opts.Metrics.ObserveAnalysis(res.Duration, bySev)
	span.SetAttributes(
		attribute.Int("orlint.rules", len(plan)),
		attribute.Int("orlint.diagnostics", len(res.Diagnostics)),
	)
	logger.Debug("analyzed", "file", doc.Path, "rules", len(plan), "diagnostics", len(res.Diagnostics), "dur", res.Duration)
	return res, nil
}

func runRule(ctx context.Context, r rules.Rule, doc *ast.Document, file *source.File, settings rules.Settings, cfg *config.Effective) (out outcome) {
	m := r.Meta()
	bag := diag.NewBag(0)
	rc := rules.NewContext(ctx, m.ID, doc, file, settings, cfg.Severity(m.ID, m.DefaultSeverity), diag.NewDedupReporter(diag.BagReporter{Bag: bag}))

	out.start = time.Now()
	defer func() {
		out.dur = time.Since(out.start)
		if p := recover(); p != nil {
			out.diags = nil
			out.err = &rules.RuleExecutionError{Rule: m.ID, Panic: true, Err: fmt.Errorf("%v", p)}
			out.stack = debug.Stack()
		}
	}()
	if err := r.Check(rc); err != nil {
		return outcome{err: &rules.RuleExecutionError{Rule: m.ID, Err: err}, start: out.start}
	}
	return outcome{diags: bag.Items(), start: out.start}
}

// validate enforces that a rule only reports inside the document. A bad
// primary or note span fails the rule; fixes that leave the document are
// dropped from their diagnostic.
func validate(id diag.Code, diags []diag.Diagnostic, size int) ([]diag.Diagnostic, error) {
	for i := range diags {
		d := &diags[i]
		if !d.Primary.Within(size) {
			return nil, &rules.RuleExecutionError{Rule: id, Err: fmt.Errorf("reported span %s outside a document of %d bytes", d.Primary, size)}
		}
		for _, n := range d.Notes {
			if n.Span.File == d.Primary.File && !n.Span.Within(size) {
				return nil, &rules.RuleExecutionError{Rule: id, Err: fmt.Errorf("note span %s outside a document of %d bytes", n.Span, size)}
			}
		}
		if !d.InBounds(size) {
			d.Fixes = slices.DeleteFunc(slices.Clone(d.Fixes), func(f diag.Fix) bool {
				for _, e := range f.Edits {
					if !e.Span.Within(size) {
						return true
					}
				}
				return false
			})
		}
	}
	return diags, nil
}
