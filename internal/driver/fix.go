package driver

import (
	"bytes"
	"context"
	"errors"

	"orlint/internal/analyzer"
	"orlint/internal/config"
	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/rules"
	"orlint/internal/source"
)

const defaultFixPasses = 4

// FixOptions configure Fix.
type FixOptions struct {
	Options
	// Rule restricts fixing to one rule when set.
	Rule        diag.Code
	AllowUnsafe bool
	// DryRun computes the fixed content without writing it.
	DryRun bool
	// Passes bounds apply/re-analyze rounds per file; <= 0 means 4.
	Passes int
}

// FixOutcome describes what Fix did to one file.
type FixOutcome struct {
	Applied []fix.AppliedFix
	Skipped []fix.SkippedFix
	Passes  int
	// Content is the final text, normalized as it was analyzed.
	Content []byte
	Changed bool
	Written bool
}

// Fix applies fixes to every target. Each file is fixed by one worker:
// analyze, apply a non-conflicting set of fixes, re-analyze, until nothing
// more applies or the pass limit is hit. The diagnostics of the result are
// those of the final text. A stale fix stops the file with a stale-fix
// diagnostic and nothing of that pass is written.
func Fix(ctx context.Context, targets []Target, resolver *config.Resolver, reg *rules.Registry, opts FixOptions) (*Result, error) {
	r := newRunner(resolver, reg, opts.Options)
	sel := fix.SelectOptions{Mode: fix.SelectAll, AllowUnsafe: opts.AllowUnsafe}
	if opts.Rule != "" {
		sel.Mode = fix.SelectRule
		sel.Rule = opts.Rule
	}
	passes := opts.Passes
	if passes <= 0 {
		passes = defaultFixPasses
	}
	return r.run(ctx, "driver.Fix", targets, func(ctx context.Context, t Target) (FileResult, error) {
		return r.fixTarget(ctx, t, sel, passes, opts.DryRun)
	})
}

func (r *runner) fixTarget(ctx context.Context, t Target, sel fix.SelectOptions, passes int, dryRun bool) (FileResult, error) {
	id, cfg, fr, ok := r.load(t)
	if !ok {
		return fr, nil
	}
	flags := r.fs.Get(id).Flags
	original := r.fs.Get(id).Content
	content := original
	outcome := &FixOutcome{}

	var (
		res      *analyzer.Result
		extra    []diag.Diagnostic
		cached   bool
		selSkips []fix.SkippedFix
		conflict []fix.SkippedFix
	)
	for {
		var err error
		res, cached, err = r.analyze(ctx, id, cfg)
		if err != nil {
			return FileResult{}, err
		}
		if outcome.Passes == passes {
			break
		}
		conflict = nil
		var cands []fix.Candidate
		// отфильтрованные фиксы повторяются на каждом проходе, считаем последний
		cands, selSkips = fix.Select(res.Diagnostics, sel)
		if len(cands) == 0 {
			break
		}
		emit(r.opts.Progress, Event{File: t.Path, Stage: StageFix, Status: StatusWorking})
		out, err := fix.Apply(content, cands)
		var stale *fix.StaleFixError
		if errors.As(err, &stale) {
			extra = append(extra, stale.Diagnostic(id))
			r.logger.Warn("stale fix", "path", t.Path, "err", err)
			break
		}
		if out != nil {
			conflict = out.Skipped
		}
		if err != nil {
			// ErrNoFixes: кандидаты были, но все конфликтуют
			break
		}
		outcome.Applied = append(outcome.Applied, out.Applied...)
		outcome.Passes++
		content = out.Content
		id = r.fs.Add(t.Path, content, flags)
	}

	outcome.Skipped = append(append(outcome.Skipped, selSkips...), conflict...)
	outcome.Content = content
	outcome.Changed = !bytes.Equal(content, original)
	r.opts.Analyzer.Metrics.ObserveFixes(len(outcome.Applied), skipReasons(outcome.Skipped))

	if outcome.Changed && !dryRun {
		if err := fix.WriteFile(t.Path, denormalize(content, flags)); err != nil {
			extra = append(extra, diag.NewError(diag.IOError, source.Span{File: id}, err.Error()))
			r.logger.Warn("cannot write fixed file", "path", t.Path, "err", err)
		} else {
			outcome.Written = true
		}
	}

	if len(extra) > 0 {
		res = withExtra(res, extra)
		cached = false
	}
	return FileResult{Path: t.Path, File: id, Result: res, Cached: cached, Fix: outcome}, nil
}

// withExtra returns a copy of res that also carries extra, keeping the
// diagnostic order of every other result.
func withExtra(res *analyzer.Result, extra []diag.Diagnostic) *analyzer.Result {
	merged := *res
	merged.Diagnostics = append(extra, res.Diagnostics...)
	diag.SortDiagnostics(merged.Diagnostics)
	return &merged
}

func skipReasons(skips []fix.SkippedFix) map[string]int {
	if len(skips) == 0 {
		return nil
	}
	out := make(map[string]int)
	for _, s := range skips {
		reason := "filtered"
		switch {
		case fix.IsConflict(s.Err):
			reason = "conflict"
		case s.Err != nil:
			reason = "error"
		}
		out[reason]++
	}
	return out
}

// denormalize restores the BOM and CRLF line endings the file had on disk.
func denormalize(content []byte, flags source.FileFlags) []byte {
	if flags&source.FileNormalizedCRLF != 0 {
		content = bytes.ReplaceAll(content, []byte("\n"), []byte("\r\n"))
	}
	if flags&source.FileHadBOM != 0 {
		content = append([]byte("\xEF\xBB\xBF"), content...)
	}
	return content
}
