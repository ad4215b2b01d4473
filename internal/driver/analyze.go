package driver

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"orlint/internal/analyzer"
	"orlint/internal/config"
	"orlint/internal/diag"
	"orlint/internal/logx"
	"orlint/internal/observ"
	"orlint/internal/parser"
	"orlint/internal/project"
	"orlint/internal/rules"
	"orlint/internal/source"
)

// Options configure a batch run.
type Options struct {
	// Jobs bounds concurrently processed files; <= 0 means GOMAXPROCS.
	Jobs int
	// Analyzer is passed to every analysis. Its Timer is ignored: each file
	// gets its own.
	Analyzer analyzer.Options
	// Cache, when set, stores results keyed by content, config and rule set.
	Cache *DiskCache
	// CacheSalt invalidates cached results of other builds, usually the
	// tool version.
	CacheSalt string
	// BaseDir is used for relative display paths.
	BaseDir  string
	Progress ProgressSink
	Logger   *log.Logger
}

// FileResult is the outcome for one target.
type FileResult struct {
	Path string
	// File is the latest version of the file in Result.FileSet.
	File   source.FileID
	Result *analyzer.Result
	Cached bool
	// Err is the read error of the file; the matching io-error diagnostic is
	// in Result.Diagnostics.
	Err error
	// Fix is set by Fix.
	Fix *FixOutcome
}

// Result of a batch run.
type Result struct {
	FileSet *source.FileSet
	// Files are in target order.
	Files []FileResult
	// Diagnostics of every file, in file order.
	Diagnostics []diag.Diagnostic
	Duration    time.Duration
}

// HasErrors reports whether any Error diagnostic was produced.
func (r *Result) HasErrors() bool {
	return r != nil && diag.HasErrors(r.Diagnostics)
}

// Run analyzes targets on a bounded worker pool. Each file is read once; a
// file that cannot be read yields an io-error diagnostic and the run goes on.
// Run only fails when ctx is cancelled.
func Run(ctx context.Context, targets []Target, resolver *config.Resolver, reg *rules.Registry, opts Options) (*Result, error) {
	r := newRunner(resolver, reg, opts)
	return r.run(ctx, "driver.Run", targets, r.analyzeTarget)
}

type runner struct {
	resolver *config.Resolver
	reg      *rules.Registry
	opts     Options
	logger   *log.Logger
	fs       *source.FileSet
	digest   project.Digest
}

func newRunner(resolver *config.Resolver, reg *rules.Registry, opts Options) *runner {
	base := opts.BaseDir
	if base == "" {
		base = resolver.Root()
	}
	return &runner{
		resolver: resolver,
		reg:      reg,
		opts:     opts,
		logger:   logx.OrDiscard(opts.Logger),
		fs:       source.NewFileSetWithBase(base),
		digest:   project.Combine(RulesDigest(reg, opts.CacheSalt), optionsDigest(opts.Analyzer)),
	}
}

// optionsDigest covers the analyzer options that change results.
func optionsDigest(o analyzer.Options) project.Digest {
	cats := slices.Clone(o.ExcludeCategories)
	slices.Sort(cats)
	only := slices.Clone(o.Only)
	slices.Sort(only)
	return project.DigestOf(fmt.Appendf(nil, "%v|%v|%d", cats, only, o.MaxDiagnostics))
}

type fileFunc func(ctx context.Context, t Target) (FileResult, error)

func (r *runner) run(ctx context.Context, name string, targets []Target, fn fileFunc) (*Result, error) {
	started := time.Now()
	tracer := r.opts.Analyzer.Tracer
	if tracer == nil {
		tracer = observ.Tracer()
	}
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	span.SetAttributes(attribute.Int("orlint.files", len(targets)))

	jobs := r.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, t := range targets {
		emit(r.opts.Progress, Event{File: t.Path, Stage: StageRead, Status: StatusQueued})
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]FileResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(targets))))
	for i, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileStart := time.Now()
			fr, err := fn(gctx, t)
			if err != nil {
				emit(r.opts.Progress, Event{File: t.Path, Stage: StageAnalyze, Status: StatusError, Err: err})
				return err
			}
			results[i] = fr
			status := StatusDone
			switch {
			case fr.Err != nil:
				status = StatusError
			case fr.Cached:
				status = StatusCached
			}
			emit(r.opts.Progress, Event{File: t.Path, Stage: StageAnalyze, Status: status, Err: fr.Err, Elapsed: time.Since(fileStart)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Debug("batch cancelled", "err", err)
		return nil, err
	}

	out := &Result{FileSet: r.fs, Files: results}
	for _, fr := range results {
		if fr.Result != nil {
			out.Diagnostics = append(out.Diagnostics, fr.Result.Diagnostics...)
		}
	}
	out.Duration = time.Since(started)
	emit(r.opts.Progress, Event{Stage: StageAnalyze, Status: StatusDone, Elapsed: out.Duration})
	span.SetAttributes(attribute.Int("orlint.diagnostics", len(out.Diagnostics)))
	r.logger.Debug("batch finished", "files", len(results), "diagnostics", len(out.Diagnostics), "dur", out.Duration)
	return out, nil
}

func (r *runner) analyzeTarget(ctx context.Context, t Target) (FileResult, error) {
	id, cfg, fr, ok := r.load(t)
	if !ok {
		return fr, nil
	}
	res, cached, err := r.analyze(ctx, id, cfg)
	if err != nil {
		return FileResult{}, err
	}
	return FileResult{Path: t.Path, File: id, Result: res, Cached: cached}, nil
}

// load reads t into the file set. When it cannot, ok is false and fr holds
// the io-error result.
func (r *runner) load(t Target) (id source.FileID, cfg *config.Effective, fr FileResult, ok bool) {
	if t.Err != nil {
		return 0, nil, r.ioFailure(t.Path, t.Err), false
	}
	emit(r.opts.Progress, Event{File: t.Path, Stage: StageRead, Status: StatusWorking})
	// #nosec G304 -- path is provided by the caller
	raw, err := os.ReadFile(t.Path)
	if err != nil {
		return 0, nil, r.ioFailure(t.Path, err), false
	}
	cfg, err = r.resolver.Resolve(t.Path)
	if err != nil {
		return 0, nil, r.ioFailure(t.Path, err), false
	}
	content, flags := source.Normalize(raw)
	return r.fs.Add(t.Path, content, flags), cfg, FileResult{}, true
}

func (r *runner) ioFailure(path string, err error) FileResult {
	id := r.fs.AddVirtual(path, nil)
	d := diag.NewError(diag.IOError, source.Span{File: id}, fmt.Sprintf("cannot read %s: %v", path, err))
	r.logger.Warn("cannot read file", "path", path, "err", err)
	return FileResult{
		Path: path,
		File: id,
		Err:  err,
		Result: &analyzer.Result{
			Path:        path,
			Diagnostics: []diag.Diagnostic{d},
		},
	}
}

// analyze parses and analyzes file id, going through the disk cache.
func (r *runner) analyze(ctx context.Context, id source.FileID, cfg *config.Effective) (*analyzer.Result, bool, error) {
	file := r.fs.Get(id)
	key := CacheKey(project.Digest(file.Hash), cfg.Version, r.digest)
	if r.opts.Cache != nil {
		var p DiskPayload
		hit, err := r.opts.Cache.Get(key, &p)
		if err != nil {
			r.logger.Warn("cache read failed", "path", file.Path, "err", err)
		}
		r.opts.Analyzer.Metrics.ObserveCache(hit)
		if hit {
			r.logger.Debug("cache hit", "path", file.Path, "key", key.Short())
			return payloadToResult(&p, id), true, nil
		}
	}

	emit(r.opts.Progress, Event{File: file.Path, Stage: StageParse, Status: StatusWorking})
	doc := parser.ParseFile(r.fs, id, parser.Options{})
	emit(r.opts.Progress, Event{File: file.Path, Stage: StageAnalyze, Status: StatusWorking})
	aopts := r.opts.Analyzer
	aopts.Timer = nil
	if aopts.Logger == nil {
		aopts.Logger = r.logger
	}
	res, err := analyzer.Analyze(ctx, doc, file, cfg, r.reg, aopts)
	if err != nil {
		return nil, false, err
	}
	if r.opts.Cache != nil {
		if err := r.opts.Cache.Put(key, resultToPayload(res, r.digest)); err != nil {
			r.logger.Warn("cache write failed", "path", file.Path, "err", err)
		}
	}
	return res, false, nil
}
