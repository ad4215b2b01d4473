package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"orlint/internal/analyzer"
	"orlint/internal/ast"
	"orlint/internal/config"
	"orlint/internal/logx"
	"orlint/internal/parser"
	"orlint/internal/project"
	"orlint/internal/rules"
	"orlint/internal/source"
)

var (
	ErrClosed  = errors.New("workspace: coordinator is closed")
	ErrNotOpen = errors.New("workspace: file is not open")
)

const defaultDebounce = 150 * time.Millisecond

// Options configures a Coordinator.
type Options struct {
	// Registry defaults to rules.MustDefault().
	Registry *rules.Registry
	// Resolver defaults to one without a root bound over the registry defaults.
	Resolver *config.Resolver
	// Debounce is the quiet period after Edit; zero uses 150ms.
	Debounce time.Duration
	Analyzer analyzer.Options
	Logger   *log.Logger
}

// Coordinator keeps open files analyzed. Each file has its own state
// machine; an edit cancels the running cycle of that file and restarts the
// debounce timer. Results are cached by (path, content hash, config version).
type Coordinator struct {
	reg      *rules.Registry
	resolver *config.Resolver
	debounce time.Duration
	aopts    analyzer.Options
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// analyzeFn is analyzer.Analyze; tests swap it.
	analyzeFn func(context.Context, *ast.Document, *source.File, *config.Effective, *rules.Registry, analyzer.Options) (*analyzer.Result, error)

	mu      sync.Mutex
	closed  bool
	files   map[string]*entry
	subs    map[uint64]chan Event
	nextSub uint64
}

type entry struct {
	path  string
	fixMu sync.Mutex // один ApplyFix на файл

	// под Coordinator.mu
	content []byte
	version int
	gen     uint64
	state   State
	timer   *time.Timer
	cancel  context.CancelFunc

	doc           *ast.Document
	file          *source.File
	result        *analyzer.Result
	resultFile    *source.File
	resultVersion int
	published     bool
	err           error
}

// New creates a coordinator. Background work stops when ctx is done or
// Shutdown is called.
func New(ctx context.Context, opts Options) *Coordinator {
	reg := opts.Registry
	if reg == nil {
		reg = rules.MustDefault()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = config.NewResolver(config.Defaults(reg), config.ResolverOptions{Logger: opts.Logger})
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Coordinator{
		reg:       reg,
		resolver:  resolver,
		debounce:  debounce,
		aopts:     opts.Analyzer,
		logger:    logx.OrDiscard(opts.Logger),
		ctx:       ctx,
		cancel:    cancel,
		analyzeFn: analyzer.Analyze,
		files:     make(map[string]*entry),
		subs:      make(map[uint64]chan Event),
	}
}

// Resolver returns the config resolver in use.
func (c *Coordinator) Resolver() *config.Resolver { return c.resolver }

// Registry returns the rule registry in use.
func (c *Coordinator) Registry() *rules.Registry { return c.reg }

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Open starts tracking path with the given text and analyzes it right away.
// Opening an already open file replaces its text.
func (c *Coordinator) Open(path string, content []byte, version int) error {
	path = cleanPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	e := c.files[path]
	if e == nil {
		e = &entry{path: path}
		c.files[path] = e
	}
	e.setText(content, version)
	c.logger.Debug("open", "path", path, "version", version)
	c.scheduleLocked(e, 0)
	return nil
}

// Edit replaces the text of an open file. Analysis starts after the
// debounce period; a cycle already running for the file is cancelled.
func (c *Coordinator) Edit(path string, content []byte, version int) error {
	path = cleanPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.lookupLocked(path)
	if err != nil {
		return err
	}
	e.setText(content, version)
	c.scheduleLocked(e, c.debounce)
	return nil
}

// Save analyzes the current text immediately, bypassing the debounce timer.
func (c *Coordinator) Save(path string) error {
	path = cleanPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.lookupLocked(path)
	if err != nil {
		return err
	}
	c.scheduleLocked(e, 0)
	return nil
}

// Close stops tracking path and cancels its work.
func (c *Coordinator) Close(path string) error {
	path = cleanPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.lookupLocked(path)
	if err != nil {
		return err
	}
	e.stopLocked()
	e.gen++
	delete(c.files, path)
	return nil
}

// Text returns the current text of an open file and its version.
func (c *Coordinator) Text(path string) ([]byte, int, bool) {
	path = cleanPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.files[path]
	if !ok {
		return nil, 0, false
	}
	return e.content, e.version, true
}

// Files returns the open paths, sorted.
func (c *Coordinator) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.files))
}

// Diagnostics returns the snapshot of path and whether it is stale, that is
// whether it does not reflect the current text. Unknown files report an
// empty stale snapshot.
func (c *Coordinator) Diagnostics(path string) (Snapshot, bool) {
	path = cleanPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.files[path]
	if !ok {
		return Snapshot{Path: path, State: Unanalyzed}, true
	}
	snap := e.snapshotLocked()
	return snap, snap.Stale()
}

// Subscribe returns a channel receiving an Event whenever a file reaches
// Ready with a changed diagnostic set, and a function that unsubscribes.
// Slow subscribers miss events rather than block analysis.
func (c *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// ReanalyzeAll restarts analysis of every open file, e.g. after a config change.
func (c *Coordinator) ReanalyzeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, path := range slices.Sorted(maps.Keys(c.files)) {
		c.scheduleLocked(c.files[path], 0)
	}
}

// WatchConfig watches the configuration files seen so far and re-analyzes
// open files when one changes. It blocks until ctx is done.
func (c *Coordinator) WatchConfig(ctx context.Context) error {
	return c.resolver.Watch(ctx, func(paths []string) {
		c.logger.Info("re-analyzing open files after config change", "paths", paths)
		c.ReanalyzeAll()
	})
}

// Shutdown cancels all work, closes subscriber channels and waits for
// running cycles to return.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.files {
		e.stopLocked()
		e.gen++
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) lookupLocked(path string) (*entry, error) {
	if c.closed {
		return nil, ErrClosed
	}
	e, ok := c.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, path)
	}
	return e, nil
}

func (e *entry) setText(content []byte, version int) {
	content, _ = source.Normalize(bytes.Clone(content))
	e.content = content
	e.version = version
	if e.result != nil {
		e.state = Stale
	} else {
		e.state = Unanalyzed
	}
}

func (e *entry) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *entry) snapshotLocked() Snapshot {
	return Snapshot{
		Path:           e.path,
		State:          e.state,
		Version:        e.resultVersion,
		CurrentVersion: e.version,
		Result:         e.result,
		File:           e.resultFile,
		Err:            e.err,
	}
}

// scheduleLocked bumps the generation, cancels whatever runs for e and
// starts a new cycle after delay.
func (c *Coordinator) scheduleLocked(e *entry, delay time.Duration) {
	e.stopLocked()
	e.gen++
	gen := e.gen
	if delay <= 0 {
		c.startLocked(e, gen)
		return
	}
	e.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || e.gen != gen || c.files[e.path] != e {
			return
		}
		e.timer = nil
		c.startLocked(e, gen)
	})
}

func (c *Coordinator) startLocked(e *entry, gen uint64) {
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel
	e.state = Parsing
	content, version := e.content, e.version
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.runCycle(ctx, e, gen, content, version)
	}()
}

func (c *Coordinator) runCycle(ctx context.Context, e *entry, gen uint64, content []byte, version int) {
	defer func() {
		if p := recover(); p != nil {
			c.fail(e, gen, fmt.Errorf("analysis panicked: %v", p))
		}
	}()
	res, file, err := c.analyze(ctx, e, gen, content)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, errSuperseded) {
			return
		}
		c.fail(e, gen, err)
		return
	}
	c.finish(e, gen, version, res, file)
}

var errSuperseded = errors.New("superseded")

func (c *Coordinator) analyze(ctx context.Context, e *entry, gen uint64, content []byte) (*analyzer.Result, *source.File, error) {
	cfg, err := c.resolver.Resolve(e.path)
	if err != nil {
		return nil, nil, err
	}
	hash := project.DigestOf(content)

	c.mu.Lock()
	if e.gen != gen {
		c.mu.Unlock()
		return nil, nil, errSuperseded
	}
	if r := e.result; r != nil && r.ContentHash == hash && r.ConfigVersion == cfg.Version {
		f := e.resultFile
		c.mu.Unlock()
		return r, f, nil
	}
	doc, file := e.doc, e.file
	c.mu.Unlock()

	if doc == nil || doc.ContentHash != hash {
		fs := source.NewFileSet()
		doc = parser.ParseSource(fs, e.path, content, parser.Options{})
		file = fs.Get(doc.File)
	}

	c.mu.Lock()
	if e.gen != gen {
		c.mu.Unlock()
		return nil, nil, errSuperseded
	}
	e.doc, e.file = doc, file
	e.state = Analyzing
	c.mu.Unlock()

	res, err := c.analyzeFn(ctx, doc, file, cfg, c.reg, c.aopts)
	return res, file, err
}

func (c *Coordinator) finish(e *entry, gen uint64, version int, res *analyzer.Result, file *source.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.gen != gen || c.files[e.path] != e {
		return
	}
	changed := !e.published || e.result == nil || !sameDiagnostics(e.result.Diagnostics, res.Diagnostics)
	e.result = res
	e.resultFile = file
	e.resultVersion = version
	e.state = Ready
	e.err = nil
	e.cancel = nil
	e.published = true
	c.logger.Debug("ready", "path", e.path, "version", version, "diagnostics", len(res.Diagnostics), "changed", changed)
	if !changed {
		return
	}
	ev := Event{Path: e.path, Snapshot: e.snapshotLocked()}
	for _, id := range slices.Sorted(maps.Keys(c.subs)) {
		select {
		case c.subs[id] <- ev:
		default:
			c.logger.Warn("subscriber is not keeping up; event dropped", "path", e.path)
		}
	}
}

func (c *Coordinator) fail(e *entry, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.gen != gen || c.files[e.path] != e {
		return
	}
	e.state = Degraded
	e.err = err
	e.cancel = nil
	c.logger.Warn("analysis failed; keeping last result", "path", e.path, "err", err)
}
