package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"orlint/internal/logx"
	"orlint/internal/project"
)

const defaultDebounce = 100 * time.Millisecond

// ResolverOptions configures NewResolver.
type ResolverOptions struct {
	// Root stops the upward search; empty means the filesystem root.
	Root string
	// Overrides are applied after every file layer.
	Overrides *File
	// Debounce for Watch; zero uses 100ms.
	Debounce time.Duration
	Logger   *log.Logger
}

// Resolver finds, decodes and merges configuration files for a path. Results
// are cached per directory and shared by content: directories that see the
// same set of files get the same *Effective.
type Resolver struct {
	defaults  *Effective
	root      string
	overrides *File
	debounce  time.Duration
	logger    *log.Logger

	group singleflight.Group

	mu     sync.Mutex
	gen    uint64
	dirs   map[string]*dirEntry
	merged map[project.Digest]*Effective
	walked map[string]struct{}
	fsw    *fsnotify.Watcher
}

type dirEntry struct {
	key   project.Digest
	eff   *Effective
	files []string
}

// NewResolver creates a resolver over defaults.
func NewResolver(defaults *Effective, opts ResolverOptions) *Resolver {
	root := opts.Root
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Resolver{
		defaults:  defaults,
		root:      root,
		overrides: opts.Overrides,
		debounce:  debounce,
		logger:    logx.OrDiscard(opts.Logger),
		dirs:      make(map[string]*dirEntry),
		merged:    make(map[project.Digest]*Effective),
		walked:    make(map[string]struct{}),
	}
}

// Defaults returns the built-in layer.
func (r *Resolver) Defaults() *Effective { return r.defaults }

// Root returns the directory that bounds the search, or "".
func (r *Resolver) Root() string { return r.root }

// Resolve returns the configuration for the file at path. Broken config files
// never fail the call; they show up in Effective.Issues.
func (r *Resolver) Resolve(path string) (*Effective, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	return r.ResolveDir(filepath.Dir(abs))
}

// ResolveDir is Resolve for a directory.
func (r *Resolver) ResolveDir(dir string) (*Effective, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", dir, err)
	}
	r.mu.Lock()
	entry, ok := r.dirs[dir]
	r.mu.Unlock()
	if ok {
		return entry.eff, nil
	}

	v, err, _ := r.group.Do(dir, func() (any, error) {
		return r.load(dir)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Effective), nil
}

func (r *Resolver) load(dir string) (*Effective, error) {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	// nearest first
	var (
		layers  []*File
		failed  error
		broken  []project.Digest
		files   []string
		visited []string
	)
	for cur := dir; ; {
		visited = append(visited, cur)
		path, ok, err := project.ConfigInDir(cur)
		if err != nil {
			return nil, err
		}
		stop := false
		if ok {
			files = append(files, path)
			f, err := readFile(path)
			if err != nil {
				r.logger.Warn("config ignored", "path", path, "err", err)
				failed = multierr.Append(failed, err)
				if data, readErr := os.ReadFile(path); readErr == nil {
					broken = append(broken, project.Combine(project.DigestOf([]byte(path)), project.DigestOf(data)))
				}
			} else {
				layers = append(layers, f)
				stop = f.Root
			}
		}
		parent := filepath.Dir(cur)
		if stop || cur == r.root || parent == cur {
			break
		}
		cur = parent
	}
	slices.Reverse(layers)
	// битый файл в цепочке: каталог анализируется на встроенных умолчаниях,
	// переопределения вызывающего остаются
	if failed != nil {
		layers = nil
	}

	key := r.defaults.Version
	for _, f := range layers {
		key = project.Combine(key, fingerprint(f))
	}
	key = project.Combine(key, broken...)

	r.mu.Lock()
	defer r.mu.Unlock()
	eff, ok := r.merged[key]
	if !ok {
		eff = Merge(r.defaults, layers, r.overrides).withFailures(failed, broken)
		r.logger.Debug("config resolved", "dir", dir, "files", len(layers), "issues", len(eff.Issues), "version", eff.Version.Short())
	}
	// кеш заполняем только если никто не инвалидировал его во время загрузки
	if gen == r.gen {
		r.merged[key] = eff
		r.dirs[dir] = &dirEntry{key: key, eff: eff, files: files}
	}
	for _, d := range visited {
		if _, seen := r.walked[d]; seen {
			continue
		}
		r.walked[d] = struct{}{}
		if r.fsw != nil {
			if err := r.fsw.Add(d); err != nil {
				r.logger.Warn("cannot watch directory", "dir", d, "err", err)
			}
		}
	}
	return eff, nil
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return Decode(path, data)
}

// Invalidate drops cached results that may depend on path: the entry of its
// directory and of every directory below it.
func (r *Resolver) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	dir := abs
	if isConfigName(filepath.Base(abs)) || !isDir(abs) {
		dir = filepath.Dir(abs)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	for d, entry := range r.dirs {
		if d == dir || strings.HasPrefix(d, dir+string(filepath.Separator)) || slices.Contains(entry.files, abs) {
			delete(r.dirs, d)
			delete(r.merged, entry.key)
			r.group.Forget(d)
		}
	}
}

// Cached returns the number of cached directories.
func (r *Resolver) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirs)
}

// Watch invalidates cached entries when a config file appears, changes or
// disappears in any directory searched so far, then calls onChange with the
// changed paths. Events are debounced. Watch blocks until ctx is done.
func (r *Resolver) Watch(ctx context.Context, onChange func(paths []string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create fsnotify watcher: %w", err)
	}

	r.mu.Lock()
	if r.fsw != nil {
		r.mu.Unlock()
		fsw.Close() //nolint:errcheck
		return errors.New("config: Watch is already running")
	}
	r.fsw = fsw
	dirs := slices.Sorted(maps.Keys(r.walked))
	r.mu.Unlock()

	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			r.logger.Warn("cannot watch directory", "dir", d, "err", err)
		}
	}

	var (
		pmu     sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
	)
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		pmu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		pmu.Unlock()
		if len(changed) == 0 {
			return
		}
		for _, p := range changed {
			r.Invalidate(p)
		}
		r.logger.Info("config changed", "paths", changed)
		if onChange != nil {
			onChange(changed)
		}
	}

	defer func() {
		pmu.Lock()
		if timer != nil {
			timer.Stop()
		}
		pmu.Unlock()
		r.mu.Lock()
		r.fsw = nil
		r.mu.Unlock()
		if err := fsw.Close(); err != nil {
			r.logger.Warn("close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fsw.Events:
			if !ok {
				return errors.New("config: fsnotify event channel closed")
			}
			if !isConfigName(filepath.Base(evt.Name)) || evt.Op == fsnotify.Chmod {
				continue
			}
			pmu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(r.debounce, fire)
			} else {
				timer.Reset(r.debounce)
			}
			pmu.Unlock()
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("config: fsnotify error channel closed")
			}
			r.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func isConfigName(name string) bool {
	return slices.Contains(project.ConfigFileNames, name)
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
