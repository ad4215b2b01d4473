package driver

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"orlint/internal/config"
)

// Ext is the extension of files picked up from directories.
const Ext = ".orbit"

// Target is one file to analyze. Err is set when the path named on the
// command line or met during the walk could not be read.
type Target struct {
	Path string
	Err  error
}

// Discover expands paths into targets. Directories are walked for *.orbit
// files filtered by the include and exclude globs of the configuration that
// applies to each file; files named explicitly are only dropped by exclude
// globs. Hidden directories are skipped. The result is sorted by path with
// duplicates removed.
func Discover(paths []string, resolver *config.Resolver) ([]Target, error) {
	base, err := discoveryBase(resolver)
	if err != nil {
		return nil, err
	}
	var out []Target
	seen := make(map[string]struct{})
	add := func(t Target) {
		key := t.Path
		if abs, err := filepath.Abs(t.Path); err == nil {
			key = abs
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			add(Target{Path: p, Err: err})
			continue
		}
		if !info.IsDir() {
			if selected(resolver, base, p, true) {
				add(Target{Path: p})
			}
			continue
		}
		walkErr := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				add(Target{Path: path, Err: err})
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == Ext && selected(resolver, base, path, false) {
				add(Target{Path: path})
			}
			return nil
		})
		if walkErr != nil {
			add(Target{Path: p, Err: walkErr})
		}
	}

	slices.SortFunc(out, func(a, b Target) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

// discoveryBase is the directory globs are relative to.
func discoveryBase(resolver *config.Resolver) (string, error) {
	if root := resolver.Root(); root != "" {
		return root, nil
	}
	return os.Getwd()
}

func selected(resolver *config.Resolver, base, path string, explicit bool) bool {
	cfg, err := resolver.Resolve(path)
	if err != nil {
		// без конфигурации файл анализируется с настройками по умолчанию
		cfg = resolver.Defaults()
	}
	rel := relPath(base, path)
	if explicit {
		return !cfg.Excludes(rel)
	}
	return cfg.Includes(rel)
}

func relPath(base, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Paths returns the paths of targets without errors.
func Paths(targets []Target) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.Err == nil {
			out = append(out, t.Path)
		}
	}
	return out
}
