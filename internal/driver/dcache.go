package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"orlint/internal/analyzer"
	"orlint/internal/diag"
	"orlint/internal/project"
	"orlint/internal/rules"
	"orlint/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache хранит результаты анализа файлов на диске, ключ - CacheKey.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cached analysis. Spans are stored with the FileID of the
// run that produced them and rewritten on load.
type DiskPayload struct {
	Schema uint16

	Path          string
	ContentHash   project.Digest
	ConfigVersion project.Digest
	RulesDigest   project.Digest

	Diagnostics []diag.Diagnostic
	RulesRun    int
	DurationNS  int64
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache uses dir, creating it if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// CacheKey identifies an analysis: the file content, the effective config
// and the rule set that ran over it.
func CacheKey(content, configVersion, rulesDigest project.Digest) project.Digest {
	return project.Combine(content, configVersion, rulesDigest)
}

// RulesDigest fingerprints a registry. salt is usually the tool version, so
// a new build with changed rule code does not reuse old results.
func RulesDigest(reg *rules.Registry, salt string) project.Digest {
	parts := []project.Digest{project.DigestOf([]byte(salt))}
	for _, r := range reg.All() {
		m := r.Meta()
		origin, _ := reg.Origin(m.ID)
		parts = append(parts, project.DigestOf(fmt.Appendf(nil, "%s|%s|%d|%d|%s", m.ID, m.Category, m.DefaultSeverity, m.MinLevel, origin)))
	}
	return project.Combine(parts[0], parts[1:]...)
}

func (c *DiskCache) pathFor(key project.Digest) string {
	// Для удобства очистки — подкаталог "results".
	return filepath.Join(c.dir, "results", key.Hex()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	payload.Schema = diskCacheSchemaVersion
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache. Entries written
// by another schema version are misses.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close() //nolint:errcheck

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key.Short(), err)
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// resultToPayload converts an analysis for caching.
func resultToPayload(res *analyzer.Result, rulesDigest project.Digest) *DiskPayload {
	return &DiskPayload{
		Path:          res.Path,
		ContentHash:   res.ContentHash,
		ConfigVersion: res.ConfigVersion,
		RulesDigest:   rulesDigest,
		Diagnostics:   res.Diagnostics,
		RulesRun:      res.RulesRun,
		DurationNS:    int64(res.Duration),
	}
}

// payloadToResult restores a cached analysis for file. Spans of the cached
// run are moved to the FileID of this run.
func payloadToResult(p *DiskPayload, file source.FileID) *analyzer.Result {
	diags := make([]diag.Diagnostic, len(p.Diagnostics))
	for i, d := range p.Diagnostics {
		d.Primary.File = file
		d.Notes = append([]diag.Note(nil), d.Notes...)
		for j := range d.Notes {
			d.Notes[j].Span.File = file
		}
		d.Fixes = append([]diag.Fix(nil), d.Fixes...)
		for j := range d.Fixes {
			edits := append([]diag.TextEdit(nil), d.Fixes[j].Edits...)
			for k := range edits {
				edits[k].Span.File = file
			}
			d.Fixes[j].Edits = edits
		}
		diags[i] = d
	}
	return &analyzer.Result{
		Path:          p.Path,
		ContentHash:   p.ContentHash,
		ConfigVersion: p.ConfigVersion,
		Diagnostics:   diags,
		Duration:      time.Duration(p.DurationNS),
		RulesRun:      p.RulesRun,
	}
}
