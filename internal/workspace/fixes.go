package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"orlint/internal/analyzer"
	"orlint/internal/fix"
	"orlint/internal/parser"
	"orlint/internal/project"
	"orlint/internal/source"
)

var (
	ErrUnknownDiagnostic = errors.New("workspace: no fix for diagnostic")
	// ErrTextChanged means the file was edited while a fix was computed.
	ErrTextChanged = errors.New("workspace: text changed while applying fix")
)

// ApplyFix applies one fix of the diagnostic identified by key to the current
// text of path. An empty fixID selects the diagnostic's preferred fix. Calls
// for one file are serialized. When the last result lags behind the text the
// file is analyzed first, so keys always refer to the current text; a fix
// whose expected text no longer matches fails with *fix.StaleFixError.
//
// On success the new text becomes the current text with version+1 and the
// file is re-analyzed.
func (c *Coordinator) ApplyFix(ctx context.Context, path, key, fixID string) (*fix.Result, error) {
	path = cleanPath(path)
	c.mu.Lock()
	e, err := c.lookupLocked(path)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.fixMu.Lock()
	defer e.fixMu.Unlock()

	c.mu.Lock()
	content, version, res := e.content, e.version, e.result
	c.mu.Unlock()

	res, err = c.current(ctx, e.path, content, res)
	if err != nil {
		return nil, err
	}
	cands, _ := fix.Select(res.Diagnostics, fix.SelectOptions{Mode: fix.SelectKey, Key: key, FixID: fixID})
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: key %s", ErrUnknownDiagnostic, key)
	}
	out, err := fix.Apply(content, cands)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.files[path] != e || e.version != version || !bytes.Equal(e.content, content) {
		return nil, ErrTextChanged
	}
	e.setText(out.Content, version+1)
	c.logger.Debug("fix applied", "path", path, "fixes", len(out.Applied), "version", e.version)
	c.scheduleLocked(e, 0)
	return out, nil
}

// current returns res when it was computed for content under the current
// config; otherwise it analyzes content synchronously.
func (c *Coordinator) current(ctx context.Context, path string, content []byte, res *analyzer.Result) (*analyzer.Result, error) {
	cfg, err := c.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	if res != nil && res.ContentHash == project.DigestOf(content) && res.ConfigVersion == cfg.Version {
		return res, nil
	}
	fs := source.NewFileSet()
	doc := parser.ParseSource(fs, path, content, parser.Options{})
	return c.analyzeFn(ctx, doc, fs.Get(doc.File), cfg, c.reg, c.aopts)
}
