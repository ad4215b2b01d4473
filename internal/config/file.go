package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"orlint/internal/project"
	"orlint/internal/rules"
)

// File is one decoded configuration layer. Pointer fields distinguish "not
// set" from zero values so that nearer layers only override what they name.
type File struct {
	Path string `toml:"-" yaml:"-"`

	Root          bool                 `toml:"root" yaml:"root"`
	Analyzer      AnalyzerSection      `toml:"analyzer" yaml:"analyzer"`
	Rules         RulesSection         `toml:"rules" yaml:"rules"`
	Performance   PerformanceSection   `toml:"performance" yaml:"performance"`
	Accessibility AccessibilitySection `toml:"accessibility" yaml:"accessibility"`
	Components    map[string]Component `toml:"components" yaml:"components"`

	// Extra keeps unknown top-level keys verbatim.
	Extra map[string]any `toml:"-" yaml:"-"`
	// Digest of the raw content; zero for programmatic layers.
	Digest project.Digest `toml:"-" yaml:"-"`
}

type AnalyzerSection struct {
	Include []string `toml:"include" yaml:"include"`
	Exclude []string `toml:"exclude" yaml:"exclude"`
}

// RulesSection lists rule ids or doublestar globs over rule ids.
type RulesSection struct {
	Enabled  []string `toml:"enabled" yaml:"enabled"`
	Disabled []string `toml:"disabled" yaml:"disabled"`
	Error    []string `toml:"error" yaml:"error"`
	Warning  []string `toml:"warning" yaml:"warning"`
	Info     []string `toml:"info" yaml:"info"`
	Hint     []string `toml:"hint" yaml:"hint"`
}

func (r RulesSection) empty() bool {
	return len(r.Enabled)+len(r.Disabled)+len(r.Error)+len(r.Warning)+len(r.Info)+len(r.Hint) == 0
}

type PerformanceSection struct {
	RenderingThresholdMS *int `toml:"rendering_threshold_ms" yaml:"rendering_threshold_ms"`
}

type AccessibilitySection struct {
	Level *string `toml:"level" yaml:"level"`
}

type Component struct {
	Required   []string `toml:"required" yaml:"required"`
	Deprecated string   `toml:"deprecated" yaml:"deprecated"`
}

var knownTopLevel = []string{"root", "analyzer", "rules", "performance", "accessibility", "components"}

// ConfigError reports a configuration file that could not be used.
type ConfigError struct {
	Path   string
	Line   int // 1-based; 0 when unknown
	Column int
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Decode parses one config file. The format is chosen by extension: .toml,
// .yaml or .yml. Errors are *ConfigError.
func Decode(path string, data []byte) (*File, error) {
	f := &File{Path: path, Digest: project.DigestOf(data)}
	raw := make(map[string]any)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(f); err != nil {
			return nil, tomlError(path, data, err)
		}
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, tomlError(path, data, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, yamlError(path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, yamlError(path, err)
		}
	default:
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("unsupported config format %q", filepath.Ext(path))}
	}

	for key, v := range raw {
		if slices.Contains(knownTopLevel, key) {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]any)
		}
		f.Extra[key] = v
	}
	if err := f.validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return f, nil
}

func (f *File) validate() error {
	if f.Accessibility.Level != nil {
		if _, err := rules.ParseLevel(*f.Accessibility.Level); err != nil {
			return fmt.Errorf("accessibility.level: %w", err)
		}
	}
	if f.Performance.RenderingThresholdMS != nil && *f.Performance.RenderingThresholdMS < 0 {
		return fmt.Errorf("performance.rendering_threshold_ms must not be negative, got %d", *f.Performance.RenderingThresholdMS)
	}
	for name := range f.Components {
		if name == "" {
			return errors.New("components: empty component name")
		}
	}
	return nil
}

func tomlError(path string, data []byte, err error) *ConfigError {
	ce := &ConfigError{Path: path, Err: err}
	var pe toml.ParseError
	if errors.As(err, &pe) {
		ce.Line = pe.Position.Line
		ce.Column = 1
		if start := pe.Position.Start; start >= 0 && start <= len(data) {
			ce.Column = start - bytes.LastIndexByte(data[:start], '\n')
		}
		ce.Err = errors.New(pe.Message)
	}
	return ce
}

func yamlError(path string, err error) *ConfigError {
	ce := &ConfigError{Path: path, Err: err}
	// yaml.v3 пишет "yaml: line N: ..."
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		ce.Line = line
		ce.Column = 1
	}
	return ce
}
