package config

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/multierr"

	"orlint/internal/diag"
	"orlint/internal/project"
	"orlint/internal/rules"
	"orlint/internal/source"
)

const (
	DefaultRenderingThresholdMS = 16
	DefaultAccessibilityLevel   = rules.LevelAA
)

var (
	DefaultInclude = []string{"**/*.orbit"}
	DefaultExclude = []string{"**/node_modules/**", "**/.git/**"}
)

// RuleSetting is the resolved state of one rule.
type RuleSetting struct {
	Enabled  bool
	Severity diag.Severity
}

// Issue is a problem found while resolving configuration. Issues never stop
// analysis; they are reported next to the file's own diagnostics.
type Issue struct {
	Code     diag.Code
	Severity diag.Severity
	Path     string
	Line     int
	Column   int
	Message  string
	Err      error
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", i.Path, i.Line, i.Column, i.Message)
	}
	if i.Path != "" {
		return fmt.Sprintf("%s: %s", i.Path, i.Message)
	}
	return i.Message
}

// UnknownRuleReference is a rule id (or a glob matching no rule) named in
// configuration.
type UnknownRuleReference struct {
	Path string
	Key  string
	Rule string
}

func (e *UnknownRuleReference) Error() string {
	where := e.Path
	if where == "" {
		where = "overrides"
	}
	return fmt.Sprintf("%s: %s references unknown rule %q", where, e.Key, e.Rule)
}

// issueFor classifies an error collected during resolution.
func issueFor(err error) Issue {
	var unknown *UnknownRuleReference
	if errors.As(err, &unknown) {
		return Issue{
			Code:     diag.UnknownRule,
			Severity: diag.SevInfo,
			Path:     unknown.Path,
			Message:  fmt.Sprintf("unknown rule %q referenced in %s", unknown.Rule, unknown.Key),
			Err:      err,
		}
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return Issue{
			Code:     diag.ConfigError,
			Severity: diag.SevError,
			Path:     ce.Path,
			Line:     ce.Line,
			Column:   ce.Column,
			Message:  fmt.Sprintf("invalid configuration, file ignored: %v", ce.Err),
			Err:      err,
		}
	}
	return Issue{Code: diag.ConfigError, Severity: diag.SevError, Message: err.Error(), Err: err}
}

// Effective is the resolved configuration for one directory. It is immutable
// once built and shared between concurrent analyses.
type Effective struct {
	Rules                map[diag.Code]RuleSetting
	RenderingThresholdMS int
	AccessibilityLevel   rules.Level
	Include              []string
	Exclude              []string
	Components           map[string]rules.ComponentSpec
	// Extra holds unknown top-level keys, nearest file wins per key.
	Extra  map[string]any
	Issues []Issue
	// Files are the layers that contributed, outermost first.
	Files []string
	// Version changes whenever any input of the merge changes.
	Version project.Digest
}

// Defaults builds the built-in configuration: every registered rule enabled
// at its default severity.
func Defaults(reg *rules.Registry) *Effective {
	eff := &Effective{
		Rules:                make(map[diag.Code]RuleSetting, reg.Len()),
		RenderingThresholdMS: DefaultRenderingThresholdMS,
		AccessibilityLevel:   DefaultAccessibilityLevel,
		Include:              slices.Clone(DefaultInclude),
		Exclude:              slices.Clone(DefaultExclude),
	}
	var b strings.Builder
	for _, r := range reg.All() {
		m := r.Meta()
		eff.Rules[m.ID] = RuleSetting{Enabled: true, Severity: m.DefaultSeverity}
		fmt.Fprintf(&b, "%s=%d\n", m.ID, m.DefaultSeverity)
	}
	fmt.Fprintf(&b, "threshold=%d level=%d include=%q exclude=%q\n",
		eff.RenderingThresholdMS, eff.AccessibilityLevel, eff.Include, eff.Exclude)
	eff.Version = project.DigestOf([]byte(b.String()))
	return eff
}

// Merge is the pure resolution function. Layers are applied outermost first,
// overrides last; nearer sources win per key. Rule references that match no
// known rule become Info issues. Neither input is modified.
func Merge(defaults *Effective, layers []*File, overrides *File) *Effective {
	eff := defaults.clone()
	digests := make([]project.Digest, 0, len(layers)+1)
	var refErr error

	apply := func(f *File) {
		digests = append(digests, fingerprint(f))
		if f.Path != "" {
			eff.Files = append(eff.Files, f.Path)
		}
		refErr = multierr.Append(refErr, eff.applyRules(f))
		if f.Performance.RenderingThresholdMS != nil {
			eff.RenderingThresholdMS = *f.Performance.RenderingThresholdMS
		}
		if f.Accessibility.Level != nil {
			// validated by Decode; overrides built in code are trusted the same way
			if lvl, err := rules.ParseLevel(*f.Accessibility.Level); err == nil {
				eff.AccessibilityLevel = lvl
			}
		}
		if len(f.Analyzer.Include) > 0 {
			eff.Include = slices.Clone(f.Analyzer.Include)
		}
		if len(f.Analyzer.Exclude) > 0 {
			eff.Exclude = slices.Clone(f.Analyzer.Exclude)
		}
		for name, c := range f.Components {
			spec := eff.Components[name]
			if c.Required != nil {
				spec.Required = slices.Clone(c.Required)
			}
			if c.Deprecated != "" {
				spec.Deprecated = c.Deprecated
			}
			if eff.Components == nil {
				eff.Components = make(map[string]rules.ComponentSpec)
			}
			eff.Components[name] = spec
		}
		for key, v := range f.Extra {
			if eff.Extra == nil {
				eff.Extra = make(map[string]any)
			}
			eff.Extra[key] = v
		}
	}

	for _, f := range layers {
		if f != nil {
			apply(f)
		}
	}
	if overrides != nil {
		apply(overrides)
	}
	for _, err := range multierr.Errors(refErr) {
		eff.Issues = append(eff.Issues, issueFor(err))
	}
	eff.Version = project.Combine(defaults.Version, digests...)
	return eff
}

// withFailures records layers that could not be decoded. Their content still
// feeds the version so that fixing the file invalidates cached results.
func (e *Effective) withFailures(errs error, digests []project.Digest) *Effective {
	for _, err := range multierr.Errors(errs) {
		e.Issues = append(e.Issues, issueFor(err))
	}
	if len(digests) > 0 {
		e.Version = project.Combine(e.Version, digests...)
	}
	return e
}

func (e *Effective) clone() *Effective {
	out := *e
	out.Rules = maps.Clone(e.Rules)
	out.Include = slices.Clone(e.Include)
	out.Exclude = slices.Clone(e.Exclude)
	out.Components = make(map[string]rules.ComponentSpec, len(e.Components))
	for name, spec := range e.Components {
		spec.Required = slices.Clone(spec.Required)
		out.Components[name] = spec
	}
	out.Extra = maps.Clone(e.Extra)
	out.Issues = slices.Clone(e.Issues)
	out.Files = slices.Clone(e.Files)
	return &out
}

// applyRules: enabled, затем уровни серьёзности, затем disabled - выключение
// внутри одного файла побеждает.
func (e *Effective) applyRules(f *File) error {
	var errs error
	each := func(key string, refs []string, fn func(id diag.Code)) {
		for _, ref := range refs {
			ids := e.match(ref)
			if len(ids) == 0 {
				errs = multierr.Append(errs, &UnknownRuleReference{Path: f.Path, Key: "rules." + key, Rule: ref})
				continue
			}
			for _, id := range ids {
				fn(id)
			}
		}
	}
	setSeverity := func(sev diag.Severity) func(diag.Code) {
		return func(id diag.Code) {
			rs := e.Rules[id]
			rs.Severity = sev
			e.Rules[id] = rs
		}
	}

	each("enabled", f.Rules.Enabled, func(id diag.Code) {
		rs := e.Rules[id]
		rs.Enabled = true
		e.Rules[id] = rs
	})
	each("error", f.Rules.Error, setSeverity(diag.SevError))
	each("warning", f.Rules.Warning, setSeverity(diag.SevWarning))
	each("info", f.Rules.Info, setSeverity(diag.SevInfo))
	each("hint", f.Rules.Hint, setSeverity(diag.SevHint))
	each("disabled", f.Rules.Disabled, func(id diag.Code) {
		rs := e.Rules[id]
		rs.Enabled = false
		e.Rules[id] = rs
	})
	return errs
}

// match returns the known rule ids selected by ref, an exact id or a glob.
func (e *Effective) match(ref string) []diag.Code {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if !strings.ContainsAny(ref, "*?[{") {
		if _, ok := e.Rules[diag.Code(ref)]; ok {
			return []diag.Code{diag.Code(ref)}
		}
		return nil
	}
	var out []diag.Code
	for id := range e.Rules {
		if ok, err := doublestar.Match(ref, string(id)); err == nil && ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// fingerprint identifies one layer. Decoded files hash their path and raw
// bytes; layers built in code (caller overrides) hash their msgpack form.
func fingerprint(f *File) project.Digest {
	if !f.Digest.IsZero() {
		return project.Combine(project.DigestOf([]byte(f.Path)), f.Digest)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(f); err != nil {
		return project.DigestOf(fmt.Appendf(nil, "%#v", f))
	}
	return project.DigestOf(buf.Bytes())
}

// Rule returns the setting of id; unknown ids report ok == false.
func (e *Effective) Rule(id diag.Code) (RuleSetting, bool) {
	rs, ok := e.Rules[id]
	return rs, ok
}

// Enabled reports whether id should run. Rules missing from the table (for
// example registered after the defaults were built) run by default.
func (e *Effective) Enabled(id diag.Code) bool {
	rs, ok := e.Rules[id]
	return !ok || rs.Enabled
}

// Severity returns the resolved severity of id, or fallback when unknown.
func (e *Effective) Severity(id diag.Code, fallback diag.Severity) diag.Severity {
	if rs, ok := e.Rules[id]; ok {
		return rs.Severity
	}
	return fallback
}

// Settings returns the rule-facing view.
func (e *Effective) Settings() rules.Settings {
	s := rules.Settings{
		RenderingThresholdMS: e.RenderingThresholdMS,
		AccessibilityLevel:   e.AccessibilityLevel,
	}
	if len(e.Components) > 0 {
		s.Components = make(map[string]rules.ComponentSpec, len(e.Components))
		for name, spec := range e.Components {
			spec.Required = slices.Clone(spec.Required)
			s.Components[name] = spec
		}
	}
	return s
}

// Includes reports whether rel (a slash-separated path relative to the
// project root) is selected by the include and exclude globs.
func (e *Effective) Includes(rel string) bool {
	rel = cleanRel(rel)
	if matchAny(e.Exclude, rel) {
		return false
	}
	return len(e.Include) == 0 || matchAny(e.Include, rel)
}

// Excludes reports whether rel matches an exclude glob. Files named
// explicitly on the command line are only filtered by exclusion.
func (e *Effective) Excludes(rel string) bool {
	return matchAny(e.Exclude, cleanRel(rel))
}

func cleanRel(rel string) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(rel, `\`, "/")), "./")
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// HasErrors reports whether a config file had to be ignored.
func (e *Effective) HasErrors() bool {
	return slices.ContainsFunc(e.Issues, func(i Issue) bool { return i.Severity == diag.SevError })
}

// Err combines the errors behind every issue, nil when there are none.
func (e *Effective) Err() error {
	var err error
	for _, i := range e.Issues {
		err = multierr.Append(err, i.Err)
	}
	return err
}

// IssueDiagnostics turns the issues into diagnostics attributed to at,
// normally the file-level span of the analyzed document.
func (e *Effective) IssueDiagnostics(at source.Span) []diag.Diagnostic {
	if len(e.Issues) == 0 {
		return nil
	}
	out := make([]diag.Diagnostic, 0, len(e.Issues))
	for _, i := range e.Issues {
		out = append(out, diag.New(i.Severity, i.Code, at, i.String()))
	}
	return out
}
