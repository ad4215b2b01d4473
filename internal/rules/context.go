package rules

import (
	"context"

	"orlint/internal/ast"
	"orlint/internal/diag"
	"orlint/internal/source"
)

// ComponentSpec is what the configuration knows about one component.
type ComponentSpec struct {
	// Required props that every usage must pass.
	Required []string
	// Deprecated names the replacement component; empty when not deprecated.
	Deprecated string
}

// Settings are the rule-facing parts of the effective configuration.
type Settings struct {
	RenderingThresholdMS int
	AccessibilityLevel   Level
	Components           map[string]ComponentSpec
}

// Component returns the spec for a component name.
func (s Settings) Component(name string) (ComponentSpec, bool) {
	spec, ok := s.Components[name]
	return spec, ok
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.Components = make(map[string]ComponentSpec, len(s.Components))
	for name, spec := range s.Components {
		spec.Required = append([]string(nil), spec.Required...)
		out.Components[name] = spec
	}
	return out
}

// Context is handed to one rule for one document. The document is shared and
// must not be modified.
type Context struct {
	Ctx      context.Context
	Doc      *ast.Document
	File     *source.File
	Settings Settings
	// Severity is the effective severity for this rule.
	Severity diag.Severity

	rule     diag.Code
	reporter diag.Reporter
}

// NewContext prepares a context for rule id; diagnostics go to reporter.
func NewContext(ctx context.Context, id diag.Code, doc *ast.Document, file *source.File, settings Settings, sev diag.Severity, reporter diag.Reporter) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Context{
		Ctx:      ctx,
		Doc:      doc,
		File:     file,
		Settings: settings,
		Severity: sev,
		rule:     id,
		reporter: reporter,
	}
}

// Rule returns the id of the rule being run.
func (c *Context) Rule() diag.Code { return c.rule }

// Report starts a diagnostic for the running rule at its effective severity.
// Call Emit on the returned builder.
func (c *Context) Report(primary source.Span, msg string) *diag.ReportBuilder {
	return diag.NewReportBuilder(c.reporter, c.Severity, c.rule, primary, msg)
}

// Text returns the source text under span.
func (c *Context) Text(span source.Span) string {
	if c.File == nil {
		return ""
	}
	return c.File.Text(span)
}

// Cancelled reports whether the analysis was cancelled. Long rules poll it.
func (c *Context) Cancelled() bool {
	return c.Ctx.Err() != nil
}
