// Package custom contains project-specific rules. They use the same contract
// as the built-ins but are registered with rules.OriginCustom.
package custom

import (
	"fmt"

	"orlint/internal/ast"
	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/rules"
	"orlint/internal/source"
)

func init() {
	rules.AddDefault("custom", Register)
}

// Register installs the custom rules.
func Register(reg *rules.Registry) error {
	return reg.Register(noDeprecatedComponents{}, rules.OriginCustom)
}

type noDeprecatedComponents struct{}

func (noDeprecatedComponents) Meta() rules.Meta {
	return rules.Meta{
		ID:              "custom-no-deprecated-components",
		Category:        rules.CategoryBestPractice,
		DefaultSeverity: diag.SevWarning,
		Fixable:         true,
		Description:     "components marked deprecated in [components] must not be used",
	}
}

func (noDeprecatedComponents) Check(ctx *rules.Context) error {
	for id, n := range ctx.Doc.All() {
		if n.Kind != ast.NodeElement {
			continue
		}
		el := ctx.Doc.Element(id)
		if !ast.IsComponentName(el.Name) {
			continue
		}
		spec, ok := ctx.Settings.Component(el.Name)
		if !ok || spec.Deprecated == "" {
			continue
		}
		b := ctx.Report(el.NameSpan, fmt.Sprintf("<%s> is deprecated; use <%s> instead", el.Name, spec.Deprecated))
		if spans, ok := tagNameSpans(ctx, el); ok {
			b.WithFixSuggestion(fix.Rename(
				fmt.Sprintf("replace <%s> with <%s>", el.Name, spec.Deprecated),
				spans, el.Name, spec.Deprecated, fix.Preferred()))
		}
		b.Emit()
	}
	return nil
}

// tagNameSpans returns the name spans of the start tag and, if present, the
// close tag. The fix is withheld when the close tag is spelled differently.
func tagNameSpans(ctx *rules.Context, el *ast.Element) ([]source.Span, bool) {
	spans := []source.Span{el.NameSpan}
	if el.CloseTag.Empty() {
		return spans, true
	}
	// "</" + name
	closeName := source.Span{
		File:  el.CloseTag.File,
		Start: el.CloseTag.Start + 2,
		End:   el.CloseTag.Start + 2 + el.NameSpan.Len(),
	}
	if closeName.End > el.CloseTag.End || ctx.Text(closeName) != el.Name {
		return nil, false
	}
	return append(spans, closeName), true
}
