package builtin

import (
	"fmt"

	"orlint/internal/ast"
	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/rules"
	"orlint/internal/source"
)

type styleEmptyBlock struct{}

func (styleEmptyBlock) Meta() rules.Meta {
	return rules.Meta{
		ID:              "style-empty-block",
		Category:        rules.CategoryStyle,
		DefaultSeverity: diag.SevWarning,
		Fixable:         true,
		Description:     "style rules without declarations should be removed",
	}
}

func (styleEmptyBlock) Check(ctx *rules.Context) error {
	for id := range ctx.Doc.OfKind(ast.NodeStyleBlock) {
		el := ctx.Doc.Element(id)
		if el == nil || el.Style == nil {
			continue
		}
		for _, rule := range el.Style.Rules {
			if rule.Nested || rule.Unclosed || len(rule.Decls) > 0 {
				continue
			}
			removal := wholeLine(ctx.File, rule.Span)
			ctx.Report(rule.SelectorSpan, fmt.Sprintf("empty style rule %q", rule.Selector)).
				WithFixSuggestion(fix.DeleteSpan("remove empty rule", removal, ctx.Text(removal), fix.Preferred())).
				Emit()
		}
	}
	return nil
}

// wholeLine extends sp to its full line (with the newline) when nothing else
// shares the line.
func wholeLine(f *source.File, sp source.Span) source.Span {
	if f == nil {
		return sp
	}
	content := f.Content
	start := sp.Start
	for start > 0 && (content[start-1] == ' ' || content[start-1] == '\t') {
		start--
	}
	if start > 0 && content[start-1] != '\n' {
		return sp
	}
	end := sp.End
	for int(end) < len(content) && (content[end] == ' ' || content[end] == '\t' || content[end] == '\r') {
		end++
	}
	switch {
	case int(end) == len(content):
	case content[end] == '\n':
		end++
	default:
		return sp
	}
	return source.Span{File: sp.File, Start: start, End: end}
}

type styleQuoteAttributes struct{}

func (styleQuoteAttributes) Meta() rules.Meta {
	return rules.Meta{
		ID:              "style-quote-attributes",
		Category:        rules.CategoryStyle,
		DefaultSeverity: diag.SevHint,
		Fixable:         true,
		Description:     "literal attribute values should be quoted",
	}
}

func (styleQuoteAttributes) Check(ctx *rules.Context) error {
	for id := range ctx.Doc.OfKind(ast.NodeAttribute) {
		a := ctx.Doc.Attribute(id)
		if a.Value.Kind != ast.ValueLiteral || a.Value.Quote != 0 || a.Value.Span.Empty() {
			continue
		}
		ctx.Report(a.Value.Span, fmt.Sprintf("value of attribute %q should be quoted", a.Name)).
			WithFixSuggestion(fix.WrapWith("add quotes", a.Value.Span, `"`, `"`,
				fix.WithKind(diag.FixKindQuickFix),
				fix.WithApplicability(diag.FixApplicabilityAlwaysSafe),
				fix.Preferred())).
			Emit()
	}
	return nil
}
