package builtin

import (
	"fmt"
	"strings"

	"orlint/internal/ast"
	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/rules"
	"orlint/internal/source"
)

type noDuplicateAttributes struct{}

func (noDuplicateAttributes) Meta() rules.Meta {
	return rules.Meta{
		ID:              "no-duplicate-attributes",
		Category:        rules.CategorySyntax,
		DefaultSeverity: diag.SevError,
		Fixable:         true,
		Description:     "an attribute or event binding may appear only once per element",
	}
}

func (r noDuplicateAttributes) Check(ctx *rules.Context) error {
	doc := ctx.Doc
	for id, n := range doc.All() {
		if n.Kind != ast.NodeElement && n.Kind != ast.NodeStyleBlock {
			continue
		}
		el := doc.Element(id)
		seen := make(map[string]ast.NodeID, len(el.Attrs))
		for _, attrID := range el.Attrs {
			key := attrKey(doc, el, attrID)
			if key == "" {
				continue
			}
			prev, dup := seen[key]
			seen[key] = attrID
			if !dup {
				continue
			}
			r.report(ctx, el, prev, attrID)
		}
	}
	return nil
}

// attrKey: события on:click и @click считаются одним и тем же.
func attrKey(doc *ast.Document, el *ast.Element, id ast.NodeID) string {
	n := doc.Node(id)
	a := doc.Attribute(id)
	if n == nil || a == nil {
		return ""
	}
	if n.Kind == ast.NodeEventBinding {
		return "event:" + a.Event
	}
	if ast.IsComponentName(el.Name) {
		return a.Name
	}
	return strings.ToLower(a.Name)
}

func (noDuplicateAttributes) report(ctx *rules.Context, el *ast.Element, earlier, later ast.NodeID) {
	doc := ctx.Doc
	first := doc.Attribute(earlier)
	removal := withLeadingSpace(ctx.File, doc.Node(earlier).Span, el.StartTag.Start)
	ctx.Report(doc.Node(earlier).Span, fmt.Sprintf("attribute %q is set more than once on <%s>; the last value wins", first.Name, el.Name)).
		WithNote(doc.Node(later).Span, "overridden here").
		WithFixSuggestion(fix.DeleteSpan("remove the overridden attribute", removal, ctx.Text(removal), fix.Preferred())).
		Emit()
}

// withLeadingSpace extends sp backwards over blanks, not past floor.
func withLeadingSpace(f *source.File, sp source.Span, floor uint32) source.Span {
	if f == nil {
		return sp
	}
	start := sp.Start
	for start > floor && start-1 < uint32(len(f.Content)) {
		c := f.Content[start-1]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
		start--
	}
	sp.Start = start
	return sp
}
