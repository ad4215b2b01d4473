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

type a11yImgAlt struct{}

func (a11yImgAlt) Meta() rules.Meta {
	return rules.Meta{
		ID:              "a11y-img-alt",
		Category:        rules.CategoryAccessibility,
		DefaultSeverity: diag.SevError,
		Fixable:         true,
		Description:     "<img> needs alternative text (alt=\"\" marks it decorative)",
		MinLevel:        rules.LevelA,
	}
}

func (a11yImgAlt) Check(ctx *rules.Context) error {
	for id, el := range elements(ctx.Doc) {
		if !isTag(el, "img") || ctx.Doc.HasAttr(id, "alt") || hiddenFromAT(ctx.Doc, id) {
			continue
		}
		// пустой alt прячет картинку от скринридера: только после ревью
		at := source.Span{File: el.NameSpan.File, Start: el.NameSpan.End, End: el.NameSpan.End}
		ctx.Report(el.StartTag, "<img> is missing an alt attribute").
			WithFixSuggestion(fix.InsertText(`mark the image decorative with alt=""`, at, ` alt=""`,
				fix.WithApplicability(diag.FixApplicabilityManualReview))).
			Emit()
	}
	return nil
}

type a11yButtonName struct{}

func (a11yButtonName) Meta() rules.Meta {
	return rules.Meta{
		ID:              "a11y-button-name",
		Category:        rules.CategoryAccessibility,
		DefaultSeverity: diag.SevWarning,
		Description:     "buttons need an accessible name",
		MinLevel:        rules.LevelA,
	}
}

func (a11yButtonName) Check(ctx *rules.Context) error {
	doc := ctx.Doc
	for id, el := range elements(doc) {
		role, _ := attrText(doc, id, "role")
		if !isTag(el, "button") && !strings.EqualFold(strings.TrimSpace(role), "button") {
			continue
		}
		if hiddenFromAT(doc, id) || hasAccessibleName(doc, id) {
			continue
		}
		ctx.Report(el.StartTag, fmt.Sprintf("<%s> has no accessible name; add text, aria-label or title", el.Name)).Emit()
	}
	return nil
}

func hasAccessibleName(doc *ast.Document, id ast.NodeID) bool {
	for _, attr := range []string{"aria-label", "aria-labelledby", "title"} {
		if hasNonBlankAttr(doc, id, attr) {
			return true
		}
	}
	if doc.TextContent(id) != "" {
		return true
	}
	return namedByChild(doc, id)
}

// namedByChild: картинка с alt или вложенный компонент тоже дают имя.
func namedByChild(doc *ast.Document, id ast.NodeID) bool {
	for _, c := range doc.Element(id).Children {
		if n := doc.Node(c); n == nil || n.Kind != ast.NodeElement {
			continue
		}
		child := doc.Element(c)
		if ast.IsComponentName(child.Name) {
			return true
		}
		if isTag(child, "img") && hasNonBlankAttr(doc, c, "alt") {
			return true
		}
		if namedByChild(doc, c) {
			return true
		}
	}
	return false
}

var keyboardEvents = []string{"keydown", "keyup", "keypress"}

type a11yClickKeyboard struct{}

func (a11yClickKeyboard) Meta() rules.Meta {
	return rules.Meta{
		ID:              "a11y-click-keyboard",
		Category:        rules.CategoryAccessibility,
		DefaultSeverity: diag.SevWarning,
		Description:     "click handlers on non-interactive elements need a keyboard equivalent",
		MinLevel:        rules.LevelAA,
	}
}

func (a11yClickKeyboard) Check(ctx *rules.Context) error {
	doc := ctx.Doc
	for id, el := range elements(doc) {
		if ast.IsComponentName(el.Name) {
			continue
		}
		if spec, ok := ast.LookupElement(el.Name); ok && spec.HasFlag(ast.ElementFlagInteractive) {
			continue
		}
		var click ast.NodeID
		keyboard := false
		for _, b := range doc.EventBindings(id) {
			ev := strings.ToLower(doc.Attribute(b).Event)
			if ev == "click" && !click.IsValid() {
				click = b
			}
			for _, k := range keyboardEvents {
				if ev == k {
					keyboard = true
				}
			}
		}
		if !click.IsValid() || keyboard {
			continue
		}
		ctx.Report(doc.Node(click).Span,
			fmt.Sprintf("<%s> handles click but not keyboard events; add on:keydown and tabindex", el.Name)).Emit()
	}
	return nil
}

type a11yHeadingOrder struct{}

func (a11yHeadingOrder) Meta() rules.Meta {
	return rules.Meta{
		ID:              "a11y-heading-order",
		Category:        rules.CategoryAccessibility,
		DefaultSeverity: diag.SevInfo,
		Description:     "heading levels should increase one step at a time",
		MinLevel:        rules.LevelAAA,
	}
}

func (a11yHeadingOrder) Check(ctx *rules.Context) error {
	prev := 0
	var prevName string
	for _, el := range elements(ctx.Doc) {
		spec, ok := ast.LookupElement(el.Name)
		if !ok || !spec.HasFlag(ast.ElementFlagHeading) {
			continue
		}
		if prev > 0 && spec.Level > prev+1 {
			ctx.Report(el.NameSpan,
				fmt.Sprintf("heading level skips from %s to h%d", prevName, spec.Level)).Emit()
		}
		prev = spec.Level
		prevName = fmt.Sprintf("h%d", spec.Level)
	}
	return nil
}
