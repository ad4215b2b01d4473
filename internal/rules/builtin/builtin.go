// Package builtin holds the rules shipped with orlint. Importing the package
// adds them to rules.Default.
package builtin

import (
	"iter"
	"strings"

	"orlint/internal/ast"
	"orlint/internal/rules"
)

func init() {
	rules.AddDefault("builtin", Register)
}

// All returns a fresh slice with every built-in rule.
func All() []rules.Rule {
	return []rules.Rule{
		propTypeRequired{},
		noDuplicateAttributes{},
		a11yImgAlt{},
		a11yButtonName{},
		a11yClickKeyboard{},
		a11yHeadingOrder{},
		perfRenderBudget{},
		perfInlineHandler{},
		styleEmptyBlock{},
		styleQuoteAttributes{},
		loopKey{},
	}
}

// Register installs the built-in rules.
func Register(reg *rules.Registry) error {
	for _, r := range All() {
		if err := reg.Register(r, rules.OriginBuiltin); err != nil {
			return err
		}
	}
	return nil
}

// elements yields Element nodes (not style blocks) in document order.
func elements(doc *ast.Document) iter.Seq2[ast.NodeID, *ast.Element] {
	return func(yield func(ast.NodeID, *ast.Element) bool) {
		for id := range doc.OfKind(ast.NodeElement) {
			if !yield(id, doc.Element(id)) {
				return
			}
		}
	}
}

// isTag compares an HTML tag name; components never match.
func isTag(el *ast.Element, name string) bool {
	return !ast.IsComponentName(el.Name) && strings.EqualFold(el.Name, name)
}

// attrText returns the literal value of an attribute, "" for missing or
// boolean ones. References are returned as written.
func attrText(doc *ast.Document, elem ast.NodeID, name string) (string, bool) {
	_, a := doc.Attr(elem, name)
	if a == nil {
		return "", false
	}
	return a.Value.Text, true
}

func hasNonBlankAttr(doc *ast.Document, elem ast.NodeID, name string) bool {
	_, a := doc.Attr(elem, name)
	if a == nil {
		return false
	}
	if a.Value.Kind == ast.ValueReference {
		return true
	}
	return strings.TrimSpace(a.Value.Text) != ""
}

// hiddenFromAT reports aria-hidden="true" or a presentational role.
func hiddenFromAT(doc *ast.Document, elem ast.NodeID) bool {
	if v, ok := attrText(doc, elem, "aria-hidden"); ok && strings.EqualFold(v, "true") {
		return true
	}
	role, _ := attrText(doc, elem, "role")
	role = strings.ToLower(strings.TrimSpace(role))
	return role == "presentation" || role == "none"
}
