package builtin

import (
	"fmt"
	"strings"

	"orlint/internal/ast"
	"orlint/internal/diag"
	"orlint/internal/rules"
)

// Оценка стоимости рендера в микросекундах. Грубая модель: важен порядок
// величины, а не точность.
const (
	costElement       = 50
	costReferenceAttr = 20
	costBinding       = 30
	costInterpolation = 20
	// loopFactor — предполагаемое число итераций для элемента с each.
	loopFactor = 10
)

type perfRenderBudget struct{}

func (perfRenderBudget) Meta() rules.Meta {
	return rules.Meta{
		ID:              "perf-render-budget",
		Category:        rules.CategoryPerformance,
		DefaultSeverity: diag.SevWarning,
		Description:     "estimated render cost must stay under performance.rendering_threshold_ms",
	}
}

func (perfRenderBudget) Check(ctx *rules.Context) error {
	threshold := ctx.Settings.RenderingThresholdMS
	if threshold <= 0 {
		return nil
	}
	doc := ctx.Doc
	total := 0
	heaviest, heaviestCost := ast.NoNodeID, 0
	for _, root := range doc.Roots {
		if ctx.Cancelled() {
			return ctx.Ctx.Err()
		}
		cost := RenderCost(doc, root)
		total += cost
		if cost > heaviestCost {
			heaviest, heaviestCost = root, cost
		}
	}
	if total <= threshold*1000 {
		return nil
	}
	primary := doc.FileStartSpan()
	if el := doc.Element(heaviest); el != nil {
		primary = el.StartTag
	}
	b := ctx.Report(primary, fmt.Sprintf("estimated render cost %.2fms exceeds the %dms budget",
		float64(total)/1000, threshold))
	if loop := heaviestLoop(doc); loop.IsValid() {
		b.WithNote(doc.Element(loop).StartTag, "list rendering here dominates the estimate")
	}
	b.Emit()
	return nil
}

// RenderCost estimates the render cost of a subtree in microseconds.
func RenderCost(doc *ast.Document, id ast.NodeID) int {
	n := doc.Node(id)
	if n == nil {
		return 0
	}
	switch n.Kind {
	case ast.NodeTextContent:
		if t := doc.Text(id); t != nil && !t.Raw {
			return costInterpolation * len(t.Interpolations)
		}
		return 0
	case ast.NodeElement:
	default:
		return 0
	}
	el := doc.Element(id)
	cost := costElement
	for _, a := range el.Attrs {
		an := doc.Node(a)
		switch {
		case an.Kind == ast.NodeEventBinding:
			cost += costBinding
		case doc.Attribute(a).Value.Kind == ast.ValueReference:
			cost += costReferenceAttr
		}
	}
	for _, c := range el.Children {
		cost += RenderCost(doc, c)
	}
	if doc.HasAttr(id, "each") {
		cost *= loopFactor
	}
	return cost
}

func heaviestLoop(doc *ast.Document) ast.NodeID {
	best, bestCost := ast.NoNodeID, 0
	for id := range elements(doc) {
		if !doc.HasAttr(id, "each") {
			continue
		}
		if c := RenderCost(doc, id); c > bestCost {
			best, bestCost = id, c
		}
	}
	return best
}

type perfInlineHandler struct{}

func (perfInlineHandler) Meta() rules.Meta {
	return rules.Meta{
		ID:              "perf-inline-handler",
		Category:        rules.CategoryPerformance,
		DefaultSeverity: diag.SevInfo,
		Description:     "inline function handlers are recreated on every render",
	}
}

func (perfInlineHandler) Check(ctx *rules.Context) error {
	for id := range ctx.Doc.OfKind(ast.NodeEventBinding) {
		a := ctx.Doc.Attribute(id)
		if a.Value.Kind != ast.ValueReference || !isInlineFunction(a.Value.Text) {
			continue
		}
		ctx.Report(a.Value.Span,
			fmt.Sprintf("inline handler for %q is recreated on every render; move it to a named function", a.Event)).Emit()
	}
	return nil
}

func isInlineFunction(expr string) bool {
	expr = strings.TrimSpace(expr)
	return strings.Contains(expr, "=>") || strings.HasPrefix(expr, "function")
}
