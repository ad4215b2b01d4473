package builtin

import (
	"fmt"

	"orlint/internal/diag"
	"orlint/internal/rules"
)

type loopKey struct{}

func (loopKey) Meta() rules.Meta {
	return rules.Meta{
		ID:              "best-practice-loop-key",
		Category:        rules.CategoryBestPractice,
		DefaultSeverity: diag.SevWarning,
		Description:     "elements rendered with each={...} need a key",
	}
}

func (loopKey) Check(ctx *rules.Context) error {
	for id, el := range elements(ctx.Doc) {
		eachID, each := ctx.Doc.Attr(id, "each")
		if each == nil || ctx.Doc.HasAttr(id, "key") {
			continue
		}
		ctx.Report(ctx.Doc.Node(eachID).Span,
			fmt.Sprintf("<%s> is rendered in a loop without a key attribute", el.Name)).Emit()
	}
	return nil
}
