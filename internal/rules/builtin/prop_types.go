package builtin

import (
	"fmt"

	"orlint/internal/ast"
	"orlint/internal/diag"
	"orlint/internal/rules"
)

// Components every Orbit project gets; configuration entries with the same
// name replace them.
var builtinComponents = map[string]rules.ComponentSpec{
	"Link":  {Required: []string{"to"}},
	"Image": {Required: []string{"src", "alt"}},
	"Icon":  {Required: []string{"name"}},
	"Field": {Required: []string{"label"}},
}

// ComponentSpec resolves a component against settings, then the built-ins.
func ComponentSpec(settings rules.Settings, name string) (rules.ComponentSpec, bool) {
	if spec, ok := settings.Component(name); ok {
		return spec, true
	}
	spec, ok := builtinComponents[name]
	return spec, ok
}

type propTypeRequired struct{}

func (propTypeRequired) Meta() rules.Meta {
	return rules.Meta{
		ID:              "prop-type-required",
		Category:        rules.CategoryBestPractice,
		DefaultSeverity: diag.SevError,
		Description:     "component usages must pass every required prop",
	}
}

func (propTypeRequired) Check(ctx *rules.Context) error {
	for id, el := range elements(ctx.Doc) {
		if !ast.IsComponentName(el.Name) {
			continue
		}
		spec, ok := ComponentSpec(ctx.Settings, el.Name)
		if !ok {
			continue
		}
		for _, prop := range spec.Required {
			if ctx.Doc.HasAttr(id, prop) {
				continue
			}
			ctx.Report(el.NameSpan, fmt.Sprintf("<%s> is missing required prop %q", el.Name, prop)).Emit()
		}
	}
	return nil
}
