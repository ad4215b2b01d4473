package ast

import (
	"slices"
	"strings"
)

// ElementFlag captures how the parser and rules treat a known HTML element.
type ElementFlag uint8

const (
	ElementFlagNone ElementFlag = 0

	// ElementFlagVoid marks elements that never have content (<img>, <br>).
	ElementFlagVoid ElementFlag = 1 << iota
	// ElementFlagRawText marks elements whose body is not markup (<style>, <script>).
	ElementFlagRawText
	// ElementFlagInteractive marks natively focusable/keyboard-operable elements.
	ElementFlagInteractive
	// ElementFlagHeading marks h1..h6.
	ElementFlagHeading
)

// ElementSpec describes a built-in HTML element.
type ElementSpec struct {
	Name  string
	Flags ElementFlag
	Level int // для заголовков
}

// HasFlag reports whether the spec contains the given flag.
func (spec ElementSpec) HasFlag(flag ElementFlag) bool {
	return spec.Flags&flag != 0
}

var elementRegistry = map[string]ElementSpec{
	"area":     {Name: "area", Flags: ElementFlagVoid},
	"br":       {Name: "br", Flags: ElementFlagVoid},
	"col":      {Name: "col", Flags: ElementFlagVoid},
	"embed":    {Name: "embed", Flags: ElementFlagVoid},
	"hr":       {Name: "hr", Flags: ElementFlagVoid},
	"img":      {Name: "img", Flags: ElementFlagVoid},
	"input":    {Name: "input", Flags: ElementFlagVoid | ElementFlagInteractive},
	"link":     {Name: "link", Flags: ElementFlagVoid},
	"meta":     {Name: "meta", Flags: ElementFlagVoid},
	"source":   {Name: "source", Flags: ElementFlagVoid},
	"track":    {Name: "track", Flags: ElementFlagVoid},
	"wbr":      {Name: "wbr", Flags: ElementFlagVoid},
	"style":    {Name: "style", Flags: ElementFlagRawText},
	"script":   {Name: "script", Flags: ElementFlagRawText},
	"a":        {Name: "a", Flags: ElementFlagInteractive},
	"button":   {Name: "button", Flags: ElementFlagInteractive},
	"select":   {Name: "select", Flags: ElementFlagInteractive},
	"textarea": {Name: "textarea", Flags: ElementFlagInteractive},
	"summary":  {Name: "summary", Flags: ElementFlagInteractive},
	"h1":       {Name: "h1", Flags: ElementFlagHeading, Level: 1},
	"h2":       {Name: "h2", Flags: ElementFlagHeading, Level: 2},
	"h3":       {Name: "h3", Flags: ElementFlagHeading, Level: 3},
	"h4":       {Name: "h4", Flags: ElementFlagHeading, Level: 4},
	"h5":       {Name: "h5", Flags: ElementFlagHeading, Level: 5},
	"h6":       {Name: "h6", Flags: ElementFlagHeading, Level: 6},
}

// LookupElement returns metadata for an HTML element name (case-insensitive).
// Component names (capitalised, e.g. <Button>) are never in the catalog.
func LookupElement(name string) (ElementSpec, bool) {
	if name == "" || IsComponentName(name) {
		return ElementSpec{}, false
	}
	spec, ok := elementRegistry[strings.ToLower(name)]
	return spec, ok
}

// IsComponentName reports whether the tag refers to a component rather than
// an HTML element: components start with an upper-case ASCII letter.
func IsComponentName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// ElementSpecs returns all built-in element specs sorted by name.
func ElementSpecs() []ElementSpec {
	names := make([]string, 0, len(elementRegistry))
	for name := range elementRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	result := make([]ElementSpec, 0, len(names))
	for _, name := range names {
		result = append(result, elementRegistry[name])
	}
	return result
}
