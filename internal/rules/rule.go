package rules

import (
	"fmt"
	"strings"

	"orlint/internal/diag"
)

// Category groups rules for configuration and listings.
type Category uint8

const (
	CategorySyntax Category = iota
	CategoryAccessibility
	CategoryPerformance
	CategoryStyle
	CategoryBestPractice
)

var categoryNames = [...]string{
	CategorySyntax:        "syntax",
	CategoryAccessibility: "accessibility",
	CategoryPerformance:   "performance",
	CategoryStyle:         "style",
	CategoryBestPractice:  "best-practice",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", c)
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{CategorySyntax, CategoryAccessibility, CategoryPerformance, CategoryStyle, CategoryBestPractice}
}

// ParseCategory accepts the String form, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rule category %q", s)
}

// Level is the accessibility conformance level: None < A < AA < AAA.
type Level uint8

const (
	LevelNone Level = iota
	LevelA
	LevelAA
	LevelAAA
)

func (l Level) String() string {
	switch l {
	case LevelA:
		return "A"
	case LevelAA:
		return "AA"
	case LevelAAA:
		return "AAA"
	}
	return "none"
}

// ParseLevel accepts none, A, AA and AAA in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return LevelNone, nil
	case "A":
		return LevelA, nil
	case "AA":
		return LevelAA, nil
	case "AAA":
		return LevelAAA, nil
	}
	return LevelNone, fmt.Errorf("unknown accessibility level %q (want none, A, AA or AAA)", s)
}

// Origin tells where a registered rule came from.
type Origin uint8

const (
	OriginBuiltin Origin = iota
	OriginCustom
)

func (o Origin) String() string {
	if o == OriginCustom {
		return "custom"
	}
	return "builtin"
}

// Meta describes a rule.
type Meta struct {
	ID              diag.Code
	Category        Category
	DefaultSeverity diag.Severity
	Fixable         bool
	Description     string
	// MinLevel is the accessibility level at which the rule starts to run.
	// Zero for rules outside the accessibility category.
	MinLevel Level
}

// Rule is one analysis. Implementations must be safe for concurrent use:
// Check may run on many files at once.
type Rule interface {
	Meta() Meta
	// Check reports findings through ctx. A returned error or a panic is
	// turned into a rule-execution-error diagnostic by the analyzer.
	Check(ctx *Context) error
}

// Func adapts a plain function into a Rule.
type Func struct {
	M  Meta
	Fn func(ctx *Context) error
}

func (f Func) Meta() Meta               { return f.M }
func (f Func) Check(ctx *Context) error { return f.Fn(ctx) }
