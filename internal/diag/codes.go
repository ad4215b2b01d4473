package diag

// Code identifies the rule (or engine facility) that produced a diagnostic.
// Rule codes are kebab-case ids such as "a11y-img-alt".
type Code string

// Codes reserved for diagnostics produced by the engine itself.
const (
	UnknownCode        Code = "unknown"
	ParseError         Code = "parse-error"
	ConfigError        Code = "config-error"
	UnknownRule        Code = "unknown-rule"
	RuleExecutionError Code = "rule-execution-error"
	FixConflict        Code = "fix-conflict"
	StaleFix           Code = "stale-fix"
	IOError            Code = "io-error"
)

var engineTitles = map[Code]string{
	ParseError:         "source could not be parsed",
	ConfigError:        "configuration file is invalid",
	UnknownRule:        "configuration references an unknown rule",
	RuleExecutionError: "rule failed while running",
	FixConflict:        "fix overlaps an earlier fix",
	StaleFix:           "fix does not match current source",
	IOError:            "file could not be read",
}

// ID returns the stable string form.
func (c Code) ID() string {
	if c == "" {
		return string(UnknownCode)
	}
	return string(c)
}

// Title returns a short description for engine codes, or the id itself.
func (c Code) Title() string {
	if t, ok := engineTitles[c]; ok {
		return t
	}
	return c.ID()
}

// IsEngine reports whether the code belongs to the engine rather than a rule.
func (c Code) IsEngine() bool {
	_, ok := engineTitles[c]
	return ok
}

func (c Code) String() string {
	return c.ID()
}
