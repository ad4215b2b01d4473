package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
// Values are ordered: Hint < Info < Warning < Error.
type Severity uint8

const (
	// SevHint marks stylistic suggestions.
	SevHint Severity = iota
	// SevInfo is for informational diagnostics.
	SevInfo
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevHint:
		return "HINT"
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Label returns the lower-case form used in reports and config files.
func (s Severity) Label() string {
	return strings.ToLower(s.String())
}

// ParseSeverity accepts "error", "warning"/"warn", "info" and "hint" in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SevError, nil
	case "warning", "warn":
		return SevWarning, nil
	case "info":
		return SevInfo, nil
	case "hint":
		return SevHint, nil
	}
	return SevHint, fmt.Errorf("unknown severity %q", s)
}
