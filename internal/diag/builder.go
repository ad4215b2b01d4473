package diag

import "orlint/internal/source"

// NewWarning builds a warning-level diagnostic.
func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

// NewInfo builds an info-level diagnostic.
func NewInfo(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevInfo, code, primary, msg)
}
