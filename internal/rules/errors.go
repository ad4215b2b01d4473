package rules

import (
	"fmt"

	"orlint/internal/diag"
)

// DuplicateRuleError is returned by Register when the id is already taken.
type DuplicateRuleError struct {
	ID       diag.Code
	Existing Origin
	Incoming Origin
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule %q is already registered (%s); refusing %s registration", e.ID, e.Existing, e.Incoming)
}

// RuleExecutionError wraps a failure (error or recovered panic) of one rule.
type RuleExecutionError struct {
	Rule  diag.Code
	Err   error
	Panic bool
}

func (e *RuleExecutionError) Error() string {
	if e.Panic {
		return fmt.Sprintf("rule %s panicked: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %s failed: %v", e.Rule, e.Err)
}

func (e *RuleExecutionError) Unwrap() error { return e.Err }
