// Package analyzer runs the enabled rules of a registry over one parsed
// document. Rules run in parallel against the read-only tree; a rule that
// fails is isolated into a single rule-execution-error diagnostic.
package analyzer
