// Package diag defines the diagnostic model shared by the parser, the rule
// engine, the fix engine and every report writer.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Hint < Info < Warning < Error (severity.go).
//   - Code – the id of the rule that produced it, or one of the engine codes
//     such as "parse-error" and "rule-execution-error" (codes.go).
//   - Message – short and actionable.
//   - Primary span – source.Span the finding points at.
//   - Notes – optional secondary spans.
//   - Fixes – optional Fix records.
//
// Diagnostics are values. Once reported they are not mutated; the engine
// sorts copies and hands them to consumers.
//
// # Fix suggestions
//
// A Fix is an ordered list of TextEdit values that is applied atomically by
// internal/fix. TextEdit.OldText is the text the producer saw under the span;
// the fix engine refuses to apply an edit whose guard no longer matches.
//
// # Emitting diagnostics
//
// Producers go through a Reporter. ReportBuilder offers a fluent API
// (ReportError(...).WithNote(...).WithFixSuggestion(...).Emit()), BagReporter
// stores into a Bag and DedupReporter drops repeated reports.
//
// Bag.Sort and SortDiagnostics order by (span start, code, span end, message);
// that order is what every public API returns.
package diag
