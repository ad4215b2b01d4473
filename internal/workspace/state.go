package workspace

import (
	"slices"

	"orlint/internal/analyzer"
	"orlint/internal/diag"
	"orlint/internal/source"
)

// State of one open file.
//
//	Unanalyzed -> Parsing -> Analyzing -> Ready
//	Ready -(edit)-> Stale -> Parsing -> ...
//
// Degraded replaces Ready when a cycle failed; the last Ready result stays
// available.
type State uint8

const (
	Unanalyzed State = iota
	Parsing
	Analyzing
	Ready
	Stale
	Degraded
)

func (s State) String() string {
	switch s {
	case Unanalyzed:
		return "unanalyzed"
	case Parsing:
		return "parsing"
	case Analyzing:
		return "analyzing"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	case Degraded:
		return "degraded"
	}
	return "unknown"
}

// Snapshot is what an editor sees for one file.
type Snapshot struct {
	Path  string
	State State
	// Version is the caller's version of the text the result was computed
	// for; CurrentVersion is the latest text.
	Version        int
	CurrentVersion int
	// Result is the last complete analysis; nil before the first one.
	Result *analyzer.Result
	// File is the text Result was computed on, for mapping spans.
	File *source.File
	// Err is the failure that put the file into Degraded.
	Err error
}

// Stale reports whether Result lags behind the current text.
func (s Snapshot) Stale() bool {
	return s.Result == nil || s.Version != s.CurrentVersion
}

// Diagnostics returns the diagnostics of Result, or nil.
func (s Snapshot) Diagnostics() []diag.Diagnostic {
	if s.Result == nil {
		return nil
	}
	return s.Result.Diagnostics
}

// Event is pushed to subscribers when a file reaches Ready with a different
// diagnostic set than it had before.
type Event struct {
	Path     string
	Snapshot Snapshot
}

// sameDiagnostics compares by identity key and severity; spans are part of
// the key.
func sameDiagnostics(a, b []diag.Diagnostic) bool {
	return slices.EqualFunc(a, b, func(x, y diag.Diagnostic) bool {
		return x.Severity == y.Severity && x.Key() == y.Key()
	})
}
