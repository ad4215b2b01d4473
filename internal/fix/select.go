package fix

import (
	"fmt"

	"orlint/internal/diag"
)

// SelectMode determines which diagnostics contribute fixes.
type SelectMode uint8

const (
	// SelectAll takes the preferred fix of every diagnostic.
	SelectAll SelectMode = iota
	// SelectRule takes fixes of diagnostics produced by one rule.
	SelectRule
	// SelectKey takes the fix of one diagnostic addressed by Diagnostic.Key.
	SelectKey
	// SelectID takes the single fix with the given id.
	SelectID
)

// SelectOptions configures Select.
type SelectOptions struct {
	Mode  SelectMode
	Rule  diag.Code
	Key   string
	FixID string
	// AllowUnsafe admits fixes whose applicability is not AlwaysSafe in
	// SelectAll and SelectRule modes.
	AllowUnsafe bool
}

// Select picks at most one fix per diagnostic according to opts. Fixes without
// an id get a synthetic one derived from the rule and span. Diagnostics that
// carry a fix which is filtered out are reported as skipped.
func Select(diagnostics []diag.Diagnostic, opts SelectOptions) ([]Candidate, []SkippedFix) {
	cands := make([]Candidate, 0)
	skips := make([]SkippedFix, 0)
	seen := make(map[string]struct{})

	for _, d := range diagnostics {
		if len(d.Fixes) == 0 {
			continue
		}
		d = WithFixIDs(d)

		switch opts.Mode {
		case SelectRule:
			if d.Code != opts.Rule {
				continue
			}
		case SelectKey:
			if d.Key() != opts.Key {
				continue
			}
		}

		wanted := ""
		if opts.Mode == SelectID || (opts.Mode == SelectKey && opts.FixID != "") {
			wanted = opts.FixID
		}
		f, ok := d.FixByID(wanted)
		if !ok {
			continue
		}
		if _, dup := seen[f.ID]; dup {
			skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Code: d.Code, Reason: "duplicate fix id"})
			continue
		}
		seen[f.ID] = struct{}{}

		explicit := opts.Mode == SelectID || opts.Mode == SelectKey
		if !explicit && !opts.AllowUnsafe && f.Applicability != diag.FixApplicabilityAlwaysSafe {
			skips = append(skips, SkippedFix{
				ID:     f.ID,
				Title:  f.Title,
				Code:   d.Code,
				Reason: fmt.Sprintf("applicability is %s", f.Applicability.String()),
			})
			continue
		}
		cands = append(cands, Candidate{Diag: d, Fix: f})
	}
	return cands, skips
}

// WithFixIDs returns d with empty fix ids filled as "<rule>-<start>-<end>-<index>",
// the ids Select and editors address fixes by.
func WithFixIDs(d diag.Diagnostic) diag.Diagnostic {
	missing := false
	for _, f := range d.Fixes {
		if f.ID == "" {
			missing = true
			break
		}
	}
	if !missing {
		return d
	}
	fixes := make([]diag.Fix, len(d.Fixes))
	copy(fixes, d.Fixes)
	for i := range fixes {
		if fixes[i].ID == "" {
			fixes[i].ID = fmt.Sprintf("%s-%d-%d-%d", d.Code.ID(), d.Primary.Start, d.Primary.End, i)
		}
	}
	d.Fixes = fixes
	return d
}
