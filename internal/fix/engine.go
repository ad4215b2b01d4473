package fix

import (
	"bytes"
	"cmp"
	"errors"
	"slices"

	"orlint/internal/diag"
	"orlint/internal/source"
)

// Candidate is one fix together with the diagnostic that offered it.
type Candidate struct {
	Diag diag.Diagnostic
	Fix  diag.Fix
}

// Rule returns the id of the rule that produced the candidate.
func (c Candidate) Rule() diag.Code { return c.Diag.Code }

// start/end — границы всех правок фикса.
func (c Candidate) start() uint32 {
	if len(c.Fix.Edits) == 0 {
		return c.Diag.Primary.Start
	}
	s := c.Fix.Edits[0].Span.Start
	for _, e := range c.Fix.Edits[1:] {
		s = min(s, e.Span.Start)
	}
	return s
}

func (c Candidate) end() uint32 {
	if len(c.Fix.Edits) == 0 {
		return c.Diag.Primary.End
	}
	e := c.Fix.Edits[0].Span.End
	for _, ed := range c.Fix.Edits[1:] {
		e = max(e, ed.Span.End)
	}
	return e
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Code          diag.Code
	Message       string
	Applicability diag.FixApplicability
	DiagKey       string
	EditCount     int
}

// SkippedFix captures a skipped fix with a reason. Err is a *FixConflictError
// for conflicts.
type SkippedFix struct {
	ID     string
	Title  string
	Code   diag.Code
	Reason string
	Err    error
}

// Result is the outcome of Apply for one document.
type Result struct {
	Content []byte
	Applied []AppliedFix
	Skipped []SkippedFix
	// EditCount is the number of text edits in Content relative to the input.
	EditCount int
}

// Changed reports whether any fix was applied.
func (r *Result) Changed() bool { return r != nil && len(r.Applied) > 0 }

// Apply applies a non-conflicting subset of fixes to content in one pass.
//
// Candidates are ordered by (start, rule id, end, fix id). A fix that overlaps
// any previously accepted fix is skipped with a *FixConflictError. If an
// accepted edit is out of range or its OldText no longer matches, nothing is
// applied and a *StaleFixError is returned. ErrNoFixes is returned together
// with a result when no candidate was accepted.
func Apply(content []byte, candidates []Candidate) (*Result, error) {
	result := &Result{
		Content: content,
		Applied: make([]AppliedFix, 0),
		Skipped: make([]SkippedFix, 0),
	}
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}

	ordered := append([]Candidate(nil), candidates...)
	SortCandidates(ordered)

	accepted := make([]Candidate, 0, len(ordered))
	var acceptedEdits []ownedEdit
	for _, cand := range ordered {
		if len(cand.Fix.Edits) == 0 {
			result.Skipped = append(result.Skipped, SkippedFix{
				ID:     cand.Fix.ID,
				Title:  cand.Fix.Title,
				Code:   cand.Rule(),
				Reason: "fix has no edits",
			})
			continue
		}
		if err := selfConflict(cand); err != nil {
			result.Skipped = append(result.Skipped, skipped(cand, err))
			continue
		}
		if other, ok := firstConflict(accepted, acceptedEdits, cand.Fix.Edits); ok {
			err := &FixConflictError{
				FixID:    cand.Fix.ID,
				Rule:     cand.Rule(),
				Span:     source.Span{File: cand.Diag.Primary.File, Start: cand.start(), End: cand.end()},
				WithID:   other.Fix.ID,
				WithRule: other.Rule(),
			}
			result.Skipped = append(result.Skipped, skipped(cand, err))
			continue
		}
		accepted = append(accepted, cand)
		for _, e := range cand.Fix.Edits {
			acceptedEdits = append(acceptedEdits, ownedEdit{edit: e, owner: len(accepted) - 1})
		}
	}
	if len(accepted) == 0 {
		return result, ErrNoFixes
	}

	// проверяем все правки до того, как что-либо применить
	for _, oe := range acceptedEdits {
		if err := checkEdit(content, oe.edit, accepted[oe.owner]); err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(acceptedEdits, func(a, b ownedEdit) int {
		if c := cmp.Compare(a.edit.Span.Start, b.edit.Span.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.edit.Span.End, b.edit.Span.End)
	})

	var out bytes.Buffer
	out.Grow(len(content))
	var pos uint32
	for _, oe := range acceptedEdits {
		out.Write(content[pos:oe.edit.Span.Start])
		out.WriteString(oe.edit.NewText)
		pos = oe.edit.Span.End
	}
	out.Write(content[pos:])

	result.Content = out.Bytes()
	result.EditCount = len(acceptedEdits)
	for _, cand := range accepted {
		result.Applied = append(result.Applied, AppliedFix{
			ID:            cand.Fix.ID,
			Title:         cand.Fix.Title,
			Code:          cand.Rule(),
			Message:       cand.Diag.Message,
			Applicability: cand.Fix.Applicability,
			DiagKey:       cand.Diag.Key(),
			EditCount:     len(cand.Fix.Edits),
		})
	}
	return result, nil
}

// SortCandidates orders candidates by span start, rule id, span end and fix id.
func SortCandidates(candidates []Candidate) {
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		if c := cmp.Compare(a.start(), b.start()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Rule(), b.Rule()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.end(), b.end()); c != 0 {
			return c
		}
		return cmp.Compare(a.Fix.ID, b.Fix.ID)
	})
}

// IsConflict reports whether err is a *FixConflictError.
func IsConflict(err error) bool {
	var conflict *FixConflictError
	return errors.As(err, &conflict)
}

type ownedEdit struct {
	edit  diag.TextEdit
	owner int
}

func skipped(cand Candidate, err error) SkippedFix {
	return SkippedFix{
		ID:     cand.Fix.ID,
		Title:  cand.Fix.Title,
		Code:   cand.Rule(),
		Reason: err.Error(),
		Err:    err,
	}
}

func selfConflict(cand Candidate) error {
	edits := cand.Fix.Edits
	for i := range edits {
		for j := i + 1; j < len(edits); j++ {
			if spansConflict(edits[i], edits[j]) || sameInsertionPoint(edits[i], edits[j]) {
				return &FixConflictError{
					FixID:    cand.Fix.ID,
					Rule:     cand.Rule(),
					Span:     edits[j].Span,
					WithID:   cand.Fix.ID,
					WithRule: cand.Rule(),
				}
			}
		}
	}
	return nil
}

// firstConflict returns the owner of the first accepted edit overlapping any of edits.
func firstConflict(accepted []Candidate, owned []ownedEdit, edits []diag.TextEdit) (Candidate, bool) {
	for _, prev := range owned {
		for _, e := range edits {
			if spansConflict(prev.edit, e) {
				return accepted[prev.owner], true
			}
		}
	}
	return Candidate{}, false
}

func checkEdit(content []byte, e diag.TextEdit, owner Candidate) error {
	size := len(content)
	if !e.Span.Within(size) {
		return &StaleFixError{FixID: owner.Fix.ID, Rule: owner.Rule(), Span: e.Span, Expected: e.OldText, Size: size}
	}
	if e.OldText == "" {
		return nil
	}
	actual := string(content[e.Span.Start:e.Span.End])
	if actual != e.OldText {
		return &StaleFixError{
			FixID:    owner.Fix.ID,
			Rule:     owner.Rule(),
			Span:     e.Span,
			Expected: e.OldText,
			Actual:   actual,
			Size:     size,
		}
	}
	return nil
}

// spansConflict reports whether two text edits' spans overlap.
// Spans are treated as half-open intervals [Start, End). Two zero-length edits
// (Start == End) never conflict. A zero-length edit conflicts with a non-zero
// span if its position is within that span (Start <= pos < End). For two
// non-zero spans, any overlap yields a conflict.
func spansConflict(a, b diag.TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

// sameInsertionPoint — две вставки в одну позицию внутри одного фикса неоднозначны.
func sameInsertionPoint(a, b diag.TextEdit) bool {
	return a.Span.Empty() && b.Span.Empty() && a.Span.Start == b.Span.Start
}
