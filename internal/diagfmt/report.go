package diagfmt

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"orlint/internal/diag"
	"orlint/internal/source"
)

// SchemaVersion is bumped whenever a field of Report changes meaning or is
// removed. Adding fields does not bump it.
const SchemaVersion = 1

// Report is the structured output consumed by CI tooling.
type Report struct {
	SchemaVersion int      `json:"schema_version"`
	Tool          string   `json:"tool"`
	ToolVersion   string   `json:"tool_version,omitempty"`
	Records       []Record `json:"records"`
	Summary       Summary  `json:"summary"`
	// Truncated counts records dropped by ReportOpts.Max.
	Truncated int `json:"truncated,omitempty"`
}

// Record is one diagnostic. Lines and columns are 1-based; columns count
// Unicode code points.
type Record struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Location
	Suggestions []string     `json:"suggestions"`
	Notes       []NoteRecord `json:"notes,omitempty"`
	Fixes       []FixRecord  `json:"fixes,omitempty"`
	// Key addresses the diagnostic in editor requests.
	Key string `json:"key"`

	span source.Span
}

type NoteRecord struct {
	Message string `json:"message"`
	Location
}

// Location is a resolved span.
type Location struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
}

type FixRecord struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Applicability string       `json:"applicability"`
	Preferred     bool         `json:"preferred,omitempty"`
	Edits         []EditRecord `json:"edits"`
}

type EditRecord struct {
	Location
	NewText     string   `json:"new_text"`
	OldText     string   `json:"old_text,omitempty"`
	BeforeLines []string `json:"before_lines,omitempty"`
	AfterLines  []string `json:"after_lines,omitempty"`
}

// Summary counts records by severity.
type Summary struct {
	Files    int `json:"files"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
	Hints    int `json:"hints"`
}

// HasErrors reports whether any Error-severity diagnostic was counted.
func (s Summary) HasErrors() bool { return s.Errors > 0 }

// Total is the number of diagnostics counted.
func (s Summary) Total() int { return s.Errors + s.Warnings + s.Infos + s.Hints }

// Level parses Severity; unknown labels read as Hint.
func (r Record) Level() diag.Severity {
	sev, _ := diag.ParseSeverity(r.Severity)
	return sev
}

// BuildReport resolves diagnostics against fs into records ordered by file
// path, position, rule id and message. The order does not depend on the order
// files were added to fs. Diagnostics whose span does not resolve are kept
// with zero positions. The summary counts every diagnostic, including those
// dropped by opts.Max.
func BuildReport(diags []diag.Diagnostic, fs *source.FileSet, opts ReportOpts) Report {
	rep := Report{
		SchemaVersion: SchemaVersion,
		Tool:          "orlint",
		ToolVersion:   opts.ToolVersion,
		Records:       make([]Record, 0, len(diags)),
	}
	counts := diag.CountBySeverity(diags)
	rep.Summary = Summary{
		Files:    opts.FilesAnalyzed,
		Errors:   counts[diag.SevError],
		Warnings: counts[diag.SevWarning],
		Infos:    counts[diag.SevInfo],
		Hints:    counts[diag.SevHint],
	}

	for _, d := range diags {
		rec := Record{
			RuleID:      d.Code.ID(),
			Severity:    d.Severity.Label(),
			Message:     d.Message,
			Location:    resolveLocation(fs, d.Primary, opts.PathMode),
			Suggestions: make([]string, 0, len(d.Fixes)),
			Key:         d.Key(),
			span:        d.Primary,
		}
		for _, n := range d.Notes {
			rec.Notes = append(rec.Notes, NoteRecord{Message: n.Msg, Location: resolveLocation(fs, n.Span, opts.PathMode)})
		}
		for _, f := range d.Fixes {
			rec.Suggestions = append(rec.Suggestions, f.Title)
			if opts.IncludeFixes {
				rec.Fixes = append(rec.Fixes, fixRecord(fs, f, opts))
			}
		}
		rep.Records = append(rep.Records, rec)
	}

	slices.SortStableFunc(rep.Records, compareRecords)
	files := make(map[string]struct{})
	for _, r := range rep.Records {
		files[r.File] = struct{}{}
	}
	rep.Summary.Files = max(rep.Summary.Files, len(files))
	if opts.Max > 0 && len(rep.Records) > opts.Max {
		rep.Truncated = len(rep.Records) - opts.Max
		rep.Records = rep.Records[:opts.Max]
	}
	return rep
}

func compareRecords(a, b Record) int {
	return cmp.Or(
		cmp.Compare(a.File, b.File),
		cmp.Compare(a.span.Start, b.span.Start),
		cmp.Compare(a.RuleID, b.RuleID),
		cmp.Compare(a.span.End, b.span.End),
		cmp.Compare(a.Message, b.Message),
		cmp.Compare(b.Level(), a.Level()),
	)
}

func fixRecord(fs *source.FileSet, f diag.Fix, opts ReportOpts) FixRecord {
	out := FixRecord{
		ID:            f.ID,
		Title:         f.Title,
		Applicability: f.Applicability.String(),
		Preferred:     f.IsPreferred,
		Edits:         make([]EditRecord, 0, len(f.Edits)),
	}
	for _, e := range f.Edits {
		er := EditRecord{
			Location: resolveLocation(fs, e.Span, opts.PathMode),
			NewText:  e.NewText,
			OldText:  e.OldText,
		}
		if opts.IncludePreviews {
			if p, err := buildFixEditPreview(fs, e); err == nil {
				er.BeforeLines = p.before
				er.AfterLines = p.after
			}
		}
		out.Edits = append(out.Edits, er)
	}
	return out
}

// fileOf returns the file of span, or nil when fs does not know it.
func fileOf(fs *source.FileSet, span source.Span) *source.File {
	if fs == nil || int(span.File) >= fs.Len() {
		return nil
	}
	return fs.Get(span.File)
}

func displayPath(fs *source.FileSet, f *source.File, mode PathMode) string {
	if mode == PathModeRelative {
		return f.FormatPath("relative", fs.BaseDir())
	}
	return f.FormatPath(mode.name(), "")
}

func resolveLocation(fs *source.FileSet, span source.Span, mode PathMode) Location {
	f := fileOf(fs, span)
	if f == nil {
		return Location{}
	}
	loc := Location{File: displayPath(fs, f, mode)}
	if !span.Within(len(f.Content)) {
		return loc
	}
	loc.StartLine, loc.StartColumn = position(f, span.Start)
	loc.EndLine, loc.EndColumn = position(f, span.End)
	return loc
}

// position returns the 1-based line and code-point column of off.
func position(f *source.File, off uint32) (line, col int) {
	lc := f.LineCol(off)
	lineStart := off - (lc.Col - 1)
	return int(lc.Line), utf8.RuneCount(f.Content[lineStart:off]) + 1
}
