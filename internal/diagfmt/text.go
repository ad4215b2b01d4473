package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"orlint/internal/diag"
	"orlint/internal/source"
)

type palette struct {
	sev      map[diag.Severity]*color.Color
	gutter   *color.Color
	location *color.Color
	caret    map[diag.Severity]*color.Color
	help     *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
			diag.SevHint:    color.New(color.FgBlue, color.Bold),
		},
		caret: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed),
			diag.SevWarning: color.New(color.FgYellow),
			diag.SevInfo:    color.New(color.FgCyan),
			diag.SevHint:    color.New(color.FgBlue),
		},
		gutter:   color.New(color.FgBlue),
		location: color.New(color.Bold),
		help:     color.New(color.FgGreen),
	}
	all := []*color.Color{p.gutter, p.location, p.help}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range p.caret {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Text writes diagnostics for people: a header line per diagnostic, the
// source line with a caret underline, then notes and fix titles.
//
//	page.orbit:2:3: error[a11y-img-alt]: <img> needs an alt attribute
//	  |
//	2 |   <img src="logo.png">
//	  |   ^^^^^^^^^^^^^^^^^^^^
//
// Diagnostics are ordered like BuildReport orders records.
func Text(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts TextOpts) error {
	rep := BuildReport(diags, fs, ReportOpts{
		PathMode:        opts.PathMode,
		Max:             opts.Max,
		IncludeFixes:    opts.ShowPreview,
		IncludePreviews: opts.ShowPreview,
	})
	tw := &textWriter{w: w, fs: fs, opts: opts, pal: newPalette(opts.Color)}
	if tw.opts.TabWidth <= 0 {
		tw.opts.TabWidth = 4
	}
	for i := range rep.Records {
		if i > 0 {
			tw.printf("\n")
		}
		tw.record(&rep.Records[i])
	}
	if rep.Truncated > 0 {
		tw.printf("\n... %d more %s not shown\n", rep.Truncated, plural(rep.Truncated, "diagnostic", "diagnostics"))
	}
	return tw.err
}

type textWriter struct {
	w    io.Writer
	fs   *source.FileSet
	opts TextOpts
	pal  palette
	err  error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func (tw *textWriter) record(r *Record) {
	sev := r.Level()
	loc := r.File
	if r.StartLine > 0 {
		loc = fmt.Sprintf("%s:%d:%d", r.File, r.StartLine, r.StartColumn)
	}
	tw.printf("%s: %s: %s\n",
		tw.pal.location.Sprint(loc),
		tw.pal.sev[sev].Sprintf("%s[%s]", sev.Label(), r.RuleID),
		r.Message)

	file := fileOf(tw.fs, r.span)
	if file != nil && r.StartLine > 0 {
		tw.snippet(file, r.span, sev)
	}

	pad := strings.Repeat(" ", tw.gutterWidth(r))
	if tw.opts.ShowNotes {
		for _, n := range r.Notes {
			where := ""
			if n.StartLine > 0 {
				where = fmt.Sprintf(" (%s:%d:%d)", n.File, n.StartLine, n.StartColumn)
			}
			tw.printf("%s %s note: %s%s\n", pad, tw.pal.gutter.Sprint("="), n.Message, where)
		}
	}
	if tw.opts.ShowFixes {
		for _, s := range r.Suggestions {
			tw.printf("%s %s %s %s\n", pad, tw.pal.gutter.Sprint("="), tw.pal.help.Sprint("fix:"), s)
		}
	}
	if tw.opts.ShowPreview {
		for _, f := range r.Fixes {
			for _, e := range f.Edits {
				for _, l := range e.BeforeLines {
					tw.printf("%s %s %s\n", pad, tw.pal.gutter.Sprint("|"), tw.pal.caret[diag.SevError].Sprint("- "+l))
				}
				for _, l := range e.AfterLines {
					tw.printf("%s %s %s\n", pad, tw.pal.gutter.Sprint("|"), tw.pal.help.Sprint("+ "+l))
				}
			}
		}
	}
}

func (tw *textWriter) gutterWidth(r *Record) int {
	return max(len(strconv.Itoa(r.StartLine)), 1)
}

func (tw *textWriter) snippet(f *source.File, span source.Span, sev diag.Severity) {
	start := f.LineCol(span.Start)
	end := f.LineCol(span.End)
	width := len(strconv.Itoa(int(start.Line)))
	pad := strings.Repeat(" ", width)
	bar := tw.pal.gutter.Sprint("|")

	tw.printf("%s %s\n", pad, bar)
	first := max(int(start.Line)-tw.opts.Context, 1)
	for ln := first; ln <= int(start.Line); ln++ {
		text := tw.expandTabs(f.GetLine(uint32(ln)))
		num := tw.pal.gutter.Sprintf("%*d", width, ln)
		if text == "" {
			tw.printf("%s %s\n", num, bar)
			continue
		}
		tw.printf("%s %s %s\n", num, bar, text)
	}

	line := f.GetLine(start.Line)
	lineStart := int(span.Start) - int(start.Col-1)
	prefix := line[:min(int(start.Col-1), len(line))]
	var marked string
	if end.Line == start.Line {
		marked = line[min(len(prefix), len(line)):min(int(span.End)-lineStart, len(line))]
	} else {
		marked = line[min(len(prefix), len(line)):]
	}
	offset := runewidth.StringWidth(tw.expandTabs(prefix))
	carets := max(runewidth.StringWidth(tw.expandTabs(marked)), 1)
	underline := strings.Repeat(" ", offset) + tw.pal.caret[sev].Sprint(strings.Repeat("^", carets))
	tw.printf("%s %s %s\n", pad, bar, underline)
}

func (tw *textWriter) expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tw.opts.TabWidth))
}

// WriteSummary writes the closing count line of a text report.
func WriteSummary(w io.Writer, s Summary, useColor bool) error {
	pal := newPalette(useColor)
	if s.Total() == 0 {
		_, err := fmt.Fprintf(w, "%s no problems in %d %s\n", pal.help.Sprint("✓"), s.Files, plural(s.Files, "file", "files"))
		return err
	}
	mark := pal.sev[diag.SevWarning].Sprint("!")
	if s.HasErrors() {
		mark = pal.sev[diag.SevError].Sprint("✖")
	}
	_, err := fmt.Fprintf(w, "%s %d %s in %d %s (%d %s, %d %s, %d info, %d %s)\n",
		mark,
		s.Total(), plural(s.Total(), "problem", "problems"),
		s.Files, plural(s.Files, "file", "files"),
		s.Errors, plural(s.Errors, "error", "errors"),
		s.Warnings, plural(s.Warnings, "warning", "warnings"),
		s.Infos,
		s.Hints, plural(s.Hints, "hint", "hints"))
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
