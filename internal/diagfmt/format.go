package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"orlint/internal/diag"
	"orlint/internal/source"
)

// Format names an output writer.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSarif Format = "sarif"
	FormatShort Format = "short"
)

// Formats lists the accepted names in help order.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatSarif, FormatShort}
}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want text, json, sarif or short)", s)
}

// Options bundles the settings of every writer for Write.
type Options struct {
	Text   TextOpts
	Report ReportOpts
	Sarif  SarifRunMeta
	// Summary appends the count line to text output.
	Summary bool
}

// Write renders diagnostics in format f and returns the report it was built
// from, so callers can decide the exit status without recounting.
func Write(w io.Writer, f Format, diags []diag.Diagnostic, fs *source.FileSet, opts Options) (Report, error) {
	rep := BuildReport(diags, fs, opts.Report)
	var err error
	switch f {
	case FormatText, "":
		topts := opts.Text
		if topts.Max == 0 {
			topts.Max = opts.Report.Max
		}
		if topts.PathMode == PathModeRelative {
			topts.PathMode = opts.Report.PathMode
		}
		if err = Text(w, diags, fs, topts); err == nil && opts.Summary {
			if rep.Summary.Total() > 0 {
				_, err = fmt.Fprintln(w)
			}
			if err == nil {
				err = WriteSummary(w, rep.Summary, opts.Text.Color)
			}
		}
	case FormatJSON:
		err = JSON(w, rep)
	case FormatSarif:
		err = Sarif(w, rep, opts.Sarif)
	case FormatShort:
		err = Short(w, rep)
	default:
		err = fmt.Errorf("unknown format %q", f)
	}
	return rep, err
}
