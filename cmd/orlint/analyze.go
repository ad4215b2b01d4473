package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"orlint/internal/diagfmt"
	"orlint/internal/driver"
	"orlint/internal/version"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [flags] [paths...]",
		Short: "Analyze .orbit files and report diagnostics",
		Long: `Analyze every .orbit file under the given paths (default: the current directory).
Exit status is 1 when an Error diagnostic is reported.`,
		RunE: runAnalyze,
	}
	f := cmd.Flags()
	f.String("format", "text", "output format (text|json|sarif|short)")
	f.BoolP("verbose", "v", false, "show notes, fix suggestions and edit previews")
	f.StringSlice("only", nil, "run only these rule ids")
	f.String("path-mode", "relative", "paths in output (relative|absolute|basename|auto)")
	f.StringP("output", "o", "", "write the report to a file instead of stdout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a := active
	format, err := diagfmt.ParseFormat(a.v.GetString("format"))
	if err != nil {
		return err
	}
	pathMode, err := parsePathMode(a.v.GetString("path-mode"))
	if err != nil {
		return err
	}
	resolver, err := a.resolver()
	if err != nil {
		return err
	}
	aopts, err := a.analyzerOptions(a.v.GetStringSlice("only"))
	if err != nil {
		return err
	}
	dopts, err := a.driverOptions(aopts)
	if err != nil {
		return err
	}

	targets, err := driver.Discover(pathsOrCwd(args), resolver)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		a.notice(cmd.ErrOrStderr(), "no .orbit files found\n")
		return nil
	}

	res, err := a.runBatch(cmd.Context(), "analyzing", targets, func(ctx context.Context, sink driver.ProgressSink) (*driver.Result, error) {
		opts := dopts
		opts.Progress = sink
		return driver.Run(ctx, targets, resolver, a.reg, opts)
	})
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd.OutOrStdout(), a.v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeOut()

	verbose := a.v.GetBool("verbose")
	rep, err := diagfmt.Write(out, format, res.Diagnostics, res.FileSet, a.formatOptions(pathMode, verbose, len(targets)))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if a.v.GetBool("timings") {
		printTimings(cmd.ErrOrStderr(), res)
	}
	if rep.Summary.HasErrors() {
		return errDiagnostics
	}
	return nil
}

func (a *app) formatOptions(mode diagfmt.PathMode, verbose bool, files int) diagfmt.Options {
	limit := a.v.GetInt("max-diagnostics")
	rules := make([]diagfmt.SarifRule, 0, a.reg.Len())
	for _, r := range a.reg.All() {
		m := r.Meta()
		rules = append(rules, diagfmt.SarifRule{
			ID:          string(m.ID),
			Description: m.Description,
			Category:    m.Category.String(),
			Level:       m.DefaultSeverity.Label(),
		})
	}
	return diagfmt.Options{
		Text: diagfmt.TextOpts{
			Color:       a.color,
			Context:     1,
			PathMode:    mode,
			Max:         limit,
			ShowNotes:   verbose,
			ShowFixes:   verbose,
			ShowPreview: verbose,
		},
		Report: diagfmt.ReportOpts{
			PathMode:        mode,
			Max:             limit,
			IncludeFixes:    verbose,
			IncludePreviews: verbose,
			ToolVersion:     version.Version,
			FilesAnalyzed:   files,
		},
		Sarif: diagfmt.SarifRunMeta{
			ToolName:       "orlint",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args,
			Rules:          rules,
		},
		Summary: !a.v.GetBool("quiet"),
	}
}

// runBatch runs fn either under the progress view or plainly.
func (a *app) runBatch(ctx context.Context, title string, targets []driver.Target, fn func(context.Context, driver.ProgressSink) (*driver.Result, error)) (*driver.Result, error) {
	if !a.progress {
		return fn(ctx, nil)
	}
	return runWithUI(ctx, title, driver.Paths(targets), fn)
}

func pathsOrCwd(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

func parsePathMode(s string) (diagfmt.PathMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relative":
		return diagfmt.PathModeRelative, nil
	case "absolute", "full":
		return diagfmt.PathModeAbsolute, nil
	case "basename":
		return diagfmt.PathModeBasename, nil
	case "auto":
		return diagfmt.PathModeAuto, nil
	}
	return 0, fmt.Errorf("invalid --path-mode %q (expected relative|absolute|basename|auto)", s)
}

// openOutput returns stdout or a created file; the close function reports
// nothing, write errors surface through the writers.
func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
