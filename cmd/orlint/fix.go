package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"orlint/internal/diag"
	"orlint/internal/diagfmt"
	"orlint/internal/driver"
)

func newFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix [flags] [paths...]",
		Short: "Apply available fixes to .orbit files",
		Long: `Analyze the given files, apply every non-conflicting fix, re-analyze and repeat.
Remaining diagnostics are reported; exit status is 1 when an Error diagnostic remains.`,
		RunE: runFix,
	}
	f := cmd.Flags()
	f.String("rule", "", "apply only fixes of this rule")
	f.Bool("unsafe", false, "also apply fixes that need manual review")
	f.Bool("dry-run", false, "compute fixes without writing files")
	f.Int("passes", 4, "max apply/re-analyze rounds per file")
	f.String("format", "text", "format of the remaining diagnostics (text|json|sarif|short)")
	f.String("path-mode", "relative", "paths in output (relative|absolute|basename|auto)")
	f.BoolP("verbose", "v", false, "list every applied and skipped fix")
	return cmd
}

func runFix(cmd *cobra.Command, args []string) error {
	a := active
	format, err := diagfmt.ParseFormat(a.v.GetString("format"))
	if err != nil {
		return err
	}
	pathMode, err := parsePathMode(a.v.GetString("path-mode"))
	if err != nil {
		return err
	}
	rule := diag.Code(a.v.GetString("rule"))
	if rule != "" && !a.reg.Has(rule) {
		return fmt.Errorf("unknown rule %q", rule)
	}
	resolver, err := a.resolver()
	if err != nil {
		return err
	}
	aopts, err := a.analyzerOptions(nil)
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

	fopts := driver.FixOptions{
		Options:     dopts,
		Rule:        rule,
		AllowUnsafe: a.v.GetBool("unsafe"),
		DryRun:      a.v.GetBool("dry-run"),
		Passes:      a.v.GetInt("passes"),
	}
	res, err := a.runBatch(cmd.Context(), "fixing", targets, func(ctx context.Context, sink driver.ProgressSink) (*driver.Result, error) {
		opts := fopts
		opts.Progress = sink
		return driver.Fix(ctx, targets, resolver, a.reg, opts)
	})
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if !a.v.GetBool("quiet") {
		printFixSummary(stderr, res, fopts.DryRun, a.v.GetBool("verbose"))
	}
	rep, err := diagfmt.Write(cmd.OutOrStdout(), format, res.Diagnostics, res.FileSet, a.formatOptions(pathMode, false, len(targets)))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if a.v.GetBool("timings") {
		printTimings(stderr, res)
	}
	if rep.Summary.HasErrors() {
		return errDiagnostics
	}
	return nil
}

func printFixSummary(out io.Writer, res *driver.Result, dryRun, verbose bool) {
	applied, files := 0, 0
	for _, fr := range res.Files {
		if fr.Fix == nil {
			continue
		}
		applied += len(fr.Fix.Applied)
		if fr.Fix.Changed {
			files++
		}
		if !verbose {
			continue
		}
		for _, f := range fr.Fix.Applied {
			fmt.Fprintf(out, "  fixed   %s: %s [%s]\n", fr.Path, f.Title, f.Code)
		}
		for _, f := range fr.Fix.Skipped {
			fmt.Fprintf(out, "  skipped %s: %s [%s] (%s)\n", fr.Path, f.Title, f.Code, f.Reason)
		}
	}
	verb := "applied"
	if dryRun {
		verb = "would apply"
	}
	fmt.Fprintf(out, "%s %d %s in %d %s\n", verb, applied, pluralize(applied, "fix", "fixes"), files, pluralize(files, "file", "files"))
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
