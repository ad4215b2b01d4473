package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	_ "orlint/internal/rules/builtin"
	_ "orlint/internal/rules/custom"
	"orlint/internal/version"
)

// errDiagnostics означает, что отчёт содержит ошибки; сообщение не печатается,
// только код выхода 1
var errDiagnostics = errors.New("error diagnostics reported")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "orlint",
		Short:             "Linter for Orbit component markup",
		Long:              `orlint parses *.orbit files, runs the configured rule set and reports or fixes what it finds`,
		Version:           version.Info(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	// Глобальные флаги
	pf := cmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show per-rule timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to show (0 = all)")
	pf.Int("jobs", 0, "max files analyzed in parallel (0 = GOMAXPROCS)")
	pf.Bool("cache", false, "reuse results from the on-disk cache")
	pf.String("cache-dir", "", "cache directory (default: user cache dir)")
	pf.String("metrics", "", "write Prometheus metrics in textfile format to this path")
	pf.String("progress", "auto", "show a progress view (auto|on|off)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.Bool("trace-spans", false, "log OpenTelemetry spans at debug level")
	pf.String("root", "", "project root bounding config lookup (default: detected)")
	pf.StringSlice("severity", nil, "override a rule's severity: rule=error|warning|info|hint|off (repeatable)")
	pf.StringSlice("disable", nil, "disable a rule or rule-id glob (repeatable)")
	pf.StringSlice("exclude-category", nil, "skip every rule of a category (repeatable)")
	pf.String("cpuprofile", "", "write CPU profile to file")
	pf.String("memprofile", "", "write heap profile to file")
	pf.String("runtime-trace", "", "write runtime/trace output to file")

	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newFixCmd())
	cmd.AddCommand(newRulesCmd())
	cmd.AddCommand(newLSPCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// main executes the root command. Exit status: 0 clean, 1 when Error
// diagnostics were reported, 2 on usage or runtime failures.
func main() {
	os.Exit(execute(newRootCmd()))
}

func execute(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := cmd.ExecuteContext(ctx)
	// PostRun не вызывается при ошибке RunE, поэтому сброс метрик и профилей здесь
	if terr := teardown(); terr != nil && err == nil {
		err = terr
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDiagnostics):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "orlint: %v\n", err)
		return 2
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
