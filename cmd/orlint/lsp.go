package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orlint/internal/lsp"
)

func newLSPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run the orlint language server over stdio",
		Args:  cobra.NoArgs,
		RunE:  runLSP,
	}
	cmd.Flags().Duration("debounce", 0, "quiet period after an edit before re-analysis (default 150ms)")
	cmd.Flags().Bool("watch-config", true, "re-analyze open files when a config file changes")
	return cmd
}

func runLSP(cmd *cobra.Command, _ []string) error {
	a := active
	overrides, err := a.overrides()
	if err != nil {
		return err
	}
	aopts, err := a.analyzerOptions(nil)
	if err != nil {
		return err
	}
	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Registry:       a.reg,
		Overrides:      overrides,
		Root:           a.v.GetString("root"),
		Debounce:       a.v.GetDuration("debounce"),
		MaxDiagnostics: a.v.GetInt("max-diagnostics"),
		Analyzer:       aopts,
		WatchConfig:    a.v.GetBool("watch-config"),
		Logger:         a.logger,
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
