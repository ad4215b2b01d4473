package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"orlint/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Rules     int    `json:"rules"`
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show orlint build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := active
			payload := versionPayload{
				Tool:    "orlint",
				Version: valueOrUnknown(version.Version),
				Rules:   a.reg.Len(),
			}
			if a.v.GetBool("full") {
				payload.GitCommit = valueOrUnknown(version.GitCommit)
				payload.BuildDate = valueOrUnknown(version.BuildDate)
			}
			switch strings.ToLower(a.v.GetString("format")) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			case "pretty", "text", "":
				return renderVersionPretty(cmd.OutOrStdout(), payload, a.color)
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", a.v.GetString("format"))
			}
		},
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().Bool("full", false, "include commit and build date")
	return cmd
}

func renderVersionPretty(out io.Writer, p versionPayload, useColor bool) error {
	ver := p.Version
	if useColor {
		ver = version.Colored()
	}
	if _, err := fmt.Fprintf(out, "orlint %s (%d rules)\n", ver, p.Rules); err != nil {
		return err
	}
	if p.GitCommit != "" {
		fmt.Fprintf(out, "commit: %s\n", p.GitCommit)
	}
	if p.BuildDate != "" {
		fmt.Fprintf(out, "built:  %s\n", p.BuildDate)
	}
	return nil
}

func valueOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
