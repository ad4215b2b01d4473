package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"orlint/internal/config"
	"orlint/internal/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules [flags] [path]",
		Short: "List registered rules and their effective settings",
		Long:  "List every registered rule with the severity it resolves to for path (default: the current directory).",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRules,
	}
	cmd.Flags().String("format", "text", "output format (text|json)")
	cmd.Flags().String("category", "", "only list rules of this category")
	return cmd
}

type ruleRow struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Origin      string `json:"origin"`
	Enabled     bool   `json:"enabled"`
	Severity    string `json:"severity"`
	Default     string `json:"default_severity"`
	Fixable     bool   `json:"fixable"`
	Description string `json:"description"`
}

func runRules(cmd *cobra.Command, args []string) error {
	a := active
	var only *rules.Category
	if name := a.v.GetString("category"); name != "" {
		cat, err := rules.ParseCategory(name)
		if err != nil {
			return err
		}
		only = &cat
	}
	resolver, err := a.resolver()
	if err != nil {
		return err
	}
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	cfg, err := resolver.ResolveDir(dirOf(dir))
	if err != nil {
		return err
	}
	rows := ruleRows(a.reg, cfg, only)

	out := cmd.OutOrStdout()
	switch strings.ToLower(a.v.GetString("format")) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "text", "":
		return renderRulesTable(out, rows, a.color)
	default:
		return fmt.Errorf("unsupported format %q (must be text or json)", a.v.GetString("format"))
	}
}

// dirOf returns path when it is a directory, else its parent.
func dirOf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func ruleRows(reg *rules.Registry, cfg *config.Effective, only *rules.Category) []ruleRow {
	all := reg.All()
	rows := make([]ruleRow, 0, len(all))
	for _, r := range all {
		m := r.Meta()
		if only != nil && m.Category != *only {
			continue
		}
		origin, _ := reg.Origin(m.ID)
		row := ruleRow{
			ID:          string(m.ID),
			Category:    m.Category.String(),
			Origin:      origin.String(),
			Enabled:     cfg.Enabled(m.ID),
			Severity:    m.DefaultSeverity.Label(),
			Default:     m.DefaultSeverity.Label(),
			Fixable:     m.Fixable,
			Description: m.Description,
		}
		if rs, ok := cfg.Rules[m.ID]; ok {
			row.Severity = rs.Severity.Label()
		}
		rows = append(rows, row)
	}
	return rows
}

func renderRulesTable(out io.Writer, rows []ruleRow, useColor bool) error {
	header := lipgloss.NewStyle().Bold(true)
	dim := lipgloss.NewStyle().Faint(true)
	if !useColor {
		header, dim = lipgloss.NewStyle(), lipgloss.NewStyle()
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("RULE", "CATEGORY", "SEVERITY", "FIX", "DESCRIPTION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if row >= 0 && row < len(rows) && !rows[row].Enabled {
				return dim
			}
			return lipgloss.NewStyle()
		})
	for _, r := range rows {
		sev := r.Severity
		if !r.Enabled {
			sev = "off"
		}
		fixable := ""
		if r.Fixable {
			fixable = "yes"
		}
		id := r.ID
		if r.Origin != "builtin" {
			id += " (" + r.Origin + ")"
		}
		t.Row(id, r.Category, sev, fixable, r.Description)
	}
	_, err := fmt.Fprintln(out, t.Render())
	return err
}
