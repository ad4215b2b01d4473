package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"orlint/internal/diag"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string           `json:"name"`
	Version        string           `json:"version,omitempty"`
	InformationURI string           `json:"informationUri,omitempty"`
	Rules          []sarifRuleEntry `json:"rules,omitempty"`
}

type sarifRuleEntry struct {
	ID                   string            `json:"id"`
	ShortDescription     sarifMessage      `json:"shortDescription"`
	DefaultConfiguration *sarifRuleConfig  `json:"defaultConfiguration,omitempty"`
	Properties           map[string]string `json:"properties,omitempty"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           *int              `json:"ruleIndex,omitempty"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	RelatedLocations    []sarifLocation   `json:"relatedLocations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifLocation struct {
	ID               *int                  `json:"id,omitempty"`
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// sarifLevel maps severities onto SARIF result levels.
func sarifLevel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	case diag.SevInfo:
		return "note"
	}
	return "none"
}

func sarifPhysical(loc Location) sarifPhysicalLocation {
	pl := sarifPhysicalLocation{ArtifactLocation: sarifArtifact{URI: filepath.ToSlash(loc.File)}}
	if loc.StartLine > 0 {
		pl.Region = &sarifRegion{
			StartLine:   loc.StartLine,
			StartColumn: loc.StartColumn,
			EndLine:     loc.EndLine,
			EndColumn:   loc.EndColumn,
		}
	}
	return pl
}

// Sarif writes the report as a SARIF 2.1.0 log with a single run.
func Sarif(w io.Writer, rep Report, meta SarifRunMeta) error {
	name := meta.ToolName
	if name == "" {
		name = rep.Tool
	}
	version := meta.ToolVersion
	if version == "" {
		version = rep.ToolVersion
	}
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           name,
			Version:        version,
			InformationURI: meta.InformationURI,
		}},
		Results: make([]sarifResult, 0, len(rep.Records)),
	}

	index := make(map[string]int, len(meta.Rules))
	for i, r := range meta.Rules {
		index[r.ID] = i
		entry := sarifRuleEntry{ID: r.ID, ShortDescription: sarifMessage{Text: r.Description}}
		if sev, err := diag.ParseSeverity(r.Level); err == nil {
			entry.DefaultConfiguration = &sarifRuleConfig{Level: sarifLevel(sev)}
		}
		if r.Category != "" {
			entry.Properties = map[string]string{"category": r.Category}
		}
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, entry)
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: true}}
	}

	for _, r := range rep.Records {
		res := sarifResult{
			RuleID:              r.RuleID,
			Level:               sarifLevel(r.Level()),
			Message:             sarifMessage{Text: r.Message},
			Locations:           []sarifLocation{{PhysicalLocation: sarifPhysical(r.Location)}},
			PartialFingerprints: map[string]string{"orlintKey/v1": r.Key},
		}
		if i, ok := index[r.RuleID]; ok {
			res.RuleIndex = &i
		}
		for i, n := range r.Notes {
			id := i + 1
			res.RelatedLocations = append(res.RelatedLocations, sarifLocation{
				ID:               &id,
				PhysicalLocation: sarifPhysical(n.Location),
				Message:          &sarifMessage{Text: n.Message},
			})
		}
		// sarif fix требует artifactChanges; заголовки уходят в properties
		if len(r.Suggestions) > 0 {
			res.Properties = map[string]any{"suggestions": r.Suggestions}
		}
		run.Results = append(run.Results, res)
	}

	log := sarifLog{Schema: sarifSchema, Version: sarifVersion, Runs: []sarifRun{run}}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(log); err != nil {
		return fmt.Errorf("encode sarif: %w", err)
	}
	return nil
}

func oneLine(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
