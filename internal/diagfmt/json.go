package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSON writes the report as indented JSON. Field names are stable across
// versions with the same SchemaVersion.
func JSON(w io.Writer, rep Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Short writes one line per record: "file:line:col: severity rule-id: message".
// Golden tests compare this form.
func Short(w io.Writer, rep Report) error {
	for _, r := range rep.Records {
		if _, err := fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
			r.File, r.StartLine, r.StartColumn, r.Severity, r.RuleID, oneLine(r.Message)); err != nil {
			return err
		}
	}
	if rep.Truncated > 0 {
		if _, err := fmt.Fprintf(w, "... %d more\n", rep.Truncated); err != nil {
			return err
		}
	}
	return nil
}
