package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeRelative shows paths relative to the FileSet base directory;
	// files outside it keep their absolute path.
	PathModeRelative PathMode = iota
	PathModeAbsolute
	PathModeBasename
	// PathModeAuto shortens long absolute paths to their basename.
	PathModeAuto
)

func (m PathMode) name() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeBasename:
		return "basename"
	case PathModeAuto:
		return "auto"
	}
	return "relative"
}

// TextOpts configures the human-readable writer.
type TextOpts struct {
	Color    bool
	Context  int // строк контекста перед строкой диагностики
	PathMode PathMode
	TabWidth int // 0 - 4
	Max      int
	// ShowNotes prints notes under their diagnostic.
	ShowNotes bool
	// ShowFixes lists fix titles; ShowPreview adds before/after lines.
	ShowFixes   bool
	ShowPreview bool
}

// ReportOpts configures BuildReport.
type ReportOpts struct {
	PathMode PathMode
	Max      int // обрезка вывода, не Bag
	// IncludeFixes adds structured edits next to suggestion titles;
	// IncludePreviews adds before/after lines to every edit.
	IncludeFixes    bool
	IncludePreviews bool
	ToolVersion     string
	// FilesAnalyzed is reported in the summary; files without diagnostics
	// have no records.
	FilesAnalyzed int
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InformationURI string
	InvocationArgs []string
	// Rules become tool.driver.rules; results reference them by index.
	Rules []SarifRule
}

// SarifRule describes one rule for SARIF consumers.
type SarifRule struct {
	ID          string
	Description string
	Category    string
	Level       string // severity label
}
