package lsp

import (
	"os"
	"path/filepath"

	"orlint/internal/project"
)

// detectRoot picks the directory that bounds config lookup: the project
// root above the workspace folder, else the workspace folder itself, else
// the project root above the first opened file, else that file's directory.
func detectRoot(workspaceRoot, firstFile string) string {
	if dir := resolveStartDir(workspaceRoot); dir != "" {
		if found, ok, err := project.FindProjectRoot(dir); err == nil && ok {
			return found
		}
		return dir
	}
	if dir := resolveStartDir(firstFile); dir != "" {
		if found, ok, err := project.FindProjectRoot(dir); err == nil && ok {
			return found
		}
		return dir
	}
	return ""
}

func resolveStartDir(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
