package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileNames are the config file names looked up in every directory,
// in priority order. Only the first one present in a directory is used.
var ConfigFileNames = []string{"orlint.toml", "orlint.yaml", "orlint.yml"}

// ConfigInDir returns the config file of dir, if any.
func ConfigInDir(dir string) (path string, ok bool, err error) {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// FindConfigFiles walks up from startDir and returns every config file found,
// nearest first. The walk stops after stopDir (when non-empty) or at the
// filesystem root.
func FindConfigFiles(startDir, stopDir string) ([]string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	stop := ""
	if stopDir != "" {
		if stop, err = filepath.Abs(stopDir); err != nil {
			return nil, fmt.Errorf("failed to resolve stop directory: %w", err)
		}
	}
	var out []string
	for {
		path, ok, err := ConfigInDir(dir)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, path)
		}
		if dir == stop {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return out, nil
}

// FindProjectRoot returns the nearest directory at or above startDir that
// contains a config file or a .git directory.
func FindProjectRoot(startDir string) (root string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		if _, found, err := ConfigInDir(dir); err != nil {
			return "", false, err
		} else if found {
			return dir, true, nil
		}
		if st, err := os.Stat(filepath.Join(dir, ".git")); err == nil && st.IsDir() {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
