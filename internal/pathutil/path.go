// Package pathutil expands and cleans filesystem paths used by the
// read_files and write_files steps.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand expands ~ and environment variables in path, then cleans it.
// ~user syntax is not supported and is returned unexpanded.
func Expand(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		if path == "~" {
			return homeDir, nil
		}

		if strings.HasPrefix(path, "~/") {
			return filepath.Join(homeDir, path[2:]), nil
		}
	}

	return filepath.Clean(path), nil
}

// ExpandAll expands a slice of paths using Expand.
func ExpandAll(paths []string) ([]string, error) {
	expanded := make([]string, len(paths))
	for i, p := range paths {
		exp, err := Expand(p)
		if err != nil {
			return nil, err
		}
		expanded[i] = exp
	}
	return expanded, nil
}

// Under joins root and rel, ensuring the result does not escape root via
// ".." traversal. write_files uses this so a recipe-authored path cannot
// write outside the configured output root.
func Under(root, rel string) (string, error) {
	root, err := Expand(root)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(root, rel)
	cleanedRoot := filepath.Clean(root)
	if joined != cleanedRoot && !strings.HasPrefix(joined, cleanedRoot+string(os.PathSeparator)) {
		return "", &os.PathError{Op: "write", Path: rel, Err: os.ErrPermission}
	}
	return joined, nil
}
