// Package filex holds small filesystem helpers for the client's local state.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubdDir creates dirName under the current working directory (if
// needed) and returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return EnsureDir(filepath.Join(cwd, dirName))
}

// EnsureDir creates dir with owner-only permissions when missing. It fails if
// a non-directory already occupies the path.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// DataFile returns the path of name inside the client data directory
// dirName (relative to the working directory), creating the directory.
func DataFile(dirName, name string) (string, error) {
	dir, err := EnsureSubdDir(dirName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
