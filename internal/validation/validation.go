// Package validation checks user supplied paths, names and formats before
// any work starts.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsValidInputFile checks that path is an existing regular file with a .pdf extension.
func IsValidInputFile(path string) error {
	if path == "" {
		return fmt.Errorf("input file is required")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("path %s is not a regular file", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("input file must be a PDF statement: %s", path)
	}
	return nil
}

// IsValidInputDir checks that path is an existing directory.
func IsValidInputDir(path string) error {
	if path == "" {
		return fmt.Errorf("input directory is required")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", path)
	}
	return nil
}

// IsValidOutputFormat checks if the given report format is supported.
func IsValidOutputFormat(format string) error {
	switch format {
	case "json", "xml", "text", "txt":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s. Supported formats are 'json', 'xml', 'text'", format)
	}
}

// IsValidUserID checks that id can name a directory of its own.
func IsValidUserID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(trimmed, `/\`) {
		return fmt.Errorf("invalid user id %q", id)
	}
	return nil
}
