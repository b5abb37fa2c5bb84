// Package validation checks operator-supplied names before they reach the
// registry URL space, the git ref namespace or the file system.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Project name per the Python packaging core metadata: ASCII letters and
// digits, with ".", "_" and "-" allowed between them.
var projectNameRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)

var separatorRun = regexp.MustCompile(`[-_.]+`)

// Tag names accepted for release and rollback tags. Stricter than git's own
// check-ref-format.
var tagNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]{0,127}$`)

// MaxProjectNameLength bounds project names.
const MaxProjectNameLength = 128

// ValidateProjectName validates a distribution name.
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if len(name) > MaxProjectNameLength {
		return fmt.Errorf("project name too long: %d chars (max %d)", len(name), MaxProjectNameLength)
	}
	if !projectNameRegex.MatchString(name) {
		return fmt.Errorf("invalid project name %q: use letters, digits, '.', '_' and '-', starting and ending with a letter or digit", name)
	}
	return nil
}

// NormalizeProjectName lowercases name and collapses separator runs to a
// single "-", the form registries use in URLs.
func NormalizeProjectName(name string) string {
	return separatorRun.ReplaceAllString(strings.ToLower(name), "-")
}

// ValidateTagName validates a git tag name.
func ValidateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("tag name cannot be empty")
	}
	if !tagNameRegex.MatchString(name) {
		return fmt.Errorf("invalid tag name %q", name)
	}
	if strings.Contains(name, "..") || strings.Contains(name, "//") {
		return fmt.Errorf("invalid tag name %q: contains '..' or '//'", name)
	}
	if strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("invalid tag name %q: bad suffix", name)
	}
	return nil
}

// ValidateSubdir checks that dir names a directory strictly inside its base
// directory. It guards paths that are deleted recursively.
func ValidateSubdir(dir string) error {
	clean := filepath.Clean(dir)
	switch {
	case strings.TrimSpace(dir) == "":
		return fmt.Errorf("directory cannot be empty")
	case filepath.IsAbs(clean):
		return fmt.Errorf("directory %q must be relative", dir)
	case clean == ".":
		return fmt.Errorf("directory %q is the base directory itself", dir)
	case clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)):
		return fmt.Errorf("directory %q escapes the base directory", dir)
	}
	return nil
}
