package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._\-]+`)

// ValidateXMLFileName checks that an uploaded file name looks like an XML document
func ValidateXMLFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name is required")
	}
	if !strings.EqualFold(filepath.Ext(name), ".xml") {
		return fmt.Errorf("file must have an .xml extension: %s", name)
	}
	return nil
}

// SanitizeFileName reduces name to its base and replaces characters that are
// unsafe in a path with underscores
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	// Remove control characters first
	base = regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(base, "")
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "document.xml"
	}
	return base
}
