package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// passNameRegex matches pass and node names: an identifier that may contain
// dots and dashes after the first character.
var passNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidatePassName validates a pass name declared in a pipeline config.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - Maximum length of 128 characters
//   - Must start with a letter or underscore
//   - Only letters, digits, '_', '.', '-'
func ValidatePassName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "pass name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidConfig, "pass name too long (max 128 characters)")
	}
	if !passNameRegex.MatchString(name) {
		return New(ErrCodeInvalidConfig, "invalid pass name: %q", name)
	}
	return nil
}

// ValidateNodeName validates a graph node name.
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidGraph, "node name cannot be empty")
	}
	if !passNameRegex.MatchString(name) {
		return New(ErrCodeInvalidGraph, "invalid node name: %q", name)
	}
	return nil
}

// ValidatePath validates an output file path supplied on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidPath, "path must name a file, not a directory")
	}

	return nil
}
