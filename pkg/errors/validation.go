package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxNameLength bounds a child name.
const MaxNameLength = 256

// ValidateName validates a named-child key.
//
// The rules are conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No "." (the path separator)
//   - Maximum length of MaxNameLength characters
//
// List-item names ("Item[n]") are assigned by the tree and are checked
// separately by the tree package.
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return New(ErrCodeInvalidName, "name too long (max %d characters)", MaxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidName, "name %q contains whitespace or control characters", name)
		}
	}

	if strings.Contains(name, ".") {
		return New(ErrCodeInvalidName, "name %q contains the path separator '.'", name)
	}

	return nil
}

// ValidateScenarioFilename checks that filename has a supported scenario
// extension and returns the normalized extension without the dot.
func ValidateScenarioFilename(filename string) (string, error) {
	if filename == "" {
		return "", New(ErrCodeInvalidInput, "scenario filename cannot be empty")
	}
	if strings.ContainsRune(filename, '\x00') {
		return "", New(ErrCodeInvalidInput, "scenario filename contains a null byte")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "toml":
		return "toml", nil
	case "yaml", "yml":
		return "yaml", nil
	default:
		return "", New(ErrCodeInvalidFormat, "unsupported scenario extension %q (want .toml, .yaml or .yml)", filepath.Ext(filename))
	}
}
