package errors

import (
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name before it is used as a
// repository directory name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - No leading dot (hidden entries are reserved for in-flight installs)
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}
	if err := validateSegment(name); err != "" {
		return New(ErrCodeInvalidPackage, "package name %s: %q", err, name)
	}
	return nil
}

// ValidateVersion validates a version string with the same rules as
// [ValidatePackageName]; versions are directory names too.
func ValidateVersion(version string) error {
	if version == "" {
		return New(ErrCodeInvalidVersion, "version cannot be empty")
	}
	if len(version) > 128 {
		return New(ErrCodeInvalidVersion, "version too long (max 128 characters)")
	}
	if err := validateSegment(version); err != "" {
		return New(ErrCodeInvalidVersion, "version %s: %q", err, version)
	}
	return nil
}

func validateSegment(s string) string {
	for _, r := range s {
		if unicode.IsControl(r) {
			return "contains invalid control characters"
		}
	}
	if strings.ContainsAny(s, "/\\") {
		return "contains path separators"
	}
	if s == "." || s == ".." || strings.HasPrefix(s, ".") {
		return "cannot start with a dot"
	}
	return ""
}
