// Package validation contains input validation for user-entered fields.
package validation

import (
	"strings"
	"unicode"
)

// maxFieldLength bounds free-text fields such as name and position.
const maxFieldLength = 200

// Normalize trims surrounding whitespace from a user-entered field.
func Normalize(s string) string {
	return strings.TrimSpace(s)
}

// IsValidName reports whether a name or position field is acceptable:
// non-empty after trimming, within the length bound, and free of control
// characters.
func IsValidName(s string) bool {
	s = Normalize(s)
	if s == "" || len(s) > maxFieldLength {
		return false
	}

	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}

	return true
}
