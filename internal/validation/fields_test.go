package validation

import (
	"strings"
	"testing"
)

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{
			name:  "plain name",
			value: "Kovács Anna",
			valid: true,
		},
		{
			name:  "surrounded by whitespace",
			value: "  Szabó Péter  ",
			valid: true,
		},
		{
			name:  "empty string",
			value: "",
			valid: false,
		},
		{
			name:  "whitespace only",
			value: "   ",
			valid: false,
		},
		{
			name:  "control character",
			value: "Anna\x00",
			valid: false,
		},
		{
			name:  "over length bound",
			value: strings.Repeat("a", 201),
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidName(tt.value)
			if got != tt.valid {
				t.Fatalf("IsValidName(%q) = %v, want %v", tt.value, got, tt.valid)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Nagy Éva "); got != "Nagy Éva" {
		t.Fatalf("Normalize = %q, want %q", got, "Nagy Éva")
	}
}
