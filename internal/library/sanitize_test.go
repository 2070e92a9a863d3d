package library

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Feature: kiosk-library, Property 1: Sanitized names never contain forbidden characters
func TestProperty_SanitizedNamesHaveNoForbiddenChars(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("sanitize removes every forbidden character", prop.ForAll(
		func(raw string) bool {
			return !strings.ContainsAny(Sanitize(raw, "fallback"), forbiddenChars)
		},
		gen.AnyString(),
	))

	properties.Property("forbidden characters survive as hyphens", prop.ForAll(
		func(prefix string, forbidden string) bool {
			raw := "x" + prefix + forbidden + "y"
			result := Sanitize(raw, "fallback")
			return strings.Contains(result, "-y")
		},
		gen.AlphaString(),
		gen.OneConstOf("<", ">", ":", `"`, "/", `\`, "|", "?", "*"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: kiosk-library, Property 2: Blank names resolve to the fallback
func TestProperty_BlankNamesUseFallback(t *testing.T) {
	properties := gopter.NewProperties(nil)

	whitespace := gen.SliceOf(gen.OneConstOf(" ", "\t", "\n", "\r")).Map(func(parts []string) string {
		return strings.Join(parts, "")
	})

	properties.Property("empty or all-whitespace input yields the fallback", prop.ForAll(
		func(raw string, fallback string) bool {
			return Sanitize(raw, fallback) == fallback
		},
		whitespace,
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{"plain", "Acme 30L", "x", "Acme 30L"},
		{"trims", "  Acme  ", "x", "Acme"},
		{"replaces all forbidden", `a<b>c:d"e/f\g|h?i*j`, "x", "a-b-c-d-e-f-g-h-i-j"},
		{"empty", "", "Unknown Brand", "Unknown Brand"},
		{"whitespace", " \t ", "Uncategorized", "Uncategorized"},
		{"only forbidden", "//", "x", "--"},
		{"parent reference", "..", "Untitled Product", "Untitled Product"},
		{"current reference", " . ", "Untitled Product", "Untitled Product"},
		{"only dots", "...", "Uncategorized", "Uncategorized"},
		{"dots inside name", "v1.2", "x", "v1.2"},
		{"unicode", "Crème Brûlée", "x", "Crème Brûlée"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.raw, tt.fallback); got != tt.want {
				t.Errorf("Sanitize(%q, %q) = %q, want %q", tt.raw, tt.fallback, got, tt.want)
			}
		})
	}
}
