package library

import "strings"

// forbiddenChars are illegal in file names on at least one common desktop filesystem.
const forbiddenChars = `<>:"/\|?*`

// Sanitize turns arbitrary text into a filesystem-safe path segment.
// Every forbidden character becomes "-" and surrounding whitespace is trimmed.
// An empty result yields fallback. So does a result made only of dots, such
// as "." or "..": those name the current or parent directory, so they are not
// valid segments.
func Sanitize(raw, fallback string) string {
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenChars, r) {
			return '-'
		}
		return r
	}, raw)
	sanitized = strings.TrimSpace(sanitized)

	if sanitized == "" || strings.Trim(sanitized, ".") == "" {
		return fallback
	}
	return sanitized
}
