package parser

import "strings"

// Normalize trims surrounding whitespace from a raw line.
// It returns false when nothing is left, meaning the line is skipped.
func Normalize(raw string) (string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return "", false
	}
	return line, true
}
