// Package parser turns free-form application log lines into canonical
// records. Parsing is best-effort: lines that match no known format are
// dropped, while I/O and decode failures are returned to the caller.
package parser

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format identifies the recognizer that matched a line.
type Format string

// Recognized line formats, in precedence order.
const (
	FormatJSON  Format = "json"
	FormatSpace Format = "space"
	FormatDash  Format = "dash"
)

// Fields holds the raw captures of a successful recognizer.
type Fields struct {
	Format    Format
	Timestamp string
	Level     string
	Message   string
}

// Record is the canonical shape every recognized line converges to.
// It is a value type and never modified after Build returns it.
type Record struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

var upperTag = language.Und

// Build maps recognizer captures into a canonical Record.
// The level is upper-cased and every field is trimmed of surrounding
// whitespace.
func Build(f Fields) Record {
	return Record{
		Timestamp: strings.TrimSpace(f.Timestamp),
		Level:     toUpper(strings.TrimSpace(f.Level)),
		Message:   strings.TrimSpace(f.Message),
	}
}

// toUpper builds a new cases.Caser per call; a Caser is stateful and not
// safe for concurrent use.
func toUpper(s string) string {
	if s == "" {
		return ""
	}
	return cases.Upper(upperTag).String(s)
}
