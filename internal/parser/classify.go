package parser

import (
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// spacePattern matches "YYYY-MM-DD HH:MM:SS LEVEL message". The level is a
// run of Unicode word characters, so "ts - ERROR - msg" is left to the dash
// recognizer.
var spacePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2}) ([\p{L}\p{N}_]+) (.+)$`)

// dashSeparator splits "timestamp - LEVEL - message" lines.
const dashSeparator = " - "

// recognizer attempts to extract fields from an already normalized line.
type recognizer func(line string) (Fields, bool)

// recognizers run in this order and the first success wins. A line that is
// a JSON object never reaches the delimiter-based recognizers, and a
// space-delimited match beats a dash-delimited one.
var recognizers = []recognizer{
	recognizeJSON,
	recognizeSpace,
	recognizeDash,
}

// Classify runs the recognizers against a normalized line.
// It returns false when the line matches no supported format.
func Classify(line string) (Fields, bool) {
	for _, recognize := range recognizers {
		if fields, ok := recognize(line); ok {
			return fields, true
		}
	}
	return Fields{}, false
}

// ParseLine normalizes, classifies and builds a single raw line.
// It returns false for blank or unrecognized lines.
func ParseLine(raw string) (Record, bool) {
	line, ok := Normalize(raw)
	if !ok {
		return Record{}, false
	}
	fields, ok := Classify(line)
	if !ok {
		return Record{}, false
	}
	return Build(fields), true
}

// recognizeJSON accepts a line only if the whole line is a JSON object.
// Missing keys yield empty fields; an object with none of them still matches.
func recognizeJSON(line string) (Fields, bool) {
	if !strings.HasPrefix(line, "{") {
		return Fields{}, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &obj); err != nil || obj == nil {
		return Fields{}, false
	}

	return Fields{
		Format:    FormatJSON,
		Timestamp: jsonText(obj["timestamp"]),
		Level:     jsonText(obj["level"]),
		Message:   jsonText(obj["message"]),
	}, true
}

// jsonText renders a JSON value as a string. Strings are unquoted, null and
// absent values become empty, anything else keeps its JSON text.
func jsonText(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return ""
	}
	if text[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return text
}

func recognizeSpace(line string) (Fields, bool) {
	m := spacePattern.FindStringSubmatch(line)
	if m == nil {
		return Fields{}, false
	}
	return Fields{
		Format:    FormatSpace,
		Timestamp: m[1] + " " + m[2],
		Level:     m[3],
		Message:   m[4],
	}, true
}

// recognizeDash requires exactly three segments. Four or more are
// ambiguous and rejected rather than guessing which ones to keep.
func recognizeDash(line string) (Fields, bool) {
	parts := strings.Split(line, dashSeparator)
	if len(parts) != 3 {
		return Fields{}, false
	}
	return Fields{
		Format:    FormatDash,
		Timestamp: parts[0],
		Level:     parts[1],
		Message:   parts[2],
	}, true
}
