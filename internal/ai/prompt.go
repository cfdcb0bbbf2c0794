package ai

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/olegiv/loganalyzer-go/internal/report"
)

// maxPromptAnomalies bounds how many anomalies are sent to the model
const maxPromptAnomalies = 50

// maxJSONResponseSize bounds the JSON accepted from the model (1MB)
const maxJSONResponseSize = 1024 * 1024

// Insight is Claude's assessment of a batch of anomalies.
type Insight struct {
	Severity        string   `json:"severity"`
	Summary         string   `json:"summary"`
	LikelyCauses    []string `json:"likelyCauses"`
	Recommendations []string `json:"recommendations"`
}

var validSeverities = map[string]bool{
	"Low":      true,
	"Medium":   true,
	"High":     true,
	"Critical": true,
}

const systemPrompt = `You are a site reliability engineer reviewing API latency alerts produced by a log analyzer. You receive slow requests (with their response times in milliseconds), recurring error messages, and log level counts from one application log.

Assess how serious the latency problem is and what most likely causes it, using only the evidence in the input. Correlate slow requests with recurring errors when the timestamps or messages support it.

You MUST respond with a valid JSON object (and ONLY JSON) in this exact format:

{
  "severity": "Low|Medium|High|Critical",
  "summary": "1-2 sentence overview of the latency problem",
  "likelyCauses": ["Cause supported by the log evidence"],
  "recommendations": ["Specific next step for the on-call engineer"]
}

Empty arrays are acceptable. Do not invent metrics that are not in the input.`

// BuildUserPrompt renders the report sections Claude needs.
func BuildUserPrompt(r *report.Report) string {
	var prompt strings.Builder

	fmt.Fprintf(&prompt, "SOURCE: %s\n", SanitizeLogContent(r.Source))
	fmt.Fprintf(&prompt, "PARSED ENTRIES: %d\n", r.TotalRecords)
	fmt.Fprintf(&prompt, "THRESHOLD: %dms\n\n", r.ThresholdMS)

	prompt.WriteString("LOG LEVEL COUNTS:\n")
	for _, lc := range r.LevelCounts {
		fmt.Fprintf(&prompt, "- %s: %d\n", SanitizeLogContent(lc.Level), lc.Count)
	}

	prompt.WriteString("\nFREQUENT ERRORS:\n")
	if len(r.FrequentErrors) == 0 {
		prompt.WriteString("(none)\n")
	}
	for _, ec := range r.FrequentErrors {
		fmt.Fprintf(&prompt, "- %dx %s\n", ec.Count, SanitizeLogContent(ec.Message))
	}

	fmt.Fprintf(&prompt, "\nSLOW REQUESTS (%d total, slowest first):\n", len(r.Anomalies))
	for i, a := range r.Anomalies {
		if i == maxPromptAnomalies {
			fmt.Fprintf(&prompt, "... %d more omitted\n", len(r.Anomalies)-maxPromptAnomalies)
			break
		}
		fmt.Fprintf(&prompt, "- %s | %dms | %s\n", SanitizeLogContent(a.Timestamp), a.ResponseTime, SanitizeLogContent(a.Message))
	}

	prompt.WriteString("\nPlease assess the slow requests above and answer in JSON format as specified.")
	return prompt.String()
}

// promptInjectionPatterns contains regex patterns for common prompt injection attempts
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*prompt\s*:`),
	regexp.MustCompile(`(?i)\bASSISTANT\s*:`),
	regexp.MustCompile(`(?i)\bHUMAN\s*:`),
}

var excessiveNewlines = regexp.MustCompile(`\n{4,}`)

// SanitizeLogContent strips non-printable characters and prompt injection
// phrases from log text before it is placed in a prompt.
func SanitizeLogContent(content string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(content))

	for _, r := range content {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()
	for _, pattern := range promptInjectionPatterns {
		result = pattern.ReplaceAllString(result, "[FILTERED]")
	}

	return excessiveNewlines.ReplaceAllString(result, "\n\n\n")
}

// ParseInsight extracts and validates the JSON object in a model response.
func ParseInsight(response string) (*Insight, error) {
	jsonMatch := extractJSON(response)
	if jsonMatch == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	if len(jsonMatch) > maxJSONResponseSize {
		return nil, fmt.Errorf("JSON response too large: %d bytes (max: %d)", len(jsonMatch), maxJSONResponseSize)
	}

	var insight Insight
	if err := json.Unmarshal([]byte(sanitizeJSONEscapes(jsonMatch)), &insight); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateInsight(&insight); err != nil {
		return nil, fmt.Errorf("insight validation failed: %w", err)
	}
	return &insight, nil
}

func validateInsight(insight *Insight) error {
	if !validSeverities[insight.Severity] {
		return fmt.Errorf("invalid severity: %q", insight.Severity)
	}
	if strings.TrimSpace(insight.Summary) == "" {
		return fmt.Errorf("summary is required")
	}
	if insight.LikelyCauses == nil {
		insight.LikelyCauses = []string{}
	}
	if insight.Recommendations == nil {
		insight.Recommendations = []string{}
	}
	return nil
}

// Format renders the insight as plain text for an alert body.
func (i *Insight) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "AI assessment (%s severity): %s\n", i.Severity, i.Summary)
	if len(i.LikelyCauses) > 0 {
		b.WriteString("Likely causes:\n")
		for n, c := range i.LikelyCauses {
			fmt.Fprintf(&b, "%d. %s\n", n+1, c)
		}
	}
	if len(i.Recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for n, r := range i.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", n+1, r)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// sanitizeJSONEscapes drops the backslash from escapes JSON does not allow,
// such as \. or \( which models sometimes emit.
func sanitizeJSONEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			result.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		if strings.IndexByte(`"\/bfnrtu`, next) >= 0 {
			result.WriteByte('\\')
		}
		result.WriteByte(next)
		i++
	}
	return result.String()
}

// extractJSON returns the first balanced JSON object in response.
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := startIdx; i < len(response); i++ {
		char := response[i]

		switch {
		case escaped:
			escaped = false
		case char == '\\' && inString:
			escaped = true
		case char == '"':
			inString = !inString
		case inString:
		case char == '{':
			depth++
		case char == '}':
			depth--
			if depth == 0 {
				return response[startIdx : i+1]
			}
		}
	}

	return ""
}
