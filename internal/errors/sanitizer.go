// Package errors redacts credentials from errors and log strings before
// they reach logs, reports or notification channels.
package errors

import (
	"fmt"
	"regexp"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// redaction replaces matches of pattern with replacement.
type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// credentialPatterns covers the secrets this tool is configured with:
// Anthropic keys, Telegram bot tokens, SMTP and webhook credentials, and
// AWS keys used for S3 sources.
var credentialPatterns = []redaction{
	// Anthropic API key: sk-ant-api03-...
	{regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{10,}`), redactedPlaceholder},
	// Telegram bot token: 123456789:ABC-DEF...
	{regexp.MustCompile(`\d{8,12}:[a-zA-Z0-9_-]{30,}`), redactedPlaceholder},
	// Bearer tokens, as sent to webhooks
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_.~+/=-]+`), redactedPlaceholder},
	{regexp.MustCompile(`(?i)authorization[:\s]+[^\s]+`), redactedPlaceholder},
	{regexp.MustCompile(`(?i)(x-)?api[_-]?key[=:\s]+[^\s&"']+`), redactedPlaceholder},
	// AWS access key IDs and secret keys
	{regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`), redactedPlaceholder},
	{regexp.MustCompile(`(?i)aws_secret_access_key[=:\s]+[^\s&"']+`), redactedPlaceholder},
	// Passwords in key=value form and in URL user info
	{regexp.MustCompile(`(?i)password[=:]\s*[^\s&"']+`), redactedPlaceholder},
	{regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://[^:/\s@]+:)[^@\s]+@`), "${1}" + redactedPlaceholder + "@"},
}

// SanitizeError returns err with credentials redacted from its message.
// The original error stays reachable through errors.Unwrap.
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}

	sanitized := SanitizeString(err.Error())
	if sanitized == err.Error() {
		return err
	}

	return &sanitizedError{
		original:  err,
		sanitized: sanitized,
	}
}

// SanitizeString redacts credential patterns from a string.
func SanitizeString(s string) string {
	result := s
	for _, r := range credentialPatterns {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Wrapf is fmt.Errorf("...: %w", err) for errors that may carry
// credentials, such as SMTP, Telegram or Anthropic client errors.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, SanitizeError(err))
}

type sanitizedError struct {
	original  error
	sanitized string
}

func (e *sanitizedError) Error() string {
	return e.sanitized
}

func (e *sanitizedError) Unwrap() error {
	return e.original
}

// ContainsCredentials reports whether s matches any credential pattern.
func ContainsCredentials(s string) bool {
	for _, r := range credentialPatterns {
		if r.pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// MaskCredential partially masks a credential for display,
// e.g. "sk-ant-api03-abc123..." -> "sk-ant-***...".
func MaskCredential(s string) string {
	if len(s) < 10 {
		return strings.Repeat("*", len(s))
	}

	if strings.HasPrefix(s, "sk-ant-") {
		return "sk-ant-***..."
	}

	// Telegram bot token (number:token)
	if idx := strings.Index(s, ":"); idx > 0 && idx <= 12 {
		return s[:idx] + ":***..."
	}

	return s[:4] + "***..."
}
