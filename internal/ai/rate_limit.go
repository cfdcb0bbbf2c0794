package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

const (
	// rateLimitBaseBackoff matches Anthropic's per-minute token windows
	rateLimitBaseBackoff = 60 * time.Second

	// rateLimitMaxBackoff caps waits for rate limit and overload errors
	rateLimitMaxBackoff = 120 * time.Second
)

// isRateLimitError reports whether err is an Anthropic rate limit error.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimitErr()
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate_limit_error") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests")
}

// isOverloadedError reports whether the API is temporarily overloaded.
func isOverloadedError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsOverloadedErr()
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "503")
}

// isRetryable is false for errors another attempt cannot fix.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return !apiErr.IsAuthenticationErr() && !apiErr.IsPermissionErr() && !apiErr.IsInvalidRequestErr()
	}
	return true
}

// getBackoffDuration returns 60-120s for rate limit and overload errors and
// 2^attempt seconds otherwise.
func getBackoffDuration(err error, attempt int) time.Duration {
	if isRateLimitError(err) || isOverloadedError(err) {
		backoff := rateLimitBaseBackoff * time.Duration(attempt)
		return min(backoff, rateLimitMaxBackoff)
	}
	return time.Duration(1<<attempt) * time.Second
}
