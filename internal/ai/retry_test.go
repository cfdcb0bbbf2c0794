package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		rateLimit  bool
		overloaded bool
		retryable  bool
	}{
		{
			name:      "API rate limit error",
			err:       &anthropic.APIError{Type: anthropic.ErrTypeRateLimit, Message: "Rate limit exceeded"},
			rateLimit: true,
			retryable: true,
		},
		{
			name:       "API overloaded error",
			err:        &anthropic.APIError{Type: anthropic.ErrTypeOverloaded, Message: "Overloaded"},
			overloaded: true,
			retryable:  true,
		},
		{
			name: "API authentication error",
			err:  &anthropic.APIError{Type: anthropic.ErrTypeAuthentication, Message: "Invalid API key"},
		},
		{
			name: "API invalid request error",
			err:  &anthropic.APIError{Type: anthropic.ErrTypeInvalidRequest, Message: "Bad model"},
		},
		{
			name:      "Wrapped rate limit message",
			err:       errors.New("API call failed: rate_limit_error: exceeded"),
			rateLimit: true,
			retryable: true,
		},
		{
			name:       "Status 503 message",
			err:        errors.New("API returned status 503"),
			overloaded: true,
			retryable:  true,
		},
		{
			name:      "Connection error",
			err:       errors.New("connection reset by peer"),
			retryable: true,
		},
		{
			name: "Context canceled",
			err:  context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimitError(tt.err); got != tt.rateLimit {
				t.Errorf("isRateLimitError() = %v, want %v", got, tt.rateLimit)
			}
			if got := isOverloadedError(tt.err); got != tt.overloaded {
				t.Errorf("isOverloadedError() = %v, want %v", got, tt.overloaded)
			}
			if got := isRetryable(tt.err); got != tt.retryable {
				t.Errorf("isRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}

	if isRateLimitError(nil) || isOverloadedError(nil) {
		t.Error("nil error should not be classified")
	}
}

func TestGetBackoffDuration(t *testing.T) {
	rateLimit := &anthropic.APIError{Type: anthropic.ErrTypeRateLimit}
	normal := errors.New("connection timeout")

	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
	}{
		{"Rate limit attempt 1", rateLimit, 1, 60 * time.Second},
		{"Rate limit attempt 2", rateLimit, 2, 120 * time.Second},
		{"Rate limit capped", rateLimit, 3, 120 * time.Second},
		{"Normal attempt 1", normal, 1, 2 * time.Second},
		{"Normal attempt 2", normal, 2, 4 * time.Second},
		{"Normal attempt 3", normal, 3, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getBackoffDuration(tt.err, tt.attempt); got != tt.want {
				t.Errorf("getBackoffDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func recordSleeps() (func(context.Context, time.Duration) error, *[]time.Duration) {
	var slept []time.Duration
	return func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}, &slept
}

func TestRetryWithBackoff(t *testing.T) {
	sleep, slept := recordSleeps()
	calls := 0

	got, err := retryWithBackoff(context.Background(), 3, sleep, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff() failed: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("Expected ok after 3 calls, got %q after %d", got, calls)
	}
	if len(*slept) != 2 || (*slept)[0] != 2*time.Second || (*slept)[1] != 4*time.Second {
		t.Errorf("Unexpected backoffs: %v", *slept)
	}
}

func TestRetryWithBackoffPermanentError(t *testing.T) {
	sleep, slept := recordSleeps()
	calls := 0
	authErr := &anthropic.APIError{Type: anthropic.ErrTypeAuthentication, Message: "Invalid API key"}

	_, err := retryWithBackoff(context.Background(), 3, sleep, func() (int, error) {
		calls++
		return 0, authErr
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 || len(*slept) != 0 {
		t.Errorf("Expected a single attempt, got %d calls and sleeps %v", calls, *slept)
	}

	var apiErr *anthropic.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Expected APIError in chain, got %v", err)
	}
}

func TestRetryWithBackoffContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retryWithBackoff(ctx, 3, sleepContext, func() (int, error) {
		return 0, errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
