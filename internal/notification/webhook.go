package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"

	internalerrors "github.com/olegiv/loganalyzer-go/internal/errors"
)

// DefaultWebhookTimeout is the default HTTP request timeout.
const DefaultWebhookTimeout = 10 * time.Second

// WebhookConfig configures webhook delivery.
type WebhookConfig struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultWebhookTimeout if zero)
}

// WebhookPayload is the JSON body posted for each alert.
type WebhookPayload struct {
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Hostname string    `json:"hostname"`
	SentAt   time.Time `json:"sent_at"`
}

// WebhookNotifier posts alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	cfg        WebhookConfig
	httpClient *http.Client
	hostname   string
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultWebhookTimeout
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &WebhookNotifier{
		cfg:        cfg,
		httpClient: &http.Client{},
		hostname:   hostname,
	}
}

// Name returns the channel name.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// Send posts the alert. Any non-2xx status is an error.
func (w *WebhookNotifier) Send(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(WebhookPayload{
		Subject:  subject,
		Body:     body,
		Hostname: w.hostname,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return internalerrors.Wrapf(err, "failed to create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "log-analyzer-webhook")
	if w.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.Token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// URLs may carry credentials in userinfo or query parameters
		return internalerrors.Wrapf(err, "webhook request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain a bounded amount so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
