// Package ai asks Claude to explain a batch of response time anomalies.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	internalerrors "github.com/olegiv/loganalyzer-go/internal/errors"
	"github.com/olegiv/loganalyzer-go/internal/report"
)

// ClientConfig configures the Anthropic client.
type ClientConfig struct {
	APIKey         string
	Model          string
	ProxyURL       string
	BaseURL        string // overrides the API endpoint, e.g. in tests
	TimeoutSeconds int
	MaxTokens      int
}

// Client wraps the Anthropic API client
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	sleep     func(ctx context.Context, d time.Duration) error
}

// Stats holds statistics about the API call
type Stats struct {
	InputTokens     int
	OutputTokens    int
	CostUSD         float64
	DurationSeconds float64
}

// NewClient creates a new Claude client
func NewClient(cfg ClientConfig) (*Client, error) {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, internalerrors.Wrapf(err, "invalid proxy URL")
		}
		if proxyURL.Scheme != "http" && proxyURL.Scheme != "https" {
			return nil, fmt.Errorf("proxy URL must use http or https scheme, got: %s", proxyURL.Scheme)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		sleep:     sleepContext,
	}, nil
}

// Explain asks Claude for likely causes and remedies of the anomalies in r.
func (c *Client) Explain(ctx context.Context, r *report.Report) (*Insight, *Stats, error) {
	if !r.HasAnomalies() {
		return nil, nil, fmt.Errorf("report has no anomalies to explain")
	}

	start := time.Now()
	userPrompt := BuildUserPrompt(r)

	response, err := retryWithBackoff(ctx, defaultMaxRetries, c.sleep, func() (anthropic.MessagesResponse, error) {
		return c.callAPI(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		return nil, nil, err
	}

	var text strings.Builder
	for _, content := range response.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			text.WriteString(*content.Text)
		}
	}
	if text.Len() == 0 {
		return nil, nil, fmt.Errorf("empty response from Claude")
	}

	insight, err := ParseInsight(text.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse insight: %w", err)
	}

	return insight, c.calculateStats(response, time.Since(start).Seconds()), nil
}

// callAPI makes the actual API call to Claude
func (c *Client) callAPI(ctx context.Context, system, userPrompt string) (anthropic.MessagesResponse, error) {
	request := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(userPrompt),
		},
		System:    system,
		MaxTokens: c.maxTokens,
	}

	response, err := c.client.CreateMessages(ctx, request)
	if err != nil {
		return anthropic.MessagesResponse{}, internalerrors.Wrapf(err, "API call failed")
	}
	return response, nil
}

// calculateStats applies Claude Sonnet pricing: $3/MTok input, $15/MTok output.
func (c *Client) calculateStats(response anthropic.MessagesResponse, durationSeconds float64) *Stats {
	inputTokens := response.Usage.InputTokens
	outputTokens := response.Usage.OutputTokens

	cost := float64(inputTokens)/1000000*3.0 + float64(outputTokens)/1000000*15.0

	return &Stats{
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		CostUSD:         cost,
		DurationSeconds: durationSeconds,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
