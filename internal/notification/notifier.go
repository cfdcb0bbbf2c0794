// Package notification delivers alerts to the configured channel.
package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olegiv/loganalyzer-go/internal/config"
)

// Notifier sends one alert.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
	Name() string
}

// ErrDisabled is returned by New when the notification channel is "none".
var ErrDisabled = errors.New("notifications are disabled")

// New builds the notifier selected by cfg. Dry runs print to out instead
// of contacting the channel.
func New(cfg *config.Config, out io.Writer) (Notifier, error) {
	if !cfg.ShouldNotify() {
		return nil, ErrDisabled
	}
	if cfg.DryRun {
		return NewDryRun(out, cfg.NotifyChannel, dryRunRecipient(cfg)), nil
	}

	switch cfg.NotifyChannel {
	case config.ChannelEmail:
		return NewEmailNotifier(EmailConfig{
			Host:       cfg.EmailHost,
			Port:       cfg.EmailPort,
			Username:   cfg.EmailUser,
			Password:   cfg.EmailPassword,
			UseSSL:     cfg.EmailUseSSL,
			SenderName: cfg.SenderName,
			To:         cfg.AlertEmailTo,
		})
	case config.ChannelTelegram:
		return NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	case config.ChannelWebhook:
		return NewWebhookNotifier(WebhookConfig{
			URL:     cfg.WebhookURL,
			Token:   cfg.WebhookToken,
			Timeout: time.Duration(cfg.WebhookTimeoutSeconds) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown notification channel: %s", cfg.NotifyChannel)
	}
}

func dryRunRecipient(cfg *config.Config) string {
	switch cfg.NotifyChannel {
	case config.ChannelEmail:
		return cfg.AlertEmailTo
	case config.ChannelTelegram:
		return fmt.Sprintf("chat %d", cfg.TelegramChatID)
	case config.ChannelWebhook:
		return cfg.WebhookURL
	}
	return ""
}

// DryRunNotifier prints alerts instead of sending them.
type DryRunNotifier struct {
	out       io.Writer
	channel   string
	recipient string
}

// NewDryRun creates a notifier that writes alerts to out.
func NewDryRun(out io.Writer, channel, recipient string) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out, channel: channel, recipient: recipient}
}

// Name returns the channel this dry run stands in for.
func (d *DryRunNotifier) Name() string {
	return d.channel + " (dry run)"
}

// Send prints the alert.
func (d *DryRunNotifier) Send(_ context.Context, subject, body string) error {
	_, err := fmt.Fprintf(d.out, "[DRY RUN] %s alert to %s:\nSubject: %s\n\n%s\n", d.channel, d.recipient, subject, body)
	return err
}
