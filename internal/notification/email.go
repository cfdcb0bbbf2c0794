package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	internalerrors "github.com/olegiv/loganalyzer-go/internal/errors"
)

const emailTimeout = 30 * time.Second

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	UseSSL     bool // implicit TLS; otherwise STARTTLS is required
	SenderName string
	To         string
}

// mailSender is the subset of mail.Client used for delivery.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier sends alerts over SMTP.
type EmailNotifier struct {
	cfg    EmailConfig
	client mailSender
}

// NewEmailNotifier creates an SMTP notifier authenticated with PLAIN auth.
func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(emailTimeout),
	}
	if cfg.UseSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, internalerrors.Wrapf(err, "failed to create SMTP client")
	}
	return &EmailNotifier{cfg: cfg, client: client}, nil
}

// Name returns the channel name.
func (e *EmailNotifier) Name() string {
	return "email"
}

// Send delivers a plain-text alert to the configured recipient.
func (e *EmailNotifier) Send(ctx context.Context, subject, body string) error {
	msg, err := e.buildMessage(subject, body)
	if err != nil {
		return err
	}
	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		return internalerrors.Wrapf(err, "failed to send email via %s:%d", e.cfg.Host, e.cfg.Port)
	}
	return nil
}

func (e *EmailNotifier) buildMessage(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(e.cfg.SenderName, e.cfg.Username); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(e.cfg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
