package notification

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	internalerrors "github.com/olegiv/loganalyzer-go/internal/errors"
)

const (
	maxMessageLength = 4096
	// minMessageInterval is the minimum time between messages to the same chat
	minMessageInterval = 1 * time.Second
	// maxRetries is the maximum number of attempts per message
	maxRetries = 3
	// baseRetryDelay is the initial delay between retries (doubles each attempt)
	baseRetryDelay = 2 * time.Second
)

// botSender is the subset of tgbotapi.BotAPI used for delivery.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends alerts to a Telegram chat
type TelegramNotifier struct {
	bot             botSender
	chatID          int64
	hostname        string
	lastMessageTime time.Time
	sleep           func(ctx context.Context, d time.Duration) error
}

// NewTelegramNotifier creates a notifier for the given bot and chat
func NewTelegramNotifier(botToken string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		// The bot token is part of the API URL and can leak into the error
		return nil, internalerrors.Wrapf(err, "failed to create Telegram bot")
	}
	return newTelegramNotifier(bot, chatID), nil
}

func newTelegramNotifier(bot botSender, chatID int64) *TelegramNotifier {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &TelegramNotifier{
		bot:      bot,
		chatID:   chatID,
		hostname: hostname,
		sleep:    sleepContext,
	}
}

// Name returns the channel name.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// Send formats the alert as MarkdownV2 and delivers it, split into
// several messages when it exceeds Telegram's limit.
func (t *TelegramNotifier) Send(ctx context.Context, subject, body string) error {
	for _, msg := range splitMessage(t.formatMessage(subject, body)) {
		if err := t.waitForRateLimit(ctx); err != nil {
			return err
		}

		msgConfig := tgbotapi.NewMessage(t.chatID, msg)
		msgConfig.ParseMode = tgbotapi.ModeMarkdownV2

		if err := t.sendWithRetry(ctx, msgConfig); err != nil {
			return err
		}
		t.lastMessageTime = time.Now()
	}
	return nil
}

func (t *TelegramNotifier) formatMessage(subject, body string) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("🚨 *%s*\n", escapeMarkdown(subject)))
	msg.WriteString(fmt.Sprintf("🖥 Host\\: %s\n", escapeMarkdown(t.hostname)))
	msg.WriteString(fmt.Sprintf("📅 Date\\: %s\n\n", escapeMarkdown(time.Now().Format("2006-01-02 15:04:05"))))

	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			msg.WriteString("\n")
			continue
		}
		msg.WriteString("• ")
		msg.WriteString(escapeMarkdown(line))
		msg.WriteString("\n")
	}

	return msg.String()
}

// waitForRateLimit ensures minimum interval between messages
func (t *TelegramNotifier) waitForRateLimit(ctx context.Context) error {
	if t.lastMessageTime.IsZero() {
		return nil
	}
	elapsed := time.Since(t.lastMessageTime)
	if elapsed < minMessageInterval {
		return t.sleep(ctx, minMessageInterval-elapsed)
	}
	return nil
}

// sendWithRetry sends a message with exponential backoff retry
func (t *TelegramNotifier) sendWithRetry(ctx context.Context, msgConfig tgbotapi.MessageConfig) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err := t.bot.Send(msgConfig)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		delay := baseRetryDelay * time.Duration(1<<(attempt-1)) // 2s, 4s
		if isRateLimitError(err) {
			delay = time.Duration(extractRetryAfter(err)) * time.Second
		}
		if err := t.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return internalerrors.Wrapf(lastErr, "failed to send message after %d retries", maxRetries)
}

// isRateLimitError checks if the error is a Telegram rate limit error (429)
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") || strings.Contains(errStr, "Too Many Requests")
}

// extractRetryAfter reads N from "retry after N", defaulting to 30 seconds.
func extractRetryAfter(err error) int {
	if err == nil {
		return 0
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}

	errStr := err.Error()
	if idx := strings.Index(strings.ToLower(errStr), "retry after "); idx != -1 {
		remaining := errStr[idx+len("retry after "):]
		var seconds int
		if _, err := fmt.Sscanf(remaining, "%d", &seconds); err == nil {
			return seconds
		}
	}

	return 30
}

// splitMessage splits a long message on line boundaries
func splitMessage(message string) []string {
	if len(message) <= maxMessageLength {
		return []string{message}
	}

	var messages []string
	var current strings.Builder

	for _, line := range strings.Split(message, "\n") {
		if current.Len()+len(line)+1 > maxMessageLength {
			if current.Len() > 0 {
				messages = append(messages, current.String())
				current.Reset()
			}

			// A single line longer than the limit is cut into chunks
			if len(line) > maxMessageLength {
				for len(line) > maxMessageLength {
					n := chunkEnd(line, maxMessageLength)
					messages = append(messages, line[:n])
					line = line[n:]
				}
				messages = append(messages, line)
				continue
			}
		}

		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() > 0 {
		messages = append(messages, current.String())
	}

	return messages
}

// chunkEnd returns the length of the first chunk of an escaped line, at most
// limit bytes. The cut lands on a rune boundary and never separates a
// MarkdownV2 escape backslash from the character it escapes.
func chunkEnd(line string, limit int) int {
	end := min(limit, len(line))
	for end > 0 && end < len(line) && !utf8.RuneStart(line[end]) {
		end--
	}

	backslashes := 0
	for i := end - 1; i >= 0 && line[i] == '\\'; i-- {
		backslashes++
	}
	if backslashes%2 == 1 {
		end--
	}

	if end <= 0 {
		_, size := utf8.DecodeRuneInString(line)
		end = size
	}
	return end
}

// markdownEscaper escapes the characters reserved by Telegram MarkdownV2.
// See: https://core.telegram.org/bots/api#markdownv2-style
var markdownEscaper = func() *strings.Replacer {
	var pairs []string
	for _, c := range []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!", ":"} {
		pairs = append(pairs, c, "\\"+c)
	}
	return strings.NewReplacer(pairs...)
}()

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
