package config

import (
	"crypto/subtle"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Notification channels
const (
	ChannelNone     = "none"
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelWebhook  = "webhook"
)

// Report output formats
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// CLIOptions holds command-line argument overrides
type CLIOptions struct {
	SourcePath  string // -source-path: log file to analyze
	S3URI       string // -s3-uri: s3://bucket/key object to analyze
	Tail        int    // -tail: only analyze the last N lines (0 = all)
	Threshold   int    // -threshold: response time threshold in ms (0 = config)
	Format      string // -format: report output format
	DryRun      bool   // -dry-run: print the alert instead of sending it
	NoNotify    bool   // -no-notify: never send alerts
	ShowHelp    bool   // -help: show usage
	ShowVersion bool   // -version: show version
}

// ParseCLI parses os.Args. It exits on invalid flags, like flag.Parse.
func ParseCLI() *CLIOptions {
	opts, err := ParseCLIArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return &CLIOptions{ShowHelp: true}
		}
		os.Exit(2)
	}
	return opts
}

// ParseCLIArgs parses args into CLIOptions, writing usage to out.
func ParseCLIArgs(args []string, out io.Writer) (*CLIOptions, error) {
	opts := &CLIOptions{}
	fs := flag.NewFlagSet("log-analyzer", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&opts.SourcePath, "source-path", "", "Path to the log file (overrides LOG_FILE_PATH)")
	fs.StringVar(&opts.S3URI, "s3-uri", "", "Analyze an S3 object instead of a local file (s3://bucket/key)")
	fs.IntVar(&opts.Tail, "tail", 0, "Only analyze the last N lines (0 = whole file)")
	fs.IntVar(&opts.Threshold, "threshold", 0, "Response time threshold in ms (overrides RESPONSE_TIME_THRESHOLD)")
	fs.StringVar(&opts.Format, "format", "", "Report format: text, json, markdown, csv (overrides OUTPUT_FORMAT)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Print the alert instead of sending it")
	fs.BoolVar(&opts.NoNotify, "no-notify", false, "Do not send alerts")
	fs.BoolVar(&opts.ShowHelp, "help", false, "Show usage information")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Show version information")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(out, "Log Analyzer - level counts, frequent errors and response time anomalies\n\n")
		_, _ = fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(out, "\nExamples:\n")
		_, _ = fmt.Fprintf(out, "  %s -source-path logs/app.log\n", os.Args[0])
		_, _ = fmt.Fprintf(out, "  %s -source-path logs/app.log.1.gz -tail 500 -format markdown\n", os.Args[0])
		_, _ = fmt.Fprintf(out, "  %s -s3-uri s3://my-bucket/logs/app.log -threshold 2000\n", os.Args[0])
		_, _ = fmt.Fprintf(out, "\nEnvironment variables can be set in .env file or exported directly.\n")
		_, _ = fmt.Fprintf(out, "CLI arguments override environment variables.\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.ShowHelp {
		fs.Usage()
	}
	return opts, nil
}

// Config holds all application configuration
type Config struct {
	// Log source
	LogFilePath  string
	S3URI        string
	AWSRegion    string
	TailLines    int
	MaxLogSizeMB int

	// Analysis
	ResponseTimeThresholdMS int
	FrequentErrorMinCount   int

	// Output
	OutputFormat string

	// Application logging
	LogLevel string
	LogDir   string

	// Notification
	NotifyChannel string
	DryRun        bool

	// Email (SMTP)
	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPassword string
	EmailUseSSL   bool
	AlertEmailTo  string
	SenderName    string

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64

	// Webhook
	WebhookURL            string
	WebhookToken          string
	WebhookTimeoutSeconds int

	// AI insights
	EnableAIInsights bool
	AnthropicAPIKey  string
	ClaudeModel      string
	AITimeoutSeconds int
	AIMaxTokens      int

	// Proxy
	HTTPProxy  string
	HTTPSProxy string
}

// Load loads configuration from .env file and environment variables.
func Load() (*Config, error) {
	return LoadWithCLI(nil)
}

// LoadWithCLI loads configuration with CLI argument overrides.
// Priority: CLI args > OS environment variables > .env file > defaults
func LoadWithCLI(cli *CLIOptions) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// godotenv.Load only sets variables that are not already exported
	_ = godotenv.Load()

	setDefaults(v)

	config := &Config{
		LogFilePath:  v.GetString("LOG_FILE_PATH"),
		AWSRegion:    v.GetString("AWS_REGION"),
		MaxLogSizeMB: v.GetInt("MAX_LOG_SIZE_MB"),

		ResponseTimeThresholdMS: v.GetInt("RESPONSE_TIME_THRESHOLD"),
		FrequentErrorMinCount:   v.GetInt("FREQUENT_ERROR_MIN_COUNT"),

		OutputFormat: strings.ToLower(v.GetString("OUTPUT_FORMAT")),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogDir:       v.GetString("LOG_DIR"),

		NotifyChannel: strings.ToLower(v.GetString("NOTIFY_CHANNEL")),

		EmailHost:     v.GetString("EMAIL_HOST"),
		EmailPort:     v.GetInt("EMAIL_PORT"),
		EmailUser:     v.GetString("EMAIL_USER"),
		EmailPassword: v.GetString("EMAIL_PASSWORD"),
		EmailUseSSL:   v.GetBool("EMAIL_USE_SSL"),
		AlertEmailTo:  v.GetString("ALERT_EMAIL_TO"),
		SenderName:    v.GetString("SENDER_NAME"),

		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   v.GetInt64("TELEGRAM_CHAT_ID"),

		WebhookURL:            v.GetString("WEBHOOK_URL"),
		WebhookToken:          v.GetString("WEBHOOK_TOKEN"),
		WebhookTimeoutSeconds: v.GetInt("WEBHOOK_TIMEOUT_SECONDS"),

		EnableAIInsights: v.GetBool("ENABLE_AI_INSIGHTS"),
		AnthropicAPIKey:  v.GetString("ANTHROPIC_API_KEY"),
		ClaudeModel:      v.GetString("CLAUDE_MODEL"),
		AITimeoutSeconds: v.GetInt("AI_TIMEOUT_SECONDS"),
		AIMaxTokens:      v.GetInt("AI_MAX_TOKENS"),

		HTTPProxy:  v.GetString("HTTP_PROXY"),
		HTTPSProxy: v.GetString("HTTPS_PROXY"),
	}

	config.applyCLI(cli)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyCLI(cli *CLIOptions) {
	if cli == nil {
		return
	}
	if cli.SourcePath != "" {
		c.LogFilePath = cli.SourcePath
	}
	if cli.S3URI != "" {
		c.S3URI = cli.S3URI
	}
	if cli.Tail != 0 {
		c.TailLines = cli.Tail
	}
	if cli.Threshold != 0 {
		c.ResponseTimeThresholdMS = cli.Threshold
	}
	if cli.Format != "" {
		c.OutputFormat = strings.ToLower(cli.Format)
	}
	if cli.DryRun {
		c.DryRun = true
	}
	if cli.NoNotify {
		c.NotifyChannel = ChannelNone
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_FILE_PATH", "logs/sample.log")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("MAX_LOG_SIZE_MB", 50)
	v.SetDefault("RESPONSE_TIME_THRESHOLD", 1000)
	v.SetDefault("FREQUENT_ERROR_MIN_COUNT", 2)
	v.SetDefault("OUTPUT_FORMAT", FormatText)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("NOTIFY_CHANNEL", ChannelNone)
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_USE_SSL", false)
	v.SetDefault("SENDER_NAME", "Log-Analyzer")
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 10)
	v.SetDefault("ENABLE_AI_INSIGHTS", false)
	v.SetDefault("CLAUDE_MODEL", "claude-sonnet-4-5-20250929")
	v.SetDefault("AI_TIMEOUT_SECONDS", 120)
	v.SetDefault("AI_MAX_TOKENS", 1024)
}

var telegramTokenRegex = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.S3URI == "" && c.LogFilePath == "" {
		return fmt.Errorf("LOG_FILE_PATH is required")
	}
	if c.S3URI != "" {
		if _, _, err := ParseS3URI(c.S3URI); err != nil {
			return err
		}
	}

	if c.TailLines < 0 {
		return fmt.Errorf("tail must not be negative")
	}
	if c.MaxLogSizeMB < 1 || c.MaxLogSizeMB > 1024 {
		return fmt.Errorf("MAX_LOG_SIZE_MB must be between 1 and 1024")
	}
	if c.ResponseTimeThresholdMS < 1 {
		return fmt.Errorf("RESPONSE_TIME_THRESHOLD must be a positive number of milliseconds")
	}
	if c.FrequentErrorMinCount < 1 {
		return fmt.Errorf("FREQUENT_ERROR_MIN_COUNT must be at least 1")
	}

	validFormats := map[string]bool{FormatText: true, FormatJSON: true, FormatMarkdown: true, FormatCSV: true}
	if !validFormats[c.OutputFormat] {
		return fmt.Errorf("OUTPUT_FORMAT must be one of: text, json, markdown, csv (got: %s)", c.OutputFormat)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if err := c.validateNotification(); err != nil {
		return err
	}

	return c.validateAI()
}

// validateNotification validates the settings of the selected channel.
// Dry runs never contact the channel, so its credentials are not required.
func (c *Config) validateNotification() error {
	switch c.NotifyChannel {
	case ChannelNone:
		return nil
	case ChannelEmail, ChannelTelegram, ChannelWebhook:
	default:
		return fmt.Errorf("NOTIFY_CHANNEL must be 'none', 'email', 'telegram' or 'webhook' (got: %s)", c.NotifyChannel)
	}

	if c.DryRun {
		return nil
	}

	switch c.NotifyChannel {
	case ChannelEmail:
		if c.EmailHost == "" {
			return fmt.Errorf("EMAIL_HOST is required when NOTIFY_CHANNEL=email")
		}
		if c.EmailPort < 1 || c.EmailPort > 65535 {
			return fmt.Errorf("EMAIL_PORT must be between 1 and 65535")
		}
		if c.EmailUser == "" || c.EmailPassword == "" {
			return fmt.Errorf("EMAIL_USER and EMAIL_PASSWORD are required when NOTIFY_CHANNEL=email")
		}
		if _, err := mail.ParseAddress(c.AlertEmailTo); err != nil {
			return fmt.Errorf("ALERT_EMAIL_TO must be a valid email address")
		}

	case ChannelTelegram:
		if c.TelegramBotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when NOTIFY_CHANNEL=telegram")
		}
		if !telegramTokenRegex.MatchString(c.TelegramBotToken) {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN has invalid format (expected: 'number:token')")
		}
		if c.TelegramChatID == 0 {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required when NOTIFY_CHANNEL=telegram")
		}

	case ChannelWebhook:
		u, err := url.Parse(c.WebhookURL)
		if c.WebhookURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an http(s) URL when NOTIFY_CHANNEL=webhook")
		}
		if c.WebhookTimeoutSeconds < 1 || c.WebhookTimeoutSeconds > 300 {
			return fmt.Errorf("WEBHOOK_TIMEOUT_SECONDS must be between 1 and 300")
		}
	}

	return nil
}

func (c *Config) validateAI() error {
	if !c.EnableAIInsights {
		return nil
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when ENABLE_AI_INSIGHTS=true")
	}
	// Constant-time comparison to avoid leaking key content through timing
	if !constantTimePrefixMatch(c.AnthropicAPIKey, "sk-ant-") {
		return fmt.Errorf("ANTHROPIC_API_KEY must start with 'sk-ant-'")
	}
	if c.ClaudeModel == "" {
		return fmt.Errorf("CLAUDE_MODEL is required when ENABLE_AI_INSIGHTS=true")
	}
	if c.AITimeoutSeconds < 10 || c.AITimeoutSeconds > 600 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be between 10 and 600")
	}
	if c.AIMaxTokens < 256 || c.AIMaxTokens > 8000 {
		return fmt.Errorf("AI_MAX_TOKENS must be between 256 and 8000")
	}
	return nil
}

// ShouldNotify returns true if alerts go to a real or dry-run channel.
func (c *Config) ShouldNotify() bool {
	return c.NotifyChannel != ChannelNone
}

// GetProxyURL returns the appropriate proxy URL for HTTP/HTTPS requests
func (c *Config) GetProxyURL(isHTTPS bool) string {
	if isHTTPS && c.HTTPSProxy != "" {
		return c.HTTPSProxy
	}
	if c.HTTPProxy != "" {
		return c.HTTPProxy
	}
	return ""
}

// SourceName returns the S3 URI when set, otherwise the log file path.
func (c *Config) SourceName() string {
	if c.S3URI != "" {
		return c.S3URI
	}
	return c.LogFilePath
}

// ParseS3URI splits s3://bucket/key into its bucket and key. The key is
// taken verbatim, so "?", "#" and percent signs stay part of it.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("S3 URI must look like s3://bucket/key (got: %s)", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("S3 URI must name both bucket and key (got: %s)", uri)
	}
	return bucket, key, nil
}

// constantTimePrefixMatch checks if s starts with prefix using constant-time comparison.
// Returns false if s is shorter than prefix.
func constantTimePrefixMatch(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s[:len(prefix)]), []byte(prefix)) == 1
}
