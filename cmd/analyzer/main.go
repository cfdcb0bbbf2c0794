package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olegiv/loganalyzer-go/internal/ai"
	"github.com/olegiv/loganalyzer-go/internal/config"
	"github.com/olegiv/loganalyzer-go/internal/logging"
	"github.com/olegiv/loganalyzer-go/internal/notification"
	"github.com/olegiv/loganalyzer-go/internal/parser"
	"github.com/olegiv/loganalyzer-go/internal/remote"
	"github.com/olegiv/loganalyzer-go/internal/report"
	"github.com/olegiv/loganalyzer-go/pkg/logger"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// Version information - injected at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli := config.ParseCLI()

	if cli.ShowHelp {
		return exitSuccess
	}

	if cli.ShowVersion {
		fmt.Printf("log-analyzer %s\n", version)
		if gitCommit != "unknown" {
			fmt.Printf("  commit: %s\n", gitCommit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
		return exitSuccess
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithCLI(cli)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitFailure
	}

	baseLog := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		LogDir:     cfg.LogDir,
		Filename:   "analyzer.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		Console:    true,
	})
	log := logging.NewSecure(baseLog)
	defer func() {
		if err := log.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	log.Info().Str("source", cfg.SourceName()).Str("version", version).Msg("Starting log analyzer")

	if err := runAnalyzer(ctx, cfg, log, os.Stdout, os.Stderr); err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		return exitFailure
	}

	log.Info().Msg("Analysis completed successfully")
	return exitSuccess
}

// runAnalyzer parses the configured source, writes the report to stdout
// and alerts on response time anomalies. Alert delivery problems are
// logged but do not fail the run. Dry-run alerts go to stderr so that
// stdout carries only the report.
func runAnalyzer(ctx context.Context, cfg *config.Config, log *logging.SecureLogger, stdout, stderr io.Writer) error {
	startTime := time.Now()

	renderer, err := report.NewRenderer(cfg.OutputFormat)
	if err != nil {
		return err
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info().Str("source", src.Name()).Int("tail", cfg.TailLines).Msg("Parsing log source")
	records, err := parser.NewReader(cfg.MaxLogSizeMB).Read(src, cfg.TailLines)
	if err != nil {
		return fmt.Errorf("failed to read log source: %w", err)
	}

	if len(records) == 0 {
		log.Warn().Str("source", src.Name()).Msg("No logs found or failed to parse")
		_, _ = fmt.Fprintln(stderr, "No logs found or failed to parse.")
		return nil
	}
	log.Info().Int("records", len(records)).Msg("Parsed log entries")

	rep := report.Build(src.Name(), records, report.Options{
		ThresholdMS:   cfg.ResponseTimeThresholdMS,
		MinErrorCount: cfg.FrequentErrorMinCount,
	})
	if err := renderer.Render(stdout, rep); err != nil {
		return fmt.Errorf("failed to write %s report: %w", renderer.Name(), err)
	}

	log.Info().
		Int("levels", len(rep.LevelCounts)).
		Int("frequent_errors", len(rep.FrequentErrors)).
		Int("anomalies", len(rep.Anomalies)).
		Int("threshold_ms", rep.ThresholdMS).
		Msg("Analysis finished")

	if rep.HasAnomalies() && cfg.ShouldNotify() {
		if err := sendAlert(ctx, cfg, log, rep, stderr); err != nil {
			log.Warn().Err(err).Msg("Failed to send alert, report is still valid")
		}
	}

	log.Info().Dur("duration", time.Since(startTime)).Msg("Run finished")
	return nil
}

// openSource returns the S3 object when configured, otherwise the local file.
func openSource(ctx context.Context, cfg *config.Config) (parser.Source, error) {
	if cfg.S3URI == "" {
		return parser.NewFileSource(cfg.LogFilePath), nil
	}

	fetcher, err := remote.NewS3Fetcher(ctx, cfg.AWSRegion, cfg.MaxLogSizeMB)
	if err != nil {
		return nil, err
	}
	src, err := fetcher.Fetch(ctx, cfg.S3URI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch log source: %w", err)
	}
	return src, nil
}

func sendAlert(ctx context.Context, cfg *config.Config, log *logging.SecureLogger, rep *report.Report, dryRunOut io.Writer) error {
	notifier, err := notification.New(cfg, dryRunOut)
	if err != nil {
		return fmt.Errorf("failed to initialize %s notifier: %w", cfg.NotifyChannel, err)
	}

	body := report.AlertBody(rep.Anomalies)
	if cfg.EnableAIInsights {
		if insight := explain(ctx, cfg, log, rep); insight != "" {
			body += "\n\n" + insight
		}
	}

	log.Info().Str("channel", notifier.Name()).Int("anomalies", len(rep.Anomalies)).Msg("Sending alert")
	if err := notifier.Send(ctx, report.AlertSubject, body); err != nil {
		return err
	}
	log.Info().Str("channel", notifier.Name()).Msg("Alert sent")
	return nil
}

// explain returns Claude's formatted assessment, or "" when it is unavailable.
func explain(ctx context.Context, cfg *config.Config, log *logging.SecureLogger, rep *report.Report) string {
	client, err := ai.NewClient(ai.ClientConfig{
		APIKey:         cfg.AnthropicAPIKey,
		Model:          cfg.ClaudeModel,
		ProxyURL:       cfg.GetProxyURL(true),
		TimeoutSeconds: cfg.AITimeoutSeconds,
		MaxTokens:      cfg.AIMaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Claude client, sending alert without insight")
		return ""
	}

	insight, stats, err := client.Explain(ctx, rep)
	if err != nil {
		log.Warn().Err(err).Msg("AI insight failed, sending alert without it")
		return ""
	}

	log.Info().
		Str("model", client.Model()).
		Str("severity", insight.Severity).
		Int("input_tokens", stats.InputTokens).
		Int("output_tokens", stats.OutputTokens).
		Float64("cost_usd", stats.CostUSD).
		Float64("duration_seconds", stats.DurationSeconds).
		Msg("AI insight received")
	return insight.Format()
}
