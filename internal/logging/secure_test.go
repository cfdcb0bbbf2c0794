package logging

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/loganalyzer-go/pkg/logger"
	"github.com/rs/zerolog"
)

const (
	testAPIKey   = "sk-ant-REDACTED"
	testBotToken = "1234567890:ABCdefGHI_jklMNOpqrSTUvwxYZ-12345678"
)

func newBufferLogger() (*SecureLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSecureZerolog(zerolog.New(&buf)), &buf
}

func assertNoSecrets(t *testing.T, output string) {
	t.Helper()
	if strings.Contains(output, "sk-ant-api03") {
		t.Errorf("output contains unsanitized API key: %s", output)
	}
	if strings.Contains(output, "ABCdefGHI_jkl") {
		t.Errorf("output contains unsanitized token: %s", output)
	}
}

func TestSecureEventStr(t *testing.T) {
	for _, value := range []string{"app.log", testAPIKey, testBotToken} {
		log, buf := newBufferLogger()
		log.Info().Str("value", value).Msg("test")
		assertNoSecrets(t, buf.String())
	}
}

func TestSecureEventErr(t *testing.T) {
	log, buf := newBufferLogger()
	log.Error().Err(errors.New("telegram error: " + testBotToken)).Msg("send failed")
	assertNoSecrets(t, buf.String())
	if !strings.Contains(buf.String(), `"error":`) {
		t.Errorf("Expected error field, got %s", buf.String())
	}

	log, buf = newBufferLogger()
	log.Error().Err(nil).Msg("no error")
	if strings.Contains(buf.String(), `"error":`) {
		t.Errorf("Expected no error field for nil error, got %s", buf.String())
	}
}

func TestSecureEventMsg(t *testing.T) {
	log, buf := newBufferLogger()
	log.Warn().Msg("Using key " + testAPIKey)
	assertNoSecrets(t, buf.String())
}

func TestSecureEventMsgf(t *testing.T) {
	log, buf := newBufferLogger()
	log.Info().Msgf("Key: %s, Count: %d", testAPIKey, 42)

	output := buf.String()
	assertNoSecrets(t, output)
	if !strings.Contains(output, "42") {
		t.Errorf("output should contain non-string argument 42")
	}
}

func TestSecureEventChaining(t *testing.T) {
	log, buf := newBufferLogger()
	log.Info().
		Str("key", testAPIKey).
		Int("records", 10).
		Int64("total", 100).
		Float64("ratio", 0.5).
		Bool("tail", true).
		Dur("elapsed", 2*time.Second).
		Msg("chained")

	output := buf.String()
	assertNoSecrets(t, output)
	for _, want := range []string{`"records":10`, `"total":100`, `"ratio":0.5`, `"tail":true`, "chained"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in output: %s", want, output)
		}
	}
}

func TestWith(t *testing.T) {
	log, buf := newBufferLogger()
	log.With("source", "s3://bucket/app.log?api_key=secret123456").Info().Msg("reading")

	output := buf.String()
	if strings.Contains(output, "secret123456") {
		t.Errorf("Expected source field to be sanitized: %s", output)
	}
	if !strings.Contains(output, "s3://bucket/app.log") {
		t.Errorf("Expected source field in output: %s", output)
	}
}

func TestNewSecureClose(t *testing.T) {
	base := logger.New(logger.Config{LogDir: filepath.Join(t.TempDir(), "logs")})
	log := NewSecure(base)
	log.Info().Msg("to file")

	if err := log.Close(); err != nil {
		t.Errorf("Expected Close to succeed, got %v", err)
	}
	if err := Nop().Close(); err != nil {
		t.Errorf("Expected Nop Close to succeed, got %v", err)
	}
}
