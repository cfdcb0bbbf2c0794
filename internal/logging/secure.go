// Package logging wraps the application logger so that every string,
// message and error is scrubbed of credentials before it is written.
package logging

import (
	"time"

	internalerrors "github.com/olegiv/loganalyzer-go/internal/errors"
	"github.com/olegiv/loganalyzer-go/pkg/logger"
	"github.com/rs/zerolog"
)

// SecureLogger redacts credentials from everything it logs. Log lines
// parsed from user files can carry tokens too, so messages and paths go
// through the same filter as configuration values.
type SecureLogger struct {
	log    zerolog.Logger
	closer func() error
}

// NewSecure wraps an application logger.
func NewSecure(log *logger.Logger) *SecureLogger {
	return &SecureLogger{log: log.Logger, closer: log.Close}
}

// NewSecureZerolog wraps a bare zerolog logger, as used in tests.
func NewSecureZerolog(zl zerolog.Logger) *SecureLogger {
	return &SecureLogger{log: zl}
}

// Nop returns a logger that discards everything.
func Nop() *SecureLogger {
	return &SecureLogger{log: zerolog.Nop()}
}

// SecureEvent is a zerolog event whose string inputs are sanitized.
type SecureEvent struct {
	event *zerolog.Event
}

// Debug starts a debug-level event.
func (s *SecureLogger) Debug() *SecureEvent {
	return &SecureEvent{event: s.log.Debug()}
}

// Info starts an info-level event.
func (s *SecureLogger) Info() *SecureEvent {
	return &SecureEvent{event: s.log.Info()}
}

// Warn starts a warn-level event.
func (s *SecureLogger) Warn() *SecureEvent {
	return &SecureEvent{event: s.log.Warn()}
}

// Error starts an error-level event.
func (s *SecureLogger) Error() *SecureEvent {
	return &SecureEvent{event: s.log.Error()}
}

// With returns a child logger carrying a sanitized string field.
func (s *SecureLogger) With(key, val string) *SecureLogger {
	return &SecureLogger{
		log:    s.log.With().Str(key, internalerrors.SanitizeString(val)).Logger(),
		closer: s.closer,
	}
}

// Close closes the underlying logger, if it owns a file.
func (s *SecureLogger) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Str adds a sanitized string field.
func (e *SecureEvent) Str(key, val string) *SecureEvent {
	e.event.Str(key, internalerrors.SanitizeString(val))
	return e
}

// Int adds an integer field.
func (e *SecureEvent) Int(key string, val int) *SecureEvent {
	e.event.Int(key, val)
	return e
}

// Int64 adds an int64 field.
func (e *SecureEvent) Int64(key string, val int64) *SecureEvent {
	e.event.Int64(key, val)
	return e
}

// Float64 adds a float64 field.
func (e *SecureEvent) Float64(key string, val float64) *SecureEvent {
	e.event.Float64(key, val)
	return e
}

// Bool adds a boolean field.
func (e *SecureEvent) Bool(key string, val bool) *SecureEvent {
	e.event.Bool(key, val)
	return e
}

// Dur adds a duration field.
func (e *SecureEvent) Dur(key string, val time.Duration) *SecureEvent {
	e.event.Dur(key, val)
	return e
}

// Err adds a sanitized error field.
func (e *SecureEvent) Err(err error) *SecureEvent {
	if err != nil {
		e.event.Err(internalerrors.SanitizeError(err))
	}
	return e
}

// Msg sends the event with a sanitized message.
func (e *SecureEvent) Msg(msg string) {
	e.event.Msg(internalerrors.SanitizeString(msg))
}

// Msgf sends the event with a formatted message. String and error
// arguments are sanitized; other types pass through.
func (e *SecureEvent) Msgf(format string, v ...interface{}) {
	args := make([]interface{}, len(v))
	for i, arg := range v {
		switch a := arg.(type) {
		case string:
			args[i] = internalerrors.SanitizeString(a)
		case error:
			args[i] = internalerrors.SanitizeError(a)
		default:
			args[i] = arg
		}
	}
	e.event.Msgf(format, args...)
}
