// Package logger provides structured logging for the agent runtime, with
// automatic redaction of API keys that might otherwise leak into log lines
// through LLM configuration or executor error text.
package logger

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// DefaultLogger is the global structured logger instance, safe for
// concurrent use. It is reconfigured by SetLevel/SetVerbose.
var DefaultLogger *slog.Logger

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a LOG_LEVEL string onto a slog.Level, defaulting to Info
// for unrecognized values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel replaces DefaultLogger with one at the given level.
func SetLevel(level slog.Level) {
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetVerbose is a convenience wrapper around SetLevel for CLI --verbose flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
		return
	}
	SetLevel(slog.LevelInfo)
}

func Info(msg string, args ...any)  { DefaultLogger.Info(msg, args...) }
func Debug(msg string, args ...any) { DefaultLogger.Debug(msg, args...) }
func Warn(msg string, args ...any)  { DefaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { DefaultLogger.Error(msg, args...) }

func InfoContext(ctx context.Context, msg string, args ...any)  { DefaultLogger.InfoContext(ctx, msg, args...) }
func DebugContext(ctx context.Context, msg string, args ...any) { DefaultLogger.DebugContext(ctx, msg, args...) }
func WarnContext(ctx context.Context, msg string, args ...any)  { DefaultLogger.WarnContext(ctx, msg, args...) }
func ErrorContext(ctx context.Context, msg string, args ...any) { DefaultLogger.ErrorContext(ctx, msg, args...) }

// EventProcessed logs one event moving through an agent's processing
// pipeline, the runtime's equivalent of the teacher's LLMCall trace point.
func EventProcessed(agentName, eventID, kind string, triggersTurn bool) {
	Debug("event processed", "agent", agentName, "event_id", eventID, "kind", kind, "triggers_turn", triggersTurn)
}

// TurnStarted logs the beginning of a turn.
func TurnStarted(agentName string, turnNumber int) {
	Info("turn started", "agent", agentName, "turn", turnNumber)
}

// TurnCompleted logs a successful turn with its wall-clock duration.
func TurnCompleted(agentName string, turnNumber int, durationMs int64) {
	Info("turn completed", "agent", agentName, "turn", turnNumber, "duration_ms", durationMs)
}

// TurnFailed logs an executor failure, with API keys redacted from err's text.
func TurnFailed(agentName string, turnNumber int, err error) {
	Error("turn failed", "agent", agentName, "turn", turnNumber, "error", RedactSensitiveData(err.Error()))
}

// TurnInterrupted logs an interruption and its cause.
func TurnInterrupted(agentName string, turnNumber int, reason string) {
	Info("turn interrupted", "agent", agentName, "turn", turnNumber, "reason", reason)
}

// PersistenceFailure logs a background append failure. Per the error
// taxonomy, this never propagates to the caller — it is observable only
// through logs and metrics.
func PersistenceFailure(agentName string, err error) {
	Error("event persistence failed", "agent", agentName, "error", err)
}

var apiKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_-]+`),
}

// RedactSensitiveData replaces recognizable API key and bearer-token
// substrings with a redacted form that keeps the first few characters for
// debugging context while hiding the rest.
func RedactSensitiveData(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return result
}
