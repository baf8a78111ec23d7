package util

import (
	"fmt"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Leveled logging functions backed by pterm's default logger.
// All output goes to stderr by default (pterm's default).

func LogDebug(format string, args ...any) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...any) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...any) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...any) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...any) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// LogEvent logs msg at info level with key/value pairs rendered as pterm
// logger arguments, e.g. LogEvent("player joined", "client", 1, "name", "Alice").
func LogEvent(msg string, keyvals ...any) {
	pterm.DefaultLogger.Info(msg, pterm.DefaultLogger.Args(keyvals...))
}

// LogDrop logs a forced disconnect at warn level with key/value pairs.
func LogDrop(msg string, keyvals ...any) {
	pterm.DefaultLogger.Warn(msg, pterm.DefaultLogger.Args(keyvals...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// DisableOutput silences the logger, e.g. for an interactive prompt or tests.
func DisableOutput() {
	pterm.DefaultLogger.Level = pterm.LogLevelDisabled
}
