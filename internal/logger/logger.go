package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var (
	Logger        *log.Logger
	currentWriter io.Writer                   = os.Stderr
	diagnostics   func(level, message string) // mirrors log lines onto the control plane's diagnostics stream
)

func init() {
	Logger = log.New(os.Stderr)

	logLevel := strings.ToUpper(os.Getenv("PINNACLE_LOG_LEVEL"))
	switch logLevel {
	case "DEBUG":
		Logger.SetLevel(log.DebugLevel)
	case "INFO":
		Logger.SetLevel(log.InfoLevel)
	case "WARN", "WARNING":
		Logger.SetLevel(log.WarnLevel)
	case "ERROR":
		Logger.SetLevel(log.ErrorLevel)
	case "FATAL":
		Logger.SetLevel(log.FatalLevel)
	default:
		// Default to INFO level if not specified or invalid
		Logger.SetLevel(log.InfoLevel)
	}
}

// SetDiagnosticsForwarder installs the callback the Signal Bus uses to
// mirror log lines onto a Pinnacle.Diagnostics-style control-plane stream,
// generalized from the teacher's SetUINotifier/SetLogForwarder pair into
// one hook since this repo has exactly one real consumer.
func SetDiagnosticsForwarder(forwarder func(level, message string)) {
	diagnostics = forwarder
}

func forward(level, message string) {
	if diagnostics != nil {
		diagnostics(level, message)
	}
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
	forward("INFO", fmt.Sprintf("%v", msg))
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
	if Logger.GetLevel() <= log.DebugLevel {
		forward("DEBUG", fmt.Sprintf("%v", msg))
	}
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
	forward("WARN", fmt.Sprintf("%v", msg))
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
	forward("ERROR", fmt.Sprintf("%v", msg))
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
	forward("FATAL", fmt.Sprintf("%v", msg))
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
	forward("INFO", fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
	if Logger.GetLevel() <= log.DebugLevel {
		forward("DEBUG", fmt.Sprintf(format, args...))
	}
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
	forward("WARN", fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
	forward("ERROR", fmt.Sprintf(format, args...))
}

func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
	forward("FATAL", fmt.Sprintf(format, args...))
}

// SetLevel sets the log level from a string
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		Logger.SetLevel(log.DebugLevel)
	case "INFO":
		Logger.SetLevel(log.InfoLevel)
	case "WARN", "WARNING":
		Logger.SetLevel(log.WarnLevel)
	case "ERROR":
		Logger.SetLevel(log.ErrorLevel)
	case "FATAL":
		Logger.SetLevel(log.FatalLevel)
	}
}

// SetOutput redirects the logger output to a different writer
func SetOutput(w io.Writer) {
	currentWriter = w
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	restoreLevel()
}

// SetPrefix sets a prefix for the logger
func SetPrefix(prefix string) {
	Logger = log.NewWithOptions(currentWriter, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          prefix,
	})
	restoreLevel()
}

func restoreLevel() {
	currentLevel := strings.ToUpper(os.Getenv("PINNACLE_LOG_LEVEL"))
	if currentLevel == "" {
		currentLevel = "INFO"
	}
	SetLevel(currentLevel)
}

// stateDir resolves the base directory for runtime state files, per
// SPEC_FULL.md §2: $XDG_STATE_HOME, else ~/.local/state/pinnacle.
func stateDir() (string, error) {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pinnacle"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "pinnacle"), nil
}

// SetupFileLogging configures the logger to write to a file under
// $XDG_STATE_HOME/pinnacle (or ~/.local/state/pinnacle), so the compositor
// and its spawned config process don't fight a TUI for stderr.
func SetupFileLogging(prefix string) (*os.File, error) {
	logDir, err := stateDir()
	if err != nil {
		logDir = "."
	}
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logPath := filepath.Join(logDir, "pinnacle.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // logPath is validated
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	if _, err := fmt.Fprintf(logFile, "\n%s %s: === New session started === (log: %s)\n",
		time.Now().Format("15:04:05"), prefix, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to write to log file: %v\n", err)
	}

	fileLogger := log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          prefix,
	})
	log.SetDefault(fileLogger)

	savedLevel := Logger.GetLevel()
	currentWriter = logFile
	Logger = log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          prefix,
	})

	currentLevel := savedLevel.String()
	if envLevel := strings.ToUpper(os.Getenv("PINNACLE_LOG_LEVEL")); envLevel != "" {
		currentLevel = envLevel
		Logger.Infof("Setting log level to: %s (from PINNACLE_LOG_LEVEL env var)", currentLevel)
	} else {
		Logger.Infof("Keeping current log level: %s", currentLevel)
	}
	SetLevel(currentLevel)

	Info(prefix + ": File logging initialized")
	return logFile, nil
}

// Get returns the logger instance
func Get() *log.Logger {
	return Logger
}
