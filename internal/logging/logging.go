package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers = make(map[string]*slog.Logger)
	levelVar      = &slog.LevelVar{}
	format        string
	mutex         sync.RWMutex
)

// Initialize sets the process-wide log level and output format
// ("text" or "json"). Loggers created before Initialize pick up the
// new level through the shared LevelVar.
func Initialize(level, outputFormat string) {
	mutex.Lock()
	defer mutex.Unlock()

	levelVar.Set(parseLevel(level))
	format = outputFormat

	for module := range moduleLoggers {
		moduleLoggers[module] = slog.New(newHandler(format)).With("module", module)
	}
	slog.SetDefault(slog.New(newHandler(format)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	logger := slog.New(newHandler(format)).With("module", module)
	moduleLoggers[module] = logger
	return logger
}

func newHandler(format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: levelVar}
	if format == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
