package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the process-wide logger instance
	Logger zerolog.Logger

	// Tail retains recent log lines for the /api/logs control-plane route.
	// Populated regardless of Config.JSONOutput since it stores formatted
	// output, not structured fields.
	Tail = NewRingWriter(defaultTailCapacity)
)

const defaultTailCapacity = 1000

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output, always duplicating into the in-memory
	// tail ring so /api/logs has recent history independent of where
	// stdout/file output is going.
	if cfg.JSONOutput {
		Logger = zerolog.New(io.MultiWriter(output, Tail)).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(io.MultiWriter(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}, Tail)).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithWorker creates a child logger with worker_id field
func WithWorker(workerID string) zerolog.Logger {
	return Logger.With().Str("worker_id", workerID).Logger()
}

// WithBarrier creates a child logger with barrier field
func WithBarrier(name string) zerolog.Logger {
	return Logger.With().Str("barrier", name).Logger()
}

// WithCheckpoint creates a child logger with checkpoint_namespace field
func WithCheckpoint(namespace string) zerolog.Logger {
	return Logger.With().Str("checkpoint_namespace", namespace).Logger()
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
