// Package common provides shared utilities for coinboard.
package common

import (
	"encoding/json"
	"os"
	"slices"
	"sync"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const (
	logTimeFormat      = "2006-01-02T15:04:05Z07:00"
	defaultLogLevel    = "info"
	defaultLogFile     = "logs/coinboard.log"
	defaultLogMaxBytes = 500 * 1024
	defaultLogBackups  = 20
)

// Logger is the process logger: an arbor.ILogger with coinboard's constructors.
type Logger struct {
	arbor.ILogger
}

// LoggingConfig selects the writers, level and file format for
// NewLoggerFromConfig. Format "json" keeps structured file output; anything
// else writes logfmt.
type LoggingConfig struct {
	Level      string
	Format     string
	Outputs    []string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

// NewLoggerFromConfig registers the configured console and file writers plus
// the in-memory diagnostics writer, then applies the level.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console", "file"}
	}

	l := arbor.NewLogger()
	if slices.Contains(outputs, "console") {
		l = l.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			Writer:     os.Stderr,
			TimeFormat: logTimeFormat,
		})
	}
	if slices.Contains(outputs, "file") {
		l = l.WithFileWriter(cfg.fileWriter())
	}

	level := cfg.Level
	if level == "" {
		level = defaultLogLevel
	}
	l = l.WithMemoryWriter(models.WriterConfiguration{Type: models.LogWriterTypeMemory}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

func (cfg LoggingConfig) fileWriter() models.WriterConfiguration {
	wc := models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   cfg.FilePath,
		MaxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
		MaxBackups: cfg.MaxBackups,
		TimeFormat: logTimeFormat,
		OutputType: models.OutputFormatLogfmt,
	}
	if wc.FileName == "" {
		wc.FileName = defaultLogFile
	}
	if wc.MaxSize <= 0 {
		wc.MaxSize = defaultLogMaxBytes
	}
	if wc.MaxBackups <= 0 {
		wc.MaxBackups = defaultLogBackups
	}
	if cfg.Format == "json" {
		wc.OutputType = models.OutputFormatJSON
	}
	return wc
}

// NewSilentLogger returns a logger with a private writer that drops every
// event, so nothing reaches the globally registered writers.
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{discard{}})}
}

// NewRecordingLogger returns a logger whose events are kept in the returned
// LogRecorder instead of being written anywhere. Loggers derived from it,
// such as WithCorrelationId scopes, record into the same LogRecorder.
func NewRecordingLogger(level string) (*Logger, *LogRecorder) {
	rec := &LogRecorder{level: log.TraceLevel}
	l := arbor.NewLogger().WithWriters([]writers.IWriter{rec}).WithLevelFromString(level)
	return &Logger{ILogger: l}, rec
}

// WithCorrelationId returns a logger that stamps id on every event.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}

type discard struct{}

func (discard) Write(p []byte) (int, error)           { return len(p), nil }
func (d discard) WithLevel(log.Level) writers.IWriter { return d }
func (discard) GetFilePath() string                   { return "" }
func (discard) Close() error                          { return nil }

// LogRecorder is an arbor writer that keeps decoded events in memory.
type LogRecorder struct {
	mu     sync.Mutex
	level  log.Level
	events []models.LogEvent
}

func (r *LogRecorder) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if evt.Level >= r.level {
		r.events = append(r.events, evt)
	}
	return len(p), nil
}

func (r *LogRecorder) WithLevel(level log.Level) writers.IWriter {
	r.mu.Lock()
	r.level = level
	r.mu.Unlock()
	return r
}

func (r *LogRecorder) GetFilePath() string { return "" }
func (r *LogRecorder) Close() error        { return nil }

// Events returns a copy of everything recorded so far.
func (r *LogRecorder) Events() []models.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Find returns the most recent event with the given message.
func (r *LogRecorder) Find(message string) (models.LogEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Message == message {
			return r.events[i], true
		}
	}
	return models.LogEvent{}, false
}
