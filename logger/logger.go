// Package logger wraps logrus with the structured-field conventions
// the rest of the module relies on: component tags, error chains, and
// a JSON formatter with file:line caller info.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields has the same underlying map type as logrus.Fields (it is a
// distinct type, converted where it is passed to logrus) to keep call
// sites independent of the underlying logging library.
type Fields map[string]interface{}

// Log wraps logrus.Logger with additional functionality.
type Log struct {
	*logrus.Logger
}

// Entry wraps logrus.Entry with additional functionality.
type Entry struct {
	*logrus.Entry
}

var globalLogger *Log

func init() {
	globalLogger = Logger()
}

// Logger builds a new Log with the default JSON/caller configuration,
// reading the initial level from LOG_LEVEL.
func Logger() *Log {
	l := logrus.New()
	l.SetReportCaller(true)

	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(levelStr)); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat:  time.RFC3339Nano,
		CallerPrettyfier: callerPrettyfier,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	l.AddHook(&callerHook{})
	return &Log{Logger: l}
}

func callerPrettyfier(f *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

// GetLogger returns the process-wide default logger.
func GetLogger() *Log {
	return globalLogger
}

func (l *Log) WithComponent(component string) *Entry {
	return &Entry{Entry: l.Logger.WithField("component", component)}
}

func (l *Log) WithFields(fields Fields) *Entry {
	return &Entry{Entry: l.Logger.WithFields(logrus.Fields(fields))}
}

func (l *Log) WithError(err error) *Entry {
	return &Entry{Entry: l.Logger.WithField("error", err.Error())}
}

func (e *Entry) WithComponent(component string) *Entry {
	return &Entry{Entry: e.Entry.WithField("component", component)}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(logrus.Fields(fields))}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithField("error", err.Error())}
}

// Configure applies runtime level/format/output settings, matching
// the knobs exposed by config.LoggingConfig. LOG_LEVEL always takes
// precedence over the configured level.
func (l *Log) Configure(level, format, output string, maxAge int) error {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)
	l.SetReportCaller(true)

	switch format {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})
	case "json", "":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339Nano,
			CallerPrettyfier: callerPrettyfier,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	switch output {
	case "stdout", "":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		if maxAge > 0 {
			l.SetOutput(&lumberjack.Logger{
				Filename: output,
				MaxAge:   maxAge,
				MaxSize:  100,
				Compress: true,
			})
		} else {
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", output, err)
			}
			l.SetOutput(f)
		}
	}
	return nil
}

// LogStageEntry logs a pipeline stage-boundary progress record in a
// consistent shape across S1-S4b.
func LogStageEntry(entry *Entry, stage string, date int, rows int, elapsed time.Duration) {
	entry.WithComponent("pipeline").WithFields(Fields{
		"stage":      stage,
		"date":       date,
		"rows":       rows,
		"elapsed_ms": float64(elapsed.Nanoseconds()) / 1e6,
	}).Info("stage progress")
}
