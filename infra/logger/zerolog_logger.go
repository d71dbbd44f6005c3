package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process-wide log output.
type Options struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stderr
	level            = zerolog.InfoLevel
	format           = ""
	closer io.Closer
)

// Configure sets the level, format and destination used by loggers created
// afterwards. Logs go to stderr, keeping stdout for command output. A
// non-empty File adds a rotating JSON log file. The returned function
// closes the file.
func Configure(o Options) (func() error, error) {
	lvl := zerolog.InfoLevel
	if o.Level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	switch o.Format {
	case "", "json", "console":
	default:
		return nil, fmt.Errorf("unknown log format %q", o.Format)
	}

	var w io.Writer = os.Stderr
	var c io.Closer
	if o.File != "" {
		if dir := filepath.Dir(o.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
		}
		w = zerolog.MultiLevelWriter(consoleWriter(os.Stderr, o.Format), lj)
		c = lj
	}

	mu.Lock()
	out, level, format, closer = w, lvl, o.Format, c
	mu.Unlock()
	return closeOutput, nil
}

func closeOutput() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	out = os.Stderr
	return err
}

func consoleWriter(w io.Writer, f string) io.Writer {
	if f == "console" || (f == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev") {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger writing to the configured output.
// All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	mu.RLock()
	w, lvl, f, file := out, level, format, closer != nil
	mu.RUnlock()
	if !file {
		w = consoleWriter(w, f)
	}
	return NewWithWriter(w, lvl, component)
}

// NewWithWriter creates a ZerologLogger writing JSON lines to w.
func NewWithWriter(w io.Writer, lvl zerolog.Level, component string) *ZerologLogger {
	z := zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
