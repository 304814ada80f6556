package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"goingviral/pkg/config"
)

// Version is stamped into every log line.
var Version = "dev"

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	WithContext(ctx context.Context) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})
	FatalWithFields(msg string, fields map[string]interface{})

	// GetZerolog exposes the underlying logger for advanced usage
	GetZerolog() *zerolog.Logger
}

type zlogger struct {
	z zerolog.Logger
}

// New creates a Logger writing to stderr (and cfg.File when set).
func New(cfg *config.LoggingConfig) (Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a Logger writing to out. Console format renders
// colored human output; json format writes one object per line, which is
// what the server should use behind a log collector.
func NewWithWriter(cfg *config.LoggingConfig, out io.Writer) (Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer
	switch strings.ToLower(cfg.Format) {
	case "json":
		w = out
	case "", "console":
		w = consoleWriter(out)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return nil, err
		}
		w = zerolog.MultiLevelWriter(w, f)
	}

	z := zerolog.New(w).Level(level).With().
		Timestamp().
		Str("app", "goingviral").
		Str("version", Version).
		Logger()
	return &zlogger{z: z}, nil
}

var levelTags = map[string]string{
	"debug": "\033[37mDEBG\033[0m",
	"info":  "\033[32mINFO\033[0m",
	"warn":  "\033[33mWARN\033[0m",
	"error": "\033[31mERRO\033[0m",
	"fatal": "\033[35mFATL\033[0m",
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		FormatLevel: func(i interface{}) string {
			s, _ := i.(string)
			if tag, ok := levelTags[s]; ok {
				return tag
			}
			return strings.ToUpper(s)
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("| %s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[36m%s\033[0m:", i)
		},
	}
}

func openLogFile(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

var levels = map[string]zerolog.Level{
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"disabled": zerolog.Disabled,
}

func parseLogLevel(s string) (zerolog.Level, error) {
	if l, ok := levels[strings.ToLower(s)]; ok {
		return l, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", s)
}

func (l *zlogger) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l *zlogger) Info(msg string)  { l.z.Info().Msg(msg) }
func (l *zlogger) Warn(msg string)  { l.z.Warn().Msg(msg) }
func (l *zlogger) Error(msg string) { l.z.Error().Msg(msg) }
func (l *zlogger) Fatal(msg string) { l.z.Fatal().Msg(msg) }

func (l *zlogger) WithField(key string, value interface{}) Logger {
	return &zlogger{z: l.z.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger; the parent is unchanged.
func (l *zlogger) WithFields(fields map[string]interface{}) Logger {
	return &zlogger{z: l.z.With().Fields(fields).Logger()}
}

func (l *zlogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zlogger{z: l.z.With().Err(err).Logger()}
}

// WithContext attaches ctx so zerolog hooks can read it
func (l *zlogger) WithContext(ctx context.Context) Logger {
	return &zlogger{z: l.z.With().Ctx(ctx).Logger()}
}

func (l *zlogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.z.Debug().Fields(fields).Msg(msg)
}

func (l *zlogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.z.Info().Fields(fields).Msg(msg)
}

func (l *zlogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.z.Warn().Fields(fields).Msg(msg)
}

func (l *zlogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.z.Error().Fields(fields).Msg(msg)
}

func (l *zlogger) FatalWithFields(msg string, fields map[string]interface{}) {
	l.z.Fatal().Fields(fields).Msg(msg)
}

func (l *zlogger) GetZerolog() *zerolog.Logger {
	return &l.z
}

type ctxKey struct{}

// IntoContext stores l in ctx for code that only receives a context.
func IntoContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by IntoContext, or fallback.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return NewNopLogger()
	}
	return fallback
}

var globalLogger Logger

// Initialize sets up the global logger
func Initialize(cfg *config.LoggingConfig) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalLogger = l
	log.Logger = *l.GetZerolog()
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() Logger {
	if globalLogger == nil {
		globalLogger, _ = New(&config.LoggingConfig{Level: "info"})
	}
	return globalLogger
}
