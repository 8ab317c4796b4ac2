package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logging configuration
type Config struct {
	Level  string     `mapstructure:"level" yaml:"level"`
	Output string     `mapstructure:"output" yaml:"output"`
	Format string     `mapstructure:"format" yaml:"format"`
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig holds rotation settings for file output
type FileConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

var (
	logger *zap.Logger
	sugar  *zap.SugaredLogger
)

func init() {
	// Replaced by Initialize; keeps package-level calls safe before that.
	l, _ := zap.NewDevelopment()
	setLogger(l)
}

func setLogger(l *zap.Logger) {
	logger = l
	sugar = l.Sugar()
}

// ReplaceGlobals installs l as the package logger and returns a function
// that restores the previous one
func ReplaceGlobals(l *zap.Logger) func() {
	prev := logger
	setLogger(l)
	return func() { setLogger(prev) }
}

// Discard drops every log entry until the logger is replaced again
func Discard() {
	setLogger(zap.NewNop())
}

// Initialize replaces the global logger according to cfg
func Initialize(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid logger config: %w", err)
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	encoder := newEncoder(cfg.Format)

	var cores []zapcore.Core
	fileFailed := false

	addFile := func() {
		w, err := createFileWriter(cfg.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: failed to open log file %s: %v\n", cfg.File.Path, err)
			fileFailed = true
			return
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), level))
	}

	switch cfg.Output {
	case "stdout", "console":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
	case "stderr":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	case "file":
		addFile()
		if fileFailed {
			cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
		}
	case "both":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
		addFile()
	}

	setLogger(zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)))

	if fileFailed {
		logger.Warn("Log file unavailable, using fallback output", zap.String("path", cfg.File.Path))
	}

	return nil
}

func newEncoder(format string) zapcore.Encoder {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if format == "json" {
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(encCfg)
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

// createFileWriter creates a lumberjack writer for log rotation
func createFileWriter(cfg FileConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

func validateConfig(cfg Config) error {
	switch cfg.Output {
	case "stdout", "console", "stderr", "file", "both":
	default:
		return fmt.Errorf("output must be 'stdout', 'stderr', 'file', or 'both', got: %q", cfg.Output)
	}

	switch cfg.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("format must be 'console' or 'json', got: %q", cfg.Format)
	}

	if cfg.Output == "file" || cfg.Output == "both" {
		if cfg.File.Path == "" {
			return fmt.Errorf("file.path is required when output is 'file' or 'both'")
		}
		if cfg.File.MaxSizeMB <= 0 {
			return fmt.Errorf("file.max_size_mb must be positive, got: %d", cfg.File.MaxSizeMB)
		}
		if cfg.File.MaxBackups < 0 {
			return fmt.Errorf("file.max_backups cannot be negative, got: %d", cfg.File.MaxBackups)
		}
		if cfg.File.MaxAgeDays < 0 {
			return fmt.Errorf("file.max_age_days cannot be negative, got: %d", cfg.File.MaxAgeDays)
		}
	}

	return nil
}

// parseLevel converts a level name to zapcore.Level
func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown level: %s", level)
	}
}

// Sync flushes any buffered log entries
func Sync() error {
	return logger.Sync()
}

// GetLogger returns the underlying zap logger
func GetLogger() *zap.Logger {
	return logger
}

// Named returns a child logger tagged with name
func Named(name string) *zap.Logger {
	return logger.WithOptions(zap.AddCallerSkip(-1)).Named(name)
}

func Debug(msg string, fields ...zap.Field) { logger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { logger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { logger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { logger.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { logger.Fatal(msg, fields...) }

// Infof logs with printf-style formatting
func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

// Field helpers re-exported from zap so callers only import this package.

func String(key, val string) zap.Field          { return zap.String(key, val) }
func Int(key string, val int) zap.Field         { return zap.Int(key, val) }
func Uint16(key string, val uint16) zap.Field   { return zap.Uint16(key, val) }
func Float64(key string, val float64) zap.Field { return zap.Float64(key, val) }
func Bool(key string, val bool) zap.Field       { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}
func Time(key string, val time.Time) zap.Field { return zap.Time(key, val) }
func Err(err error) zap.Field                  { return zap.Error(err) }
