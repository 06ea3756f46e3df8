package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields map[string]any

// Config controls the process-wide logger.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is json or console.
	Format      string
	Development bool
}

func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
	}
}

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// New builds a zap logger from cfg without installing it.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "console" {
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	return zapConfig.Build()
}

// Init builds a logger from cfg and installs it as the global logger.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the global logger. A nil logger discards output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

func L() *zap.Logger {
	return global.Load()
}

func Sync() {
	_ = L().Sync()
}

func Debug(message string, fields Fields) {
	L().Debug(message, zapFields(fields)...)
}

func Info(message string, fields Fields) {
	L().Info(message, zapFields(fields)...)
}

func Warn(message string, fields Fields) {
	L().Warn(message, zapFields(fields)...)
}

func Error(message string, err error, fields Fields) {
	L().Error(message, append(zapFields(fields), zap.Error(err))...)
}

// Fatal logs and exits the process.
func Fatal(message string, err error, fields Fields) {
	L().Error(message, append(zapFields(fields), zap.Error(err))...)
	Sync()
	os.Exit(1)
}

// MaskAccountNumber keeps the last four characters of an account number.
func MaskAccountNumber(accountNumber string) string {
	if len(accountNumber) <= 4 {
		return strings.Repeat("*", len(accountNumber))
	}
	return strings.Repeat("*", len(accountNumber)-4) + accountNumber[len(accountNumber)-4:]
}

var maskedKeys = map[string]func(string) string{
	"accountnumber": MaskAccountNumber,
}

func zapFields(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(fields))
	for _, key := range keys {
		value := fields[key]
		if mask, ok := maskedKeys[normalizeKey(key)]; ok {
			if s, isString := value.(string); isString {
				value = mask(s)
			}
		}
		out = append(out, zap.Any(key, value))
	}
	return out
}

func normalizeKey(key string) string {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	return strings.ReplaceAll(normalized, "_", "")
}
