package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/config"
)

// OutputOff discards all log output.
const OutputOff = "off"

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type options struct {
	verbose bool
	fields  []zap.Field
}

// Option customizes New.
type Option func(*options)

// WithVerbose forces debug level regardless of the configured level.
func WithVerbose(verbose bool) Option {
	return func(o *options) { o.verbose = verbose }
}

// WithFields adds fields to every entry.
func WithFields(fields ...zap.Field) Option {
	return func(o *options) { o.fields = append(o.fields, fields...) }
}

// New builds the client logger. Command output owns stdout, so an empty
// output means stderr.
func New(cfg config.LogConfig, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		level = zapcore.DebugLevel
	}

	if strings.EqualFold(cfg.Output, OutputOff) {
		return zap.NewNop(), nil
	}
	writer, err := openWriter(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), writer, level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(o.fields...),
	), nil
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// An empty level is warn.
func ParseLevel(level string) (zapcore.Level, error) {
	lvl := strings.ToLower(strings.TrimSpace(level))
	switch lvl {
	case "", "warning":
		return zapcore.WarnLevel, nil
	}
	l, err := zapcore.ParseLevel(lvl)
	if err != nil || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openWriter(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}

// Named returns a child logger; a nil logger yields a no-op one.
func Named(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(name)
}

// Sync flushes log. Terminals and pipes reject fsync; that is not an error.
func Sync(log *zap.Logger) error {
	err := log.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF) {
		return nil
	}
	return err
}
