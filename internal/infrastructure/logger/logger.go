// Package logger builds the zap loggers used across the fund service and
// carries request-scoped loggers through context and gin.
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/schoolfund/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp layout of every log line
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

type options struct {
	timeLayout string
	stackLevel zapcore.Level
}

// Option adjusts a logger built by New
type Option func(*options)

// WithTimeLayout overrides TimeLayout
func WithTimeLayout(layout string) Option {
	return func(o *options) { o.timeLayout = layout }
}

// WithStacktraceAt attaches stack traces from level upwards (default error)
func WithStacktraceAt(level zapcore.Level) Option {
	return func(o *options) { o.stackLevel = level }
}

// New builds a logger from the [log] config section. Empty fields mean
// info level, JSON lines and stdout.
func New(cfg config.LogConfig, opts ...Option) (*zap.Logger, error) {
	o := options{timeLayout: TimeLayout, stackLevel: zapcore.ErrorLevel}
	for _, opt := range opts {
		opt(&o)
	}
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(encoderFor(cfg.Format, o.timeLayout), sink, ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(o.stackLevel)), nil
}

// ParseLevel maps a config level to zap. "warning" is accepted for warn;
// anything unrecognised means info.
func ParseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zapcore.WarnLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoderFor(format, timeLayout string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}
