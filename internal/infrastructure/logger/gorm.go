package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogConfig tunes SQLLogger
type SQLLogConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold of zero turns slow statement warnings off.
	SlowThreshold time.Duration
	// LogNotFound also reports gorm.ErrRecordNotFound, which the
	// repositories translate into shared.ErrNotFound on their own.
	LogNotFound bool
}

// SQLLogger writes GORM statement traces to a zap logger named "gorm"
type SQLLogger struct {
	zl  *zap.Logger
	cfg SQLLogConfig
}

// NewSQLLogger wraps base for use as a gorm logger.Interface
func NewSQLLogger(base *zap.Logger, cfg SQLLogConfig) *SQLLogger {
	return &SQLLogger{zl: base.Named("gorm"), cfg: cfg}
}

// SQLLevel maps a service log level onto GORM's coarser scale. Statement
// traces only appear when the service logs at debug or info.
func SQLLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "":
		return gormlogger.Warn
	}
	switch ParseLevel(level) {
	case zapcore.DebugLevel, zapcore.InfoLevel:
		return gormlogger.Info
	case zapcore.WarnLevel:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *SQLLogger) Info(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *SQLLogger) Warn(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *SQLLogger) Error(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *SQLLogger) printf(min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.cfg.Level < min {
		return
	}
	if ce := l.zl.Check(lvl, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write()
	}
}

// Trace reports a finished statement: failures at error, statements over
// the slow threshold at warn, and the rest at debug once the level is Info.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	lvl, msg, extra, ok := l.classify(elapsed, err)
	if !ok {
		return
	}
	ce := l.zl.Check(lvl, msg)
	if ce == nil {
		return
	}
	statement, rows := fc()
	fields := append(make([]zap.Field, 0, 5),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", statement),
	)
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	ce.Write(append(fields, extra...)...)
}

func (l *SQLLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, []zap.Field, bool) {
	level := l.cfg.Level
	switch {
	case level <= gormlogger.Silent:
		return 0, "", nil, false
	case err != nil:
		if level < gormlogger.Error || (!l.cfg.LogNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return 0, "", nil, false
		}
		return zapcore.ErrorLevel, "SQL error", []zap.Field{zap.Error(err)}, true
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && level >= gormlogger.Warn:
		return zapcore.WarnLevel, "Slow SQL", []zap.Field{zap.Duration("threshold", l.cfg.SlowThreshold)}, true
	case level >= gormlogger.Info:
		return zapcore.DebugLevel, "SQL", nil, true
	}
	return 0, "", nil, false
}
