package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormConfig configures the GORM logger
type GormConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold marks a query as slow (default: 200ms)
	SlowThreshold time.Duration
	// LogNotFound also reports gorm.ErrRecordNotFound as a failed query
	LogNotFound bool
}

// GormLogger writes GORM output to zap, tagged with the request and order
// carried by the query context.
type GormLogger struct {
	logger *zap.Logger
	cfg    GormConfig
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a GORM logger named "gorm" under base
func NewGormLogger(base *zap.Logger, cfg GormConfig) *GormLogger {
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = defaultSlowQuery
	}
	return &GormLogger{logger: base.Named("gorm"), cfg: cfg}
}

// LogMode returns a copy at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		l.forContext(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		l.forContext(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		l.forContext(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one statement: failures at ERROR, slow queries at WARN and the
// rest at DEBUG when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	level := l.cfg.Level
	if level <= gormlogger.Silent {
		return
	}
	notFound := errors.Is(err, gormlogger.ErrRecordNotFound)
	if notFound && !l.cfg.LogNotFound {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := elapsed >= l.cfg.SlowThreshold
	switch {
	case err != nil && level >= gormlogger.Error:
	case slow && level >= gormlogger.Warn:
	case level >= gormlogger.Info:
	default:
		return
	}

	statement, rows := fc()
	zl := l.forContext(ctx).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", statement),
	)
	switch {
	case err != nil && level >= gormlogger.Error:
		zl.Error("Query failed", zap.Error(err))
	case slow && level >= gormlogger.Warn:
		zl.Warn("Slow query", zap.Duration("threshold", l.cfg.SlowThreshold))
	default:
		zl.Debug("Query")
	}
}

func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	zl := WithTraceContext(ctx, l.logger)
	if id := GetRequestID(ctx); id != "" {
		zl = zl.With(zap.String("request_id", id))
	}
	if id := GetOrderID(ctx); id != "" {
		zl = zl.With(zap.String("order_id", id))
	}
	return zl
}

// MapGormLogLevel maps the application log level onto GORM's. Unknown values
// fall back to Warn so slow queries stay visible.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
