package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Default thresholds. Statements against the sequence counters run while
// holding a numbering partition's row lock, so they get a tighter budget:
// a slow allocator stalls every concurrent issuance in that partition.
const (
	defaultSlowThreshold      = 200 * time.Millisecond
	defaultAllocatorThreshold = 50 * time.Millisecond
)

// GormLogger adapts zap to gorm's logger interface
type GormLogger struct {
	logger             *zap.Logger
	logLevel           gormlogger.LogLevel
	slowThreshold      time.Duration
	allocatorThreshold time.Duration
	ignoreNotFound     bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the general slow query threshold
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithAllocatorThreshold sets the slow threshold for sequence counter
// statements
func WithAllocatorThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.allocatorThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether not-found results are
// logged as errors; repositories here treat not-found as a regular outcome
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreNotFound = ignore
	}
}

// NewGormLogger creates the zap-backed gorm logger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:             zapLogger.Named("gorm"),
		logLevel:           level,
		slowThreshold:      defaultSlowThreshold,
		allocatorThreshold: defaultAllocatorThreshold,
		ignoreNotFound:     true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace logs each statement: errors at error level, slow statements at
// warn, everything else at debug under the info log mode
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
		if l.ignoreNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		l.logger.Error("query failed", append(fields, zap.Error(err))...)

	case l.isSlow(sql, elapsed) && l.logLevel >= gormlogger.Warn:
		if touchesSequenceCounters(sql) {
			l.logger.Warn("slow allocator query, issuance contention likely", fields...)
			return
		}
		l.logger.Warn("slow query", fields...)

	case l.logLevel >= gormlogger.Info:
		l.logger.Debug("query", fields...)
	}
}

func (l *GormLogger) isSlow(sql string, elapsed time.Duration) bool {
	if touchesSequenceCounters(sql) && l.allocatorThreshold > 0 {
		return elapsed > l.allocatorThreshold
	}
	return l.slowThreshold > 0 && elapsed > l.slowThreshold
}

func touchesSequenceCounters(sql string) bool {
	return strings.Contains(sql, "sequence_counters")
}

// MapGormLogLevel maps the application log level onto gorm's
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
