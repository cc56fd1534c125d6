package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/padhai-cli/padhai/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 500 * time.Millisecond

// gormLogger sends gorm's query log to the application log.
type gormLogger struct {
	log   log.Entry
	level logger.LogLevel
}

func newGormLogger(level string) *gormLogger {
	return &gormLogger{log: log.For("catalog"), level: gormLogLevel(level)}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{log: l.log, level: level}
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.log.Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.log.Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.log.Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		l.log.WithError(err).WithField("rows", rows).WithField("elapsed", elapsed).Error(sql)
	case elapsed > slowQuery && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.WithField("rows", rows).WithField("elapsed", elapsed).Warn("slow query: " + sql)
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.WithField("rows", rows).WithField("elapsed", elapsed).Debug(sql)
	}
}
