package data

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// slowQueryThreshold 撤销表的查询在认证热路径上，超过该耗时记为慢查询
const slowQueryThreshold = 100 * time.Millisecond

// GormLogger 把 GORM 日志转发到 kratos logger
type GormLogger struct {
	logger log.Logger
	level  glogger.LogLevel
	slow   time.Duration
}

func NewGormLogger(l log.Logger) glogger.Interface {
	return &GormLogger{
		logger: log.With(l, "module", "data/gorm"),
		level:  glogger.Warn,
		slow:   slowQueryThreshold,
	}
}

func (l *GormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= glogger.Info {
		log.WithContext(ctx, l.logger).Log(log.LevelInfo, "msg", msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= glogger.Warn {
		log.WithContext(ctx, l.logger).Log(log.LevelWarn, "msg", msg, "data", data)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= glogger.Error {
		log.WithContext(ctx, l.logger).Log(log.LevelError, "msg", msg, "data", data)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= glogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	logger := log.WithContext(ctx, l.logger)
	ms := float64(elapsed.Nanoseconds()) / 1e6

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= glogger.Error:
		logger.Log(log.LevelError, "kind", "sql", "elapsed", ms, "rows", rows, "sql", sql, "err", err)
	case l.slow > 0 && elapsed > l.slow && l.level >= glogger.Warn:
		logger.Log(log.LevelWarn, "kind", "slow_sql", "elapsed", ms, "rows", rows, "sql", sql)
	default:
		logger.Log(log.LevelDebug, "kind", "sql", "elapsed", ms, "rows", rows, "sql", sql)
	}
}
