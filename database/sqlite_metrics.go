package database

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm/logger"
)

// contentionCounter tallies SQLITE_BUSY and SQLITE_LOCKED failures.
type contentionCounter struct {
	busy   atomic.Uint64
	locked atomic.Uint64
}

// observe classifies err by its driver message. Cancellations are not contention.
func (c *contentionCounter) observe(err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "sqlite_locked"), strings.Contains(msg, "database table is locked"):
		c.locked.Add(1)
	case strings.Contains(msg, "sqlite_busy"), strings.Contains(msg, "database is locked"), strings.Contains(msg, "busy timeout"):
		c.busy.Add(1)
	}
}

// countingLogger is a GORM logger that feeds query errors into a contentionCounter.
type countingLogger struct {
	logger.Interface
	counter *contentionCounter
}

func (l countingLogger) LogMode(level logger.LogLevel) logger.Interface {
	return countingLogger{Interface: l.Interface.LogMode(level), counter: l.counter}
}

func (l countingLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	l.counter.observe(err)
	l.Interface.Trace(ctx, begin, fc, err)
}
