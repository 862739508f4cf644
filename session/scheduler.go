package session

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scheduler runs fn every d until the returned cancel func is called.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// CronScheduler schedules session tasks on a shared cron instance.
type CronScheduler struct {
	c *cron.Cron
}

func NewCronScheduler(c *cron.Cron) *CronScheduler {
	return &CronScheduler{c: c}
}

func (s *CronScheduler) Every(d time.Duration, fn func()) func() {
	id := s.c.Schedule(cron.Every(d), cron.FuncJob(fn))
	return func() { s.c.Remove(id) }
}

// NewCron builds a cron that skips overlapping runs and recovers panics,
// logging through zerolog.
func NewCron() *cron.Cron {
	logger := CronLogger{L: log.Logger}
	return cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

// CronLogger adapts zerolog to cron.Logger.
type CronLogger struct {
	L zerolog.Logger
}

func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.L.Debug().Fields(keysAndValues).Msg(msg)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.L.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
