// Package schedule runs the recurring timers of the app. Every timer is
// registered through a Scheduler and torn down through the Cancel it
// returns, so owners can guarantee a single live entry per concern.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/logging"
)

// Cancel removes a registered job. It is safe to call more than once.
type Cancel func()

// Scheduler runs fn every interval until cancelled.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Cancel
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Cron is a Scheduler backed by robfig/cron. Overlapping runs of the same
// job are skipped and panics are recovered and logged.
type Cron struct {
	c *cron.Cron
}

// NewCron creates a stopped scheduler.
func NewCron(log zerolog.Logger) *Cron {
	l := logging.CronLogger(log)
	return &Cron{
		c: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
	}
}

func (s *Cron) Every(interval time.Duration, fn func()) Cancel {
	id := s.c.Schedule(cron.Every(interval), cron.FuncJob(fn))
	var once sync.Once
	return func() {
		once.Do(func() { s.c.Remove(id) })
	}
}

// Start runs the scheduler in its own goroutine.
func (s *Cron) Start() { s.c.Start() }

// Stop halts the scheduler and waits for running jobs, or for ctx.
func (s *Cron) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries reports how many jobs are registered.
func (s *Cron) Entries() int { return len(s.c.Entries()) }
