// Package eventsync owns the cached event list. It combines an expensive
// forced sync with a cheap periodic re-read of the provider's cache.
package eventsync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/schedule"
)

// DefaultRefreshInterval is the cadence of the periodic cache read.
const DefaultRefreshInterval = 60 * time.Second

// Listener receives the new list after every applied result.
type Listener func([]core.Event)

// Scheduler sequences results by the order their calls were issued. A
// result is applied only if no later-issued call has been applied, and a
// periodic read is dropped if a forced sync was in flight when it was
// issued or when it completed.
type Scheduler struct {
	mu sync.Mutex

	events     []core.Event
	issued     uint64
	applied    uint64
	forcing    int
	cancelTick schedule.Cancel
	stopped    bool
	listeners  []Listener

	provider core.SyncProvider
	sched    schedule.Scheduler
	interval time.Duration
	log      zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRefreshInterval overrides DefaultRefreshInterval.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func New(provider core.SyncProvider, sched schedule.Scheduler, log zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		provider: provider,
		sched:    sched,
		interval: DefaultRefreshInterval,
		log:      log.With().Str("component", "eventsync").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener for applied results.
func (s *Scheduler) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Start registers the periodic read and runs the initial forced sync.
// The timer keeps running whatever the sync's outcome.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancelTick == nil && !s.stopped {
		s.cancelTick = s.sched.Every(s.interval, func() { s.PeriodicRefresh(ctx) })
	}
	s.mu.Unlock()

	_, err := s.ForceSync(ctx)
	return err
}

// Stop cancels the periodic read. Results that arrive later are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.cancelTick != nil {
		s.cancelTick()
		s.cancelTick = nil
	}
}

// Events returns the cached list.
func (s *Scheduler) Events() []core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Event(nil), s.events...)
}

// Loading reports whether a forced sync is in flight.
func (s *Scheduler) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forcing > 0
}

// ForceSync runs a full provider sync and replaces the cache with its
// result. On failure the cache is kept and the error returned.
func (s *Scheduler) ForceSync(ctx context.Context) ([]core.Event, error) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.forcing++
	s.mu.Unlock()

	events, err := s.provider.ForceSync(ctx)

	s.mu.Lock()
	s.forcing--
	if err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("forced sync failed, keeping cached events")
		return nil, err
	}
	s.mu.Unlock()

	s.apply(seq, events, "force")
	return events, nil
}

// PeriodicRefresh re-reads the provider's cache. Failures keep the
// previous list.
func (s *Scheduler) PeriodicRefresh(ctx context.Context) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	racedAtIssue := s.forcing > 0
	s.mu.Unlock()

	events, err := s.provider.ReadCachedEvents(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("cache read failed")
		return
	}

	s.mu.Lock()
	racing := racedAtIssue || s.forcing > 0
	s.mu.Unlock()
	if racing {
		s.log.Debug().Uint64("seq", seq).Msg("dropping cache read that raced a forced sync")
		return
	}
	s.apply(seq, events, "periodic")
}

func (s *Scheduler) apply(seq uint64, events []core.Event, kind string) {
	s.mu.Lock()
	if s.stopped || seq < s.applied {
		s.mu.Unlock()
		s.log.Debug().Uint64("seq", seq).Str("kind", kind).Msg("dropping superseded result")
		return
	}
	s.applied = seq
	s.events = append([]core.Event(nil), events...)
	snapshot := append([]core.Event(nil), s.events...)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.log.Debug().Str("kind", kind).Int("events", len(snapshot)).Msg("events updated")
	for _, l := range listeners {
		l(snapshot)
	}
}
