// Package source turns a remote calendar provider and a local event store
// into the two-tier sync provider the app runs on.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/schedule"
)

// DefaultDays is today plus tomorrow.
const DefaultDays = 2

// Source fetches from the provider on ForceSync and serves ReadCachedEvents
// from storage. Concurrent forced syncs share one provider round trip.
type Source struct {
	provider core.Provider
	store    core.Storage
	clock    schedule.Clock
	loc      *time.Location
	days     int
	group    singleflight.Group
	log      zerolog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithDays sets how many days, starting today, are synced.
func WithDays(days int) Option {
	return func(s *Source) {
		if days > 0 {
			s.days = days
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(c schedule.Clock) Option {
	return func(s *Source) { s.clock = c }
}

// WithLocation sets the zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Source) { s.loc = loc }
}

func New(provider core.Provider, store core.Storage, log zerolog.Logger, opts ...Option) *Source {
	s := &Source{
		provider: provider,
		store:    store,
		clock:    schedule.SystemClock,
		loc:      time.Local,
		days:     DefaultDays,
		log:      log.With().Str("component", "source").Str("provider", provider.ID()).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window is [start of today, end of the last synced day] in local time.
func (s *Source) Window() (time.Time, time.Time) {
	now := s.clock.Now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, s.days).Add(-time.Second)
	return start, end
}

// ForceSync fetches the window from the provider, drops cancelled events,
// stores the result and returns it in start order.
func (s *Source) ForceSync(ctx context.Context) ([]core.Event, error) {
	v, err, shared := s.group.Do("sync", func() (interface{}, error) {
		return s.sync(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug().Msg("joined in-flight sync")
	}
	return append([]core.Event(nil), v.([]core.Event)...), nil
}

func (s *Source) sync(ctx context.Context) ([]core.Event, error) {
	start, end := s.Window()
	fetched, err := s.provider.FetchEvents(ctx, core.FetchOptions{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("fetch events from %s: %w", s.provider.Name(), err)
	}

	events := make([]core.Event, 0, len(fetched))
	for _, e := range fetched {
		if e.Status == core.StatusCancelled {
			continue
		}
		if e.ProviderID == "" {
			e.ProviderID = s.provider.ID()
		}
		events = append(events, e)
	}
	core.SortEvents(events, s.loc)

	if err := s.store.ReplaceEvents(ctx, s.provider.ID(), events); err != nil {
		return nil, fmt.Errorf("store synced events: %w", err)
	}
	s.log.Info().Int("events", len(events)).Time("from", start).Time("to", end).Msg("synced")
	return events, nil
}

// ReadCachedEvents lists the stored events that overlap the window.
func (s *Source) ReadCachedEvents(ctx context.Context) ([]core.Event, error) {
	start, end := s.Window()
	events, err := s.store.ListEvents(ctx, core.EventFilter{
		Start:       start,
		End:         end,
		ProviderIDs: []string{s.provider.ID()},
	})
	if err != nil {
		return nil, fmt.Errorf("read cached events: %w", err)
	}
	return events, nil
}

// ListCalendars returns the provider's calendars sorted by source then
// title.
func (s *Source) ListCalendars(ctx context.Context) ([]core.CalendarInfo, error) {
	calendars, err := s.provider.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendars from %s: %w", s.provider.Name(), err)
	}
	core.SortCalendars(calendars)
	return calendars, nil
}
