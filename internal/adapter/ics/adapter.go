// Package ics reads events from an iCalendar feed, either a local .ics
// file or an http(s)/webcal subscription URL.
package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
)

// Adapter implements core.Provider and core.Authorizer for one feed.
type Adapter struct {
	id     string
	name   string
	source string
	client *http.Client
	loc    *time.Location
	log    zerolog.Logger
}

type Option func(*Adapter)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithLocation sets the zone used for floating times and all-day dates.
func WithLocation(loc *time.Location) Option {
	return func(a *Adapter) { a.loc = loc }
}

func New(id, name, source string, log zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		id:     id,
		name:   name,
		source: strings.TrimSpace(source),
		client: &http.Client{Timeout: 15 * time.Second},
		loc:    time.Local,
		log:    log.With().Str("component", "ics").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) ID() string   { return a.id }
func (a *Adapter) Name() string { return a.name }

func (a *Adapter) remote() (*url.URL, bool) {
	u, err := url.Parse(a.source)
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	case "webcal":
		u.Scheme = "https"
		return u, true
	}
	return nil, false
}

// CheckPermission reports restricted when no feed is configured. A local
// file that cannot be read is denied; remote feeds are assumed readable
// until a sync says otherwise.
func (a *Adapter) CheckPermission(ctx context.Context) (core.PermissionStatus, error) {
	if a.source == "" {
		return core.PermissionRestricted, nil
	}
	if _, ok := a.remote(); ok {
		return core.PermissionGranted, nil
	}
	f, err := os.Open(a.source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.PermissionNotDetermined, nil
		}
		return core.PermissionDenied, nil
	}
	f.Close()
	return core.PermissionGranted, nil
}

// RequestPermission has nothing to prompt for; it re-checks the feed.
func (a *Adapter) RequestPermission(ctx context.Context) (bool, error) {
	status, err := a.CheckPermission(ctx)
	return status == core.PermissionGranted, err
}

func (a *Adapter) OpenPermissionSettings(ctx context.Context) {
	a.log.Debug().Msg("feeds have no permission settings")
}

func (a *Adapter) load(ctx context.Context) (*ical.Calendar, error) {
	if a.source == "" {
		return nil, core.ErrNoCredentials
	}

	var body []byte
	if u, ok := a.remote(); ok {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch feed: %w", err)
		}
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: feed returned %s", core.ErrNotAuthorized, resp.Status)
		default:
			return nil, fmt.Errorf("fetch feed: %s", resp.Status)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("read feed: %w", err)
		}
	} else {
		var err error
		if body, err = os.ReadFile(a.source); err != nil {
			return nil, fmt.Errorf("read feed: %w", err)
		}
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return cal, nil
}

// calendarInfo describes the feed as a single calendar.
func (a *Adapter) calendarInfo(cal *ical.Calendar) core.CalendarInfo {
	title := a.name
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == "X-WR-CALNAME" && strings.TrimSpace(p.Value) != "" {
			title = strings.TrimSpace(p.Value)
		}
	}
	source := "Local file"
	if u, ok := a.remote(); ok {
		source = u.Host
	}
	return core.CalendarInfo{ID: a.id, Title: title, SourceName: source}
}

func (a *Adapter) ListCalendars(ctx context.Context) ([]core.CalendarInfo, error) {
	cal, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return []core.CalendarInfo{a.calendarInfo(cal)}, nil
}

func (a *Adapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	if len(opts.CalendarIDs) > 0 && !contains(opts.CalendarIDs, a.id) {
		return nil, nil
	}

	cal, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	info := a.calendarInfo(cal)

	var parsed []vevent
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, a.loc)
		if err != nil {
			a.log.Debug().Err(err).Msg("skipping vevent")
			continue
		}
		parsed = append(parsed, ev)
	}

	occurrences := expand(parsed, opts.Start, opts.End, a.log)
	events := make([]core.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		events = append(events, occ.toEvent(a.id, core.Calendar{ID: info.ID, Name: info.Title}, a.loc))
	}
	core.SortEvents(events, a.loc)
	return events, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
