// Package google reads events from Google Calendar.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/theakshaypant/meetbar/internal/auth"
	"github.com/theakshaypant/meetbar/internal/core"
)

// SettingsURL is where users revoke or review third-party access.
const SettingsURL = "https://myaccount.google.com/permissions"

// Adapter implements core.Provider and core.Authorizer for one Google account.
type Adapter struct {
	id        string
	name      string
	credsFile string
	tokenFile string
	flow      auth.Flow
	opener    core.Opener
	log       zerolog.Logger

	mu        sync.Mutex
	service   *calendar.Service
	calendars map[string]string
	account   string
}

type Option func(*Adapter)

// WithFlow sets the interactive grant used by RequestPermission.
func WithFlow(f auth.Flow) Option {
	return func(g *Adapter) { g.flow = f }
}

// WithOpener sets how OpenPermissionSettings opens the account page.
func WithOpener(o core.Opener) Option {
	return func(g *Adapter) { g.opener = o }
}

func withService(svc *calendar.Service) Option {
	return func(g *Adapter) { g.service = svc }
}

func New(id, name, credsFile, tokenFile string, log zerolog.Logger, opts ...Option) *Adapter {
	g := &Adapter{
		id:        id,
		name:      name,
		credsFile: credsFile,
		tokenFile: tokenFile,
		log:       log.With().Str("component", "google").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Adapter) ID() string   { return g.id }
func (g *Adapter) Name() string { return g.name }

// CheckPermission inspects the local credential and token files without
// contacting Google.
func (g *Adapter) CheckPermission(ctx context.Context) (core.PermissionStatus, error) {
	g.mu.Lock()
	ready := g.service != nil
	g.mu.Unlock()
	if ready {
		return core.PermissionGranted, nil
	}

	if _, err := auth.GoogleConfig(g.credsFile); err != nil {
		if errors.Is(err, core.ErrNoCredentials) {
			return core.PermissionRestricted, nil
		}
		return core.PermissionRestricted, err
	}

	tok, err := auth.TokenFromFile(g.tokenFile)
	if err != nil {
		return core.PermissionNotDetermined, nil
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return core.PermissionDenied, nil
	}
	return core.PermissionGranted, nil
}

// RequestPermission runs the browser consent flow and stores the token.
func (g *Adapter) RequestPermission(ctx context.Context) (bool, error) {
	if g.flow == nil {
		return false, fmt.Errorf("no interactive authorization available")
	}
	config, err := auth.GoogleConfig(g.credsFile)
	if err != nil {
		return false, err
	}

	tok, err := g.flow.Token(ctx, config, "Google", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if errors.Is(err, auth.ErrAccessDenied) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get token: %w", err)
	}
	if err := auth.SaveToken(g.tokenFile, tok); err != nil {
		return false, fmt.Errorf("save token: %w", err)
	}

	g.mu.Lock()
	g.service = nil
	g.mu.Unlock()
	if _, err := g.ensureService(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Adapter) OpenPermissionSettings(ctx context.Context) {
	if g.opener == nil {
		return
	}
	if err := g.opener.Open(SettingsURL); err != nil {
		g.log.Warn().Err(err).Msg("could not open account permissions")
	}
}

// ensureService loads the credentials and token, then initializes the
// Calendar service.
func (g *Adapter) ensureService(ctx context.Context) (*calendar.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.service != nil {
		return g.service, nil
	}

	config, err := auth.GoogleConfig(g.credsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNotAuthorized, err)
	}
	tok, err := auth.TokenFromFile(g.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: run 'meetbar auth' first", core.ErrNotAuthorized)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrNotAuthorized, err)
	}

	// The service outlives ctx, so the token source must too.
	bg := context.Background()
	ts := auth.PersistingTokenSource(config.TokenSource(bg, tok), tok, g.tokenFile, g.log)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(bg, ts)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	g.service = svc
	return svc, nil
}

// ListCalendars fetches all calendars the user has access to.
func (g *Adapter) ListCalendars(ctx context.Context) ([]core.CalendarInfo, error) {
	svc, err := g.ensureService(ctx)
	if err != nil {
		return nil, err
	}

	var entries []*calendar.CalendarListEntry
	err = svc.CalendarList.List().Context(ctx).Pages(ctx, func(page *calendar.CalendarList) error {
		entries = append(entries, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	account := "Google"
	names := make(map[string]string, len(entries))
	for _, entry := range entries {
		names[entry.Id] = calendarTitle(entry)
		if entry.Primary {
			account = entry.Id
		}
	}

	infos := make([]core.CalendarInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, core.CalendarInfo{ID: entry.Id, Title: names[entry.Id], SourceName: account})
	}
	core.SortCalendars(infos)

	g.mu.Lock()
	g.calendars = names
	g.account = account
	g.mu.Unlock()
	return infos, nil
}

func calendarTitle(entry *calendar.CalendarListEntry) string {
	if entry.SummaryOverride != "" {
		return entry.SummaryOverride
	}
	return entry.Summary
}

func (g *Adapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	svc, err := g.ensureService(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	known := g.calendars
	g.mu.Unlock()
	if known == nil {
		if _, err := g.ListCalendars(ctx); err != nil {
			return nil, err
		}
		g.mu.Lock()
		known = g.calendars
		g.mu.Unlock()
	}

	calendarIDs := opts.CalendarIDs
	if len(calendarIDs) == 0 {
		for calID := range known {
			calendarIDs = append(calendarIDs, calID)
		}
		sort.Strings(calendarIDs)
	}

	var (
		results  []core.Event
		firstErr error
		fetched  int
	)
	for _, calID := range calendarIDs {
		name, exists := known[calID]
		if !exists {
			continue
		}
		events, err := g.fetchCalendar(ctx, svc, calID, name, opts)
		if err != nil {
			g.log.Warn().Err(err).Str("calendar", calID).Msg("skipping calendar")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fetched++
		results = append(results, events...)
	}
	if fetched == 0 && firstErr != nil {
		return nil, firstErr
	}

	results = dedupe(results)
	core.SortEvents(results, opts.Start.Location())
	return results, nil
}

func (g *Adapter) fetchCalendar(ctx context.Context, svc *calendar.Service, calendarID, calendarName string, opts core.FetchOptions) ([]core.Event, error) {
	var results []core.Event
	err := svc.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(opts.Start.Format(time.RFC3339)).
		TimeMax(opts.End.Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				event, ok := g.toEvent(item, calendarID, calendarName)
				if ok {
					results = append(results, event)
				}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("api call failed for calendar %s: %w", calendarID, err)
	}
	return results, nil
}

// toEvent converts a Google Calendar event to a core.Event.
func (g *Adapter) toEvent(item *calendar.Event, calendarID, calendarName string) (core.Event, bool) {
	if item.Start == nil {
		return core.Event{}, false
	}

	event := core.Event{
		ID:          item.Id,
		ProviderID:  g.id,
		Calendar:    core.Calendar{ID: calendarID, Name: calendarName},
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		MeetingURL:  extractMeetingLink(item),
		ExternalURL: item.HtmlLink,
		Status:      item.Status,
	}

	if item.Start.DateTime != "" {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			g.log.Debug().Err(err).Str("event", item.Id).Msg("unparseable start")
			return core.Event{}, false
		}
		event.Start = core.At(start)
		if item.End != nil {
			if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				event.End = core.At(end)
			}
		}
		return event, true
	}

	// All day event (YYYY-MM-DD); Google's end date is exclusive.
	event.IsAllDay = true
	event.Start = core.On(item.Start.Date)
	if item.End != nil && item.End.Date != "" {
		event.End = core.On(core.InclusiveEnd(item.Start.Date, item.End.Date))
	}
	return event, true
}

// extractMeetingLink gets the video conferencing link from a Google Calendar event.
func extractMeetingLink(item *calendar.Event) string {
	if item.ConferenceData != nil {
		for _, entry := range item.ConferenceData.EntryPoints {
			if entry.EntryPointType == "video" {
				return entry.Uri
			}
		}
	}

	// Fallback to legacy HangoutLink
	return item.HangoutLink
}

// dedupe drops the copies of an invitation that appears on several of the
// user's calendars, keeping the first.
func dedupe(events []core.Event) []core.Event {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, e := range events {
		key := e.ID + "|" + e.Start.Date
		if t, ok := e.Start.Time(); ok {
			key = e.ID + "|" + t.UTC().Format(time.RFC3339)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
