package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotAuthorized is returned when a provider has no usable grant.
	ErrNotAuthorized = errors.New("calendar access not authorized")
	// ErrNoCredentials is returned when the provider is not configured.
	ErrNoCredentials = errors.New("calendar credentials not configured")
)

// PermissionStatus is the calendar-access authorization state.
type PermissionStatus string

const (
	// PermissionLoading is the initial state before the first check resolves.
	PermissionLoading       PermissionStatus = "loading"
	PermissionGranted       PermissionStatus = "granted"
	PermissionDenied        PermissionStatus = "denied"
	PermissionNotDetermined PermissionStatus = "not_determined"
	PermissionRestricted    PermissionStatus = "restricted"
)

// Valid reports whether s is one of the known states.
func (s PermissionStatus) Valid() bool {
	switch s {
	case PermissionLoading, PermissionGranted, PermissionDenied, PermissionNotDetermined, PermissionRestricted:
		return true
	}
	return false
}

// FetchOptions configures which events to retrieve.
type FetchOptions struct {
	Start time.Time
	End   time.Time

	// Filter by calendar ID. Empty means all calendars.
	CalendarIDs []string
}

// Provider represents a calendar source (Google, Outlook, an .ics feed).
type Provider interface {
	// ID returns the unique identifier from the config (e.g. "google")
	ID() string
	// Name returns a human-readable label (e.g. "Google Calendar")
	Name() string
	// ListCalendars returns every calendar the account can read.
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
	// FetchEvents retrieves events matching the given options.
	// This should block until done or context is cancelled.
	FetchEvents(ctx context.Context, opts FetchOptions) ([]Event, error)
}

// Authorizer grants and reports calendar access for a provider.
type Authorizer interface {
	CheckPermission(ctx context.Context) (PermissionStatus, error)
	// RequestPermission runs the interactive grant; true means granted.
	RequestPermission(ctx context.Context) (bool, error)
	// OpenPermissionSettings is best-effort.
	OpenPermissionSettings(ctx context.Context)
}

// SyncProvider is the two-tier event source: an expensive authoritative
// sync and a cheap read of what the last sync stored.
type SyncProvider interface {
	ForceSync(ctx context.Context) ([]Event, error)
	ReadCachedEvents(ctx context.Context) ([]Event, error)
}

// CalendarLister lists the subscribed calendars.
type CalendarLister interface {
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
}

// KV is a flat string key/value store. Get reports absent keys with
// ok == false and a nil error.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Opener opens a URL in the user's browser or registered handler.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }
