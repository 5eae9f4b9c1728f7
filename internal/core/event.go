package core

import (
	"sort"
	"time"
)

// DateLayout is the layout of all-day dates and of day-group keys.
const DateLayout = "2006-01-02"

// Known lifecycle status values. Providers may report others.
const (
	StatusConfirmed = "confirmed"
	StatusTentative = "tentative"
	StatusCancelled = "cancelled"
)

// When is one end of an event: either an instant (timed events) or a
// plain calendar date (all-day events). Both empty means "not set".
type When struct {
	DateTime *time.Time `json:"dateTime,omitempty"`
	// Date is YYYY-MM-DD
	Date string `json:"date,omitempty"`
}

// At builds a timed When.
func At(t time.Time) When {
	return When{DateTime: &t}
}

// On builds an all-day When from a YYYY-MM-DD date.
func On(date string) When {
	return When{Date: date}
}

// IsZero reports whether neither an instant nor a date is set.
func (w When) IsZero() bool {
	return w.DateTime == nil && w.Date == ""
}

// Time returns the instant for timed values.
func (w When) Time() (time.Time, bool) {
	if w.DateTime == nil {
		return time.Time{}, false
	}
	return *w.DateTime, true
}

// Instant resolves the value to a point in time. Dates resolve to local
// midnight in loc.
func (w When) Instant(loc *time.Location) (time.Time, bool) {
	if w.DateTime != nil {
		return *w.DateTime, true
	}
	if w.Date == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, w.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Calendar identifies the calendar an event belongs to.
// Both fields may be empty when the provider does not know.
type Calendar struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Event is one calendar occurrence. Adapters convert their data to this
// format; a sync cycle produces a fresh list that replaces the previous one.
type Event struct {
	// Unique within one sync cycle
	ID string `json:"id"`
	// The ID of the provider source (e.g., "google")
	ProviderID string   `json:"providerId,omitempty"`
	Calendar   Calendar `json:"calendar"`

	Title       string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	// Structured video conferencing link (Meet, Zoom, Teams, etc.)
	MeetingURL string `json:"url,omitempty"`
	// Calendar event page URL
	ExternalURL string `json:"externalUrl,omitempty"`
	Status      string `json:"status,omitempty"`

	Start    When `json:"start"`
	End      When `json:"end"`
	IsAllDay bool `json:"isAllDay"`
}

// StartTime returns the start instant of a timed event.
func (e Event) StartTime() (time.Time, bool) {
	return e.Start.Time()
}

// InProgress checks if the event is happening right now.
func (e Event) InProgress(now time.Time) bool {
	start, ok := e.Start.Time()
	if !ok {
		return false
	}
	end, ok := e.End.Time()
	if !ok {
		return now.After(start)
	}
	return now.After(start) && now.Before(end)
}

// SortEvents orders events by start. All-day events resolve to local
// midnight in loc, so they sort before timed events on the same day.
// The sort is stable.
func SortEvents(events []Event, loc *time.Location) {
	sort.SliceStable(events, func(i, j int) bool {
		a, _ := events[i].Start.Instant(loc)
		b, _ := events[j].Start.Instant(loc)
		if a.Equal(b) {
			return events[i].IsAllDay && !events[j].IsAllDay
		}
		return a.Before(b)
	})
}

// CalendarInfo is one subscribed calendar.
type CalendarInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Account name, e.g. "iCloud" or "me@example.com"
	SourceName string `json:"sourceName"`
}

// SortCalendars orders calendars by source name then title.
func SortCalendars(calendars []CalendarInfo) {
	sort.SliceStable(calendars, func(i, j int) bool {
		if calendars[i].SourceName != calendars[j].SourceName {
			return calendars[i].SourceName < calendars[j].SourceName
		}
		return calendars[i].Title < calendars[j].Title
	})
}

// InclusiveEnd converts an exclusive all-day end date (the iCalendar and
// provider convention) to the last date the event covers. It never
// returns a date before start.
func InclusiveEnd(start, exclusiveEnd string) string {
	end, err := time.Parse(DateLayout, exclusiveEnd)
	if err != nil {
		return start
	}
	last := end.AddDate(0, 0, -1).Format(DateLayout)
	if last < start {
		return start
	}
	return last
}
