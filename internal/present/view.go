// Package present turns the cached event list into the grouped,
// countdown-annotated view shown to the user. Everything here is a pure
// function of its inputs, including "now".
package present

import (
	"math"
	"time"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/meeting"
)

const (
	LabelToday    = "Today"
	LabelTomorrow = "Tomorrow"
	LabelAllDay   = "All day"
	UntitledEvent = "(No title)"

	shortDateLayout = "Mon, Jan 2"
	clockLayout     = "15:04"
)

// Urgency classifies how close the next event is.
type Urgency string

const (
	UrgencyNone   Urgency = ""
	UrgencyNormal Urgency = "normal"
	UrgencySoon   Urgency = "soon"
	UrgencyUrgent Urgency = "urgent"
)

// Visibility decides which calendars are shown.
type Visibility interface {
	Visible(calendarID string) bool
}

// VisibilityFunc adapts a function to Visibility.
type VisibilityFunc func(calendarID string) bool

func (f VisibilityFunc) Visible(id string) bool { return f(id) }

// AllVisible shows every calendar.
var AllVisible Visibility = VisibilityFunc(func(string) bool { return true })

// Item is one event card.
type Item struct {
	Event        core.Event    `json:"event"`
	Title        string        `json:"title"`
	TimeRange    string        `json:"timeRange"`
	Meeting      *meeting.Link `json:"meeting,omitempty"`
	IsNext       bool          `json:"isNext"`
	MinutesUntil int           `json:"minutesUntil,omitempty"`
	Urgency      Urgency       `json:"urgency,omitempty"`
}

// Group is the events of one day.
type Group struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Items []Item `json:"items"`
}

// View is the full popover model.
type View struct {
	Now    time.Time `json:"now"`
	Groups []Group   `json:"groups"`
	Next   *Item     `json:"next,omitempty"`
}

// Empty reports whether no event survived filtering.
func (v View) Empty() bool { return len(v.Groups) == 0 }

// Build filters events by calendar and recency, groups them by start
// day in loc, and flags the next upcoming timed event. events must
// already be ordered by start.
func Build(events []core.Event, vis Visibility, now time.Time, loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}
	visible := Filter(events, vis, now)
	next, hasNext := nextIndex(visible, now)

	today := now.In(loc)
	todayKey := today.Format(core.DateLayout)
	tomorrowKey := time.Date(today.Year(), today.Month(), today.Day()+1, 0, 0, 0, 0, loc).Format(core.DateLayout)

	view := View{Now: now}
	index := make(map[string]int)
	for i, e := range visible {
		key := DateKey(e, loc)
		g, ok := index[key]
		if !ok {
			g = len(view.Groups)
			index[key] = g
			view.Groups = append(view.Groups, Group{
				Key:   key,
				Label: groupLabel(key, todayKey, tomorrowKey, loc),
			})
		}

		item := newItem(e, loc)
		if hasNext && i == next {
			item.IsNext = true
			start, _ := e.StartTime()
			item.MinutesUntil = MinutesUntil(start, now)
			item.Urgency = urgency(item.MinutesUntil)
		}
		view.Groups[g].Items = append(view.Groups[g].Items, item)
		if item.IsNext {
			n := item
			view.Next = &n
		}
	}
	return view
}

// Filter drops events of hidden calendars and timed events that have
// already ended. All-day events and events without an end are kept.
func Filter(events []core.Event, vis Visibility, now time.Time) []core.Event {
	if vis == nil {
		vis = AllVisible
	}
	out := make([]core.Event, 0, len(events))
	for _, e := range events {
		if e.Calendar.ID != "" && !vis.Visible(e.Calendar.ID) {
			continue
		}
		if !e.IsAllDay {
			if end, ok := e.End.Time(); ok && !end.After(now) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Next returns the earliest timed event starting strictly after now.
// Ties keep the first in list order.
func Next(events []core.Event, now time.Time) (core.Event, bool) {
	i, ok := nextIndex(events, now)
	if !ok {
		return core.Event{}, false
	}
	return events[i], true
}

func nextIndex(events []core.Event, now time.Time) (int, bool) {
	best := -1
	var bestStart time.Time
	for i, e := range events {
		if e.IsAllDay {
			continue
		}
		start, ok := e.StartTime()
		if !ok || !start.After(now) {
			continue
		}
		if best < 0 || start.Before(bestStart) {
			best, bestStart = i, start
		}
	}
	return best, best >= 0
}

// MinutesUntil is the whole minutes from now to start, rounded up and
// floored at zero.
func MinutesUntil(start, now time.Time) int {
	diff := start.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff.Milliseconds()) / 60000))
}

// DateKey is the YYYY-MM-DD day an event is grouped under: the local
// start date of timed events, the date field of all-day events.
func DateKey(e core.Event, loc *time.Location) string {
	if e.Start.DateTime == nil {
		return e.Start.Date
	}
	return e.Start.DateTime.In(loc).Format(core.DateLayout)
}

func groupLabel(key, todayKey, tomorrowKey string, loc *time.Location) string {
	switch key {
	case todayKey:
		return LabelToday
	case tomorrowKey:
		return LabelTomorrow
	}
	t, err := time.ParseInLocation(core.DateLayout, key, loc)
	if err != nil {
		return key
	}
	return t.Format(shortDateLayout)
}

func newItem(e core.Event, loc *time.Location) Item {
	item := Item{
		Event:     e,
		Title:     DisplayTitle(e),
		TimeRange: TimeRange(e, loc),
	}
	if link, ok := meeting.DetectEvent(e); ok {
		item.Meeting = &link
	}
	return item
}

// DisplayTitle substitutes a placeholder for untitled events.
func DisplayTitle(e core.Event) string {
	if e.Title == "" {
		return UntitledEvent
	}
	return e.Title
}

// TimeRange renders "09:00-09:30", "09:00" without an end, or "All day".
func TimeRange(e core.Event, loc *time.Location) string {
	start, ok := e.StartTime()
	if !ok {
		return LabelAllDay
	}
	if end, ok := e.End.Time(); ok {
		return start.In(loc).Format(clockLayout) + "-" + end.In(loc).Format(clockLayout)
	}
	return start.In(loc).Format(clockLayout)
}

func urgency(minutes int) Urgency {
	switch {
	case minutes <= 1:
		return UrgencyUrgent
	case minutes <= 5:
		return UrgencySoon
	default:
		return UrgencyNormal
	}
}
