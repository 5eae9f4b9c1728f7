package present

import (
	"reflect"
	"testing"
	"time"

	"github.com/theakshaypant/meetbar/internal/core"
)

var utc = time.UTC

func at(h, m, s int) time.Time {
	return time.Date(2024, 1, 1, h, m, s, 0, utc)
}

func timed(id, cal string, start, end time.Time) core.Event {
	return core.Event{ID: id, Title: id, Calendar: core.Calendar{ID: cal}, Start: core.At(start), End: core.At(end)}
}

func allDay(id, date string) core.Event {
	return core.Event{ID: id, Title: id, IsAllDay: true, Start: core.On(date), End: core.On(date)}
}

func eventIDs(events []core.Event) []string {
	out := []string{}
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestFilterRecency(t *testing.T) {
	now := at(10, 0, 0)
	events := []core.Event{
		allDay("holiday", "2024-01-01"),
		timed("ended", "", at(9, 0, 0), at(9, 59, 59)),
		timed("ends-now", "", at(9, 0, 0), at(10, 0, 0)),
		timed("running", "", at(9, 30, 0), at(10, 0, 1)),
		{ID: "open-ended", Start: core.At(at(8, 0, 0))},
	}

	got := eventIDs(Filter(events, nil, now))
	want := []string{"holiday", "running", "open-ended"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterCalendars(t *testing.T) {
	now := at(8, 0, 0)
	events := []core.Event{
		timed("work", "work", at(9, 0, 0), at(10, 0, 0)),
		timed("home", "home", at(9, 0, 0), at(10, 0, 0)),
		timed("nocal", "", at(9, 0, 0), at(10, 0, 0)),
	}
	vis := VisibilityFunc(func(id string) bool { return id == "work" })

	got := eventIDs(Filter(events, vis, now))
	want := []string{"work", "nocal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextOccurrence(t *testing.T) {
	now := at(10, 0, 0)
	events := []core.Event{
		allDay("holiday", "2024-01-01"),
		timed("past", "", at(8, 0, 0), at(8, 30, 0)),
		timed("eleven", "", at(11, 0, 0), at(11, 30, 0)),
		timed("half-one", "", at(13, 30, 0), at(14, 0, 0)),
	}

	view := Build(events, nil, now, utc)
	var flagged []string
	for _, g := range view.Groups {
		for _, it := range g.Items {
			if it.IsNext {
				flagged = append(flagged, it.Event.ID)
			}
		}
	}
	if !reflect.DeepEqual(flagged, []string{"eleven"}) {
		t.Fatalf("expected only eleven flagged, got %v", flagged)
	}
	if view.Next == nil || view.Next.Event.ID != "eleven" || view.Next.MinutesUntil != 60 {
		t.Errorf("unexpected next: %+v", view.Next)
	}
}

func TestNextRequiresStrictlyFuture(t *testing.T) {
	now := at(10, 0, 0)
	events := []core.Event{
		timed("starting-now", "", at(10, 0, 0), at(10, 30, 0)),
		allDay("tomorrow", "2024-01-02"),
	}
	if e, ok := Next(events, now); ok {
		t.Errorf("expected no next occurrence, got %s", e.ID)
	}
	if v := Build(events, nil, now, utc); v.Next != nil {
		t.Errorf("expected no flagged item, got %s", v.Next.Event.ID)
	}
}

func TestGrouping(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, loc)
	events := []core.Event{
		allDay("holiday", "2024-01-01"),
		// 23:30 UTC on Jan 1 is Jan 2 08:30 in JST
		timed("late-utc", "", time.Date(2024, 1, 1, 23, 30, 0, 0, utc), time.Date(2024, 1, 2, 0, 0, 0, 0, utc)),
		timed("today", "", time.Date(2024, 1, 1, 10, 0, 0, 0, loc), time.Date(2024, 1, 1, 11, 0, 0, 0, loc)),
		allDay("friday", "2024-01-05"),
	}

	view := Build(events, nil, now, loc)

	type group struct {
		key, label string
		ids        []string
	}
	var got []group
	for _, g := range view.Groups {
		var ids []string
		for _, it := range g.Items {
			ids = append(ids, it.Event.ID)
		}
		got = append(got, group{g.Key, g.Label, ids})
	}
	want := []group{
		{"2024-01-01", "Today", []string{"holiday", "today"}},
		{"2024-01-02", "Tomorrow", []string{"late-utc"}},
		{"2024-01-05", "Fri, Jan 5", []string{"friday"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestItemDecoration(t *testing.T) {
	now := at(10, 0, 0)
	e := timed("", "", at(10, 4, 1), at(10, 30, 0))
	e.Title = ""
	e.Description = "join https://acme.zoom.us/j/42"

	view := Build([]core.Event{e, allDay("hol", "2024-01-01")}, nil, now, utc)
	items := view.Groups[0].Items
	first := items[0]

	if first.Title != "(No title)" {
		t.Errorf("expected placeholder title, got %q", first.Title)
	}
	if first.TimeRange != "10:04-10:30" {
		t.Errorf("expected 10:04-10:30, got %q", first.TimeRange)
	}
	if first.Meeting == nil || first.Meeting.Service != "Zoom" {
		t.Errorf("expected Zoom meeting, got %+v", first.Meeting)
	}
	if first.MinutesUntil != 5 || first.Urgency != UrgencySoon {
		t.Errorf("expected 5 minutes (soon), got %d (%s)", first.MinutesUntil, first.Urgency)
	}
	if items[1].TimeRange != "All day" {
		t.Errorf("expected All day, got %q", items[1].TimeRange)
	}
}

func TestMinutesUntil(t *testing.T) {
	now := at(10, 0, 0)
	tests := []struct {
		start time.Time
		want  int
	}{
		{at(10, 0, 1), 1},
		{at(10, 1, 0), 1},
		{at(10, 1, 0).Add(time.Millisecond), 2},
		{at(10, 15, 0), 15},
		{at(10, 0, 0), 0},
		{at(9, 0, 0), 0},
	}
	for _, tt := range tests {
		if got := MinutesUntil(tt.start, now); got != tt.want {
			t.Errorf("MinutesUntil(%s): expected %d, got %d", tt.start.Format("15:04:05.000"), tt.want, got)
		}
	}
}

func TestGroupCalendars(t *testing.T) {
	cals := []core.CalendarInfo{
		{ID: "1", Title: "Work", SourceName: "Google"},
		{ID: "2", Title: "Birthdays", SourceName: ""},
		{ID: "3", Title: "Family", SourceName: "Google"},
	}
	groups := GroupCalendars(cals, func(id string) bool { return id != "3" })

	if len(groups) != 2 || groups[0].Source != "Google" || groups[1].Source != "Other" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if len(groups[0].Calendars) != 2 || groups[0].Calendars[1].Enabled {
		t.Errorf("expected Family disabled in Google group, got %+v", groups[0].Calendars)
	}
	if CalendarColor("Work") != groups[0].Calendars[0].Color {
		t.Error("expected color to be stable per name")
	}
}

func TestCountdown(t *testing.T) {
	if got := Countdown(3); got != "In 3 min" {
		t.Errorf("expected In 3 min, got %q", got)
	}
	if got := Countdown(0); got != "Now" {
		t.Errorf("expected Now, got %q", got)
	}
}
