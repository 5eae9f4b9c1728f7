package ics

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"

	"github.com/theakshaypant/meetbar/internal/core"
)

// maxOccurrences caps the expansion of a single recurring event.
const maxOccurrences = 500

type occurrence struct {
	ev        vevent
	start     time.Time
	end       time.Time
	recurring bool
}

// expand turns parsed VEVENTs into the concrete occurrences overlapping
// [from, to], applying EXDATE and RECURRENCE-ID overrides.
func expand(events []vevent, from, to time.Time, log zerolog.Logger) []occurrence {
	overrides := make(map[string][]vevent)
	var bases []vevent
	for _, ev := range events {
		if ev.recurrence != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []occurrence
	for _, ev := range bases {
		ov := overrides[ev.uid]
		if ev.rrule == "" {
			if overlaps(ev.start, ev.end, from, to) {
				out = append(out, occurrence{ev: ev, start: ev.start, end: ev.end})
			}
			continue
		}

		r, err := rrule.StrToRRule(ev.rrule)
		if err != nil {
			log.Debug().Err(err).Str("uid", ev.uid).Str("rrule", ev.rrule).Msg("bad RRULE")
			continue
		}
		r.DTStart(ev.start)

		var set rrule.Set
		set.RRule(r)
		for _, ex := range ev.exdates {
			set.ExDate(ex.In(ev.start.Location()))
		}

		dur := ev.duration()
		// instances that began before the window may still be running
		starts := set.Between(from.Add(-dur).In(ev.start.Location()), to.In(ev.start.Location()), true)
		if len(starts) > maxOccurrences {
			log.Warn().Str("uid", ev.uid).Int("cap", maxOccurrences).Msg("truncating recurrence")
			starts = starts[:maxOccurrences]
		}

		for _, s := range starts {
			occ := occurrence{ev: ev, start: s, end: s.Add(dur), recurring: true}
			if o, ok := findOverride(ov, s); ok {
				occ.ev, occ.start, occ.end = o, o.start, o.end
			}
			if overlaps(occ.start, occ.end, from, to) {
				out = append(out, occ)
			}
		}
	}

	// overrides that moved an instance into the window from outside it
	for _, ov := range overrides {
		for _, o := range ov {
			if o.recurrence == nil || !overlaps(o.start, o.end, from, to) {
				continue
			}
			if !overlaps(*o.recurrence, o.recurrence.Add(o.duration()), from, to) {
				out = append(out, occurrence{ev: o, start: o.start, end: o.end, recurring: true})
			}
		}
	}
	return out
}

func findOverride(overrides []vevent, start time.Time) (vevent, bool) {
	for _, o := range overrides {
		if o.recurrence != nil && o.recurrence.Equal(start) {
			return o, true
		}
	}
	return vevent{}, false
}

// overlaps reports whether [start, end) intersects [from, to]. Zero-length
// events count when they start inside the window.
func overlaps(start, end, from, to time.Time) bool {
	if start.After(to) {
		return false
	}
	if end.After(start) {
		return end.After(from)
	}
	return !start.Before(from)
}

func (o occurrence) toEvent(providerID string, cal core.Calendar, loc *time.Location) core.Event {
	id := o.ev.uid
	if o.recurring {
		key := o.start.UTC().Format("20060102T150405Z")
		if o.ev.recurrence != nil {
			key = o.ev.recurrence.UTC().Format("20060102T150405Z")
		}
		id += "_" + key
	}

	e := core.Event{
		ID:          id,
		ProviderID:  providerID,
		Calendar:    cal,
		Title:       o.ev.summary,
		Description: o.ev.description,
		Location:    o.ev.location,
		MeetingURL:  o.ev.meetingURL,
		ExternalURL: o.ev.url,
		Status:      o.ev.status,
		IsAllDay:    o.ev.allDay,
	}
	if e.Status == "" {
		e.Status = core.StatusConfirmed
	}

	if o.ev.allDay {
		start := o.start.In(loc).Format(core.DateLayout)
		e.Start = core.On(start)
		e.End = core.On(core.InclusiveEnd(start, o.end.In(loc).Format(core.DateLayout)))
		return e
	}
	e.Start = core.At(o.start)
	e.End = core.At(o.end)
	return e
}
