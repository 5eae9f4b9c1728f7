package ics

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Conference links some producers put in vendor properties.
var conferenceProps = []ical.ComponentProperty{
	"X-GOOGLE-CONFERENCE",
	"X-MICROSOFT-SKYPETEAMSMEETINGURL",
	"X-MICROSOFT-ONLINEMEETINGCONFLINK",
}

// vevent is a VEVENT normalized for expansion.
type vevent struct {
	uid         string
	summary     string
	description string
	location    string
	url         string
	meetingURL  string
	status      string

	start  time.Time
	end    time.Time
	allDay bool

	rrule      string
	exdates    []time.Time
	recurrence *time.Time
}

func (v vevent) duration() time.Duration {
	if v.end.After(v.start) {
		return v.end.Sub(v.start)
	}
	return 0
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var out vevent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.uid = uid.Value

	out.summary = text(ve, ical.ComponentPropertySummary)
	out.description = text(ve, ical.ComponentPropertyDescription)
	out.location = text(ve, ical.ComponentPropertyLocation)
	out.url = text(ve, ical.ComponentPropertyUrl)
	out.status = strings.ToLower(text(ve, ical.ComponentPropertyStatus))
	for _, p := range conferenceProps {
		if v := text(ve, p); v != "" {
			out.meetingURL = v
			break
		}
	}

	dtstart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return out, fmt.Errorf("%s: missing DTSTART", out.uid)
	}
	start, allDay, err := parseTime(dtstart.Value, dtstart.ICalParameters, loc)
	if err != nil {
		return out, fmt.Errorf("%s: DTSTART: %w", out.uid, err)
	}
	out.start, out.allDay = start, allDay

	switch {
	case ve.GetProperty(ical.ComponentPropertyDtEnd) != nil:
		p := ve.GetProperty(ical.ComponentPropertyDtEnd)
		if out.end, _, err = parseTime(p.Value, p.ICalParameters, loc); err != nil {
			return out, fmt.Errorf("%s: DTEND: %w", out.uid, err)
		}
	case ve.GetProperty(ical.ComponentPropertyDuration) != nil:
		d, err := parseDuration(ve.GetProperty(ical.ComponentPropertyDuration).Value)
		if err != nil {
			return out, fmt.Errorf("%s: DURATION: %w", out.uid, err)
		}
		out.end = out.start.Add(d)
	case allDay:
		out.end = out.start.AddDate(0, 0, 1)
	default:
		out.end = out.start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rrule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, _, err := parseTime(part, p.ICalParameters, loc); err == nil {
				out.exdates = append(out.exdates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, _, err := parseTime(p.Value, p.ICalParameters, loc); err == nil {
			out.recurrence = &t
		}
	}

	return out, nil
}

func text(ve *ical.VEvent, prop ical.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

// parseTime parses a DATE or DATE-TIME value. UTC values end in Z, TZID
// selects a zone, and anything else is floating and read in loc.
// Unknown TZIDs (Windows names, custom VTIMEZONEs) fall back to loc.
func parseTime(value string, params map[string][]string, loc *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, errors.New("empty time value")
	}

	isDate := !strings.Contains(value, "T")
	if vs := params[string(ical.ParameterValue)]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}
	if isDate {
		t, err := time.ParseInLocation("20060102", value, loc)
		return t, true, err
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		return t, false, err
	}

	zone := loc
	if tz := params[string(ical.ParameterTzid)]; len(tz) > 0 {
		if l, err := time.LoadLocation(strings.Trim(tz[0], `"`)); err == nil {
			zone = l
		}
	}
	t, err := time.ParseInLocation("20060102T150405", value, zone)
	return t, false, err
}

var durationRe = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseDuration parses an RFC 5545 duration such as PT1H30M or P1D.
func parseDuration(s string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}
