package present

import (
	"fmt"

	"github.com/theakshaypant/meetbar/internal/core"
)

// OtherSource is the group name for calendars without a source.
const OtherSource = "Other"

var palette = []string{
	"#4285f4", "#ea4335", "#34a853", "#fbbc04",
	"#ff6d01", "#46bdc6", "#7baaf7", "#f07b72",
}

// CalendarEntry is one row of the calendar picker.
type CalendarEntry struct {
	core.CalendarInfo
	Enabled bool   `json:"enabled"`
	Color   string `json:"color"`
}

// CalendarGroup is the calendars of one account.
type CalendarGroup struct {
	Source    string          `json:"source"`
	Calendars []CalendarEntry `json:"calendars"`
}

// GroupCalendars groups calendars by source name in first-seen order.
func GroupCalendars(calendars []core.CalendarInfo, enabled func(id string) bool) []CalendarGroup {
	var groups []CalendarGroup
	index := make(map[string]int)
	for _, c := range calendars {
		source := c.SourceName
		if source == "" {
			source = OtherSource
		}
		g, ok := index[source]
		if !ok {
			g = len(groups)
			index[source] = g
			groups = append(groups, CalendarGroup{Source: source})
		}
		groups[g].Calendars = append(groups[g].Calendars, CalendarEntry{
			CalendarInfo: c,
			Enabled:      enabled(c.ID),
			Color:        CalendarColor(c.Title),
		})
	}
	return groups
}

// CalendarColor picks a stable palette color for a calendar name.
func CalendarColor(name string) string {
	var hash int32
	for _, r := range name {
		hash = int32(r) + ((hash << 5) - hash)
	}
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return palette[h%int64(len(palette))]
}

// Countdown renders the next-event badge: "In 5 min", or "Now" once the
// start has been reached.
func Countdown(minutes int) string {
	if minutes <= 0 {
		return "Now"
	}
	return fmt.Sprintf("In %d min", minutes)
}
