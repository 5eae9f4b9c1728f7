// Package meeting recognizes video-meeting links on calendar events and
// opens them shortly before the meeting starts.
package meeting

import (
	"regexp"
	"strings"

	"github.com/theakshaypant/meetbar/internal/core"
)

// Link is a recognized meeting-service URL.
type Link struct {
	Service string `json:"service"`
	URL     string `json:"url"`
}

type matcher struct {
	pattern string
	service string
}

// services is evaluated in order; the first match wins.
var services = []matcher{
	{"zoom.us", "Zoom"},
	{"meet.google.com", "Meet"},
	{"teams.microsoft.com", "Teams"},
	{"webex.com", "Webex"},
}

var urlPattern = regexp.MustCompile(`(?i)https?://(?:[a-z0-9-]+\.)*(?:zoom\.us|meet\.google\.com|teams\.microsoft\.com|webex\.com)\S*`)

// Classify returns the service name for a URL, or "" when none matches.
func Classify(url string) string {
	lower := strings.ToLower(url)
	for _, m := range services {
		if strings.Contains(lower, m.pattern) {
			return m.service
		}
	}
	return ""
}

// Detect returns the meeting link of an event. The structured URL field
// wins over anything found in the location or description.
func Detect(url, location, description string) (Link, bool) {
	if url != "" {
		if service := Classify(url); service != "" {
			return Link{Service: service, URL: url}, true
		}
	}

	text := location + " " + description
	found := urlPattern.FindString(text)
	if found == "" {
		return Link{}, false
	}
	if service := Classify(found); service != "" {
		return Link{Service: service, URL: found}, true
	}
	return Link{}, false
}

// DetectEvent is Detect applied to an event's fields.
func DetectEvent(e core.Event) (Link, bool) {
	return Detect(e.MeetingURL, e.Location, e.Description)
}
