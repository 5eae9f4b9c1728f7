package outlook

import (
	"strings"
	"time"

	"github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/theakshaypant/meetbar/internal/core"
)

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

var graphLayouts = []string{
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05",
}

// parseDateTime converts a Graph DateTimeTimeZone to time.Time.
// Times are in UTC because we set the Prefer: outlook.timezone="UTC" header.
func parseDateTime(dt models.DateTimeTimeZoneable) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	s := dt.GetDateTime()
	if s == nil {
		return time.Time{}, false
	}
	for _, layout := range graphLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// datePart returns the calendar date of an all-day boundary.
func datePart(dt models.DateTimeTimeZoneable) string {
	if dt == nil {
		return ""
	}
	s := derefStr(dt.GetDateTime())
	if len(s) < len(core.DateLayout) {
		return ""
	}
	return s[:len(core.DateLayout)]
}

func isHTML(body models.ItemBodyable) bool {
	ct := body.GetContentType()
	return ct != nil && *ct == models.HTML_BODYTYPE
}

func ownerName(cal models.Calendarable) string {
	if owner := cal.GetOwner(); owner != nil {
		if addr := strings.TrimSpace(derefStr(owner.GetAddress())); addr != "" {
			return addr
		}
		if name := strings.TrimSpace(derefStr(owner.GetName())); name != "" {
			return name
		}
	}
	return "Outlook"
}
