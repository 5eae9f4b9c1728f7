package meeting

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		location    string
		description string
		wantOK      bool
		wantService string
		wantURL     string
	}{
		{
			name:        "structured zoom url",
			url:         "https://acme.zoom.us/j/123456",
			wantOK:      true,
			wantService: "Zoom",
			wantURL:     "https://acme.zoom.us/j/123456",
		},
		{
			name:        "structured url wins over free text",
			url:         "https://meet.google.com/abc-defg-hij",
			description: "Backup: https://teams.microsoft.com/l/meetup-join/xyz",
			wantOK:      true,
			wantService: "Meet",
			wantURL:     "https://meet.google.com/abc-defg-hij",
		},
		{
			name:        "structured url is case insensitive",
			url:         "HTTPS://ACME.WEBEX.COM/meet/bob",
			wantOK:      true,
			wantService: "Webex",
			wantURL:     "HTTPS://ACME.WEBEX.COM/meet/bob",
		},
		{
			name:        "unknown structured url falls back to text",
			url:         "https://example.com/event/1",
			location:    "Room 4 / https://teams.microsoft.com/l/meetup-join/abc",
			wantOK:      true,
			wantService: "Teams",
			wantURL:     "https://teams.microsoft.com/l/meetup-join/abc",
		},
		{
			name:        "link in description",
			description: "Join here:\nhttps://us02web.zoom.us/j/987?pwd=xyz\nThanks",
			wantOK:      true,
			wantService: "Zoom",
			wantURL:     "https://us02web.zoom.us/j/987?pwd=xyz",
		},
		{
			name:        "location is scanned before description",
			location:    "https://meet.google.com/aaa-bbbb-ccc",
			description: "https://acme.zoom.us/j/1",
			wantOK:      true,
			wantService: "Meet",
			wantURL:     "https://meet.google.com/aaa-bbbb-ccc",
		},
		{
			name:        "no recognizable link",
			location:    "Conference room B",
			description: "See https://example.com/agenda",
			wantOK:      false,
		},
		{
			name:   "everything empty",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, ok := Detect(tt.url, tt.location, tt.description)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.wantOK, ok, link)
			}
			if !ok {
				return
			}
			if link.Service != tt.wantService {
				t.Errorf("expected service %q, got %q", tt.wantService, link.Service)
			}
			if link.URL != tt.wantURL {
				t.Errorf("expected url %q, got %q", tt.wantURL, link.URL)
			}
		})
	}
}

func TestClassifyOrder(t *testing.T) {
	// A URL mentioning two services resolves to the earlier matcher.
	got := Classify("https://meet.google.com/redirect?to=zoom.us")
	if got != "Zoom" {
		t.Errorf("expected Zoom, got %q", got)
	}
	if got := Classify("https://example.com"); got != "" {
		t.Errorf("expected no service, got %q", got)
	}
}
