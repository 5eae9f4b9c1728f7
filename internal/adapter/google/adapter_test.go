package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/theakshaypant/meetbar/internal/auth"
	"github.com/theakshaypant/meetbar/internal/core"
)

const credentialsJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func fakeCalendarAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "team@group.calendar.google.com", Summary: "Team"},
			{Id: "alice@example.com", Summary: "alice@example.com", SummaryOverride: "Alice", Primary: true},
		}})
	})
	mux.HandleFunc("/calendars/alice@example.com/events", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(calendar.Events{Items: []*calendar.Event{
			{
				Id:      "standup",
				Summary: "Standup",
				Status:  "confirmed",
				Start:   &calendar.EventDateTime{DateTime: "2026-03-02T10:00:00+01:00"},
				End:     &calendar.EventDateTime{DateTime: "2026-03-02T10:15:00+01:00"},
				ConferenceData: &calendar.ConferenceData{EntryPoints: []*calendar.EntryPoint{
					{EntryPointType: "phone", Uri: "tel:+1"},
					{EntryPointType: "video", Uri: "https://meet.google.com/abc-defg-hij"},
				}},
			},
			{
				Id:      "offsite",
				Summary: "Offsite",
				Start:   &calendar.EventDateTime{Date: "2026-03-02"},
				End:     &calendar.EventDateTime{Date: "2026-03-04"},
			},
		}})
	})
	mux.HandleFunc("/calendars/team@group.calendar.google.com/events", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(calendar.Events{Items: []*calendar.Event{
			{
				Id:      "standup",
				Summary: "Standup",
				Start:   &calendar.EventDateTime{DateTime: "2026-03-02T10:00:00+01:00"},
				End:     &calendar.EventDateTime{DateTime: "2026-03-02T10:15:00+01:00"},
			},
			{
				Id:          "early",
				Summary:     "Early",
				HangoutLink: "https://meet.google.com/xyz",
				Start:       &calendar.EventDateTime{DateTime: "2026-03-02T08:00:00Z"},
				End:         &calendar.EventDateTime{DateTime: "2026-03-02T08:30:00Z"},
			},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAdapter(t *testing.T, srv *httptest.Server) *Adapter {
	t.Helper()
	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatal(err)
	}
	return New("google", "Google Calendar", "", "", zerolog.Nop(), withService(svc))
}

func TestListCalendars(t *testing.T) {
	g := newTestAdapter(t, fakeCalendarAPI(t))

	got, err := g.ListCalendars(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []core.CalendarInfo{
		{ID: "alice@example.com", Title: "Alice", SourceName: "alice@example.com"},
		{ID: "team@group.calendar.google.com", Title: "Team", SourceName: "alice@example.com"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d calendars, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calendar %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestFetchEvents(t *testing.T) {
	g := newTestAdapter(t, fakeCalendarAPI(t))
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	events, err := g.FetchEvents(context.Background(), core.FetchOptions{Start: start, End: start.AddDate(0, 0, 2)})
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	want := []string{"offsite", "early", "standup"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}

	offsite := events[0]
	if !offsite.IsAllDay || offsite.Start.Date != "2026-03-02" || offsite.End.Date != "2026-03-03" {
		t.Errorf("expected inclusive all-day range, got %+v", offsite)
	}
	if events[1].MeetingURL != "https://meet.google.com/xyz" {
		t.Errorf("expected hangout link, got %q", events[1].MeetingURL)
	}
	standup := events[2]
	if standup.MeetingURL != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("expected video entry point, got %q", standup.MeetingURL)
	}
	if standup.ProviderID != "google" || standup.Status != core.StatusConfirmed {
		t.Errorf("unexpected standup fields: %+v", standup)
	}
}

func TestFetchEventsCalendarFilter(t *testing.T) {
	g := newTestAdapter(t, fakeCalendarAPI(t))
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	events, err := g.FetchEvents(context.Background(), core.FetchOptions{
		Start:       start,
		End:         start.AddDate(0, 0, 1),
		CalendarIDs: []string{"team@group.calendar.google.com", "unknown"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 team events, got %d", len(events))
	}
	for _, e := range events {
		if e.Calendar.Name != "Team" {
			t.Errorf("expected Team calendar, got %q", e.Calendar.Name)
		}
	}
}

type fakeFlow struct {
	tok *oauth2.Token
	err error
}

func (f fakeFlow) Token(context.Context, *oauth2.Config, string, ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return f.tok, f.err
}

func TestCheckPermission(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(creds, []byte(credentialsJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	expired := &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(-time.Hour)}
	refreshable := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}

	tests := []struct {
		name  string
		creds string
		token *oauth2.Token
		want  core.PermissionStatus
	}{
		{name: "no credentials", creds: filepath.Join(dir, "missing.json"), want: core.PermissionRestricted},
		{name: "no token", creds: creds, want: core.PermissionNotDetermined},
		{name: "expired without refresh", creds: creds, token: expired, want: core.PermissionDenied},
		{name: "refreshable", creds: creds, token: refreshable, want: core.PermissionGranted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenFile := filepath.Join(t.TempDir(), "token.json")
			if tt.token != nil {
				if err := auth.SaveToken(tokenFile, tt.token); err != nil {
					t.Fatal(err)
				}
			}
			g := New("google", "Google", tt.creds, tokenFile, zerolog.Nop())
			got, err := g.CheckPermission(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRequestPermission(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(creds, []byte(credentialsJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("denied", func(t *testing.T) {
		g := New("google", "Google", creds, filepath.Join(dir, "denied.json"), zerolog.Nop(),
			WithFlow(fakeFlow{err: auth.ErrAccessDenied}))
		ok, err := g.RequestPermission(context.Background())
		if ok || err != nil {
			t.Errorf("expected (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("granted", func(t *testing.T) {
		tokenFile := filepath.Join(dir, "token.json")
		g := New("google", "Google", creds, tokenFile, zerolog.Nop(),
			WithFlow(fakeFlow{tok: &oauth2.Token{AccessToken: "a", RefreshToken: "r"}}))
		ok, err := g.RequestPermission(context.Background())
		if !ok || err != nil {
			t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
		}
		if _, err := auth.TokenFromFile(tokenFile); err != nil {
			t.Errorf("expected token saved: %v", err)
		}
		status, _ := g.CheckPermission(context.Background())
		if status != core.PermissionGranted {
			t.Errorf("expected granted, got %s", status)
		}
	})
}

func TestOpenPermissionSettings(t *testing.T) {
	var opened string
	g := New("google", "Google", "", "", zerolog.Nop(), WithOpener(core.OpenerFunc(func(url string) error {
		opened = url
		return nil
	})))
	g.OpenPermissionSettings(context.Background())
	if opened != SettingsURL {
		t.Errorf("expected %s, got %s", SettingsURL, opened)
	}
}
