package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/present"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeService struct {
	perm      core.PermissionStatus
	events    []core.Event
	calendars []core.CalendarInfo
	hidden    map[string]bool
	syncErr   error
	requested int
	settings  int
	synced    int
}

func (f *fakeService) Permission() core.PermissionStatus { return f.perm }

func (f *fakeService) RequestPermission(ctx context.Context) core.PermissionStatus {
	f.requested++
	f.perm = core.PermissionGranted
	return f.perm
}

func (f *fakeService) OpenPermissionSettings(ctx context.Context) { f.settings++ }

func (f *fakeService) View() present.View {
	vis := present.VisibilityFunc(func(id string) bool { return !f.hidden[id] })
	return present.Build(f.events, vis, now, time.UTC)
}

func (f *fakeService) Loading() bool { return false }

func (f *fakeService) Calendars() []present.CalendarGroup {
	return present.GroupCalendars(f.calendars, func(id string) bool { return !f.hidden[id] })
}

func (f *fakeService) ToggleCalendar(id string) bool {
	f.hidden[id] = !f.hidden[id]
	return !f.hidden[id]
}

func (f *fakeService) ForceSync(ctx context.Context) error {
	f.synced++
	return f.syncErr
}

type recordingOpener struct {
	urls []string
}

func (r *recordingOpener) Open(url string) error {
	r.urls = append(r.urls, url)
	return nil
}

func timed(id, cal, title string, start time.Time, desc string) core.Event {
	return core.Event{
		ID:          id,
		Calendar:    core.Calendar{ID: cal, Name: cal},
		Title:       title,
		Description: desc,
		ExternalURL: "https://calendar.example.com/" + id,
		Start:       core.At(start),
		End:         core.At(start.Add(30 * time.Minute)),
	}
}

func newFake() *fakeService {
	return &fakeService{
		perm: core.PermissionGranted,
		events: []core.Event{
			{ID: "holiday", Calendar: core.Calendar{ID: "home"}, Title: "Holiday", Start: core.On("2026-03-02"), End: core.On("2026-03-02"), IsAllDay: true},
			timed("standup", "work", "Standup", now.Add(5*time.Minute), "Join https://meet.google.com/abc-defg-hij"),
			timed("review", "work", "Review", now.Add(2*time.Hour), ""),
		},
		calendars: []core.CalendarInfo{
			{ID: "home", Title: "Home", SourceName: "Google"},
			{ID: "work", Title: "Work", SourceName: "Google"},
		},
		hidden: map[string]bool{},
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to m and runs the returned command once, feeding its
// result back.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, quit := out.(tea.QuitMsg); !quit {
				next, _ = m.Update(out)
				m = next.(Model)
			}
		}
	}
	return m
}

func newTestModel(t *testing.T, svc *fakeService, opener *recordingOpener) Model {
	t.Helper()
	m := NewModel(svc, opener, nil, time.UTC)
	return send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func TestInitialSelectionIsNextEvent(t *testing.T) {
	m := newTestModel(t, newFake(), &recordingOpener{})

	item, ok := m.selected()
	if !ok {
		t.Fatal("expected a selection")
	}
	if item.Event.ID != "standup" {
		t.Errorf("expected standup selected, got %s", item.Event.ID)
	}
	if !strings.Contains(m.View(), "In 5 min") {
		t.Error("expected countdown badge in view")
	}
}

func TestOpenMeeting(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		expected []string
	}{
		{
			name:     "join detected meeting",
			keys:     []string{"enter"},
			expected: []string{"https://meet.google.com/abc-defg-hij"},
		},
		{
			name:     "no meeting link",
			keys:     []string{"down", "enter"},
			expected: nil,
		},
		{
			name:     "view event page",
			keys:     []string{"down", "v"},
			expected: []string{"https://calendar.example.com/review"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &recordingOpener{}
			m := newTestModel(t, newFake(), opener)
			for _, k := range tt.keys {
				m = send(t, m, keyPress(k))
			}
			if len(opener.urls) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, opener.urls)
			}
			for i := range tt.expected {
				if opener.urls[i] != tt.expected[i] {
					t.Errorf("expected %s, got %s", tt.expected[i], opener.urls[i])
				}
			}
		})
	}
}

func TestNavigationBounds(t *testing.T) {
	m := newTestModel(t, newFake(), &recordingOpener{})
	for i := 0; i < 5; i++ {
		m = send(t, m, keyPress("up"))
	}
	if m.selectedIdx != 0 {
		t.Errorf("expected 0, got %d", m.selectedIdx)
	}
	for i := 0; i < 5; i++ {
		m = send(t, m, keyPress("down"))
	}
	if m.selectedIdx != 2 {
		t.Errorf("expected 2, got %d", m.selectedIdx)
	}
}

func TestToggleCalendar(t *testing.T) {
	svc := newFake()
	m := newTestModel(t, svc, &recordingOpener{})

	m = send(t, m, keyPress("c"))
	if m.screen != ScreenCalendars {
		t.Fatal("expected calendars screen")
	}
	// second entry is "work"
	m = send(t, m, keyPress("down"))
	m = send(t, m, keyPress(" "))

	if !svc.hidden["work"] {
		t.Fatal("expected work to be hidden")
	}
	if len(m.items) != 1 || m.items[0].Event.ID != "holiday" {
		t.Errorf("expected only holiday, got %d items", len(m.items))
	}

	m = send(t, m, keyPress("esc"))
	if m.screen != ScreenEvents {
		t.Error("expected events screen after esc")
	}
}

func TestPermissionScreen(t *testing.T) {
	tests := []struct {
		name         string
		perm         core.PermissionStatus
		key          string
		wantText     string
		wantRequest  int
		wantSettings int
	}{
		{name: "grant", perm: core.PermissionNotDetermined, key: "g", wantText: "Calendar access needed", wantRequest: 1},
		{name: "settings ignored while undetermined", perm: core.PermissionNotDetermined, key: "s", wantText: "Calendar access needed"},
		{name: "denied opens settings", perm: core.PermissionDenied, key: "s", wantText: "Calendar access denied", wantSettings: 1},
		{name: "denied cannot request", perm: core.PermissionDenied, key: "g", wantText: "Calendar access denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFake()
			svc.perm = tt.perm
			m := newTestModel(t, svc, &recordingOpener{})

			if !strings.Contains(m.View(), tt.wantText) {
				t.Errorf("expected %q in view", tt.wantText)
			}

			m = send(t, m, keyPress(tt.key))
			if svc.requested != tt.wantRequest {
				t.Errorf("expected %d requests, got %d", tt.wantRequest, svc.requested)
			}
			if svc.settings != tt.wantSettings {
				t.Errorf("expected %d settings opens, got %d", tt.wantSettings, svc.settings)
			}
			if tt.wantRequest > 0 && m.perm != core.PermissionGranted {
				t.Errorf("expected granted after request, got %s", m.perm)
			}
		})
	}
}

func TestRefreshShowsError(t *testing.T) {
	svc := newFake()
	svc.syncErr = errors.New("offline")
	m := newTestModel(t, svc, &recordingOpener{})

	m = send(t, m, keyPress("r"))
	if svc.synced != 1 {
		t.Fatalf("expected 1 sync, got %d", svc.synced)
	}
	if m.syncing {
		t.Error("expected syncing to be cleared")
	}
	if !strings.Contains(m.View(), "offline") {
		t.Error("expected error in header")
	}
}

func TestFormatEventTime(t *testing.T) {
	tests := []struct {
		name     string
		event    core.Event
		expected string
	}{
		{
			name:     "timed",
			event:    timed("a", "work", "A", now, ""),
			expected: "Mon, Mar 2, 09:00 - 09:30",
		},
		{
			name:     "single all-day",
			event:    core.Event{Start: core.On("2026-03-02"), End: core.On("2026-03-02"), IsAllDay: true},
			expected: "Mon, Mar 2 (all day)",
		},
		{
			name:     "multi-day all-day",
			event:    core.Event{Start: core.On("2026-03-02"), End: core.On("2026-03-04"), IsAllDay: true},
			expected: "Mon, Mar 2 - Wed, Mar 4 (all day)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEventTime(tt.event, time.UTC); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
