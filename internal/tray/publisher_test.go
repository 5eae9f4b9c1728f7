package tray

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
)

type captureSink struct {
	labels []Label
}

func (c *captureSink) PublishTrayLabel(l Label) { c.labels = append(c.labels, l) }

var now = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func startingIn(d time.Duration) []core.Event {
	start := now.Add(d)
	return []core.Event{{ID: "a", Title: "Planning", Start: core.At(start), End: core.At(start.Add(time.Hour))}}
}

func TestPublishThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		until     time.Duration
		want      string
	}{
		{"always shows far event", 0, 5 * time.Hour, "5h"},
		{"always shows near event", 0, 3 * time.Minute, "3m"},
		{"beyond threshold is cleared", 15, 16 * time.Minute, ""},
		{"at threshold is shown", 15, 15 * time.Minute, "15m"},
		{"partial minute rounds up", 15, 14*time.Minute + time.Second, "15m"},
		{"inside default threshold", 30, 90 * time.Second, "2m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &captureSink{}
			p := NewPublisher(sink, func() int { return tt.threshold }, time.UTC, zerolog.Nop())
			p.Publish(startingIn(tt.until), now)

			if len(sink.labels) != 1 {
				t.Fatalf("expected exactly one publish, got %d", len(sink.labels))
			}
			if got := sink.labels[0].Text; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPublishWithoutNextClears(t *testing.T) {
	sink := &captureSink{}
	p := NewPublisher(sink, func() int { return 0 }, time.UTC, zerolog.Nop())

	events := []core.Event{
		{ID: "past", Start: core.At(now.Add(-time.Hour)), End: core.At(now.Add(time.Hour))},
		{ID: "holiday", IsAllDay: true, Start: core.On("2024-01-01")},
	}
	p.Publish(events, now)
	p.Publish(nil, now)

	for i, l := range sink.labels {
		if l.Text != "" {
			t.Errorf("publish %d: expected empty label, got %q", i, l.Text)
		}
	}
	if len(sink.labels) != 2 {
		t.Errorf("expected both publishes to reach the sink, got %d", len(sink.labels))
	}
}

func TestTooltipAndClass(t *testing.T) {
	p := NewPublisher(&captureSink{}, func() int { return 0 }, time.UTC, zerolog.Nop())
	l := p.Compute(startingIn(4*time.Minute), now)
	if l.Tooltip != "Planning at 10:04" || l.Class != "soon" {
		t.Errorf("unexpected label: %+v", l)
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[int]string{
		-1:  "",
		0:   "",
		1:   "1m",
		59:  "59m",
		60:  "1h",
		61:  "1h1m",
		150: "2h30m",
	}
	for in, want := range tests {
		if got := FormatMinutes(in); got != want {
			t.Errorf("FormatMinutes(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestSinks(t *testing.T) {
	var waybar, plain bytes.Buffer
	path := filepath.Join(t.TempDir(), "tray", "label")
	sink := Multi{
		NewWaybarSink(&waybar, zerolog.Nop()),
		NewPlainSink(&plain, zerolog.Nop()),
		NewFileSink(path, zerolog.Nop()),
	}

	sink.PublishTrayLabel(Label{Text: "5m", Tooltip: "Sync at 10:05", Class: "soon"})

	if got := strings.TrimSpace(waybar.String()); got != `{"text":"5m","tooltip":"Sync at 10:05","class":"soon"}` {
		t.Errorf("unexpected waybar output %s", got)
	}
	if plain.String() != "5m\n" {
		t.Errorf("unexpected plain output %q", plain.String())
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "5m\n" {
		t.Errorf("unexpected file content %q (%v)", b, err)
	}
}
