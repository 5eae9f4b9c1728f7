// Package tray publishes the compact "time to next event" label shown in
// the menu bar or status bar.
package tray

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/present"
)

// DefaultInterval is how often the label is refreshed.
const DefaultInterval = 30 * time.Second

// Label is what a sink renders. An empty Text clears the indicator.
type Label struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
}

// Sink receives labels. Publishing is fire-and-forget.
type Sink interface {
	PublishTrayLabel(l Label)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Label)

func (f SinkFunc) PublishTrayLabel(l Label) { f(l) }

// Publisher computes and pushes the label. It keeps no state between
// publishes; the threshold is read every time.
type Publisher struct {
	sink      Sink
	threshold func() int
	loc       *time.Location
	log       zerolog.Logger
}

// NewPublisher creates a publisher. threshold returns the visibility
// limit in minutes, 0 meaning always visible.
func NewPublisher(sink Sink, threshold func() int, loc *time.Location, log zerolog.Logger) *Publisher {
	if loc == nil {
		loc = time.Local
	}
	return &Publisher{
		sink:      sink,
		threshold: threshold,
		loc:       loc,
		log:       log.With().Str("component", "tray").Logger(),
	}
}

// Publish derives the label for the already filtered events at now and
// hands it to the sink.
func (p *Publisher) Publish(visible []core.Event, now time.Time) Label {
	l := p.Compute(visible, now)
	p.sink.PublishTrayLabel(l)
	return l
}

// Compute derives the label without publishing it.
func (p *Publisher) Compute(visible []core.Event, now time.Time) Label {
	next, ok := present.Next(visible, now)
	if !ok {
		return Label{Class: "none"}
	}
	start, _ := next.StartTime()
	mins := present.MinutesUntil(start, now)

	limit := p.threshold()
	if limit != 0 && mins > limit {
		p.log.Debug().Int("minutes", mins).Int("threshold", limit).Msg("next event beyond threshold")
		return Label{Class: "none"}
	}

	return Label{
		Text:    FormatMinutes(mins),
		Tooltip: fmt.Sprintf("%s at %s", present.DisplayTitle(next), start.In(p.loc).Format("15:04")),
		Class:   class(mins),
	}
}

// FormatMinutes renders 45 as "45m", 60 as "1h", 90 as "1h30m".
// Zero or less renders empty.
func FormatMinutes(mins int) string {
	switch {
	case mins <= 0:
		return ""
	case mins < 60:
		return fmt.Sprintf("%dm", mins)
	case mins%60 == 0:
		return fmt.Sprintf("%dh", mins/60)
	default:
		return fmt.Sprintf("%dh%dm", mins/60, mins%60)
	}
}

func class(mins int) string {
	if mins <= 5 {
		return "soon"
	}
	return "later"
}
