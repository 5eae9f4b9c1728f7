package meeting

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
)

// DefaultOpenDelay separates the "opening" notice from the actual open.
const DefaultOpenDelay = 3 * time.Second

// launchGrace is how long after the start a missed meeting is still opened.
const launchGrace = -2

// Notifier is told about a meeting that is about to be opened.
type Notifier interface {
	MeetingOpening(e core.Event, link Link)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(e core.Event, link Link)

func (f NotifierFunc) MeetingOpening(e core.Event, link Link) { f(e, link) }

// Launcher opens meeting links shortly before their events start, at most
// once per event id per session.
type Launcher struct {
	mu      sync.Mutex
	opened  map[string]struct{}
	pending map[*time.Timer]struct{}
	stopped bool

	opener        core.Opener
	notifier      Notifier
	minutesBefore func() int
	delay         time.Duration
	log           zerolog.Logger
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithNotifier sets the notice sent before opening.
func WithNotifier(n Notifier) LauncherOption {
	return func(l *Launcher) { l.notifier = n }
}

// WithOpenDelay overrides DefaultOpenDelay. Zero opens synchronously.
func WithOpenDelay(d time.Duration) LauncherOption {
	return func(l *Launcher) { l.delay = d }
}

// NewLauncher creates a launcher. minutesBefore is read on every pass.
func NewLauncher(opener core.Opener, minutesBefore func() int, log zerolog.Logger, opts ...LauncherOption) *Launcher {
	l := &Launcher{
		opened:        make(map[string]struct{}),
		pending:       make(map[*time.Timer]struct{}),
		opener:        opener,
		minutesBefore: minutesBefore,
		delay:         DefaultOpenDelay,
		log:           log.With().Str("component", "launcher").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check opens every due meeting in events and returns the links it
// launched. Ids no longer present in events are forgotten afterwards.
func (l *Launcher) Check(events []core.Event, now time.Time) []Link {
	lead := int64(l.minutesBefore()) * 60

	var launched []Link
	for _, e := range events {
		if e.IsAllDay {
			continue
		}
		start, ok := e.StartTime()
		if !ok {
			continue
		}
		until := start.Sub(now)
		if int64(until/time.Second) > lead || int64(until/time.Minute) < launchGrace {
			continue
		}
		link, ok := DetectEvent(e)
		if !ok {
			continue
		}
		if !l.markOpened(e.ID) {
			continue
		}

		l.log.Info().Str("event", e.Title).Str("url", link.URL).Msg("opening meeting")
		if l.notifier != nil {
			l.notifier.MeetingOpening(e, link)
		}
		l.open(link.URL)
		launched = append(launched, link)
	}

	l.prune(events)
	return launched
}

// Opened reports whether the event's meeting was already launched.
func (l *Launcher) Opened(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.opened[id]
	return ok
}

func (l *Launcher) markOpened(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.opened[id]; ok {
		return false
	}
	l.opened[id] = struct{}{}
	return true
}

func (l *Launcher) prune(events []core.Event) {
	live := make(map[string]struct{}, len(events))
	for _, e := range events {
		live[e.ID] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.opened {
		if _, ok := live[id]; !ok {
			delete(l.opened, id)
		}
	}
}

func (l *Launcher) open(url string) {
	do := func() {
		if err := l.opener.Open(url); err != nil {
			l.log.Warn().Err(err).Str("url", url).Msg("open meeting link")
		}
	}
	if l.delay <= 0 {
		do()
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(l.delay, func() {
		l.mu.Lock()
		delete(l.pending, t)
		stopped := l.stopped
		l.mu.Unlock()
		if !stopped {
			do()
		}
	})
	l.pending[t] = struct{}{}
}

// Stop cancels delayed opens that have not fired yet. Later checks still
// record meetings but no longer open them after a delay.
func (l *Launcher) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	for t := range l.pending {
		t.Stop()
		delete(l.pending, t)
	}
}

// Pending returns the number of delayed opens waiting to fire.
func (l *Launcher) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
