// Package app wires the permission machine, event sync, presentation,
// tray publisher and meeting launcher into one running application.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/enablement"
	"github.com/theakshaypant/meetbar/internal/eventsync"
	"github.com/theakshaypant/meetbar/internal/meeting"
	"github.com/theakshaypant/meetbar/internal/permission"
	"github.com/theakshaypant/meetbar/internal/present"
	"github.com/theakshaypant/meetbar/internal/schedule"
	"github.com/theakshaypant/meetbar/internal/settings"
	"github.com/theakshaypant/meetbar/internal/source"
	"github.com/theakshaypant/meetbar/internal/tray"
)

const (
	// DefaultNowInterval drives the shared "now" used by the view and tray.
	DefaultNowInterval = 30 * time.Second
	// DefaultLauncherInterval is how often due meetings are checked.
	DefaultLauncherInterval = 10 * time.Second
	// DefaultSyncInterval is how often the provider is fetched in the
	// background once access is granted.
	DefaultSyncInterval = 5 * time.Minute
)

// Notification types pushed to subscribers.
const (
	ViewUpdated       = "view.updated"
	PermissionChanged = "permission.changed"
	TrayUpdated       = "tray.updated"
	SyncError         = "sync.error"
	MeetingOpening    = "meeting.opening"
)

// Notification is a state change pushed to subscribers.
type Notification struct {
	Type    string
	Payload any
}

// SyncErrorPayload describes a failed forced sync.
type SyncErrorPayload struct {
	Error string `json:"error"`
}

// MeetingPayload describes an automatically opened meeting.
type MeetingPayload struct {
	EventID string `json:"eventId"`
	Title   string `json:"title"`
	Service string `json:"service"`
	URL     string `json:"url"`
}

// Deps are the collaborators an App is built from.
type Deps struct {
	Provider   core.Provider
	Authorizer core.Authorizer
	Store      core.Storage
	KV         core.KV
	Scheduler  schedule.Scheduler
	Opener     core.Opener
	// TraySink is optional.
	TraySink tray.Sink
	Log      zerolog.Logger
}

// Options tunes intervals and time handling. Zero values take defaults.
type Options struct {
	Location         *time.Location
	Clock            schedule.Clock
	Days             int
	NowInterval      time.Duration
	PollInterval     time.Duration
	RefreshInterval  time.Duration
	LauncherEnabled  bool
	LauncherInterval time.Duration
	SyncInterval     time.Duration
	OpenDelay        *time.Duration
}

type App struct {
	source     *source.Source
	perm       *permission.Machine
	sync       *eventsync.Scheduler
	enabled    *enablement.Store
	settings   *settings.Settings
	tray       *tray.Publisher
	launcher   *meeting.Launcher
	authorizer core.Authorizer

	sched schedule.Scheduler
	clock schedule.Clock
	loc   *time.Location
	opts  Options
	log   zerolog.Logger

	// refreshMu orders rebuilds so a slower one never overwrites a
	// newer view.
	refreshMu sync.Mutex

	mu          sync.Mutex
	ctx         context.Context
	now         time.Time
	view        present.View
	label       tray.Label
	calendars   []core.CalendarInfo
	syncStarted bool
	cancels     []schedule.Cancel
	subscribers map[int]func(Notification)
	nextSub     int
}

func New(deps Deps, opts Options) *App {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = schedule.SystemClock
	}
	if opts.NowInterval <= 0 {
		opts.NowInterval = DefaultNowInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = permission.DefaultPollInterval
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = eventsync.DefaultRefreshInterval
	}
	if opts.LauncherInterval <= 0 {
		opts.LauncherInterval = DefaultLauncherInterval
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}

	log := deps.Log.With().Str("component", "app").Logger()
	a := &App{
		authorizer:  deps.Authorizer,
		sched:       deps.Scheduler,
		clock:       opts.Clock,
		loc:         opts.Location,
		opts:        opts,
		log:         log,
		ctx:         context.Background(),
		subscribers: make(map[int]func(Notification)),
	}

	a.settings = settings.New(deps.KV, deps.Log)
	a.enabled = enablement.NewStore(deps.KV, deps.Log)
	a.source = source.New(deps.Provider, deps.Store, deps.Log,
		source.WithDays(opts.Days),
		source.WithClock(opts.Clock),
		source.WithLocation(opts.Location),
	)
	a.perm = permission.New(deps.Authorizer, deps.Scheduler, deps.Log, permission.WithPollInterval(opts.PollInterval))
	a.sync = eventsync.New(a.source, deps.Scheduler, deps.Log, eventsync.WithRefreshInterval(opts.RefreshInterval))

	sink := deps.TraySink
	if sink == nil {
		sink = tray.Multi{}
	}
	a.tray = tray.NewPublisher(tray.SinkFunc(func(l tray.Label) {
		sink.PublishTrayLabel(l)
		a.notify(TrayUpdated, l)
	}), a.settings.TrayCountdownMinutes, opts.Location, deps.Log)

	if opts.LauncherEnabled && deps.Opener != nil {
		launcherOpts := []meeting.LauncherOption{meeting.WithNotifier(meeting.NotifierFunc(a.meetingOpening))}
		if opts.OpenDelay != nil {
			launcherOpts = append(launcherOpts, meeting.WithOpenDelay(*opts.OpenDelay))
		}
		a.launcher = meeting.NewLauncher(deps.Opener, a.settings.MinutesBefore, deps.Log, launcherOpts...)
	}

	a.perm.OnChange(a.onPermission)
	a.sync.OnChange(func([]core.Event) { a.refresh() })
	return a
}

// Start registers the shared timers and runs the first permission check.
// A granted result loads the calendar list and starts syncing.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.now = a.clock.Now()
	a.cancels = append(a.cancels, a.sched.Every(a.opts.NowInterval, a.tick))
	if a.launcher != nil {
		a.cancels = append(a.cancels, a.sched.Every(a.opts.LauncherInterval, a.launch))
	}
	a.mu.Unlock()

	a.perm.Start(ctx)
	a.refresh()
}

// Stop cancels every timer the app and its components registered.
func (a *App) Stop() {
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	a.perm.Stop()
	a.sync.Stop()
	if a.launcher != nil {
		a.launcher.Stop()
	}
}

func (a *App) onPermission(status core.PermissionStatus) {
	a.notify(PermissionChanged, status)
	if status != core.PermissionGranted {
		return
	}

	a.mu.Lock()
	ctx := a.ctx
	first := !a.syncStarted
	a.syncStarted = true
	if first {
		a.cancels = append(a.cancels, a.sched.Every(a.opts.SyncInterval, func() { a.backgroundSync(ctx) }))
	}
	a.mu.Unlock()
	if !first {
		return
	}

	a.ReloadCalendars(ctx)
	if err := a.sync.Start(ctx); err != nil {
		a.log.Warn().Err(err).Msg("initial sync failed")
		a.notify(SyncError, SyncErrorPayload{Error: err.Error()})
	}
}

// ReloadCalendars refreshes the calendar list and reconciles the
// enabled set with it. A failed listing keeps the previous list.
func (a *App) ReloadCalendars(ctx context.Context) {
	cals, err := a.source.ListCalendars(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("could not list calendars")
		return
	}
	a.enabled.Load(cals)

	a.mu.Lock()
	a.calendars = cals
	a.mu.Unlock()
	a.refresh()
}

// backgroundSync refetches the provider into the cache. The in-memory
// list picks the result up on its next periodic read.
func (a *App) backgroundSync(ctx context.Context) {
	events, err := a.source.ForceSync(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("background sync failed")
		return
	}
	a.log.Debug().Int("events", len(events)).Msg("background sync")
}

func (a *App) tick() {
	a.mu.Lock()
	a.now = a.clock.Now()
	a.mu.Unlock()
	a.refresh()
}

// refresh rebuilds the view and tray label from the cached events.
func (a *App) refresh() {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	events := a.sync.Events()

	a.mu.Lock()
	now := a.now
	a.mu.Unlock()

	view := present.Build(events, a.enabled, now, a.loc)
	label := a.tray.Publish(present.Filter(events, a.enabled, now), now)

	a.mu.Lock()
	a.view = view
	a.label = label
	a.mu.Unlock()
	a.notify(ViewUpdated, view)
}

func (a *App) launch() {
	var visible []core.Event
	for _, e := range a.sync.Events() {
		if a.enabled.Visible(e.Calendar.ID) {
			visible = append(visible, e)
		}
	}
	a.launcher.Check(visible, a.clock.Now())
}

func (a *App) meetingOpening(e core.Event, link meeting.Link) {
	a.notify(MeetingOpening, MeetingPayload{
		EventID: e.ID,
		Title:   present.DisplayTitle(e),
		Service: link.Service,
		URL:     link.URL,
	})
}

// Subscribe registers fn for every notification and returns a function
// that removes it. fn runs on the goroutine that caused the change.
func (a *App) Subscribe(fn func(Notification)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subscribers, id)
	}
}

func (a *App) notify(typ string, payload any) {
	a.mu.Lock()
	subs := make([]func(Notification), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	n := Notification{Type: typ, Payload: payload}
	for _, fn := range subs {
		fn(n)
	}
}

// Permission returns the current authorization state.
func (a *App) Permission() core.PermissionStatus { return a.perm.State() }

// RequestPermission runs the provider's interactive grant.
func (a *App) RequestPermission(ctx context.Context) core.PermissionStatus {
	a.perm.RequestPermission(ctx)
	return a.perm.State()
}

// OpenPermissionSettings opens the provider's access settings.
func (a *App) OpenPermissionSettings(ctx context.Context) {
	a.authorizer.OpenPermissionSettings(ctx)
}

// View returns the last built view.
func (a *App) View() present.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// TrayLabel returns the last published label.
func (a *App) TrayLabel() tray.Label {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.label
}

// Loading reports whether a forced sync is running.
func (a *App) Loading() bool { return a.sync.Loading() }

// Calendars returns the calendar list grouped by source with enabled flags.
func (a *App) Calendars() []present.CalendarGroup {
	a.mu.Lock()
	cals := append([]core.CalendarInfo(nil), a.calendars...)
	a.mu.Unlock()
	enabled := a.enabled.Enabled()
	return present.GroupCalendars(cals, enabled.Has)
}

// ToggleCalendar flips one calendar's visibility and rebuilds the view.
// It reports whether the calendar is enabled afterwards.
func (a *App) ToggleCalendar(id string) bool {
	set := a.enabled.Toggle(id)
	a.refresh()
	return set.Has(id)
}

// KnownCalendar reports whether id is in the loaded calendar list.
func (a *App) KnownCalendar(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.calendars {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ForceSync runs a user-initiated sync. Failures are also pushed as
// sync.error notifications.
func (a *App) ForceSync(ctx context.Context) error {
	if _, err := a.sync.ForceSync(ctx); err != nil {
		a.notify(SyncError, SyncErrorPayload{Error: err.Error()})
		return err
	}
	return nil
}

// Settings returns the current settings values.
func (a *App) Settings() settings.Values { return a.settings.Values() }

// ApplySettings stores v and republishes the tray label.
func (a *App) ApplySettings(v settings.Values) error {
	if err := a.settings.Apply(v); err != nil {
		return err
	}
	a.refresh()
	return nil
}
