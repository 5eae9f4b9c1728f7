// Package permission tracks calendar-access authorization as a small
// state machine that polls the provider until access is granted.
package permission

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/schedule"
)

// DefaultPollInterval is how often a non-granted state re-checks.
const DefaultPollInterval = 2 * time.Second

// Listener is called after every state change, outside the machine's lock.
type Listener func(core.PermissionStatus)

// Machine starts in loading, moves to whatever the first check reports
// unless a grant landed while it ran, and polls while the state is denied, not_determined or restricted. At
// most one poll entry is registered at a time; granted cancels it for the
// rest of the session.
type Machine struct {
	mu         sync.Mutex
	state      core.PermissionStatus
	cancelPoll schedule.Cancel
	stopped    bool
	listeners  []Listener

	auth     core.Authorizer
	sched    schedule.Scheduler
	interval time.Duration
	log      zerolog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Machine) { m.interval = d }
}

func New(auth core.Authorizer, sched schedule.Scheduler, log zerolog.Logger, opts ...Option) *Machine {
	m := &Machine{
		state:    core.PermissionLoading,
		auth:     auth,
		sched:    sched,
		interval: DefaultPollInterval,
		log:      log.With().Str("component", "permission").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() core.PermissionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers a listener for state changes.
func (m *Machine) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Start performs the first check. A failed check counts as not_determined.
func (m *Machine) Start(ctx context.Context) {
	status, err := m.auth.CheckPermission(ctx)
	if err != nil || !isReported(status) {
		m.log.Warn().Err(err).Str("status", string(status)).Msg("permission check failed")
		status = core.PermissionNotDetermined
	}
	m.transition(ctx, status, fromCheck)
}

// RequestPermission runs the interactive grant. Anything but a clean
// success opens the settings surface and leaves the state as it was.
func (m *Machine) RequestPermission(ctx context.Context) {
	granted, err := m.auth.RequestPermission(ctx)
	if err == nil && granted {
		m.transition(ctx, core.PermissionGranted, fromRequest)
		return
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("permission request failed")
	}
	m.auth.OpenPermissionSettings(ctx)
}

// Stop cancels polling and ignores any result that arrives later.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.cancelLocked()
}

func (m *Machine) poll(ctx context.Context) {
	m.mu.Lock()
	if m.stopped || m.state == core.PermissionGranted {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	status, err := m.auth.CheckPermission(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("permission poll failed")
		return
	}
	if status != core.PermissionGranted {
		return
	}
	m.transition(ctx, status, fromPoll)
}

// origin is the caller that produced a status.
type origin int

const (
	fromCheck origin = iota
	fromPoll
	fromRequest
)

// transition moves to status, replacing the poll entry. The first check
// only applies while the machine is still loading; poll results may only
// move an already checked machine to granted.
func (m *Machine) transition(ctx context.Context, status core.PermissionStatus, from origin) {
	m.mu.Lock()
	if m.stopped || m.state == status || !m.accepts(status, from) {
		m.mu.Unlock()
		return
	}

	m.cancelLocked()
	prev := m.state
	m.state = status
	if polls(status) {
		m.cancelPoll = m.sched.Every(m.interval, func() { m.poll(ctx) })
	}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.log.Info().Str("from", string(prev)).Str("to", string(status)).Msg("permission changed")
	for _, l := range listeners {
		l(status)
	}
}

func (m *Machine) accepts(status core.PermissionStatus, from origin) bool {
	switch from {
	case fromCheck:
		return m.state == core.PermissionLoading
	case fromPoll:
		return status == core.PermissionGranted && m.state != core.PermissionLoading
	}
	return true
}

func (m *Machine) cancelLocked() {
	if m.cancelPoll != nil {
		m.cancelPoll()
		m.cancelPoll = nil
	}
}

func polls(s core.PermissionStatus) bool {
	switch s {
	case core.PermissionDenied, core.PermissionNotDetermined, core.PermissionRestricted:
		return true
	}
	return false
}

func isReported(s core.PermissionStatus) bool {
	return s != core.PermissionLoading && s.Valid()
}
