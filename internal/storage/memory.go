package storage

import (
	"context"
	"sync"
	"time"

	"github.com/theakshaypant/meetbar/internal/core"
)

// Memory is a core.Storage held in process memory.
type Memory struct {
	mu     sync.RWMutex
	events map[string][]core.Event
	order  []string
	loc    *time.Location
}

func NewMemory(loc *time.Location) *Memory {
	if loc == nil {
		loc = time.Local
	}
	return &Memory{events: make(map[string][]core.Event), loc: loc}
}

func (m *Memory) ReplaceEvents(_ context.Context, providerID string, events []core.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[providerID]; !ok {
		m.order = append(m.order, providerID)
	}
	m.events[providerID] = append([]core.Event(nil), events...)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, filter core.EventFilter) ([]core.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	providers := filter.ProviderIDs
	if len(providers) == 0 {
		providers = m.order
	}

	var out []core.Event
	for _, p := range providers {
		for _, e := range m.events[p] {
			if m.inWindow(e, filter) {
				e.ProviderID = p
				out = append(out, e)
			}
		}
	}
	core.SortEvents(out, m.loc)
	return out, nil
}

func (m *Memory) PurgeProvider(_ context.Context, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, providerID)
	for i, p := range m.order {
		if p == providerID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) inWindow(e core.Event, f core.EventFilter) bool {
	start, ok := e.Start.Instant(m.loc)
	if !f.End.IsZero() && ok && !start.Before(f.End) {
		return false
	}
	if f.Start.IsZero() {
		return true
	}
	last := e.End
	if e.IsAllDay && last.IsZero() {
		last = e.Start
	}
	end, ok := last.Instant(m.loc)
	if !ok {
		return true
	}
	if e.IsAllDay {
		end = end.AddDate(0, 0, 1)
	}
	return end.After(f.Start)
}
