// Package enablement keeps the user's choice of which calendars are shown.
package enablement

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
)

// StorageKey is where the enabled calendar ids are persisted.
const StorageKey = "enabled-calendars"

// Set is an unordered set of calendar ids.
type Set map[string]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members sorted.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s Set) clone() Set {
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Store owns the enablement set. It is empty and lets every calendar
// through until Load has seen the calendar list.
type Store struct {
	mu      sync.RWMutex
	kv      core.KV
	known   Set
	enabled Set
	loaded  bool
	log     zerolog.Logger
}

func NewStore(kv core.KV, log zerolog.Logger) *Store {
	return &Store{
		kv:      kv,
		known:   Set{},
		enabled: Set{},
		log:     log.With().Str("component", "enablement").Logger(),
	}
}

// Load reads the persisted selection and reconciles it with calendars.
// Ids that no longer exist are dropped; an empty result means every
// calendar is enabled.
func (s *Store) Load(calendars []core.CalendarInfo) Set {
	known := make(Set, len(calendars))
	for _, c := range calendars {
		known[c.ID] = struct{}{}
	}

	enabled := Set{}
	for _, id := range s.readPersisted() {
		if known.Has(id) {
			enabled[id] = struct{}{}
		}
	}
	if len(enabled) == 0 {
		enabled = known.clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.known = known
	s.enabled = enabled
	s.loaded = true
	return enabled.clone()
}

// Toggle flips one calendar. Disabling the only enabled calendar is
// refused and returns the unchanged set. Any other id, known or not, is
// added when absent; ids missing from the calendar list are dropped again
// by the next Load.
func (s *Store) Toggle(id string) Set {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled.Has(id) {
		if len(s.enabled) <= 1 {
			return s.enabled.clone()
		}
		delete(s.enabled, id)
	} else {
		s.enabled[id] = struct{}{}
	}

	s.persist(s.enabled)
	return s.enabled.clone()
}

// Enabled returns the current set.
func (s *Store) Enabled() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled.clone()
}

// Visible reports whether events of calendarID should be shown. Events
// without a calendar, calendars missing from the list, and everything
// before the first Load are visible.
func (s *Store) Visible(calendarID string) bool {
	if calendarID == "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded || !s.known.Has(calendarID) {
		return true
	}
	return s.enabled.Has(calendarID)
}

func (s *Store) readPersisted() []string {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("read enabled calendars")
		return nil
	}
	if !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.log.Warn().Err(err).Msg("parse enabled calendars")
		return nil
	}
	return ids
}

// persist must be called with s.mu held.
func (s *Store) persist(set Set) {
	b, err := json.Marshal(set.IDs())
	if err != nil {
		s.log.Error().Err(err).Msg("encode enabled calendars")
		return
	}
	if err := s.kv.Set(StorageKey, string(b)); err != nil {
		s.log.Error().Err(err).Msg("save enabled calendars")
	}
}
