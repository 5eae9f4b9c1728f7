// Package settings gives typed access to the user-tunable values kept in
// the key/value store.
package settings

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
)

const (
	KeyMinutesBefore        = "minutesBefore"
	KeyTrayCountdownMinutes = "trayCountdownMinutes"

	DefaultMinutesBefore        = 1
	DefaultTrayCountdownMinutes = 30
)

// Values is a snapshot of all settings.
type Values struct {
	MinutesBefore        int `json:"minutesBefore"`
	TrayCountdownMinutes int `json:"trayCountdownMinutes"`
}

// Settings reads and writes settings through a core.KV.
// Missing or unreadable values resolve to their defaults.
type Settings struct {
	kv  core.KV
	log zerolog.Logger
}

func New(kv core.KV, log zerolog.Logger) *Settings {
	return &Settings{kv: kv, log: log.With().Str("component", "settings").Logger()}
}

// MinutesBefore is the lead time before a meeting link is opened.
func (s *Settings) MinutesBefore() int {
	return s.getInt(KeyMinutesBefore, DefaultMinutesBefore)
}

// TrayCountdownMinutes is the tray visibility threshold; 0 means always.
func (s *Settings) TrayCountdownMinutes() int {
	return s.getInt(KeyTrayCountdownMinutes, DefaultTrayCountdownMinutes)
}

func (s *Settings) SetMinutesBefore(n int) error {
	return s.setInt(KeyMinutesBefore, n)
}

func (s *Settings) SetTrayCountdownMinutes(n int) error {
	return s.setInt(KeyTrayCountdownMinutes, n)
}

// Values returns every setting.
func (s *Settings) Values() Values {
	return Values{
		MinutesBefore:        s.MinutesBefore(),
		TrayCountdownMinutes: s.TrayCountdownMinutes(),
	}
}

// Apply writes every field of v.
func (s *Settings) Apply(v Values) error {
	if err := s.SetMinutesBefore(v.MinutesBefore); err != nil {
		return err
	}
	return s.SetTrayCountdownMinutes(v.TrayCountdownMinutes)
}

// Set writes a setting by its key name.
func (s *Settings) Set(key string, n int) error {
	switch key {
	case KeyMinutesBefore, KeyTrayCountdownMinutes:
		return s.setInt(key, n)
	default:
		return fmt.Errorf("unknown setting: %s (supported: %s, %s)", key, KeyMinutesBefore, KeyTrayCountdownMinutes)
	}
}

func (s *Settings) getInt(key string, def int) int {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("read setting, using default")
		return def
	}
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.log.Warn().Str("key", key).Str("value", raw).Msg("invalid setting, using default")
		return def
	}
	return n
}

func (s *Settings) setInt(key string, n int) error {
	if n < 0 {
		return fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	if err := s.kv.Set(key, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
