package tray

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// WaybarSink writes one JSON object per label, the custom-module format
// understood by waybar and i3status-rust.
type WaybarSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	log zerolog.Logger
}

func NewWaybarSink(w io.Writer, log zerolog.Logger) *WaybarSink {
	return &WaybarSink{enc: json.NewEncoder(w), log: log}
}

func (s *WaybarSink) PublishTrayLabel(l Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(l); err != nil {
		s.log.Warn().Err(err).Msg("write waybar label")
	}
}

// PlainSink writes the bare label text, one line per publish.
type PlainSink struct {
	mu  sync.Mutex
	w   io.Writer
	log zerolog.Logger
}

func NewPlainSink(w io.Writer, log zerolog.Logger) *PlainSink {
	return &PlainSink{w: w, log: log}
}

func (s *PlainSink) PublishTrayLabel(l Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.w, l.Text); err != nil {
		s.log.Warn().Err(err).Msg("write tray label")
	}
}

// FileSink keeps the latest label text in a file for status bars that
// poll a path.
type FileSink struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

func NewFileSink(path string, log zerolog.Logger) *FileSink {
	return &FileSink{path: path, log: log}
}

func (s *FileSink) PublishTrayLabel(l Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn().Err(err).Msg("create tray label dir")
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(l.Text+"\n"), 0o644); err != nil {
		s.log.Warn().Err(err).Msg("write tray label file")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn().Err(err).Msg("replace tray label file")
	}
}

// Multi fans a label out to several sinks.
type Multi []Sink

func (m Multi) PublishTrayLabel(l Label) {
	for _, s := range m {
		s.PublishTrayLabel(l)
	}
}
