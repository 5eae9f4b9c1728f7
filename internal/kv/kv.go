// Package kv persists small string values (settings, calendar selection)
// in a YAML file.
package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/theakshaypant/meetbar/internal/core"
)

var (
	// ErrNotFound is returned by MustGet for absent keys.
	ErrNotFound = errors.New("key not found")
	// ErrCorrupt marks a state file that is not a YAML mapping.
	ErrCorrupt = errors.New("corrupt state file")
)

// CorruptSuffix is appended to a corrupt state file before it is replaced.
const CorruptSuffix = ".corrupt"

// File is a core.KV backed by a single YAML document. The file is re-read
// on every Get so edits made by another process are picked up.
type File struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// FileOption configures a File.
type FileOption func(*File)

// WithLogger sets the logger used to report recovered files.
func WithLogger(log zerolog.Logger) FileOption {
	return func(f *File) { f.log = log.With().Str("component", "kv").Logger() }
}

// NewFile returns a store at path. The file is created on first Set.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if errors.Is(err, ErrCorrupt) {
		if err := f.moveAside(); err != nil {
			return err
		}
		values = make(map[string]string)
	} else if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

// moveAside keeps the unreadable file next to the new one.
func (f *File) moveAside() error {
	dst := f.path + CorruptSuffix
	if err := os.Rename(f.path, dst); err != nil {
		return fmt.Errorf("move corrupt state file: %w", err)
	}
	f.log.Warn().Str("path", f.path).Str("saved", dst).Msg("state file was corrupt, starting fresh")
	return nil
}

// All returns a copy of every stored value.
func (f *File) All() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) read() (map[string]string, error) {
	values := make(map[string]string)
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w: %w", f.path, ErrCorrupt, err)
	}
	return values, nil
}

func (f *File) write(values map[string]string) error {
	b, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Memory is an in-process core.KV.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// MustGet is Get with absence reported as ErrNotFound.
func MustGet(store core.KV, key string) (string, error) {
	v, ok, err := store.Get(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}
