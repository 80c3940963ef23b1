package prefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// Location is a map position remembered between runs.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type document struct {
	LastOpenedLocation *Location `json:"lastOpenedLocation,omitempty"`
}

// Store keeps small user preferences in a JSON file. Writes replace the file
// atomically so a crash never leaves a truncated document behind.
type Store struct {
	path string
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("prefs: path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prefs: create directory %q: %w", dir, err)
		}
	}
	return &Store{path: path}, nil
}

// LastOpenedLocation returns the last saved location. ok is false when none
// has been saved yet.
func (s *Store) LastOpenedLocation() (loc Location, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return Location{}, false, err
	}
	if doc.LastOpenedLocation == nil {
		return Location{}, false, nil
	}
	return *doc.LastOpenedLocation, true, nil
}

func (s *Store) SaveLastOpenedLocation(loc Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.LastOpenedLocation = &loc

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("prefs: write %q: %w", s.path, err)
	}
	return nil
}

func (s *Store) read() (document, error) {
	var doc document

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("prefs: read %q: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("prefs: decode %q: %w", s.path, err)
	}
	return doc, nil
}
