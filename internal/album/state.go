package album

import (
	"sync"
)

// Status is the lifecycle stage of an album entry.
type Status int

const (
	StatusPending Status = iota
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is one slot of the album grid. Image and Thumbnail are shared with
// every snapshot that contains the entry and must not be modified.
type Entry struct {
	Key       string
	PhotoID   int64
	Status    Status
	Image     []byte
	Thumbnail []byte
	Err       string
}

// Snapshot is a consistent copy of the album at one version.
type Snapshot struct {
	PinID   int64
	Version uint64
	Entries []Entry
}

// State is the observable, ordered album of the selected pin. Observers get
// a full snapshot after every mutation.
type State struct {
	mu      sync.RWMutex
	pinID   int64
	version uint64
	entries []Entry
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

func NewState() *State {
	return &State{subs: make(map[uint64]chan Snapshot)}
}

// ReplaceAll swaps the whole album, possibly for another pin.
func (s *State) ReplaceAll(pinID int64, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pinID = pinID
	s.entries = append([]Entry(nil), entries...)
	s.publishLocked()
}

// SetEntry overwrites the entry at index.
func (s *State) SetEntry(index int, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return ErrIndexOutOfRange
	}
	s.entries[index] = entry
	s.publishLocked()
	return nil
}

// RemoveAt deletes the entry at index, shifting later entries down by one.
func (s *State) RemoveAt(index int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return Entry{}, ErrIndexOutOfRange
	}
	removed := s.entries[index]
	s.entries = append(s.entries[:index:index], s.entries[index+1:]...)
	s.publishLocked()
	return removed, nil
}

func (s *State) Entry(index int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.entries) {
		return Entry{}, ErrIndexOutOfRange
	}
	return s.entries[index], nil
}

// IndexOf returns the current position of the entry with key, or -1.
func (s *State) IndexOf(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, e := range s.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribers reports how many observers are attached.
func (s *State) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer. The channel receives the current
// snapshot right away and then one snapshot per mutation; when the observer
// falls behind, stale snapshots are replaced by the latest one. The returned
// function unsubscribes and closes the channel.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++

	ch := make(chan Snapshot, 1)
	ch <- s.snapshotLocked()
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		PinID:   s.pinID,
		Version: s.version,
		Entries: append([]Entry(nil), s.entries...),
	}
}

func (s *State) publishLocked() {
	s.version++
	snap := s.snapshotLocked()

	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}

		// Drop the unread snapshot in favour of the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
