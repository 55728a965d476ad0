package progress

import (
	"fmt"
	"slices"
	"sync"
)

// Update describes one change to a document's segment completion state.
// InFlight turns false exactly once, when the document's entry is removed.
type Update struct {
	Key       string
	Completed int
	Total     int
	InFlight  bool
}

// Store tracks per-segment completion flags for every in-flight document.
// An entry exists only while the document's run is in flight; its absence is
// the "not currently processing" signal. The store serializes its own
// mutations, so callers never lock.
type Store struct {
	mu        sync.RWMutex
	flags     map[string][]bool
	subs      map[int]chan Update
	nextSubID int
}

func NewStore() *Store {
	return &Store{
		flags: make(map[string][]bool),
		subs:  make(map[int]chan Update),
	}
}

// Begin creates an all-false flag set for the document. A document has at
// most one active run at a time, so a key that is already in flight is
// rejected.
func (s *Store) Begin(key string, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flags[key]; ok {
		return fmt.Errorf("document is already in flight (key = %s)", key)
	}

	s.flags[key] = make([]bool, total)
	s.notifyLocked(Update{Key: key, Completed: 0, Total: total, InFlight: true})

	return nil
}

// MarkDone flips one segment's flag to true. Flags never regress and flip at
// most once; an unknown key or an out-of-range index is ignored.
func (s *Store) MarkDone(key string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, ok := s.flags[key]
	if !ok || index < 0 || index >= len(flags) || flags[index] {
		return
	}

	flags[index] = true
	s.notifyLocked(Update{
		Key:       key,
		Completed: completed(flags),
		Total:     len(flags),
		InFlight:  true,
	})
}

// End removes the document's entry entirely, success or failure alike.
func (s *Store) End(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, ok := s.flags[key]
	if !ok {
		return
	}

	delete(s.flags, key)
	s.notifyLocked(Update{
		Key:       key,
		Completed: completed(flags),
		Total:     len(flags),
		InFlight:  false,
	})
}

// Snapshot returns a deep copy of the in-flight state for pollers.
func (s *Store) Snapshot() map[string][]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string][]bool, len(s.flags))
	for key, flags := range s.flags {
		snapshot[key] = slices.Clone(flags)
	}

	return snapshot
}

// Subscribe registers a change-notification channel and returns it with a
// cancel func. Updates are delivered best-effort: a subscriber that does not
// keep up misses intermediate updates rather than blocking mutators.
func (s *Store) Subscribe(buffer int) (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan Update, buffer)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

func (s *Store) notifyLocked(update Update) {
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func completed(flags []bool) int {
	count := 0
	for _, done := range flags {
		if done {
			count++
		}
	}

	return count
}
