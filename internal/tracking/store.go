// Package tracking holds per-repository state: the last observed branch,
// pending debounce timers and the documents opened on the repository's
// behalf.
package tracking

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Store owns the tracking state of every repository, keyed by normalized
// root path. States are created lazily and live as long as the store.
type Store struct {
	mu     sync.Mutex
	states map[string]*State
	fold   bool
}

// NewStore creates a store. Keys are case folded on platforms whose default
// filesystems are case-insensitive.
func NewStore() *Store {
	return newStore(runtime.GOOS == "darwin" || runtime.GOOS == "windows")
}

func newStore(fold bool) *Store {
	return &Store{
		states: make(map[string]*State),
		fold:   fold,
	}
}

// Normalize returns the store key for a repository root.
func (s *Store) Normalize(root string) string {
	return normalize(root, s.fold)
}

func normalize(root string, fold bool) string {
	key := root
	if abs, err := filepath.Abs(root); err == nil {
		key = abs
	}
	key = filepath.Clean(key)
	if fold {
		key = strings.ToLower(key)
	}
	return key
}

// Get returns the state for root, creating it on first use.
func (s *Store) Get(root string) *State {
	key := s.Normalize(root)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key]
	if !ok {
		st = newState(key)
		s.states[key] = st
	}
	return st
}

// SetEnabled toggles automatic opening for root.
func (s *Store) SetEnabled(root string, enabled bool) {
	s.Get(root).SetEnabled(enabled)
}

// Close cancels every pending timer. Tracked documents are kept.
func (s *Store) Close() {
	s.mu.Lock()
	states := make([]*State, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		st.StopTimers()
	}
}
