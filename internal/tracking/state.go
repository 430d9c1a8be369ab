package tracking

import (
	"sort"
	"sync"
	"time"
)

// Snapshot is the last reported head state of a repository.
type Snapshot struct {
	Root     string
	Branch   string
	Upstream string
}

// State is the mutable per-repository record.
//
// lastBranch, the pending snapshot and the timers belong to the watcher;
// the opened set belongs to the tab reconciler.
type State struct {
	key string

	mu         sync.Mutex
	lastBranch string
	pending    Snapshot
	hasPending bool

	timer        *time.Timer
	timerGen     uint64
	refresh      *time.Timer
	refreshGen   uint64
	opened       map[string]struct{}
	enabled      bool
	passesRun    int
	lastPassTime time.Time
}

func newState(key string) *State {
	return &State{
		key:     key,
		opened:  make(map[string]struct{}),
		enabled: true,
	}
}

// Key returns the normalized repository path.
func (s *State) Key() string {
	return s.key
}

// LastBranch returns the most recently recorded branch.
func (s *State) LastBranch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBranch
}

// ObserveBranch records branch and reports whether it is a change from a
// previously recorded branch. An empty branch (detached HEAD) is never
// recorded. The first branch ever observed only seeds the record.
func (s *State) ObserveBranch(branch string) bool {
	if branch == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.lastBranch
	s.lastBranch = branch
	return prev != "" && prev != branch
}

// SetPending stores the latest head snapshot reported for the repository.
func (s *State) SetPending(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = snap
	s.hasPending = true
}

// Pending returns the latest reported snapshot.
func (s *State) Pending() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.hasPending
}

// ArmTimer cancels any armed branch timer and arms a new one that calls fn
// after d. A timer that was replaced never calls fn, even if it had already
// fired and was waiting for the lock.
func (s *State) ArmTimer(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() {
		if s.takeTimer(gen) {
			fn()
		}
	})
}

func (s *State) takeTimer(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.timer == nil {
		return false
	}
	s.timer = nil
	return true
}

// ArmRefresh is ArmTimer for the lower-priority view refresh timer.
func (s *State) ArmRefresh(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh != nil {
		s.refresh.Stop()
	}
	s.refreshGen++
	gen := s.refreshGen
	s.refresh = time.AfterFunc(d, func() {
		s.mu.Lock()
		current := gen == s.refreshGen && s.refresh != nil
		if current {
			s.refresh = nil
		}
		s.mu.Unlock()
		if current {
			fn()
		}
	})
}

// TimerArmed reports whether a branch timer is pending.
func (s *State) TimerArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// StopTimers cancels both timers.
func (s *State) StopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.refresh != nil {
		s.refresh.Stop()
		s.refresh = nil
	}
	s.timerGen++
	s.refreshGen++
}

// Opened returns the tracked document URIs, sorted.
func (s *State) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	uris := make([]string, 0, len(s.opened))
	for uri := range s.opened {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// IsTracked reports whether uri was opened by the system.
func (s *State) IsTracked(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.opened[uri]
	return ok
}

// Track records uri as opened by the system.
func (s *State) Track(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened[uri] = struct{}{}
}

// Untrack removes exactly the given URIs.
func (s *State) Untrack(uris ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uri := range uris {
		delete(s.opened, uri)
	}
}

// ClearOpened forgets every tracked URI.
func (s *State) ClearOpened() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = make(map[string]struct{})
}

// Enabled reports whether automatic opening is active for the repository.
func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled toggles automatic opening.
func (s *State) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// RecordPass notes that a resolution pass finished.
func (s *State) RecordPass(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passesRun++
	s.lastPassTime = at
}

// Passes returns the number of completed passes and when the last one ended.
func (s *State) Passes() (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passesRun, s.lastPassTime
}
