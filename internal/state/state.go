// Package state holds the process-wide bridge state behind a single lock.
//
// Every component that reads or writes shared state (cue handler, heartbeat,
// control client, status publishers) is handed the same *State. Critical
// sections only copy or assign fields; no I/O happens while the lock is held.
package state

import (
	"sync"
	"time"

	"github.com/dyluth/cuebridge/internal/cue"
)

// State is the shared state block. The zero value is not usable; use New.
type State struct {
	mu sync.Mutex

	cues cue.Set

	serviceActive bool
	currentCue    cue.Cue
	intent        bool
	recording     bool
	connected     bool
	heartbeat     time.Time

	now func() time.Time
}

// Option configures a State.
type Option func(*State)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		s.now = now
	}
}

// New creates the state for the given cue sets. The service is marked active
// and the heartbeat timestamp starts at creation time.
func New(cues cue.Set, opts ...Option) *State {
	s := &State{
		cues:          cue.Set{Start: append([]cue.Cue(nil), cues.Start...), End: append([]cue.Cue(nil), cues.End...)},
		serviceActive: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.heartbeat = s.now()
	return s
}

// Cues returns the configured cue sets.
func (s *State) Cues() cue.Set {
	return s.cues
}

// CurrentCue returns the most recently accepted cue.
func (s *State) CurrentCue() cue.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCue
}

// AdvanceCue records c as the current cue and applies the intent carried by
// action, in one critical section. It returns false, leaving everything
// untouched, when c is already the current cue.
func (s *State) AdvanceCue(c cue.Cue, action cue.Action) (previous cue.Cue, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c == s.currentCue {
		return s.currentCue, false
	}

	previous = s.currentCue
	s.currentCue = c
	if recording, ok := action.Intent(); ok {
		s.intent = recording
	}
	return previous, true
}

// Intent reports whether the operator wants the device recording.
func (s *State) Intent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// SetConnected records the outcome of the latest control connection attempt.
func (s *State) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// Connected reports whether the latest control connection attempt succeeded.
func (s *State) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Recording returns the last observed device recording state.
func (s *State) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// CompleteHeartbeat stores the observed recording state and stamps the
// heartbeat time together, so readers never see one without the other.
func (s *State) CompleteHeartbeat(recording bool) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = recording
	s.heartbeat = s.now()
	return s.heartbeat
}

// StampHeartbeat records a heartbeat cycle that could not read the device.
// The last observed recording state is left as it was.
func (s *State) StampHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeat = s.now()
	return s.heartbeat
}

// LastHeartbeat returns the time the last heartbeat cycle completed.
func (s *State) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeat
}

// SetServiceActive marks the bridge as running or stopped.
func (s *State) SetServiceActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceActive = active
}
