package state

// Snapshot is an immutable copy of the shared state, shaped for the status
// JSON consumed by dashboards.
type Snapshot struct {
	ServiceActive      bool     `json:"service_active"`
	OBSActive          bool     `json:"obs_active"`
	RecordingActive    bool     `json:"recording_active"`
	StartTrigger       []string `json:"start_trigger"`
	EndTrigger         []string `json:"end_trigger"`
	CurrentCue         string   `json:"current_cue"`
	TimeSinceHeartbeat int      `json:"time_since_heartbeat"`
}

// Snapshot reads the whole state under the lock. Slices in the result are
// fresh copies.
func (s *State) Snapshot() Snapshot {
	start, end := s.cues.Strings()

	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ServiceActive:      s.serviceActive,
		OBSActive:          s.connected,
		RecordingActive:    s.recording,
		StartTrigger:       start,
		EndTrigger:         end,
		CurrentCue:         string(s.currentCue),
		TimeSinceHeartbeat: int(s.now().Sub(s.heartbeat).Seconds()),
	}
}
