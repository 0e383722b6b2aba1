package cue

import "github.com/dyluth/cuebridge/pkg/obsws"

// Action is what a cue transition asks of the recording device.
type Action int

const (
	// ActionNone issues no command.
	ActionNone Action = iota
	// ActionStart starts recording.
	ActionStart
	// ActionStop stops recording.
	ActionStop
	// ActionRestart stops and then starts recording, splitting the take.
	ActionRestart
)

// String returns the label used in logs and metrics.
func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionRestart:
		return "restart"
	default:
		return "none"
	}
}

// Commands returns the ordered request types that carry out the action.
func (a Action) Commands() []string {
	switch a {
	case ActionStart:
		return []string{obsws.RequestStartRecord}
	case ActionStop:
		return []string{obsws.RequestStopRecord}
	case ActionRestart:
		return []string{obsws.RequestStopRecord, obsws.RequestStartRecord}
	default:
		return nil
	}
}

// Intent returns the recording intent that follows the action. ok is false
// for ActionNone, which leaves the intent untouched.
func (a Action) Intent() (recording bool, ok bool) {
	switch a {
	case ActionStart, ActionRestart:
		return true, true
	case ActionStop:
		return false, true
	default:
		return false, false
	}
}

// Set holds the configured start and end cues. A cue may appear in both.
type Set struct {
	Start []Cue
	End   []Cue
}

// NewSet builds a Set from plain strings, keeping their order.
func NewSet(start, end []string) Set {
	return Set{Start: toCues(start), End: toCues(end)}
}

// Action maps a cue onto the action its set membership demands.
func (s Set) Action(c Cue) Action {
	inStart := contains(s.Start, c)
	inEnd := contains(s.End, c)

	switch {
	case inStart && inEnd:
		return ActionRestart
	case inEnd:
		return ActionStop
	case inStart:
		return ActionStart
	default:
		return ActionNone
	}
}

// Strings returns copies of the start and end cues as plain strings.
func (s Set) Strings() (start, end []string) {
	return toStrings(s.Start), toStrings(s.End)
}

func contains(cues []Cue, c Cue) bool {
	for _, candidate := range cues {
		if candidate == c {
			return true
		}
	}
	return false
}

func toCues(in []string) []Cue {
	out := make([]Cue, 0, len(in))
	for _, s := range in {
		out = append(out, Cue(s))
	}
	return out
}

func toStrings(in []Cue) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, string(c))
	}
	return out
}
