// Package cue classifies raw show-control section hints into canonical cue
// identifiers and maps cues onto recording actions.
package cue

import (
	"regexp"
	"strings"
)

// Cue is a canonical decimal-triple cue identifier such as "9.80.93".
// The zero value means "no cue".
type Cue string

// Kind describes how a raw signal was classified.
type Kind int

const (
	// KindMalformed means the raw signal had no '|' separator.
	KindMalformed Kind = iota
	// KindTimecode means the candidate looked like HH:MM:SS:FF. Not supported.
	KindTimecode
	// KindDecimal means a decimal-triple cue was found.
	KindDecimal
	// KindInteger means only a bare integer was found. Not actionable.
	KindInteger
	// KindUnknown means none of the known cue shapes matched.
	KindUnknown
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindTimecode:
		return "timecode"
	case KindDecimal:
		return "decimal"
	case KindInteger:
		return "integer"
	default:
		return "unknown"
	}
}

const separator = "|"

var (
	timecodePattern  = regexp.MustCompile(`\d\d:\d\d:\d\d:\d\d`)
	decimalPattern   = regexp.MustCompile(`\d+\.\d+\.\d+`)
	integerPattern   = regexp.MustCompile(`\d+`)
	canonicalPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// Parse classifies a raw signal string. Only the segment before the first
// '|' is considered. The returned Cue is empty unless kind is KindDecimal.
//
// Precedence is timecode, then decimal triple, then bare integer: a
// candidate containing a timecode is never treated as a cue even when it
// also contains a decimal triple.
func Parse(raw string) (Cue, Kind) {
	candidate, _, found := strings.Cut(raw, separator)
	if !found {
		return "", KindMalformed
	}

	if timecodePattern.MatchString(candidate) {
		return "", KindTimecode
	}

	if m := decimalPattern.FindString(candidate); m != "" {
		return Cue(m), KindDecimal
	}

	if integerPattern.MatchString(candidate) {
		return "", KindInteger
	}

	return "", KindUnknown
}

// Classify returns the canonical cue contained in raw, or false when the
// signal is unrecognized.
func Classify(raw string) (Cue, bool) {
	c, kind := Parse(raw)
	return c, kind == KindDecimal
}

// IsCanonical reports whether s is exactly a decimal triple.
func IsCanonical(s string) bool {
	return canonicalPattern.MatchString(s)
}
