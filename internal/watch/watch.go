// Package watch streams status board snapshots to a terminal or a pipe.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/cuebridge/internal/state"
)

// OutputFormat selects how snapshots are rendered.
type OutputFormat string

const (
	// OutputFormatDefault prints one human-readable line per change.
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSON prints line-delimited snapshot JSON.
	OutputFormatJSON OutputFormat = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Source delivers published snapshots.
type Source interface {
	Events() <-chan state.Snapshot
	Errors() <-chan error
}

// Stream writes every snapshot that changes the observable status until ctx
// is cancelled or the source closes. Heartbeat age alone is not a change.
// Decode errors from the source are reported inline and skipped.
func Stream(ctx context.Context, src Source, format OutputFormat, w io.Writer, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}

	var last *state.Snapshot
	errs := src.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "[%s] ⚠ %v\n", now().Format(time.TimeOnly), err)

		case snap, ok := <-src.Events():
			if !ok {
				return nil
			}
			if last != nil && sameStatus(*last, snap) {
				continue
			}
			last = &snap

			if err := render(w, format, snap, now()); err != nil {
				return err
			}
		}
	}
}

func render(w io.Writer, format OutputFormat, snap state.Snapshot, at time.Time) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	recording := "⏹ idle"
	if snap.RecordingActive {
		recording = "⏺ recording"
	}
	cue := snap.CurrentCue
	if cue == "" {
		cue = "-"
	}
	_, err := fmt.Fprintf(w, "[%s] %s cue=%s obs=%s service=%s\n",
		at.Format(time.TimeOnly), recording, cue, upDown(snap.OBSActive), upDown(snap.ServiceActive))
	return err
}

func upDown(b bool) string {
	if b {
		return "up"
	}
	return "down"
}

func sameStatus(a, b state.Snapshot) bool {
	return a.ServiceActive == b.ServiceActive &&
		a.OBSActive == b.OBSActive &&
		a.RecordingActive == b.RecordingActive &&
		a.CurrentCue == b.CurrentCue
}
