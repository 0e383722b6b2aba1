// Package printer renders CLI output: coloured status lines, structured
// errors for cobra and status snapshots.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/cuebridge/internal/state"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

// Output destinations. Tests swap these for buffers.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Stdout, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a warning message in yellow with a warning prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(Stdout, msg)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation and suggestions to
// Stderr and returns an error carrying only the title, for cobra.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details printed between the
// explanation and the suggestions. Keys are printed in sorted order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for key := range context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(Stderr, "\n")
		for _, key := range keys {
			fmt.Fprintf(Stderr, "  %s: %s\n", key, context[key])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// JSON writes v as indented JSON to Stdout.
func JSON(v any) error {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Snapshot renders a status snapshot for humans.
func Snapshot(snap state.Snapshot) {
	bold.Fprintf(Stdout, "cuebridge status\n\n")

	flag("Service", snap.ServiceActive, "running", "stopped")
	flag("OBS", snap.OBSActive, "connected", "unreachable")
	flag("Recording", snap.RecordingActive, "yes", "no")

	current := snap.CurrentCue
	if current == "" {
		current = "(none)"
	}
	fmt.Fprintf(Stdout, "  %-10s %s\n", "Cue:", current)
	fmt.Fprintf(Stdout, "  %-10s %ds ago\n", "Heartbeat:", snap.TimeSinceHeartbeat)
	fmt.Fprintf(Stdout, "  %-10s %s\n", "Start:", strings.Join(snap.StartTrigger, ", "))
	fmt.Fprintf(Stdout, "  %-10s %s\n", "End:", strings.Join(snap.EndTrigger, ", "))
}

func flag(label string, ok bool, yes, no string) {
	fmt.Fprintf(Stdout, "  %-10s ", label+":")
	if ok {
		green.Fprintf(Stdout, "%s\n", yes)
	} else {
		yellow.Fprintf(Stdout, "%s\n", no)
	}
}
