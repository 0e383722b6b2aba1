package recorder

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/cue"
	"github.com/dyluth/cuebridge/internal/state"
	"github.com/dyluth/cuebridge/pkg/obsws"
)

// fakeDevice is an in-memory Commander that behaves like a recorder.
type fakeDevice struct {
	mu          sync.Mutex
	recording   bool
	failStarts  int
	failStops   int
	unreachable bool
	omitField   bool
	calls       [][]string
	inFlight    int
	maxInFlight int
}

func (d *fakeDevice) Send(_ context.Context, commands []string, field string) (obsws.Response, error) {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	defer func() {
		d.inFlight--
		d.mu.Unlock()
	}()

	d.calls = append(d.calls, append([]string(nil), commands...))

	if d.unreachable {
		return obsws.Response{}, fmt.Errorf("%w: fake device offline", obsws.ErrConnect)
	}

	var success bool
	for _, c := range commands {
		switch c {
		case obsws.RequestStartRecord:
			success = d.failStarts == 0 && !d.recording
			if d.failStarts > 0 {
				d.failStarts--
			} else {
				d.recording = true
			}
		case obsws.RequestStopRecord:
			success = d.failStops == 0 && d.recording
			if d.failStops > 0 {
				d.failStops--
			} else {
				d.recording = false
			}
		case obsws.RequestGetRecordStatus:
			success = true
		default:
			success = false
		}
	}

	resp := obsws.Response{Success: success}
	last := commands[len(commands)-1]
	if field == obsws.FieldOutputActive && last == obsws.RequestGetRecordStatus && !d.omitField {
		v := d.recording
		resp.Field = &v
	}
	return resp, nil
}

func (d *fakeDevice) Calls() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]string(nil), d.calls...)
}

func (d *fakeDevice) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

func (d *fakeDevice) MaxInFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxInFlight
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestState() *state.State {
	return state.New(cue.NewSet(
		[]string{"0.0.9", "9.80.93", "9.91.0"},
		[]string{"0.0.1", "9.80.93", "9.91.0"},
	))
}
