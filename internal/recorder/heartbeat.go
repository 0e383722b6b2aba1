package recorder

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/metrics"
	"github.com/dyluth/cuebridge/internal/state"
)

// DefaultHeartbeatInterval is the pause between the end of one heartbeat
// cycle and the start of the next.
const DefaultHeartbeatInterval = 30 * time.Second

// CycleFunc is called after every heartbeat cycle with its result.
type CycleFunc func(ctx context.Context, result CycleResult)

// CycleResult describes one completed heartbeat cycle.
type CycleResult struct {
	// Recording is the observed state, or the last known one when the
	// device could not be read.
	Recording bool
	Converged bool
	Reachable bool
	At        time.Time
}

// Heartbeat runs reconciliation on a fixed interval, independent of cues.
// Cycles never overlap: the next one is scheduled only after the previous
// one has fully completed.
type Heartbeat struct {
	reconciler *Reconciler
	state      *state.State
	interval   time.Duration
	onCycle    CycleFunc
	metrics    *metrics.Collector
	logger     *log.Logger
}

// NewHeartbeat creates a heartbeat scheduler. A non-positive interval takes
// DefaultHeartbeatInterval. metrics and logger may be nil.
func NewHeartbeat(reconciler *Reconciler, st *state.State, interval time.Duration, m *metrics.Collector, logger *log.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = log.Default().WithPrefix("heartbeat")
	}
	return &Heartbeat{
		reconciler: reconciler,
		state:      st,
		interval:   interval,
		metrics:    m,
		logger:     logger,
	}
}

// OnCycle registers fn to run after each cycle, on the heartbeat goroutine.
func (h *Heartbeat) OnCycle(fn CycleFunc) {
	h.onCycle = fn
}

// Interval returns the pause between cycles.
func (h *Heartbeat) Interval() time.Duration {
	return h.interval
}

// Run performs a cycle immediately and then one cycle per interval until
// ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) error {
	h.logger.Info("Initiating heartbeat", "interval", h.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Heartbeat stopped")
			return nil
		case <-timer.C:
			h.RunOnce(ctx)
			timer.Reset(h.interval)
		}
	}
}

// RunOnce performs a single heartbeat cycle: reconcile, then stamp the
// heartbeat time regardless of the outcome. The observed recording state is
// stored only when the device could be read.
func (h *Heartbeat) RunOnce(ctx context.Context) CycleResult {
	recording, converged, err := h.reconciler.Reconcile(ctx)

	var at time.Time
	if err != nil {
		at = h.state.StampHeartbeat()
		recording = h.state.Recording()
		h.logger.Warn("Heartbeat without device status", "recording", recording, "err", err)
	} else {
		at = h.state.CompleteHeartbeat(recording)
		h.logger.Info("Heartbeat", "recording", recording, "converged", converged)
	}
	h.metrics.RecordHeartbeat(at, recording)

	result := CycleResult{Recording: recording, Converged: converged, Reachable: err == nil, At: at}
	if h.onCycle != nil {
		h.onCycle(ctx, result)
	}
	return result
}
