package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/metrics"
	"github.com/dyluth/cuebridge/internal/state"
	"github.com/dyluth/cuebridge/pkg/obsws"
)

// Default reconciliation bounds.
const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = 100 * time.Millisecond
)

// Reconciler compares the intended recording state with what the device
// reports and drives corrective commands with a fixed retry bound.
type Reconciler struct {
	state      *state.State
	commander  Commander
	maxRetries int
	retryDelay time.Duration
	metrics    *metrics.Collector
	logger     *log.Logger
}

// ReconcilerConfig holds the retry policy. Zero values take the defaults.
type ReconcilerConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// NewReconciler creates a reconciler. metrics and logger may be nil.
func NewReconciler(st *state.State, commander Commander, cfg ReconcilerConfig, m *metrics.Collector, logger *log.Logger) *Reconciler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = log.Default().WithPrefix("reconciler")
	}
	return &Reconciler{
		state:      st,
		commander:  commander,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		metrics:    m,
		logger:     logger,
	}
}

// Reconcile reads the device's recording state and, if it disagrees with
// the intent, re-issues start or stop followed by a status check until the
// device agrees or the retry bound is spent.
//
// It returns the last observed recording state and whether the device ended
// up matching the intent. err is set only when the initial status read
// failed; observed is then meaningless and no corrective commands are sent.
func (r *Reconciler) Reconcile(ctx context.Context) (observed bool, converged bool, err error) {
	observed, err = r.readStatus(ctx)
	if err != nil {
		r.logger.Warn("Unable to read recording status", "err", err)
		r.metrics.RecordReconcile(metrics.OutcomeUnreachable, 0)
		return false, false, fmt.Errorf("failed to read recording status: %w", err)
	}

	intent := r.state.Intent()
	if observed == intent {
		r.logger.Info("Recording status correct", "recording", observed)
		r.metrics.RecordReconcile(metrics.OutcomeNominal, 0)
		return observed, true, nil
	}

	command := obsws.RequestStartRecord
	if intent {
		r.logger.Warn("Recording had failed to start on cue")
	} else {
		command = obsws.RequestStopRecord
		r.logger.Warn("Recording had failed to stop on cue")
	}

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		resp, err := r.commander.Send(ctx, []string{command, obsws.RequestGetRecordStatus}, obsws.FieldOutputActive)
		switch {
		case err != nil:
			r.logger.Warn("Corrective command not delivered", "command", command, "attempt", attempt, "err", err)
		case resp.Field != nil:
			observed = *resp.Field
		default:
			observed = false
		}

		if err == nil && observed == intent {
			r.logger.Info("Recording status corrected", "recording", observed, "attempts", attempt)
			r.metrics.RecordReconcile(metrics.OutcomeCorrected, attempt)
			return observed, true, nil
		}

		if attempt == r.maxRetries {
			break
		}

		r.logger.Debug("Recording status still wrong", "command", command, "attempt", attempt)
		if !r.wait(ctx) {
			r.logger.Warn("Reconciliation cancelled", "attempts", attempt)
			r.metrics.RecordReconcile(metrics.OutcomeExhausted, attempt)
			return observed, false, nil
		}
	}

	r.logger.Error("Still unable to correct recording", "command", command, "attempts", r.maxRetries, "recording", observed, "intended", intent)
	r.metrics.RecordReconcile(metrics.OutcomeExhausted, r.maxRetries)
	return observed, false, nil
}

// readStatus returns the device's outputActive flag. A response without the
// flag reads as not recording.
func (r *Reconciler) readStatus(ctx context.Context) (bool, error) {
	resp, err := r.commander.Send(ctx, []string{obsws.RequestGetRecordStatus}, obsws.FieldOutputActive)
	if err != nil {
		return false, err
	}
	if resp.Field == nil {
		return false, nil
	}
	return *resp.Field, nil
}

func (r *Reconciler) wait(ctx context.Context) bool {
	timer := time.NewTimer(r.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
