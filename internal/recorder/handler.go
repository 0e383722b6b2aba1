// Package recorder turns cue changes into recording commands and keeps the
// device's recording state converged on the operator's intent.
package recorder

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/cue"
	"github.com/dyluth/cuebridge/internal/metrics"
	"github.com/dyluth/cuebridge/internal/state"
	"github.com/dyluth/cuebridge/pkg/obsws"
)

// Commander sends an ordered batch of requests to the recording device.
// *obsws.Client satisfies it.
type Commander interface {
	Send(ctx context.Context, commands []string, field string) (obsws.Response, error)
}

// Handler applies inbound cue signals to the shared state and issues the
// matching start/stop commands.
type Handler struct {
	state     *state.State
	commander Commander
	metrics   *metrics.Collector
	logger    *log.Logger
}

// NewHandler creates a cue transition handler. metrics and logger may be nil.
func NewHandler(st *state.State, commander Commander, m *metrics.Collector, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default().WithPrefix("cue")
	}
	return &Handler{
		state:     st,
		commander: commander,
		metrics:   m,
		logger:    logger,
	}
}

// HandleCue processes one raw signal and returns the action it issued.
//
// Unrecognized signals and repeats of the current cue are ignored. For a new
// cue, the current cue and the recording intent are updated before any
// command is sent; a failed command is logged and left for reconciliation
// to repair.
func (h *Handler) HandleCue(ctx context.Context, raw string) cue.Action {
	h.logger.Debug("Signal received", "raw", raw)

	c, kind := cue.Parse(raw)
	h.metrics.RecordCue(kind.String())

	switch kind {
	case cue.KindDecimal:
	case cue.KindUnknown:
		h.logger.Warn("Cue is neither decimal, timecode nor integer", "raw", raw)
		return cue.ActionNone
	default:
		h.logger.Debug("Ignoring signal", "kind", kind, "raw", raw)
		return cue.ActionNone
	}

	action := h.state.Cues().Action(c)
	previous, changed := h.state.AdvanceCue(c, action)
	if !changed {
		return cue.ActionNone
	}

	h.logger.Info("Cue changed", "from", previous, "to", c, "action", action)
	h.metrics.RecordTransition(action.String())

	commands := action.Commands()
	if len(commands) == 0 {
		return action
	}

	switch action {
	case cue.ActionRestart:
		h.logger.Info("Stopping then starting recording")
	case cue.ActionStop:
		h.logger.Info("Stopping recording")
	case cue.ActionStart:
		h.logger.Info("Starting recording")
	}

	resp, err := h.commander.Send(ctx, commands, "")
	switch {
	case err != nil:
		h.logger.Warn("Recording command not delivered", "cue", c, "commands", commands, "err", err)
	case !resp.Success:
		h.logger.Warn("Recording command rejected by device", "cue", c, "commands", commands)
	default:
		h.logger.Debug("Recording command accepted", "cue", c, "commands", commands)
	}

	return action
}
