// Package metrics exposes bridge activity as Prometheus metrics.
//
// Each Collector owns its registry so several bridges (or tests) can live in
// one process. All Record* methods are safe on a nil *Collector, which lets
// components run without metrics wired in.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reconcile outcomes.
const (
	OutcomeNominal     = "nominal"
	OutcomeCorrected   = "corrected"
	OutcomeExhausted   = "exhausted"
	OutcomeUnreachable = "unreachable"
)

// Collector holds the bridge's metrics.
type Collector struct {
	registry *prometheus.Registry

	cuesReceived  *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	requests      *prometheus.CounterVec
	reconciles    *prometheus.CounterVec
	attempts      prometheus.Counter
	heartbeat     prometheus.Gauge
	recording     prometheus.Gauge
	connected     prometheus.Gauge
	publishErrors prometheus.Counter
}

// NewCollector creates a collector with its own registry, including the
// standard Go and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cuesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuebridge_cues_received_total",
			Help: "Show-control signals received, by classification",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuebridge_cue_transitions_total",
			Help: "Cue changes accepted, by resulting action",
		}, []string{"action"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuebridge_obs_requests_total",
			Help: "Remote-control requests sent, by request type and result",
		}, []string{"request_type", "result"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuebridge_reconcile_total",
			Help: "Reconciliation runs, by outcome",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cuebridge_reconcile_attempts_total",
			Help: "Corrective attempts made while reconciling",
		}),
		heartbeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cuebridge_heartbeat_timestamp_seconds",
			Help: "Unix time of the last completed heartbeat",
		}),
		recording: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cuebridge_recording_active",
			Help: "1 when the device was last observed recording",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cuebridge_obs_connected",
			Help: "1 when the last control connection attempt succeeded",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cuebridge_status_publish_errors_total",
			Help: "Failed status board publications",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.cuesReceived,
		c.transitions,
		c.requests,
		c.reconciles,
		c.attempts,
		c.heartbeat,
		c.recording,
		c.connected,
		c.publishErrors,
	)

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordCue counts a received signal by classification kind.
func (c *Collector) RecordCue(kind string) {
	if c == nil {
		return
	}
	c.cuesReceived.WithLabelValues(kind).Inc()
}

// RecordTransition counts an accepted cue change.
func (c *Collector) RecordTransition(action string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(action).Inc()
}

// RecordRequest counts a remote-control request.
func (c *Collector) RecordRequest(requestType string, success bool) {
	if c == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	c.requests.WithLabelValues(requestType, result).Inc()
}

// RecordReconcile counts a reconciliation run and its corrective attempts.
func (c *Collector) RecordReconcile(outcome string, attempts int) {
	if c == nil {
		return
	}
	c.reconciles.WithLabelValues(outcome).Inc()
	c.attempts.Add(float64(attempts))
}

// RecordHeartbeat stores the heartbeat time and observed recording state.
func (c *Collector) RecordHeartbeat(at time.Time, recording bool) {
	if c == nil {
		return
	}
	c.heartbeat.Set(float64(at.UnixNano()) / 1e9)
	c.recording.Set(boolToFloat(recording))
}

// SetConnected mirrors the control connectivity flag.
func (c *Collector) SetConnected(connected bool) {
	if c == nil {
		return
	}
	c.connected.Set(boolToFloat(connected))
}

// RecordPublishError counts a failed status board publication.
func (c *Collector) RecordPublishError() {
	if c == nil {
		return
	}
	c.publishErrors.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
