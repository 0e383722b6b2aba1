// Package engine assembles the bridge: show-control listener, cue handler,
// remote-control client, heartbeat reconciliation, status server and the
// optional Redis status board.
package engine

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/config"
	"github.com/dyluth/cuebridge/internal/metrics"
	"github.com/dyluth/cuebridge/internal/recorder"
	"github.com/dyluth/cuebridge/internal/showcontrol"
	"github.com/dyluth/cuebridge/internal/state"
	"github.com/dyluth/cuebridge/internal/status"
	"github.com/dyluth/cuebridge/pkg/obsws"
	"github.com/dyluth/cuebridge/pkg/statusboard"
)

const shutdownTimeout = 5 * time.Second

// connectivity forwards control connection outcomes to the shared state and
// the metrics gauge.
type connectivity struct {
	state   *state.State
	metrics *metrics.Collector
}

func (c connectivity) SetConnected(connected bool) {
	c.state.SetConnected(connected)
	c.metrics.SetConnected(connected)
}

// Engine owns every long-running component of the bridge.
type Engine struct {
	cfg    *config.Config
	logger *log.Logger

	state      *state.State
	metrics    *metrics.Collector
	client     *obsws.Client
	handler    *recorder.Handler
	reconciler *recorder.Reconciler
	heartbeat  *recorder.Heartbeat
	listener   *showcontrol.Listener
	status     *status.Server
	board      *statusboard.Client

	ready chan struct{}
}

// New builds an engine from a validated configuration. logger may be nil.
func New(cfg *config.Config, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}

	e := &Engine{
		cfg:     cfg,
		logger:  logger.WithPrefix("engine"),
		state:   state.New(cfg.Cues.Set()),
		metrics: metrics.NewCollector(),
		ready:   make(chan struct{}),
	}

	e.client = obsws.NewClient(cfg.OBS.Address,
		obsws.WithTimeout(cfg.OBS.Timeout),
		obsws.WithConnectivityObserver(connectivity{state: e.state, metrics: e.metrics}),
		obsws.WithRequestRecorder(e.metrics),
		obsws.WithLogger(logger.WithPrefix("obsws")),
	)

	e.handler = recorder.NewHandler(e.state, e.client, e.metrics, logger.WithPrefix("cue"))
	e.reconciler = recorder.NewReconciler(e.state, e.client, recorder.ReconcilerConfig{
		MaxRetries: cfg.Reconcile.MaxRetries,
		RetryDelay: cfg.Reconcile.RetryDelay,
	}, e.metrics, logger.WithPrefix("reconciler"))
	e.heartbeat = recorder.NewHeartbeat(e.reconciler, e.state, cfg.Reconcile.HeartbeatInterval, e.metrics, logger.WithPrefix("heartbeat"))

	e.listener = showcontrol.New(cfg.ShowControl.Addr(), cfg.ShowControl.Address, func(ctx context.Context, raw string) {
		e.handler.HandleCue(ctx, raw)
	}, logger.WithPrefix("showcontrol"))

	e.status = status.NewServer(cfg.Status.Addr(), cfg.Status.Path, e.state, e.metrics.Handler(), logger.WithPrefix("status"))

	if cfg.Redis.Enabled() {
		board, err := statusboard.NewClientFromURL(cfg.Redis.URL, cfg.Redis.Instance)
		if err != nil {
			return nil, fmt.Errorf("failed to create status board client: %w", err)
		}
		e.board = board
		e.heartbeat.OnCycle(func(ctx context.Context, _ recorder.CycleResult) {
			e.publish(ctx)
		})
	}

	return e, nil
}

// State returns the shared bridge state.
func (e *Engine) State() *state.State {
	return e.state
}

// Metrics returns the engine's metrics collector.
func (e *Engine) Metrics() *metrics.Collector {
	return e.metrics
}

// Ready is closed once every socket is bound and background work started.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// ShowControlAddr returns the bound OSC listener address, or nil before Run.
func (e *Engine) ShowControlAddr() net.Addr {
	return e.listener.LocalAddr()
}

// StatusAddr returns the bound status server address, or nil before Run.
func (e *Engine) StatusAddr() net.Addr {
	return e.status.Addr()
}

// Run starts the bridge and blocks until ctx is cancelled. Binding failures
// are returned immediately. On shutdown the service is marked inactive and a
// final snapshot is published when the status board is enabled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.listener.Listen(); err != nil {
		e.closeBoard()
		return err
	}

	if err := e.status.Start(); err != nil {
		e.listener.Close()
		e.closeBoard()
		return err
	}

	if e.board != nil {
		if err := e.board.Ping(ctx); err != nil {
			e.logger.Warn("Status board not reachable, will keep trying", "err", err)
		}
	}

	e.logger.Info("Bridge starting",
		"show_control", e.listener.LocalAddr(),
		"obs", e.cfg.OBS.Address,
		"status", e.status.Addr(),
		"status_board", e.board != nil,
	)

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				e.logger.Error("Component stopped with error", "component", name, "err", err)
			}
		}()
	}

	run("showcontrol", e.listener.Serve)
	run("heartbeat", e.heartbeat.Run)
	if e.board != nil {
		run("statusboard", e.publishLoop)
	}

	close(e.ready)

	<-ctx.Done()
	e.logger.Info("Shutting down...")
	wg.Wait()

	e.state.SetServiceActive(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if e.board != nil {
		e.publish(shutdownCtx)
		e.closeBoard()
	}

	if err := e.status.Shutdown(shutdownCtx); err != nil {
		e.logger.Warn("Status server did not shut down cleanly", "err", err)
	}

	e.logger.Info("Bridge stopped")
	return nil
}

// publishLoop writes the snapshot to the status board every publish
// interval.
func (e *Engine) publishLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Redis.PublishInterval)
	defer ticker.Stop()

	e.publish(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.publish(ctx)
		}
	}
}

func (e *Engine) publish(ctx context.Context) {
	if e.board == nil {
		return
	}
	if err := e.board.Publish(ctx, e.state.Snapshot()); err != nil {
		if ctx.Err() != nil {
			return
		}
		e.metrics.RecordPublishError()
		e.logger.WithPrefix("statusboard").Warn("Failed to publish status", "err", err)
	}
}

func (e *Engine) closeBoard() {
	if e.board != nil {
		e.board.Close()
	}
}
