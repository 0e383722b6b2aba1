// Package status serves the bridge snapshot, a health check and metrics
// over HTTP for dashboards and monitoring.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/state"
)

// DefaultPath is where the snapshot JSON is served.
const DefaultPath = "/obs_record/json"

// SnapshotSource provides the current bridge snapshot. *state.State
// satisfies it.
type SnapshotSource interface {
	Snapshot() state.Snapshot
}

// Server exposes the snapshot at its configured path, /healthz and
// /metrics.
type Server struct {
	addr    string
	path    string
	source  SnapshotSource
	metrics http.Handler
	logger  *log.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a status server for host:port addr. metricsHandler and
// logger may be nil.
func NewServer(addr, path string, source SnapshotSource, metricsHandler http.Handler, logger *log.Logger) *Server {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = log.Default().WithPrefix("status")
	}
	return &Server{
		addr:    addr,
		path:    path,
		source:  source,
		metrics: metricsHandler,
		logger:  logger,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.snapshotHandler)
	mux.HandleFunc("/healthz", s.healthCheckHandler)
	if s.metrics != nil {
		mux.Handle("/metrics", getOnly(s.metrics))
	}
	return mux
}

// Start binds the listening socket and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start status server on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server error", "err", err)
		}
	}()

	s.logger.Info("Serving status", "addr", ln.Addr(), "path", s.path)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// snapshotHandler handles GET requests for the snapshot JSON.
func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.source.Snapshot())
}

// healthCheckHandler handles GET /healthz.
// Returns 200 OK while the recording device is reachable, 503 otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.source.Snapshot()
	response := HealthResponse{
		Status:             "healthy",
		OBS:                "connected",
		Recording:          snap.RecordingActive,
		TimeSinceHeartbeat: snap.TimeSinceHeartbeat,
	}

	if !snap.OBSActive {
		response.Status = "degraded"
		response.OBS = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status             string `json:"status"`
	OBS                string `json:"obs"`
	Recording          bool   `json:"recording"`
	TimeSinceHeartbeat int    `json:"time_since_heartbeat"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
