// Package showcontrol receives section hints from the show-control system
// over OSC/UDP.
package showcontrol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"
)

// DefaultAddress is the OSC address the show-control system publishes
// section hints on.
const DefaultAddress = "/d3/showcontrol/sectionhint"

// HandlerFunc receives the first string argument of every matching message.
// It may be called concurrently.
type HandlerFunc func(ctx context.Context, raw string)

// Listener binds a UDP socket and dispatches section hints to a handler.
type Listener struct {
	addr       string
	oscAddress string
	handler    HandlerFunc
	logger     *log.Logger

	mu   sync.Mutex
	conn net.PacketConn

	// go-osc runs each handler on its own goroutine; Serve waits for them.
	dispatchMu sync.Mutex
	draining   bool
	inflight   sync.WaitGroup
}

// New creates a listener for host:port addr. An empty oscAddress takes
// DefaultAddress. logger may be nil.
func New(addr, oscAddress string, handler HandlerFunc, logger *log.Logger) *Listener {
	if oscAddress == "" {
		oscAddress = DefaultAddress
	}
	if logger == nil {
		logger = log.Default().WithPrefix("showcontrol")
	}
	return &Listener{
		addr:       addr,
		oscAddress: oscAddress,
		handler:    handler,
		logger:     logger,
	}
}

// Listen binds the UDP socket. Startup failures such as a port already in
// use are reported here rather than from Serve.
func (l *Listener) Listen() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return nil
	}

	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen for show control on %s: %w", l.addr, err)
	}
	l.conn = conn
	return nil
}

// LocalAddr returns the bound address, or nil before Listen.
func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Serve dispatches packets until ctx is cancelled, then closes the socket,
// waits for handlers still running and returns nil. Messages that arrive
// after shutdown began are dropped. Listen is called first if it has not
// been.
func (l *Listener) Serve(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}

	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()

	dispatcher := osc.NewStandardDispatcher()
	if err := dispatcher.AddMsgHandler(l.oscAddress, func(msg *osc.Message) {
		l.dispatch(ctx, msg)
	}); err != nil {
		conn.Close()
		return fmt.Errorf("invalid OSC address %q: %w", l.oscAddress, err)
	}

	server := &osc.Server{Addr: l.addr, Dispatcher: dispatcher}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-stopped:
		}
	}()

	l.logger.Info("Listening for section hints", "addr", conn.LocalAddr(), "osc_address", l.oscAddress)

	for {
		err := server.Serve(conn)
		if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			l.Close()
			l.drain()
			l.logger.Info("Show control listener stopped")
			return nil
		}
		// A packet that fails to parse ends Serve; keep reading.
		l.logger.Warn("Discarding unreadable packet", "err", err)
	}
}

func (l *Listener) dispatch(ctx context.Context, msg *osc.Message) {
	l.dispatchMu.Lock()
	if l.draining {
		l.dispatchMu.Unlock()
		return
	}
	l.inflight.Add(1)
	l.dispatchMu.Unlock()
	defer l.inflight.Done()

	if len(msg.Arguments) == 0 {
		l.logger.Warn("Section hint without arguments", "address", msg.Address)
		return
	}
	raw, ok := msg.Arguments[0].(string)
	if !ok {
		l.logger.Warn("Section hint argument is not a string", "address", msg.Address, "type", fmt.Sprintf("%T", msg.Arguments[0]))
		return
	}
	l.handler(ctx, raw)
}

// drain stops new dispatches and blocks until running handlers return.
func (l *Listener) drain() {
	l.dispatchMu.Lock()
	l.draining = true
	l.dispatchMu.Unlock()
	l.inflight.Wait()
}

// Close releases the socket. Serve returns once it is closed.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		l.conn.Close()
	}
}
