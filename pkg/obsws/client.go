// Package obsws is a minimal client for the OBS websocket remote-control
// protocol (v5): connect, identify, send one or more requests and read their
// correlated responses, then disconnect.
//
// Each Send opens a fresh connection. The client never retries; callers that
// need convergence (see internal/recorder) own the retry policy.
package obsws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultTimeout bounds the connect and every subsequent read or write.
const DefaultTimeout = 2 * time.Second

var (
	// ErrConnect means the device could not be reached.
	ErrConnect = errors.New("obsws: connect failed")
	// ErrNegotiation means the handshake did not yield a usable RPC version.
	ErrNegotiation = errors.New("obsws: rpc version negotiation failed")
	// ErrTransport means the connection failed after it was established.
	ErrTransport = errors.New("obsws: transport failure")
)

// IsConnectivity reports whether err stems from failing to reach the device.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnect)
}

// ConnectivityObserver is told the outcome of every connection attempt.
type ConnectivityObserver interface {
	SetConnected(connected bool)
}

// RequestRecorder is told the outcome of every request sent.
type RequestRecorder interface {
	RecordRequest(requestType string, success bool)
}

// Response is the outcome of the last request of a Send call.
type Response struct {
	// Success mirrors d.requestStatus.result.
	Success bool
	// Field holds d.responseData.<field> when a field was asked for and the
	// device returned it as a boolean.
	Field *bool
	// RequestID is the correlation id of the last request.
	RequestID string
}

// Client sends requests to a single device address.
type Client struct {
	address  string
	timeout  time.Duration
	dialer   *websocket.Dialer
	observer ConnectivityObserver
	recorder RequestRecorder
	logger   *log.Logger
	newID    func() string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithConnectivityObserver registers o to receive connection outcomes.
func WithConnectivityObserver(o ConnectivityObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithRequestRecorder registers r to receive request outcomes.
func WithRequestRecorder(r RequestRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithIDGenerator overrides the request id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		c.newID = fn
	}
}

// NewClient creates a client for the device at address (host:port).
func NewClient(address string, opts ...Option) *Client {
	c := &Client{
		address: address,
		timeout: DefaultTimeout,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default().WithPrefix("obsws")
	}
	c.dialer = &websocket.Dialer{HandshakeTimeout: c.timeout}
	return c
}

// Address returns the device address.
func (c *Client) Address() string {
	return c.address
}

// URL returns the websocket URL dialled for each Send.
func (c *Client) URL() string {
	return "ws://" + c.address + "/"
}

// Send connects, identifies, sends commands strictly in order and returns the
// response to the last one. A failed intermediate command does not stop the
// sequence. When field is non-empty, the named boolean is extracted from the
// last response's responseData.
//
// Errors wrap ErrConnect, ErrNegotiation or ErrTransport. A command the device
// executed but rejected is not an error: it is reported through
// Response.Success.
func (c *Client) Send(ctx context.Context, commands []string, field string) (Response, error) {
	if len(commands) == 0 {
		return Response{}, fmt.Errorf("obsws: no commands given")
	}

	c.logger.Debug("Sending to OBS", "commands", commands)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setConnected(false)
		c.logger.Warn("OBS websocket unreachable", "address", c.address, "err", err)
		return Response{}, fmt.Errorf("%w: %s: %w", ErrConnect, c.address, err)
	}
	c.setConnected(true)
	defer c.close(conn)

	c.logger.Debug("Connection to OBS established")

	version, err := c.handshake(conn)
	if err != nil {
		c.logger.Warn("Unable to negotiate rpc version", "err", err)
		return Response{}, err
	}
	c.logger.Debug("Negotiated rpc version", "version", version)

	var last responseData
	var lastID string
	for _, command := range commands {
		lastID = c.newID()
		last, err = c.request(conn, command, lastID)
		if err != nil {
			return Response{}, err
		}
		ok := last.success()
		c.logger.Debug("OBS request complete", "request", command, "success", ok)
		if c.recorder != nil {
			c.recorder.RecordRequest(command, ok)
		}
	}

	resp := Response{Success: last.success(), RequestID: lastID}
	if field != "" {
		resp.Field = last.field(field)
	}
	return resp, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, c.URL(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// handshake reads the greeting, identifies and returns the negotiated version.
func (c *Client) handshake(conn *websocket.Conn) (int, error) {
	hello, err := c.read(conn)
	if err != nil {
		return 0, err
	}
	if hello.Op != OpHello {
		c.logger.Debug("Unexpected greeting", "op", hello.Op)
	}

	identify, err := EncodeIdentify()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := c.write(conn, identify); err != nil {
		return 0, err
	}

	ack, err := c.read(conn)
	if err != nil {
		return 0, err
	}
	version, ok := negotiatedVersion(ack)
	if !ok {
		return 0, fmt.Errorf("%w: no negotiatedRpcVersion in op %d reply", ErrNegotiation, ack.Op)
	}
	return version, nil
}

func (c *Client) request(conn *websocket.Conn, requestType, requestID string) (responseData, error) {
	frame, err := EncodeRequest(requestType, requestID)
	if err != nil {
		return responseData{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := c.write(conn, frame); err != nil {
		return responseData{}, err
	}

	msg, err := c.read(conn)
	if err != nil {
		return responseData{}, err
	}
	resp := parseResponse(msg)
	if resp.RequestID != "" && resp.RequestID != requestID {
		c.logger.Warn("Response correlation id mismatch", "request", requestType, "sent", requestID, "received", resp.RequestID)
	}
	return resp, nil
}

func (c *Client) read(conn *websocket.Conn) (*Message, error) {
	if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrTransport, err)
	}
	msg, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return msg, nil
}

func (c *Client) write(conn *websocket.Conn, frame []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: write: %w", ErrTransport, err)
	}
	return nil
}

func (c *Client) close(conn *websocket.Conn) {
	deadline := time.Now().Add(c.timeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	if err := conn.Close(); err != nil {
		c.logger.Debug("Closing OBS connection", "err", err)
	}
}

func (c *Client) setConnected(connected bool) {
	if c.observer != nil {
		c.observer.SetConnected(connected)
	}
}
