// Package obswstest provides an in-process fake recording device that speaks
// the subset of the OBS websocket protocol used by obsws.
package obswstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Request is one request frame the device received.
type Request struct {
	Type string
	ID   string
	Raw  []byte
}

// Device is a fake recorder. Start/stop requests toggle its recording flag
// unless failures were scheduled with FailStarts or FailStops.
type Device struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	recording   bool
	failStarts  int
	failStops   int
	omitVersion bool
	dropAfter   int
	connections int
	identifies  [][]byte
	requests    []Request
}

// NewDevice starts a fake device listening on a loopback port.
func NewDevice() *Device {
	d := &Device{}
	d.server = httptest.NewServer(http.HandlerFunc(d.serve))
	return d
}

// Addr returns host:port suitable for obsws.NewClient.
func (d *Device) Addr() string {
	return strings.TrimPrefix(d.server.URL, "http://")
}

// Close shuts the device down.
func (d *Device) Close() {
	d.server.Close()
}

// SetRecording forces the recording flag.
func (d *Device) SetRecording(recording bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recording = recording
}

// Recording reports the recording flag.
func (d *Device) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

// FailStarts makes the next n StartRecord requests fail without starting.
func (d *Device) FailStarts(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failStarts = n
}

// FailStops makes the next n StopRecord requests fail without stopping.
func (d *Device) FailStops(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failStops = n
}

// OmitNegotiatedVersion makes the handshake reply lack negotiatedRpcVersion.
func (d *Device) OmitNegotiatedVersion() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.omitVersion = true
}

// DropAfter closes each connection after n requests without answering the
// n+1th. Zero disables dropping.
func (d *Device) DropAfter(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropAfter = n
}

// Connections returns how many websocket sessions were opened.
func (d *Device) Connections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connections
}

// Identifies returns the raw identification frames received.
func (d *Device) Identifies() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.identifies...)
}

// Requests returns every request received, in arrival order.
func (d *Device) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Request(nil), d.requests...)
}

// RequestTypes returns the requestType of every request received.
func (d *Device) RequestTypes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]string, 0, len(d.requests))
	for _, r := range d.requests {
		types = append(types, r.Type)
	}
	return types
}

// CountRequests returns how many requests of the given type were received.
func (d *Device) CountRequests(requestType string) int {
	n := 0
	for _, t := range d.RequestTypes() {
		if t == requestType {
			n++
		}
	}
	return n
}

func (d *Device) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	d.mu.Lock()
	d.connections++
	omitVersion := d.omitVersion
	dropAfter := d.dropAfter
	d.mu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"op":0,"d":{"obsWebSocketVersion":"5.0.0","rpcVersion":1}}`)); err != nil {
		return
	}

	_, identify, err := conn.ReadMessage()
	if err != nil {
		return
	}
	d.mu.Lock()
	d.identifies = append(d.identifies, identify)
	d.mu.Unlock()

	ack := `{"op":2,"d":{"negotiatedRpcVersion":1}}`
	if omitVersion {
		ack = `{"op":2,"d":{}}`
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ack)); err != nil {
		return
	}

	handled := 0
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame struct {
			Op int `json:"op"`
			D  struct {
				RequestType string `json:"requestType"`
				RequestID   string `json:"requestId"`
			} `json:"d"`
		}
		if err := json.Unmarshal(payload, &frame); err != nil {
			return
		}

		d.mu.Lock()
		d.requests = append(d.requests, Request{Type: frame.D.RequestType, ID: frame.D.RequestID, Raw: payload})
		d.mu.Unlock()

		if dropAfter > 0 && handled >= dropAfter {
			return
		}
		handled++

		reply, err := json.Marshal(map[string]any{
			"op": 7,
			"d":  d.handle(frame.D.RequestType, frame.D.RequestID),
		})
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

func (d *Device) handle(requestType, requestID string) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := true
	code := 100
	data := map[string]any{
		"requestType": requestType,
		"requestId":   requestID,
	}

	switch requestType {
	case "StartRecord":
		switch {
		case d.failStarts > 0:
			d.failStarts--
			result, code = false, 702
		case d.recording:
			result, code = false, 500
		default:
			d.recording = true
		}
	case "StopRecord":
		switch {
		case d.failStops > 0:
			d.failStops--
			result, code = false, 702
		case !d.recording:
			result, code = false, 501
		default:
			d.recording = false
		}
	case "GetRecordStatus":
		data["responseData"] = map[string]any{
			"outputActive": d.recording,
			"outputPaused": false,
		}
	default:
		result, code = false, 204
	}

	data["requestStatus"] = map[string]any{"result": result, "code": code}
	return data
}
