package obsws

import (
	"encoding/json"
	"fmt"
)

// Protocol opcodes used by the client.
const (
	OpHello           = 0
	OpIdentify        = 1
	OpIdentified      = 2
	OpRequest         = 6
	OpRequestResponse = 7
)

// RPCVersion is the remote-control protocol version the client declares.
const RPCVersion = 1

// Request types and response fields used by the bridge.
const (
	RequestStartRecord     = "StartRecord"
	RequestStopRecord      = "StopRecord"
	RequestGetRecordStatus = "GetRecordStatus"

	FieldOutputActive = "outputActive"
)

// Message is the envelope of every frame: an opcode and its data object.
type Message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type outgoing struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type identifyData struct {
	RPCVersion int `json:"rpcVersion"`
}

type requestData struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
}

type identifiedData struct {
	NegotiatedRPCVersion *int `json:"negotiatedRpcVersion"`
}

// RequestStatus is the outcome block of a request response.
type RequestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

type responseData struct {
	RequestType   string                     `json:"requestType"`
	RequestID     string                     `json:"requestId"`
	RequestStatus *RequestStatus             `json:"requestStatus"`
	ResponseData  map[string]json.RawMessage `json:"responseData"`
}

// EncodeIdentify returns the identification frame:
// {"op":1,"d":{"rpcVersion":1}}
func EncodeIdentify() ([]byte, error) {
	return json.Marshal(outgoing{Op: OpIdentify, D: identifyData{RPCVersion: RPCVersion}})
}

// EncodeRequest returns a request frame:
// {"op":6,"d":{"requestType":"<type>","requestId":"<id>"}}
func EncodeRequest(requestType, requestID string) ([]byte, error) {
	return json.Marshal(outgoing{Op: OpRequest, D: requestData{RequestType: requestType, RequestID: requestID}})
}

func decode(payload []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

// negotiatedVersion extracts d.negotiatedRpcVersion, returning false when it
// is missing or not an integer.
func negotiatedVersion(msg *Message) (int, bool) {
	if len(msg.D) == 0 {
		return 0, false
	}
	var data identifiedData
	if err := json.Unmarshal(msg.D, &data); err != nil || data.NegotiatedRPCVersion == nil {
		return 0, false
	}
	return *data.NegotiatedRPCVersion, true
}

func parseResponse(msg *Message) responseData {
	var data responseData
	if len(msg.D) > 0 {
		// A malformed body reads as an unsuccessful request.
		_ = json.Unmarshal(msg.D, &data)
	}
	return data
}

func (r responseData) success() bool {
	return r.RequestStatus != nil && r.RequestStatus.Result
}

// field returns responseData.<name> when present and boolean.
func (r responseData) field(name string) *bool {
	raw, ok := r.ResponseData[name]
	if !ok {
		return nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
