// Package uds carries dwcapd's control protocol: NDJSON messages over a
// Unix domain socket, with request/response correlation and server-pushed
// events for the live record stream.
package uds

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

var msgCounter atomic.Uint64

// MsgType identifies the kind of message.
type MsgType string

const (
	MsgTypeReq MsgType = "req"
	MsgTypeRes MsgType = "res"
	MsgTypeEvt MsgType = "evt"
)

// Message is the NDJSON envelope for all communication.
type Message struct {
	Type   MsgType         `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// UnmarshalData decodes the payload into v.
func (m Message) UnmarshalData(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("message %s has no data", m.ID)
	}
	return json.Unmarshal(m.Data, v)
}

func newMessage(typ MsgType, id, method string, data any) (Message, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Message{}, err
		}
		raw = b
	}
	return Message{Type: typ, ID: id, Method: method, Data: raw}, nil
}

// NewRequest creates a request with a unique ID.
func NewRequest(method string, data any) (Message, error) {
	return newMessage(MsgTypeReq, fmt.Sprintf("req-%d", msgCounter.Add(1)), method, data)
}

// NewResponse creates a response correlated to a request.
func NewResponse(reqID, method string, data any) (Message, error) {
	return newMessage(MsgTypeRes, reqID, method, data)
}

// NewErrorResponse creates an error response.
func NewErrorResponse(reqID, method, errMsg string) Message {
	return Message{Type: MsgTypeRes, ID: reqID, Method: method, Error: errMsg}
}

// NewEvent creates a server-pushed event.
func NewEvent(method string, data any) (Message, error) {
	return newMessage(MsgTypeEvt, fmt.Sprintf("evt-%d", msgCounter.Add(1)), method, data)
}

// Methods and events.
const (
	MethodPing   = "Ping"
	MethodStatus = "Status"

	// EventRecord carries one core.Record per captured line.
	EventRecord = "capture.record"
)

// PingResponse is the response to a Ping request.
type PingResponse struct {
	Pong bool `json:"pong"`
}
