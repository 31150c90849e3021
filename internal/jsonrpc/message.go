// Package jsonrpc implements the JSON-RPC 2.0 message model used as the
// wire format for every MCP transport. Message is a closed tagged union
// over the three legal shapes (request, response, notification) that this
// package builds and owns directly, rather than wrapping a third-party
// SDK's polymorphic message interface: callers discriminate with Kind()
// and the typed accessors instead of a type switch over foreign types.
package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

const protocolVersion = "2.0"

// Kind discriminates the three JSON-RPC 2.0 message shapes.
type Kind uint8

const (
	KindRequest Kind = iota
	KindResponse
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// ErrorObject is the JSON-RPC 2.0 error shape carried by error responses.
type ErrorObject struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

type requestFields struct {
	ID     RequestID
	Method string
	Params json.RawMessage
}

type responseFields struct {
	ID     RequestID
	Result json.RawMessage
	Err    *ErrorObject
}

type notificationFields struct {
	Method string
	Params json.RawMessage
}

// Message is the closed union of JSON-RPC request, response, and
// notification. The zero value is not valid; build one with NewRequest,
// NewResponse, NewErrorResponse, or NewNotification.
type Message struct {
	kind         Kind
	request      *requestFields
	response     *responseFields
	notification *notificationFields
}

// NewRequest builds a request-kind Message.
func NewRequest(id RequestID, method string, params json.RawMessage) Message {
	return Message{kind: KindRequest, request: &requestFields{ID: id, Method: method, Params: params}}
}

// NewResponse builds a successful response-kind Message.
func NewResponse(id RequestID, result json.RawMessage) Message {
	return Message{kind: KindResponse, response: &responseFields{ID: id, Result: result}}
}

// NewErrorResponse builds an error response-kind Message.
func NewErrorResponse(id RequestID, errObj *ErrorObject) Message {
	return Message{kind: KindResponse, response: &responseFields{ID: id, Err: errObj}}
}

// NewNotification builds a notification-kind Message (no ID, no reply expected).
func NewNotification(method string, params json.RawMessage) Message {
	return Message{kind: KindNotification, notification: &notificationFields{Method: method, Params: params}}
}

// Kind reports which of the three shapes this Message holds.
func (m Message) Kind() Kind {
	return m.kind
}

func (m Message) IsRequest() bool      { return m.kind == KindRequest }
func (m Message) IsResponse() bool     { return m.kind == KindResponse }
func (m Message) IsNotification() bool { return m.kind == KindNotification }

// ID returns the message's correlation ID and true, for requests and
// responses. Notifications have no ID and return the zero RequestID, false.
func (m Message) ID() (RequestID, bool) {
	switch m.kind {
	case KindRequest:
		return m.request.ID, true
	case KindResponse:
		return m.response.ID, true
	default:
		return RequestID{}, false
	}
}

// Method returns the method name and true, for requests and notifications.
func (m Message) Method() (string, bool) {
	switch m.kind {
	case KindRequest:
		return m.request.Method, true
	case KindNotification:
		return m.notification.Method, true
	default:
		return "", false
	}
}

// Params returns the raw params payload and true, for requests and
// notifications. A message with no params returns (nil, true).
func (m Message) Params() (json.RawMessage, bool) {
	switch m.kind {
	case KindRequest:
		return m.request.Params, true
	case KindNotification:
		return m.notification.Params, true
	default:
		return nil, false
	}
}

// Result returns the raw result payload of a successful response. Returns
// (nil, false) for anything other than a non-error response.
func (m Message) Result() (json.RawMessage, bool) {
	if m.kind != KindResponse || m.response.Err != nil {
		return nil, false
	}
	return m.response.Result, true
}

// Err returns the ErrorObject of an error response, or nil if this message
// is not an error response.
func (m Message) Err() *ErrorObject {
	if m.kind != KindResponse {
		return nil
	}
	return m.response.Err
}

// IsError reports whether this is a response carrying a JSON-RPC error.
func (m Message) IsError() bool {
	return m.kind == KindResponse && m.response.Err != nil
}

// wireMessage is the flat on-the-wire shape; Message marshals to and
// unmarshals from this before reassembling the closed union.
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *RequestID      `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// MarshalJSON renders the Message in whichever of the three wire shapes its
// Kind dictates.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{JSONRPC: protocolVersion}
	switch m.kind {
	case KindRequest:
		id := m.request.ID
		w.ID = &id
		w.Method = m.request.Method
		w.Params = m.request.Params
	case KindResponse:
		id := m.response.ID
		w.ID = &id
		if m.response.Err != nil {
			w.Error = m.response.Err
		} else if m.response.Result != nil {
			w.Result = m.response.Result
		} else {
			w.Result = json.RawMessage("null")
		}
	case KindNotification:
		w.Method = m.notification.Method
		w.Params = m.notification.Params
	default:
		return nil, fmt.Errorf("jsonrpc: cannot marshal zero-value Message")
	}
	return json.Marshal(w)
}

// UnmarshalJSON discriminates the wire shape per JSON-RPC 2.0: presence of
// "method" with no "id" is a notification, "method" with "id" is a request,
// absence of "method" with "id" and ("result" or "error") is a response.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("jsonrpc: decode envelope: %w", err)
	}
	if w.JSONRPC != protocolVersion {
		return errs.New(errs.KindProtocol, "unsupported jsonrpc version %q, want %q", w.JSONRPC, protocolVersion)
	}
	switch {
	case w.Method != "" && w.ID == nil:
		*m = NewNotification(w.Method, w.Params)
	case w.Method != "" && w.ID != nil:
		*m = NewRequest(*w.ID, w.Method, w.Params)
	case w.ID != nil && w.Error != nil:
		*m = NewErrorResponse(*w.ID, w.Error)
	case w.ID != nil && w.Result != nil:
		*m = NewResponse(*w.ID, w.Result)
	default:
		return fmt.Errorf("jsonrpc: message is neither request, response, nor notification")
	}
	return nil
}
