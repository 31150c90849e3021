package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// Delimiter separates framed messages on a byte stream transport (stdio).
// MCP frames one JSON document per line, matching the teacher's stdio
// transport convention of newline-delimited JSON.
const Delimiter = byte('\n')

// Encode serializes a Message to its canonical JSON-RPC 2.0 bytes, with no
// trailing delimiter.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "encode message")
	}
	return b, nil
}

// EncodeFramed serializes a Message and appends the stream delimiter, for
// writing directly to a newline-delimited transport.
func EncodeFramed(m Message) ([]byte, error) {
	b, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return append(b, Delimiter), nil
}

// Decode parses a single JSON-RPC 2.0 message from bytes.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		if errs.Of(err, errs.KindProtocol) {
			return Message{}, err
		}
		return Message{}, errs.Wrap(errs.KindParse, err, "decode message")
	}
	return m, nil
}

// SerializeInto writes a Message's encoded bytes, followed by the frame
// delimiter, directly into dst without an intermediate allocation beyond
// what json.Marshal itself performs. This is the zero-copy path the
// buffer manager's write pool calls into.
func SerializeInto(dst *bytes.Buffer, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return errs.Wrap(errs.KindParse, err, "serialize message into buffer")
	}
	if _, err := dst.Write(b); err != nil {
		return errs.Wrap(errs.KindTransportIO, err, "write serialized message")
	}
	if err := dst.WriteByte(Delimiter); err != nil {
		return errs.Wrap(errs.KindTransportIO, err, "write frame delimiter")
	}
	return nil
}

// SplitFrames splits a buffered byte slice into complete, delimiter-framed
// messages and returns the unconsumed remainder. It never mutates data.
func SplitFrames(data []byte) (frames [][]byte, remainder []byte) {
	for {
		idx := bytes.IndexByte(data, Delimiter)
		if idx < 0 {
			return frames, data
		}
		frame := data[:idx]
		data = data[idx+1:]
		if len(bytes.TrimSpace(frame)) == 0 {
			continue
		}
		frames = append(frames, frame)
	}
}

// Validate checks that a decoded Message carries a sane shape beyond what
// UnmarshalJSON already enforces structurally (non-empty method for
// requests/notifications).
func Validate(m Message) error {
	switch m.Kind() {
	case KindRequest, KindNotification:
		method, _ := m.Method()
		if method == "" {
			return errs.New(errs.KindProtocol, "method must not be empty")
		}
	case KindResponse:
		if id, ok := m.ID(); !ok || id.IsZero() {
			return errs.New(errs.KindProtocol, "response must carry a non-zero id")
		}
	default:
		return errs.New(errs.KindProtocol, "unrecognized message kind %v", m.Kind())
	}
	return nil
}

// MustMarshalParams is a convenience for callers constructing outbound
// requests/notifications from a typed params value.
func MustMarshalParams(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("jsonrpc: params value does not marshal: %v", err))
	}
	return b
}
