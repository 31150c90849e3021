package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

func TestRequestRoundTrip(t *testing.T) {
	id := NewStringID("req-1")
	params := json.RawMessage(`{"name":"echo"}`)
	msg := NewRequest(id, "tools/call", params)

	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.IsRequest() {
		t.Fatalf("expected decoded message to be a request, got kind %v", decoded.Kind())
	}
	gotID, ok := decoded.ID()
	if !ok || !gotID.Equal(id) {
		t.Errorf("ID round-trip mismatch: got %v, want %v", gotID, id)
	}
	method, _ := decoded.Method()
	if method != "tools/call" {
		t.Errorf("Method = %q, want tools/call", method)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	id := NewNumberID(42)
	result := json.RawMessage(`{"ok":true}`)
	msg := NewResponse(id, result)

	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.IsResponse() || decoded.IsError() {
		t.Fatalf("expected a non-error response, got kind=%v isError=%v", decoded.Kind(), decoded.IsError())
	}
	gotResult, ok := decoded.Result()
	if !ok || string(gotResult) != string(result) {
		t.Errorf("Result = %s, want %s", gotResult, result)
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	id := NewStringID("err-1")
	msg := NewErrorResponse(id, &ErrorObject{Code: -32601, Message: "method not found"})

	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.IsError() {
		t.Fatalf("expected decoded message to be an error response")
	}
	if decoded.Err().Code != -32601 {
		t.Errorf("Error code = %d, want -32601", decoded.Err().Code)
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	msg := NewNotification("notifications/initialized", nil)

	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.IsNotification() {
		t.Fatalf("expected decoded message to be a notification, got kind %v", decoded.Kind())
	}
	if _, ok := decoded.ID(); ok {
		t.Errorf("notification must not carry an id")
	}
}

func TestUnmarshalRejectsMalformedEnvelope(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0"}`))
	if err == nil {
		t.Fatalf("expected an error for an envelope with neither method nor id")
	}
}

func TestUnmarshalRejectsWrongProtocolVersion(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"1.0","id":1,"method":"ping"}`))
	if err == nil {
		t.Fatal("expected an error for a non-2.0 jsonrpc version")
	}
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.KindProtocol {
		t.Fatalf("expected a KindProtocol error, got %v", err)
	}
}

func TestUnmarshalRejectsMissingProtocolVersion(t *testing.T) {
	_, err := Decode([]byte(`{"id":1,"method":"ping"}`))
	if err == nil {
		t.Fatal("expected an error for a missing jsonrpc field")
	}
}

func TestValidateRejectsEmptyMethod(t *testing.T) {
	msg := NewRequest(NewStringID("x"), "", nil)
	if err := Validate(msg); err == nil {
		t.Fatalf("expected Validate to reject an empty method")
	}
}

func TestIDVariantsAreDistinct(t *testing.T) {
	str := NewStringID("1")
	num := NewNumberID(1)
	if str.Equal(num) {
		t.Fatalf("string id %q and number id %d must not compare equal", str, num)
	}
}

func TestNewGeneratedIDIsStringVariant(t *testing.T) {
	id := NewGeneratedID()
	if !id.IsString() {
		t.Fatalf("expected generated id to be string-variant")
	}
	if id.String() == "" {
		t.Fatalf("expected generated id to be non-empty")
	}
}
