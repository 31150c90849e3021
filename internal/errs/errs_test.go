package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(KindTransportIO, cause, "write failed")

	if !errors.Is(err, New(KindTransportIO, "unrelated message")) {
		t.Fatalf("expected errors.Is to match on Kind regardless of message")
	}
	if errors.Is(err, New(KindParse, "unrelated")) {
		t.Fatalf("expected errors.Is to not match a different Kind")
	}
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := fmt.Errorf("underlying io failure")
	err := Wrap(KindTransportIO, cause, "write failed")

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is(err, cause) to succeed via Unwrap")
	}
}

func TestOf(t *testing.T) {
	err := New(KindCorrelationTimeout, "request %s timed out", "abc")
	if !Of(err, KindCorrelationTimeout) {
		t.Fatalf("expected Of to report true for matching kind")
	}
	if Of(err, KindCancelled) {
		t.Fatalf("expected Of to report false for non-matching kind")
	}
	if Of(fmt.Errorf("plain"), KindCorrelationTimeout) {
		t.Fatalf("expected Of to report false for a non-*Error value")
	}
}

func TestJSONRPCCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want Code
	}{
		{KindParse, CodeParse},
		{KindProtocol, CodeInvalidRequest},
		{KindUnsupportedCapability, CodeMethodNotFound},
		{KindToolNotFound, CodeInvalidParams},
		{KindTransportIO, CodeInternal}, // no direct mapping, falls back
	}
	for _, tc := range cases {
		got := New(tc.kind, "x").JSONRPCCode()
		if got != tc.want {
			t.Errorf("JSONRPCCode(%s) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(KindBufferOverflow, cause, "pool exhausted")
	got := err.Error()
	if got == "" {
		t.Fatalf("expected non-empty error string")
	}
	if !strings.Contains(got, "disk full") {
		t.Errorf("Error() = %q, want it to include the cause %q", got, "disk full")
	}
}
