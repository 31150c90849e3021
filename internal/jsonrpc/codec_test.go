package jsonrpc

import (
	"bytes"
	"testing"
)

func TestSplitFramesHandlesPartialTrailingFrame(t *testing.T) {
	msg1, _ := EncodeFramed(NewNotification("ping", nil))
	msg2, _ := EncodeFramed(NewNotification("pong", nil))
	partial := []byte(`{"jsonrpc":"2.0","method":"inc`)

	data := append(append(append([]byte{}, msg1...), msg2...), partial...)

	frames, remainder := SplitFrames(data)
	if len(frames) != 2 {
		t.Fatalf("expected 2 complete frames, got %d", len(frames))
	}
	if !bytes.Equal(remainder, partial) {
		t.Errorf("remainder = %q, want %q", remainder, partial)
	}
}

func TestSplitFramesSkipsBlankLines(t *testing.T) {
	data := []byte("\n\n" + `{"jsonrpc":"2.0","method":"ping"}` + "\n")
	frames, remainder := SplitFrames(data)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if len(remainder) != 0 {
		t.Errorf("expected empty remainder, got %q", remainder)
	}
}

func TestSerializeIntoAppendsDelimiter(t *testing.T) {
	var buf bytes.Buffer
	msg := NewNotification("ping", nil)
	if err := SerializeInto(&buf, msg); err != nil {
		t.Fatalf("SerializeInto: %v", err)
	}
	if buf.Bytes()[buf.Len()-1] != Delimiter {
		t.Errorf("expected buffer to end with delimiter")
	}
	frames, remainder := SplitFrames(buf.Bytes())
	if len(frames) != 1 || len(remainder) != 0 {
		t.Fatalf("expected exactly one complete frame, got %d frames remainder=%q", len(frames), remainder)
	}
}

func TestMustMarshalParamsNilIsNil(t *testing.T) {
	if got := MustMarshalParams(nil); got != nil {
		t.Errorf("expected nil params for nil input, got %q", got)
	}
}
