package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

func TestArgumentSanitizerValidToolName(t *testing.T) {
	s := NewArgumentSanitizer()

	validNames := []string{
		"my_tool", "MyTool", "tool-name", "a", "A",
		"readFile", "read_file", "read-file", "Tool123",
		"tool_with_numbers_123",
	}
	for _, name := range validNames {
		t.Run(name, func(t *testing.T) {
			if err := s.ValidateToolName(name); err != nil {
				t.Errorf("ValidateToolName(%q) = %v, want nil", name, err)
			}
		})
	}
}

func TestArgumentSanitizerEmptyToolName(t *testing.T) {
	s := NewArgumentSanitizer()
	err := s.ValidateToolName("")
	assertInvalidInput(t, err)
}

func TestArgumentSanitizerTooLongToolName(t *testing.T) {
	s := NewArgumentSanitizer()
	longName := "a" + strings.Repeat("b", 255)
	if len(longName) != 256 {
		t.Fatalf("test setup: longName length = %d, want 256", len(longName))
	}
	assertInvalidInput(t, s.ValidateToolName(longName))
}

func TestArgumentSanitizerRejectsTraversalInToolName(t *testing.T) {
	s := NewArgumentSanitizer()
	for _, name := range []string{"../etc", "a/b", "..", "tool/../name"} {
		t.Run(name, func(t *testing.T) {
			assertInvalidInput(t, s.ValidateToolName(name))
		})
	}
}

func TestArgumentSanitizerRejectsMalformedPattern(t *testing.T) {
	s := NewArgumentSanitizer()
	for _, name := range []string{"1tool", "-tool", "_tool", "tool name", "tool!"} {
		t.Run(name, func(t *testing.T) {
			assertInvalidInput(t, s.ValidateToolName(name))
		})
	}
}

func TestSanitizeValueStripsNullBytesFromStrings(t *testing.T) {
	s := NewArgumentSanitizer()
	got, err := s.SanitizeValue("hello\x00world")
	if err != nil {
		t.Fatalf("SanitizeValue: %v", err)
	}
	if got != "helloworld" {
		t.Errorf("SanitizeValue = %q, want %q", got, "helloworld")
	}
}

func TestSanitizeValueRejectsOversizedStrings(t *testing.T) {
	s := NewArgumentSanitizer()
	_, err := s.SanitizeValue(strings.Repeat("a", MaxStringLength+1))
	assertInvalidInput(t, err)
}

func TestSanitizeValueRecursesIntoNestedStructures(t *testing.T) {
	s := NewArgumentSanitizer()
	input := map[string]any{
		"path": "a\x00b",
		"tags": []any{"x\x00y", "z"},
		"nested": map[string]any{
			"value": "q\x00r",
		},
		"count": 3,
	}
	got, err := s.SanitizeValue(input)
	if err != nil {
		t.Fatalf("SanitizeValue: %v", err)
	}
	m := got.(map[string]any)
	if m["path"] != "ab" {
		t.Errorf("path = %v, want ab", m["path"])
	}
	tags := m["tags"].([]any)
	if tags[0] != "xy" {
		t.Errorf("tags[0] = %v, want xy", tags[0])
	}
	nested := m["nested"].(map[string]any)
	if nested["value"] != "qr" {
		t.Errorf("nested.value = %v, want qr", nested["value"])
	}
	if m["count"] != 3 {
		t.Errorf("count = %v, want 3", m["count"])
	}
}

func TestSanitizeToolCallValidatesNameAndSanitizesArguments(t *testing.T) {
	s := NewArgumentSanitizer()
	params := map[string]any{
		"name": "read_file",
		"arguments": map[string]any{
			"path": "report\x00.txt",
		},
		"_meta": map[string]any{"progressToken": "abc"},
	}

	got, err := s.SanitizeToolCall(params)
	if err != nil {
		t.Fatalf("SanitizeToolCall: %v", err)
	}
	if got["name"] != "read_file" {
		t.Errorf("name = %v, want read_file", got["name"])
	}
	args := got["arguments"].(map[string]any)
	if args["path"] != "report.txt" {
		t.Errorf("arguments.path = %v, want report.txt", args["path"])
	}
	if _, ok := got["_meta"]; !ok {
		t.Error("expected _meta to pass through unchanged")
	}
}

func TestSanitizeToolCallRejectsMissingName(t *testing.T) {
	s := NewArgumentSanitizer()
	_, err := s.SanitizeToolCall(map[string]any{"arguments": map[string]any{}})
	assertInvalidInput(t, err)
}

func assertInvalidInput(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		t.Fatalf("error is not *errs.Error: %T", err)
	}
	if e.Kind != errs.KindInvalidInput {
		t.Errorf("Kind = %q, want %q", e.Kind, errs.KindInvalidInput)
	}
}
