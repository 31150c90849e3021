package validation

import (
	"regexp"
	"strings"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// MaxToolNameLength is the maximum length of a tool name.
const MaxToolNameLength = 255

// toolNamePattern matches tool names that start with a letter and contain
// only alphanumerics, underscores, and hyphens.
var toolNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ArgumentSanitizer validates tool names and recursively sanitizes
// tools/call argument values before they reach a provider.
type ArgumentSanitizer struct{}

// NewArgumentSanitizer builds an ArgumentSanitizer.
func NewArgumentSanitizer() *ArgumentSanitizer {
	return &ArgumentSanitizer{}
}

// ValidateToolName rejects tool names that are empty, oversized, contain
// path-traversal sequences, or don't match toolNamePattern.
func (s *ArgumentSanitizer) ValidateToolName(name string) error {
	if name == "" {
		return errs.New(errs.KindInvalidInput, "tool name is required")
	}
	if len(name) > MaxToolNameLength {
		return errs.New(errs.KindInvalidInput, "tool name too long: %d chars (max %d)", len(name), MaxToolNameLength)
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") {
		return errs.New(errs.KindInvalidInput, "tool name contains path separators")
	}
	if !toolNamePattern.MatchString(name) {
		return errs.New(errs.KindInvalidInput, "tool name %q does not match the required format", name)
	}
	return nil
}

// SanitizeValue recursively sanitizes v: strings are stripped of null
// bytes and rejected if oversized, maps and slices are walked, other
// types pass through unchanged.
func (s *ArgumentSanitizer) SanitizeValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return s.sanitizeString(val)

	case map[string]any:
		result := make(map[string]any, len(val))
		for k, elem := range val {
			sanitized, err := s.SanitizeValue(elem)
			if err != nil {
				return nil, err
			}
			result[k] = sanitized
		}
		return result, nil

	case []any:
		result := make([]any, len(val))
		for i, elem := range val {
			sanitized, err := s.SanitizeValue(elem)
			if err != nil {
				return nil, err
			}
			result[i] = sanitized
		}
		return result, nil

	default:
		return v, nil
	}
}

func (s *ArgumentSanitizer) sanitizeString(str string) (string, error) {
	if len(str) > MaxStringLength {
		return "", errs.New(errs.KindInvalidInput, "string value too long: %d bytes (max %d)", len(str), MaxStringLength)
	}
	return strings.ReplaceAll(str, "\x00", ""), nil
}

// SanitizeToolCall validates and sanitizes a tools/call params object of
// the shape {"name": string, "arguments": {...}}. Fields other than
// "arguments" pass through unmodified once the tool name is validated.
func (s *ArgumentSanitizer) SanitizeToolCall(params map[string]any) (map[string]any, error) {
	name, ok := params["name"].(string)
	if !ok {
		return nil, errs.New(errs.KindInvalidInput, "tool name is required")
	}
	if err := s.ValidateToolName(name); err != nil {
		return nil, err
	}

	result := make(map[string]any, len(params))
	result["name"] = name

	for k, v := range params {
		if k == "name" {
			continue
		}
		if k == "arguments" {
			sanitized, err := s.SanitizeValue(v)
			if err != nil {
				return nil, err
			}
			result[k] = sanitized
			continue
		}
		result[k] = v
	}

	return result, nil
}
