package validation

import (
	"net/url"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// bidiOverrides are Unicode bidirectional control characters that can make
// a path render differently than it evaluates, used to disguise traversal
// sequences in displayed tool output.
var bidiOverrides = []rune{
	'‪', // LEFT-TO-RIGHT EMBEDDING
	'‫', // RIGHT-TO-LEFT EMBEDDING
	'‬', // POP DIRECTIONAL FORMATTING
	'‭', // LEFT-TO-RIGHT OVERRIDE
	'‮', // RIGHT-TO-LEFT OVERRIDE
	'⁦', // LEFT-TO-RIGHT ISOLATE
	'⁧', // RIGHT-TO-LEFT ISOLATE
	'⁨', // FIRST STRONG ISOLATE
	'⁩', // POP DIRECTIONAL ISOLATE
}

// PathPolicy holds the allow/deny glob patterns a path must satisfy.
// A path matching any deny pattern is always rejected. When allow is
// non-empty, a path must also match at least one allow pattern.
type PathPolicy struct {
	Allow []string
	Deny  []string
}

// ValidatePath decodes, NFC-normalizes, and matches path against policy,
// returning the cleaned path or an error. The decode/normalize step is
// re-applied to a fixed point (bounded by maxNormalizeIterations) so that
// multiply percent-encoded or differently-normalized traversal sequences
// can't slip past a single-pass check.
func ValidatePath(path string, policy PathPolicy) (string, error) {
	if path == "" {
		return "", errs.New(errs.KindInvalidInput, "path is required")
	}
	if len(path) > MaxPathLength {
		return "", errs.New(errs.KindInvalidInput, "path too long: %d bytes (max %d)", len(path), MaxPathLength)
	}
	if strings.ContainsRune(path, '\x00') {
		return "", errs.New(errs.KindInvalidInput, "path contains a null byte")
	}
	for _, r := range bidiOverrides {
		if strings.ContainsRune(path, r) {
			return "", errs.New(errs.KindInvalidInput, "path contains a bidirectional override character")
		}
	}

	normalized, err := normalizeToFixedPoint(path)
	if err != nil {
		return "", err
	}
	for _, r := range normalized {
		if isHomoglyphOf(r) {
			return "", errs.New(errs.KindInvalidInput, "path contains a separator homoglyph")
		}
	}

	cleaned := filepath.ToSlash(normalized)
	cleaned = filepath.Clean(cleaned)

	if hasTraversalSegment(cleaned) {
		return "", errs.New(errs.KindInvalidInput, "path contains a traversal sequence: %q", path)
	}

	for _, pattern := range policy.Deny {
		if matched, _ := filepath.Match(pattern, cleaned); matched {
			return "", errs.New(errs.KindPathDenied, "path %q matches deny pattern %q", cleaned, pattern)
		}
	}

	if len(policy.Allow) > 0 {
		allowed := false
		for _, pattern := range policy.Allow {
			if matched, _ := filepath.Match(pattern, cleaned); matched {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", errs.New(errs.KindPathDenied, "path %q does not match any allow pattern", cleaned)
		}
	}

	return cleaned, nil
}

// normalizeToFixedPoint repeatedly percent-decodes and NFC-normalizes path
// until it stops changing or maxNormalizeIterations is reached. Reaching
// the iteration cap without converging is itself treated as suspicious
// input and rejected.
func normalizeToFixedPoint(path string) (string, error) {
	current := path
	for i := 0; i < maxNormalizeIterations; i++ {
		decoded, err := url.PathUnescape(current)
		if err != nil {
			// Not valid percent-encoding; treat current as already decoded.
			decoded = current
		}
		decoded = strings.ReplaceAll(decoded, "\\", "/")
		next := norm.NFC.String(decoded)
		if next == current {
			return next, nil
		}
		current = next
	}
	return "", errs.New(errs.KindInvalidInput, "path did not converge after %d normalization passes", maxNormalizeIterations)
}

// hasTraversalSegment reports whether any "/"-delimited segment of a
// slash-normalized, filepath.Clean-ed path is "..". filepath.Clean already
// collapses most traversal within a path, but a cleaned path that still
// escapes its root (e.g. "../etc/passwd") keeps a leading ".." segment.
func hasTraversalSegment(cleaned string) bool {
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// isHomoglyphOf reports whether r is a Unicode character commonly used to
// visually impersonate ASCII separator characters ('.' or '/') in
// homoglyph attacks. ValidatePath's NFC pass does not fold compatibility
// equivalents such as the fullwidth forms, so those are listed here.
func isHomoglyphOf(r rune) bool {
	switch r {
	case '․', // ONE DOT LEADER
		'．', // FULLWIDTH FULL STOP
		'⁄', // FRACTION SLASH
		'／': // FULLWIDTH SOLIDUS
		return true
	}
	return unicode.Is(unicode.Co, r) // private-use area glyphs
}
