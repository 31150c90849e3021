package validation

import (
	"errors"
	"testing"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

func TestValidatePathAcceptsCleanRelativePath(t *testing.T) {
	got, err := ValidatePath("docs/readme.md", PathPolicy{})
	if err != nil {
		t.Fatalf("ValidatePath: %v", err)
	}
	if got != "docs/readme.md" {
		t.Errorf("got %q, want docs/readme.md", got)
	}
}

func TestValidatePathRejectsEmptyPath(t *testing.T) {
	_, err := ValidatePath("", PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathRejectsNullByte(t *testing.T) {
	_, err := ValidatePath("docs/read\x00me.md", PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathRejectsOverLengthPath(t *testing.T) {
	long := make([]byte, MaxPathLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := ValidatePath(string(long), PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathRejectsDirectTraversal(t *testing.T) {
	cases := []string{
		"../etc/passwd",
		"a/../../etc/passwd",
		"docs/../../secret",
	}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			_, err := ValidatePath(c, PathPolicy{})
			assertKind(t, err, errs.KindInvalidInput)
		})
	}
}

func TestValidatePathRejectsPercentEncodedTraversal(t *testing.T) {
	cases := []string{
		"%2e%2e/etc/passwd",
		"%2e%2e%2fetc%2fpasswd",
		"docs/%2e%2e/%2e%2e/etc/passwd",
	}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			_, err := ValidatePath(c, PathPolicy{})
			assertKind(t, err, errs.KindInvalidInput)
		})
	}
}

func TestValidatePathRejectsDoubleEncodedTraversal(t *testing.T) {
	// %252e%252e decodes once to %2e%2e, which on the second pass
	// decodes to "..". A single-pass decoder would miss this.
	_, err := ValidatePath("%252e%252e/etc/passwd", PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathRejectsBackslashTraversal(t *testing.T) {
	_, err := ValidatePath(`..\etc\passwd`, PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathRejectsMixedSeparatorTraversal(t *testing.T) {
	_, err := ValidatePath(`docs\..\..\etc/passwd`, PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathRejectsBidiOverride(t *testing.T) {
	_, err := ValidatePath("docs/‮etc/passwd", PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathRejectsSeparatorHomoglyph(t *testing.T) {
	_, err := ValidatePath("docs／etc／passwd", PathPolicy{})
	assertKind(t, err, errs.KindInvalidInput)
}

func TestValidatePathEnforcesDenyList(t *testing.T) {
	policy := PathPolicy{Deny: []string{"secrets/*"}}
	_, err := ValidatePath("secrets/apikey.txt", policy)
	assertKind(t, err, errs.KindPathDenied)
}

func TestValidatePathEnforcesAllowList(t *testing.T) {
	policy := PathPolicy{Allow: []string{"docs/*"}}

	if _, err := ValidatePath("docs/readme.md", policy); err != nil {
		t.Errorf("expected docs/readme.md to be allowed, got %v", err)
	}

	_, err := ValidatePath("config/secret.yaml", policy)
	assertKind(t, err, errs.KindPathDenied)
}

func TestValidatePathDenyListTakesPrecedenceOverAllowList(t *testing.T) {
	policy := PathPolicy{
		Allow: []string{"docs/*"},
		Deny:  []string{"docs/internal-*"},
	}
	_, err := ValidatePath("docs/internal-notes.md", policy)
	assertKind(t, err, errs.KindPathDenied)
}

func assertKind(t *testing.T, err error, kind errs.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error of kind %q, got nil", kind)
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		t.Fatalf("error is not *errs.Error: %T (%v)", err, err)
	}
	if e.Kind != kind {
		t.Errorf("Kind = %q, want %q", e.Kind, kind)
	}
}
