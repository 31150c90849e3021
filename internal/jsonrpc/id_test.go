package jsonrpc

import "testing"

func TestNextNumberIDIsMonotonic(t *testing.T) {
	a := NextNumberID()
	b := NextNumberID()
	if !a.IsNumber() || !b.IsNumber() {
		t.Fatalf("expected number-variant ids, got %v and %v", a, b)
	}
	if a.Equal(b) {
		t.Fatalf("expected two distinct ids from successive calls, got %v twice", a)
	}
}

func TestNextStringIDIsStringVariant(t *testing.T) {
	id := NextStringID()
	if !id.IsString() {
		t.Fatalf("expected string-variant id, got %v", id)
	}
	if id.String() == "" {
		t.Fatal("expected a non-empty id")
	}
}

func TestNextNumberAndStringIDsShareOneCounter(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		seen[NextNumberID().String()] = true
		seen[NextStringID().String()] = true
	}
	if len(seen) != 40 {
		t.Fatalf("expected 40 distinct ids across interleaved number/string draws, got %d", len(seen))
	}
}
