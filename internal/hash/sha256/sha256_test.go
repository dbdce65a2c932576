// Package sha256 includes tests for the SHA-256 hasher adapter.
package sha256

import "testing"

// TestHasherHashURLDeterministic ensures repeated hashing yields the same digest.
func TestHasherHashURLDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got := h.HashURL("hello world")
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if again := h.HashURL("hello world"); again != got {
		t.Fatalf("expected deterministic hash, got %s vs %s", got, again)
	}
}

// TestHasherHashURLTrims ensures URL digests ignore surrounding whitespace.
func TestHasherHashURLTrims(t *testing.T) {
	t.Parallel()

	h := New()
	a := h.HashURL("https://www.openrice.com/en/hongkong/restaurants?sort=createdate")
	b := h.HashURL("  https://www.openrice.com/en/hongkong/restaurants?sort=createdate\n")
	if a != b {
		t.Fatalf("expected equal digests, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}
