package password

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(minCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestNewHasherValidation(t *testing.T) {
	if _, err := NewHasher(4); err == nil {
		t.Error("expected error for cost below minimum")
	}
	if _, err := NewHasher(40); err == nil {
		t.Error("expected error for cost above maximum")
	}
	h, err := NewHasher(DefaultCost)
	if err != nil {
		t.Fatalf("NewHasher(DefaultCost): %v", err)
	}
	if h.Cost() != DefaultCost {
		t.Errorf("Cost() = %d, want %d", h.Cost(), DefaultCost)
	}
}

func TestHashAndCompare(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash %q is not a bcrypt string", hash)
	}

	if err := h.Compare(hash, "correct horse battery"); err != nil {
		t.Errorf("Compare with correct password: %v", err)
	}
	if err := h.Compare(hash, "wrong password!"); !errors.Is(err, ErrMismatch) {
		t.Errorf("Compare with wrong password = %v, want ErrMismatch", err)
	}
}

func TestHashRejectsBadLengths(t *testing.T) {
	h := newTestHasher(t)

	if _, err := h.Hash("short"); err == nil {
		t.Error("expected error for password below 8 bytes")
	}
	if _, err := h.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("expected error for password above 72 bytes")
	}
}

func TestCompareMalformedHash(t *testing.T) {
	h := newTestHasher(t)

	err := h.Compare("not-a-bcrypt-hash", "whatever1")
	if err == nil || errors.Is(err, ErrMismatch) {
		t.Errorf("expected decode error for malformed hash, got %v", err)
	}
}

func TestCompareDummyBurnsComparableWork(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	start := time.Now()
	_ = h.Compare(hash, "wrong password!")
	real := time.Since(start)

	start = time.Now()
	h.CompareDummy("wrong password!")
	dummy := time.Since(start)

	// The dummy path hashes twice (generate + compare), so it should
	// never be cheaper than a real mismatch.
	if dummy < real/2 {
		t.Errorf("dummy compare took %v, real mismatch %v", dummy, real)
	}
}
