package code

import (
	"strings"
	"testing"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, err := New(Length)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if len(c) != Length {
			t.Fatalf("expected %d symbols, got %q", Length, c)
		}
		for _, r := range c {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("code %q contains %q outside alphabet", c, r)
			}
		}
	}
}

func TestNewExcludesAmbiguousSymbols(t *testing.T) {
	for _, forbidden := range "01oli" {
		if strings.ContainsRune(Alphabet, forbidden) {
			t.Fatalf("alphabet must not contain %q", forbidden)
		}
	}
}

func TestNewDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c, err := New(Length)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if seen[c] {
			t.Fatalf("duplicate code %q in 100 draws", c)
		}
		seen[c] = true
	}
}

func TestNewRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, 3, 17, -1} {
		if _, err := New(n); err == nil {
			t.Fatalf("expected error for length %d", n)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"A7X9K2":     "a7x9k2",
		"  a7x9k2\n": "a7x9k2",
		"a7x9k2":     "a7x9k2",
		"":           "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
	// idempotent
	if Normalize(Normalize(" A7x9K2 ")) != "a7x9k2" {
		t.Error("Normalize is not idempotent")
	}
}

func TestIsValidFormat(t *testing.T) {
	valid := []string{"a7x9k2", "A7X9K2", " a7x9k2 ", "000000", "llllll", "abcxyz"}
	for _, s := range valid {
		if !IsValidFormat(s) {
			t.Errorf("IsValidFormat(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "a7x9k", "a7x9k2b", "a7x9!2", "a7 9k2", "a7x9ké"}
	for _, s := range invalid {
		if IsValidFormat(s) {
			t.Errorf("IsValidFormat(%q) = true, want false", s)
		}
	}
}
