// Package code generates and validates short human-typed verification
// codes used for password reset, email verification and two-factor login.
package code

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is the set of symbols codes are drawn from. Digits 0 and 1
// and the letters o, l and i are excluded so codes survive being read
// aloud or retyped from a phone screen.
const Alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// Length is the default number of symbols in a generated code.
const Length = 6

// New returns a fresh random code of n symbols drawn uniformly from
// Alphabet using crypto/rand. It never falls back to a weaker source.
func New(n int) (string, error) {
	if n < 4 || n > 16 {
		return "", errors.New("invalid code length")
	}

	var b strings.Builder
	b.Grow(n)

	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}

	c := b.String()
	if len(c) != n {
		return "", fmt.Errorf("invalid code generation length")
	}
	return c, nil
}

// Normalize canonicalizes user input before comparison: surrounding
// whitespace is stripped and the code is lowercased.
func Normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// IsValidFormat reports whether input looks like a code after
// normalization. The check is deliberately looser than Alphabet: any
// six lowercase-alphanumeric symbols pass, so a typo of an excluded
// character still reaches the store lookup and fails there instead of
// leaking which symbols a real code can contain.
func IsValidFormat(input string) bool {
	s := Normalize(input)
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c >= 'a' && c <= 'z' {
			continue
		}
		return false
	}
	return true
}
