package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the work factor applied to new hashes. Verification
	// reads the cost embedded in the stored hash, so raising this later
	// only affects newly created credentials.
	DefaultCost = 12

	minCost      = 10
	minPassBytes = 8
	maxPassBytes = 72 // bcrypt truncates beyond 72 bytes
)

// ErrMismatch is returned by Compare when the password does not match
// the stored hash.
var ErrMismatch = errors.New("password does not match")

// Hasher hashes and verifies credentials with bcrypt at a fixed cost.
//
// Hasher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given cost. Costs below 10 are
// rejected outright rather than silently raised.
func NewHasher(cost int) (*Hasher, error) {
	if cost < minCost {
		return nil, errors.New("bcrypt cost below minimum of 10")
	}
	if cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost above maximum")
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash derives a bcrypt hash from password.
//
// Hash may return an error when input validation or the underlying
// hash computation fails.
func (h *Hasher) Hash(password string) (string, error) {
	// Password processing uses raw string bytes exactly as provided (no Unicode normalization).
	if len(password) < minPassBytes {
		return "", errors.New("password must be at least 8 bytes")
	}
	if len(password) > maxPassBytes {
		return "", errors.New("password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare verifies password against an encoded bcrypt hash. It returns
// nil on match, ErrMismatch on mismatch, and the underlying error when
// the hash is malformed.
func (h *Hasher) Compare(encoded, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

// CompareDummy burns one full hash-and-compare cycle against a hash that
// cannot match any real credential. It is called on lookup misses so a
// rejected login costs the same work whether or not the account exists.
// The throwaway hash is generated fresh on every call; callers must not
// replace this with a cached constant.
func (h *Hasher) CompareDummy(password string) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("linkauth-dummy-credential"), h.cost)
	if err != nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(dummy, []byte(password))
}
