package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// Session is the server-side login state kept in Redis. Instances are
// treated as immutable once saved; mutation happens by overwriting the key.
type Session struct {
	SessionID string
	AccountID string
	LoginKey  string
	Role      string

	CreatedAt int64
	ExpiresAt int64
}

const sessionIDSize = 16

// NewID returns a fresh random session ID: 16 bytes from crypto/rand,
// base64url without padding.
func NewID() (string, error) {
	var raw [sessionIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidateID checks that sessionID decodes to the expected raw size.
func ValidateID(sessionID string) error {
	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return err
	}
	if len(raw) != sessionIDSize {
		return errors.New("invalid session id size")
	}
	return nil
}
