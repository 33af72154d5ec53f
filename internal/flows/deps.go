package flows

import "crypto/subtle"

// AccountRecord is the flow-level view of a stored account. It carries the
// credential hash and any pending verification code, so it must never cross
// the Engine's public API boundary unscrubbed.
type AccountRecord struct {
	ID                   string
	LoginKey             string
	Email                string
	Name                 string
	Role                 string
	CredentialHash       string
	EmailVerified        bool
	TwoFactorEnabled     bool
	PendingCode          string
	PendingCodeExpiresAt int64
}

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Validate          ValidateDeps
	TwoFactor         TwoFactorDeps
	PasswordReset     PasswordResetDeps
	EmailVerification EmailVerificationDeps
	Account           AccountDeps
}

// codesEqual compares two normalized verification codes in constant time.
func codesEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
