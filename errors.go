package linkauth

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the authentication engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is the single opaque rejection returned for every
	// failed credential check. Callers must not be able to distinguish a
	// missing account, a wrong password, or an unverified email from it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is an exported constant or variable used by the authentication engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is an exported constant or variable used by the authentication engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountCreationDisabled is an exported constant or variable used by the authentication engine.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrAccountCreationInvalid is an exported constant or variable used by the authentication engine.
	ErrAccountCreationInvalid = errors.New("invalid account creation request")
	// ErrCaptchaFailed is an exported constant or variable used by the authentication engine.
	ErrCaptchaFailed = errors.New("captcha verification failed")
	// ErrTwoFactorRequired is returned by Login when the password checked out
	// but a two-factor code has been emailed and must be confirmed first.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrTwoFactorInvalid is the opaque rejection for a failed two-factor
	// confirmation: wrong code, replay, or unknown account.
	ErrTwoFactorInvalid = errors.New("two-factor code invalid")
	// ErrCodeExpired is returned when a submitted verification code matches
	// the stored one but its TTL has already passed. Distinguishing this from
	// a mismatch is safe only because the caller has proved code possession.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrAccountUnverified is returned when a submitted verification code
	// matches but the account's email address was never verified.
	ErrAccountUnverified = errors.New("account email not verified")
	// ErrEmailVerificationDisabled is an exported constant or variable used by the authentication engine.
	ErrEmailVerificationDisabled = errors.New("email verification disabled")
	// ErrEmailVerificationInvalid is an exported constant or variable used by the authentication engine.
	ErrEmailVerificationInvalid = errors.New("email verification code invalid")
	// ErrPasswordResetDisabled is an exported constant or variable used by the authentication engine.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrPasswordResetInvalid is an exported constant or variable used by the authentication engine.
	ErrPasswordResetInvalid = errors.New("password reset code invalid")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is an exported constant or variable used by the authentication engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrEmailDeliveryFailed is an exported constant or variable used by the authentication engine.
	ErrEmailDeliveryFailed = errors.New("email delivery failed")
	// ErrSessionCreationFailed is an exported constant or variable used by the authentication engine.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed is an exported constant or variable used by the authentication engine.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreDuplicateLoginKey is returned by AccountStore implementations
	// when a create collides with an existing login key.
	ErrStoreDuplicateLoginKey = errors.New("store duplicate login key")
	// ErrStoreCodeConflict is returned by AccountStore implementations when a
	// conditional pending-code mutation finds the stored code already changed.
	ErrStoreCodeConflict = errors.New("store pending code conflict")
)
