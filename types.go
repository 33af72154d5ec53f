package linkauth

import (
	"context"
	"time"
)

// Account is the full stored record handled by [AccountStore]. It carries
// the credential hash and any pending verification code, so Engine methods
// never return it directly; callers receive the scrubbed [Identity] view.
type Account struct {
	ID       string
	LoginKey string
	Email    string
	Name     string
	Role     string

	CredentialHash   string
	EmailVerifiedAt  time.Time
	TwoFactorEnabled bool

	PendingCode          string
	PendingCodeExpiresAt time.Time
}

// EmailVerified reports whether the account's email has been confirmed.
func (a Account) EmailVerified() bool {
	return !a.EmailVerifiedAt.IsZero()
}

// AccountPatch is a partial update applied by [AccountStore.UpdateByID].
// Nil fields are left untouched; a pointer to the zero value clears the
// field (an empty *PendingCode removes the pending code, a zero
// *EmailVerifiedAt un-verifies).
type AccountPatch struct {
	CredentialHash       *string
	EmailVerifiedAt      *time.Time
	PendingCode          *string
	PendingCodeExpiresAt *time.Time

	// IfPendingCode makes the patch conditional: it only applies while the
	// stored pending code equals this value. A mismatch must fail with
	// ErrStoreCodeConflict. This is what makes code consumption atomic.
	IfPendingCode *string
}

// AccountStore is the primary interface that callers must implement to
// integrate linkauth with their account database. Lookups by unknown keys
// must return (or wrap) ErrAccountNotFound; Create must return
// ErrStoreDuplicateLoginKey on a login-key collision; conditional patches
// must return ErrStoreCodeConflict when the condition fails.
type AccountStore interface {
	GetByLoginKey(ctx context.Context, loginKey string) (Account, error)
	GetByID(ctx context.Context, accountID string) (Account, error)
	Create(ctx context.Context, account Account) error
	UpdateByID(ctx context.Context, accountID string, patch AccountPatch) error
}

// Mailer delivers verification emails. Implementations must not log or
// persist message bodies: they contain live codes.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// CaptchaVerifier checks a client-supplied captcha token during account
// creation.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Identity is the scrubbed account view returned by Engine operations. It
// never carries the credential hash or a pending verification code.
type Identity struct {
	AccountID        string
	LoginKey         string
	Email            string
	Name             string
	Role             string
	EmailVerified    bool
	TwoFactorEnabled bool
}

// LoginResult is returned by [Engine.Login] and [Engine.ConfirmTwoFactor]
// once a session has been established.
type LoginResult struct {
	Identity    Identity
	SessionID   string
	AccessToken string
	ExpiresAt   time.Time
}

// AuthResult is returned by [Engine.Validate] for a live access token whose
// backing session still exists.
type AuthResult struct {
	AccountID string
	LoginKey  string
	Role      string
	SessionID string
}

// NewAccountInput carries caller-supplied fields for [Engine.CreateAccount].
type NewAccountInput struct {
	LoginKey     string
	Email        string
	Name         string
	Password     string
	CaptchaToken string
}

// SecurityReport is a point-in-time snapshot of engine health returned by
// [Engine.SecurityReport].
type SecurityReport struct {
	GeneratedAt time.Time

	Config ConfigReport

	RedisAvailable bool
	RedisLatency   time.Duration
	ActiveSessions int

	AuditEnabled      bool
	AuditDroppedTotal uint64

	MetricsEnabled bool
	Metrics        MetricsSnapshot
}

// ConfigReport mirrors the security-relevant parts of the active [Config].
type ConfigReport struct {
	BcryptCost        int
	FailureDelayMin   time.Duration
	FailureDelayMax   time.Duration
	CodeTTL           time.Duration
	CodeLength        int
	AccessTTL         time.Duration
	SessionLifetime   time.Duration
	SlidingExpiration bool
	PasswordReset     bool
	EmailVerification bool
	AccountCreation   bool
	CaptchaRequired   bool
}
