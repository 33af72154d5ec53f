package flows

import (
	"context"
	"errors"
	"strings"
	"time"
)

// NewAccount carries the caller-supplied fields for account creation. The
// plaintext password never leaves this flow.
type NewAccount struct {
	LoginKey     string
	Email        string
	Name         string
	Password     string
	CaptchaToken string
}

type AccountMetrics struct {
	AccountCreated         int
	AccountCreationFailure int
	PasswordChangeSuccess  int
	PasswordChangeFailure  int
}

type AccountEvents struct {
	AccountCreation string
	PasswordChange  string
}

type AccountErrors struct {
	EngineNotReady      error
	InvalidInput        error
	CaptchaFailed       error
	DuplicateAccount    error
	PasswordPolicy      error
	PasswordReuse       error
	InvalidCredentials  error
	AccountNotFound     error
	SessionInvalidation error
	Unavailable         error
}

type AccountDeps struct {
	RequireCaptcha bool
	DefaultRole    string
	CodeTTL        time.Duration
	CodeLength     int

	Now   func() time.Time
	NewID func() string

	VerifyCaptcha func(ctx context.Context, token string) error

	GetAccountByLoginKey func(context.Context, string) (AccountRecord, error)
	GetAccountByID       func(context.Context, string) (AccountRecord, error)
	CreateAccount        func(context.Context, AccountRecord) error
	IsNotFound           func(error) bool
	IsDuplicate          func(error) bool

	HashPassword      func(string) (string, error)
	ComparePassword   func(hash, password string) error
	IsMismatch        func(error) bool
	SleepFailureDelay func(context.Context) error

	GenerateCode         func(int) (string, error)
	SavePendingCode      func(ctx context.Context, accountID, code string, expiresAt int64) error
	SendVerificationCode func(ctx context.Context, account AccountRecord, code string) error

	UpdateCredentialHash func(ctx context.Context, accountID, newHash string) error
	RevokeSessions       func(ctx context.Context, accountID string) error

	Warn func(format string, args ...any)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

// RunCreateAccount registers a new, unverified account and mails it an
// email-verification code. Unlike login and the code flows, duplicate
// detection here is loud: self-registration has to tell the user their
// address is already taken, and the captcha requirement is what keeps that
// from becoming a cheap enumeration channel.
func RunCreateAccount(ctx context.Context, input NewAccount, deps AccountDeps) (*AccountRecord, error) {
	normalizeAccountDeps(&deps)

	if deps.GetAccountByLoginKey == nil || deps.CreateAccount == nil || deps.HashPassword == nil || deps.NewID == nil {
		return nil, deps.Errors.EngineNotReady
	}

	loginKey := strings.ToLower(strings.TrimSpace(input.LoginKey))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		email = loginKey
	}
	if loginKey == "" || !strings.Contains(email, "@") {
		return nil, deps.Errors.InvalidInput
	}

	if deps.RequireCaptcha {
		if deps.VerifyCaptcha == nil {
			return nil, deps.Errors.EngineNotReady
		}
		if err := deps.VerifyCaptcha(ctx, input.CaptchaToken); err != nil {
			deps.MetricInc(deps.Metrics.AccountCreationFailure)
			deps.EmitAudit(ctx, deps.Events.AccountCreation, false, "", "", deps.Errors.CaptchaFailed, func() map[string]string {
				return map[string]string{"reason": "captcha_failed"}
			})
			return nil, deps.Errors.CaptchaFailed
		}
	}

	if _, err := deps.GetAccountByLoginKey(ctx, loginKey); err == nil {
		deps.MetricInc(deps.Metrics.AccountCreationFailure)
		deps.EmitAudit(ctx, deps.Events.AccountCreation, false, "", "", deps.Errors.DuplicateAccount, func() map[string]string {
			return map[string]string{"reason": "duplicate"}
		})
		return nil, deps.Errors.DuplicateAccount
	} else if !deps.IsNotFound(err) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, deps.Errors.Unavailable
	}

	hash, err := deps.HashPassword(input.Password)
	if err != nil {
		deps.MetricInc(deps.Metrics.AccountCreationFailure)
		return nil, deps.Errors.PasswordPolicy
	}

	account := AccountRecord{
		ID:             deps.NewID(),
		LoginKey:       loginKey,
		Email:          email,
		Name:           strings.TrimSpace(input.Name),
		Role:           deps.DefaultRole,
		CredentialHash: hash,
	}

	if err := deps.CreateAccount(ctx, account); err != nil {
		deps.MetricInc(deps.Metrics.AccountCreationFailure)
		// Lost the race with a concurrent registration for the same key.
		if deps.IsDuplicate(err) {
			deps.EmitAudit(ctx, deps.Events.AccountCreation, false, "", "", deps.Errors.DuplicateAccount, func() map[string]string {
				return map[string]string{"reason": "duplicate"}
			})
			return nil, deps.Errors.DuplicateAccount
		}
		deps.EmitAudit(ctx, deps.Events.AccountCreation, false, "", "", err, nil)
		return nil, deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.AccountCreated)
	deps.EmitAudit(ctx, deps.Events.AccountCreation, true, account.ID, "", nil, nil)

	// Verification email is best-effort: the account exists either way
	// and a fresh code can be requested.
	if deps.GenerateCode != nil && deps.SavePendingCode != nil && deps.SendVerificationCode != nil {
		verificationCode, genErr := deps.GenerateCode(deps.CodeLength)
		if genErr == nil {
			expiresAt := deps.Now().Add(deps.CodeTTL).Unix()
			if saveErr := deps.SavePendingCode(ctx, account.ID, verificationCode, expiresAt); saveErr == nil {
				if sendErr := deps.SendVerificationCode(ctx, account, verificationCode); sendErr != nil {
					deps.Warn("linkauth: verification email send failed for new account %s: %v", account.ID, sendErr)
				}
			} else {
				deps.Warn("linkauth: verification code persist failed for new account %s: %v", account.ID, saveErr)
			}
		}
	}

	return &account, nil
}

// RunChangePassword rotates the credential hash of an authenticated account
// after re-checking the current password. A wrong current password takes the
// same randomized delay as a failed login. All sessions for the account are
// revoked on success.
func RunChangePassword(ctx context.Context, accountID, oldPassword, newPassword string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)

	if deps.GetAccountByID == nil || deps.ComparePassword == nil || deps.HashPassword == nil || deps.UpdateCredentialHash == nil || deps.SleepFailureDelay == nil {
		return deps.Errors.EngineNotReady
	}
	if accountID == "" || oldPassword == "" || newPassword == "" {
		return deps.Errors.InvalidInput
	}

	account, err := deps.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if deps.IsNotFound(err) {
			return deps.Errors.AccountNotFound
		}
		return deps.Errors.Unavailable
	}

	if cmpErr := deps.ComparePassword(account.CredentialHash, oldPassword); cmpErr != nil {
		if sleepErr := deps.SleepFailureDelay(ctx); sleepErr != nil {
			return sleepErr
		}
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, account.ID, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "old_password_mismatch"}
		})
		return deps.Errors.InvalidCredentials
	}

	if reuseErr := deps.ComparePassword(account.CredentialHash, newPassword); reuseErr == nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, account.ID, "", deps.Errors.PasswordReuse, func() map[string]string {
			return map[string]string{"reason": "password_reuse"}
		})
		return deps.Errors.PasswordReuse
	}

	newHash, err := deps.HashPassword(newPassword)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		return deps.Errors.PasswordPolicy
	}

	if err := deps.UpdateCredentialHash(ctx, account.ID, newHash); err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, account.ID, "", err, nil)
		return deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChange, true, account.ID, "", nil, nil)

	if deps.RevokeSessions != nil {
		if err := deps.RevokeSessions(ctx, account.ID); err != nil {
			deps.Warn("linkauth: session revocation after password change failed for account %s: %v", account.ID, err)
			return deps.Errors.SessionInvalidation
		}
	}
	return nil
}

func normalizeAccountDeps(deps *AccountDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(error) bool { return false }
	}
	if deps.IsMismatch == nil {
		deps.IsMismatch = func(error) bool { return false }
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
