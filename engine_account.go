package linkauth

import (
	"context"

	"github.com/campuslink/linkauth/internal/flows"
)

// CreateAccount registers a new, unverified account and, when email
// verification is enabled, mails it a verification code. Duplicate login
// keys are reported loudly with ErrAccountExists; the captcha requirement is
// what keeps registration from becoming an enumeration channel.
func (e *Engine) CreateAccount(ctx context.Context, input NewAccountInput) (*Identity, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return nil, ErrAccountCreationDisabled
	}

	account, err := flows.RunCreateAccount(ctx, flows.NewAccount{
		LoginKey:     input.LoginKey,
		Email:        input.Email,
		Name:         input.Name,
		Password:     input.Password,
		CaptchaToken: input.CaptchaToken,
	}, e.accountDeps())
	if err != nil {
		return nil, err
	}

	identity := identityFromRecord(*account)
	return &identity, nil
}

// ChangePassword rotates an authenticated account's password after
// re-checking the current one. A wrong current password costs the same
// randomized delay as a failed login. All sessions are revoked on success.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return flows.RunChangePassword(ctx, accountID, oldPassword, newPassword, e.accountDeps())
}

// GetIdentity returns the scrubbed view of an account by ID.
//
// GetIdentity may return an error when input validation, dependency calls, or security checks fail.
// GetIdentity does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetIdentity(ctx context.Context, accountID string) (*Identity, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	record, err := e.getRecordByID(ctx, accountID)
	if err != nil {
		if isNotFoundErr(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	identity := identityFromRecord(record)
	return &identity, nil
}
