package linkauth

import (
	"context"

	"github.com/campuslink/linkauth/internal/flows"
)

// ConfirmTwoFactor redeems the login code mailed by a Login attempt on a
// two-factor account and completes the login with a fresh session. Codes are
// single-use and expire after the configured TTL. Rejections take the
// randomized failure delay and return the opaque ErrTwoFactorInvalid, except
// when the submitted code matches the stored one: then an unverified email
// fails with ErrAccountUnverified and a lapsed TTL with ErrCodeExpired.
func (e *Engine) ConfirmTwoFactor(ctx context.Context, loginKey, submittedCode string) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	account, err := flows.RunConfirmTwoFactor(ctx, normalizeLoginKey(loginKey), submittedCode, e.twoFactorDeps())
	if err != nil {
		return nil, err
	}

	return e.issueSession(ctx, *account)
}
