package linkauth

import (
	"context"

	"github.com/campuslink/linkauth/internal/flows"
)

// RequestPasswordReset issues a reset code for the account behind loginKey
// and emails it. The call succeeds whether or not the account exists, and
// unverified accounts are treated like unknown ones, so the endpoint cannot
// be used to probe for registered addresses. A repeated request overwrites
// the earlier code.
func (e *Engine) RequestPasswordReset(ctx context.Context, loginKey string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return flows.RunRequestPasswordReset(ctx, normalizeLoginKey(loginKey), e.passwordResetDeps())
}

// ConfirmPasswordReset redeems a reset code and installs the new password.
// Every confirmed session for the account is revoked afterwards. A matching
// code on an unverified account fails with ErrAccountUnverified, and a
// matching code past its TTL with ErrCodeExpired; all other rejections
// return the opaque ErrPasswordResetInvalid.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, loginKey, submittedCode, newPassword string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return flows.RunConfirmPasswordReset(ctx, normalizeLoginKey(loginKey), submittedCode, newPassword, e.passwordResetDeps())
}
