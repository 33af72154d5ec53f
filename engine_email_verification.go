package linkauth

import (
	"context"

	"github.com/campuslink/linkauth/internal/flows"
)

// RequestEmailVerification issues a verification code for the account behind
// loginKey and emails it. Unknown and already-verified accounts report
// success exactly like unverified ones.
func (e *Engine) RequestEmailVerification(ctx context.Context, loginKey string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return flows.RunRequestEmailVerification(ctx, normalizeLoginKey(loginKey), e.emailVerificationDeps())
}

// ConfirmEmailVerification redeems a verification code and stamps the
// account's email verified. A matching code past its TTL fails with
// ErrCodeExpired; all other rejections return the opaque
// ErrEmailVerificationInvalid.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, loginKey, submittedCode string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	return flows.RunConfirmEmailVerification(ctx, normalizeLoginKey(loginKey), submittedCode, e.emailVerificationDeps())
}
