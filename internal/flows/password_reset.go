package flows

import (
	"context"
	"errors"
	"time"
)

type PasswordResetMetrics struct {
	PasswordResetRequest int
	PasswordResetConfirm int
	PasswordResetFailure int
}

type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetConfirm string
	PasswordResetReplay  string
}

type PasswordResetErrors struct {
	EngineNotReady        error
	PasswordResetDisabled error
	PasswordResetInvalid  error
	CodeExpired           error
	AccountUnverified     error
	PasswordPolicy        error
	SessionInvalidation   error
	Unavailable           error
}

type PasswordResetDeps struct {
	Enabled    bool
	CodeTTL    time.Duration
	CodeLength int

	Now func() time.Time

	GetAccountByLoginKey func(context.Context, string) (AccountRecord, error)
	IsNotFound           func(error) bool
	IsCodeValidFormat    func(string) bool
	NormalizeCode        func(string) string
	SleepFailureDelay    func(context.Context) error

	GenerateCode    func(int) (string, error)
	SavePendingCode func(ctx context.Context, accountID, code string, expiresAt int64) error
	SendResetCode   func(ctx context.Context, account AccountRecord, code string) error

	HashPassword func(string) (string, error)
	// ApplyReset atomically installs the new credential hash and clears
	// the pending code, failing with a conflict when the stored code no
	// longer matches.
	ApplyReset     func(ctx context.Context, accountID, code, newHash string) error
	IsConsumed     func(error) bool
	RevokeSessions func(ctx context.Context, accountID string) error

	Warn func(format string, args ...any)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunRequestPasswordReset issues a reset code for the account behind
// loginKey and emails it. The call reports success whether or not the
// account exists: unknown and unverified accounts burn the randomized delay
// and return nil, and even a failed email send is swallowed, because any
// divergence here would confirm which addresses hold accounts.
func RunRequestPasswordReset(ctx context.Context, loginKey string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if !deps.Enabled {
		return deps.Errors.PasswordResetDisabled
	}
	if deps.GetAccountByLoginKey == nil || deps.GenerateCode == nil || deps.SavePendingCode == nil || deps.SendResetCode == nil || deps.SleepFailureDelay == nil {
		return deps.Errors.EngineNotReady
	}
	if loginKey == "" {
		return deps.Errors.PasswordResetInvalid
	}

	account, err := deps.GetAccountByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if sleepErr := deps.SleepFailureDelay(ctx); sleepErr != nil {
			return sleepErr
		}
		deps.MetricInc(deps.Metrics.PasswordResetRequest)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, "", "", nil, func() map[string]string {
			return map[string]string{"enumeration_safe": "true"}
		})
		return nil
	}

	// No reset code for an account that never verified its email. From
	// the outside this looks exactly like an unknown account.
	if !account.EmailVerified {
		if sleepErr := deps.SleepFailureDelay(ctx); sleepErr != nil {
			return sleepErr
		}
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, account.ID, "", nil, func() map[string]string {
			return map[string]string{"reason": "email_unverified"}
		})
		return nil
	}

	resetCode, err := deps.GenerateCode(deps.CodeLength)
	if err != nil {
		return deps.Errors.Unavailable
	}
	expiresAt := deps.Now().Add(deps.CodeTTL).Unix()

	// Overwrite semantics: a second request replaces any earlier code,
	// pending or stale, for any purpose.
	if err := deps.SavePendingCode(ctx, account.ID, resetCode, expiresAt); err != nil {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, account.ID, "", err, func() map[string]string {
			return map[string]string{"reason": "code_persist_failed"}
		})
		return deps.Errors.Unavailable
	}

	if err := deps.SendResetCode(ctx, account, resetCode); err != nil {
		// Surfacing this would distinguish real accounts from unknown
		// ones. Log and report success; the user can request again.
		deps.Warn("linkauth: password reset email send failed for account %s: %v", account.ID, err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, account.ID, "", err, func() map[string]string {
			return map[string]string{"reason": "email_send_failed"}
		})
		return nil
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, account.ID, "", nil, nil)
	return nil
}

// RunConfirmPasswordReset redeems a reset code and installs a new password.
// All confirmed sessions for the account are revoked afterwards. Rejections
// where the code did not match (unknown account, bad format, mismatch,
// replay) share the opaque PasswordResetInvalid error and the randomized
// failure delay. After a match, an unverified email, a lapsed TTL, or a new
// password failing hashing policy are each reported distinctly.
func RunConfirmPasswordReset(ctx context.Context, loginKey, submitted, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if !deps.Enabled {
		return deps.Errors.PasswordResetDisabled
	}
	if deps.GetAccountByLoginKey == nil || deps.ApplyReset == nil || deps.HashPassword == nil || deps.IsCodeValidFormat == nil || deps.SleepFailureDelay == nil {
		return deps.Errors.EngineNotReady
	}

	if loginKey == "" || !deps.IsCodeValidFormat(submitted) {
		return rejectPasswordReset(ctx, deps, "", "bad_format")
	}
	submitted = deps.NormalizeCode(submitted)

	account, err := deps.GetAccountByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if deps.IsNotFound(err) {
			return rejectPasswordReset(ctx, deps, "", "account_not_found")
		}
		return rejectPasswordReset(ctx, deps, "", "store_error")
	}

	if account.PendingCode == "" {
		return rejectPasswordReset(ctx, deps, account.ID, "no_pending_code")
	}
	if !codesEqual(account.PendingCode, submitted) {
		return rejectPasswordReset(ctx, deps, account.ID, "code_mismatch")
	}

	// Past this point the caller has proved code possession, so the
	// rejection may name its cause.
	if !account.EmailVerified {
		return rejectPasswordResetAs(ctx, deps, account.ID, "email_unverified", deps.Errors.AccountUnverified)
	}
	if deps.Now().Unix() > account.PendingCodeExpiresAt {
		return rejectPasswordResetAs(ctx, deps, account.ID, "code_expired", deps.Errors.CodeExpired)
	}

	newHash, err := deps.HashPassword(newPassword)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, account.ID, "", deps.Errors.PasswordPolicy, func() map[string]string {
			return map[string]string{"reason": "password_policy"}
		})
		return deps.Errors.PasswordPolicy
	}

	if err := deps.ApplyReset(ctx, account.ID, submitted, newHash); err != nil {
		if deps.IsConsumed(err) {
			deps.MetricInc(deps.Metrics.PasswordResetFailure)
			deps.EmitAudit(ctx, deps.Events.PasswordResetReplay, false, account.ID, "", deps.Errors.PasswordResetInvalid, nil)
			if sleepErr := deps.SleepFailureDelay(ctx); sleepErr != nil {
				return sleepErr
			}
			return deps.Errors.PasswordResetInvalid
		}
		return deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.PasswordResetConfirm)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, account.ID, "", nil, nil)

	if deps.RevokeSessions != nil {
		if err := deps.RevokeSessions(ctx, account.ID); err != nil {
			deps.Warn("linkauth: session revocation after password reset failed for account %s: %v", account.ID, err)
			return deps.Errors.SessionInvalidation
		}
	}
	return nil
}

func rejectPasswordReset(ctx context.Context, deps PasswordResetDeps, accountID, reason string) error {
	return rejectPasswordResetAs(ctx, deps, accountID, reason, deps.Errors.PasswordResetInvalid)
}

func rejectPasswordResetAs(ctx context.Context, deps PasswordResetDeps, accountID, reason string, rejection error) error {
	if err := deps.SleepFailureDelay(ctx); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.PasswordResetFailure)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, accountID, "", rejection, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return rejection
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.IsConsumed == nil {
		deps.IsConsumed = func(error) bool { return false }
	}
	if deps.NormalizeCode == nil {
		deps.NormalizeCode = func(s string) string { return s }
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
