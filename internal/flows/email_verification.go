package flows

import (
	"context"
	"errors"
	"time"
)

type EmailVerificationMetrics struct {
	EmailVerificationRequest int
	EmailVerificationConfirm int
	EmailVerificationFailure int
}

type EmailVerificationEvents struct {
	EmailVerificationRequest string
	EmailVerificationConfirm string
}

type EmailVerificationErrors struct {
	EngineNotReady            error
	EmailVerificationDisabled error
	EmailVerificationInvalid  error
	CodeExpired               error
	Unavailable               error
}

type EmailVerificationDeps struct {
	Enabled    bool
	CodeTTL    time.Duration
	CodeLength int

	Now func() time.Time

	GetAccountByLoginKey func(context.Context, string) (AccountRecord, error)
	IsNotFound           func(error) bool
	IsCodeValidFormat    func(string) bool
	NormalizeCode        func(string) string
	SleepFailureDelay    func(context.Context) error

	GenerateCode         func(int) (string, error)
	SavePendingCode      func(ctx context.Context, accountID, code string, expiresAt int64) error
	SendVerificationCode func(ctx context.Context, account AccountRecord, code string) error

	// MarkVerified atomically stamps the account verified and clears the
	// pending code, failing with a conflict when the stored code no
	// longer matches.
	MarkVerified func(ctx context.Context, accountID, code string) error
	IsConsumed   func(error) bool

	Warn func(format string, args ...any)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics EmailVerificationMetrics
	Events  EmailVerificationEvents
	Errors  EmailVerificationErrors
}

// RunRequestEmailVerification issues a verification code for the account
// behind loginKey and emails it. Like password reset requests, the call is
// enumeration-safe: unknown accounts and already-verified accounts both
// report success without revealing which case occurred.
func RunRequestEmailVerification(ctx context.Context, loginKey string, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)

	if !deps.Enabled {
		return deps.Errors.EmailVerificationDisabled
	}
	if deps.GetAccountByLoginKey == nil || deps.GenerateCode == nil || deps.SavePendingCode == nil || deps.SendVerificationCode == nil || deps.SleepFailureDelay == nil {
		return deps.Errors.EngineNotReady
	}
	if loginKey == "" {
		return deps.Errors.EmailVerificationInvalid
	}

	account, err := deps.GetAccountByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if sleepErr := deps.SleepFailureDelay(ctx); sleepErr != nil {
			return sleepErr
		}
		deps.MetricInc(deps.Metrics.EmailVerificationRequest)
		deps.EmitAudit(ctx, deps.Events.EmailVerificationRequest, true, "", "", nil, func() map[string]string {
			return map[string]string{"enumeration_safe": "true"}
		})
		return nil
	}

	if account.EmailVerified {
		deps.MetricInc(deps.Metrics.EmailVerificationRequest)
		deps.EmitAudit(ctx, deps.Events.EmailVerificationRequest, true, account.ID, "", nil, func() map[string]string {
			return map[string]string{"noop": "already_verified"}
		})
		return nil
	}

	verificationCode, err := deps.GenerateCode(deps.CodeLength)
	if err != nil {
		return deps.Errors.Unavailable
	}
	expiresAt := deps.Now().Add(deps.CodeTTL).Unix()

	if err := deps.SavePendingCode(ctx, account.ID, verificationCode, expiresAt); err != nil {
		deps.EmitAudit(ctx, deps.Events.EmailVerificationRequest, false, account.ID, "", err, func() map[string]string {
			return map[string]string{"reason": "code_persist_failed"}
		})
		return deps.Errors.Unavailable
	}

	if err := deps.SendVerificationCode(ctx, account, verificationCode); err != nil {
		deps.Warn("linkauth: verification email send failed for account %s: %v", account.ID, err)
		deps.EmitAudit(ctx, deps.Events.EmailVerificationRequest, false, account.ID, "", err, func() map[string]string {
			return map[string]string{"reason": "email_send_failed"}
		})
		return nil
	}

	deps.MetricInc(deps.Metrics.EmailVerificationRequest)
	deps.EmitAudit(ctx, deps.Events.EmailVerificationRequest, true, account.ID, "", nil, nil)
	return nil
}

// RunConfirmEmailVerification redeems a verification code and stamps the
// account verified. Rejections before a code match share the opaque
// EmailVerificationInvalid error and the randomized failure delay; a matched
// code whose TTL has lapsed fails with the distinct CodeExpired error.
func RunConfirmEmailVerification(ctx context.Context, loginKey, submitted string, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)

	if !deps.Enabled {
		return deps.Errors.EmailVerificationDisabled
	}
	if deps.GetAccountByLoginKey == nil || deps.MarkVerified == nil || deps.IsCodeValidFormat == nil || deps.SleepFailureDelay == nil {
		return deps.Errors.EngineNotReady
	}

	if loginKey == "" || !deps.IsCodeValidFormat(submitted) {
		return rejectEmailVerification(ctx, deps, "", "bad_format")
	}
	submitted = deps.NormalizeCode(submitted)

	account, err := deps.GetAccountByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if deps.IsNotFound(err) {
			return rejectEmailVerification(ctx, deps, "", "account_not_found")
		}
		return rejectEmailVerification(ctx, deps, "", "store_error")
	}

	if account.EmailVerified {
		return rejectEmailVerification(ctx, deps, account.ID, "already_verified")
	}
	if account.PendingCode == "" {
		return rejectEmailVerification(ctx, deps, account.ID, "no_pending_code")
	}
	if !codesEqual(account.PendingCode, submitted) {
		return rejectEmailVerification(ctx, deps, account.ID, "code_mismatch")
	}
	// A matched code proves possession, so expiry may be named.
	if deps.Now().Unix() > account.PendingCodeExpiresAt {
		return rejectEmailVerificationAs(ctx, deps, account.ID, "code_expired", deps.Errors.CodeExpired)
	}

	if err := deps.MarkVerified(ctx, account.ID, submitted); err != nil {
		if deps.IsConsumed(err) {
			return rejectEmailVerification(ctx, deps, account.ID, "code_replayed")
		}
		return deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.EmailVerificationConfirm)
	deps.EmitAudit(ctx, deps.Events.EmailVerificationConfirm, true, account.ID, "", nil, nil)
	return nil
}

func rejectEmailVerification(ctx context.Context, deps EmailVerificationDeps, accountID, reason string) error {
	return rejectEmailVerificationAs(ctx, deps, accountID, reason, deps.Errors.EmailVerificationInvalid)
}

func rejectEmailVerificationAs(ctx context.Context, deps EmailVerificationDeps, accountID, reason string, rejection error) error {
	if err := deps.SleepFailureDelay(ctx); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.EmailVerificationFailure)
	deps.EmitAudit(ctx, deps.Events.EmailVerificationConfirm, false, accountID, "", rejection, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return rejection
}

func normalizeEmailVerificationDeps(deps *EmailVerificationDeps) {
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
