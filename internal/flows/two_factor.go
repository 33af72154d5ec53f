package flows

import (
	"context"
	"errors"
	"time"
)

type TwoFactorMetrics struct {
	TwoFactorSuccess int
	TwoFactorFailure int
}

type TwoFactorEvents struct {
	TwoFactorConfirm string
	TwoFactorReplay  string
}

type TwoFactorErrors struct {
	EngineNotReady    error
	InvalidCode       error
	CodeExpired       error
	AccountUnverified error
	Unavailable       error
}

type TwoFactorDeps struct {
	Now func() time.Time

	GetAccountByLoginKey func(context.Context, string) (AccountRecord, error)
	IsNotFound           func(error) bool
	IsCodeValidFormat    func(string) bool
	NormalizeCode        func(string) string
	SleepFailureDelay    func(context.Context) error

	// ConsumeCode atomically clears the account's pending code, failing
	// with a conflict when the stored code no longer matches.
	ConsumeCode      func(ctx context.Context, accountID, code string) error
	IsConsumed       func(error) bool
	ClearPendingCode func(ctx context.Context, accountID string) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics TwoFactorMetrics
	Events  TwoFactorEvents
	Errors  TwoFactorErrors
}

// RunConfirmTwoFactor redeems a two-factor login code issued by
// RunValidateUser. Codes are single-use: the winning confirmation clears the
// pending code atomically, and a concurrent duplicate fails as a replay.
// Rejections where the caller has not proved code possession (unknown
// account, no pending code, mismatch, replay) take the randomized failure
// delay and return the same opaque InvalidCode error. Once the submitted
// code matches the stored one, an unverified email or a lapsed TTL fails
// with the distinct AccountUnverified or CodeExpired error instead.
func RunConfirmTwoFactor(ctx context.Context, loginKey, submitted string, deps TwoFactorDeps) (*AccountRecord, error) {
	normalizeTwoFactorDeps(&deps)

	if deps.GetAccountByLoginKey == nil || deps.ConsumeCode == nil || deps.IsCodeValidFormat == nil || deps.SleepFailureDelay == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if loginKey == "" || !deps.IsCodeValidFormat(submitted) {
		return nil, rejectTwoFactor(ctx, deps, "", "bad_format")
	}
	submitted = deps.NormalizeCode(submitted)

	account, err := deps.GetAccountByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if deps.IsNotFound(err) {
			return nil, rejectTwoFactor(ctx, deps, "", "account_not_found")
		}
		return nil, rejectTwoFactor(ctx, deps, "", "store_error")
	}

	if account.PendingCode == "" {
		return nil, rejectTwoFactor(ctx, deps, account.ID, "no_pending_code")
	}

	if !codesEqual(account.PendingCode, submitted) {
		return nil, rejectTwoFactor(ctx, deps, account.ID, "code_mismatch")
	}

	// The caller proved possession of the real code, so the remaining
	// rejections may name their cause.
	if !account.EmailVerified {
		return nil, rejectTwoFactorAs(ctx, deps, account.ID, "email_unverified", deps.Errors.AccountUnverified)
	}

	// Expiry is checked lazily, at redemption time. The stale code is
	// cleared so it never lingers on the record.
	if deps.Now().Unix() > account.PendingCodeExpiresAt {
		if clearErr := deps.ClearPendingCode(ctx, account.ID); clearErr != nil {
			deps.EmitAudit(ctx, deps.Events.TwoFactorConfirm, false, account.ID, "", clearErr, func() map[string]string {
				return map[string]string{"reason": "expired_code_clear_failed"}
			})
		}
		return nil, rejectTwoFactorAs(ctx, deps, account.ID, "code_expired", deps.Errors.CodeExpired)
	}

	if err := deps.ConsumeCode(ctx, account.ID, submitted); err != nil {
		if deps.IsConsumed(err) {
			deps.MetricInc(deps.Metrics.TwoFactorFailure)
			deps.EmitAudit(ctx, deps.Events.TwoFactorReplay, false, account.ID, "", deps.Errors.InvalidCode, nil)
			if sleepErr := deps.SleepFailureDelay(ctx); sleepErr != nil {
				return nil, sleepErr
			}
			return nil, deps.Errors.InvalidCode
		}
		return nil, deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.TwoFactorSuccess)
	deps.EmitAudit(ctx, deps.Events.TwoFactorConfirm, true, account.ID, "", nil, nil)
	return &account, nil
}

func rejectTwoFactor(ctx context.Context, deps TwoFactorDeps, accountID, reason string) error {
	return rejectTwoFactorAs(ctx, deps, accountID, reason, deps.Errors.InvalidCode)
}

func rejectTwoFactorAs(ctx context.Context, deps TwoFactorDeps, accountID, reason string, rejection error) error {
	if err := deps.SleepFailureDelay(ctx); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.TwoFactorFailure)
	deps.EmitAudit(ctx, deps.Events.TwoFactorConfirm, false, accountID, "", rejection, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return rejection
}

func normalizeTwoFactorDeps(deps *TwoFactorDeps) {
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
	if deps.ClearPendingCode == nil {
		deps.ClearPendingCode = func(context.Context, string) error { return nil }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
