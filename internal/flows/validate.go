package flows

import (
	"context"
	"errors"
	"time"
)

// validateOutcome tags why a credential check failed before the reason is
// collapsed into the single opaque rejection returned to callers. The tag
// reaches audit metadata and metrics only.
type validateOutcome string

const (
	outcomeMissingInput    validateOutcome = "missing_credentials"
	outcomeAccountNotFound validateOutcome = "account_not_found"
	outcomeNoHash          validateOutcome = "missing_credential_hash"
	outcomeBadHash         validateOutcome = "credential_hash_malformed"
	outcomeMismatch        validateOutcome = "password_mismatch"
	outcomeUnverified      validateOutcome = "email_unverified"
	outcomeStoreError      validateOutcome = "store_error"
)

type ValidateMetrics struct {
	ValidateSuccess int
	ValidateFailure int
	TwoFactorIssued int
}

type ValidateEvents struct {
	LoginSuccess    string
	LoginFailure    string
	TwoFactorIssued string
}

type ValidateErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	EmailDelivery      error
	Unavailable        error
}

type ValidateDeps struct {
	TwoFactorTTL time.Duration
	CodeLength   int

	Now func() time.Time

	GetAccountByLoginKey func(context.Context, string) (AccountRecord, error)
	IsNotFound           func(error) bool
	ComparePassword      func(hash, password string) error
	IsMismatch           func(error) bool
	CompareDummy         func(password string)
	SleepFailureDelay    func(context.Context) error

	GenerateCode      func(int) (string, error)
	SaveTwoFactorCode func(ctx context.Context, accountID, code string, expiresAt int64) error
	SendTwoFactorCode func(ctx context.Context, account AccountRecord, code string) error

	// SendLoginNotification tells the account holder about a completed
	// non-2FA login. Best effort: a send failure is logged and never
	// blocks the authenticated result.
	SendLoginNotification func(ctx context.Context, account AccountRecord) error

	Warn func(format string, args ...any)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics ValidateMetrics
	Events  ValidateEvents
	Errors  ValidateErrors
}

// ValidateResult is returned on a successful credential check. When
// TwoFactorRequired is set the caller holds no session yet: a code has been
// issued and must be confirmed before login completes.
type ValidateResult struct {
	Account           AccountRecord
	TwoFactorRequired bool
}

// RunValidateUser checks a loginKey/password pair against the account store.
//
// Every rejection follows the same discipline: exactly one bcrypt comparison
// (against the stored hash or a fresh throwaway hash) plus one randomized
// delay, and the caller receives the single opaque InvalidCredentials error
// regardless of whether the account exists, the password was wrong, or the
// email is unverified. The true reason is recorded in audit metadata only.
//
// A success without two-factor also sends a single best-effort new-login
// notification email to the account holder.
func RunValidateUser(ctx context.Context, loginKey, password string, deps ValidateDeps) (*ValidateResult, error) {
	normalizeValidateDeps(&deps)

	if deps.GetAccountByLoginKey == nil || deps.ComparePassword == nil || deps.CompareDummy == nil || deps.SleepFailureDelay == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if loginKey == "" || password == "" {
		return nil, rejectValidate(ctx, deps, "", outcomeMissingInput, true, password)
	}

	account, err := deps.GetAccountByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if deps.IsNotFound(err) {
			return nil, rejectValidate(ctx, deps, "", outcomeAccountNotFound, true, password)
		}
		// Store failures burn the same work and return the same opaque
		// rejection; anything else would hand probes an infrastructure
		// oracle. The underlying error goes to audit.
		deps.CompareDummy(password)
		if sleepErr := deps.SleepFailureDelay(ctx); sleepErr != nil {
			return nil, sleepErr
		}
		deps.MetricInc(deps.Metrics.ValidateFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"reason": string(outcomeStoreError)}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	if account.CredentialHash == "" {
		return nil, rejectValidate(ctx, deps, account.ID, outcomeNoHash, true, password)
	}

	// Always compare before looking at account state so verified and
	// unverified accounts cost the same.
	if cmpErr := deps.ComparePassword(account.CredentialHash, password); cmpErr != nil {
		outcome := outcomeBadHash
		if deps.IsMismatch(cmpErr) {
			outcome = outcomeMismatch
		}
		return nil, rejectValidate(ctx, deps, account.ID, outcome, false, password)
	}

	if !account.EmailVerified {
		return nil, rejectValidate(ctx, deps, account.ID, outcomeUnverified, false, password)
	}

	if account.TwoFactorEnabled {
		return validateIssueTwoFactor(ctx, account, deps)
	}

	deps.MetricInc(deps.Metrics.ValidateSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, account.ID, "", nil, nil)

	if deps.SendLoginNotification != nil {
		if sendErr := deps.SendLoginNotification(ctx, account); sendErr != nil {
			deps.Warn("linkauth: login notification email failed for account %s: %v", account.ID, sendErr)
		}
	}
	return &ValidateResult{Account: account}, nil
}

// rejectValidate applies the constant-work failure path. When burnHash is
// set the stored hash was never compared, so a throwaway comparison keeps
// the cost flat.
func rejectValidate(ctx context.Context, deps ValidateDeps, accountID string, outcome validateOutcome, burnHash bool, password string) error {
	if burnHash {
		deps.CompareDummy(password)
	}
	if err := deps.SleepFailureDelay(ctx); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.ValidateFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, accountID, "", deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"reason": string(outcome)}
	})
	return deps.Errors.InvalidCredentials
}

func validateIssueTwoFactor(ctx context.Context, account AccountRecord, deps ValidateDeps) (*ValidateResult, error) {
	if deps.GenerateCode == nil || deps.SaveTwoFactorCode == nil || deps.SendTwoFactorCode == nil {
		return nil, deps.Errors.EngineNotReady
	}

	twoFactorCode, err := deps.GenerateCode(deps.CodeLength)
	if err != nil {
		return nil, deps.Errors.Unavailable
	}
	expiresAt := deps.Now().Add(deps.TwoFactorTTL).Unix()

	// Persist before sending: a second login attempt simply overwrites
	// this code, so a lost email never strands the account.
	if err := deps.SaveTwoFactorCode(ctx, account.ID, twoFactorCode, expiresAt); err != nil {
		deps.EmitAudit(ctx, deps.Events.TwoFactorIssued, false, account.ID, "", err, func() map[string]string {
			return map[string]string{"reason": "code_persist_failed"}
		})
		return nil, deps.Errors.Unavailable
	}

	if err := deps.SendTwoFactorCode(ctx, account, twoFactorCode); err != nil {
		deps.EmitAudit(ctx, deps.Events.TwoFactorIssued, false, account.ID, "", deps.Errors.EmailDelivery, func() map[string]string {
			return map[string]string{"reason": "email_send_failed"}
		})
		return nil, deps.Errors.EmailDelivery
	}

	deps.MetricInc(deps.Metrics.TwoFactorIssued)
	deps.EmitAudit(ctx, deps.Events.TwoFactorIssued, true, account.ID, "", nil, nil)
	return &ValidateResult{Account: account, TwoFactorRequired: true}, nil
}

func normalizeValidateDeps(deps *ValidateDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
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
