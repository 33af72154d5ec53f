package linkauth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/linkauth/internal/code"
	"github.com/campuslink/linkauth/internal/flows"
	"github.com/campuslink/linkauth/password"
)

func normalizeLoginKey(loginKey string) string {
	return strings.ToLower(strings.TrimSpace(loginKey))
}

func identityFromRecord(r flows.AccountRecord) Identity {
	return Identity{
		AccountID:        r.ID,
		LoginKey:         r.LoginKey,
		Email:            r.Email,
		Name:             r.Name,
		Role:             r.Role,
		EmailVerified:    r.EmailVerified,
		TwoFactorEnabled: r.TwoFactorEnabled,
	}
}

func recordFromAccount(a Account) flows.AccountRecord {
	rec := flows.AccountRecord{
		ID:               a.ID,
		LoginKey:         a.LoginKey,
		Email:            a.Email,
		Name:             a.Name,
		Role:             a.Role,
		CredentialHash:   a.CredentialHash,
		EmailVerified:    a.EmailVerified(),
		TwoFactorEnabled: a.TwoFactorEnabled,
		PendingCode:      a.PendingCode,
	}
	if !a.PendingCodeExpiresAt.IsZero() {
		rec.PendingCodeExpiresAt = a.PendingCodeExpiresAt.Unix()
	}
	return rec
}

func (e *Engine) getRecordByLoginKey(ctx context.Context, loginKey string) (flows.AccountRecord, error) {
	account, err := e.accounts.GetByLoginKey(ctx, loginKey)
	if err != nil {
		return flows.AccountRecord{}, err
	}
	return recordFromAccount(account), nil
}

func (e *Engine) getRecordByID(ctx context.Context, accountID string) (flows.AccountRecord, error) {
	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return flows.AccountRecord{}, err
	}
	return recordFromAccount(account), nil
}

// savePendingCode overwrites whatever code the account currently holds.
func (e *Engine) savePendingCode(ctx context.Context, accountID, pendingCode string, expiresAt int64) error {
	expiry := time.Unix(expiresAt, 0)
	return e.accounts.UpdateByID(ctx, accountID, AccountPatch{
		PendingCode:          &pendingCode,
		PendingCodeExpiresAt: &expiry,
	})
}

// consumePendingCode clears the pending code only while it still matches;
// the conditional patch is what makes redemption single-use under races.
func (e *Engine) consumePendingCode(ctx context.Context, accountID, pendingCode string) error {
	empty := ""
	var zero time.Time
	return e.accounts.UpdateByID(ctx, accountID, AccountPatch{
		PendingCode:          &empty,
		PendingCodeExpiresAt: &zero,
		IfPendingCode:        &pendingCode,
	})
}

func (e *Engine) clearPendingCode(ctx context.Context, accountID string) error {
	empty := ""
	var zero time.Time
	return e.accounts.UpdateByID(ctx, accountID, AccountPatch{
		PendingCode:          &empty,
		PendingCodeExpiresAt: &zero,
	})
}

func (e *Engine) applyPasswordReset(ctx context.Context, accountID, pendingCode, newHash string) error {
	empty := ""
	var zero time.Time
	return e.accounts.UpdateByID(ctx, accountID, AccountPatch{
		CredentialHash:       &newHash,
		PendingCode:          &empty,
		PendingCodeExpiresAt: &zero,
		IfPendingCode:        &pendingCode,
	})
}

func (e *Engine) markEmailVerified(ctx context.Context, accountID, pendingCode string) error {
	empty := ""
	var zero time.Time
	verifiedAt := time.Now()
	return e.accounts.UpdateByID(ctx, accountID, AccountPatch{
		EmailVerifiedAt:      &verifiedAt,
		PendingCode:          &empty,
		PendingCodeExpiresAt: &zero,
		IfPendingCode:        &pendingCode,
	})
}

func (e *Engine) updateCredentialHash(ctx context.Context, accountID, newHash string) error {
	return e.accounts.UpdateByID(ctx, accountID, AccountPatch{
		CredentialHash: &newHash,
	})
}

func isNotFoundErr(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func isConsumedErr(err error) bool {
	return errors.Is(err, ErrStoreCodeConflict)
}

func isDuplicateErr(err error) bool {
	return errors.Is(err, ErrStoreDuplicateLoginKey)
}

func isMismatchErr(err error) bool {
	return errors.Is(err, password.ErrMismatch)
}

func warnf(format string, args ...any) {
	log.Printf(format, args...)
}

func (e *Engine) validateDeps() flows.ValidateDeps {
	return flows.ValidateDeps{
		TwoFactorTTL: e.config.TwoFactor.CodeTTL,
		CodeLength:   e.config.TwoFactor.CodeLength,

		GetAccountByLoginKey: e.getRecordByLoginKey,
		IsNotFound:           isNotFoundErr,
		ComparePassword:      e.hasher.Compare,
		IsMismatch:           isMismatchErr,
		CompareDummy:         e.hasher.CompareDummy,
		SleepFailureDelay:    e.delay.Sleep,

		GenerateCode:      code.New,
		SaveTwoFactorCode: e.savePendingCode,
		SendTwoFactorCode: e.sendTwoFactorEmail,

		SendLoginNotification: e.sendLoginNotificationEmail,

		Warn: warnf,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,

		Metrics: flows.ValidateMetrics{
			ValidateSuccess: int(MetricLoginSuccess),
			ValidateFailure: int(MetricLoginFailure),
			TwoFactorIssued: int(MetricTwoFactorIssued),
		},
		Events: flows.ValidateEvents{
			LoginSuccess:    auditEventLoginSuccess,
			LoginFailure:    auditEventLoginFailure,
			TwoFactorIssued: auditEventTwoFactorIssued,
		},
		Errors: flows.ValidateErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			EmailDelivery:      ErrEmailDeliveryFailed,
			Unavailable:        ErrBackendUnavailable,
		},
	}
}

func (e *Engine) twoFactorDeps() flows.TwoFactorDeps {
	return flows.TwoFactorDeps{
		GetAccountByLoginKey: e.getRecordByLoginKey,
		IsNotFound:           isNotFoundErr,
		IsCodeValidFormat:    code.IsValidFormat,
		NormalizeCode:        code.Normalize,
		SleepFailureDelay:    e.delay.Sleep,

		ConsumeCode:      e.consumePendingCode,
		IsConsumed:       isConsumedErr,
		ClearPendingCode: e.clearPendingCode,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,

		Metrics: flows.TwoFactorMetrics{
			TwoFactorSuccess: int(MetricTwoFactorSuccess),
			TwoFactorFailure: int(MetricTwoFactorFailure),
		},
		Events: flows.TwoFactorEvents{
			TwoFactorConfirm: auditEventTwoFactorConfirm,
			TwoFactorReplay:  auditEventTwoFactorReplay,
		},
		Errors: flows.TwoFactorErrors{
			EngineNotReady:    ErrEngineNotReady,
			InvalidCode:       ErrTwoFactorInvalid,
			CodeExpired:       ErrCodeExpired,
			AccountUnverified: ErrAccountUnverified,
			Unavailable:       ErrBackendUnavailable,
		},
	}
}

func (e *Engine) passwordResetDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		Enabled:    e.config.PasswordReset.Enabled,
		CodeTTL:    e.config.PasswordReset.CodeTTL,
		CodeLength: e.config.PasswordReset.CodeLength,

		GetAccountByLoginKey: e.getRecordByLoginKey,
		IsNotFound:           isNotFoundErr,
		IsCodeValidFormat:    code.IsValidFormat,
		NormalizeCode:        code.Normalize,
		SleepFailureDelay:    e.delay.Sleep,

		GenerateCode:    code.New,
		SavePendingCode: e.savePendingCode,
		SendResetCode:   e.sendPasswordResetEmail,

		HashPassword:   e.hasher.Hash,
		ApplyReset:     e.applyPasswordReset,
		IsConsumed:     isConsumedErr,
		RevokeSessions: e.sessionStore.DeleteAllForAccount,

		Warn: warnf,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,

		Metrics: flows.PasswordResetMetrics{
			PasswordResetRequest: int(MetricPasswordResetRequest),
			PasswordResetConfirm: int(MetricPasswordResetConfirmSuccess),
			PasswordResetFailure: int(MetricPasswordResetConfirmFailure),
		},
		Events: flows.PasswordResetEvents{
			PasswordResetRequest: auditEventPasswordResetRequest,
			PasswordResetConfirm: auditEventPasswordResetConfirm,
			PasswordResetReplay:  auditEventPasswordResetReplay,
		},
		Errors: flows.PasswordResetErrors{
			EngineNotReady:        ErrEngineNotReady,
			PasswordResetDisabled: ErrPasswordResetDisabled,
			PasswordResetInvalid:  ErrPasswordResetInvalid,
			CodeExpired:           ErrCodeExpired,
			AccountUnverified:     ErrAccountUnverified,
			PasswordPolicy:        ErrPasswordPolicy,
			SessionInvalidation:   ErrSessionInvalidationFailed,
			Unavailable:           ErrBackendUnavailable,
		},
	}
}

func (e *Engine) emailVerificationDeps() flows.EmailVerificationDeps {
	return flows.EmailVerificationDeps{
		Enabled:    e.config.EmailVerification.Enabled,
		CodeTTL:    e.config.EmailVerification.CodeTTL,
		CodeLength: e.config.EmailVerification.CodeLength,

		GetAccountByLoginKey: e.getRecordByLoginKey,
		IsNotFound:           isNotFoundErr,
		IsCodeValidFormat:    code.IsValidFormat,
		NormalizeCode:        code.Normalize,
		SleepFailureDelay:    e.delay.Sleep,

		GenerateCode:         code.New,
		SavePendingCode:      e.savePendingCode,
		SendVerificationCode: e.sendEmailVerificationEmail,

		MarkVerified: e.markEmailVerified,
		IsConsumed:   isConsumedErr,

		Warn: warnf,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,

		Metrics: flows.EmailVerificationMetrics{
			EmailVerificationRequest: int(MetricEmailVerificationRequest),
			EmailVerificationConfirm: int(MetricEmailVerificationSuccess),
			EmailVerificationFailure: int(MetricEmailVerificationFailure),
		},
		Events: flows.EmailVerificationEvents{
			EmailVerificationRequest: auditEventEmailVerificationRequest,
			EmailVerificationConfirm: auditEventEmailVerificationConfirm,
		},
		Errors: flows.EmailVerificationErrors{
			EngineNotReady:            ErrEngineNotReady,
			EmailVerificationDisabled: ErrEmailVerificationDisabled,
			EmailVerificationInvalid:  ErrEmailVerificationInvalid,
			CodeExpired:               ErrCodeExpired,
			Unavailable:               ErrBackendUnavailable,
		},
	}
}

func (e *Engine) accountDeps() flows.AccountDeps {
	deps := flows.AccountDeps{
		RequireCaptcha: e.config.Account.RequireCaptcha,
		DefaultRole:    e.config.Account.DefaultRole,
		CodeTTL:        e.config.EmailVerification.CodeTTL,
		CodeLength:     e.config.EmailVerification.CodeLength,

		NewID: uuid.NewString,

		GetAccountByLoginKey: e.getRecordByLoginKey,
		GetAccountByID:       e.getRecordByID,
		CreateAccount: func(ctx context.Context, rec flows.AccountRecord) error {
			return e.accounts.Create(ctx, Account{
				ID:             rec.ID,
				LoginKey:       rec.LoginKey,
				Email:          rec.Email,
				Name:           rec.Name,
				Role:           rec.Role,
				CredentialHash: rec.CredentialHash,
			})
		},
		IsNotFound:  isNotFoundErr,
		IsDuplicate: isDuplicateErr,

		HashPassword:      e.hasher.Hash,
		ComparePassword:   e.hasher.Compare,
		IsMismatch:        isMismatchErr,
		SleepFailureDelay: e.delay.Sleep,

		UpdateCredentialHash: e.updateCredentialHash,
		RevokeSessions:       e.sessionStore.DeleteAllForAccount,

		Warn: warnf,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,

		Metrics: flows.AccountMetrics{
			AccountCreated:         int(MetricAccountCreationSuccess),
			AccountCreationFailure: int(MetricAccountCreationDuplicate),
			PasswordChangeSuccess:  int(MetricPasswordChangeSuccess),
			PasswordChangeFailure:  int(MetricPasswordChangeInvalidOld),
		},
		Events: flows.AccountEvents{
			AccountCreation: auditEventAccountCreation,
			PasswordChange:  auditEventPasswordChange,
		},
		Errors: flows.AccountErrors{
			EngineNotReady:      ErrEngineNotReady,
			InvalidInput:        ErrAccountCreationInvalid,
			CaptchaFailed:       ErrCaptchaFailed,
			DuplicateAccount:    ErrAccountExists,
			PasswordPolicy:      ErrPasswordPolicy,
			PasswordReuse:       ErrPasswordReuse,
			InvalidCredentials:  ErrInvalidCredentials,
			AccountNotFound:     ErrAccountNotFound,
			SessionInvalidation: ErrSessionInvalidationFailed,
			Unavailable:         ErrBackendUnavailable,
		},
	}

	// Registration mails a verification code only when the flow is on.
	if e.config.EmailVerification.Enabled {
		deps.GenerateCode = code.New
		deps.SavePendingCode = e.savePendingCode
		deps.SendVerificationCode = e.sendEmailVerificationEmail
	}
	if e.captcha != nil {
		deps.VerifyCaptcha = func(ctx context.Context, token string) error {
			return e.captcha.Verify(ctx, token, clientIPFromContext(ctx))
		}
	}
	return deps
}
