package linkauth

import (
	"context"
	"errors"
	"time"

	"github.com/campuslink/linkauth/internal/flows"
	"github.com/campuslink/linkauth/internal/timing"
	"github.com/campuslink/linkauth/jwt"
	"github.com/campuslink/linkauth/password"
	"github.com/campuslink/linkauth/session"
	"github.com/redis/go-redis/v9"
)

// Engine defines a public type used by linkauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	accounts     AccountStore
	mailer       Mailer
	captcha      CaptchaVerifier
	sessionStore *session.Store
	jwtManager   *jwt.Manager
	hasher       *password.Hasher
	delay        *timing.Normalizer
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateUser checks a loginKey/password pair without establishing a
// session. On success the scrubbed identity is returned; when the account
// has two-factor login enabled a code has been emailed and twoFactorRequired
// is set, otherwise a best-effort new-login notification is mailed to the
// account holder. All rejections collapse into ErrInvalidCredentials after
// the same amount of hashing work and a randomized delay, so a caller cannot
// tell an unknown account from a wrong password or an unverified email.
func (e *Engine) ValidateUser(ctx context.Context, loginKey, password string) (*Identity, bool, error) {
	if e == nil || e.accounts == nil {
		return nil, false, ErrEngineNotReady
	}

	result, err := flows.RunValidateUser(ctx, normalizeLoginKey(loginKey), password, e.validateDeps())
	if err != nil {
		return nil, false, err
	}

	identity := identityFromRecord(result.Account)
	return &identity, result.TwoFactorRequired, nil
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, loginKey, password string) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunValidateUser(ctx, normalizeLoginKey(loginKey), password, e.validateDeps())
	if err != nil {
		return nil, err
	}
	if result.TwoFactorRequired {
		return nil, ErrTwoFactorRequired
	}

	return e.issueSession(ctx, result.Account)
}

func (e *Engine) issueSession(ctx context.Context, account flows.AccountRecord) (*LoginResult, error) {
	sessionID, err := session.NewID()
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, "", ErrSessionCreationFailed, func() map[string]string {
			return map[string]string{"reason": "session_id_generation"}
		})
		return nil, ErrSessionCreationFailed
	}

	now := time.Now()
	lifetime := e.config.Session.AbsoluteSessionLifetime
	sess := &session.Session{
		SessionID: sessionID,
		AccountID: account.ID,
		LoginKey:  account.LoginKey,
		Role:      account.Role,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
	}

	if err := e.sessionStore.Save(ctx, sess, lifetime); err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, sessionID, err, func() map[string]string {
			return map[string]string{"reason": "session_save_failed"}
		})
		return nil, ErrSessionCreationFailed
	}

	access, err := e.jwtManager.CreateAccess(account.ID, sessionID, account.Role)
	if err != nil {
		_ = e.sessionStore.Delete(ctx, sessionID)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, sessionID, err, func() map[string]string {
			return map[string]string{"reason": "issue_access_failed"}
		})
		return nil, ErrSessionCreationFailed
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, sessionID, nil, nil)

	return &LoginResult{
		Identity:    identityFromRecord(account),
		SessionID:   sessionID,
		AccessToken: access,
		ExpiresAt:   time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}

	// Fail closed: a token without a live backing session is worthless,
	// and so is one we cannot check.
	sess, err := e.sessionStore.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, ErrUnauthorized
		}
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrSessionNotFound
	}
	if sess.AccountID != claims.UID {
		return nil, ErrSessionNotFound
	}

	return &AuthResult{
		AccountID: sess.AccountID,
		LoginKey:  sess.LoginKey,
		Role:      sess.Role,
		SessionID: sess.SessionID,
	}, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	err := e.sessionStore.Delete(ctx, sessionID)
	if err == nil {
		e.metricInc(MetricLogout)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutSession, err == nil, "", sessionID, err, nil)
	return err
}

// LogoutByAccessToken describes the logoutbyaccesstoken operation and its observable behavior.
//
// LogoutByAccessToken may return an error when input validation, dependency calls, or security checks fail.
// LogoutByAccessToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutByAccessToken(ctx context.Context, tokenStr string) error {
	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "invalid_access_token"}
		})
		return ErrTokenInvalid
	}
	return e.Logout(ctx, claims.SID)
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) error {
	err := e.sessionStore.DeleteAllForAccount(ctx, accountID)
	if err == nil {
		e.metricInc(MetricLogoutAll)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutAll, err == nil, accountID, "", err, nil)
	return err
}

// InvalidateAccountSessions describes the invalidateaccountsessions operation and its observable behavior.
//
// InvalidateAccountSessions may return an error when input validation, dependency calls, or security checks fail.
// InvalidateAccountSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) InvalidateAccountSessions(ctx context.Context, accountID string) error {
	return e.LogoutAll(ctx, accountID)
}
