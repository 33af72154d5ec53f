package linkauth

import (
	"context"
	"time"
)

// SecurityReport collects a point-in-time snapshot of the engine's security
// posture: active configuration, Redis health, session population, and
// observability counters. The report never contains credential material.
//
// SecurityReport may return an error when input validation, dependency calls, or security checks fail.
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport(ctx context.Context) (*SecurityReport, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	report := &SecurityReport{
		GeneratedAt: time.Now().UTC(),
		Config: ConfigReport{
			BcryptCost:        e.config.Password.BcryptCost,
			FailureDelayMin:   e.config.Timing.MinFailureDelay,
			FailureDelayMax:   e.config.Timing.MaxFailureDelay,
			CodeTTL:           e.config.TwoFactor.CodeTTL,
			CodeLength:        e.config.TwoFactor.CodeLength,
			AccessTTL:         e.config.JWT.AccessTTL,
			SessionLifetime:   e.config.Session.AbsoluteSessionLifetime,
			SlidingExpiration: e.config.Session.SlidingExpiration,
			PasswordReset:     e.config.PasswordReset.Enabled,
			EmailVerification: e.config.EmailVerification.Enabled,
			AccountCreation:   e.config.Account.Enabled,
			CaptchaRequired:   e.config.Account.RequireCaptcha,
		},
		AuditEnabled:      e.audit != nil,
		AuditDroppedTotal: e.AuditDropped(),
		MetricsEnabled:    e.metrics.Enabled(),
		Metrics:           e.MetricsSnapshot(),
	}

	if e.sessionStore != nil {
		if latency, err := e.sessionStore.Ping(ctx); err == nil {
			report.RedisAvailable = true
			report.RedisLatency = latency
		}
		if count, err := e.sessionStore.SessionCount(ctx); err == nil {
			report.ActiveSessions = count
		}
	}

	return report, nil
}
