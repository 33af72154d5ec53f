package linkauth

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/campuslink/linkauth/internal/flows"
)

// Outgoing messages carry the live code and nothing else secret. Bodies are
// handed straight to the Mailer and never logged or audited.

func (e *Engine) sendTwoFactorEmail(ctx context.Context, account flows.AccountRecord, pendingCode string) error {
	if e.mailer == nil {
		return ErrEmailDeliveryFailed
	}
	subject := fmt.Sprintf("%s login code", e.config.Email.AppName)
	body := codeEmailBody(
		e.config.Email.AppName,
		account.Name,
		"Use this code to finish signing in:",
		pendingCode,
		e.config.TwoFactor.CodeTTL,
		"If you did not try to sign in, change your password now.",
	)
	return e.mailer.Send(ctx, account.Email, subject, body)
}

func (e *Engine) sendPasswordResetEmail(ctx context.Context, account flows.AccountRecord, pendingCode string) error {
	if e.mailer == nil {
		return ErrEmailDeliveryFailed
	}
	subject := fmt.Sprintf("%s password reset code", e.config.Email.AppName)
	body := codeEmailBody(
		e.config.Email.AppName,
		account.Name,
		"Use this code to reset your password:",
		pendingCode,
		e.config.PasswordReset.CodeTTL,
		"If you did not request a reset, you can ignore this email.",
	)
	return e.mailer.Send(ctx, account.Email, subject, body)
}

func (e *Engine) sendEmailVerificationEmail(ctx context.Context, account flows.AccountRecord, pendingCode string) error {
	if e.mailer == nil {
		return ErrEmailDeliveryFailed
	}
	subject := fmt.Sprintf("Verify your %s email", e.config.Email.AppName)
	body := codeEmailBody(
		e.config.Email.AppName,
		account.Name,
		"Use this code to verify your email address:",
		pendingCode,
		e.config.EmailVerification.CodeTTL,
		"If you did not create this account, you can ignore this email.",
	)
	return e.mailer.Send(ctx, account.Email, subject, body)
}

// sendLoginNotificationEmail tells the account holder about a completed
// sign-in. No code travels in this message.
func (e *Engine) sendLoginNotificationEmail(ctx context.Context, account flows.AccountRecord) error {
	if e.mailer == nil {
		return ErrEmailDeliveryFailed
	}
	appName := e.config.Email.AppName
	subject := fmt.Sprintf("New sign-in to your %s account", appName)
	greeting := "Hi,"
	if account.Name != "" {
		greeting = fmt.Sprintf("Hi %s,", html.EscapeString(account.Name))
	}
	body := fmt.Sprintf(
		`<p>%s</p>
<p>Someone just signed in to your %s account. If this was you, no action is needed.</p>
<p>If you do not recognize this sign-in, change your password now.</p>
<p>— %s</p>`,
		greeting,
		html.EscapeString(appName),
		html.EscapeString(appName),
	)
	return e.mailer.Send(ctx, account.Email, subject, body)
}

func codeEmailBody(appName, name, lead, pendingCode string, ttl time.Duration, footer string) string {
	greeting := "Hi,"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s,", html.EscapeString(name))
	}
	return fmt.Sprintf(
		`<p>%s</p>
<p>%s</p>
<p style="font-size:1.6em;letter-spacing:0.3em;font-family:monospace"><strong>%s</strong></p>
<p>The code expires in %d minutes and can be used once.</p>
<p>%s</p>
<p>— %s</p>`,
		greeting,
		html.EscapeString(lead),
		html.EscapeString(pendingCode),
		int(ttl.Minutes()),
		html.EscapeString(footer),
		html.EscapeString(appName),
	)
}
