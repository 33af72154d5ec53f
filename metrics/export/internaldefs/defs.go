package internaldefs

import (
	linkauth "github.com/campuslink/linkauth"
)

// CounterDef ties an engine metric ID to its exposition name and help text.
type CounterDef struct {
	ID   linkauth.MetricID
	Name string
	Help string
}

// HistogramDef ties an engine histogram ID to its exposition name and help text.
type HistogramDef struct {
	ID   linkauth.MetricID
	Name string
	Help string
}

// CounterDefs enumerates every engine counter with its exposition name.
// Exporters iterate this slice so Prometheus and OTel stay in lockstep.
var CounterDefs = []CounterDef{
	{ID: linkauth.MetricLoginSuccess, Name: "linkauth_login_success_total", Help: "Successful login attempts."},
	{ID: linkauth.MetricLoginFailure, Name: "linkauth_login_failure_total", Help: "Failed login attempts."},
	{ID: linkauth.MetricTwoFactorIssued, Name: "linkauth_two_factor_issued_total", Help: "Two-factor login codes issued."},
	{ID: linkauth.MetricTwoFactorSuccess, Name: "linkauth_two_factor_success_total", Help: "Successful two-factor confirmations."},
	{ID: linkauth.MetricTwoFactorFailure, Name: "linkauth_two_factor_failure_total", Help: "Failed two-factor confirmations."},
	{ID: linkauth.MetricTwoFactorReplay, Name: "linkauth_two_factor_replay_total", Help: "Two-factor codes rejected as already used."},
	{ID: linkauth.MetricPasswordResetRequest, Name: "linkauth_password_reset_request_total", Help: "Password reset requests."},
	{ID: linkauth.MetricPasswordResetConfirmSuccess, Name: "linkauth_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: linkauth.MetricPasswordResetConfirmFailure, Name: "linkauth_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: linkauth.MetricPasswordResetReplay, Name: "linkauth_password_reset_replay_total", Help: "Password reset codes rejected as already used."},
	{ID: linkauth.MetricEmailVerificationRequest, Name: "linkauth_email_verification_request_total", Help: "Email verification requests."},
	{ID: linkauth.MetricEmailVerificationSuccess, Name: "linkauth_email_verification_success_total", Help: "Successful email verifications."},
	{ID: linkauth.MetricEmailVerificationFailure, Name: "linkauth_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: linkauth.MetricAccountCreationSuccess, Name: "linkauth_account_creation_success_total", Help: "Successful account creations."},
	{ID: linkauth.MetricAccountCreationDuplicate, Name: "linkauth_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: linkauth.MetricPasswordChangeSuccess, Name: "linkauth_password_change_success_total", Help: "Successful password changes."},
	{ID: linkauth.MetricPasswordChangeInvalidOld, Name: "linkauth_password_change_invalid_old_total", Help: "Password change attempts with invalid old password."},
	{ID: linkauth.MetricPasswordChangeReuseRejected, Name: "linkauth_password_change_reuse_rejected_total", Help: "Password change attempts rejected for reuse."},
	{ID: linkauth.MetricEmailDeliveryFailure, Name: "linkauth_email_delivery_failure_total", Help: "Failed verification email deliveries."},
	{ID: linkauth.MetricSessionCreated, Name: "linkauth_session_created_total", Help: "Created sessions."},
	{ID: linkauth.MetricSessionInvalidated, Name: "linkauth_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: linkauth.MetricLogout, Name: "linkauth_logout_total", Help: "Single-session logout operations."},
	{ID: linkauth.MetricLogoutAll, Name: "linkauth_logout_all_total", Help: "Logout-all operations."},
}

// HistogramDefs enumerates the engine's latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: linkauth.MetricValidateLatency, Name: "linkauth_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's latency
// buckets. They mirror the thresholds the engine records against, sized for
// a bcrypt comparison plus the 100-200ms rejection delay.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.2",
	"0.3",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix holds the bounds rewritten for metric-name use, for
// backends that cannot carry an le label.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_2",
	"0_3",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count so exporters never index past it.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the running totals the
// Prometheus histogram format expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
