package linkauth

import (
	"errors"
	"time"
)

// Config defines a public type used by linkauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT               JWTConfig
	Session           SessionConfig
	Password          PasswordConfig
	Timing            TimingConfig
	TwoFactor         TwoFactorConfig
	PasswordReset     PasswordResetConfig
	EmailVerification EmailVerificationConfig
	Account           AccountConfig
	Email             EmailConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by linkauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by linkauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix             string
	SlidingExpiration       bool
	AbsoluteSessionLifetime time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by linkauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	BcryptCost int
}

// TimingConfig bounds the randomized delay applied to every credential
// rejection. The band must be wide enough to mask the variance between
// rejection paths, and identical for all of them.
//
// TimingConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TimingConfig struct {
	MinFailureDelay time.Duration
	MaxFailureDelay time.Duration
}

/*
====================================
VERIFICATION CODE CONFIG
====================================
*/

// TwoFactorConfig defines a public type used by linkauth APIs.
//
// TwoFactorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TwoFactorConfig struct {
	CodeTTL    time.Duration
	CodeLength int
}

// PasswordResetConfig defines a public type used by linkauth APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	Enabled    bool
	CodeTTL    time.Duration
	CodeLength int
}

// EmailVerificationConfig defines a public type used by linkauth APIs.
//
// EmailVerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EmailVerificationConfig struct {
	Enabled    bool
	CodeTTL    time.Duration
	CodeLength int
}

// AccountConfig defines a public type used by linkauth APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	Enabled        bool
	DefaultRole    string
	RequireCaptcha bool
}

// EmailConfig defines a public type used by linkauth APIs.
//
// EmailConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EmailConfig struct {
	From    string
	AppName string
}

// AuditConfig defines a public type used by linkauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by linkauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Callers adjust the
// fields they care about and hand the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:             "la",
			SlidingExpiration:       true,
			AbsoluteSessionLifetime: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			BcryptCost: 12,
		},
		Timing: TimingConfig{
			MinFailureDelay: 100 * time.Millisecond,
			MaxFailureDelay: 200 * time.Millisecond,
		},
		TwoFactor: TwoFactorConfig{
			CodeTTL:    10 * time.Minute,
			CodeLength: 6,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:    false,
			CodeTTL:    10 * time.Minute,
			CodeLength: 6,
		},
		EmailVerification: EmailVerificationConfig{
			Enabled:    false,
			CodeTTL:    10 * time.Minute,
			CodeLength: 6,
		},
		Account: AccountConfig{
			Enabled:        true,
			DefaultRole:    "student",
			RequireCaptcha: false,
		},
		Email: EmailConfig{
			From:    "",
			AppName: "CampusLink",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}

	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}

	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 requires PrivateKey of at least 256 bits")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Session
	if c.Session.AbsoluteSessionLifetime <= 0 {
		return errors.New("Session AbsoluteSessionLifetime must be > 0")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix is required")
	}

	// Password
	if c.Password.BcryptCost < 10 {
		return errors.New("Password BcryptCost must be >= 10")
	}
	if c.Password.BcryptCost > 31 {
		return errors.New("Password BcryptCost must be <= 31")
	}

	// Timing
	if c.Timing.MinFailureDelay <= 0 {
		return errors.New("Timing MinFailureDelay must be > 0")
	}
	if c.Timing.MaxFailureDelay < c.Timing.MinFailureDelay {
		return errors.New("Timing MaxFailureDelay must be >= MinFailureDelay")
	}

	// Two Factor
	if c.TwoFactor.CodeTTL <= 0 {
		return errors.New("TwoFactor CodeTTL must be > 0")
	}
	if c.TwoFactor.CodeTTL > 15*time.Minute {
		return errors.New("TwoFactor CodeTTL must be <= 15m")
	}
	if c.TwoFactor.CodeLength < 4 || c.TwoFactor.CodeLength > 16 {
		return errors.New("TwoFactor CodeLength must be between 4 and 16")
	}

	// Password Reset
	if c.PasswordReset.Enabled {
		if c.PasswordReset.CodeTTL <= 0 {
			return errors.New("PasswordReset CodeTTL must be > 0")
		}
		if c.PasswordReset.CodeTTL > 15*time.Minute {
			return errors.New("PasswordReset CodeTTL must be <= 15m")
		}
		if c.PasswordReset.CodeLength < 4 || c.PasswordReset.CodeLength > 16 {
			return errors.New("PasswordReset CodeLength must be between 4 and 16")
		}
	}

	// Email Verification
	if c.EmailVerification.Enabled {
		if c.EmailVerification.CodeTTL <= 0 {
			return errors.New("EmailVerification CodeTTL must be > 0")
		}
		if c.EmailVerification.CodeTTL > 15*time.Minute {
			return errors.New("EmailVerification CodeTTL must be <= 15m")
		}
		if c.EmailVerification.CodeLength < 4 || c.EmailVerification.CodeLength > 16 {
			return errors.New("EmailVerification CodeLength must be between 4 and 16")
		}
	}

	// Account Creation
	if c.Account.Enabled {
		if c.Account.DefaultRole == "" {
			return errors.New("Account DefaultRole is required when account creation is enabled")
		}
	}

	// Email
	if c.PasswordReset.Enabled || c.EmailVerification.Enabled {
		if c.Email.From == "" {
			return errors.New("Email From is required when code delivery flows are enabled")
		}
	}
	if c.Email.AppName == "" {
		return errors.New("Email AppName is required")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
