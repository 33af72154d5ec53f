// Package linkauth provides the credential-authentication layer for the
// CampusLink URL shortener: bcrypt credential validation with constant-work
// failure handling, time-boxed single-use verification codes for two-factor
// login, password reset, and email verification, JWT access tokens, and
// Redis-backed sessions.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// linkauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Identity, LoginResult, MetricsSnapshot, etc.). All
// internal coordination — flow orchestration, code generation, timing
// normalization, audit dispatch — lives under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Return, log, or audit credential hashes, plaintext passwords, or live
//     verification codes. Codes travel in email bodies only.
//   - Distinguish rejection causes to callers who have not proved anything.
//     Credential failures collapse into ErrInvalidCredentials, and code
//     redemption failures collapse into the flow's single invalid-code error
//     until the submitted code matches the stored one. Only then are
//     ErrCodeExpired and ErrAccountUnverified reported distinctly.
//   - Expose Redis clients, the account store, or encoding details in its
//     public API.
//
// # Timing contract
//
// Every credential rejection performs exactly one bcrypt comparison (real or
// throwaway) and one randomized delay drawn from the configured band, so an
// observer cannot separate unknown accounts from wrong passwords. Validate is
// the hot path and performs one Redis round-trip per call.
package linkauth
