// Package middleware exposes HTTP middleware adapters for session-backed
// authorization enforcement built on top of linkauth.Engine validation.
//
// # Guards
//
//   - [Guard] — JWT + session store verification for every request.
//   - [RequireRole] — Guard plus an allow-list check on the validated role.
//
// Each guard reads the Authorization header, calls Engine.Validate, and injects
// the validated result into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to Engine.Validate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Validate and
//     the role allow-list handed to [RequireRole].
package middleware
