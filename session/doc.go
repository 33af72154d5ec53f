// Package session implements the Redis-backed session store.
//
// Sessions are encoded in a compact versioned binary format and stored under
// a configurable key prefix, with a per-account index set for bulk revocation
// and a global counter for reporting. Expiration is enforced twice: by Redis
// TTL and by an absolute expiry stamp inside the blob, so a sliding window
// can never extend a session past its configured lifetime.
//
// # What this package must NOT do
//
//   - Validate credentials or tokens — that is the Engine's job.
//   - Import any other linkauth package.
package session
