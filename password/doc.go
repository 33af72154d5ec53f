// Package password implements credential hashing and verification with bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt strings ($2a$/$2b$ prefix) carrying their own
// cost and salt, so verification needs no stored parameters.
//
// # Timing discipline
//
// [Hasher.CompareDummy] exists so callers can keep the cost of a rejected
// login constant whether or not an account (or its hash) exists: it runs a
// full hash-and-compare cycle against a throwaway hash generated fresh on
// every call. Callers must never cache the dummy hash.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// reuse history) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other linkauth package.
//   - Log plaintext passwords or computed hashes at runtime.
package password
