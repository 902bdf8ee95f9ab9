// Package repositories implements persistence for the session stores.
//
// Key Implementations:
//   - [CredentialRepository] : durable single-row credential record (sqlite)
//   - [PendingRepository] : single-use authorization request record (sqlite), deleted on first read
//   - [MemoryCredentialStore], [MemoryPendingStore] : in-process equivalents used by tests and ephemeral sessions
//
// Every write replaces the whole record in one statement so an expiry can never be paired with a stale token.
// Expiry instants are stored as epoch seconds.
package repositories
