// Package models defines the session data types and persistence interfaces for moodmix.
//
// The package contains two categories of types:
//
// 1. Session records, owned by the session manager:
//   - [Credential] : access token, optional refresh token and absolute expiry
//   - [PendingAuthorization] : single-use PKCE verifier and anti-CSRF state for one login attempt
//   - [Profile] : the authenticated catalog user, held in memory only
//
// 2. Catalog data returned to callers of the request gateway:
//   - [Track] : a recommended or searched track
//   - [Recommendations] : the tracks returned for one mood
//
// [CredentialStore] and [PendingStore] define the storage contracts. Writes replace whole records;
// stores never derive or adjust the expiry they are given.
package models
