// Package session implements the authentication session lifecycle for the catalog service.
//
// A [Manager] performs the PKCE authorization code flow, persists the resulting credential, refreshes it
// before and after expiry, and exposes the derived [Snapshot] that guards and views render from.
//
// # States
//
//	Authenticating   -> hydrating, exchanging a code, or refreshing a stored credential
//	Authenticated    -> credential and profile present
//	Unauthenticated  -> no credential (Reason set after a rejected refresh)
//	Error            -> last operation failed, Reason says why
//
// # Refresh
//
// Every refresh goes through one [golang.org/x/sync/singleflight] key, so a proactive timer and any number of
// rejected requests share a single token endpoint call. The timer is armed on every entry into
// Authenticated at [Config.RefreshFraction] of the remaining lifetime and stopped by [Manager.Logout] and
// [Manager.Close].
package session
