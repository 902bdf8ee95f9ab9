// Package services implements the HTTP clients for the Spotify Web API.
//
// # Gateway
//
// [Gateway] is the only path protected catalog calls take. It reads the live credential from a
// [CredentialSource] (the session manager), attaches it as a bearer token and applies the recovery policy:
//
//   - no credential: [shared.ErrNotAuthenticated], no network access
//   - expired credential: refresh before dispatch
//   - 401: one shared refresh, one retry, then [shared.ErrAuthenticationRequired]
//
// Outbound calls are paced with a [rate.Limiter].
//
// # Catalog
//
// [Catalog] maps Spotify JSON onto [models.Track] and [models.Profile]. [ProfileClient] fetches /me for an
// explicit token and is used by the session manager before a credential is trusted.
package services
