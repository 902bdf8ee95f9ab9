// package models defines the data model for the moodmix session
package models

import (
	"context"
	"time"
)

// Credential is the bearer material for the catalog service.
//
// ExpiresAt is issuedAt + expires_in from the most recent token response. An empty RefreshToken means none was issued.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry at now.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CanRefresh reports whether a refresh token is available.
func (c Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// PendingAuthorization holds the secrets of one in-flight login.
type PendingAuthorization struct {
	State        string
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Profile is the authenticated catalog user.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Track represents a catalog track
type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	Duration   int    `json:"duration"` // Duration in seconds
	URL        string `json:"url,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// Recommendations is the result of one mood query.
type Recommendations struct {
	Mood   string  `json:"mood"`
	Tracks []Track `json:"tracks"`
}

// CredentialStore persists the single durable [Credential].
type CredentialStore interface {
	// Load returns the stored credential or an error wrapping [shared.ErrCredentialNotFound].
	Load(ctx context.Context) (Credential, error)
	// Save replaces the stored credential with cred.
	Save(ctx context.Context, cred Credential) error
	// Delete removes the stored credential. Deleting a missing credential is not an error.
	Delete(ctx context.Context) error
}

// PendingStore holds at most one [PendingAuthorization].
type PendingStore interface {
	// Put replaces any outstanding authorization with p.
	Put(ctx context.Context, p PendingAuthorization) error
	// Take returns the outstanding authorization and deletes it in the same step, whether or not it has expired.
	// Missing or expired records yield an error wrapping [shared.ErrNoPendingAuthorization].
	Take(ctx context.Context) (PendingAuthorization, error)
	// Clear removes any outstanding authorization.
	Clear(ctx context.Context) error
}

// AudioTargets are the target audio features sent with a recommendation request.
//
// Valence, Energy, Danceability and Acousticness range over [0, 1]. Tempo is in BPM; zero leaves it unset.
type AudioTargets struct {
	Valence      float64 `json:"valence"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Acousticness float64 `json:"acousticness"`
	Tempo        float64 `json:"tempo,omitempty"`
}

// MoodProfile maps a named mood onto catalog seeds and audio targets.
type MoodProfile struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Genres      []string     `json:"genres"`
	Targets     AudioTargets `json:"targets"`
}
