// Spotify Web API catalog client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"
	maxLimit       = 100
	maxSeedGenres  = 5
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []SpotifyArtist   `json:"artists"`
	Album        SpotifyAlbum      `json:"album"`
	DurationMS   int               `json:"duration_ms"`
	PreviewURL   string            `json:"preview_url"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Profile converts the API user into a [models.Profile].
func (u SpotifyUser) Profile() models.Profile {
	p := models.Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
	}
	if len(u.Images) > 0 {
		p.ImageURL = u.Images[0].URL
	}
	return p
}

// Track converts the API track into a [models.Track].
func (t SpotifyTrack) Track() models.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	track := models.Track{
		ID:         t.ID,
		Title:      t.Name,
		Artist:     strings.Join(artists, ", "),
		Album:      t.Album.Name,
		Duration:   t.DurationMS / 1000,
		URL:        t.ExternalURLs["spotify"],
		PreviewURL: t.PreviewURL,
	}
	if len(t.Album.Images) > 0 {
		track.ImageURL = t.Album.Images[0].URL
	}
	return track
}

// Catalog reads the Spotify Web API through a [Caller].
type Catalog struct {
	caller Caller
}

// NewCatalog creates a [Catalog] backed by caller, normally a [Gateway].
func NewCatalog(caller Caller) *Catalog {
	return &Catalog{caller: caller}
}

// Me retrieves the current authenticated user's profile.
func (c *Catalog) Me(ctx context.Context) (models.Profile, error) {
	var user SpotifyUser
	if err := c.get(ctx, Get("/me", nil), &user); err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}

// Recommendations returns up to limit tracks seeded by the mood's genres and tuned to its audio targets.
func (c *Catalog) Recommendations(ctx context.Context, mood models.MoodProfile, limit int) ([]models.Track, error) {
	if len(mood.Genres) == 0 {
		return nil, fmt.Errorf("%w: mood %q has no seed genres", shared.ErrInvalidInput, mood.Name)
	}

	genres := mood.Genres
	if len(genres) > maxSeedGenres {
		genres = genres[:maxSeedGenres]
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	q.Set("seed_genres", strings.Join(genres, ","))
	q.Set("target_valence", formatFeature(mood.Targets.Valence))
	q.Set("target_energy", formatFeature(mood.Targets.Energy))
	q.Set("target_danceability", formatFeature(mood.Targets.Danceability))
	q.Set("target_acousticness", formatFeature(mood.Targets.Acousticness))
	if mood.Targets.Tempo > 0 {
		q.Set("target_tempo", strconv.FormatFloat(mood.Targets.Tempo, 'f', 0, 64))
	}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := c.get(ctx, Get("/recommendations", q), &response); err != nil {
		return nil, err
	}

	return convertTracks(response.Tracks), nil
}

// SearchTracks searches the catalog for tracks matching query.
func (c *Catalog) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(min(clampLimit(limit), 50)))

	var response struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := c.get(ctx, Get("/search", q), &response); err != nil {
		return nil, err
	}

	return convertTracks(response.Tracks.Items), nil
}

func (c *Catalog) get(ctx context.Context, req Request, result any) error {
	resp, err := c.caller.Call(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return apiError(resp.StatusCode, resp.Body)
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ProfileClient fetches the profile for an explicit access token, bypassing the [Gateway].
//
// The session manager uses it to confirm a credential before the session is Authenticated.
type ProfileClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewProfileClient creates a [ProfileClient]. An empty baseURL uses the public Spotify API.
func NewProfileClient(baseURL string, client *http.Client) *ProfileClient {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ProfileClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// FetchProfile retrieves /me with accessToken. A 401 answer wraps [shared.ErrTokenRejected].
func (p *ProfileClient) FetchProfile(ctx context.Context, accessToken string) (models.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/me", nil)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: %w", shared.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return models.Profile{}, fmt.Errorf("%w: profile request returned 401", shared.ErrTokenRejected)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Profile{}, fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var user SpotifyUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return models.Profile{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return user.Profile(), nil
}

func apiError(status int, body []byte) error {
	var e spotifyError
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("%w: spotify API error: status %d: %s", shared.ErrAPIRequest, status, e.Error.Message)
	}
	if status == http.StatusServiceUnavailable || status == http.StatusBadGateway {
		return fmt.Errorf("%w: spotify API error: status %d", shared.ErrServiceUnavailable, status)
	}
	return fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, status)
}

func convertTracks(in []SpotifyTrack) []models.Track {
	tracks := make([]models.Track, 0, len(in))
	for _, t := range in {
		tracks = append(tracks, t.Track())
	}
	return tracks
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, maxLimit)
}

func formatFeature(v float64) string {
	return strconv.FormatFloat(min(max(v, 0), 1), 'f', 2, 64)
}
