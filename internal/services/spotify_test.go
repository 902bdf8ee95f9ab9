package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	tu "github.com/desertthunder/moodmix/internal/testing"
)

// recordingCaller captures requests and answers with a canned response.
type recordingCaller struct {
	requests []Request
	resp     *APIResponse
	err      error
}

func (r *recordingCaller) Call(ctx context.Context, req Request) (*APIResponse, error) {
	r.requests = append(r.requests, req)
	return r.resp, r.err
}

var happy = models.MoodProfile{
	Name:    "happy",
	Genres:  []string{"pop", "happy", "dance", "funk", "disco", "soul"},
	Targets: models.AudioTargets{Valence: 0.9, Energy: 0.75, Danceability: 0.7, Acousticness: 1.4, Tempo: 120},
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	newCatalog := func(t *testing.T) (*Catalog, *tu.FakeSpotify) {
		t.Helper()
		fake := tu.NewFakeSpotify()
		t.Cleanup(fake.Close)
		fake.Issue("current", "r")
		gw := NewGateway(&stubSource{cred: live("current")}, WithBaseURL(fake.APIURL()))
		return NewCatalog(gw), fake
	}

	t.Run("Me", func(t *testing.T) {
		catalog, _ := newCatalog(t)

		profile, err := catalog.Me(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.ID != "listener" || profile.DisplayName != "Test Listener" {
			t.Errorf("unexpected profile %+v", profile)
		}
		if profile.ImageURL == "" {
			t.Error("expected first image to become the profile image")
		}
	})

	t.Run("Recommendations", func(t *testing.T) {
		catalog, _ := newCatalog(t)

		tracks, err := catalog.Recommendations(ctx, happy, 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		first := tracks[0]
		if first.Title != "Here Comes The Sun" || first.Artist != "The Beatles" || first.Album != "Abbey Road" {
			t.Errorf("unexpected track %+v", first)
		}
		if first.Duration != 185 {
			t.Errorf("expected duration in seconds, got %d", first.Duration)
		}
		if first.URL != "https://open.spotify.com/track/track-1" {
			t.Errorf("unexpected track URL %q", first.URL)
		}
	})

	t.Run("Recommendations query", func(t *testing.T) {
		caller := &recordingCaller{resp: &APIResponse{StatusCode: http.StatusOK, Body: []byte(`{"tracks":[]}`)}}
		catalog := NewCatalog(caller)

		if _, err := catalog.Recommendations(ctx, happy, 500); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		q := caller.requests[0].Query
		if got := q.Get("seed_genres"); got != "pop,happy,dance,funk,disco" {
			t.Errorf("expected five seed genres, got %q", got)
		}
		if got := q.Get("limit"); got != "100" {
			t.Errorf("expected limit clamped to 100, got %q", got)
		}
		if got := q.Get("target_acousticness"); got != "1.00" {
			t.Errorf("expected feature clamped to 1.00, got %q", got)
		}
		if got := q.Get("target_tempo"); got != "120" {
			t.Errorf("expected tempo 120, got %q", got)
		}
	})

	t.Run("Recommendations without genres", func(t *testing.T) {
		catalog := NewCatalog(&recordingCaller{})

		_, err := catalog.Recommendations(ctx, models.MoodProfile{Name: "empty"}, 10)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		catalog, _ := newCatalog(t)

		tracks, err := catalog.SearchTracks(ctx, "sunshine", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 || !strings.Contains(tracks[1].Title, "sunshine") {
			t.Errorf("unexpected search result %+v", tracks)
		}

		if _, err := catalog.SearchTracks(ctx, "  ", 5); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for blank query, got %v", err)
		}
	})

	t.Run("API errors", func(t *testing.T) {
		caller := &recordingCaller{resp: &APIResponse{
			StatusCode: http.StatusTooManyRequests,
			Body:       []byte(`{"error":{"status":429,"message":"API rate limit exceeded"}}`),
		}}

		_, err := NewCatalog(caller).Me(ctx)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if err == nil || !strings.Contains(err.Error(), "rate limit") {
			t.Errorf("expected API message in error, got %v", err)
		}
	})

	t.Run("service unavailable", func(t *testing.T) {
		caller := &recordingCaller{resp: &APIResponse{StatusCode: http.StatusServiceUnavailable}}

		_, err := NewCatalog(caller).Me(ctx)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("gateway errors pass through", func(t *testing.T) {
		caller := &recordingCaller{err: shared.ErrNotAuthenticated}

		_, err := NewCatalog(caller).Recommendations(ctx, happy, 5)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestProfileClient(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		fake := tu.NewFakeSpotify()
		defer fake.Close()
		fake.Issue("current", "")

		profile, err := NewProfileClient(fake.APIURL(), nil).FetchProfile(ctx, "current")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.Email != "listener@example.com" {
			t.Errorf("unexpected profile %+v", profile)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		fake := tu.NewFakeSpotify()
		defer fake.Close()

		_, err := NewProfileClient(fake.APIURL(), nil).FetchProfile(ctx, "unknown")
		if !errors.Is(err, shared.ErrTokenRejected) {
			t.Errorf("expected ErrTokenRejected, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		fake := tu.NewFakeSpotify()
		defer fake.Close()
		fake.Issue("current", "")
		fake.Set(func(f *tu.FakeSpotify) { f.ProfileStatus = http.StatusInternalServerError })

		_, err := NewProfileClient(fake.APIURL(), nil).FetchProfile(ctx, "current")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("network failure", func(t *testing.T) {
		client := tu.NewMockRoundTripper(nil, errors.New("dial tcp: connection refused")).Client()

		_, err := NewProfileClient("", client).FetchProfile(ctx, "current")
		if !errors.Is(err, shared.ErrNetworkUnavailable) {
			t.Errorf("expected ErrNetworkUnavailable, got %v", err)
		}
	})
}
