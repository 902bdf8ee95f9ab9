package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Authorization codes understood by [FakeSpotify]'s token endpoint.
const (
	GoodCode = "good-code"
	BadCode  = "bad-code"
)

// FakeSpotify is an httptest stand-in for the Spotify accounts service and Web API.
//
// Token endpoint: /api/token. API: /v1/me, /v1/recommendations, /v1/search.
// Every issued access token is valid until revoked. Counters are safe to read from any goroutine.
type FakeSpotify struct {
	Server *httptest.Server

	ExchangeCalls atomic.Int32
	RefreshCalls  atomic.Int32
	ProfileCalls  atomic.Int32
	APICalls      atomic.Int32

	mu sync.Mutex
	// ExpiresIn is returned as expires_in; zero omits the field.
	ExpiresIn int
	// OmitRefreshToken drops refresh_token from refresh responses.
	OmitRefreshToken bool
	// RefreshStatus, when non-zero, is returned by the refresh grant with an invalid_grant body.
	RefreshStatus int
	// RefreshDelay holds every refresh response for the given time.
	RefreshDelay time.Duration
	// ProfileStatus, when non-zero, is returned by /v1/me for valid tokens.
	ProfileStatus int

	issued       int
	valid        map[string]bool
	refreshes    map[string]bool
	rejectNext   int
	lastVerifier string
	lastForm     url.Values
	lastAuth     string
}

// NewFakeSpotify starts a fake server. It is closed with t's cleanup by the caller.
func NewFakeSpotify() *FakeSpotify {
	f := &FakeSpotify{
		ExpiresIn: 3600,
		valid:     make(map[string]bool),
		refreshes: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.handleToken)
	mux.HandleFunc("GET /v1/me", f.authorized(f.handleMe))
	mux.HandleFunc("GET /v1/recommendations", f.authorized(f.handleTracks))
	mux.HandleFunc("GET /v1/search", f.authorized(f.handleSearch))
	f.Server = httptest.NewServer(mux)
	return f
}

func (f *FakeSpotify) Close()           { f.Server.Close() }
func (f *FakeSpotify) URL() string      { return f.Server.URL }
func (f *FakeSpotify) AuthURL() string  { return f.Server.URL + "/authorize" }
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }
func (f *FakeSpotify) APIURL() string   { return f.Server.URL + "/v1" }

// Set runs fn with the knobs locked.
func (f *FakeSpotify) Set(fn func(f *FakeSpotify)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// Issue registers an access and refresh token pair as valid, as if a previous session had obtained them.
func (f *FakeSpotify) Issue(access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid[access] = true
	if refresh != "" {
		f.refreshes[refresh] = true
	}
}

// Revoke makes access fail with 401 from now on.
func (f *FakeSpotify) Revoke(access string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.valid, access)
}

// RejectNext makes the next n API calls answer 401 whatever token they carry.
func (f *FakeSpotify) RejectNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectNext = n
}

// LastVerifier is the code_verifier of the most recent exchange.
func (f *FakeSpotify) LastVerifier() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastVerifier
}

// LastForm is the form body of the most recent token request.
func (f *FakeSpotify) LastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

// LastAuthorization is the Authorization header of the most recent API call.
func (f *FakeSpotify) LastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *FakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	f.mu.Lock()
	f.lastForm = r.PostForm
	f.mu.Unlock()

	if r.PostForm.Get("client_id") == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client")
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		f.ExchangeCalls.Add(1)
		f.exchange(w, r.PostForm)
	case "refresh_token":
		f.RefreshCalls.Add(1)
		f.refresh(w, r.PostForm)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
	}
}

func (f *FakeSpotify) exchange(w http.ResponseWriter, form url.Values) {
	verifier := form.Get("code_verifier")
	if form.Get("code") != GoodCode || verifier == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		return
	}

	f.mu.Lock()
	f.lastVerifier = verifier
	body := f.issueLocked(true)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (f *FakeSpotify) refresh(w http.ResponseWriter, form url.Values) {
	f.mu.Lock()
	delay := f.RefreshDelay
	status := f.RefreshStatus
	known := f.refreshes[form.Get("refresh_token")]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		writeOAuthError(w, status, "invalid_grant")
		return
	}
	if !known {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		return
	}

	f.mu.Lock()
	body := f.issueLocked(!f.OmitRefreshToken)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (f *FakeSpotify) issueLocked(withRefresh bool) map[string]any {
	f.issued++
	access := fmt.Sprintf("access-%d", f.issued)
	f.valid[access] = true

	body := map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"scope":        "user-read-private user-read-email",
	}
	if f.ExpiresIn > 0 {
		body["expires_in"] = f.ExpiresIn
	}
	if withRefresh {
		refresh := fmt.Sprintf("refresh-%d", f.issued)
		f.refreshes[refresh] = true
		body["refresh_token"] = refresh
	}
	return body
}

func (f *FakeSpotify) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.APICalls.Add(1)
		auth := r.Header.Get("Authorization")

		f.mu.Lock()
		f.lastAuth = auth
		ok := f.valid[strings.TrimPrefix(auth, "Bearer ")]
		if f.rejectNext > 0 {
			f.rejectNext--
			ok = false
		}
		f.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"status": 401, "message": "The access token expired"},
			})
			return
		}
		next(w, r)
	}
}

func (f *FakeSpotify) handleMe(w http.ResponseWriter, r *http.Request) {
	f.ProfileCalls.Add(1)

	f.mu.Lock()
	status := f.ProfileStatus
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "unavailable"}})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           "listener",
		"display_name": "Test Listener",
		"email":        "listener@example.com",
		"country":      "US",
		"product":      "premium",
		"images":       []map[string]any{{"url": "https://i.scdn.co/image/listener", "height": 64, "width": 64}},
	})
}

func (f *FakeSpotify) handleTracks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tracks": fakeTracks(r.URL.Query().Get("seed_genres"))})
}

func (f *FakeSpotify) handleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": fakeTracks(r.URL.Query().Get("q"))}})
}

func fakeTracks(tag string) []map[string]any {
	return []map[string]any{
		{
			"id":          "track-1",
			"name":        "Here Comes The Sun",
			"duration_ms": 185733,
			"preview_url": "https://p.scdn.co/mp3-preview/1",
			"artists":     []map[string]any{{"id": "a1", "name": "The Beatles"}},
			"album": map[string]any{
				"id":     "al1",
				"name":   "Abbey Road",
				"images": []map[string]any{{"url": "https://i.scdn.co/image/abbey", "height": 640, "width": 640}},
			},
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/track-1"},
		},
		{
			"id":            "track-2",
			"name":          "Walking on Sunshine (" + tag + ")",
			"duration_ms":   238000,
			"artists":       []map[string]any{{"id": "a2", "name": "Katrina and the Waves"}},
			"album":         map[string]any{"id": "al2", "name": "Walking on Sunshine"},
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/track-2"},
		},
	}
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
