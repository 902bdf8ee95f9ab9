package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/session"
	"github.com/desertthunder/moodmix/internal/shared"
	tu "github.com/desertthunder/moodmix/internal/testing"
)

type staticSnapshot struct{ snap session.Snapshot }

func (s *staticSnapshot) Snapshot() session.Snapshot { return s.snap }

type harness struct {
	fake    *tu.FakeSpotify
	manager *session.Manager
	app     *App
	router  *BasicRouter
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fake := tu.NewFakeSpotify()
	t.Cleanup(fake.Close)

	logger := shared.NewLogger(io.Discard)
	m, err := session.New(session.Config{
		ClientID:        "test-client",
		RedirectURL:     "http://127.0.0.1:3000/callback",
		Scopes:          []string{"user-read-private"},
		AuthURL:         fake.AuthURL(),
		TokenURL:        fake.TokenURL(),
		RefreshFraction: 0.8333,
		RequestTimeout:  2 * time.Second,
	},
		session.WithCredentialStore(repositories.NewMemoryCredentialStore()),
		session.WithPendingStore(repositories.NewMemoryPendingStore()),
		session.WithProfileFetcher(services.NewProfileClient(fake.APIURL(), nil)),
		session.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	gateway := services.NewGateway(m, services.WithBaseURL(fake.APIURL()), services.WithLogger(logger))
	app := NewApp(m, services.NewCatalog(gateway), logger)

	return &harness{fake: fake, manager: m, app: app, router: app.Router()}
}

func (h *harness) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// signIn walks /login and /callback the way a browser would.
func (h *harness) signIn(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	rec := h.do(t, http.MethodGet, "/login")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 from /login, got %d", rec.Code)
	}
	state := query(t, rec.Header().Get("Location"), "state")

	rec = h.do(t, http.MethodGet, "/callback?code="+tu.GoodCode+"&state="+url.QueryEscape(state))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 from /callback, got %d", rec.Code)
	}
	if !h.manager.Snapshot().Authenticated() {
		t.Fatalf("expected authenticated session, got %+v", h.manager.Snapshot())
	}
}

func query(t *testing.T, rawURL, key string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", rawURL, err)
	}
	return u.Query().Get(key)
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware runs in the order added", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) { order = append(order, "handler") })

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("method patterns reject other methods", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("logging sets a request id", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Logging(shared.NewLogger(io.Discard)))
		r.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
	})

	t.Run("recover answers 500", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Recover(shared.NewLogger(io.Discard)))
		r.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestGuard(t *testing.T) {
	named := func(name string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, name) })
	}

	tests := []struct {
		status session.Status
		want   string
	}{
		{session.StatusUnauthenticated, "login"},
		{session.StatusAuthenticating, "busy"},
		{session.StatusAuthenticated, "protected"},
		{session.StatusError, "login"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			s := &staticSnapshot{snap: session.Snapshot{Status: tt.status}}
			h := Guard(s, named("protected"), named("login"), named("busy"))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Body.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, rec.Body.String())
			}
		})
	}

	t.Run("reads the state on every request", func(t *testing.T) {
		s := &staticSnapshot{}
		h := Guard(s, named("protected"), named("login"), named("busy"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Body.String() != "login" {
			t.Fatalf("expected login, got %s", rec.Body.String())
		}

		s.snap = session.Snapshot{Status: session.StatusAuthenticated}
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Body.String() != "protected" {
			t.Errorf("expected protected, got %s", rec.Body.String())
		}
	})

	t.Run("RequireSession", func(t *testing.T) {
		ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

		for status, code := range map[session.Status]int{
			session.StatusUnauthenticated: http.StatusUnauthorized,
			session.StatusError:           http.StatusUnauthorized,
			session.StatusAuthenticating:  http.StatusServiceUnavailable,
			session.StatusAuthenticated:   http.StatusNoContent,
		} {
			s := &staticSnapshot{snap: session.Snapshot{Status: status}}
			rec := httptest.NewRecorder()
			RequireSession(s)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
			if rec.Code != code {
				t.Errorf("%s: expected %d, got %d", status, code, rec.Code)
			}
		}
	})
}

func TestCallbackHandler(t *testing.T) {
	t.Run("success redirects to a clean path", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		select {
		case res := <-h.app.Callback().Result():
			if res.Err != nil || !res.Snapshot.Authenticated() {
				t.Errorf("unexpected result %+v", res)
			}
		default:
			t.Fatal("expected a callback result")
		}
	})

	t.Run("mismatched state still redirects and reports csrf", func(t *testing.T) {
		h := newHarness(t)
		if err := h.manager.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		h.do(t, http.MethodGet, "/login")

		rec := h.do(t, http.MethodGet, "/callback?code="+tu.GoodCode+"&state=forged")
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Fatalf("expected 303 to /, got %d %s", rec.Code, rec.Header().Get("Location"))
		}
		if strings.Contains(rec.Header().Get("Location"), "code") {
			t.Error("redirect must not carry the code")
		}

		res := <-h.app.Callback().Result()
		if res.Snapshot.Reason != session.ReasonCsrfMismatch {
			t.Errorf("expected csrf_mismatch, got %+v", res.Snapshot)
		}
		if h.fake.ExchangeCalls.Load() != 0 {
			t.Error("expected no token exchange")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		h := newHarness(t)
		if err := h.manager.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		state := query(t, h.do(t, http.MethodGet, "/login").Header().Get("Location"), "state")

		h.do(t, http.MethodGet, "/callback?error=access_denied&state="+url.QueryEscape(state))

		if snap := h.manager.Snapshot(); snap.Reason != session.ReasonAuthorizationDenied {
			t.Errorf("expected authorization_denied, got %+v", snap)
		}
	})

	t.Run("only the first result is reported", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		h.do(t, http.MethodGet, "/callback?code="+tu.GoodCode+"&state=again")

		<-h.app.Callback().Result()
		select {
		case res := <-h.app.Callback().Result():
			t.Errorf("unexpected second result %+v", res)
		default:
		}
		if !h.manager.Snapshot().Authenticated() {
			t.Error("replayed callback must not sign the user out")
		}
	})
}

func TestApp(t *testing.T) {
	t.Run("home shows login before sign in", func(t *testing.T) {
		h := newHarness(t)
		if err := h.manager.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}

		rec := h.do(t, http.MethodGet, "/")
		if !strings.Contains(rec.Body.String(), `href="/login"`) {
			t.Errorf("expected login link, got %s", rec.Body.String())
		}
	})

	t.Run("home shows busy page while hydrating", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(t, http.MethodGet, "/")
		if !strings.Contains(rec.Body.String(), "Signing in") {
			t.Errorf("expected busy page, got %s", rec.Body.String())
		}
	})

	t.Run("home shows the user after sign in", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		rec := h.do(t, http.MethodGet, "/?mood=happy")
		body := rec.Body.String()
		if !strings.Contains(body, "Test Listener") {
			t.Errorf("expected display name, got %s", body)
		}
		if !strings.Contains(body, "Here Comes The Sun") {
			t.Errorf("expected tracks, got %s", body)
		}
	})

	t.Run("login while authenticated redirects home", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		rec := h.do(t, http.MethodGet, "/login")
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Errorf("expected 303 to /, got %d %s", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("session endpoint", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		rec := h.do(t, http.MethodGet, "/api/session")
		var body struct {
			Status string          `json:"status"`
			User   *models.Profile `json:"user"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if body.Status != "authenticated" || body.User == nil || body.User.ID != "listener" {
			t.Errorf("unexpected session body %s", rec.Body.String())
		}
	})

	t.Run("recommendations require a session", func(t *testing.T) {
		h := newHarness(t)
		if err := h.manager.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}

		rec := h.do(t, http.MethodGet, "/api/recommendations?mood=happy")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if h.fake.APICalls.Load() != 0 {
			t.Error("expected no catalog calls")
		}
	})

	t.Run("recommendations carry the current token for every mood", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		for _, name := range mood.Names() {
			rec := h.do(t, http.MethodGet, "/api/recommendations?limit=5&mood="+url.QueryEscape(name))
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d %s", name, rec.Code, rec.Body.String())
			}

			cred, _ := h.manager.Credential()
			if got := h.fake.LastAuthorization(); got != "Bearer "+cred.AccessToken {
				t.Errorf("%s: expected current bearer token, got %q", name, got)
			}

			var recs models.Recommendations
			if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if recs.Mood != name || len(recs.Tracks) == 0 {
				t.Errorf("%s: unexpected body %s", name, rec.Body.String())
			}
		}
	})

	t.Run("unknown mood is a bad request", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		rec := h.do(t, http.MethodGet, "/api/recommendations?mood=qqqqzzzz")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("bad limit is a bad request", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		rec := h.do(t, http.MethodGet, "/api/recommendations?mood=happy&limit=-1")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("revoked token is refreshed once", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		h.fake.RejectNext(1)

		rec := h.do(t, http.MethodGet, "/api/recommendations?mood=calm")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 after refresh, got %d", rec.Code)
		}
		if h.fake.RefreshCalls.Load() != 1 {
			t.Errorf("expected 1 refresh, got %d", h.fake.RefreshCalls.Load())
		}
	})

	t.Run("cross-site logout is refused", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		for name, header := range map[string][2]string{
			"origin":         {"Origin", "https://evil.example"},
			"referer":        {"Referer", "https://evil.example/page"},
			"fetch metadata": {"Sec-Fetch-Site", "cross-site"},
			"opaque origin":  {"Origin", "null"},
		} {
			req := httptest.NewRequest(http.MethodPost, "/logout", nil)
			req.Header.Set(header[0], header[1])
			rec := httptest.NewRecorder()
			h.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("%s: expected 403, got %d", name, rec.Code)
			}
		}
		if !h.manager.Snapshot().Authenticated() {
			t.Errorf("expected session kept, got %+v", h.manager.Snapshot())
		}

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set("Origin", "http://"+req.Host)
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusSeeOther {
			t.Errorf("expected same-origin logout to succeed, got %d", rec.Code)
		}
		if h.manager.Snapshot().Status != session.StatusUnauthenticated {
			t.Errorf("expected unauthenticated, got %+v", h.manager.Snapshot())
		}
	})

	t.Run("logout clears the session", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		rec := h.do(t, http.MethodPost, "/logout")
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}
		if h.manager.Snapshot().Status != session.StatusUnauthenticated {
			t.Errorf("expected unauthenticated, got %+v", h.manager.Snapshot())
		}

		calls := h.fake.APICalls.Load()
		if rec := h.do(t, http.MethodGet, "/api/recommendations?mood=happy"); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 after logout, got %d", rec.Code)
		}
		if h.fake.APICalls.Load() != calls {
			t.Error("expected no catalog calls after logout")
		}
	})
}
