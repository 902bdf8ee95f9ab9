package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/desertthunder/moodmix/internal/session"
)

// Guard picks a handler from the session state on every request. Protected content is only reached while
// the session is authenticated; login is shown when unauthenticated or failed and busy while authenticating.
func Guard(s Snapshotter, protected, login, busy http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch s.Snapshot().Status {
		case session.StatusAuthenticated:
			protected.ServeHTTP(w, r)
		case session.StatusAuthenticating:
			busy.ServeHTTP(w, r)
		default:
			login.ServeHTTP(w, r)
		}
	})
}

// RequireSession guards JSON endpoints. Unauthenticated and failed sessions get a 401 that carries the
// snapshot; an authenticating session gets a 503 with Retry-After.
func RequireSession(s Snapshotter) Middleware {
	return func(next http.Handler) http.Handler {
		busy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "session is authenticating", Session: s.Snapshot()})
		})
		login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required", Login: "/login", Session: s.Snapshot()})
		})
		return Guard(s, next, login, busy)
	}
}

// SameOrigin rejects state-changing requests sent from another site. The Origin header is checked first and
// Referer second; requests carrying neither come from non-browser clients and pass.
func SameOrigin(s Snapshotter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Sec-Fetch-Site") == "cross-site" || !sameHost(r) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "cross-origin request refused", Session: s.Snapshot()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sameHost(r *http.Request) bool {
	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return true
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host
}

type errorBody struct {
	Error   string           `json:"error"`
	Login   string           `json:"login,omitempty"`
	Session session.Snapshot `json:"session"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
