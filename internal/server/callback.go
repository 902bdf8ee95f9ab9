package server

import (
	"net/http"
	"sync"

	"github.com/desertthunder/moodmix/internal/session"
)

// CallbackResult is the outcome of one redirect to the callback route.
type CallbackResult struct {
	Snapshot session.Snapshot
	Err      error
}

// CallbackHandler completes the authorization code flow for redirects back from the accounts service.
//
// Every request is answered with a 303 to Done so the code and state never stay in the visible URL or the
// browser history. Implements the [Handler] interface.
type CallbackHandler struct {
	session Session
	done    string
	results chan CallbackResult
	once    sync.Once
}

// NewCallbackHandler creates a [CallbackHandler] that redirects to done once the callback is handled.
func NewCallbackHandler(s Session, done string) *CallbackHandler {
	if done == "" {
		done = "/"
	}
	return &CallbackHandler{session: s, done: done, results: make(chan CallbackResult, 1)}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET /callback"}
}

// Result delivers the outcome of the first callback. Later callbacks are still handled but not reported.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}

// ServeHTTP implements [http.Handler].
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := session.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	err := h.session.HandleCallback(r.Context(), params)
	h.once.Do(func() {
		h.results <- CallbackResult{Snapshot: h.session.Snapshot(), Err: err}
	})

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	http.Redirect(w, r, h.done, http.StatusSeeOther)
}
