package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/shared"
)

const defaultLimit = 20

// App serves the browser and JSON surface of a session.
type App struct {
	session  Session
	catalog  Recommender
	callback *CallbackHandler
	logger   *log.Logger
}

// NewApp creates an [App]. Callbacks redirect back to the home page.
func NewApp(s Session, catalog Recommender, logger *log.Logger) *App {
	return &App{
		session:  s,
		catalog:  catalog,
		callback: NewCallbackHandler(s, "/"),
		logger:   logger,
	}
}

// Callback returns the handler registered on the callback route.
func (a *App) Callback() *CallbackHandler {
	return a.callback
}

// Router builds a [BasicRouter] with every route registered.
func (a *App) Router() *BasicRouter {
	r := NewBasicRouter()
	r.Use(Recover(a.logger), Logging(a.logger))

	r.HandleFunc("GET /login", a.login)
	r.Handler(a.callback)
	r.Handle("POST /logout", SameOrigin(a.session)(http.HandlerFunc(a.logout)))
	r.HandleFunc("GET /api/session", a.snapshot)
	r.Handle("GET /api/recommendations", RequireSession(a.session)(http.HandlerFunc(a.recommendations)))
	r.Handle("GET /{$}", Guard(a.session, http.HandlerFunc(a.home), http.HandlerFunc(a.loginPage), http.HandlerFunc(a.busyPage)))
	return r
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	authURL, err := a.session.BeginLogin(r.Context())
	switch {
	case errors.Is(err, shared.ErrInvalidTransition):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case err != nil:
		a.logger.Error("could not start login", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		a.render(w, loginTmpl, pageData{Session: a.session.Snapshot(), Message: err.Error()})
	default:
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.session.Logout(r.Context()); err != nil {
		a.logger.Warn("logout left stored data behind", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Snapshot())
}

func (a *App) recommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := a.recommend(r.Context(), r.URL.Query().Get("mood"), r.URL.Query().Get("limit"))
	if err != nil {
		writeJSON(w, statusFor(err), errorBody{Error: err.Error(), Session: a.session.Snapshot()})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *App) recommend(ctx context.Context, text, rawLimit string) (models.Recommendations, error) {
	limit := defaultLimit
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 {
			return models.Recommendations{}, shared.ErrInvalidInput
		}
		limit = n
	}

	profile, err := mood.Match(text)
	if err != nil {
		return models.Recommendations{}, err
	}

	tracks, err := a.catalog.Recommendations(ctx, profile, limit)
	if err != nil {
		return models.Recommendations{}, err
	}
	return mood.Recommendations(profile, tracks), nil
}

func (a *App) home(w http.ResponseWriter, r *http.Request) {
	data := pageData{Session: a.session.Snapshot(), Moods: mood.Names(), Query: r.URL.Query().Get("mood")}
	if data.Query != "" {
		recs, err := a.recommend(r.Context(), data.Query, "")
		if err != nil {
			data.Message = err.Error()
			w.WriteHeader(statusFor(err))
		} else {
			data.Results = &recs
		}
	}
	a.render(w, homeTmpl, data)
}

func (a *App) loginPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, loginTmpl, pageData{Session: a.session.Snapshot()})
}

func (a *App) busyPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, busyTmpl, pageData{Session: a.session.Snapshot()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrUnknownMood):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
