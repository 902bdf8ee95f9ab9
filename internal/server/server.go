// package server contains the router, middleware, route guards and handlers for the local web surface
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/session"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the route patterns it serves.
type Handler interface {
	http.Handler
	Routes() []string // Routes returns [http.ServeMux] patterns, optionally prefixed with a method
}

// Router registers handlers behind a shared middleware stack.
type Router interface {
	Use(middleware ...Middleware)
	Handle(pattern string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// Snapshotter exposes the current session state. [session.Manager] implements it.
type Snapshotter interface {
	Snapshot() session.Snapshot
}

// Session is the part of [session.Manager] the web surface drives.
type Session interface {
	Snapshotter
	BeginLogin(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, params session.CallbackParams) error
	Logout(ctx context.Context) error
}

// Recommender fetches tracks for a mood. [services.Catalog] implements it.
type Recommender interface {
	Recommendations(ctx context.Context, mood models.MoodProfile, limit int) ([]models.Track, error)
}

// Server runs an [http.Server] in the background until shut down.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New creates a [Server] listening on addr.
func New(addr string, handler http.Handler, logger *log.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener and serves in a goroutine. Bind errors are returned directly; later serve errors
// arrive on the returned channel.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, err
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()
	return errs, nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
