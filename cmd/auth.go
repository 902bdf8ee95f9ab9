package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/session"
	"github.com/desertthunder/moodmix/internal/shared"
)

const defaultLoginTimeout = 2 * time.Minute

// AuthLogin runs the authorization code flow with PKCE.
//
// A temporary server on the redirect URI's port receives the callback; it is shut down once the first
// callback is handled or the timeout passes.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	m, err := r.Session(ctx)
	if err != nil {
		return err
	}

	if snap := m.Snapshot(); snap.Authenticated() {
		return r.writePlain("✓ Already logged in as %s\n", displayName(snap))
	}

	addr, err := r.callbackAddr()
	if err != nil {
		return err
	}

	app := server.NewApp(m, r.catalog, r.logger)
	srv := server.New(addr, app.Router(), r.logger)
	serveErrs, err := srv.Start()
	if err != nil {
		return fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("callback server shutdown", "error", err)
		}
	}()

	if err := m.Login(ctx); err != nil {
		return err
	}
	r.logger.Info("waiting for authorization", "callback", r.config.Credentials.Spotify.RedirectURI)

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}

	select {
	case res := <-app.Callback().Result():
		if res.Err != nil {
			return fmt.Errorf("login failed (%s): %w", res.Snapshot.Reason, res.Err)
		}
		return r.writePlain("✓ Logged in as %s\n", displayName(res.Snapshot))
	case err := <-serveErrs:
		return fmt.Errorf("callback server failed: %w", err)
	case <-time.After(timeout):
		return fmt.Errorf("%w: no callback received within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthStatus prints the session snapshot after hydration.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	m, err := r.Session(ctx)
	if err != nil {
		return err
	}

	snap := m.Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(snap, true)
	}

	switch snap.Status {
	case session.StatusAuthenticated:
		r.writePlain("✓ Logged in as %s\n", displayName(snap))
		if cred, ok := m.Credential(); ok {
			r.writePlain("Token expires: %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
		}
	case session.StatusError:
		r.writePlain("✗ Session error: %s\n", snap.Reason)
		if snap.Detail != "" {
			r.writePlain("  %s\n", snap.Detail)
		}
	default:
		r.writePlain("✗ Not logged in\n")
	}
	return nil
}

// AuthRefresh forces a token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	m, err := r.Session(ctx)
	if err != nil {
		return err
	}

	cred, err := m.Refresh(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%w: run 'moodmix auth login'", err)
		}
		return err
	}
	return r.writePlain("✓ Token refreshed, expires %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
}

// AuthLogout clears the session and the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	m, err := r.Session(ctx)
	if err != nil {
		return err
	}

	if err := m.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

func displayName(snap session.Snapshot) string {
	if snap.User == nil {
		return "unknown user"
	}
	if snap.User.DisplayName != "" {
		return snap.User.DisplayName
	}
	return snap.User.ID
}
