package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

const refreshKey = "refresh"

// Refresh obtains a new credential with the stored refresh token.
//
// Concurrent callers share one token endpoint request and all observe its result. The request runs detached
// from the first caller's context so one cancellation does not fail the others; each caller still returns as
// soon as its own ctx is done. A rejected refresh clears the credential and leaves the session Unauthenticated.
// A credential the store failed to persist stays live in memory and is reported as [shared.ErrCredentialNotSaved].
func (m *Manager) Refresh(ctx context.Context) (models.Credential, error) {
	return m.share(ctx, "")
}

// RefreshStale refreshes only while stale is still the live access token. A caller holding a token that a
// concurrent refresh already replaced gets the live credential back without another token endpoint request.
func (m *Manager) RefreshStale(ctx context.Context, stale string) (models.Credential, error) {
	return m.share(ctx, stale)
}

func (m *Manager) share(ctx context.Context, stale string) (models.Credential, error) {
	ch := m.flight.DoChan(refreshKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case <-ctx.Done():
		return models.Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Credential{}, res.Err
		}
		return res.Val.(models.Credential), nil
	}
}

func (m *Manager) refresh(ctx context.Context, stale string) (models.Credential, error) {
	m.mu.Lock()
	epoch := m.epoch
	var current models.Credential
	if m.cred != nil {
		current = *m.cred
	}
	m.mu.Unlock()

	if current.AccessToken == "" {
		return models.Credential{}, shared.ErrNotAuthenticated
	}
	if stale != "" && current.AccessToken != stale && !current.Expired(m.now()) {
		m.logger.Debug("token already replaced, skipping refresh")
		return current, nil
	}
	if !current.CanRefresh() {
		err := fmt.Errorf("%w: %w", shared.ErrTokenRefreshFailed, shared.ErrNoRefreshToken)
		m.reject(ctx, epoch, err)
		return models.Credential{}, err
	}

	m.logger.Debug("refreshing access token")
	next, err := m.redeem(ctx, current.RefreshToken)
	if err != nil {
		if errors.Is(err, shared.ErrNetworkUnavailable) {
			m.logger.Warn("token refresh unreachable, keeping credential", "err", err)
			return models.Credential{}, err
		}
		m.reject(ctx, epoch, err)
		return models.Credential{}, err
	}

	// Persist before committing; a logout that lands in between is undone below.
	saveErr := m.credentials.Save(ctx, next)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.discard(ctx)
		return models.Credential{}, fmt.Errorf("%w: session ended during refresh", shared.ErrNotAuthenticated)
	}
	m.cred = &next
	if m.profile != nil {
		m.armTimerLocked()
	}
	m.publishLocked()
	m.mu.Unlock()

	if saveErr != nil {
		m.logger.Error("failed to persist refreshed credential", "err", saveErr)
		return models.Credential{}, fmt.Errorf("%w: %w", shared.ErrCredentialNotSaved, saveErr)
	}

	m.logger.Info("access token refreshed", "expires_at", next.ExpiresAt.Format("15:04:05"))
	return next, nil
}

// redeem trades refreshToken for a new credential. The refresh token is kept when the response omits one.
func (m *Manager) redeem(ctx context.Context, refreshToken string) (models.Credential, error) {
	tctx, cancel := m.tokenContext(ctx)
	defer cancel()

	tok, err := m.oauth.TokenSource(tctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return models.Credential{}, classifyTokenError(shared.ErrTokenRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return models.Credential{}, fmt.Errorf("%w: response carried no access token", shared.ErrTokenRefreshFailed)
	}
	return m.credentialFrom(tok, refreshToken), nil
}

// discard removes a credential persisted by work that finished after the session ended.
// A newer live session gets its own credential written back instead.
func (m *Manager) discard(ctx context.Context) {
	m.logger.Debug("discarding result from an ended session")

	live, ok := m.Credential()
	var err error
	if ok {
		err = m.credentials.Save(ctx, live)
	} else {
		err = m.credentials.Delete(ctx)
	}
	if err != nil {
		m.logger.Error("failed to restore credential store", "err", err)
	}
}

// reject drops a credential the token endpoint refused, unless the session already moved on.
func (m *Manager) reject(ctx context.Context, epoch uint64, err error) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.failLocked(StatusUnauthenticated, err)
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Warn("refresh rejected, session cleared", "err", err)
	if derr := m.credentials.Delete(ctx); derr != nil {
		m.logger.Error("failed to delete rejected credential", "err", derr)
	}
}

// classifyTokenError wraps a token endpoint failure in op, adding [shared.ErrNetworkUnavailable] when the
// endpoint could not be reached or answered with a server error.
func classifyTokenError(op, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w: token endpoint status %d", op, shared.ErrNetworkUnavailable, re.Response.StatusCode)
		}
		if re.ErrorCode != "" {
			return fmt.Errorf("%w: %s", op, re.ErrorCode)
		}
		return fmt.Errorf("%w: %v", op, err)
	}
	if isTransport(err) {
		return fmt.Errorf("%w: %w: %w", op, shared.ErrNetworkUnavailable, err)
	}
	return fmt.Errorf("%w: %w", op, err)
}
