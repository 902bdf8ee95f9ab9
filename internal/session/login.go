package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/pkce"
	"github.com/desertthunder/moodmix/internal/shared"
)

// CallbackParams is the authorization response delivered to the redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// BeginLogin prepares a new authorization request and returns the URL the user must visit.
//
// Only valid while Unauthenticated or Error. Any outstanding authorization request is replaced.
func (m *Manager) BeginLogin(ctx context.Context) (string, error) {
	m.mu.Lock()
	status := m.snapshotLocked().Status
	m.mu.Unlock()

	if status != StatusUnauthenticated && status != StatusError {
		return "", fmt.Errorf("%w: cannot log in while %s", shared.ErrInvalidTransition, status)
	}

	verifier, challenge, err := pkce.GenerateChallengePair()
	if err != nil {
		m.fail(StatusError, err)
		return "", err
	}

	state, err := pkce.GenerateAntiCsrfToken()
	if err != nil {
		m.fail(StatusError, err)
		return "", err
	}

	now := m.now()
	pending := models.PendingAuthorization{
		State:        state,
		CodeVerifier: verifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.pendingTTL),
	}
	if err := m.pending.Put(ctx, pending); err != nil {
		return "", fmt.Errorf("failed to store pending authorization: %w", err)
	}

	authURL := m.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	)

	m.logger.Info("authorization request prepared", "expires_at", pending.ExpiresAt.Format("15:04:05"))
	return authURL, nil
}

// Login prepares an authorization request and hands its URL to the configured navigator.
func (m *Manager) Login(ctx context.Context) error {
	authURL, err := m.BeginLogin(ctx)
	if err != nil {
		return err
	}
	if m.navigate == nil {
		return fmt.Errorf("%w: no navigator configured, visit %s", shared.ErrInvalidConfig, authURL)
	}
	return m.navigate(authURL)
}

// HandleCallback completes the authorization code flow.
//
// The pending authorization is consumed before anything else, so a repeated callback fails with
// [shared.ErrNoPendingAuthorization] and never reaches the token endpoint. On success the session is
// Authenticated. On failure nothing is persisted and the session ends in Error.
func (m *Manager) HandleCallback(ctx context.Context, params CallbackParams) error {
	pending, err := m.pending.Take(ctx)
	if err != nil {
		m.mu.Lock()
		if m.cred == nil || m.profile == nil {
			m.failLocked(StatusError, err)
			m.publishLocked()
		}
		m.mu.Unlock()
		m.logger.Warn("callback without pending authorization", "err", err)
		return err
	}

	if subtle.ConstantTimeCompare([]byte(params.State), []byte(pending.State)) != 1 {
		err := fmt.Errorf("%w: callback state does not match the authorization request", shared.ErrCsrfMismatch)
		m.fail(StatusError, err)
		m.logger.Warn("rejected callback", "reason", ReasonCsrfMismatch)
		return err
	}

	if params.Error != "" {
		err := fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, describeProviderError(params))
		m.fail(StatusError, err)
		m.logger.Warn("authorization denied", "error", params.Error)
		return err
	}

	if params.Code == "" {
		err := fmt.Errorf("%w: callback carried no code", shared.ErrTokenExchangeFailed)
		m.fail(StatusError, err)
		return err
	}

	epoch := m.begin()
	defer m.end()

	cred, err := m.exchange(ctx, params.Code, pending.CodeVerifier)
	if err != nil {
		m.failUnder(epoch, StatusError, err)
		m.logger.Error("token exchange failed", "err", err)
		return err
	}

	profile, cred, err := m.confirmExchange(ctx, cred)
	if err != nil {
		m.failUnder(epoch, StatusError, err)
		m.logger.Error("profile fetch after exchange failed", "err", err)
		return err
	}

	if err := m.credentials.Save(ctx, cred); err != nil {
		err = fmt.Errorf("failed to persist credential: %w", err)
		m.failUnder(epoch, StatusError, err)
		return err
	}

	if !m.authenticate(epoch, cred, profile) {
		m.discard(ctx)
		return fmt.Errorf("%w: session ended during login", shared.ErrNotAuthenticated)
	}

	m.logger.Info("logged in", "user", profile.ID)
	return nil
}

// exchange trades an authorization code and its verifier for a credential.
func (m *Manager) exchange(ctx context.Context, code, verifier string) (models.Credential, error) {
	tctx, cancel := m.tokenContext(ctx)
	defer cancel()

	tok, err := m.oauth.Exchange(tctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return models.Credential{}, classifyTokenError(shared.ErrTokenExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return models.Credential{}, fmt.Errorf("%w: response carried no access token", shared.ErrTokenExchangeFailed)
	}

	return m.credentialFrom(tok, ""), nil
}

// confirmExchange loads the profile for a freshly exchanged credential. A rejected token gets one refresh
// with the credential's own refresh token and one retry; the credential that succeeded is returned.
func (m *Manager) confirmExchange(ctx context.Context, cred models.Credential) (models.Profile, models.Credential, error) {
	profile, err := m.profiles.FetchProfile(ctx, cred.AccessToken)
	if err == nil {
		return profile, cred, nil
	}
	if !errors.Is(err, shared.ErrTokenRejected) || !cred.CanRefresh() {
		return models.Profile{}, models.Credential{}, fmt.Errorf("%w: %w", shared.ErrProfileFetchFailed, err)
	}

	m.logger.Info("new token rejected, attempting one refresh")
	next, err := m.redeem(ctx, cred.RefreshToken)
	if err != nil {
		return models.Profile{}, models.Credential{}, fmt.Errorf("%w: %w", shared.ErrProfileFetchFailed, err)
	}

	profile, err = m.profiles.FetchProfile(ctx, next.AccessToken)
	if err != nil {
		return models.Profile{}, models.Credential{}, fmt.Errorf("%w: %w", shared.ErrProfileFetchFailed, err)
	}
	return profile, next, nil
}

// authenticate commits cred and profile as one transition and arms the proactive refresh.
// It reports false when the session was logged out after epoch began.
func (m *Manager) authenticate(epoch uint64, cred models.Credential, profile models.Profile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return false
	}
	m.cred = &cred
	m.profile = &profile
	m.failure = nil
	m.armTimerLocked()
	m.publishLocked()
	return true
}

func (m *Manager) fail(status Status, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLocked(status, err)
	m.publishLocked()
}

// failUnder records a failure unless the session moved to a newer epoch.
func (m *Manager) failUnder(epoch uint64, status Status, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.failLocked(status, err)
	m.publishLocked()
}

// Logout clears the session from any state and always leaves it Unauthenticated.
//
// Store errors are returned after the in-memory state has been cleared.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.epoch++
	m.stopTimerLocked()
	m.cred = nil
	m.profile = nil
	m.failure = nil
	m.busy = 0
	m.publishLocked()
	m.mu.Unlock()

	err := errors.Join(m.credentials.Delete(ctx), m.pending.Clear(ctx))
	if err != nil {
		m.logger.Error("failed to clear stores on logout", "err", err)
		return fmt.Errorf("failed to clear session storage: %w", err)
	}

	m.logger.Info("logged out")
	return nil
}

func describeProviderError(p CallbackParams) string {
	if p.ErrorDescription != "" {
		return p.Error + ": " + p.ErrorDescription
	}
	return p.Error
}
