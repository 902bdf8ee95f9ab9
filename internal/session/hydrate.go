package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Start hydrates the session from the credential store and settles the initial Authenticating state.
//
// A stored credential is confirmed with a profile fetch before the session reports Authenticated. An expired
// credential is refreshed first. Network failures leave the stored credential in place and end in
// Error(network_unavailable); rejections clear it and end in Unauthenticated.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.busy++
		m.failure = nil
		m.publishLocked()
	}
	m.started = true
	epoch := m.epoch
	m.mu.Unlock()
	defer m.end()

	cred, err := m.credentials.Load(ctx)
	if errors.Is(err, shared.ErrCredentialNotFound) {
		m.logger.Debug("no stored credential")
		return nil
	}
	if err != nil {
		m.failUnder(epoch, StatusError, err)
		m.logger.Error("failed to load credential", "err", err)
		return err
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return nil
	}
	m.cred = &cred
	m.mu.Unlock()

	if cred.Expired(m.now()) {
		m.logger.Info("stored credential expired, refreshing")
		if cred, err = m.Refresh(ctx); err != nil {
			m.settleHydration(epoch, err)
			return err
		}
	}

	profile, err := m.fetchProfile(ctx, cred)
	if err != nil {
		m.settleHydration(epoch, err)
		return err
	}

	m.mu.Lock()
	if m.epoch != epoch || m.cred == nil {
		m.mu.Unlock()
		return nil
	}
	current := *m.cred
	m.mu.Unlock()

	if !m.authenticate(epoch, current, profile) {
		return nil
	}
	m.logger.Info("session restored", "user", profile.ID)
	return nil
}

// fetchProfile loads the profile for cred, refreshing once and retrying when the catalog rejects the token.
func (m *Manager) fetchProfile(ctx context.Context, cred models.Credential) (models.Profile, error) {
	profile, err := m.profiles.FetchProfile(ctx, cred.AccessToken)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, shared.ErrTokenRejected) {
		return models.Profile{}, fmt.Errorf("%w: %w", shared.ErrProfileFetchFailed, err)
	}

	m.logger.Info("stored token rejected, attempting one refresh")
	next, rerr := m.Refresh(ctx)
	if rerr != nil {
		return models.Profile{}, rerr
	}

	profile, err = m.profiles.FetchProfile(ctx, next.AccessToken)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: %w", shared.ErrProfileFetchFailed, err)
	}
	return profile, nil
}

// settleHydration records why hydration did not reach Authenticated. Refresh rejections have already
// cleared the session; everything else keeps the stored credential for a later retry.
func (m *Manager) settleHydration(epoch uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return
	}
	if m.failure != nil && m.failure.status == StatusUnauthenticated {
		return
	}
	m.cred = nil
	m.profile = nil
	m.failLocked(StatusError, err)
	m.logger.Warn("session not restored", "reason", m.failure.reason, "err", err)
}
