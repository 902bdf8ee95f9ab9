package session

import (
	"context"
	"time"
)

const (
	// minRefreshDelay keeps a nearly expired credential from spinning the timer.
	minRefreshDelay = time.Second
	retryDelay      = 30 * time.Second
)

// armTimerLocked schedules the proactive refresh for the live credential, replacing any earlier timer.
func (m *Manager) armTimerLocked() {
	m.stopTimerLocked()
	if m.closed || m.cred == nil {
		return
	}
	m.scheduleLocked(m.refreshDelay(m.cred.ExpiresAt))
}

func (m *Manager) scheduleLocked(d time.Duration) {
	epoch := m.epoch
	m.timer = time.AfterFunc(d, func() { m.proactiveRefresh(epoch) })
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// refreshDelay is the configured fraction of the lifetime remaining until expiresAt.
func (m *Manager) refreshDelay(expiresAt time.Time) time.Duration {
	remaining := expiresAt.Sub(m.now())
	d := time.Duration(float64(remaining) * m.refreshFraction)
	if d < minRefreshDelay {
		return minRefreshDelay
	}
	return d
}

// proactiveRefresh runs on the timer goroutine. It does nothing when the session that armed it has ended.
func (m *Manager) proactiveRefresh(epoch uint64) {
	m.mu.Lock()
	if m.closed || m.epoch != epoch || m.cred == nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*m.requestTimeout)
	defer cancel()

	m.logger.Debug("proactive refresh fired")
	if _, err := m.Refresh(ctx); err != nil {
		// Rejections have already cleared the credential; anything else is retried.
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.closed && m.epoch == epoch && m.cred != nil {
			m.stopTimerLocked()
			m.scheduleLocked(min(retryDelay, m.refreshDelay(m.cred.ExpiresAt)))
		}
	}
}
