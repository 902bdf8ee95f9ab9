package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// MemoryCredentialStore is an in-process [models.CredentialStore].
//
// It keeps the same epoch-second expiry precision as [CredentialRepository].
type MemoryCredentialStore struct {
	mu   sync.Mutex
	cred *models.Credential
}

var _ models.CredentialStore = (*MemoryCredentialStore)(nil)

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Load(ctx context.Context) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return models.Credential{}, shared.ErrCredentialNotFound
	}
	return *s.cred, nil
}

func (s *MemoryCredentialStore) Save(ctx context.Context, cred models.Credential) error {
	if cred.AccessToken == "" {
		return fmt.Errorf("%w: credential without access token", shared.ErrInvalidInput)
	}
	cred.ExpiresAt = time.Unix(cred.ExpiresAt.Unix(), 0)

	s.mu.Lock()
	s.cred = &cred
	s.mu.Unlock()
	return nil
}

func (s *MemoryCredentialStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
	return nil
}

// MemoryPendingStore is an in-process [models.PendingStore].
type MemoryPendingStore struct {
	mu      sync.Mutex
	pending *models.PendingAuthorization
	now     func() time.Time
}

var _ models.PendingStore = (*MemoryPendingStore)(nil)

func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{now: time.Now}
}

func (s *MemoryPendingStore) Put(ctx context.Context, p models.PendingAuthorization) error {
	s.mu.Lock()
	s.pending = &p
	s.mu.Unlock()
	return nil
}

func (s *MemoryPendingStore) Take(ctx context.Context) (models.PendingAuthorization, error) {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p == nil {
		return models.PendingAuthorization{}, shared.ErrNoPendingAuthorization
	}
	if !s.now().Before(p.ExpiresAt) {
		return models.PendingAuthorization{}, fmt.Errorf("%w: authorization request expired", shared.ErrNoPendingAuthorization)
	}
	return *p, nil
}

func (s *MemoryPendingStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return nil
}
