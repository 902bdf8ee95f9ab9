package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// credentialStores returns both store implementations so behavior is checked against each.
func credentialStores(t *testing.T) map[string]models.CredentialStore {
	return map[string]models.CredentialStore{
		"sqlite": NewCredentialRepository(setupTestDB(t)),
		"memory": NewMemoryCredentialStore(),
	}
}

func pendingStores(t *testing.T, now func() time.Time) map[string]models.PendingStore {
	repo := NewPendingRepository(setupTestDB(t))
	repo.now = now
	mem := NewMemoryPendingStore()
	mem.now = now
	return map[string]models.PendingStore{"sqlite": repo, "memory": mem}
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Load without credential", func(t *testing.T) {
		for name, store := range credentialStores(t) {
			t.Run(name, func(t *testing.T) {
				if _, err := store.Load(ctx); !errors.Is(err, shared.ErrCredentialNotFound) {
					t.Errorf("expected ErrCredentialNotFound, got %v", err)
				}
			})
		}
	})

	t.Run("Save and Load round trip", func(t *testing.T) {
		for name, store := range credentialStores(t) {
			t.Run(name, func(t *testing.T) {
				want := models.Credential{
					AccessToken:  "BQD-access.token_with~unreserved",
					RefreshToken: "AQC-refresh/token+=",
					ExpiresAt:    time.Now().Add(time.Hour),
				}

				if err := store.Save(ctx, want); err != nil {
					t.Fatalf("failed to save credential: %v", err)
				}

				got, err := store.Load(ctx)
				if err != nil {
					t.Fatalf("failed to load credential: %v", err)
				}

				if got.AccessToken != want.AccessToken {
					t.Errorf("access token changed: got %q, want %q", got.AccessToken, want.AccessToken)
				}
				if got.RefreshToken != want.RefreshToken {
					t.Errorf("refresh token changed: got %q, want %q", got.RefreshToken, want.RefreshToken)
				}
				if diff := want.ExpiresAt.Sub(got.ExpiresAt); diff < 0 || diff >= time.Second {
					t.Errorf("expiry drifted by %v", diff)
				}
			})
		}
	})

	t.Run("Save replaces the whole record", func(t *testing.T) {
		for name, store := range credentialStores(t) {
			t.Run(name, func(t *testing.T) {
				first := models.Credential{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Hour)}
				second := models.Credential{AccessToken: "a2", ExpiresAt: time.Now().Add(2 * time.Hour)}

				if err := store.Save(ctx, first); err != nil {
					t.Fatalf("failed to save first credential: %v", err)
				}
				if err := store.Save(ctx, second); err != nil {
					t.Fatalf("failed to save second credential: %v", err)
				}

				got, err := store.Load(ctx)
				if err != nil {
					t.Fatalf("failed to load credential: %v", err)
				}
				if got.AccessToken != "a2" || got.RefreshToken != "" {
					t.Errorf("expected full replacement, got %+v", got)
				}
			})
		}
	})

	t.Run("Save rejects empty access token", func(t *testing.T) {
		for name, store := range credentialStores(t) {
			t.Run(name, func(t *testing.T) {
				err := store.Save(ctx, models.Credential{RefreshToken: "r"})
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})
		}
	})

	t.Run("Delete", func(t *testing.T) {
		for name, store := range credentialStores(t) {
			t.Run(name, func(t *testing.T) {
				if err := store.Save(ctx, models.Credential{AccessToken: "a", ExpiresAt: time.Now()}); err != nil {
					t.Fatalf("failed to save credential: %v", err)
				}
				if err := store.Delete(ctx); err != nil {
					t.Fatalf("failed to delete credential: %v", err)
				}
				if _, err := store.Load(ctx); !errors.Is(err, shared.ErrCredentialNotFound) {
					t.Errorf("expected ErrCredentialNotFound after delete, got %v", err)
				}
				if err := store.Delete(ctx); err != nil {
					t.Errorf("deleting twice should succeed, got %v", err)
				}
			})
		}
	})
}

func TestPendingStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	pending := func(state string) models.PendingAuthorization {
		return models.PendingAuthorization{
			State:        state,
			CodeVerifier: "verifier-" + state,
			CreatedAt:    base,
			ExpiresAt:    base.Add(10 * time.Minute),
		}
	}

	t.Run("Take consumes the record once", func(t *testing.T) {
		now = base
		for name, store := range pendingStores(t, clock) {
			t.Run(name, func(t *testing.T) {
				if err := store.Put(ctx, pending("s1")); err != nil {
					t.Fatalf("failed to put pending authorization: %v", err)
				}

				got, err := store.Take(ctx)
				if err != nil {
					t.Fatalf("failed to take pending authorization: %v", err)
				}
				if got.State != "s1" || got.CodeVerifier != "verifier-s1" {
					t.Errorf("unexpected pending authorization %+v", got)
				}

				if _, err := store.Take(ctx); !errors.Is(err, shared.ErrNoPendingAuthorization) {
					t.Errorf("expected ErrNoPendingAuthorization on second take, got %v", err)
				}
			})
		}
	})

	t.Run("Put replaces the outstanding record", func(t *testing.T) {
		now = base
		for name, store := range pendingStores(t, clock) {
			t.Run(name, func(t *testing.T) {
				if err := store.Put(ctx, pending("first")); err != nil {
					t.Fatalf("failed to put first: %v", err)
				}
				if err := store.Put(ctx, pending("second")); err != nil {
					t.Fatalf("failed to put second: %v", err)
				}

				got, err := store.Take(ctx)
				if err != nil {
					t.Fatalf("failed to take: %v", err)
				}
				if got.State != "second" {
					t.Errorf("expected second login to win, got %q", got.State)
				}
			})
		}
	})

	t.Run("Take deletes expired records", func(t *testing.T) {
		for name, store := range pendingStores(t, clock) {
			t.Run(name, func(t *testing.T) {
				now = base
				if err := store.Put(ctx, pending("old")); err != nil {
					t.Fatalf("failed to put: %v", err)
				}

				now = base.Add(11 * time.Minute)
				if _, err := store.Take(ctx); !errors.Is(err, shared.ErrNoPendingAuthorization) {
					t.Errorf("expected expired record to be rejected, got %v", err)
				}

				now = base
				if _, err := store.Take(ctx); !errors.Is(err, shared.ErrNoPendingAuthorization) {
					t.Errorf("expected expired record to be gone, got %v", err)
				}
			})
		}
	})

	t.Run("Take deletes unreadable records", func(t *testing.T) {
		now = base
		db := setupTestDB(t)
		repo := NewPendingRepository(db)
		repo.now = clock

		_, err := db.ExecContext(ctx, `
			INSERT INTO pending_authorizations (id, state, code_verifier, created_at, expires_at)
			VALUES (1, 's', 'v', 'yesterday', 'tomorrow')
		`)
		if err != nil {
			t.Fatalf("failed to insert corrupt row: %v", err)
		}

		if _, err := repo.Take(ctx); !errors.Is(err, shared.ErrNoPendingAuthorization) {
			t.Errorf("expected unreadable record to be rejected, got %v", err)
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_authorizations").Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 0 {
			t.Errorf("expected unreadable record deleted, found %d rows", count)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		now = base
		for name, store := range pendingStores(t, clock) {
			t.Run(name, func(t *testing.T) {
				if err := store.Put(ctx, pending("s")); err != nil {
					t.Fatalf("failed to put: %v", err)
				}
				if err := store.Clear(ctx); err != nil {
					t.Fatalf("failed to clear: %v", err)
				}
				if _, err := store.Take(ctx); !errors.Is(err, shared.ErrNoPendingAuthorization) {
					t.Errorf("expected ErrNoPendingAuthorization after clear, got %v", err)
				}
			})
		}
	})
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	stores, err := Open(context.Background(), shared.DatabaseConfig{Path: path, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to open stores: %v", err)
	}

	ctx := context.Background()
	cred := models.Credential{AccessToken: "persisted", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}
	if err := stores.Credentials.Save(ctx, cred); err != nil {
		t.Fatalf("failed to save credential: %v", err)
	}
	if err := stores.Close(); err != nil {
		t.Fatalf("failed to close stores: %v", err)
	}

	reopened, err := Open(context.Background(), shared.DatabaseConfig{Path: path})
	if err != nil {
		t.Fatalf("failed to reopen stores: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Credentials.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load credential after reopen: %v", err)
	}
	if got.AccessToken != "persisted" {
		t.Errorf("expected persisted token, got %q", got.AccessToken)
	}
}
