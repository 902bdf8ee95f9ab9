// package repositories provides sqlite and in-memory implementations of the session stores.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/moodmix/internal/shared"
)

// Stores bundles the durable credential store and the single-use pending store that share one database.
type Stores struct {
	DB          *sql.DB
	Credentials *CredentialRepository
	Pending     *PendingRepository
}

// Open opens the sqlite database at path, applies pending migrations and returns both stores.
func Open(ctx context.Context, cfg shared.DatabaseConfig) (*Stores, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if _, err := shared.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Stores{
		DB:          db,
		Credentials: NewCredentialRepository(db),
		Pending:     NewPendingRepository(db),
	}, nil
}

// Close closes the underlying database.
func (s *Stores) Close() error {
	return s.DB.Close()
}
