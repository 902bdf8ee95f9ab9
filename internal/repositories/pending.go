package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// PendingRepository implements [models.PendingStore] on the single-row pending_authorizations table.
type PendingRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ models.PendingStore = (*PendingRepository)(nil)

// NewPendingRepository creates a new [PendingRepository] with the given database connection
func NewPendingRepository(db *sql.DB) *PendingRepository {
	return &PendingRepository{db: db, now: time.Now}
}

// Put replaces any outstanding authorization
func (r *PendingRepository) Put(ctx context.Context, p models.PendingAuthorization) error {
	query := `
		INSERT OR REPLACE INTO pending_authorizations (id, state, code_verifier, created_at, expires_at)
		VALUES (1, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, p.State, p.CodeVerifier, p.CreatedAt.Unix(), p.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store pending authorization: %w", err)
	}

	return nil
}

// Take reads and deletes the outstanding authorization inside one transaction.
//
// The row is deleted even when it turns out to be expired or unreadable.
func (r *PendingRepository) Take(ctx context.Context) (models.PendingAuthorization, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PendingAuthorization{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		p         models.PendingAuthorization
		createdAt int64
		expiresAt int64
	)

	query := `
		SELECT state, code_verifier, created_at, expires_at
		FROM pending_authorizations
		WHERE id = 1
	`

	err = tx.QueryRowContext(ctx, query).Scan(&p.State, &p.CodeVerifier, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PendingAuthorization{}, shared.ErrNoPendingAuthorization
	}
	readErr := err

	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_authorizations WHERE id = 1"); err != nil {
		return models.PendingAuthorization{}, fmt.Errorf("failed to delete pending authorization: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.PendingAuthorization{}, fmt.Errorf("failed to commit pending authorization read: %w", err)
	}

	if readErr != nil {
		return models.PendingAuthorization{}, fmt.Errorf("%w: unreadable authorization request: %w", shared.ErrNoPendingAuthorization, readErr)
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	p.ExpiresAt = time.Unix(expiresAt, 0)

	if !r.now().Before(p.ExpiresAt) {
		return models.PendingAuthorization{}, fmt.Errorf("%w: authorization request expired", shared.ErrNoPendingAuthorization)
	}

	return p, nil
}

// Clear removes any outstanding authorization
func (r *PendingRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM pending_authorizations"); err != nil {
		return fmt.Errorf("failed to clear pending authorizations: %w", err)
	}
	return nil
}
