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

// CredentialRepository implements [models.CredentialStore] on the single-row credentials table.
//
// Expiry is stored as epoch seconds, so a round trip truncates sub-second precision.
type CredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ models.CredentialStore = (*CredentialRepository)(nil)

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db, now: time.Now}
}

// Load retrieves the stored credential
func (r *CredentialRepository) Load(ctx context.Context) (models.Credential, error) {
	query := `
		SELECT access_token, refresh_token, expires_at
		FROM credentials
		WHERE id = 1
	`

	var (
		accessToken  string
		refreshToken string
		expiresAt    int64
	)

	err := r.db.QueryRowContext(ctx, query).Scan(&accessToken, &refreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, shared.ErrCredentialNotFound
	}
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to query credential: %w", err)
	}

	return models.Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Unix(expiresAt, 0),
	}, nil
}

// Save replaces the stored credential in a single statement
func (r *CredentialRepository) Save(ctx context.Context, cred models.Credential) error {
	if cred.AccessToken == "" {
		return fmt.Errorf("%w: credential without access token", shared.ErrInvalidInput)
	}

	query := `
		INSERT OR REPLACE INTO credentials (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt.Unix(), r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

// Delete removes the stored credential
func (r *CredentialRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
