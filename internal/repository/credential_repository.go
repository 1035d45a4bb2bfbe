package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-merit/internal/models"
)

// CredentialRepository stores the single operator password hash.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository constructs the repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the stored credential or sql.ErrNoRows when none was saved yet.
func (r *CredentialRepository) Get(ctx context.Context) (*models.Credential, error) {
	var cred models.Credential
	if err := r.db.GetContext(ctx, &cred, "SELECT password_hash, updated_at FROM credentials WHERE id = 1"); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Upsert stores the password hash.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *models.Credential) error {
	query := `INSERT INTO credentials (id, password_hash, updated_at) VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, cred.PasswordHash, cred.UpdatedAt); err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}
