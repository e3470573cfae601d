package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecretStore resolves named per-organization secrets, e.g. completion
// provider credentials. A missing secret returns ("", nil): absence is
// an expected precondition failure, not an I/O error.
type SecretStore interface {
	GetOrganizationKeySecret(ctx context.Context, orgID uuid.UUID, name string) (string, error)
}

// VaultStore reads the organization_keys table.
type VaultStore struct {
	db *pgxpool.Pool
}

func NewVaultStore(db *pgxpool.Pool) *VaultStore {
	return &VaultStore{db: db}
}

func (s *VaultStore) GetOrganizationKeySecret(ctx context.Context, orgID uuid.UUID, name string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM organization_keys WHERE organization_id = $1 AND name = $2`,
		orgID, name,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get organization key %q: %w", name, err)
	}
	return value, nil
}
