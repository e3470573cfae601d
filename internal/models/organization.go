package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Project scopes prompts and carries the project-wide global context
// injected into every template under the "global" namespace.
type Project struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	Name           string          `json:"name" db:"name"`
	GlobalContext  json.RawMessage `json:"global_context" db:"global_context"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

type APIKey struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	ProjectID      uuid.UUID  `json:"project_id" db:"project_id"`
	KeyHash        string     `json:"-" db:"key_hash"`
	Name           string     `json:"name" db:"name"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
