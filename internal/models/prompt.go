package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Version status lifecycle. Only PUBLISHED versions participate in
// "latest" resolution.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusArchived  = "ARCHIVED"
)

// Variable value types. Advisory metadata for callers; the engine never
// coerces supplied values.
const (
	VarTypeString  = "STRING"
	VarTypeNumber  = "NUMBER"
	VarTypeBoolean = "BOOLEAN"
	VarTypeJSON    = "JSON"
)

type Prompt struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PromptVersion struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	PromptID    uuid.UUID       `json:"prompt_id" db:"prompt_id"`
	Version     string          `json:"version" db:"version"`
	Status      string          `json:"status" db:"status"`
	Content     string          `json:"content" db:"content"`
	Config      json.RawMessage `json:"config" db:"config"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty" db:"published_at"`
}

type PromptVariable struct {
	ID           uuid.UUID `json:"id" db:"id"`
	VersionID    uuid.UUID `json:"version_id" db:"version_id"`
	Name         string    `json:"name" db:"name"`
	Type         string    `json:"type" db:"type"`
	Required     bool      `json:"required" db:"required"`
	DefaultValue *string   `json:"default_value,omitempty" db:"default_value"`
}

// ChatMessage is one role-tagged entry of a chat-style prompt body.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
