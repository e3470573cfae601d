package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExecutionLog is the durable audit record of one completion request.
// Created before dispatch, finalized exactly once afterwards.
type ExecutionLog struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ProjectID   uuid.UUID       `json:"project_id" db:"project_id"`
	VersionID   uuid.UUID       `json:"version_id" db:"version_id"`
	Variables   json.RawMessage `json:"variables" db:"variables"`
	RawInput    json.RawMessage `json:"raw_input" db:"raw_input"`
	RawOutput   json.RawMessage `json:"raw_output,omitempty" db:"raw_output"`
	Error       *string         `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}
