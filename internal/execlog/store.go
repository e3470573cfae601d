// Package execlog persists the durable audit record of each completion
// request: one row created before dispatch and finalized exactly once
// afterwards.
package execlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
)

var ErrLogNotFound = errors.New("execution log not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CreateEntry captures the raw request before dispatch so every call
// has an audit trail even when the provider call fails or times out.
type CreateEntry struct {
	ProjectID uuid.UUID
	VersionID uuid.UUID
	Variables any
	RawInput  any
}

func (s *Store) Create(ctx context.Context, entry CreateEntry) (uuid.UUID, error) {
	variables, err := json.Marshal(entry.Variables)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal variables snapshot: %w", err)
	}
	rawInput, err := json.Marshal(entry.RawInput)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal raw input: %w", err)
	}

	var id uuid.UUID
	err = s.db.QueryRow(ctx,
		`INSERT INTO execution_logs (project_id, version_id, variables, raw_input)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		entry.ProjectID, entry.VersionID, variables, rawInput,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert execution log: %w", err)
	}
	return id, nil
}

// Finalize writes the completion payload or error marker. The guard on
// completed_at makes the update idempotent: a second finalize of the
// same row is a logged no-op, never a double write.
func (s *Store) Finalize(ctx context.Context, id uuid.UUID, rawOutput any, execErr *string) error {
	output, err := json.Marshal(rawOutput)
	if err != nil {
		return fmt.Errorf("marshal raw output: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE execution_logs
		 SET raw_output = $1, error = $2, completed_at = now()
		 WHERE id = $3 AND completed_at IS NULL`,
		output, execErr, id,
	)
	if err != nil {
		return fmt.Errorf("finalize execution log %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		slog.Warn("execution log already finalized", "log_id", id)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, projectID, id uuid.UUID) (*models.ExecutionLog, error) {
	var l models.ExecutionLog
	err := s.db.QueryRow(ctx,
		`SELECT id, project_id, version_id, variables, raw_input, raw_output, error, created_at, completed_at
		 FROM execution_logs WHERE id = $1 AND project_id = $2`,
		id, projectID,
	).Scan(&l.ID, &l.ProjectID, &l.VersionID, &l.Variables, &l.RawInput, &l.RawOutput, &l.Error, &l.CreatedAt, &l.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("execution log %s: %w", id, ErrLogNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get execution log: %w", err)
	}
	return &l, nil
}
