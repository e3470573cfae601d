package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
)

// RemoteSource loads bundles from the Postgres store, joining version ->
// prompt -> project -> organization so one fetch also recovers the
// scoping needed for execution.
type RemoteSource struct {
	db *pgxpool.Pool
}

func NewRemoteSource(db *pgxpool.Pool) *RemoteSource {
	return &RemoteSource{db: db}
}

func (s *RemoteSource) Name() string { return "remote" }

func (s *RemoteSource) Fetch(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error) {
	query := `SELECT pv.id, pv.prompt_id, pv.version, pv.status, pv.content, pv.config, pv.created_at, pv.published_at,
	                 p.id, p.project_id, p.name, p.slug, p.created_at,
	                 pr.id, pr.organization_id, pr.global_context
	          FROM prompt_versions pv
	          JOIN prompts p ON p.id = pv.prompt_id
	          JOIN projects pr ON pr.id = p.project_id
	          WHERE p.slug = $1 AND p.project_id = $2`
	args := []any{id.Slug, projectID}

	if id.IsLatest() {
		query += " AND pv.status = $3"
		args = append(args, models.StatusPublished)
	} else {
		query += " AND pv.version = $3"
		args = append(args, id.Version)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prompt versions: %w", err)
	}
	defer rows.Close()

	var (
		bundle   Bundle
		versions []models.PromptVersion
		globals  json.RawMessage
	)
	for rows.Next() {
		var v models.PromptVersion
		if err := rows.Scan(
			&v.ID, &v.PromptID, &v.Version, &v.Status, &v.Content, &v.Config, &v.CreatedAt, &v.PublishedAt,
			&bundle.Prompt.ID, &bundle.Prompt.ProjectID, &bundle.Prompt.Name, &bundle.Prompt.Slug, &bundle.Prompt.CreatedAt,
			&bundle.ProjectID, &bundle.OrganizationID, &globals,
		); err != nil {
			return nil, fmt.Errorf("scan prompt version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("prompt %q in project %s: %w", id.String(), projectID, prompt.ErrNotFound)
	}

	resolved, err := prompt.Resolve(id, versions)
	if err != nil {
		return nil, err
	}
	bundle.Version = *resolved

	if len(globals) > 0 && string(globals) != "null" {
		if err := json.Unmarshal(globals, &bundle.GlobalContext); err != nil {
			return nil, fmt.Errorf("parse project global context: %w", err)
		}
	}

	variables, err := s.fetchVariables(ctx, resolved.ID)
	if err != nil {
		return nil, err
	}
	bundle.Variables = variables

	return &bundle, nil
}

func (s *RemoteSource) fetchVariables(ctx context.Context, versionID uuid.UUID) ([]models.PromptVariable, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, version_id, name, type, required, default_value
		 FROM prompt_variables WHERE version_id = $1 ORDER BY name`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query prompt variables: %w", err)
	}
	defer rows.Close()

	var variables []models.PromptVariable
	for rows.Next() {
		var v models.PromptVariable
		if err := rows.Scan(&v.ID, &v.VersionID, &v.Name, &v.Type, &v.Required, &v.DefaultValue); err != nil {
			return nil, fmt.Errorf("scan prompt variable: %w", err)
		}
		variables = append(variables, v)
	}
	return variables, rows.Err()
}

// PromptSummary is the listing shape: prompt metadata plus the set of
// versions the dashboard-facing list endpoint shows.
type PromptSummary struct {
	Prompt   models.Prompt `json:"prompt"`
	Versions []VersionInfo `json:"versions"`
}

type VersionInfo struct {
	ID      uuid.UUID `json:"id"`
	Version string    `json:"version"`
	Status  string    `json:"status"`
}

func (s *RemoteSource) ListPrompts(ctx context.Context, projectID uuid.UUID) ([]PromptSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.id, p.project_id, p.name, p.slug, p.created_at,
		        pv.id, pv.version, pv.status
		 FROM prompts p
		 LEFT JOIN prompt_versions pv ON pv.prompt_id = p.id
		 WHERE p.project_id = $1
		 ORDER BY p.slug, pv.created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	var (
		summaries []PromptSummary
		index     = map[uuid.UUID]int{}
	)
	for rows.Next() {
		var (
			p models.Prompt
			v struct {
				ID      *uuid.UUID
				Version *string
				Status  *string
			}
		)
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Slug, &p.CreatedAt, &v.ID, &v.Version, &v.Status); err != nil {
			return nil, fmt.Errorf("scan prompt summary: %w", err)
		}
		i, ok := index[p.ID]
		if !ok {
			i = len(summaries)
			index[p.ID] = i
			summaries = append(summaries, PromptSummary{Prompt: p})
		}
		if v.ID != nil {
			summaries[i].Versions = append(summaries[i].Versions, VersionInfo{ID: *v.ID, Version: *v.Version, Status: *v.Status})
		}
	}
	return summaries, rows.Err()
}

// IdentifierForVersion maps a version UUID to its slug@version pair so
// version-addressed execution reuses the identifier-based fetch path.
func (s *RemoteSource) IdentifierForVersion(ctx context.Context, projectID, versionID uuid.UUID) (prompt.Identifier, error) {
	var id prompt.Identifier
	err := s.db.QueryRow(ctx,
		`SELECT p.slug, pv.version
		 FROM prompt_versions pv
		 JOIN prompts p ON p.id = pv.prompt_id
		 WHERE pv.id = $1 AND p.project_id = $2`,
		versionID, projectID,
	).Scan(&id.Slug, &id.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return id, fmt.Errorf("prompt version %s: %w", versionID, prompt.ErrNotFound)
	}
	if err != nil {
		return id, fmt.Errorf("lookup prompt version %s: %w", versionID, err)
	}
	return id, nil
}
