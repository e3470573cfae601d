// Package source loads prompt bundles from the configured stores: a
// local agentsmith directory, the remote Postgres store, or the service
// API. A coordinator applies the configured fallback strategy between
// them.
package source

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
)

// Bundle is everything one fetch recovers: the prompt, the concrete
// resolved version, its declared variables, and enough project/org
// scoping to authorize and execute.
type Bundle struct {
	Prompt         models.Prompt
	Version        models.PromptVersion
	Variables      []models.PromptVariable
	ProjectID      uuid.UUID
	OrganizationID uuid.UUID
	GlobalContext  map[string]any
}

// Source is one place prompt data can be loaded from.
type Source interface {
	Name() string
	Fetch(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error)
}

// Config is a version's stored completion parameters.
type Config struct {
	Models      []string `json:"models,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// DecodeConfig parses a version's config column, tolerating null.
func DecodeConfig(raw json.RawMessage) (Config, error) {
	var cfg Config
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge applies caller overrides on top of the stored config.
func (c Config) Merge(override *Config) Config {
	if override == nil {
		return c
	}
	merged := c
	if len(override.Models) > 0 {
		merged.Models = override.Models
	}
	if override.Provider != "" {
		merged.Provider = override.Provider
	}
	if override.Temperature > 0 {
		merged.Temperature = override.Temperature
	}
	if override.MaxTokens > 0 {
		merged.MaxTokens = override.MaxTokens
	}
	if override.TopP > 0 {
		merged.TopP = override.TopP
	}
	if len(override.Stop) > 0 {
		merged.Stop = override.Stop
	}
	return merged
}
