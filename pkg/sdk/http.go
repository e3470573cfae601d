package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

// HTTPSource loads bundles over the REST API. It satisfies the same
// contract as the database-backed source, so the strategy coordinator
// treats server and file system interchangeably. Project scoping is the
// API key's job; the projectID argument is ignored.
type HTTPSource struct {
	baseURL   string
	apiKey    string
	keyHeader string
	client    *http.Client
}

func NewHTTPSource(baseURL, apiKey string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL:   baseURL,
		apiKey:    apiKey,
		keyHeader: "X-API-Key",
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return "remote" }

type bundleResponse struct {
	Prompt        models.Prompt           `json:"prompt"`
	Version       models.PromptVersion    `json:"version"`
	Variables     []models.PromptVariable `json:"variables"`
	GlobalContext map[string]any          `json:"globalContext"`
}

func (s *HTTPSource) Fetch(ctx context.Context, _ uuid.UUID, id prompt.Identifier) (*source.Bundle, error) {
	var resp bundleResponse
	if err := s.getJSON(ctx, fmt.Sprintf("/api/v1/prompts/%s", id.String()), &resp); err != nil {
		return nil, err
	}
	return &source.Bundle{
		Prompt:        resp.Prompt,
		Version:       resp.Version,
		Variables:     resp.Variables,
		ProjectID:     resp.Prompt.ProjectID,
		GlobalContext: resp.GlobalContext,
	}, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(s.keyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, prompt.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
