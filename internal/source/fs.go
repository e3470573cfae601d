package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
)

// FSSource reads prompt bundles from a local agentsmith directory:
//
//	<root>/<slug>/prompt.json            descriptor + latestVersion pointer
//	<root>/<slug>/<version>/version.json uuid, version, config
//	<root>/<slug>/<version>/content.j2   raw template body
//	<root>/<slug>/<version>/variables.json  optional declared variables
type FSSource struct {
	root string
}

func NewFSSource(root string) *FSSource {
	return &FSSource{root: root}
}

func (s *FSSource) Name() string { return "file system" }

type promptDescriptor struct {
	UUID          uuid.UUID `json:"uuid"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	LatestVersion string    `json:"latestVersion"`
}

type versionDescriptor struct {
	UUID    uuid.UUID       `json:"uuid"`
	Version string          `json:"version"`
	Config  json.RawMessage `json:"config"`
}

type variableDescriptor struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Required     bool    `json:"required"`
	DefaultValue *string `json:"default_value"`
}

func (s *FSSource) Fetch(ctx context.Context, _ uuid.UUID, id prompt.Identifier) (*Bundle, error) {
	desc, err := readJSONFile[promptDescriptor](filepath.Join(s.root, id.Slug, "prompt.json"))
	if err != nil {
		return nil, fmt.Errorf("read prompt descriptor for %q: %w", id.Slug, err)
	}

	version := id.Version
	if id.IsLatest() {
		if desc.LatestVersion == "" {
			return nil, fmt.Errorf("no published version found for %q: %w", id.Slug, prompt.ErrNotFound)
		}
		version = desc.LatestVersion
	}

	versionDir := filepath.Join(s.root, id.Slug, version)
	vdesc, err := readJSONFile[versionDescriptor](filepath.Join(versionDir, "version.json"))
	if err != nil {
		return nil, fmt.Errorf("read version descriptor for %s: %w", id.Slug+"@"+version, err)
	}

	content, err := os.ReadFile(filepath.Join(versionDir, "content.j2"))
	if err != nil {
		return nil, fmt.Errorf("read template content for %s: %w", id.Slug+"@"+version, err)
	}

	variables := s.readVariables(versionDir, vdesc.UUID)

	return &Bundle{
		Prompt: models.Prompt{
			ID:   desc.UUID,
			Name: desc.Name,
			Slug: desc.Slug,
		},
		Version: models.PromptVersion{
			ID:       vdesc.UUID,
			PromptID: desc.UUID,
			Version:  vdesc.Version,
			Status:   models.StatusPublished,
			Content:  string(content),
			Config:   vdesc.Config,
		},
		Variables: variables,
	}, nil
}

// readVariables treats a missing variables.json as zero variables; any
// other read or decode error is logged and also degraded to zero
// variables rather than failing the fetch.
func (s *FSSource) readVariables(versionDir string, versionID uuid.UUID) []models.PromptVariable {
	path := filepath.Join(versionDir, "variables.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read variables file, treating as none", "path", path, "error", err)
		}
		return nil
	}

	var descs []variableDescriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		slog.Warn("failed to parse variables file, treating as none", "path", path, "error", err)
		return nil
	}

	variables := make([]models.PromptVariable, len(descs))
	for i, d := range descs {
		variables[i] = models.PromptVariable{
			VersionID:    versionID,
			Name:         d.Name,
			Type:         d.Type,
			Required:     d.Required,
			DefaultValue: d.DefaultValue,
		}
	}
	return variables
}

// readJSONFile preserves fs.ErrNotExist in its error chain so callers
// can tell "not cached locally" apart from unexpected I/O failures.
func readJSONFile[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &v, nil
}

// IsNotCached reports whether an FS fetch failed only because the file
// is absent, which fallback strategies treat as "try the other source".
func IsNotCached(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
