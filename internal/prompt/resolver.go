package prompt

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/chad-syntax/agentsmith-sub001/internal/models"
)

// LatestPublished selects the newest PUBLISHED version by semantic
// version ordering (numeric per component, pre-release lowers
// precedence). Returns ErrNotFound when no published version exists.
func LatestPublished(slug string, versions []models.PromptVersion) (*models.PromptVersion, error) {
	type candidate struct {
		sv  *semver.Version
		rec models.PromptVersion
	}

	var candidates []candidate
	for _, v := range versions {
		if v.Status != models.StatusPublished {
			continue
		}
		sv, err := semver.NewVersion(v.Version)
		if err != nil {
			return nil, fmt.Errorf("stored version %q of %q is not valid semver: %w", v.Version, slug, err)
		}
		candidates = append(candidates, candidate{sv: sv, rec: v})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no published version found for %q: %w", slug, ErrNotFound)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].sv.GreaterThan(candidates[j].sv)
	})

	latest := candidates[0].rec
	return &latest, nil
}

// ExactVersion finds the version record matching a concrete version
// string. Returns ErrNotFound when absent.
func ExactVersion(slug, version string, versions []models.PromptVersion) (*models.PromptVersion, error) {
	for _, v := range versions {
		if v.Version == version {
			rec := v
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("version %q of %q: %w", version, slug, ErrNotFound)
}

// Resolve applies an identifier against a fetched version set.
func Resolve(id Identifier, versions []models.PromptVersion) (*models.PromptVersion, error) {
	if id.IsLatest() {
		return LatestPublished(id.Slug, versions)
	}
	return ExactVersion(id.Slug, id.Version, versions)
}
