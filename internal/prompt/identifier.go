package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// LatestVersion is the identifier token that selects the newest
// published version by semantic-version ordering.
const LatestVersion = "latest"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Identifier names one concrete template version to load.
type Identifier struct {
	Slug    string
	Version string // concrete semver or LatestVersion
}

func (id Identifier) String() string {
	return id.Slug + "@" + id.Version
}

func (id Identifier) IsLatest() bool {
	return id.Version == LatestVersion
}

// ParseIdentifier splits "slug" or "slug@version" into its parts. A
// missing version token defaults to latest.
func ParseIdentifier(s string) (Identifier, error) {
	slug, version := s, LatestVersion
	if at := strings.IndexByte(s, '@'); at >= 0 {
		slug, version = s[:at], s[at+1:]
	}

	if !slugPattern.MatchString(slug) {
		return Identifier{}, fmt.Errorf("invalid prompt slug %q", slug)
	}
	if version != LatestVersion {
		if _, err := semver.StrictNewVersion(version); err != nil {
			return Identifier{}, fmt.Errorf("invalid version %q for slug %q: %w", version, slug, err)
		}
	}

	return Identifier{Slug: slug, Version: version}, nil
}
