package prompt

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Include directives embed one template's rendered content in another:
// {% include "slug" %} (implicit latest) or {% include "slug:1.2.0" %}.
var includePattern = regexp.MustCompile(`\{%-?\s*include\s+(?:"([^"]*)"|'([^']*)')\s*-?%\}`)

// IncludedVersion is one resolved include target.
type IncludedVersion struct {
	Slug    string
	Version string
	Content string
}

// IncludeFetcher loads a single include target. It must return
// ErrNotFound (wrapped or bare) for unknown slugs/versions.
type IncludeFetcher func(ctx context.Context, id Identifier) (*IncludedVersion, error)

// IncludeResult is the resolved include closure of one template body,
// plus the directives that could not be resolved.
type IncludeResult struct {
	Versions    []IncludedVersion
	Invalid     []string
	NotExisting []string

	byName map[string]string
}

// ResolveIncludes walks the include closure of body depth-first,
// fetching every referenced template up front so that compilation needs
// no I/O. A slug reappearing on its own resolution path fails with
// IncludeCycleError; a shared leaf reached via two distinct paths is
// resolved once and legal.
func ResolveIncludes(ctx context.Context, rootSlug, body string, fetch IncludeFetcher) (*IncludeResult, error) {
	r := &IncludeResult{byName: make(map[string]string)}
	done := make(map[string]bool)
	if err := r.walk(ctx, body, []string{rootSlug}, done, fetch); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *IncludeResult) walk(ctx context.Context, body string, onPath []string, done map[string]bool, fetch IncludeFetcher) error {
	for _, ref := range parseIncludeRefs(body) {
		id, err := parseIncludeRef(ref)
		if err != nil {
			r.Invalid = appendUnique(r.Invalid, ref)
			continue
		}

		for _, ancestor := range onPath {
			if ancestor == id.Slug {
				return &IncludeCycleError{Path: append(append([]string{}, onPath...), id.Slug)}
			}
		}

		if done[ref] {
			continue
		}

		inc, err := fetch(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				r.NotExisting = appendUnique(r.NotExisting, id.Slug)
				continue
			}
			return fmt.Errorf("resolve include %q: %w", ref, err)
		}

		done[ref] = true
		r.Versions = append(r.Versions, *inc)
		r.byName[ref] = inc.Content
		r.byName[inc.Slug+":"+inc.Version] = inc.Content

		if err := r.walk(ctx, inc.Content, append(onPath, inc.Slug), done, fetch); err != nil {
			return err
		}
	}
	return nil
}

// Lookup is the synchronous loader contract handed to the compiler.
func (r *IncludeResult) Lookup(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	content, ok := r.byName[name]
	return content, ok
}

func parseIncludeRefs(body string) []string {
	matches := includePattern.FindAllStringSubmatch(body, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		ref := m[1]
		if ref == "" {
			ref = m[2]
		}
		refs = append(refs, ref)
	}
	return refs
}

// parseIncludeRef splits "slug" or "slug:version" directive syntax.
func parseIncludeRef(ref string) (Identifier, error) {
	slug, version := ref, LatestVersion
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		slug, version = ref[:i], ref[i+1:]
	}
	return ParseIdentifier(slug + "@" + version)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
