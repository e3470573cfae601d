package prompt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapFetcher serves includes from a fixed slug -> content map, always
// at version 1.0.0.
func mapFetcher(templates map[string]string) IncludeFetcher {
	return func(_ context.Context, id Identifier) (*IncludedVersion, error) {
		content, ok := templates[id.Slug]
		if !ok {
			return nil, fmt.Errorf("include %q: %w", id.Slug, ErrNotFound)
		}
		return &IncludedVersion{Slug: id.Slug, Version: "1.0.0", Content: content}, nil
	}
}

func TestResolveIncludes(t *testing.T) {
	ctx := context.Background()

	t.Run("transitive closure resolved up front", func(t *testing.T) {
		fetch := mapFetcher(map[string]string{
			"header": `Top {% include "footer" %}`,
			"footer": "Bottom",
		})
		result, err := ResolveIncludes(ctx, "root", `{% include "header" %}`, fetch)
		require.NoError(t, err)
		assert.Len(t, result.Versions, 2)

		content, ok := result.Lookup("header")
		assert.True(t, ok)
		assert.Contains(t, content, "Top")
	})

	t.Run("diamond is legal, resolved once", func(t *testing.T) {
		fetch := mapFetcher(map[string]string{
			"left":   `{% include "shared" %}`,
			"right":  `{% include "shared" %}`,
			"shared": "leaf",
		})
		result, err := ResolveIncludes(ctx, "root", `{% include "left" %}{% include "right" %}`, fetch)
		require.NoError(t, err)

		count := 0
		for _, v := range result.Versions {
			if v.Slug == "shared" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("cycle fails fast", func(t *testing.T) {
		fetch := mapFetcher(map[string]string{
			"a": `{% include "b" %}`,
			"b": `{% include "a" %}`,
		})
		_, err := ResolveIncludes(ctx, "root", `{% include "a" %}`, fetch)
		var cycleErr *IncludeCycleError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, []string{"root", "a", "b", "a"}, cycleErr.Path)
	})

	t.Run("self include is a cycle", func(t *testing.T) {
		fetch := mapFetcher(map[string]string{"root": ""})
		_, err := ResolveIncludes(ctx, "root", `{% include "root" %}`, fetch)
		var cycleErr *IncludeCycleError
		assert.True(t, errors.As(err, &cycleErr))
	})

	t.Run("unknown include collected, not fatal", func(t *testing.T) {
		result, err := ResolveIncludes(ctx, "root", `{% include "ghost" %}`, mapFetcher(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"ghost"}, result.NotExisting)
	})

	t.Run("malformed directive collected as invalid", func(t *testing.T) {
		result, err := ResolveIncludes(ctx, "root", `{% include "Bad Slug!" %}`, mapFetcher(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"Bad Slug!"}, result.Invalid)
	})

	t.Run("versioned directive syntax", func(t *testing.T) {
		fetch := func(_ context.Context, id Identifier) (*IncludedVersion, error) {
			if id.Version != "2.0.0" {
				return nil, fmt.Errorf("unexpected version %q", id.Version)
			}
			return &IncludedVersion{Slug: id.Slug, Version: id.Version, Content: "pinned"}, nil
		}
		result, err := ResolveIncludes(ctx, "root", `{% include "header:2.0.0" %}`, fetch)
		require.NoError(t, err)

		content, ok := result.Lookup("header:2.0.0")
		assert.True(t, ok)
		assert.Equal(t, "pinned", content)
	})

	t.Run("infrastructure failure aborts", func(t *testing.T) {
		fetch := func(_ context.Context, _ Identifier) (*IncludedVersion, error) {
			return nil, errors.New("connection refused")
		}
		_, err := ResolveIncludes(ctx, "root", `{% include "header" %}`, fetch)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}
