package source

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
)

type fakeSource struct {
	name   string
	bundle *Bundle
	err    error
	calls  int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(_ context.Context, _ uuid.UUID, _ prompt.Identifier) (*Bundle, error) {
	s.calls++
	return s.bundle, s.err
}

func okSource(name, version string) *fakeSource {
	return &fakeSource{name: name, bundle: &Bundle{
		Version: models.PromptVersion{Version: version},
	}}
}

func failSource(name string, err error) *fakeSource {
	return &fakeSource{name: name, err: err}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyRemoteFallback, s)

	_, err = ParseStrategy("both-at-once")
	assert.Error(t, err)
}

func TestCoordinatorFSOnly(t *testing.T) {
	id := prompt.Identifier{Slug: "greeting", Version: "latest"}

	t.Run("success never touches remote", func(t *testing.T) {
		fs := okSource("fs", "1.0.0")
		remote := okSource("remote", "2.0.0")
		c := NewCoordinator(StrategyFSOnly, fs, remote)

		bundle, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", bundle.Version.Version)
		assert.Equal(t, 0, remote.calls)
	})

	t.Run("failure is terminal with strategy message", func(t *testing.T) {
		fs := failSource("fs", errors.New("no prompt.json"))
		remote := okSource("remote", "2.0.0")
		c := NewCoordinator(StrategyFSOnly, fs, remote)

		_, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize from file system (fs-only strategy)")
		assert.Equal(t, 0, remote.calls)
	})
}

func TestCoordinatorRemoteOnly(t *testing.T) {
	id := prompt.Identifier{Slug: "greeting", Version: "latest"}

	t.Run("success never touches fs", func(t *testing.T) {
		fs := okSource("fs", "1.0.0")
		remote := okSource("remote", "2.0.0")
		c := NewCoordinator(StrategyRemoteOnly, fs, remote)

		bundle, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", bundle.Version.Version)
		assert.Equal(t, 0, fs.calls)
	})

	t.Run("failure is terminal with strategy message", func(t *testing.T) {
		fs := okSource("fs", "1.0.0")
		remote := failSource("remote", errors.New("connection refused"))
		c := NewCoordinator(StrategyRemoteOnly, fs, remote)

		_, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize from remote (remote-only strategy)")
		assert.Equal(t, 0, fs.calls)
	})
}

func TestCoordinatorRemoteFallback(t *testing.T) {
	id := prompt.Identifier{Slug: "greeting", Version: "latest"}

	t.Run("local hit short-circuits remote", func(t *testing.T) {
		fs := okSource("fs", "1.0.0")
		remote := okSource("remote", "2.0.0")
		c := NewCoordinator(StrategyRemoteFallback, fs, remote)

		bundle, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", bundle.Version.Version)
		assert.Equal(t, 0, remote.calls)
	})

	t.Run("local miss falls through to remote", func(t *testing.T) {
		fs := failSource("fs", errors.New("cache miss"))
		remote := okSource("remote", "2.0.0")
		c := NewCoordinator(StrategyRemoteFallback, fs, remote)

		bundle, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", bundle.Version.Version)
	})

	t.Run("both failing surfaces the remote error", func(t *testing.T) {
		fs := failSource("fs", errors.New("cache miss"))
		remoteErr := errors.New("connection refused")
		remote := failSource("remote", remoteErr)
		c := NewCoordinator(StrategyRemoteFallback, fs, remote)

		_, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, remoteErr)

		var stratErr *StrategyError
		require.True(t, errors.As(err, &stratErr))
		assert.Equal(t, StrategyRemoteFallback, stratErr.Strategy)
	})
}

func TestCoordinatorFSFallback(t *testing.T) {
	id := prompt.Identifier{Slug: "greeting", Version: "latest"}

	t.Run("remote hit short-circuits fs", func(t *testing.T) {
		fs := okSource("fs", "1.0.0")
		remote := okSource("remote", "2.0.0")
		c := NewCoordinator(StrategyFSFallback, fs, remote)

		bundle, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", bundle.Version.Version)
		assert.Equal(t, 0, fs.calls)
	})

	t.Run("remote failure falls back to fs", func(t *testing.T) {
		fs := okSource("fs", "1.0.0")
		remote := failSource("remote", errors.New("connection refused"))
		c := NewCoordinator(StrategyFSFallback, fs, remote)

		bundle, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", bundle.Version.Version)
	})

	t.Run("both failing reports both", func(t *testing.T) {
		fs := failSource("fs", errors.New("no prompt.json"))
		remote := failSource("remote", errors.New("connection refused"))
		c := NewCoordinator(StrategyFSFallback, fs, remote)

		_, err := c.Fetch(context.Background(), uuid.Nil, id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize from both remote and file system")
		assert.Contains(t, err.Error(), "connection refused")
		assert.Contains(t, err.Error(), "no prompt.json")
	})
}

func TestConfigMerge(t *testing.T) {
	stored := Config{Models: []string{"gpt-4o"}, Temperature: 0.7, MaxTokens: 512}

	t.Run("nil override keeps stored", func(t *testing.T) {
		merged := stored.Merge(nil)
		assert.Equal(t, []string{"gpt-4o"}, merged.Models)
		assert.Equal(t, 0.7, merged.Temperature)
	})

	t.Run("override wins field-wise", func(t *testing.T) {
		merged := stored.Merge(&Config{Temperature: 0.1})
		assert.Equal(t, 0.1, merged.Temperature)
		assert.Equal(t, []string{"gpt-4o"}, merged.Models)
		assert.Equal(t, 512, merged.MaxTokens)
	})
}
