package source

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
)

// Strategy is the configured precedence between the local file system
// and the remote store. A closed set: adding a strategy means adding a
// handler, not another branch.
type Strategy string

const (
	// StrategyFSOnly reads the local agentsmith directory and nothing else.
	StrategyFSOnly Strategy = "fs-only"
	// StrategyRemoteOnly reads the remote store and nothing else.
	StrategyRemoteOnly Strategy = "remote-only"
	// StrategyRemoteFallback tries the file system first; the remote
	// store is consulted only when the local read fails. The default.
	StrategyRemoteFallback Strategy = "remote-fallback"
	// StrategyFSFallback tries the remote store first and falls back to
	// the file system.
	StrategyFSFallback Strategy = "fs-fallback"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFSOnly, StrategyRemoteOnly, StrategyRemoteFallback, StrategyFSFallback:
		return Strategy(s), nil
	case "":
		return StrategyRemoteFallback, nil
	}
	return "", fmt.Errorf("unknown fetch strategy %q", s)
}

// StrategyError means every source the strategy allows was exhausted.
type StrategyError struct {
	Strategy Strategy
	Err      error
}

func (e *StrategyError) Error() string { return e.Err.Error() }
func (e *StrategyError) Unwrap() error { return e.Err }

// Coordinator applies the configured strategy across the two sources.
type Coordinator struct {
	strategy Strategy
	fs       Source
	remote   Source
}

func NewCoordinator(strategy Strategy, fs, remote Source) *Coordinator {
	return &Coordinator{strategy: strategy, fs: fs, remote: remote}
}

func (c *Coordinator) Strategy() Strategy { return c.strategy }

type fetchHandler func(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error)

func (c *Coordinator) Fetch(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error) {
	handlers := map[Strategy]fetchHandler{
		StrategyFSOnly:         c.fetchFSOnly,
		StrategyRemoteOnly:     c.fetchRemoteOnly,
		StrategyRemoteFallback: c.fetchRemoteFallback,
		StrategyFSFallback:     c.fetchFSFallback,
	}
	handler, ok := handlers[c.strategy]
	if !ok {
		return nil, fmt.Errorf("unknown fetch strategy %q", c.strategy)
	}
	return handler(ctx, projectID, id)
}

func (c *Coordinator) fetchFSOnly(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error) {
	bundle, err := c.fs.Fetch(ctx, projectID, id)
	if err != nil {
		return nil, &StrategyError{
			Strategy: StrategyFSOnly,
			Err:      fmt.Errorf("failed to initialize from file system (fs-only strategy): %w", err),
		}
	}
	return bundle, nil
}

func (c *Coordinator) fetchRemoteOnly(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error) {
	bundle, err := c.remote.Fetch(ctx, projectID, id)
	if err != nil {
		return nil, &StrategyError{
			Strategy: StrategyRemoteOnly,
			Err:      fmt.Errorf("failed to initialize from remote (remote-only strategy): %w", err),
		}
	}
	return bundle, nil
}

// fetchRemoteFallback prefers the local cache: when the file system has
// the prompt, the remote store is never consulted. Any local failure,
// including a plain cache miss, falls through to remote; if remote also
// fails, its error is the one surfaced.
func (c *Coordinator) fetchRemoteFallback(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error) {
	bundle, fsErr := c.fs.Fetch(ctx, projectID, id)
	if fsErr == nil {
		return bundle, nil
	}

	bundle, remoteErr := c.remote.Fetch(ctx, projectID, id)
	if remoteErr != nil {
		return nil, &StrategyError{Strategy: StrategyRemoteFallback, Err: remoteErr}
	}
	return bundle, nil
}

func (c *Coordinator) fetchFSFallback(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*Bundle, error) {
	bundle, remoteErr := c.remote.Fetch(ctx, projectID, id)
	if remoteErr == nil {
		return bundle, nil
	}

	bundle, fsErr := c.fs.Fetch(ctx, projectID, id)
	if fsErr != nil {
		return nil, &StrategyError{
			Strategy: StrategyFSFallback,
			Err:      fmt.Errorf("failed to initialize from both remote and file system: remote: %v: %w", remoteErr, fsErr),
		}
	}
	return bundle, nil
}
