// Package sdk is the client library: prompts resolve through the same
// fetch strategies as the server (local agentsmith directory, REST
// remote, or fallbacks), compile locally, and execute via the API.
package sdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

// Options configure a Client. All knobs are explicit fields; there is
// no variadic or interface-sniffing construction.
type Options struct {
	// AgentsmithDir is the root of the local prompt cache. Defaults to
	// "agentsmith".
	AgentsmithDir string
	// BaseURL of the API server, e.g. "https://api.example.com".
	BaseURL string
	// APIKey scopes remote calls to a project.
	APIKey string
	// FetchStrategy is one of fs-only, remote-only, remote-fallback
	// (default), fs-fallback.
	FetchStrategy string
	// Timeout bounds each remote HTTP call. Executions get their own
	// server-side budget; this only covers the exchange.
	Timeout time.Duration
}

type Client struct {
	opts        Options
	coordinator *source.Coordinator
	remote      *HTTPSource
	http        *http.Client

	wg sync.WaitGroup
}

func New(opts Options) (*Client, error) {
	strategy, err := source.ParseStrategy(opts.FetchStrategy)
	if err != nil {
		return nil, err
	}
	if strategy != source.StrategyFSOnly && opts.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required for strategy %q", strategy)
	}
	if opts.AgentsmithDir == "" {
		opts.AgentsmithDir = "agentsmith"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 330 * time.Second
	}

	remote := NewHTTPSource(opts.BaseURL, opts.APIKey, opts.Timeout)
	fs := source.NewFSSource(opts.AgentsmithDir)

	return &Client{
		opts:        opts,
		coordinator: source.NewCoordinator(strategy, fs, remote),
		remote:      remote,
		http:        &http.Client{Timeout: opts.Timeout},
	}, nil
}

// GetPrompt resolves an identifier ("slug", "slug@latest" or
// "slug@1.2.3") through the configured strategy.
func (c *Client) GetPrompt(ctx context.Context, identifier string) (*Prompt, error) {
	id, err := prompt.ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	bundle, err := c.coordinator.Fetch(ctx, uuid.Nil, id)
	if err != nil {
		return nil, err
	}
	return &Prompt{client: c, id: id, bundle: bundle}, nil
}

// Shutdown joins in-flight stream readers so no event is dropped
// mid-delivery when the host process exits.
func (c *Client) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
