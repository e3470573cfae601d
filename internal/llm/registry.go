package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Provider names and the per-organization secret each one needs.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// KeyNameFor maps a provider to the name of the organization secret
// holding its credential (API key, or base URL for Ollama).
func KeyNameFor(provider string) (string, error) {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY", nil
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY", nil
	case ProviderOllama:
		return "OLLAMA_URL", nil
	}
	return "", fmt.Errorf("unknown provider %q", provider)
}

// NewProvider constructs a provider with an organization-scoped
// credential. Credentials are resolved per execution, never cached in
// process-wide state.
func NewProvider(name, credential string) (Provider, error) {
	switch name {
	case ProviderOpenAI:
		return NewOpenAIProvider(credential), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(credential), nil
	case ProviderOllama:
		return NewOllamaProvider(credential), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// ProviderForModel infers which provider serves a model name.
func ProviderForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3"):
		return ProviderOpenAI
	}
	return ProviderOllama
}

// ChatWithRetry retries transient completion failures with quadratic
// backoff, honoring context cancellation between attempts.
func ChatWithRetry(ctx context.Context, p Provider, req ChatRequest, maxRetries int) (*ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying completion call", "provider", p.Name(), "attempt", attempt)
		}

		resp, err := p.ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", p.Name(), lastErr)
}
