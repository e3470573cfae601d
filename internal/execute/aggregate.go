package execute

import (
	"strings"

	"github.com/chad-syntax/agentsmith-sub001/internal/llm"
)

// aggregator folds streamed chunks back into a whole completion so the
// log row holds the same shape a non-streaming call would have stored.
// Pure in-memory work; it never blocks the client-facing channel.
type aggregator struct {
	provider     string
	model        string
	content      strings.Builder
	inputTokens  int
	outputTokens int
}

func newAggregator(provider, model string) *aggregator {
	return &aggregator{provider: provider, model: model}
}

func (a *aggregator) add(chunk llm.StreamChunk) {
	a.content.WriteString(chunk.Content)
	if chunk.InputTokens > 0 {
		a.inputTokens = chunk.InputTokens
	}
	if chunk.OutputTokens > 0 {
		a.outputTokens = chunk.OutputTokens
	}
}

func (a *aggregator) payload() map[string]any {
	return map[string]any{
		"provider": a.provider,
		"model":    a.model,
		"message": map[string]any{
			"role":    "assistant",
			"content": a.content.String(),
		},
		"usage": map[string]any{
			"input_tokens":  a.inputTokens,
			"output_tokens": a.outputTokens,
			"total_tokens":  a.inputTokens + a.outputTokens,
		},
	}
}
