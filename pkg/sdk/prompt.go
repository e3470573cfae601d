package sdk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

// Prompt is a resolved bundle bound to the client that fetched it.
type Prompt struct {
	client *Client
	id     prompt.Identifier
	bundle *source.Bundle
}

func (p *Prompt) Meta() PromptMeta { return p.bundle.Prompt }

func (p *Prompt) Version() PromptVersion { return p.bundle.Version }

func (p *Prompt) Variables() []PromptVariable { return p.bundle.Variables }

type CompileParams struct {
	Variables map[string]any
	Globals   map[string]any
}

type CompileOutput struct {
	CompiledPrompt string
	Messages       []ChatMessage
	FinalVariables map[string]any
}

// Compile renders the template locally. Includes resolve through the
// client's fetch strategy, so an fs-only client never leaves disk.
func (p *Prompt) Compile(ctx context.Context, params CompileParams) (*CompileOutput, error) {
	globalContext := params.Globals
	if globalContext == nil {
		globalContext = p.bundle.GlobalContext
	}
	if globalContext == nil {
		globalContext = map[string]any{}
	}

	varResult := prompt.ValidateVariables(p.bundle.Variables, params.Variables)
	missingGlobals := prompt.ValidateGlobalContext(p.bundle.Version.Content, globalContext)
	if len(varResult.Missing) > 0 || len(missingGlobals) > 0 {
		return nil, &prompt.ValidationError{
			MissingVariables:     varResult.MissingNames(),
			MissingGlobalContext: missingGlobals,
		}
	}

	includes, err := prompt.ResolveIncludes(ctx, p.id.Slug, p.bundle.Version.Content, p.includeFetcher())
	if err != nil {
		return nil, err
	}
	if len(includes.Invalid) > 0 || len(includes.NotExisting) > 0 {
		return nil, &prompt.CompileError{
			Err: fmt.Errorf("unresolvable includes (invalid: %v, not existing: %v)", includes.Invalid, includes.NotExisting),
		}
	}

	renderCtx := prompt.BuildContext(varResult.Resolved, globalContext)
	out := &CompileOutput{FinalVariables: varResult.Resolved}

	if chat, ok := prompt.DecodeContent(p.bundle.Version.Content); ok {
		out.Messages, err = prompt.CompileChat(chat, renderCtx, includes)
	} else {
		out.CompiledPrompt, err = prompt.Compile(p.bundle.Version.Content, renderCtx, includes)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Prompt) includeFetcher() prompt.IncludeFetcher {
	return func(ctx context.Context, id prompt.Identifier) (*prompt.IncludedVersion, error) {
		bundle, err := p.client.coordinator.Fetch(ctx, uuid.Nil, id)
		if err != nil {
			return nil, err
		}
		return &prompt.IncludedVersion{
			Slug:    id.Slug,
			Version: bundle.Version.Version,
			Content: bundle.Version.Content,
		}, nil
	}
}

type ExecuteParams struct {
	Variables map[string]any
	Globals   map[string]any
	Config    *Config
}

type ExecuteOutput struct {
	Completion *Completion `json:"completion"`
	LogUUID    uuid.UUID   `json:"logUuid"`
}

// Event is one element of a streamed execution. The first event
// carries only LogUUID.
type Event struct {
	LogUUID      string `json:"logUuid,omitempty"`
	Content      string `json:"content,omitempty"`
	Done         bool   `json:"done,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

type executeBody struct {
	Variables map[string]any `json:"variables,omitempty"`
	Globals   map[string]any `json:"globals,omitempty"`
	Config    *Config        `json:"config,omitempty"`
	Stream    bool           `json:"stream,omitempty"`
}

// Execute runs the prompt through the server, which owns dispatch and
// the execution log.
func (p *Prompt) Execute(ctx context.Context, params ExecuteParams) (*ExecuteOutput, error) {
	resp, err := p.execute(ctx, params, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out ExecuteOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode execute response: %w", err)
	}
	return &out, nil
}

// ExecuteStream runs the prompt through the server's event stream. The
// returned channel closes when the stream ends; the reader goroutine is
// tracked and joined by Client.Shutdown.
func (p *Prompt) ExecuteStream(ctx context.Context, params ExecuteParams) (<-chan Event, error) {
	resp, err := p.execute(ctx, params, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}

	events := make(chan Event, 64)
	p.client.wg.Add(1)
	go func() {
		defer p.client.wg.Done()
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case events <- Event{ErrorMessage: err.Error(), Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}

func (p *Prompt) execute(ctx context.Context, params ExecuteParams, stream bool) (*http.Response, error) {
	body, err := json.Marshal(executeBody{
		Variables: params.Variables,
		Globals:   params.Globals,
		Config:    params.Config,
		Stream:    stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal execute request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/promptVersion/%s/execute", p.client.opts.BaseURL, p.bundle.Version.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(p.client.remote.keyHeader, p.client.opts.APIKey)

	resp, err := p.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call execute: %w", err)
	}
	return resp, nil
}
