// Package execute turns a resolved prompt into a logged completion
// request: RESOLVE -> VALIDATE -> COMPILE -> LOG_CREATE -> DISPATCH ->
// LOG_FINALIZE.
package execute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/auth"
	"github.com/chad-syntax/agentsmith-sub001/internal/execlog"
	"github.com/chad-syntax/agentsmith-sub001/internal/llm"
	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/queue"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

// ErrTimeout is the wall-clock budget being exceeded, distinct from any
// provider failure. Surfaced as 504-class.
var ErrTimeout = errors.New("request timed out")

// ErrNoProviderKey means the owning organization has no credential for
// the selected provider. Fails before any log row exists. 412-class.
var ErrNoProviderKey = errors.New("no completion provider key configured for organization")

// ProviderError wraps a failed or non-OK provider call. The log row is
// finalized with the error before this surfaces. 500-class.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("completion provider: %v", e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// Fetcher is the strategy coordinator's contract.
type Fetcher interface {
	Fetch(ctx context.Context, projectID uuid.UUID, id prompt.Identifier) (*source.Bundle, error)
}

// GlobalsSource supplies project global context when the fetched bundle
// does not carry it (filesystem bundles don't).
type GlobalsSource interface {
	Get(ctx context.Context, projectID uuid.UUID) (map[string]any, error)
}

// LogStore is the durable audit trail.
type LogStore interface {
	Create(ctx context.Context, entry execlog.CreateEntry) (uuid.UUID, error)
	Finalize(ctx context.Context, id uuid.UUID, rawOutput any, execErr *string) error
}

// ProviderFactory builds a provider from a per-organization credential.
type ProviderFactory func(name, credential string) (llm.Provider, error)

type Options struct {
	DefaultProvider string
	DefaultModel    string
	MaxRetries      int
	// Timeout caps RESOLVE through DISPATCH.
	Timeout time.Duration
	// Queue, when set, carries streaming finalize payloads through
	// asynq so they survive process teardown. Nil falls back to a
	// tracked goroutine writing the store directly.
	Queue *queue.Client
	// NewProvider defaults to llm.NewProvider.
	NewProvider ProviderFactory
}

type Executor struct {
	fetcher Fetcher
	globals GlobalsSource
	logs    LogStore
	secrets auth.SecretStore
	opts    Options

	wg sync.WaitGroup
}

func New(fetcher Fetcher, globals GlobalsSource, logs LogStore, secrets auth.SecretStore, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.NewProvider == nil {
		opts.NewProvider = llm.NewProvider
	}
	return &Executor{
		fetcher: fetcher,
		globals: globals,
		logs:    logs,
		secrets: secrets,
		opts:    opts,
	}
}

// Params are the caller-supplied inputs for one execution. Explicit
// named fields; nothing is sniffed from variadic arguments.
type Params struct {
	Variables map[string]any
	Globals   map[string]any
	Config    *source.Config
}

type Result struct {
	Completion *llm.ChatResponse `json:"completion"`
	LogID      uuid.UUID         `json:"logUuid"`
}

// StreamEvent is one element of a streamed execution. The first event
// is synthetic and carries only the log UUID.
type StreamEvent struct {
	LogID        string `json:"logUuid,omitempty"`
	Content      string `json:"content,omitempty"`
	Done         bool   `json:"done,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	Error        error  `json:"-"`
}

// prepared is the outcome of the fetch-then-compute phase: everything
// dispatch needs, with no further I/O on the compile path.
type prepared struct {
	bundle   *source.Bundle
	resolved map[string]any
	messages []llm.Message
	config   source.Config
	model    string
	provider llm.Provider
}

// CompileResult is the VALIDATE+COMPILE outcome without any dispatch:
// what the compile endpoint returns and what dispatch builds on.
type CompileResult struct {
	Bundle         *source.Bundle
	FinalVariables map[string]any
	CompiledPrompt string
	Messages       []models.ChatMessage
	Chat           bool
}

// Compile fetches, validates, and renders a prompt without touching
// any provider. No log row is created.
func (e *Executor) Compile(ctx context.Context, projectID uuid.UUID, id prompt.Identifier, params Params) (*CompileResult, error) {
	bundle, err := e.fetcher.Fetch(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	globalContext := params.Globals
	if globalContext == nil {
		globalContext = bundle.GlobalContext
	}
	if globalContext == nil && e.globals != nil {
		globalContext, err = e.globals.Get(ctx, projectID)
		if err != nil {
			return nil, err
		}
	}
	if globalContext == nil {
		globalContext = map[string]any{}
	}

	varResult := prompt.ValidateVariables(bundle.Variables, params.Variables)
	missingGlobals := prompt.ValidateGlobalContext(bundle.Version.Content, globalContext)
	if len(varResult.Missing) > 0 || len(missingGlobals) > 0 {
		return nil, &prompt.ValidationError{
			MissingVariables:     varResult.MissingNames(),
			MissingGlobalContext: missingGlobals,
		}
	}

	includes, err := prompt.ResolveIncludes(ctx, id.Slug, bundle.Version.Content, e.includeFetcher(projectID))
	if err != nil {
		return nil, err
	}
	if len(includes.Invalid) > 0 || len(includes.NotExisting) > 0 {
		return nil, &prompt.CompileError{
			Err: fmt.Errorf("unresolvable includes (invalid: %v, not existing: %v)", includes.Invalid, includes.NotExisting),
		}
	}

	renderCtx := prompt.BuildContext(varResult.Resolved, globalContext)
	result := &CompileResult{Bundle: bundle, FinalVariables: varResult.Resolved}

	if chat, ok := prompt.DecodeContent(bundle.Version.Content); ok {
		compiled, err := prompt.CompileChat(chat, renderCtx, includes)
		if err != nil {
			return nil, err
		}
		result.Messages = compiled
		result.Chat = true
	} else {
		compiled, err := prompt.Compile(bundle.Version.Content, renderCtx, includes)
		if err != nil {
			return nil, err
		}
		result.CompiledPrompt = compiled
	}

	return result, nil
}

func (e *Executor) prepare(ctx context.Context, projectID, orgID uuid.UUID, id prompt.Identifier, params Params) (*prepared, error) {
	compiled, err := e.Compile(ctx, projectID, id, params)
	if err != nil {
		return nil, err
	}
	bundle := compiled.Bundle

	var messages []llm.Message
	if compiled.Chat {
		for _, m := range compiled.Messages {
			messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
		}
	} else {
		messages = []llm.Message{{Role: "user", Content: compiled.CompiledPrompt}}
	}

	stored, err := source.DecodeConfig(bundle.Version.Config)
	if err != nil {
		return nil, fmt.Errorf("decode version config: %w", err)
	}
	cfg := stored.Merge(params.Config)

	model := e.opts.DefaultModel
	if len(cfg.Models) > 0 {
		model = cfg.Models[0]
	}
	providerName := cfg.Provider
	if providerName == "" {
		providerName = llm.ProviderForModel(model)
	}
	if providerName == "" {
		providerName = e.opts.DefaultProvider
	}

	keyName, err := llm.KeyNameFor(providerName)
	if err != nil {
		return nil, err
	}
	credential, err := e.secrets.GetOrganizationKeySecret(ctx, orgID, keyName)
	if err != nil {
		return nil, err
	}
	if credential == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoProviderKey, keyName)
	}

	provider, err := e.opts.NewProvider(providerName, credential)
	if err != nil {
		return nil, err
	}

	return &prepared{
		bundle:   bundle,
		resolved: compiled.FinalVariables,
		messages: messages,
		config:   cfg,
		model:    model,
		provider: provider,
	}, nil
}

// includeFetcher adapts the strategy coordinator to the include
// resolver's synchronous-looking contract.
func (e *Executor) includeFetcher(projectID uuid.UUID) prompt.IncludeFetcher {
	return func(ctx context.Context, id prompt.Identifier) (*prompt.IncludedVersion, error) {
		bundle, err := e.fetcher.Fetch(ctx, projectID, id)
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

func (e *Executor) chatRequest(p *prepared) llm.ChatRequest {
	return llm.ChatRequest{
		Model:       p.model,
		Messages:    p.messages,
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
		TopP:        p.config.TopP,
		Stop:        p.config.Stop,
	}
}

func (e *Executor) createLog(ctx context.Context, projectID uuid.UUID, p *prepared, req llm.ChatRequest) (uuid.UUID, error) {
	return e.logs.Create(ctx, execlog.CreateEntry{
		ProjectID: projectID,
		VersionID: p.bundle.Version.ID,
		Variables: p.resolved,
		RawInput: map[string]any{
			"model":       req.Model,
			"messages":    req.Messages,
			"temperature": req.Temperature,
			"max_tokens":  req.MaxTokens,
			"top_p":       req.TopP,
			"stop":        req.Stop,
		},
	})
}

// Execute runs a non-streaming completion. The log row is created
// before dispatch and finalized inline with the result or error.
func (e *Executor) Execute(ctx context.Context, projectID, orgID uuid.UUID, id prompt.Identifier, params Params) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	p, err := e.prepare(ctx, projectID, orgID, id, params)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}

	req := e.chatRequest(p)
	logID, err := e.createLog(ctx, projectID, p, req)
	if err != nil {
		return nil, err
	}

	resp, err := llm.ChatWithRetry(ctx, p.provider, req, e.opts.MaxRetries)
	if err != nil {
		marker := err.Error()
		if ctx.Err() == context.DeadlineExceeded {
			marker = ErrTimeout.Error()
		}
		e.finalizeDirect(logID, nil, &marker)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, e.opts.Timeout)
		}
		return nil, &ProviderError{Err: err}
	}

	e.finalizeDirect(logID, resp, nil)
	return &Result{Completion: resp, LogID: logID}, nil
}

// ExecuteStream runs a streaming completion. The returned channel's
// first event carries the log UUID; provider chunks follow as they
// arrive. A server-side aggregator merges delta and usage fragments
// in memory and finalizes the log row once, after the stream ends.
func (e *Executor) ExecuteStream(ctx context.Context, projectID, orgID uuid.UUID, id prompt.Identifier, params Params) (<-chan StreamEvent, error) {
	dispatchCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)

	p, err := e.prepare(dispatchCtx, projectID, orgID, id, params)
	if err != nil {
		cancel()
		return nil, timeoutOr(dispatchCtx, err)
	}

	req := e.chatRequest(p)
	logID, err := e.createLog(dispatchCtx, projectID, p, req)
	if err != nil {
		cancel()
		return nil, err
	}

	providerCh, err := p.provider.ChatCompletionStream(dispatchCtx, req)
	if err != nil {
		cancel()
		marker := err.Error()
		e.finalizeDirect(logID, nil, &marker)
		return nil, &ProviderError{Err: err}
	}

	out := make(chan StreamEvent, 64)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		defer close(out)

		agg := newAggregator(p.provider.Name(), p.model)

		emit := func(ev StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		emit(StreamEvent{LogID: logID.String()})

		for {
			select {
			case <-dispatchCtx.Done():
				marker := ErrTimeout.Error()
				emit(StreamEvent{Error: fmt.Errorf("%w after %s", ErrTimeout, e.opts.Timeout), Done: true})
				e.finalize(logID, agg.payload(), &marker)
				return

			case chunk, ok := <-providerCh:
				if !ok {
					e.finalize(logID, agg.payload(), nil)
					return
				}

				agg.add(chunk)

				if chunk.Error != nil {
					marker := chunk.Error.Error()
					emit(StreamEvent{Error: chunk.Error, Done: true})
					e.finalize(logID, agg.payload(), &marker)
					return
				}

				if !emit(StreamEvent{
					Content:      chunk.Content,
					Done:         chunk.Done,
					InputTokens:  chunk.InputTokens,
					OutputTokens: chunk.OutputTokens,
				}) {
					marker := "client disconnected"
					e.finalize(logID, agg.payload(), &marker)
					return
				}

				if chunk.Done {
					e.finalize(logID, agg.payload(), nil)
					return
				}
			}
		}
	}()

	return out, nil
}

// finalize records a streamed outcome. With a queue configured the
// payload rides asynq; otherwise the store is written directly. Either
// way the request context is long gone, so a fresh one bounds the write.
func (e *Executor) finalize(logID uuid.UUID, rawOutput any, execErr *string) {
	if e.opts.Queue != nil {
		data, err := json.Marshal(rawOutput)
		if err == nil {
			if err = e.opts.Queue.EnqueueLogFinalize(queue.LogFinalizePayload{
				LogID:     logID.String(),
				RawOutput: data,
				Error:     execErr,
			}); err == nil {
				return
			}
		}
		slog.Error("failed to enqueue log finalize, writing directly", "log_id", logID, "error", err)
	}
	e.finalizeDirect(logID, rawOutput, execErr)
}

func (e *Executor) finalizeDirect(logID uuid.UUID, rawOutput any, execErr *string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.logs.Finalize(ctx, logID, rawOutput, execErr); err != nil {
		slog.Error("failed to finalize execution log", "log_id", logID, "error", err)
	}
}

// Shutdown waits for in-flight stream pumps (and their finalizes) so
// the process never tears down a log row mid-write.
func (e *Executor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func timeoutOr(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrTimeout
	}
	return err
}
