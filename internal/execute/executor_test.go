package execute

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chad-syntax/agentsmith-sub001/internal/execlog"
	"github.com/chad-syntax/agentsmith-sub001/internal/llm"
	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

type fakeFetcher struct {
	bundle *source.Bundle
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ uuid.UUID, _ prompt.Identifier) (*source.Bundle, error) {
	return f.bundle, f.err
}

type finalizeCall struct {
	rawOutput any
	execErr   *string
}

type fakeLogs struct {
	mu        sync.Mutex
	created   int
	logID     uuid.UUID
	finalized []finalizeCall
}

func (l *fakeLogs) Create(_ context.Context, _ execlog.CreateEntry) (uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created++
	return l.logID, nil
}

func (l *fakeLogs) Finalize(_ context.Context, _ uuid.UUID, rawOutput any, execErr *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finalized = append(l.finalized, finalizeCall{rawOutput: rawOutput, execErr: execErr})
	return nil
}

func (l *fakeLogs) calls() (int, []finalizeCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.created, append([]finalizeCall{}, l.finalized...)
}

type fakeSecrets struct {
	keys map[string]string
}

func (s *fakeSecrets) GetOrganizationKeySecret(_ context.Context, _ uuid.UUID, name string) (string, error) {
	return s.keys[name], nil
}

type fakeProvider struct {
	resp   *llm.ChatResponse
	err    error
	chunks []llm.StreamChunk
	block  bool
}

func (p *fakeProvider) Name() string     { return "openai" }
func (p *fakeProvider) Models() []string { return nil }

func (p *fakeProvider) ChatCompletion(ctx context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.resp, p.err
}

func (p *fakeProvider) ChatCompletionStream(_ context.Context, _ llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, len(p.chunks))
	for _, c := range p.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func testBundle() *source.Bundle {
	return &source.Bundle{
		Prompt: models.Prompt{Slug: "greeting"},
		Version: models.PromptVersion{
			ID:      uuid.New(),
			Version: "1.0.0",
			Status:  models.StatusPublished,
			Content: "Hello {{ name }}!",
		},
		Variables: []models.PromptVariable{
			{Name: "name", Type: models.VarTypeString, Required: true},
		},
		GlobalContext: map[string]any{},
	}
}

func testExecutor(t *testing.T, provider llm.Provider, logs *fakeLogs, timeout time.Duration) *Executor {
	t.Helper()
	return New(
		&fakeFetcher{bundle: testBundle()},
		nil,
		logs,
		&fakeSecrets{keys: map[string]string{"OPENAI_API_KEY": "sk-test"}},
		Options{
			DefaultModel: "gpt-4o-mini",
			Timeout:      timeout,
			NewProvider: func(string, string) (llm.Provider, error) {
				return provider, nil
			},
		},
	)
}

func TestExecuteSuccess(t *testing.T) {
	logs := &fakeLogs{logID: uuid.New()}
	provider := &fakeProvider{resp: &llm.ChatResponse{Content: "Hi Ada!", TotalTokens: 12}}
	e := testExecutor(t, provider, logs, time.Second)

	result, err := e.Execute(context.Background(), uuid.New(), uuid.New(),
		prompt.Identifier{Slug: "greeting", Version: "latest"},
		Params{Variables: map[string]any{"name": "Ada"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada!", result.Completion.Content)
	assert.Equal(t, logs.logID, result.LogID)

	created, finalized := logs.calls()
	assert.Equal(t, 1, created)
	require.Len(t, finalized, 1)
	assert.Nil(t, finalized[0].execErr)
}

func TestExecuteMissingVariableCreatesNoLog(t *testing.T) {
	logs := &fakeLogs{logID: uuid.New()}
	e := testExecutor(t, &fakeProvider{}, logs, time.Second)

	_, err := e.Execute(context.Background(), uuid.New(), uuid.New(),
		prompt.Identifier{Slug: "greeting", Version: "latest"},
		Params{},
	)
	var validationErr *prompt.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, []string{"name"}, validationErr.MissingVariables)

	created, finalized := logs.calls()
	assert.Equal(t, 0, created)
	assert.Empty(t, finalized)
}

func TestExecuteNoProviderKey(t *testing.T) {
	logs := &fakeLogs{logID: uuid.New()}
	e := New(
		&fakeFetcher{bundle: testBundle()},
		nil,
		logs,
		&fakeSecrets{keys: map[string]string{}},
		Options{DefaultModel: "gpt-4o-mini", Timeout: time.Second},
	)

	_, err := e.Execute(context.Background(), uuid.New(), uuid.New(),
		prompt.Identifier{Slug: "greeting", Version: "latest"},
		Params{Variables: map[string]any{"name": "Ada"}},
	)
	require.ErrorIs(t, err, ErrNoProviderKey)

	created, _ := logs.calls()
	assert.Equal(t, 0, created)
}

func TestExecuteProviderErrorFinalizesWithMarker(t *testing.T) {
	logs := &fakeLogs{logID: uuid.New()}
	provider := &fakeProvider{err: errors.New("rate limited")}
	e := testExecutor(t, provider, logs, time.Second)

	_, err := e.Execute(context.Background(), uuid.New(), uuid.New(),
		prompt.Identifier{Slug: "greeting", Version: "latest"},
		Params{Variables: map[string]any{"name": "Ada"}},
	)
	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))

	created, finalized := logs.calls()
	assert.Equal(t, 1, created)
	require.Len(t, finalized, 1)
	require.NotNil(t, finalized[0].execErr)
	assert.Contains(t, *finalized[0].execErr, "rate limited")
}

func TestExecuteTimeout(t *testing.T) {
	logs := &fakeLogs{logID: uuid.New()}
	provider := &fakeProvider{block: true}
	e := testExecutor(t, provider, logs, 50*time.Millisecond)

	start := time.Now()
	_, err := e.Execute(context.Background(), uuid.New(), uuid.New(),
		prompt.Identifier{Slug: "greeting", Version: "latest"},
		Params{Variables: map[string]any{"name": "Ada"}},
	)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, finalized := logs.calls()
	require.Len(t, finalized, 1)
	require.NotNil(t, finalized[0].execErr)
	assert.Equal(t, ErrTimeout.Error(), *finalized[0].execErr)
}

func TestExecuteStreamSuccess(t *testing.T) {
	logs := &fakeLogs{logID: uuid.New()}
	provider := &fakeProvider{chunks: []llm.StreamChunk{
		{Content: "Hi "},
		{Content: "Ada!", Done: true, InputTokens: 7, OutputTokens: 5},
	}}
	e := testExecutor(t, provider, logs, time.Second)

	events, err := e.ExecuteStream(context.Background(), uuid.New(), uuid.New(),
		prompt.Identifier{Slug: "greeting", Version: "latest"},
		Params{Variables: map[string]any{"name": "Ada"}},
	)
	require.NoError(t, err)

	var collected []StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}

	require.NotEmpty(t, collected)
	assert.Equal(t, logs.logID.String(), collected[0].LogID, "first event must carry the log UUID")
	assert.True(t, collected[len(collected)-1].Done)

	require.NoError(t, e.Shutdown(context.Background()))

	created, finalized := logs.calls()
	assert.Equal(t, 1, created)
	require.Len(t, finalized, 1, "finalize must run exactly once")
	assert.Nil(t, finalized[0].execErr)

	payload, ok := finalized[0].rawOutput.(map[string]any)
	require.True(t, ok)
	message := payload["message"].(map[string]any)
	assert.Equal(t, "Hi Ada!", message["content"])
	usage := payload["usage"].(map[string]any)
	assert.Equal(t, 12, usage["total_tokens"])
}

func TestExecuteStreamProviderErrorFinalizesOnce(t *testing.T) {
	logs := &fakeLogs{logID: uuid.New()}
	provider := &fakeProvider{chunks: []llm.StreamChunk{
		{Content: "par"},
		{Error: errors.New("connection reset")},
	}}
	e := testExecutor(t, provider, logs, time.Second)

	events, err := e.ExecuteStream(context.Background(), uuid.New(), uuid.New(),
		prompt.Identifier{Slug: "greeting", Version: "latest"},
		Params{Variables: map[string]any{"name": "Ada"}},
	)
	require.NoError(t, err)

	var sawError bool
	for ev := range events {
		if ev.Error != nil {
			sawError = true
		}
	}
	assert.True(t, sawError)

	require.NoError(t, e.Shutdown(context.Background()))

	_, finalized := logs.calls()
	require.Len(t, finalized, 1)
	require.NotNil(t, finalized[0].execErr)
	assert.Contains(t, *finalized[0].execErr, "connection reset")
}
