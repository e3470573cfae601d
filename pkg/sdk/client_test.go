package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
)

func promptServer(t *testing.T, versionID uuid.UUID) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/prompts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"prompt": models.Prompt{Slug: "greeting", Name: "Greeting"},
			"version": models.PromptVersion{
				ID:      versionID,
				Version: "1.0.0",
				Status:  models.StatusPublished,
				Content: "{{ global.company }} greets {{ name }}",
			},
			"variables": []models.PromptVariable{
				{Name: "name", Type: models.VarTypeString, Required: true},
			},
			"globalContext": map[string]any{"company": "Acme"},
		})
	})

	mux.HandleFunc("POST /api/v1/promptVersion/", func(w http.ResponseWriter, r *http.Request) {
		var body executeBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte(`data: {"logUuid":"` + uuid.NewString() + `"}` + "\n\n"))
			w.Write([]byte(`data: {"content":"Acme greets Ada"}` + "\n\n"))
			w.Write([]byte(`data: {"done":true}` + "\n\n"))
			w.Write([]byte("data: [DONE]\n\n"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"completion": map[string]any{"content": "Acme greets Ada"},
			"logUuid":    uuid.NewString(),
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRemoteCompile(t *testing.T) {
	srv := promptServer(t, uuid.New())

	client, err := New(Options{
		BaseURL:       srv.URL,
		APIKey:        "sk-test",
		FetchStrategy: "remote-only",
	})
	require.NoError(t, err)

	p, err := client.GetPrompt(context.Background(), "greeting@latest")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", p.Version().Version)

	out, err := p.Compile(context.Background(), CompileParams{Variables: map[string]any{"name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Acme greets Ada", out.CompiledPrompt)
	assert.Equal(t, "Ada", out.FinalVariables["name"])
}

func TestClientExecute(t *testing.T) {
	srv := promptServer(t, uuid.New())

	client, err := New(Options{BaseURL: srv.URL, APIKey: "sk-test", FetchStrategy: "remote-only"})
	require.NoError(t, err)

	p, err := client.GetPrompt(context.Background(), "greeting")
	require.NoError(t, err)

	out, err := p.Execute(context.Background(), ExecuteParams{Variables: map[string]any{"name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Acme greets Ada", out.Completion.Content)
	assert.NotEqual(t, uuid.Nil, out.LogUUID)
}

func TestClientExecuteStream(t *testing.T) {
	srv := promptServer(t, uuid.New())

	client, err := New(Options{BaseURL: srv.URL, APIKey: "sk-test", FetchStrategy: "remote-only"})
	require.NoError(t, err)

	p, err := client.GetPrompt(context.Background(), "greeting")
	require.NoError(t, err)

	events, err := p.ExecuteStream(context.Background(), ExecuteParams{Variables: map[string]any{"name": "Ada"}})
	require.NoError(t, err)

	var collected []Event
	for ev := range events {
		collected = append(collected, ev)
	}
	require.Len(t, collected, 3)
	assert.NotEmpty(t, collected[0].LogUUID, "first event must carry the log UUID")
	assert.Equal(t, "Acme greets Ada", collected[1].Content)
	assert.True(t, collected[2].Done)

	require.NoError(t, client.Shutdown(context.Background()))
}

func TestClientFSOnly(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "greeting")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "1.0.0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.json"),
		[]byte(`{"uuid":"`+uuid.NewString()+`","slug":"greeting","name":"Greeting","latestVersion":"1.0.0"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.0.0", "version.json"),
		[]byte(`{"uuid":"`+uuid.NewString()+`","version":"1.0.0","config":null}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.0.0", "content.j2"),
		[]byte("Hello {{ name }}!"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.0.0", "variables.json"),
		[]byte(`[{"name":"name","type":"STRING","required":true}]`), 0o644))

	client, err := New(Options{AgentsmithDir: root, FetchStrategy: "fs-only"})
	require.NoError(t, err)

	p, err := client.GetPrompt(context.Background(), "greeting")
	require.NoError(t, err)

	out, err := p.Compile(context.Background(), CompileParams{Variables: map[string]any{"name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada!", out.CompiledPrompt)
}
