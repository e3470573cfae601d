package sdk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chad-syntax/agentsmith-sub001/pkg/sdk"
)

// Compiled from outside the package: every type the client hands out or
// accepts must be declarable through sdk's own names.
func TestClientSurfaceIsNameable(t *testing.T) {
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

	client, err := sdk.New(sdk.Options{AgentsmithDir: root, FetchStrategy: "fs-only"})
	require.NoError(t, err)

	p, err := client.GetPrompt(context.Background(), "greeting@latest")
	require.NoError(t, err)

	var meta sdk.PromptMeta = p.Meta()
	var version sdk.PromptVersion = p.Version()
	var vars []sdk.PromptVariable = p.Variables()
	assert.Equal(t, "greeting", meta.Slug)
	assert.Equal(t, "1.0.0", version.Version)
	require.Len(t, vars, 1)
	assert.Equal(t, "name", vars[0].Name)

	out, err := p.Compile(context.Background(), sdk.CompileParams{Variables: map[string]any{"name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada!", out.CompiledPrompt)

	cfg := sdk.Config{Models: []string{"gpt-4o-mini"}, Temperature: 0.2}
	params := sdk.ExecuteParams{Variables: map[string]any{"name": "Ada"}, Config: &cfg}
	assert.Equal(t, "gpt-4o-mini", params.Config.Models[0])

	var completion *sdk.Completion
	assert.Nil(t, completion)

	var messages []sdk.ChatMessage = out.Messages
	assert.Empty(t, messages)
}

func TestClientSurfaceErrors(t *testing.T) {
	client, err := sdk.New(sdk.Options{AgentsmithDir: t.TempDir(), FetchStrategy: "fs-only"})
	require.NoError(t, err)

	_, err = client.GetPrompt(context.Background(), "ghost@latest")
	require.Error(t, err)
}
