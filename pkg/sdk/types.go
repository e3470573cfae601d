package sdk

import (
	"github.com/chad-syntax/agentsmith-sub001/internal/llm"
	"github.com/chad-syntax/agentsmith-sub001/internal/models"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

// Everything the client accepts or returns is nameable from this
// package; importers never need to reach into internal paths.
type (
	// PromptMeta describes the prompt row a bundle was resolved from.
	PromptMeta = models.Prompt
	// PromptVersion is the resolved version: content, config, status.
	PromptVersion = models.PromptVersion
	// PromptVariable is one declared variable of a version.
	PromptVariable = models.PromptVariable
	// ChatMessage is one role-tagged entry of a chat-style body.
	ChatMessage = models.ChatMessage
	// Completion is a finished model response with usage counts.
	Completion = llm.ChatResponse
	// Config overrides the stored model configuration per call.
	Config = source.Config
)

// Error types callers match with errors.As / errors.Is.
type (
	ValidationError    = prompt.ValidationError
	CompileError       = prompt.CompileError
	TemplateParseError = prompt.TemplateParseError
)

// ErrNotFound reports an identifier no source could resolve.
var ErrNotFound = prompt.ErrNotFound
