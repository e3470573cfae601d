package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
)

// includeLoader satisfies pongo2's loader contract from an already
// resolved include closure, so expansion never touches I/O mid-render.
type includeLoader struct {
	includes *IncludeResult
}

func (l includeLoader) Abs(base, name string) string { return name }

func (l includeLoader) Get(path string) (io.Reader, error) {
	if content, ok := l.includes.Lookup(path); ok {
		return strings.NewReader(content), nil
	}
	return nil, fmt.Errorf("include %q was not resolved before compilation", path)
}

// BuildContext merges resolved variables with the project global
// context under the reserved "global" key.
func BuildContext(resolved map[string]any, globalContext map[string]any) map[string]any {
	ctx := make(map[string]any, len(resolved)+1)
	for k, v := range resolved {
		ctx[k] = v
	}
	ctx["global"] = globalContext
	return ctx
}

// Compile renders a flat template body against the supplied context.
// Pure CPU-bound: variables, globals and include bodies must all be
// supplied up front.
func Compile(body string, context map[string]any, includes *IncludeResult) (string, error) {
	set := pongo2.NewSet("prompt", includeLoader{includes: includes})

	tmpl, err := set.FromString(body)
	if err != nil {
		return "", asParseError(err)
	}

	// pongo2 renders unknown names as empty strings; a reference to a
	// variable the context never declared must fail instead.
	if refs := undefinedRefs(body, context); len(refs) > 0 {
		return "", &CompileError{
			Expr: refs[0],
			Err:  fmt.Errorf("undefined variables: %s", strings.Join(refs, ", ")),
		}
	}

	out, err := tmpl.Execute(pongo2.Context(context))
	if err != nil {
		return "", asCompileError(err)
	}
	return out, nil
}

// CompileChat renders each message body independently with the same
// context. Roles are preserved and empty renders are kept: message
// filtering is the caller's business.
func CompileChat(messages []models.ChatMessage, context map[string]any, includes *IncludeResult) ([]models.ChatMessage, error) {
	compiled := make([]models.ChatMessage, len(messages))
	for i, m := range messages {
		content, err := Compile(m.Content, context, includes)
		if err != nil {
			return nil, fmt.Errorf("message %d (%s): %w", i, m.Role, err)
		}
		compiled[i] = models.ChatMessage{Role: m.Role, Content: content}
	}
	return compiled, nil
}

// DecodeContent detects chat-style bodies: a JSON array of role-tagged
// messages. Anything else is treated as a flat template string.
func DecodeContent(content string) ([]models.ChatMessage, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var messages []models.ChatMessage
	if err := json.Unmarshal([]byte(trimmed), &messages); err != nil {
		return nil, false
	}
	return messages, true
}

func asParseError(err error) error {
	var perr *pongo2.Error
	if errors.As(err, &perr) {
		return &TemplateParseError{Line: perr.Line, Column: perr.Column, Err: perr.OrigError}
	}
	return &TemplateParseError{Err: err}
}

func asCompileError(err error) error {
	var perr *pongo2.Error
	if errors.As(err, &perr) {
		expr := ""
		if perr.Token != nil {
			expr = perr.Token.Val
		}
		return &CompileError{Expr: expr, Err: perr.OrigError}
	}
	return &CompileError{Err: err}
}
