package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound marks an identifier that resolves to no stored version:
// unknown slug, unknown exact version, or no published version for
// "latest". Callers match it with errors.Is.
var ErrNotFound = errors.New("prompt version not found")

// TemplateParseError is a malformed template body. Originates from
// user-editable content, so boundaries surface it as a 400-class error.
type TemplateParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *TemplateParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("template parse error at line %d col %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("template parse error: %v", e.Err)
}

func (e *TemplateParseError) Unwrap() error { return e.Err }

// CompileError is a render-time failure: an expression that could not be
// evaluated against the supplied context.
type CompileError struct {
	Expr string
	Err  error
}

func (e *CompileError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("compile error in %q: %v", e.Expr, e.Err)
	}
	return fmt.Sprintf("compile error: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// IncludeCycleError reports a slug appearing in its own include closure.
// Resolution fails fast instead of recursing.
type IncludeCycleError struct {
	Path []string
}

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("include cycle detected: %s", strings.Join(e.Path, " -> "))
}

// ValidationError carries the missing-input lists when a caller chooses
// to raise instead of inspecting the validator results. The validators
// themselves return data, never errors.
type ValidationError struct {
	MissingVariables     []string
	MissingGlobalContext []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingVariables) > 0 {
		parts = append(parts, "missing required variables: "+strings.Join(e.MissingVariables, ", "))
	}
	if len(e.MissingGlobalContext) > 0 {
		parts = append(parts, "missing global context: "+strings.Join(e.MissingGlobalContext, ", "))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}
