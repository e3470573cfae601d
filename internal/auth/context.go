package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const scopeKey contextKey = "scope"

// Scope is the authenticated caller's project/organization binding.
type Scope struct {
	OrganizationID uuid.UUID
	ProjectID      uuid.UUID
}

func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

func ScopeFromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey).(Scope)
	return s, ok
}

func ProjectIDFromContext(ctx context.Context) uuid.UUID {
	if s, ok := ScopeFromContext(ctx); ok {
		return s.ProjectID
	}
	return uuid.Nil
}
