package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chad-syntax/agentsmith-sub001/internal/execute"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps engine error types onto the HTTP taxonomy.
// Validation failures additionally carry the missing-name lists so
// callers can fix their payload without guessing.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		validationErr *prompt.ValidationError
		parseErr      *prompt.TemplateParseError
		compileErr    *prompt.CompileError
		cycleErr      *prompt.IncludeCycleError
		providerErr   *execute.ProviderError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":                "validation failed",
			"missingVariables":     validationErr.MissingVariables,
			"missingGlobalContext": validationErr.MissingGlobalContext,
		})
	case errors.As(err, &parseErr), errors.As(err, &compileErr), errors.As(err, &cycleErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, prompt.ErrNotFound), source.IsNotCached(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, execute.ErrNoProviderKey):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, execute.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &providerErr):
		slog.Error("provider call failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
