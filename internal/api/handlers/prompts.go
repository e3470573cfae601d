package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chad-syntax/agentsmith-sub001/internal/auth"
	"github.com/chad-syntax/agentsmith-sub001/internal/execute"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

type PromptsHandler struct {
	remote   *source.RemoteSource
	fetcher  execute.Fetcher
	executor *execute.Executor
}

func NewPromptsHandler(remote *source.RemoteSource, fetcher execute.Fetcher, executor *execute.Executor) *PromptsHandler {
	return &PromptsHandler{remote: remote, fetcher: fetcher, executor: executor}
}

func (h *PromptsHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prompts, err := h.remote.ListPrompts(r.Context(), scope.ProjectID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

func (h *PromptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := prompt.ParseIdentifier(chi.URLParam(r, "identifier"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bundle, err := h.fetcher.Fetch(r.Context(), scope.ProjectID, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":        bundle.Prompt,
		"version":       bundle.Version,
		"variables":     bundle.Variables,
		"globalContext": bundle.GlobalContext,
	})
}

type compileRequest struct {
	Variables map[string]any `json:"variables"`
	Globals   map[string]any `json:"globals"`
}

func (h *PromptsHandler) Compile(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := prompt.ParseIdentifier(chi.URLParam(r, "identifier"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req compileRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.executor.Compile(r.Context(), scope.ProjectID, id, execute.Params{
		Variables: req.Variables,
		Globals:   req.Globals,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := map[string]any{
		"finalVariables": result.FinalVariables,
		"version":        result.Bundle.Version.Version,
	}
	if result.Chat {
		resp["messages"] = result.Messages
	} else {
		resp["compiledPrompt"] = result.CompiledPrompt
	}
	writeJSON(w, http.StatusOK, resp)
}
