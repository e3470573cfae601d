package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/auth"
	"github.com/chad-syntax/agentsmith-sub001/internal/execute"
	"github.com/chad-syntax/agentsmith-sub001/internal/prompt"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

type ExecuteHandler struct {
	remote   *source.RemoteSource
	executor *execute.Executor
}

func NewExecuteHandler(remote *source.RemoteSource, executor *execute.Executor) *ExecuteHandler {
	return &ExecuteHandler{remote: remote, executor: executor}
}

type executeRequest struct {
	Variables map[string]any `json:"variables"`
	Globals   map[string]any `json:"globals"`
	Config    *source.Config `json:"config"`
	Stream    bool           `json:"stream"`
}

func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	versionID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid version UUID")
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.remote.IdentifierForVersion(r.Context(), scope.ProjectID, versionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	params := execute.Params{
		Variables: req.Variables,
		Globals:   req.Globals,
		Config:    req.Config,
	}

	if req.Stream {
		h.stream(w, r, scope, id, params)
		return
	}

	result, err := h.executor.Execute(r.Context(), scope.ProjectID, scope.OrganizationID, id, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// stream writes the execution as server-sent events. Errors before the
// stream opens keep their JSON status codes; once headers are out,
// failures become a terminal error event.
func (h *ExecuteHandler) stream(w http.ResponseWriter, r *http.Request, scope auth.Scope, id prompt.Identifier, params execute.Params) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := h.executor.ExecuteStream(r.Context(), scope.ProjectID, scope.OrganizationID, id, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		var payload any = ev
		if ev.Error != nil {
			payload = map[string]any{"error": ev.Error.Error(), "done": true}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		w.Write([]byte("data: "))
		w.Write(data)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}
