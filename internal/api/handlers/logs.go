package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chad-syntax/agentsmith-sub001/internal/auth"
	"github.com/chad-syntax/agentsmith-sub001/internal/execlog"
)

type LogsHandler struct {
	store *execlog.Store
}

func NewLogsHandler(store *execlog.Store) *LogsHandler {
	return &LogsHandler{store: store}
}

func (h *LogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid log UUID")
		return
	}

	log, err := h.store.Get(r.Context(), scope.ProjectID, id)
	if err != nil {
		if errors.Is(err, execlog.ErrLogNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}
