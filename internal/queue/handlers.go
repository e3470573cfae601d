package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/chad-syntax/agentsmith-sub001/internal/execlog"
)

type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux: asynq.NewServeMux(),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

// LogFinalizeWorker applies queued finalize payloads to the log store.
// The store's completed_at guard keeps retried deliveries idempotent.
type LogFinalizeWorker struct {
	store *execlog.Store
}

func NewLogFinalizeWorker(store *execlog.Store) *LogFinalizeWorker {
	return &LogFinalizeWorker{store: store}
}

func (w *LogFinalizeWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload LogFinalizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", TypeLogFinalize, err)
	}

	logID, err := uuid.Parse(payload.LogID)
	if err != nil {
		return fmt.Errorf("invalid log ID %q: %w", payload.LogID, err)
	}

	return w.store.Finalize(ctx, logID, payload.RawOutput, payload.Error)
}
