package queue

import "encoding/json"

const (
	// TypeLogFinalize writes the completion payload (or error marker)
	// of a streamed execution to its log row. Queued so the audit trail
	// survives process teardown between stream end and finalize.
	TypeLogFinalize = "log:finalize"
)

type LogFinalizePayload struct {
	LogID     string          `json:"log_id"`
	RawOutput json.RawMessage `json:"raw_output,omitempty"`
	Error     *string         `json:"error,omitempty"`
}
