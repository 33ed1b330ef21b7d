package audit

import (
	"context"
	"log/slog"
)

// Store receives audit events for durable or external recording.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what managers depend on. A nil Emitter disables auditing.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// LogStore writes audit events as structured log lines.
type LogStore struct {
	logger *slog.Logger
}

// NewLogStore creates a log-backed store. A nil logger uses slog.Default.
func NewLogStore(logger *slog.Logger) *LogStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"object_type", event.ObjectType,
		"action", event.Action,
		"field", event.Field,
		"object_id", event.ObjectID,
		"outcome", event.Outcome(),
		"reason", event.Reason,
		"details", event.Details,
	)
	return nil
}

// Emit reports an event through emitter and logs a failure instead of
// returning it: auditing never fails a registry operation.
func Emit(ctx context.Context, emitter Emitter, logger *slog.Logger, event Event) {
	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed",
			"object_type", event.ObjectType,
			"object_id", event.ObjectID,
			"error", err,
		)
	}
}
