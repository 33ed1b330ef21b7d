// Package trail records registry mutations: an audit event, a metric and a log
// line per call. A nil *Recorder records nothing.
package trail

import (
	"context"
	"log/slog"

	"smp/internal/platform/metrics"
	audit "smp/pkg/platform/audit"
)

type Recorder struct {
	logger  *slog.Logger
	emitter audit.Emitter
	metrics *metrics.Metrics
}

// New builds a recorder. Every argument may be nil.
func New(logger *slog.Logger, emitter audit.Emitter, m *metrics.Metrics) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger, emitter: emitter, metrics: m}
}

// Record emits event, counts it and logs failures at warn.
func (r *Recorder) Record(ctx context.Context, event audit.Event) {
	if r == nil {
		return
	}
	r.metrics.IncMutation(string(event.ObjectType), string(event.Action), event.Outcome())
	audit.Emit(ctx, r.emitter, r.logger, event)
	if !event.Success {
		r.logger.WarnContext(ctx, "registry mutation rejected",
			"object_type", event.ObjectType,
			"action", event.Action,
			"object_id", event.ObjectID,
			"reason", event.Reason,
		)
	}
}

// Count publishes the entity gauge of objectType.
func (r *Recorder) Count(objectType audit.ObjectType, n int) {
	if r == nil {
		return
	}
	r.metrics.SetEntities(string(objectType), n)
}
