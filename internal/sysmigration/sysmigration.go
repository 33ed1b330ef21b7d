// Package sysmigration runs one-time data migrations and remembers which ones
// already ran.
package sysmigration

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
)

// Namespace is the persisted namespace of executed migrations.
const Namespace = "system-migrations"

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,63}$`)

// Result is the outcome of one execution of a migration.
type Result struct {
	ID           string    `json:"id"`
	ExecutedAt   time.Time `json:"executed_at"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

func (r *Result) StoreID() string { return r.ID }

func (r *Result) Clone() *Result {
	c := *r
	return &c
}

func (r *Result) Validate() error {
	if !idPattern.MatchString(r.ID) {
		return dErrors.Newf(dErrors.CodeValidation, "invalid system migration ID %q", r.ID)
	}
	if r.ExecutedAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "execution time is required")
	}
	return nil
}

// Step is the body of a migration.
type Step func(ctx context.Context) error

// Manager records executed migrations. Only the latest result per ID is kept.
type Manager struct {
	store   *storage.Store[*Result]
	logger  *slog.Logger
	emitter audit.Emitter
	metrics *metrics.Metrics
	trail   *trail.Recorder
	now     func() time.Time
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithAuditPublisher(emitter audit.Emitter) Option {
	return func(m *Manager) {
		m.emitter = emitter
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func New(ctx context.Context, persister storage.Persister, opts ...Option) (*Manager, error) {
	m := &Manager{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*Result](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.trail.Count(audit.ObjectSystemMigration, store.Count())
	return m, nil
}

// RunOnce executes step unless a successful execution of id is on record. A
// failed execution is recorded and retried on the next call. It reports
// whether step ran.
func (m *Manager) RunOnce(ctx context.Context, id string, step Step) (bool, error) {
	if !idPattern.MatchString(id) {
		return false, dErrors.Newf(dErrors.CodeValidation, "invalid system migration ID %q", id)
	}
	if m.ContainsSuccessful(id) {
		m.logger.DebugContext(ctx, "system migration already executed", "migration_id", id)
		return false, nil
	}
	m.logger.InfoContext(ctx, "executing system migration", "migration_id", id)
	stepErr := step(ctx)
	res := &Result{ID: id, ExecutedAt: m.now().UTC(), Success: stepErr == nil}
	if stepErr != nil {
		res.ErrorMessage = stepErr.Error()
	}
	if err := m.store.Put(ctx, res); err != nil {
		return true, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record system migration")
	}
	if stepErr != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectSystemMigration, id, stepErr.Error()))
		return true, stepErr
	}
	m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectSystemMigration, id))
	m.trail.Count(audit.ObjectSystemMigration, m.store.Count())
	return true, nil
}

// ContainsExecuted reports whether id ran at all, successfully or not.
func (m *Manager) ContainsExecuted(id string) bool {
	return m.store.Contains(id)
}

func (m *Manager) ContainsSuccessful(id string) bool {
	r, ok := m.store.Get(id)
	return ok && r.Success
}

func (m *Manager) GetOfID(id string) (*Result, bool) {
	return m.store.Get(id)
}

// GetAllFailed returns the migrations whose last execution failed.
func (m *Manager) GetAllFailed() []*Result {
	return m.store.Find(func(r *Result) bool { return !r.Success })
}

func (m *Manager) GetAll() []*Result {
	return m.store.All()
}

// Forget drops the record of id so that it runs again on the next start.
func (m *Manager) Forget(ctx context.Context, id string) error {
	_, found, err := m.store.Delete(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete system migration")
	}
	if !found {
		return dErrors.Newf(dErrors.CodeNotFound, "no system migration %q on record", id)
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectSystemMigration, id))
	m.trail.Count(audit.ObjectSystemMigration, m.store.Count())
	return nil
}

func (m *Manager) Count() int {
	return m.store.Count()
}
