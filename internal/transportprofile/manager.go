package transportprofile

import (
	"context"
	"errors"
	"log/slog"

	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/sentinel"
)

// Namespace is the persisted namespace of transport profiles.
const Namespace = "transport-profiles"

// Manager is the registry of valid transport profile IDs.
type Manager struct {
	store   *storage.Store[*Profile]
	logger  *slog.Logger
	emitter audit.Emitter
	metrics *metrics.Metrics
	trail   *trail.Recorder
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

// New loads all transport profiles from persister.
func New(ctx context.Context, persister storage.Persister, opts ...Option) (*Manager, error) {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*Profile](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.trail.Count(audit.ObjectTransportProfile, store.Count())
	return m, nil
}

// Create adds a profile. A duplicate ID is a conflict.
func (m *Manager) Create(ctx context.Context, id, name string, deprecated bool) (*Profile, error) {
	p, err := NewProfile(id, name, deprecated)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectTransportProfile, id, err.Error()))
		return nil, err
	}
	if err := m.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			m.trail.Record(ctx, audit.CreateFailure(audit.ObjectTransportProfile, p.ID, "already-exists"))
			return nil, dErrors.Newf(dErrors.CodeConflict, "transport profile %q already exists", p.ID)
		}
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectTransportProfile, p.ID, "persistence"))
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to create transport profile")
	}
	m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectTransportProfile, p.ID, p.Name, string(p.State)))
	m.trail.Count(audit.ObjectTransportProfile, m.store.Count())
	return p, nil
}

// Update sets name and deprecation. An unknown ID is Unchanged.
func (m *Manager) Update(ctx context.Context, id, name string, deprecated bool) (domain.Change, error) {
	var change domain.Change
	err := m.store.Write(ctx, func(tx *storage.Tx[*Profile]) error {
		p, ok := tx.Get(id)
		if !ok {
			return sentinel.ErrNotFound
		}
		next, err := NewProfile(id, name, deprecated)
		if err != nil {
			return err
		}
		if next.Name == p.Name && next.State == p.State {
			return nil
		}
		change = domain.Changed
		return tx.Update(next)
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectTransportProfile, "set-all", id, "no-such-id"))
		return domain.Unchanged, nil
	case dErrors.HasCode(err, dErrors.CodeValidation):
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectTransportProfile, "set-all", id, err.Error()))
		return domain.Unchanged, err
	case err != nil:
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to update transport profile")
	}
	if change.IsChanged() {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectTransportProfile, "set-all", id, name))
	}
	return change, nil
}

// Delete removes a profile. An unknown ID is Unchanged.
func (m *Manager) Delete(ctx context.Context, id string) (domain.Change, error) {
	if id == "" {
		return domain.Unchanged, nil
	}
	_, found, err := m.store.Delete(ctx, id)
	if err != nil {
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete transport profile")
	}
	if !found {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectTransportProfile, id, "no-such-id"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectTransportProfile, id))
	m.trail.Count(audit.ObjectTransportProfile, m.store.Count())
	return domain.Changed, nil
}

// EnsureExists creates a profile named after its ID when it is missing. It
// reports Changed when a profile was created.
func (m *Manager) EnsureExists(ctx context.Context, id string) (domain.Change, error) {
	var created *Profile
	err := m.store.Write(ctx, func(tx *storage.Tx[*Profile]) error {
		if tx.Contains(id) {
			return nil
		}
		p, err := NewProfile(id, id, false)
		if err != nil {
			return err
		}
		if err := tx.Create(p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return domain.Unchanged, err
		}
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to create transport profile")
	}
	if created == nil {
		return domain.Unchanged, nil
	}
	m.logger.InfoContext(ctx, "created missing transport profile", "transport_profile", id)
	m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectTransportProfile, id, "auto-created"))
	m.trail.Count(audit.ObjectTransportProfile, m.store.Count())
	return domain.Changed, nil
}

// SeedDefaults adds every well-known profile that is not present yet.
func (m *Manager) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	for _, p := range Defaults() {
		err := m.store.Create(ctx, p)
		switch {
		case err == nil:
			added++
		case errors.Is(err, sentinel.ErrConflict):
		default:
			return added, dErrors.Wrap(err, dErrors.CodePersistence, "failed to seed transport profiles")
		}
	}
	if added > 0 {
		m.logger.InfoContext(ctx, "seeded transport profiles", "count", added)
		m.trail.Count(audit.ObjectTransportProfile, m.store.Count())
	}
	return added, nil
}

func (m *Manager) GetOfID(id string) (*Profile, bool) {
	return m.store.Get(id)
}

func (m *Manager) ContainsID(id string) bool {
	return m.store.Contains(id)
}

// GetAll returns all profiles ordered by ID.
func (m *Manager) GetAll() []*Profile {
	return m.store.All()
}

func (m *Manager) Count() int {
	return m.store.Count()
}
