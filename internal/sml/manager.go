package sml

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/sentinel"
)

// Namespace is the persisted namespace of SML infos.
const Namespace = "sml-infos"

// Manager keeps the known SML instances.
type Manager struct {
	store   *storage.Store[*Info]
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

func New(ctx context.Context, persister storage.Persister, opts ...Option) (*Manager, error) {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*Info](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.trail.Count(audit.ObjectSMLInfo, store.Count())
	return m, nil
}

// Create adds an SML instance under a new ID.
func (m *Manager) Create(ctx context.Context, info Info) (*Info, error) {
	info.ID = uuid.NewString()
	info.normalize()
	if err := info.Validate(); err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectSMLInfo, info.ID, err.Error()))
		return nil, err
	}
	if err := m.store.Create(ctx, &info); err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectSMLInfo, info.ID, "persistence"))
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to create SML info")
	}
	m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectSMLInfo, info.ID, info.DisplayName, info.DNSZone))
	m.trail.Count(audit.ObjectSMLInfo, m.store.Count())
	return info.Clone(), nil
}

// Update replaces an SML instance. An unknown ID is Unchanged.
func (m *Manager) Update(ctx context.Context, info Info) (domain.Change, error) {
	info.normalize()
	if err := info.Validate(); err != nil {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectSMLInfo, "set-all", info.ID, err.Error()))
		return domain.Unchanged, err
	}
	var change domain.Change
	err := m.store.Write(ctx, func(tx *storage.Tx[*Info]) error {
		current, ok := tx.Get(info.ID)
		if !ok {
			return sentinel.ErrNotFound
		}
		if *current == info {
			return nil
		}
		change = domain.Changed
		return tx.Update(&info)
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectSMLInfo, "set-all", info.ID, "no-such-id"))
		return domain.Unchanged, nil
	case err != nil:
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectSMLInfo, "set-all", info.ID, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to update SML info")
	}
	if change.IsChanged() {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectSMLInfo, "set-all", info.ID, info.DisplayName))
	}
	return change, nil
}

// Delete removes an SML instance. An unknown ID is Unchanged.
func (m *Manager) Delete(ctx context.Context, id string) (domain.Change, error) {
	_, found, err := m.store.Delete(ctx, id)
	if err != nil {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectSMLInfo, id, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete SML info")
	}
	if !found {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectSMLInfo, id, "no-such-id"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectSMLInfo, id))
	m.trail.Count(audit.ObjectSMLInfo, m.store.Count())
	return domain.Changed, nil
}

// SeedDefaults adds the well-known SML instances that are missing and returns
// how many were added.
func (m *Manager) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	for _, info := range Defaults() {
		err := m.store.Write(ctx, func(tx *storage.Tx[*Info]) error {
			if tx.Contains(info.ID) {
				return nil
			}
			if err := tx.Create(info); err != nil {
				return err
			}
			added++
			return nil
		})
		if err != nil {
			return added, dErrors.Wrap(err, dErrors.CodePersistence, "failed to seed SML infos")
		}
	}
	if added > 0 {
		m.trail.Count(audit.ObjectSMLInfo, m.store.Count())
	}
	return added, nil
}

// FindFirstWithManageParticipantAddress returns the instance whose participant
// management endpoint is address. Trailing slashes are ignored.
func (m *Manager) FindFirstWithManageParticipantAddress(address string) (*Info, bool) {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if address == "" {
		return nil, false
	}
	return m.store.FindFirst(func(i *Info) bool { return i.ManageParticipantAddress() == address })
}

func (m *Manager) GetOfID(id string) (*Info, bool) {
	return m.store.Get(id)
}

func (m *Manager) ContainsID(id string) bool {
	return m.store.Contains(id)
}

func (m *Manager) GetAll() []*Info {
	return m.store.All()
}

func (m *Manager) Count() int {
	return m.store.Count()
}
