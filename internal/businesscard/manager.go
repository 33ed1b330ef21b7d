package businesscard

import (
	"context"
	"log/slog"

	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/servicegroup"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/callback"
)

// Namespace is the persisted namespace of business cards.
const Namespace = "business-cards"

// ServiceGroups resolves the service group a card belongs to.
type ServiceGroups interface {
	GetOfStoreID(id string) (*servicegroup.ServiceGroup, bool)
}

// Callback observes business card changes. syncToDirectory tells listeners
// whether the change should be pushed to the directory.
type Callback interface {
	OnCreatedOrUpdated(ctx context.Context, bc *BusinessCard, syncToDirectory bool) error
	OnDeleted(ctx context.Context, bc *BusinessCard, syncToDirectory bool) error
}

type Manager struct {
	store     *storage.Store[*BusinessCard]
	groups    ServiceGroups
	callbacks *callback.List[Callback]
	logger    *slog.Logger
	emitter   audit.Emitter
	metrics   *metrics.Metrics
	trail     *trail.Recorder
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

func New(ctx context.Context, persister storage.Persister, groups ServiceGroups, opts ...Option) (*Manager, error) {
	if groups == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "service group manager is required")
	}
	m := &Manager{groups: groups, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*BusinessCard](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.callbacks = callback.NewList[Callback](m.logger, nil)
	m.trail.Count(audit.ObjectBusinessCard, store.Count())
	return m, nil
}

func (m *Manager) Callbacks() *callback.List[Callback] {
	return m.callbacks
}

// CreateOrUpdate replaces the entities of the card of a service group. The
// service group must exist when the card is written.
func (m *Manager) CreateOrUpdate(ctx context.Context, serviceGroupID string, entities []Entity, syncToDirectory bool) (*BusinessCard, error) {
	bc, err := NewBusinessCard(serviceGroupID, entities)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectBusinessCard, serviceGroupID, err.Error()))
		return nil, err
	}
	var existed bool
	err = m.store.Write(ctx, func(tx *storage.Tx[*BusinessCard]) error {
		// Checked under the write lock so a cascading group delete either
		// sees this card or runs before it and rejects it here.
		if _, ok := m.groups.GetOfStoreID(serviceGroupID); !ok {
			return dErrors.Newf(dErrors.CodeNotFound, "service group %s not found", serviceGroupID)
		}
		existed = tx.Contains(bc.ID)
		return tx.Put(bc)
	})
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectBusinessCard, serviceGroupID, "no-such-service-group"))
		return nil, err
	}
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectBusinessCard, bc.ID, "persistence"))
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store business card")
	}
	if existed {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectBusinessCard, "set-all", bc.ID))
	} else {
		m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectBusinessCard, bc.ID))
		m.trail.Count(audit.ObjectBusinessCard, m.store.Count())
	}
	snapshot := bc.Clone()
	m.callbacks.ForEach(ctx, "created-or-updated", func(cb Callback) error {
		return cb.OnCreatedOrUpdated(ctx, snapshot, syncToDirectory)
	})
	return bc.Clone(), nil
}

// Delete removes a card. A missing card is Unchanged.
func (m *Manager) Delete(ctx context.Context, bc *BusinessCard, syncToDirectory bool) (domain.Change, error) {
	if bc == nil {
		return domain.Unchanged, nil
	}
	removed, found, err := m.store.Delete(ctx, bc.ID)
	if err != nil {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectBusinessCard, bc.ID, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete business card")
	}
	if !found {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectBusinessCard, bc.ID, "no-such-id"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectBusinessCard, bc.ID))
	m.trail.Count(audit.ObjectBusinessCard, m.store.Count())
	m.callbacks.ForEach(ctx, "deleted", func(cb Callback) error {
		return cb.OnDeleted(ctx, removed, syncToDirectory)
	})
	return domain.Changed, nil
}

// DeleteOfServiceGroup removes the card of a service group, if any.
func (m *Manager) DeleteOfServiceGroup(ctx context.Context, serviceGroupID string, syncToDirectory bool) (domain.Change, error) {
	bc, ok := m.store.Get(serviceGroupID)
	if !ok {
		return domain.Unchanged, nil
	}
	return m.Delete(ctx, bc, syncToDirectory)
}

func (m *Manager) GetOfID(serviceGroupID string) (*BusinessCard, bool) {
	return m.store.Get(serviceGroupID)
}

func (m *Manager) ContainsOfID(serviceGroupID string) bool {
	return m.store.Contains(serviceGroupID)
}

func (m *Manager) GetAll() []*BusinessCard {
	return m.store.All()
}

func (m *Manager) GetAllIDs() []string {
	return m.store.IDs()
}

func (m *Manager) Count() int {
	return m.store.Count()
}
