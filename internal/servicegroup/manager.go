package servicegroup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"smp/internal/identifier"
	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/callback"
	"smp/pkg/platform/sentinel"
)

// Namespace is the persisted namespace of service groups.
const Namespace = "service-groups"

// Manager owns the participant to owner records and is the root of cascade
// deletes.
type Manager struct {
	store     *storage.Store[*ServiceGroup]
	ids       identifier.Factory
	hook      RegistrationHook
	locks     *participantLocks
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

// WithRegistrationHook enables SML registration. Without a hook, requests to
// create or delete in the SML fail as unavailable.
func WithRegistrationHook(hook RegistrationHook) Option {
	return func(m *Manager) {
		m.hook = hook
	}
}

// New loads all service groups from persister.
func New(ctx context.Context, persister storage.Persister, ids identifier.Factory, opts ...Option) (*Manager, error) {
	if ids == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "identifier factory is required")
	}
	m := &Manager{ids: ids, locks: newParticipantLocks(), logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*ServiceGroup](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.callbacks = callback.NewList[Callback](m.logger, func(event string, _ error) {
		m.metrics.IncCascadeFailure("servicegroup." + event)
	})
	m.trail.Count(audit.ObjectServiceGroup, store.Count())
	return m, nil
}

// Callbacks returns the ordered observer list.
func (m *Manager) Callbacks() *callback.List[Callback] {
	return m.callbacks
}

// Create registers a new service group. With createInSML the SML is updated
// first; a failing local persist then undoes the SML registration. Creates and
// deletes of one participant run one at a time.
func (m *Manager) Create(ctx context.Context, ownerID string, pid identifier.Participant, extension string, createInSML bool) (*ServiceGroup, error) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceGroup, pid.URIEncoded(), "invalid-participant"))
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid participant identifier")
	}
	sg, err := newServiceGroup(canonical, ownerID, extension)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceGroup, canonical.URIEncoded(), err.Error()))
		return nil, err
	}
	unlock := m.locks.lock(sg.ID)
	defer unlock()

	if m.store.Contains(sg.ID) {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceGroup, sg.ID, "already-exists"))
		return nil, dErrors.Newf(dErrors.CodeConflict, "service group %s already exists", sg.ID)
	}

	if createInSML {
		if err := m.callHook(ctx, "create", canonical, m.hookCreate); err != nil {
			m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceGroup, sg.ID, "sml-failure"))
			return nil, err
		}
	}

	if err := m.store.Create(ctx, sg); err != nil {
		// A conflict means the registration belongs to the group that won.
		if createInSML && !errors.Is(err, sentinel.ErrConflict) {
			if undoErr := m.callHook(ctx, "undo-create", canonical, m.hookUndoCreate); undoErr != nil {
				m.logger.ErrorContext(ctx, "failed to undo SML registration",
					"participant_id", sg.ID,
					"error", undoErr,
				)
			}
		}
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceGroup, sg.ID, "persistence"))
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "service group %s already exists", sg.ID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to create service group")
	}

	m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectServiceGroup, sg.ID, sg.OwnerID, fmt.Sprintf("sml=%t", createInSML)))
	m.trail.Count(audit.ObjectServiceGroup, m.store.Count())
	m.logger.DebugContext(ctx, "service group created", "participant_id", sg.ID, "owner_id", sg.OwnerID)

	created := sg.Clone()
	m.callbacks.ForEach(ctx, "created", func(cb Callback) error {
		return cb.OnCreated(ctx, created, createInSML)
	})
	return sg, nil
}

// Update changes owner and extension. The participant cannot change.
func (m *Manager) Update(ctx context.Context, pid identifier.Participant, ownerID, extension string) (domain.Change, error) {
	var change domain.Change
	id, err := m.mutate(ctx, pid, func(sg *ServiceGroup) error {
		if sg.OwnerID == ownerID && sg.Extension == extension {
			return nil
		}
		sg.OwnerID = ownerID
		sg.Extension = extension
		change = domain.Changed
		return nil
	}, &change)
	if err != nil {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectServiceGroup, "set-all", id, err.Error()))
		return domain.Unchanged, err
	}
	if change.IsChanged() {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectServiceGroup, "set-all", id, ownerID))
		m.fireUpdated(ctx, pid)
	}
	return change, nil
}

// SetCustomProperties replaces all custom properties of a group.
func (m *Manager) SetCustomProperties(ctx context.Context, pid identifier.Participant, props Properties) (domain.Change, error) {
	normalized, err := NewProperties(props...)
	if err != nil {
		return domain.Unchanged, err
	}
	return m.updateProperties(ctx, pid, "custom-properties", func(Properties) Properties { return normalized })
}

// SetCustomProperty adds or replaces one custom property.
func (m *Manager) SetCustomProperty(ctx context.Context, pid identifier.Participant, prop Property) (domain.Change, error) {
	if err := prop.Validate(); err != nil {
		return domain.Unchanged, err
	}
	return m.updateProperties(ctx, pid, "custom-property", func(ps Properties) Properties { return ps.With(prop) })
}

// DeleteCustomProperty removes one custom property by name.
func (m *Manager) DeleteCustomProperty(ctx context.Context, pid identifier.Participant, name string) (domain.Change, error) {
	return m.updateProperties(ctx, pid, "custom-property", func(ps Properties) Properties { return ps.Without(name) })
}

func (m *Manager) updateProperties(ctx context.Context, pid identifier.Participant, field string, fn func(Properties) Properties) (domain.Change, error) {
	var change domain.Change
	id, err := m.mutate(ctx, pid, func(sg *ServiceGroup) error {
		next := fn(sg.CustomProperties)
		if len(next) == 0 {
			next = nil
		}
		if next.Equal(sg.CustomProperties) {
			return nil
		}
		sg.CustomProperties = next
		change = domain.Changed
		return nil
	}, &change)
	if err != nil {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectServiceGroup, field, id, err.Error()))
		return domain.Unchanged, err
	}
	if change.IsChanged() {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectServiceGroup, field, id))
		m.fireUpdated(ctx, pid)
	}
	return change, nil
}

// mutate applies fn to the stored group under the write lock and persists the
// result if *change was set.
func (m *Manager) mutate(ctx context.Context, pid identifier.Participant, fn func(*ServiceGroup) error, change *domain.Change) (string, error) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		return pid.URIEncoded(), dErrors.Wrap(err, dErrors.CodeValidation, "invalid participant identifier")
	}
	id := IDOf(canonical)
	err = m.store.Write(ctx, func(tx *storage.Tx[*ServiceGroup]) error {
		sg, ok := tx.Get(id)
		if !ok {
			return dErrors.Newf(dErrors.CodeNotFound, "service group %s not found", id)
		}
		if err := fn(sg); err != nil {
			return err
		}
		if !change.IsChanged() {
			return nil
		}
		if err := sg.Validate(); err != nil {
			*change = domain.Unchanged
			return err
		}
		if err := tx.Update(sg); err != nil {
			*change = domain.Unchanged
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to update service group")
		}
		return nil
	})
	return id, err
}

func (m *Manager) fireUpdated(ctx context.Context, pid identifier.Participant) {
	m.callbacks.ForEach(ctx, "updated", func(cb Callback) error {
		return cb.OnUpdated(ctx, pid)
	})
}

// Delete removes a service group and fires the delete callbacks, which
// cascade into dependent records. A missing group is Unchanged.
func (m *Manager) Delete(ctx context.Context, pid identifier.Participant, deleteInSML bool) (domain.Change, error) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		return domain.Unchanged, nil
	}
	id := IDOf(canonical)
	unlock := m.locks.lock(id)
	defer unlock()

	if !m.store.Contains(id) {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceGroup, id, "no-such-id"))
		return domain.Unchanged, nil
	}

	if deleteInSML {
		if err := m.callHook(ctx, "delete", canonical, m.hookDelete); err != nil {
			m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceGroup, id, "sml-failure"))
			return domain.Unchanged, err
		}
	}

	_, found, err := m.store.Delete(ctx, id)
	if err == nil && !found {
		// Already gone: the SML deregistration stands.
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceGroup, id, "no-such-id"))
		return domain.Unchanged, nil
	}
	if err != nil {
		if deleteInSML {
			if undoErr := m.callHook(ctx, "undo-delete", canonical, m.hookUndoDelete); undoErr != nil {
				m.logger.ErrorContext(ctx, "failed to undo SML deregistration",
					"participant_id", id,
					"error", undoErr,
				)
			}
		}
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceGroup, id, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete service group")
	}

	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectServiceGroup, id, fmt.Sprintf("sml=%t", deleteInSML)))
	m.trail.Count(audit.ObjectServiceGroup, m.store.Count())
	m.logger.DebugContext(ctx, "service group deleted", "participant_id", id)

	m.callbacks.ForEach(ctx, "deleted", func(cb Callback) error {
		return cb.OnDeleted(ctx, canonical, deleteInSML)
	})
	return domain.Changed, nil
}

func (m *Manager) hookCreate(ctx context.Context, pid identifier.Participant) error {
	return m.hook.CreateServiceGroup(ctx, pid)
}

func (m *Manager) hookUndoCreate(ctx context.Context, pid identifier.Participant) error {
	return m.hook.UndoCreateServiceGroup(ctx, pid)
}

func (m *Manager) hookDelete(ctx context.Context, pid identifier.Participant) error {
	return m.hook.DeleteServiceGroup(ctx, pid)
}

func (m *Manager) hookUndoDelete(ctx context.Context, pid identifier.Participant) error {
	return m.hook.UndoDeleteServiceGroup(ctx, pid)
}

func (m *Manager) callHook(ctx context.Context, op string, pid identifier.Participant, call func(context.Context, identifier.Participant) error) error {
	if m.hook == nil {
		return dErrors.New(dErrors.CodeUnavailable, "SML integration is not available")
	}
	start := time.Now()
	err := call(ctx, pid)
	m.metrics.ObserveSMLHook(op, start, err)
	if err != nil {
		if _, coded := dErrors.CodeOf(err); coded {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("SML %s failed", op))
	}
	return nil
}

// GetOfID returns the group of a participant, normalizing it first.
func (m *Manager) GetOfID(pid identifier.Participant) (*ServiceGroup, bool) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		return nil, false
	}
	return m.store.Get(IDOf(canonical))
}

// GetOfStoreID returns the group with the given service group ID.
func (m *Manager) GetOfStoreID(id string) (*ServiceGroup, bool) {
	return m.store.Get(id)
}

func (m *Manager) ContainsID(pid identifier.Participant) bool {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		return false
	}
	return m.store.Contains(IDOf(canonical))
}

// GetAll returns every group ordered by ID.
func (m *Manager) GetAll() []*ServiceGroup {
	return m.store.All()
}

func (m *Manager) GetAllOfOwner(ownerID string) []*ServiceGroup {
	return m.store.Find(func(sg *ServiceGroup) bool { return sg.OwnerID == ownerID })
}

func (m *Manager) CountOfOwner(ownerID string) int {
	return m.store.CountWhere(func(sg *ServiceGroup) bool { return sg.OwnerID == ownerID })
}

func (m *Manager) Count() int {
	return m.store.Count()
}
