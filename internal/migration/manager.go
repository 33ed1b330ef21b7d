package migration

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"smp/internal/identifier"
	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/sentinel"
)

// Namespace is the persisted namespace of participant migrations.
const Namespace = "participant-migrations"

// Manager tracks participant migrations into and out of this registry.
type Manager struct {
	store   *storage.Store[*Migration]
	ids     identifier.Factory
	now     func() time.Time
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

// WithClock overrides the initiation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func New(ctx context.Context, persister storage.Persister, ids identifier.Factory, opts ...Option) (*Manager, error) {
	if ids == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "identifier factory is required")
	}
	m := &Manager{ids: ids, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*Migration](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.trail.Count(audit.ObjectMigration, store.Count())
	return m, nil
}

// CreateOutbound starts moving a participant away from this registry with a
// freshly generated migration key. A second outbound migration in progress for
// the same participant is a conflict.
func (m *Manager) CreateOutbound(ctx context.Context, pid identifier.Participant) (*Migration, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	return m.create(ctx, DirectionOutbound, pid, key)
}

// CreateInbound records a participant moving to this registry with the key
// issued by the previous registry. The key must satisfy ValidateKey.
func (m *Manager) CreateInbound(ctx context.Context, pid identifier.Participant, key string) (*Migration, error) {
	if err := ValidateKey(key); err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectMigration, pid.URIEncoded(), "invalid-key"))
		return nil, err
	}
	return m.create(ctx, DirectionInbound, pid, key)
}

func (m *Manager) create(ctx context.Context, direction Direction, pid identifier.Participant, key string) (*Migration, error) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectMigration, pid.URIEncoded(), "invalid-participant"))
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid participant identifier")
	}
	mig := &Migration{
		ID:            uuid.NewString(),
		Direction:     direction,
		State:         StateInProgress,
		ParticipantID: canonical,
		InitiatedAt:   m.now().UTC(),
		MigrationKey:  key,
	}
	err = m.store.Write(ctx, func(tx *storage.Tx[*Migration]) error {
		if tx.Any(func(x *Migration) bool { return x.isInProgressFor(direction, canonical) }) {
			return sentinel.ErrConflict
		}
		return tx.Create(mig)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			m.trail.Record(ctx, audit.CreateFailure(audit.ObjectMigration, canonical.URIEncoded(), "already-in-progress"))
			return nil, dErrors.Newf(dErrors.CodeConflict, "an %s migration of %s is already in progress", direction, canonical)
		}
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectMigration, canonical.URIEncoded(), "persistence"))
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to create migration")
	}
	m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectMigration, mig.ID, string(direction), canonical.URIEncoded()))
	m.trail.Count(audit.ObjectMigration, m.store.Count())
	m.logger.InfoContext(ctx, "participant migration started",
		"migration_id", mig.ID,
		"direction", direction,
		"participant_id", canonical.URIEncoded(),
	)
	return mig.Clone(), nil
}

// SetState moves a migration to a terminal state. Setting the current state
// again is Unchanged; any other transition out of a terminal state is an
// invalid state error.
func (m *Manager) SetState(ctx context.Context, id string, next State) (domain.Change, error) {
	if !next.IsValid() {
		return domain.Unchanged, dErrors.Newf(dErrors.CodeValidation, "unknown migration state %q", next)
	}
	var change domain.Change
	err := m.store.Write(ctx, func(tx *storage.Tx[*Migration]) error {
		mig, ok := tx.Get(id)
		if !ok {
			return sentinel.ErrNotFound
		}
		if mig.State == next {
			return nil
		}
		if !mig.State.CanTransitionTo(next) {
			return dErrors.Newf(dErrors.CodeInvalidState, "migration %s cannot move from %s to %s", id, mig.State, next)
		}
		mig.State = next
		change = domain.Changed
		return tx.Update(mig)
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectMigration, "state", id, "no-such-id"))
		return domain.Unchanged, dErrors.Newf(dErrors.CodeNotFound, "migration %s not found", id)
	case dErrors.HasCode(err, dErrors.CodeInvalidState):
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectMigration, "state", id, "invalid-transition"))
		return domain.Unchanged, err
	case err != nil:
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectMigration, "state", id, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to update migration state")
	}
	if change.IsChanged() {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectMigration, "state", id, string(next)))
	}
	return change, nil
}

// Delete removes a migration regardless of its state.
func (m *Manager) Delete(ctx context.Context, id string) (domain.Change, error) {
	_, found, err := m.store.Delete(ctx, id)
	if err != nil {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectMigration, id, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete migration")
	}
	if !found {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectMigration, id, "no-such-id"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectMigration, id))
	m.trail.Count(audit.ObjectMigration, m.store.Count())
	return domain.Changed, nil
}

// DeleteAllOfParticipant removes every migration of a participant in both
// directions.
func (m *Manager) DeleteAllOfParticipant(ctx context.Context, pid identifier.Participant) (domain.Change, error) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		return domain.Unchanged, nil
	}
	pid = canonical
	var removed []string
	err = m.store.Write(ctx, func(tx *storage.Tx[*Migration]) error {
		for _, mig := range tx.Find(func(x *Migration) bool { return x.ParticipantID == pid }) {
			if _, _, err := tx.Delete(mig.ID); err != nil {
				return err
			}
			removed = append(removed, mig.ID)
		}
		return nil
	})
	for _, id := range removed {
		m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectMigration, id, pid.URIEncoded()))
	}
	if err != nil {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectMigration, pid.URIEncoded(), "persistence"))
		return domain.Change(len(removed) > 0), dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete migrations of participant")
	}
	if len(removed) == 0 {
		return domain.Unchanged, nil
	}
	m.trail.Count(audit.ObjectMigration, m.store.Count())
	return domain.Changed, nil
}

func (m *Manager) GetOfID(id string) (*Migration, bool) {
	return m.store.Get(id)
}

// GetOfParticipant returns the first migration with the given direction and
// state for a participant.
func (m *Manager) GetOfParticipant(direction Direction, state State, pid identifier.Participant) (*Migration, bool) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		return nil, false
	}
	return m.store.FindFirst(func(x *Migration) bool {
		return x.Direction == direction && x.State == state && x.ParticipantID == canonical
	})
}

func (m *Manager) GetOutboundInProgress(pid identifier.Participant) (*Migration, bool) {
	return m.GetOfParticipant(DirectionOutbound, StateInProgress, pid)
}

// GetAllOutbound returns outbound migrations, filtered by state unless state
// is empty.
func (m *Manager) GetAllOutbound(state State) []*Migration {
	return m.getAll(DirectionOutbound, state)
}

// GetAllInbound returns inbound migrations, filtered by state unless state is
// empty.
func (m *Manager) GetAllInbound(state State) []*Migration {
	return m.getAll(DirectionInbound, state)
}

func (m *Manager) getAll(direction Direction, state State) []*Migration {
	return m.store.Find(func(x *Migration) bool {
		return x.Direction == direction && (state == "" || x.State == state)
	})
}

func (m *Manager) ContainsOutboundMigrationInProgress(pid identifier.Participant) bool {
	return m.containsInProgress(DirectionOutbound, pid)
}

func (m *Manager) ContainsInboundMigrationInProgress(pid identifier.Participant) bool {
	return m.containsInProgress(DirectionInbound, pid)
}

func (m *Manager) containsInProgress(direction Direction, pid identifier.Participant) bool {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		return false
	}
	_, ok := m.store.FindFirst(func(x *Migration) bool { return x.isInProgressFor(direction, canonical) })
	return ok
}

func (m *Manager) Count() int {
	return m.store.Count()
}
