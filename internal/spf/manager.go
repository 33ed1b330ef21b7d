package spf

import (
	"context"
	"log/slog"

	"smp/internal/identifier"
	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
)

// Namespace is the persisted namespace of SPF4Peppol policies.
const Namespace = "spf-policies"

// Manager keeps one SPF4Peppol policy per participant.
type Manager struct {
	store   *storage.Store[*Policy]
	ids     identifier.Factory
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

func New(ctx context.Context, persister storage.Persister, ids identifier.Factory, opts ...Option) (*Manager, error) {
	if ids == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "identifier factory is required")
	}
	m := &Manager{ids: ids, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*Policy](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.trail.Count(audit.ObjectSPFPolicy, store.Count())
	return m, nil
}

// CreateOrUpdate replaces the policy of a participant as a whole.
func (m *Manager) CreateOrUpdate(ctx context.Context, pid identifier.Participant, terms []Term, ttl *int, explanation string) (*Policy, error) {
	canonical, err := m.ids.CloneParticipant(pid)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectSPFPolicy, pid.URIEncoded(), "invalid-participant"))
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid participant identifier")
	}
	p, err := NewPolicy(canonical, terms, ttl, explanation)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectSPFPolicy, canonical.URIEncoded(), err.Error()))
		return nil, err
	}
	var existed bool
	err = m.store.Write(ctx, func(tx *storage.Tx[*Policy]) error {
		existed = tx.Contains(p.ID)
		return tx.Put(p)
	})
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectSPFPolicy, p.ID, "persistence"))
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store SPF policy")
	}
	if existed {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectSPFPolicy, "set-all", p.ID, p.Record(), p.ttlString()))
	} else {
		m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectSPFPolicy, p.ID, p.Record(), p.ttlString()))
		m.trail.Count(audit.ObjectSPFPolicy, m.store.Count())
	}
	return p.Clone(), nil
}

// Delete removes a policy. A missing policy is Unchanged.
func (m *Manager) Delete(ctx context.Context, p *Policy) (domain.Change, error) {
	if p == nil {
		return domain.Unchanged, nil
	}
	_, found, err := m.store.Delete(ctx, p.ID)
	if err != nil {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectSPFPolicy, p.ID, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete SPF policy")
	}
	if !found {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectSPFPolicy, p.ID, "no-such-id"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectSPFPolicy, p.ID))
	m.trail.Count(audit.ObjectSPFPolicy, m.store.Count())
	return domain.Changed, nil
}

// DeleteOfServiceGroup removes the policy of the participant a service group
// belongs to.
func (m *Manager) DeleteOfServiceGroup(ctx context.Context, pid identifier.Participant) (domain.Change, error) {
	p, ok := m.GetOfID(pid)
	if !ok {
		return domain.Unchanged, nil
	}
	return m.Delete(ctx, p)
}

func (m *Manager) GetOfID(pid identifier.Participant) (*Policy, bool) {
	return m.store.Get(m.idOf(pid))
}

func (m *Manager) ContainsOfID(pid identifier.Participant) bool {
	return m.store.Contains(m.idOf(pid))
}

func (m *Manager) idOf(pid identifier.Participant) string {
	if canonical, err := m.ids.CloneParticipant(pid); err == nil {
		return canonical.URIEncoded()
	}
	return pid.URIEncoded()
}

func (m *Manager) GetAllIDs() []string {
	return m.store.IDs()
}

func (m *Manager) Count() int {
	return m.store.Count()
}
