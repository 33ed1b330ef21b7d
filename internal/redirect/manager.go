package redirect

import (
	"context"
	"log/slog"
	"slices"

	"smp/internal/identifier"
	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/callback"
)

// Namespace is the persisted namespace of redirects.
const Namespace = "redirects"

// Callback observes redirect changes after they are committed.
type Callback interface {
	OnCreatedOrUpdated(ctx context.Context, r *Redirect) error
	OnDeleted(ctx context.Context, r *Redirect) error
}

// Manager keeps the redirects per (service group, document type).
type Manager struct {
	store     *storage.Store[*Redirect]
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

func New(ctx context.Context, persister storage.Persister, opts ...Option) (*Manager, error) {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*Redirect](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.callbacks = callback.NewList[Callback](m.logger, nil)
	m.trail.Count(audit.ObjectRedirect, store.Count())
	return m, nil
}

func (m *Manager) Callbacks() *callback.List[Callback] {
	return m.callbacks
}

// CreateOrUpdate stores the redirect for a service group and document type,
// replacing any existing one.
func (m *Manager) CreateOrUpdate(ctx context.Context, serviceGroupID string, docType identifier.DocumentType, targetHref, subjectUniqueID, certificate, extension string) (*Redirect, error) {
	r, err := NewRedirect(serviceGroupID, docType, targetHref, subjectUniqueID, certificate, extension)
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectRedirect, IDOf(serviceGroupID, docType), err.Error()))
		return nil, err
	}
	var existed, changed bool
	err = m.store.Write(ctx, func(tx *storage.Tx[*Redirect]) error {
		current, ok := tx.Get(r.ID)
		existed = ok
		if ok && current.equal(r) {
			return nil
		}
		changed = true
		return tx.Put(r)
	})
	if err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectRedirect, r.ID, "persistence"))
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store redirect")
	}
	if !changed {
		return r.Clone(), nil
	}
	if existed {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectRedirect, "set-all", r.ID, r.TargetHref, r.SubjectUniqueID))
	} else {
		m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectRedirect, r.ID, r.TargetHref, r.SubjectUniqueID))
		m.trail.Count(audit.ObjectRedirect, m.store.Count())
	}
	snapshot := r.Clone()
	m.callbacks.ForEach(ctx, "created-or-updated", func(cb Callback) error { return cb.OnCreatedOrUpdated(ctx, snapshot) })
	return r.Clone(), nil
}

// Delete removes a redirect. A missing redirect is Unchanged.
func (m *Manager) Delete(ctx context.Context, r *Redirect) (domain.Change, error) {
	if r == nil {
		return domain.Unchanged, nil
	}
	removed, found, err := m.store.Delete(ctx, r.ID)
	if err != nil {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectRedirect, r.ID, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete redirect")
	}
	if !found {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectRedirect, r.ID, "no-such-id"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectRedirect, r.ID))
	m.trail.Count(audit.ObjectRedirect, m.store.Count())
	m.callbacks.ForEach(ctx, "deleted", func(cb Callback) error { return cb.OnDeleted(ctx, removed) })
	return domain.Changed, nil
}

// DeleteAllOfServiceGroup removes every redirect of a service group and
// returns the first error after attempting all of them.
func (m *Manager) DeleteAllOfServiceGroup(ctx context.Context, serviceGroupID string) (domain.Change, error) {
	change := domain.Unchanged
	var firstErr error
	for _, r := range m.GetAllOfServiceGroup(serviceGroupID) {
		c, err := m.Delete(ctx, r)
		change = change.Or(c)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return change, firstErr
}

func (m *Manager) GetOfID(id string) (*Redirect, bool) {
	return m.store.Get(id)
}

// GetRedirectOfServiceGroup returns the redirect of a service group for one
// document type.
func (m *Manager) GetRedirectOfServiceGroup(serviceGroupID string, docType identifier.DocumentType) (*Redirect, bool) {
	return m.store.Get(IDOf(serviceGroupID, docType))
}

func (m *Manager) GetAllOfServiceGroup(serviceGroupID string) []*Redirect {
	out := m.store.Find(func(r *Redirect) bool { return r.ServiceGroupID == serviceGroupID })
	slices.SortFunc(out, Compare)
	return out
}

// GetAll returns all redirects in Compare order.
func (m *Manager) GetAll() []*Redirect {
	out := m.store.All()
	slices.SortFunc(out, Compare)
	return out
}

func (m *Manager) Count() int {
	return m.store.Count()
}
