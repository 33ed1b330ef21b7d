package serviceinfo

import (
	"context"
	"errors"
	"log/slog"

	"smp/internal/identifier"
	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/servicegroup"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/callback"
	"smp/pkg/platform/sentinel"
)

// Namespace is the persisted namespace of service information records.
const Namespace = "service-information"

// ServiceGroups resolves the owning service group of a record.
type ServiceGroups interface {
	GetOfStoreID(id string) (*servicegroup.ServiceGroup, bool)
}

// TransportProfiles is the registry endpoint transport profiles must exist in.
type TransportProfiles interface {
	ContainsID(id string) bool
	EnsureExists(ctx context.Context, id string) (domain.Change, error)
}

// Match is the result of an exact endpoint lookup.
type Match struct {
	ServiceInformation *ServiceInformation
	Process            Process
	Endpoint           Endpoint
}

// Manager keeps the processes and endpoints per (service group, document type).
type Manager struct {
	store      *storage.Store[*ServiceInformation]
	groups     ServiceGroups
	profiles   TransportProfiles
	autoCreate bool
	callbacks  *callback.List[Callback]
	logger     *slog.Logger
	emitter    audit.Emitter
	metrics    *metrics.Metrics
	trail      *trail.Recorder
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

// WithAutoCreateTransportProfiles creates unknown transport profiles
// referenced by endpoints instead of rejecting the record.
func WithAutoCreateTransportProfiles(enabled bool) Option {
	return func(m *Manager) {
		m.autoCreate = enabled
	}
}

// New loads all service information records from persister.
func New(ctx context.Context, persister storage.Persister, groups ServiceGroups, profiles TransportProfiles, opts ...Option) (*Manager, error) {
	if groups == nil || profiles == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "service group and transport profile managers are required")
	}
	m := &Manager{groups: groups, profiles: profiles, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*ServiceInformation](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	m.callbacks = callback.NewList[Callback](m.logger, nil)
	m.trail.Count(audit.ObjectServiceInfo, store.Count())
	return m, nil
}

func (m *Manager) Callbacks() *callback.List[Callback] {
	return m.callbacks
}

// CreateOrUpdate stores si, fully replacing an existing record for the same
// service group and document type.
func (m *Manager) CreateOrUpdate(ctx context.Context, si *ServiceInformation) (*ServiceInformation, error) {
	if err := m.checkIncoming(ctx, si); err != nil {
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceInfo, idOf(si), err.Error()))
		return nil, err
	}
	stored := si.Clone()
	var existed bool
	err := m.store.Write(ctx, func(tx *storage.Tx[*ServiceInformation]) error {
		if err := m.checkGroup(stored); err != nil {
			return err
		}
		existed = tx.Contains(stored.ID)
		return tx.Put(stored)
	})
	if err != nil {
		if _, coded := dErrors.CodeOf(err); coded {
			m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceInfo, stored.ID, err.Error()))
			return nil, err
		}
		m.trail.Record(ctx, audit.CreateFailure(audit.ObjectServiceInfo, stored.ID, "persistence"))
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store service information")
	}
	m.afterWrite(ctx, stored, existed)
	return stored.Clone(), nil
}

// Merge folds si into the existing record: a process with a known ID merges
// its endpoints by transport profile (replace on match, append otherwise);
// unknown processes are appended. Without an existing record si is created.
func (m *Manager) Merge(ctx context.Context, si *ServiceInformation) (*ServiceInformation, error) {
	if err := m.checkIncoming(ctx, si); err != nil {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectServiceInfo, "merge", idOf(si), err.Error()))
		return nil, err
	}
	var (
		merged  *ServiceInformation
		existed bool
	)
	err := m.store.Write(ctx, func(tx *storage.Tx[*ServiceInformation]) error {
		if err := m.checkGroup(si); err != nil {
			return err
		}
		current, ok := tx.Get(si.ID)
		if !ok {
			merged = si.Clone()
			return tx.Create(merged)
		}
		existed = true
		current.merge(si)
		if err := current.Validate(); err != nil {
			return err
		}
		merged = current
		return tx.Update(merged)
	})
	if err != nil {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectServiceInfo, "merge", si.ID, err.Error()))
		if _, coded := dErrors.CodeOf(err); coded {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to merge service information")
	}
	m.afterWrite(ctx, merged, existed)
	return merged.Clone(), nil
}

func (m *Manager) afterWrite(ctx context.Context, si *ServiceInformation, existed bool) {
	snapshot := si.Clone()
	if existed {
		m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectServiceInfo, "set-all", si.ID, si.ServiceGroupID, si.DocumentType.URIEncoded()))
		m.callbacks.ForEach(ctx, "updated", func(cb Callback) error { return cb.OnUpdated(ctx, snapshot) })
		return
	}
	m.trail.Record(ctx, audit.CreateSuccess(audit.ObjectServiceInfo, si.ID, si.ServiceGroupID, si.DocumentType.URIEncoded()))
	m.trail.Count(audit.ObjectServiceInfo, m.store.Count())
	m.callbacks.ForEach(ctx, "created", func(cb Callback) error { return cb.OnCreated(ctx, snapshot) })
}

// checkGroup runs inside the store write lock. A cascading service group
// delete then either runs first and fails the write, or waits and removes it.
func (m *Manager) checkGroup(si *ServiceInformation) error {
	if _, ok := m.groups.GetOfStoreID(si.ServiceGroupID); !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "service group %s not found", si.ServiceGroupID)
	}
	return nil
}

// checkIncoming validates si and its transport profiles.
func (m *Manager) checkIncoming(ctx context.Context, si *ServiceInformation) error {
	if si == nil {
		return dErrors.New(dErrors.CodeValidation, "service information is required")
	}
	if err := si.Validate(); err != nil {
		return err
	}
	for _, tp := range si.TransportProfiles() {
		if m.profiles.ContainsID(tp) {
			continue
		}
		if !m.autoCreate {
			return dErrors.Newf(dErrors.CodeValidation, "transport profile %q is unknown", tp)
		}
		if _, err := m.profiles.EnsureExists(ctx, tp); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a record. A missing record is Unchanged.
func (m *Manager) Delete(ctx context.Context, si *ServiceInformation) (domain.Change, error) {
	if si == nil {
		return domain.Unchanged, nil
	}
	return m.deleteID(ctx, si.ID)
}

func (m *Manager) deleteID(ctx context.Context, id string) (domain.Change, error) {
	removed, found, err := m.store.Delete(ctx, id)
	if err != nil {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceInfo, id, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete service information")
	}
	if !found {
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceInfo, id, "no-such-id"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectServiceInfo, id))
	m.trail.Count(audit.ObjectServiceInfo, m.store.Count())
	m.callbacks.ForEach(ctx, "deleted", func(cb Callback) error { return cb.OnDeleted(ctx, removed) })
	return domain.Changed, nil
}

// DeleteAllOfServiceGroup removes every record of a service group. It keeps
// going after a failed delete and returns the first error.
func (m *Manager) DeleteAllOfServiceGroup(ctx context.Context, serviceGroupID string) (domain.Change, error) {
	change := domain.Unchanged
	var firstErr error
	for _, si := range m.GetAllOfServiceGroup(serviceGroupID) {
		c, err := m.deleteID(ctx, si.ID)
		change = change.Or(c)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return change, firstErr
}

// DeleteProcess removes one process. Removing the last process removes the
// whole record.
func (m *Manager) DeleteProcess(ctx context.Context, si *ServiceInformation, processID identifier.Process) (domain.Change, error) {
	if si == nil {
		return domain.Unchanged, nil
	}
	var (
		change  domain.Change
		emptied bool
		updated *ServiceInformation
	)
	err := m.store.Write(ctx, func(tx *storage.Tx[*ServiceInformation]) error {
		current, ok := tx.Get(si.ID)
		if !ok {
			return sentinel.ErrNotFound
		}
		if !current.deleteProcess(processID) {
			return nil
		}
		change = domain.Changed
		if len(current.Processes) == 0 {
			emptied = true
			_, _, err := tx.Delete(current.ID)
			updated = current
			return err
		}
		updated = current
		return tx.Update(current)
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceInfo, si.ID, "no-such-id"))
		return domain.Unchanged, nil
	case err != nil:
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceInfo, si.ID, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to delete process")
	case !change.IsChanged():
		m.trail.Record(ctx, audit.DeleteFailure(audit.ObjectServiceInfo, si.ID, "no-such-process"))
		return domain.Unchanged, nil
	}
	m.trail.Record(ctx, audit.DeleteSuccess(audit.ObjectServiceInfo, si.ID, processID.URIEncoded()))
	if emptied {
		m.trail.Count(audit.ObjectServiceInfo, m.store.Count())
		m.callbacks.ForEach(ctx, "deleted", func(cb Callback) error { return cb.OnDeleted(ctx, updated) })
	} else {
		m.callbacks.ForEach(ctx, "updated", func(cb Callback) error { return cb.OnUpdated(ctx, updated) })
	}
	return domain.Changed, nil
}

// FindServiceInformation returns the exact endpoint for a service group,
// document type, process and transport profile.
func (m *Manager) FindServiceInformation(serviceGroupID string, docType identifier.DocumentType, processID identifier.Process, transportProfile string) (*Match, bool) {
	si, ok := m.store.Get(IDOf(serviceGroupID, docType))
	if !ok {
		return nil, false
	}
	p, ok := si.Process(processID)
	if !ok {
		return nil, false
	}
	e, ok := p.Endpoint(transportProfile)
	if !ok {
		return nil, false
	}
	return &Match{ServiceInformation: si, Process: p, Endpoint: e}, true
}

func (m *Manager) GetOfID(id string) (*ServiceInformation, bool) {
	return m.store.Get(id)
}

func (m *Manager) GetOfServiceGroupAndDocumentType(serviceGroupID string, docType identifier.DocumentType) (*ServiceInformation, bool) {
	return m.store.Get(IDOf(serviceGroupID, docType))
}

func (m *Manager) GetAllOfServiceGroup(serviceGroupID string) []*ServiceInformation {
	return m.store.Find(func(si *ServiceInformation) bool { return si.ServiceGroupID == serviceGroupID })
}

func (m *Manager) GetAllDocumentTypesOfServiceGroup(serviceGroupID string) []identifier.DocumentType {
	records := m.GetAllOfServiceGroup(serviceGroupID)
	out := make([]identifier.DocumentType, 0, len(records))
	for _, si := range records {
		out = append(out, si.DocumentType)
	}
	return out
}

func (m *Manager) GetAll() []*ServiceInformation {
	return m.store.All()
}

func (m *Manager) Count() int {
	return m.store.Count()
}

// ContainsAnyEndpointWithTransportProfile reports whether any endpoint uses tp.
func (m *Manager) ContainsAnyEndpointWithTransportProfile(tp string) bool {
	_, ok := m.store.FindFirst(func(si *ServiceInformation) bool {
		for _, p := range si.Processes {
			if _, ok := p.Endpoint(tp); ok {
				return true
			}
		}
		return false
	})
	return ok
}

// AllTransportProfiles returns every transport profile referenced by stored
// endpoints.
func (m *Manager) AllTransportProfiles() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, si := range m.store.All() {
		for _, tp := range si.TransportProfiles() {
			if _, ok := seen[tp]; !ok {
				seen[tp] = struct{}{}
				out = append(out, tp)
			}
		}
	}
	return out
}

func idOf(si *ServiceInformation) string {
	if si == nil {
		return ""
	}
	return si.ID
}
