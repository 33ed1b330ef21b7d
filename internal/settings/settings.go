// Package settings keeps the runtime settings an operator changes without a
// restart.
package settings

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"smp/internal/platform/metrics"
	"smp/internal/platform/trail"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
)

const (
	// Namespace is the persisted namespace of the settings record.
	Namespace = "settings"

	singletonID = "smp-settings"

	DefaultDirectoryHostname = "https://directory.peppol.eu"
)

// Settings is the singleton settings record.
type Settings struct {
	ID                           string `json:"id"`
	RESTWritableAPIDisabled      bool   `json:"rest_writable_api_disabled"`
	DirectoryIntegrationEnabled  bool   `json:"directory_integration_enabled"`
	DirectoryIntegrationRequired bool   `json:"directory_integration_required"`
	DirectoryAutoUpdate          bool   `json:"directory_auto_update"`
	DirectoryHostname            string `json:"directory_hostname"`
	SMLEnabled                   bool   `json:"sml_enabled"`
	SMLRequired                  bool   `json:"sml_required"`
	SMLInfoID                    string `json:"sml_info_id,omitempty"`
}

// Defaults is the state of a registry that was never configured.
func Defaults() Settings {
	return Settings{
		ID:                           singletonID,
		DirectoryIntegrationEnabled:  true,
		DirectoryIntegrationRequired: true,
		DirectoryAutoUpdate:          true,
		DirectoryHostname:            DefaultDirectoryHostname,
		SMLRequired:                  true,
	}
}

func (s *Settings) StoreID() string { return s.ID }

func (s *Settings) Clone() *Settings {
	c := *s
	return &c
}

func (s *Settings) Validate() error {
	if s.ID != singletonID {
		return dErrors.Newf(dErrors.CodeValidation, "unexpected settings ID %q", s.ID)
	}
	if s.DirectoryHostname != "" {
		u, err := url.Parse(s.DirectoryHostname)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return dErrors.Newf(dErrors.CodeValidation, "directory hostname %q is not an http(s) URL", s.DirectoryHostname)
		}
	}
	return nil
}

// SMLInfos is the lookup used to check the active SML info ID.
type SMLInfos interface {
	ContainsID(id string) bool
}

// Manager holds the settings record.
type Manager struct {
	store   *storage.Store[*Settings]
	smls    SMLInfos
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

// New loads the settings. smls may be nil, in which case the SML info ID is
// not checked.
func New(ctx context.Context, persister storage.Persister, smls SMLInfos, opts ...Option) (*Manager, error) {
	m := &Manager{smls: smls, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	store, err := storage.Open[*Settings](ctx, Namespace, persister, storage.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.store = store
	m.trail = trail.New(m.logger, m.emitter, m.metrics)
	return m, nil
}

// Get returns the current settings, falling back to Defaults.
func (m *Manager) Get() Settings {
	if s, ok := m.store.Get(singletonID); ok {
		return *s
	}
	return Defaults()
}

// Update replaces the settings. Identical settings are Unchanged.
func (m *Manager) Update(ctx context.Context, next Settings) (domain.Change, error) {
	next.ID = singletonID
	next.DirectoryHostname = strings.TrimSpace(next.DirectoryHostname)
	if err := next.Validate(); err != nil {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectSettings, "set-all", singletonID, err.Error()))
		return domain.Unchanged, err
	}
	if next.SMLInfoID != "" && m.smls != nil && !m.smls.ContainsID(next.SMLInfoID) {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectSettings, "set-all", singletonID, "no-such-sml-info"))
		return domain.Unchanged, dErrors.Newf(dErrors.CodeValidation, "SML info %q does not exist", next.SMLInfoID)
	}
	if m.Get() == next {
		return domain.Unchanged, nil
	}
	if err := m.store.Put(ctx, &next); err != nil {
		m.trail.Record(ctx, audit.ModifyFailure(audit.ObjectSettings, "set-all", singletonID, "persistence"))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store settings")
	}
	m.trail.Record(ctx, audit.ModifySuccess(audit.ObjectSettings, "set-all", singletonID,
		"sml-enabled="+strconv.FormatBool(next.SMLEnabled),
		"directory-enabled="+strconv.FormatBool(next.DirectoryIntegrationEnabled),
	))
	return domain.Changed, nil
}
