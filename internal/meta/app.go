// Package meta builds every registry manager in dependency order, wires the
// cross-entity callbacks and runs the one-time data migrations.
package meta

import (
	"context"
	"log/slog"
	"time"

	"smp/internal/backend"
	"smp/internal/businesscard"
	"smp/internal/identifier"
	"smp/internal/keys"
	"smp/internal/migration"
	"smp/internal/platform/config"
	"smp/internal/platform/metrics"
	"smp/internal/redirect"
	"smp/internal/servicegroup"
	"smp/internal/serviceinfo"
	"smp/internal/settings"
	"smp/internal/sml"
	"smp/internal/spf"
	"smp/internal/storage"
	"smp/internal/sysmigration"
	"smp/internal/transportprofile"
	"smp/internal/urlprovider"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	audit "smp/pkg/platform/audit"
)

// App is the initialized registry. All managers are ready to use once New
// returns; only the backend connection state changes afterwards.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	emitter audit.Emitter
	metrics *metrics.Metrics

	ids     identifier.Factory
	keys    *keys.Manager
	backend *backend.Provider
	urls    *urlprovider.Provider
	guard   *sml.Guard

	smlInfos      *sml.Manager
	settings      *settings.Manager
	profiles      *transportprofile.Manager
	groups        *servicegroup.Manager
	redirects     *redirect.Manager
	serviceInfos  *serviceinfo.Manager
	migrations    *migration.Manager
	businessCards *businesscard.Manager
	spfPolicies   *spf.Manager
	sysMigrations *sysmigration.Manager

	registry  *backend.Registry
	preset    storage.Backend
	smlClient sml.Client
}

type Option func(*App)

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

func WithAuditPublisher(emitter audit.Emitter) Option {
	return func(a *App) {
		a.emitter = emitter
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithBackendRegistry replaces the default backend registry.
func WithBackendRegistry(r *backend.Registry) Option {
	return func(a *App) {
		a.registry = r
	}
}

// WithBackend uses an already open backend instead of the configured kind.
func WithBackend(b storage.Backend) Option {
	return func(a *App) {
		a.preset = b
	}
}

// WithSMLClient enables SML registration through client.
func WithSMLClient(client sml.Client) Option {
	return func(a *App) {
		a.smlClient = client
	}
}

// WithKeys uses km instead of loading the configured keystore.
func WithKeys(km *keys.Manager) Option {
	return func(a *App) {
		a.keys = km
	}
}

// New initializes the registry. Any failing mandatory step returns a
// CodeInitialization error and no App.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	start := time.Now()
	a := &App{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = backend.DefaultRegistry()
	}

	ids, err := identifier.New(cfg.SMP.IdentifierType)
	if err != nil {
		return nil, initError("identifier factory", err)
	}
	a.ids = ids

	if a.keys == nil {
		a.keys = a.loadKeys()
	}

	b := a.preset
	if b == nil {
		b, err = a.registry.Open(ctx, cfg.Backend, a.logger)
		if err != nil {
			return nil, initError("persistence backend", err)
		}
	}
	a.backend = backend.NewProvider(b,
		backend.WithLogger(a.logger),
		backend.WithMetrics(a.metrics),
		backend.WithAuditPublisher(a.emitter),
	)
	a.backend.Probe(ctx)

	if err := a.buildManagers(ctx); err != nil {
		if closeErr := a.backend.Close(); closeErr != nil {
			a.logger.WarnContext(ctx, "failed to close backend after initialization failure", "error", closeErr)
		}
		return nil, err
	}
	a.wireCallbacks()
	a.runSystemMigrations(ctx)

	a.metrics.ObserveStartup(start)
	a.logger.InfoContext(ctx, "registry initialized",
		"backend", a.backend.Name(),
		"identifier_type", a.ids.Name(),
		"service_groups", a.groups.Count(),
		"service_information", a.serviceInfos.Count(),
		"sml_available", a.SMLAvailable(),
	)
	return a, nil
}

func initError(step string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeInitialization, "failed to initialize "+step)
}

func (a *App) loadKeys() *keys.Manager {
	kc := a.cfg.Keys
	if kc.KeystorePath == "" {
		a.logger.Info("no keystore configured, SML operations are disabled")
		return nil
	}
	km, err := keys.Load(kc.KeystorePath, kc.KeystorePassword, kc.TruststorePath, keys.WithLogger(a.logger))
	if err != nil {
		a.logger.Error("failed to load keystore, SML operations are disabled", "error", err)
		return nil
	}
	if !km.IsCertificateValid() {
		a.logger.Warn("SMP certificate is not valid, SML operations are disabled")
	}
	return km
}

func (a *App) persister(namespace string) (storage.Persister, error) {
	p, err := a.backend.Persister(namespace)
	if err != nil {
		return nil, initError(namespace+" persister", err)
	}
	return p, nil
}

// buildManagers creates the managers. Each one only depends on managers
// built before it.
func (a *App) buildManagers(ctx context.Context) error {
	urls, err := urlprovider.New(urlprovider.KindFor(a.cfg.SMP.IdentifierType))
	if err != nil {
		return initError("URL provider", err)
	}
	a.urls = urls

	p, err := a.persister(sml.Namespace)
	if err != nil {
		return err
	}
	if a.smlInfos, err = sml.New(ctx, p,
		sml.WithLogger(a.logger),
		sml.WithAuditPublisher(a.emitter),
		sml.WithMetrics(a.metrics),
	); err != nil {
		return initError("SML info manager", err)
	}

	if p, err = a.persister(settings.Namespace); err != nil {
		return err
	}
	if a.settings, err = settings.New(ctx, p, a.smlInfos,
		settings.WithLogger(a.logger),
		settings.WithAuditPublisher(a.emitter),
		settings.WithMetrics(a.metrics),
	); err != nil {
		return initError("settings manager", err)
	}

	if p, err = a.persister(transportprofile.Namespace); err != nil {
		return err
	}
	if a.profiles, err = transportprofile.New(ctx, p,
		transportprofile.WithLogger(a.logger),
		transportprofile.WithAuditPublisher(a.emitter),
		transportprofile.WithMetrics(a.metrics),
	); err != nil {
		return initError("transport profile manager", err)
	}

	var certs sml.CertificateChecker
	if a.keys != nil {
		certs = a.keys
	}
	a.guard = sml.NewGuard(a.cfg.SMP.ID, a.smlClient, a.settings, a.smlInfos, certs, a.logger)

	if p, err = a.persister(servicegroup.Namespace); err != nil {
		return err
	}
	if a.groups, err = servicegroup.New(ctx, p, a.ids,
		servicegroup.WithLogger(a.logger),
		servicegroup.WithAuditPublisher(a.emitter),
		servicegroup.WithMetrics(a.metrics),
		servicegroup.WithRegistrationHook(a.guard),
	); err != nil {
		return initError("service group manager", err)
	}

	if p, err = a.persister(redirect.Namespace); err != nil {
		return err
	}
	if a.redirects, err = redirect.New(ctx, p,
		redirect.WithLogger(a.logger),
		redirect.WithAuditPublisher(a.emitter),
		redirect.WithMetrics(a.metrics),
	); err != nil {
		return initError("redirect manager", err)
	}

	if p, err = a.persister(serviceinfo.Namespace); err != nil {
		return err
	}
	if a.serviceInfos, err = serviceinfo.New(ctx, p, a.groups, a.profiles,
		serviceinfo.WithLogger(a.logger),
		serviceinfo.WithAuditPublisher(a.emitter),
		serviceinfo.WithMetrics(a.metrics),
		serviceinfo.WithAutoCreateTransportProfiles(a.cfg.SMP.AutoCreateTransportProfiles),
	); err != nil {
		return initError("service information manager", err)
	}

	if p, err = a.persister(migration.Namespace); err != nil {
		return err
	}
	if a.migrations, err = migration.New(ctx, p, a.ids,
		migration.WithLogger(a.logger),
		migration.WithAuditPublisher(a.emitter),
		migration.WithMetrics(a.metrics),
	); err != nil {
		return initError("participant migration manager", err)
	}

	if a.cfg.SMP.BusinessCardsEnabled {
		if p, err = a.persister(businesscard.Namespace); err != nil {
			return err
		}
		if a.businessCards, err = businesscard.New(ctx, p, a.groups,
			businesscard.WithLogger(a.logger),
			businesscard.WithAuditPublisher(a.emitter),
			businesscard.WithMetrics(a.metrics),
		); err != nil {
			return initError("business card manager", err)
		}
	}

	if a.cfg.SMP.SPFEnabled {
		if p, err = a.persister(spf.Namespace); err != nil {
			return err
		}
		if a.spfPolicies, err = spf.New(ctx, p, a.ids,
			spf.WithLogger(a.logger),
			spf.WithAuditPublisher(a.emitter),
			spf.WithMetrics(a.metrics),
		); err != nil {
			return initError("SPF policy manager", err)
		}
	}

	if p, err = a.persister(sysmigration.Namespace); err != nil {
		return err
	}
	if a.sysMigrations, err = sysmigration.New(ctx, p,
		sysmigration.WithLogger(a.logger),
		sysmigration.WithAuditPublisher(a.emitter),
		sysmigration.WithMetrics(a.metrics),
	); err != nil {
		return initError("system migration manager", err)
	}
	return nil
}

// Close releases the persistence backend.
func (a *App) Close() error {
	return a.backend.Close()
}

// SetBackendConnectionState records an observed change of backend
// reachability.
func (a *App) SetBackendConnectionState(ctx context.Context, state domain.TriState, trigger string) domain.Change {
	return a.backend.SetState(ctx, state, trigger)
}

func (a *App) BackendConnectionState() domain.TriState {
	return a.backend.State()
}

// ProbeBackend pings the backend and updates the connection state.
func (a *App) ProbeBackend(ctx context.Context) domain.TriState {
	return a.backend.Probe(ctx)
}

// SMLAvailable reports whether service group changes can be registered in the
// SML right now.
func (a *App) SMLAvailable() bool {
	_, err := a.guard.Available()
	return err == nil
}

func (a *App) Config() config.Config { return a.cfg }
func (a *App) IdentifierFactory() identifier.Factory { return a.ids }
func (a *App) URLProvider() *urlprovider.Provider { return a.urls }
func (a *App) SMLInfos() *sml.Manager { return a.smlInfos }
func (a *App) Settings() *settings.Manager { return a.settings }
func (a *App) TransportProfiles() *transportprofile.Manager { return a.profiles }
func (a *App) ServiceGroups() *servicegroup.Manager { return a.groups }
func (a *App) Redirects() *redirect.Manager { return a.redirects }
func (a *App) ServiceInformation() *serviceinfo.Manager { return a.serviceInfos }
func (a *App) ParticipantMigrations() *migration.Manager { return a.migrations }
func (a *App) SystemMigrations() *sysmigration.Manager { return a.sysMigrations }
func (a *App) BackendName() string { return a.backend.Name() }

// Keys returns the key manager, or false when no usable keystore was loaded.
func (a *App) Keys() (*keys.Manager, bool) {
	return a.keys, a.keys != nil
}

// BusinessCards returns the business card manager, or false when disabled.
func (a *App) BusinessCards() (*businesscard.Manager, bool) {
	return a.businessCards, a.businessCards != nil
}

// SPFPolicies returns the SPF policy manager, or false when disabled.
func (a *App) SPFPolicies() (*spf.Manager, bool) {
	return a.spfPolicies, a.spfPolicies != nil
}
