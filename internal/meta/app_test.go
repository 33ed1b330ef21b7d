package meta_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"smp/internal/businesscard"
	"smp/internal/identifier"
	"smp/internal/keys"
	"smp/internal/meta"
	"smp/internal/migration"
	"smp/internal/platform/codec"
	"smp/internal/platform/config"
	"smp/internal/platform/logger"
	"smp/internal/platform/metrics"
	"smp/internal/servicegroup"
	"smp/internal/serviceinfo"
	"smp/internal/sml/mocks"
	"smp/internal/spf"
	"smp/internal/storage"
	"smp/internal/transportprofile"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	bdd "smp/pkg/testutil"
)

var (
	pid     = identifier.Participant{Scheme: "iso6523-actorid-upis", Value: "9915:xxx"}
	other   = identifier.Participant{Scheme: "iso6523-actorid-upis", Value: "9915:other"}
	docType = identifier.DocumentType{Scheme: "busdox-docid-qns", Value: "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2::Invoice##urn:cen.eu:en16931:2017::2.1"}
	process = identifier.Process{Scheme: "cenbii-procid-ubl", Value: "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"}
)

func newApp(t *testing.T, b storage.Backend, opts ...meta.Option) *meta.App {
	t.Helper()
	return newAppWithConfig(t, config.Defaults(), b, opts...)
}

func newAppWithConfig(t *testing.T, cfg config.Config, b storage.Backend, opts ...meta.Option) *meta.App {
	t.Helper()
	base := []meta.Option{
		meta.WithLogger(logger.Discard()),
		meta.WithMetrics(metrics.New(prometheus.NewRegistry())),
		meta.WithBackend(b),
	}
	app, err := meta.New(context.Background(), cfg, append(base, opts...)...)
	require.NoError(t, err)
	return app
}

func validKeys(t *testing.T) *keys.Manager {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "SMP"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	km, err := keys.NewFromKeyPair(key, cert, nil, keys.WithLogger(logger.Discard()))
	require.NoError(t, err)
	return km
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()

	bdd.Given(t, "a fresh registry", func(t *testing.T) {
		app := newApp(t, storage.NewMemoryBackend())
		groups := app.ServiceGroups()

		bdd.When(t, "a service group is created without SML", func(t *testing.T) {
			_, err := groups.Create(ctx, "user1", pid, "", false)
			require.NoError(t, err)

			bdd.Then(t, "it is found with its owner and no extension", func(t *testing.T) {
				sg, ok := groups.GetOfID(pid)
				require.True(t, ok)
				assert.Equal(t, "user1", sg.OwnerID)
				assert.Empty(t, sg.Extension)
			})
		})

		bdd.When(t, "two outbound migrations are started back to back", func(t *testing.T) {
			migrations := app.ParticipantMigrations()
			_, err := migrations.CreateOutbound(ctx, pid)
			require.NoError(t, err)
			assert.True(t, migrations.ContainsOutboundMigrationInProgress(pid))

			_, err = migrations.CreateOutbound(ctx, pid)

			bdd.Then(t, "the second one is rejected", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
				assert.Len(t, migrations.GetAllOutbound(migration.StateInProgress), 1)
			})
		})

		bdd.When(t, "an SPF policy without TTL is stored", func(t *testing.T) {
			policies, ok := app.SPFPolicies()
			require.True(t, ok)
			pass, err := spf.NewTerm(spf.QualifierPass, spf.MechanismSeatID, "AP001")
			require.NoError(t, err)
			fail, err := spf.NewTerm(spf.QualifierFail, spf.MechanismAll, "")
			require.NoError(t, err)
			_, err = policies.CreateOrUpdate(ctx, pid, []spf.Term{pass, fail}, nil, "default policy")
			require.NoError(t, err)

			bdd.Then(t, "the default TTL applies and both terms are kept", func(t *testing.T) {
				p, ok := policies.GetOfID(pid)
				require.True(t, ok)
				assert.Equal(t, 3600, p.EffectiveTTL())
				assert.Equal(t, 2, p.TermCount())
			})
		})

		bdd.When(t, "the service group is deleted", func(t *testing.T) {
			cards, ok := app.BusinessCards()
			require.True(t, ok)
			_, err := cards.CreateOrUpdate(ctx, servicegroup.IDOf(pid), []businesscard.Entity{
				{Names: []businesscard.Name{{Name: "ACME"}}, CountryCode: "AT"},
			}, false)
			require.NoError(t, err)

			change, err := app.ServiceGroups().Delete(ctx, pid, false)
			require.NoError(t, err)
			assert.Equal(t, domain.Changed, change)

			bdd.Then(t, "its business card and migrations are gone", func(t *testing.T) {
				assert.False(t, cards.ContainsOfID(servicegroup.IDOf(pid)))
				_, found := app.ParticipantMigrations().GetOutboundInProgress(pid)
				assert.False(t, found)
				assert.False(t, app.ParticipantMigrations().ContainsOutboundMigrationInProgress(pid))
			})
		})
	})
}

func TestCascadeDeletesEveryDependentRecord(t *testing.T) {
	ctx := context.Background()
	app := newApp(t, storage.NewMemoryBackend())

	for _, p := range []identifier.Participant{pid, other} {
		_, err := app.ServiceGroups().Create(ctx, "owner", p, "", false)
		require.NoError(t, err)
		sgID := servicegroup.IDOf(p)

		si, err := serviceinfo.NewServiceInformation(sgID, docType, []serviceinfo.Process{{
			ID:        process,
			Endpoints: []serviceinfo.Endpoint{{TransportProfile: transportprofile.PeppolAS4v2, Address: "https://ap.example.org/as4"}},
		}}, "")
		require.NoError(t, err)
		_, err = app.ServiceInformation().CreateOrUpdate(ctx, si)
		require.NoError(t, err)

		redirectDoc := identifier.DocumentType{Scheme: docType.Scheme, Value: docType.Value + "-redirected"}
		_, err = app.Redirects().CreateOrUpdate(ctx, sgID, redirectDoc, "https://other-smp.example.org", "CN=other", "", "")
		require.NoError(t, err)

		_, err = app.ParticipantMigrations().CreateInbound(ctx, p, "Ab1@Cd2#")
		require.NoError(t, err)
	}

	_, err := app.ServiceGroups().Delete(ctx, pid, false)
	require.NoError(t, err)

	deleted := servicegroup.IDOf(pid)
	kept := servicegroup.IDOf(other)
	assert.Empty(t, app.ServiceInformation().GetAllOfServiceGroup(deleted))
	assert.Empty(t, app.Redirects().GetAllOfServiceGroup(deleted))
	assert.False(t, app.ParticipantMigrations().ContainsInboundMigrationInProgress(pid))

	assert.Len(t, app.ServiceInformation().GetAllOfServiceGroup(kept), 1)
	assert.Len(t, app.Redirects().GetAllOfServiceGroup(kept), 1)
	assert.True(t, app.ParticipantMigrations().ContainsInboundMigrationInProgress(other))
}

func TestBusinessCardChangesLogTheDirectoryUpdate(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	app := newApp(t, storage.NewMemoryBackend(), meta.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	cards, ok := app.BusinessCards()
	require.True(t, ok)
	_, err := app.ServiceGroups().Create(ctx, "owner", pid, "", false)
	require.NoError(t, err)
	entities := []businesscard.Entity{{Names: []businesscard.Name{{Name: "ACME"}}, CountryCode: "AT"}}

	buf.Reset()
	_, err = cards.CreateOrUpdate(ctx, servicegroup.IDOf(pid), entities, false)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "directory update requested")

	_, err = cards.CreateOrUpdate(ctx, servicegroup.IDOf(pid), entities, true)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "directory update requested")
	assert.Contains(t, buf.String(), "directory.peppol.eu")
}

func TestStartup(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds defaults exactly once", func(t *testing.T) {
		b := storage.NewMemoryBackend()
		app := newApp(t, b)
		assert.Equal(t, len(transportprofile.Defaults()), app.TransportProfiles().Count())
		assert.Equal(t, 2, app.SMLInfos().Count())
		assert.True(t, app.SystemMigrations().ContainsSuccessful(meta.MigrationSeedTransportProfiles))
		assert.True(t, app.SystemMigrations().ContainsSuccessful(meta.MigrationEnsureTransportProfiles))

		_, err := app.TransportProfiles().Delete(ctx, transportprofile.PeppolSTARTv1)
		require.NoError(t, err)

		restarted := newApp(t, b)
		assert.False(t, restarted.TransportProfiles().ContainsID(transportprofile.PeppolSTARTv1))
	})

	t.Run("ensures transport profiles referenced by stored endpoints", func(t *testing.T) {
		b := storage.NewMemoryBackend()
		si := &serviceinfo.ServiceInformation{
			ID:             serviceinfo.IDOf(servicegroup.IDOf(pid), docType),
			ServiceGroupID: servicegroup.IDOf(pid),
			DocumentType:   docType,
			Processes: []serviceinfo.Process{{
				ID:        process,
				Endpoints: []serviceinfo.Endpoint{{TransportProfile: "legacy-custom-tp", Address: "https://ap.example.org"}},
			}},
		}
		data, err := codec.Marshal(si)
		require.NoError(t, err)
		b.Raw(serviceinfo.Namespace, si.ID, data)

		app := newApp(t, b)
		assert.True(t, app.TransportProfiles().ContainsID("legacy-custom-tp"))
	})

	t.Run("optional managers can be disabled", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.SMP.BusinessCardsEnabled = false
		cfg.SMP.SPFEnabled = false
		app := newAppWithConfig(t, cfg, storage.NewMemoryBackend())

		_, ok := app.BusinessCards()
		assert.False(t, ok)
		_, ok = app.SPFPolicies()
		assert.False(t, ok)

		_, err := app.ServiceGroups().Create(ctx, "owner", pid, "", false)
		require.NoError(t, err)
		_, err = app.ServiceGroups().Delete(ctx, pid, false)
		assert.NoError(t, err)
	})

	t.Run("unknown identifier type fails initialization", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.SMP.IdentifierType = "ebcore"
		_, err := meta.New(ctx, cfg, meta.WithLogger(logger.Discard()), meta.WithBackend(storage.NewMemoryBackend()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInitialization))
	})

	t.Run("unknown backend kind fails initialization", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Backend.Kind = "cassandra"
		_, err := meta.New(ctx, cfg, meta.WithLogger(logger.Discard()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInitialization))
	})

	t.Run("corrupt persisted record fails initialization", func(t *testing.T) {
		b := storage.NewMemoryBackend()
		b.Raw(servicegroup.Namespace, "broken", []byte{0xff, 0x00})
		_, err := meta.New(ctx, config.Defaults(), meta.WithLogger(logger.Discard()), meta.WithBackend(b))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInitialization))
	})

	t.Run("file backend from configuration", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Backend.Kind = config.BackendFile
		cfg.Backend.File.Dir = t.TempDir()
		app, err := meta.New(ctx, cfg, meta.WithLogger(logger.Discard()))
		require.NoError(t, err)
		defer app.Close()
		assert.Equal(t, "file", app.BackendName())
		assert.Equal(t, domain.True, app.BackendConnectionState())
	})
}

func TestBackendConnectionState(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	app, err := meta.New(ctx, config.Defaults(),
		meta.WithLogger(logger.Discard()),
		meta.WithMetrics(m),
		meta.WithBackend(storage.NewMemoryBackend()),
	)
	require.NoError(t, err)

	assert.Equal(t, domain.True, app.BackendConnectionState())
	assert.Equal(t, domain.Changed, app.SetBackendConnectionState(ctx, domain.False, "health-check"))
	assert.Equal(t, domain.Unchanged, app.SetBackendConnectionState(ctx, domain.False, "health-check"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BackendConnection))
	assert.Equal(t, domain.True, app.ProbeBackend(ctx))
}

func TestSMLRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("without keys SML changes are unavailable", func(t *testing.T) {
		app := newApp(t, storage.NewMemoryBackend())
		assert.False(t, app.SMLAvailable())

		_, err := app.ServiceGroups().Create(ctx, "owner", pid, "", true)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.False(t, app.ServiceGroups().ContainsID(pid))
	})

	t.Run("enabled SML receives create and delete", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		app := newApp(t, storage.NewMemoryBackend(), meta.WithSMLClient(client), meta.WithKeys(validKeys(t)))

		s := app.Settings().Get()
		s.SMLEnabled = true
		s.SMLInfoID = "digittest"
		_, err := app.Settings().Update(ctx, s)
		require.NoError(t, err)
		require.True(t, app.SMLAvailable())

		gomock.InOrder(
			client.EXPECT().CreateParticipant(gomock.Any(), gomock.Any(), "SMP", pid).Return(nil),
			client.EXPECT().DeleteParticipant(gomock.Any(), gomock.Any(), "SMP", pid).Return(nil),
		)

		_, err = app.ServiceGroups().Create(ctx, "owner", pid, "", true)
		require.NoError(t, err)
		_, err = app.ServiceGroups().Delete(ctx, pid, true)
		require.NoError(t, err)
	})
}
