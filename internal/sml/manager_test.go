package sml_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"smp/internal/identifier"
	"smp/internal/platform/logger"
	"smp/internal/settings"
	"smp/internal/sml"
	"smp/internal/sml/mocks"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
)

var pid = identifier.Participant{Scheme: "iso6523-actorid-upis", Value: "9915:test"}

type InfoSuite struct {
	suite.Suite
	ctx     context.Context
	backend *storage.MemoryBackend
	manager *sml.Manager
}

func TestInfoSuite(t *testing.T) {
	suite.Run(t, new(InfoSuite))
}

func (s *InfoSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = storage.NewMemoryBackend()
	s.manager = s.open()
}

func (s *InfoSuite) open() *sml.Manager {
	p, err := s.backend.Persister(sml.Namespace)
	s.Require().NoError(err)
	m, err := sml.New(s.ctx, p, sml.WithLogger(logger.Discard()))
	s.Require().NoError(err)
	return m
}

func (s *InfoSuite) TestSeedDefaults() {
	added, err := s.manager.SeedDefaults(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, added)

	added, err = s.open().SeedDefaults(s.ctx)
	s.Require().NoError(err)
	s.Zero(added)

	smk, ok := s.manager.FindFirstWithManageParticipantAddress("https://acc.edelivery.tech.ec.europa.eu/edelivery-sml/manageparticipantidentifier/")
	s.Require().True(ok)
	s.Equal("SMK", smk.DisplayName)

	_, ok = s.manager.FindFirstWithManageParticipantAddress("")
	s.False(ok)
}

func (s *InfoSuite) TestCreateUpdateDelete() {
	created, err := s.manager.Create(s.ctx, sml.Info{
		DisplayName:          "Local SML",
		DNSZone:              "SML.Example.ORG",
		ManagementServiceURL: "https://sml.example.org/",
	})
	s.Require().NoError(err)
	s.Equal("sml.example.org.", created.DNSZone)
	s.Equal("https://sml.example.org/manageservicemetadata", created.ManageSMPAddress())

	s.Run("update with same values is unchanged", func() {
		change, err := s.manager.Update(s.ctx, *created)
		s.Require().NoError(err)
		s.Equal(domain.Unchanged, change)
	})

	s.Run("update persists", func() {
		next := *created
		next.ClientCertificateRequired = true
		change, err := s.manager.Update(s.ctx, next)
		s.Require().NoError(err)
		s.Equal(domain.Changed, change)
		got, _ := s.open().GetOfID(created.ID)
		s.True(got.ClientCertificateRequired)
	})

	s.Run("invalid URL is rejected", func() {
		_, err := s.manager.Create(s.ctx, sml.Info{DisplayName: "x", DNSZone: "x.org", ManagementServiceURL: "ftp://x"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("delete", func() {
		change, err := s.manager.Delete(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(domain.Changed, change)
		s.False(s.manager.ContainsID(created.ID))
	})
}

// =============================================================================
// Registration Guard Test Suite
// =============================================================================
// Justification: the guard decides whether a service group change reaches the
// SML. A call made while SML is disabled or without a valid certificate would
// fail remotely after local state changed.

type GuardSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	client   *mocks.MockClient
	settings *mocks.MockSettingsSource
	keys     *mocks.MockCertificateChecker
	infos    *sml.Manager
	guard    *sml.Guard
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.client = mocks.NewMockClient(s.ctrl)
	s.settings = mocks.NewMockSettingsSource(s.ctrl)
	s.keys = mocks.NewMockCertificateChecker(s.ctrl)

	p, err := storage.NewMemoryBackend().Persister(sml.Namespace)
	s.Require().NoError(err)
	s.infos, err = sml.New(s.ctx, p, sml.WithLogger(logger.Discard()))
	s.Require().NoError(err)
	_, err = s.infos.SeedDefaults(s.ctx)
	s.Require().NoError(err)

	s.guard = sml.NewGuard("SMP-1", s.client, s.settings, s.infos, s.keys, logger.Discard())
}

func enabled(id string) settings.Settings {
	st := settings.Defaults()
	st.SMLEnabled = true
	st.SMLInfoID = id
	return st
}

func (s *GuardSuite) TestForwardsWhenAvailable() {
	s.settings.EXPECT().Get().Return(enabled("digittest")).Times(2)
	s.keys.EXPECT().IsCertificateValid().Return(true).Times(2)

	gomock.InOrder(
		s.client.EXPECT().CreateParticipant(gomock.Any(), gomock.Any(), "SMP-1", pid).Return(nil),
		s.client.EXPECT().DeleteParticipant(gomock.Any(), gomock.Any(), "SMP-1", pid).Return(nil),
	)
	s.NoError(s.guard.CreateServiceGroup(s.ctx, pid))
	s.NoError(s.guard.UndoCreateServiceGroup(s.ctx, pid))
}

func (s *GuardSuite) TestUnavailable() {
	s.Run("SML disabled", func() {
		s.settings.EXPECT().Get().Return(settings.Defaults())
		err := s.guard.DeleteServiceGroup(s.ctx, pid)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("certificate invalid", func() {
		s.settings.EXPECT().Get().Return(enabled("digitprod"))
		s.keys.EXPECT().IsCertificateValid().Return(false)
		err := s.guard.CreateServiceGroup(s.ctx, pid)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("unknown SML instance", func() {
		s.settings.EXPECT().Get().Return(enabled("gone"))
		s.keys.EXPECT().IsCertificateValid().Return(true)
		err := s.guard.CreateServiceGroup(s.ctx, pid)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("no client", func() {
		s.settings.EXPECT().Get().Return(enabled("digitprod"))
		g := sml.NewGuard("SMP-1", nil, s.settings, s.infos, s.keys, nil)
		err := g.UndoDeleteServiceGroup(s.ctx, pid)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *GuardSuite) TestClientFailureIsUnavailable() {
	s.settings.EXPECT().Get().Return(enabled("digitprod"))
	s.keys.EXPECT().IsCertificateValid().Return(true)
	s.client.EXPECT().DeleteParticipant(gomock.Any(), gomock.Any(), "SMP-1", pid).Return(errors.New("soap fault"))

	err := s.guard.DeleteServiceGroup(s.ctx, pid)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.ErrorContains(err, "soap fault")
}
