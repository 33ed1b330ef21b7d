package transportprofile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"smp/internal/platform/logger"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/audit/publisher"
	"smp/pkg/platform/audit/store/memory"
)

// =============================================================================
// Transport Profile Manager Test Suite
// =============================================================================
// Justification: service information endpoints reference profiles by ID, so
// the registry's conflict, Changed/Unchanged and seeding contracts must hold.

type ManagerSuite struct {
	suite.Suite
	ctx     context.Context
	backend *storage.MemoryBackend
	audit   *memory.InMemoryStore
	manager *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = storage.NewMemoryBackend()
	s.audit = memory.NewInMemoryStore()
	s.manager = s.open()
}

func (s *ManagerSuite) open() *Manager {
	p, err := s.backend.Persister(Namespace)
	s.Require().NoError(err)
	m, err := New(s.ctx, p,
		WithLogger(logger.Discard()),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
	s.Require().NoError(err)
	return m
}

func (s *ManagerSuite) TestCreate() {
	s.Run("creates and persists", func() {
		p, err := s.manager.Create(s.ctx, "custom-as4", "Custom AS4", false)
		s.Require().NoError(err)
		s.False(p.IsDeprecated())
		s.True(s.open().ContainsID("custom-as4"))
	})

	s.Run("duplicate ID is a conflict", func() {
		_, err := s.manager.Create(s.ctx, "custom-as4", "Other", true)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty name is rejected", func() {
		_, err := s.manager.Create(s.ctx, "nameless", " ", false)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.False(s.manager.ContainsID("nameless"))
	})

	events, err := s.audit.ListByObject(s.ctx, "custom-as4")
	s.Require().NoError(err)
	s.Len(events, 2)
	s.True(events[0].Success)
	s.False(events[1].Success)
}

func (s *ManagerSuite) TestUpdate() {
	_, err := s.manager.Create(s.ctx, "tp", "Name", false)
	s.Require().NoError(err)

	change, err := s.manager.Update(s.ctx, "tp", "Name", false)
	s.Require().NoError(err)
	s.Equal(domain.Unchanged, change)

	change, err = s.manager.Update(s.ctx, "tp", "Name", true)
	s.Require().NoError(err)
	s.Equal(domain.Changed, change)
	got, _ := s.manager.GetOfID("tp")
	s.True(got.IsDeprecated())

	change, err = s.manager.Update(s.ctx, "missing", "Name", false)
	s.Require().NoError(err)
	s.Equal(domain.Unchanged, change)
}

func (s *ManagerSuite) TestDelete() {
	_, err := s.manager.Create(s.ctx, "tp", "Name", false)
	s.Require().NoError(err)

	change, err := s.manager.Delete(s.ctx, "tp")
	s.Require().NoError(err)
	s.Equal(domain.Changed, change)

	change, err = s.manager.Delete(s.ctx, "tp")
	s.Require().NoError(err)
	s.Equal(domain.Unchanged, change)
}

func (s *ManagerSuite) TestEnsureExists() {
	change, err := s.manager.EnsureExists(s.ctx, "legacy-profile")
	s.Require().NoError(err)
	s.Equal(domain.Changed, change)

	got, ok := s.manager.GetOfID("legacy-profile")
	s.Require().True(ok)
	s.Equal("legacy-profile", got.Name)

	change, err = s.manager.EnsureExists(s.ctx, "legacy-profile")
	s.Require().NoError(err)
	s.Equal(domain.Unchanged, change)
}

func (s *ManagerSuite) TestSeedDefaults() {
	_, err := s.manager.Create(s.ctx, PeppolAS4v2, "Custom name", false)
	s.Require().NoError(err)

	added, err := s.manager.SeedDefaults(s.ctx)
	s.Require().NoError(err)
	s.Equal(len(Defaults())-1, added)
	s.Equal(len(Defaults()), s.manager.Count())

	kept, _ := s.manager.GetOfID(PeppolAS4v2)
	s.Equal("Custom name", kept.Name, "seeding never overwrites")

	start, _ := s.manager.GetOfID(PeppolSTARTv1)
	s.True(start.IsDeprecated())
}

func (s *ManagerSuite) TestUnknownStateFailsLoad() {
	s.backend.Raw(Namespace, "bad", []byte{
		0xa3,
		0x62, 'i', 'd', 0x63, 'b', 'a', 'd',
		0x64, 'n', 'a', 'm', 'e', 0x61, 'x',
		0x65, 's', 't', 'a', 't', 'e', 0x66, 'r', 'e', 't', 'i', 'r', 'e',
	})
	p, err := s.backend.Persister(Namespace)
	s.Require().NoError(err)
	_, err = New(s.ctx, p, WithLogger(logger.Discard()))
	s.True(dErrors.HasCode(err, dErrors.CodePersistence))
}
