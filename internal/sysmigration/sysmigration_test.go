package sysmigration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"smp/internal/platform/logger"
	"smp/internal/storage"
	"smp/internal/sysmigration"
	dErrors "smp/pkg/domain-errors"
)

// =============================================================================
// System Migration Test Suite
// =============================================================================
// Justification: seed migrations must run exactly once across restarts, and a
// failed run must be retried on the next start instead of being skipped.

type SysMigrationSuite struct {
	suite.Suite
	ctx     context.Context
	backend *storage.MemoryBackend
	manager *sysmigration.Manager
}

func TestSysMigrationSuite(t *testing.T) {
	suite.Run(t, new(SysMigrationSuite))
}

func (s *SysMigrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = storage.NewMemoryBackend()
	s.manager = s.open()
}

func (s *SysMigrationSuite) open() *sysmigration.Manager {
	p, err := s.backend.Persister(sysmigration.Namespace)
	s.Require().NoError(err)
	m, err := sysmigration.New(s.ctx, p,
		sysmigration.WithLogger(logger.Discard()),
		sysmigration.WithClock(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)
	s.Require().NoError(err)
	return m
}

func (s *SysMigrationSuite) TestRunOnce() {
	calls := 0
	step := func(context.Context) error {
		calls++
		return nil
	}

	s.Run("first call executes the step", func() {
		ran, err := s.manager.RunOnce(s.ctx, "seed-transport-profiles", step)
		s.Require().NoError(err)
		s.True(ran)
		s.Equal(1, calls)
	})

	s.Run("second call is skipped", func() {
		ran, err := s.manager.RunOnce(s.ctx, "seed-transport-profiles", step)
		s.Require().NoError(err)
		s.False(ran)
		s.Equal(1, calls)
	})

	s.Run("execution survives a restart", func() {
		reopened := s.open()
		s.True(reopened.ContainsSuccessful("seed-transport-profiles"))
		ran, err := reopened.RunOnce(s.ctx, "seed-transport-profiles", step)
		s.Require().NoError(err)
		s.False(ran)
	})
}

func (s *SysMigrationSuite) TestFailedStepIsRetried() {
	boom := errors.New("backend offline")
	ran, err := s.manager.RunOnce(s.ctx, "seed-sml-infos", func(context.Context) error { return boom })
	s.True(ran)
	s.ErrorIs(err, boom)
	s.True(s.manager.ContainsExecuted("seed-sml-infos"))
	s.False(s.manager.ContainsSuccessful("seed-sml-infos"))

	failed := s.manager.GetAllFailed()
	s.Require().Len(failed, 1)
	s.Equal("backend offline", failed[0].ErrorMessage)

	ran, err = s.manager.RunOnce(s.ctx, "seed-sml-infos", func(context.Context) error { return nil })
	s.Require().NoError(err)
	s.True(ran)
	s.Empty(s.manager.GetAllFailed())
}

func (s *SysMigrationSuite) TestInvalidID() {
	_, err := s.manager.RunOnce(s.ctx, "Not Valid", func(context.Context) error { return nil })
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Zero(s.manager.Count())
}

func (s *SysMigrationSuite) TestForget() {
	_, err := s.manager.RunOnce(s.ctx, "ensure-transport-profiles", func(context.Context) error { return nil })
	s.Require().NoError(err)

	s.Require().NoError(s.manager.Forget(s.ctx, "ensure-transport-profiles"))
	s.False(s.manager.ContainsExecuted("ensure-transport-profiles"))
	s.True(dErrors.HasCode(s.manager.Forget(s.ctx, "ensure-transport-profiles"), dErrors.CodeNotFound))
}
