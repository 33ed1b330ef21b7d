package spf_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"smp/internal/identifier"
	"smp/internal/platform/logger"
	"smp/internal/spf"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
)

var pid = identifier.Participant{Scheme: "iso6523-actorid-upis", Value: "9915:xxx"}

type PolicySuite struct {
	suite.Suite
	ctx     context.Context
	backend *storage.MemoryBackend
	manager *spf.Manager
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = storage.NewMemoryBackend()
	s.manager = s.open()
}

func (s *PolicySuite) open() *spf.Manager {
	ids, err := identifier.New(identifier.KindPeppol)
	s.Require().NoError(err)
	p, err := s.backend.Persister(spf.Namespace)
	s.Require().NoError(err)
	m, err := spf.New(s.ctx, p, ids, spf.WithLogger(logger.Discard()))
	s.Require().NoError(err)
	return m
}

func (s *PolicySuite) TestDefaultPolicy() {
	terms := []spf.Term{
		{Qualifier: spf.QualifierPass, Mechanism: spf.MechanismSeatID, Value: "AP001"},
		{Qualifier: spf.QualifierFail, Mechanism: spf.MechanismAll},
	}
	_, err := s.manager.CreateOrUpdate(s.ctx, pid, terms, nil, "default policy")
	s.Require().NoError(err)

	got, ok := s.manager.GetOfID(pid)
	s.Require().True(ok)
	s.Equal(3600, got.EffectiveTTL())
	s.Equal(2, got.TermCount())
	s.Equal("default policy", got.Explanation)

	reloaded, ok := s.open().GetOfID(pid)
	s.Require().True(ok)
	s.Equal(got, reloaded)
}

func (s *PolicySuite) TestReplaceIsWholesale() {
	ttl := 600
	_, err := s.manager.CreateOrUpdate(s.ctx, pid, []spf.Term{
		{Qualifier: spf.QualifierPass, Mechanism: spf.MechanismSeatID, Value: "AP001"},
		{Qualifier: spf.QualifierFail, Mechanism: spf.MechanismAll},
	}, &ttl, "first")
	s.Require().NoError(err)

	_, err = s.manager.CreateOrUpdate(s.ctx, pid, []spf.Term{
		{Qualifier: spf.QualifierSoftFail, Mechanism: spf.MechanismAll},
	}, nil, "")
	s.Require().NoError(err)

	got, _ := s.manager.GetOfID(pid)
	s.Equal(1, got.TermCount())
	s.Nil(got.TTL)
	s.Empty(got.Explanation)
	s.Equal(1, s.manager.Count())
}

func (s *PolicySuite) TestInvalidPolicyLeavesStoreUntouched() {
	ttl := 59
	_, err := s.manager.CreateOrUpdate(s.ctx, pid, nil, &ttl, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.False(s.manager.ContainsOfID(pid))
}

func (s *PolicySuite) TestDeleteOfServiceGroup() {
	_, err := s.manager.CreateOrUpdate(s.ctx, pid, nil, nil, "")
	s.Require().NoError(err)
	s.Equal([]string{pid.URIEncoded()}, s.manager.GetAllIDs())

	upper := identifier.Participant{Scheme: pid.Scheme, Value: "9915:XXX"}
	s.True(s.manager.ContainsOfID(upper))

	change, err := s.manager.DeleteOfServiceGroup(s.ctx, upper)
	s.Require().NoError(err)
	s.Equal(domain.Changed, change)

	change, err = s.manager.DeleteOfServiceGroup(s.ctx, pid)
	s.Require().NoError(err)
	s.Equal(domain.Unchanged, change)
}
