package redirect_test

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"smp/internal/identifier"
	"smp/internal/platform/logger"
	"smp/internal/redirect"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
)

var (
	invoice    = identifier.DocumentType{Scheme: "busdox-docid-qns", Value: "urn:invoice"}
	creditNote = identifier.DocumentType{Scheme: "busdox-docid-qns", Value: "urn:creditnote"}
)

type RedirectSuite struct {
	suite.Suite
	ctx      context.Context
	backend  *storage.MemoryBackend
	manager  *redirect.Manager
	notified []string
}

func TestRedirectSuite(t *testing.T) {
	suite.Run(t, new(RedirectSuite))
}

type recorder struct{ seen *[]string }

func (r recorder) OnCreatedOrUpdated(_ context.Context, rd *redirect.Redirect) error {
	*r.seen = append(*r.seen, "put:"+rd.TargetHref)
	return nil
}

func (r recorder) OnDeleted(_ context.Context, rd *redirect.Redirect) error {
	*r.seen = append(*r.seen, "delete:"+rd.ID)
	return nil
}

func (s *RedirectSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = storage.NewMemoryBackend()
	s.notified = nil
	s.manager = s.open()
}

func (s *RedirectSuite) open() *redirect.Manager {
	p, err := s.backend.Persister(redirect.Namespace)
	s.Require().NoError(err)
	m, err := redirect.New(s.ctx, p, redirect.WithLogger(logger.Discard()))
	s.Require().NoError(err)
	m.Callbacks().Add(recorder{seen: &s.notified})
	return m
}

func (s *RedirectSuite) TestCreateOrUpdate() {
	s.Run("stores a new redirect", func() {
		r, err := s.manager.CreateOrUpdate(s.ctx, "sg-1", invoice, "https://other-smp.example", "CN=other", "", "")
		s.Require().NoError(err)
		got, ok := s.manager.GetRedirectOfServiceGroup("sg-1", invoice)
		s.Require().True(ok)
		s.Equal(r.ID, got.ID)
		s.False(got.HasCertificate())
	})

	s.Run("identical values do not notify", func() {
		_, err := s.manager.CreateOrUpdate(s.ctx, "sg-1", invoice, "https://other-smp.example", "CN=other", "", "")
		s.Require().NoError(err)
		s.Equal([]string{"put:https://other-smp.example"}, s.notified)
	})

	s.Run("changed target replaces", func() {
		_, err := s.manager.CreateOrUpdate(s.ctx, "sg-1", invoice, "https://third.example", "CN=third", "MIIB", "")
		s.Require().NoError(err)
		got, _ := s.manager.GetRedirectOfServiceGroup("sg-1", invoice)
		s.Equal("https://third.example", got.TargetHref)
		s.True(got.HasCertificate())
		s.Equal(1, s.manager.Count())
	})

	s.Run("missing target is a validation error", func() {
		_, err := s.manager.CreateOrUpdate(s.ctx, "sg-1", invoice, " ", "CN=x", "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("survives reload", func() {
		got, ok := s.open().GetRedirectOfServiceGroup("sg-1", invoice)
		s.Require().True(ok)
		s.Equal("CN=third", got.SubjectUniqueID)
	})
}

func (s *RedirectSuite) TestDeleteAllOfServiceGroup() {
	for _, dt := range []identifier.DocumentType{invoice, creditNote} {
		_, err := s.manager.CreateOrUpdate(s.ctx, "sg-1", dt, "https://x.example", "CN=x", "", "")
		s.Require().NoError(err)
	}
	_, err := s.manager.CreateOrUpdate(s.ctx, "sg-2", invoice, "https://x.example", "CN=x", "", "")
	s.Require().NoError(err)

	change, err := s.manager.DeleteAllOfServiceGroup(s.ctx, "sg-1")
	s.Require().NoError(err)
	s.Equal(domain.Changed, change)
	s.Empty(s.manager.GetAllOfServiceGroup("sg-1"))
	s.Len(s.manager.GetAllOfServiceGroup("sg-2"), 1)

	change, err = s.manager.DeleteAllOfServiceGroup(s.ctx, "sg-1")
	s.Require().NoError(err)
	s.Equal(domain.Unchanged, change)

	change, err = s.manager.Delete(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(domain.Unchanged, change)
}

func TestCompare(t *testing.T) {
	mk := func(sg string, dt identifier.DocumentType) *redirect.Redirect {
		r, err := redirect.NewRedirect(sg, dt, "https://x", "CN=x", "", "")
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	items := []*redirect.Redirect{
		mk("b", invoice),
		mk("a", invoice),
		mk("a", creditNote),
	}
	slices.SortFunc(items, redirect.Compare)

	got := make([]string, 0, len(items))
	for _, r := range items {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{
		redirect.IDOf("a", creditNote),
		redirect.IDOf("a", invoice),
		redirect.IDOf("b", invoice),
	}, got)
	assert.Zero(t, redirect.Compare(items[0], items[0]))
}
