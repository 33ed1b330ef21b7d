//go:build integration

package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"smp/internal/storage"
	"smp/pkg/testutil/containers"
)

// =============================================================================
// Durable Backend Contract Suite
// =============================================================================
// Justification: Postgres and Redis must behave exactly like the file and
// memory substrates the unit tests cover. The same contract runs against both.

type BackendContractSuite struct {
	suite.Suite
	newBackend func() storage.Backend
	reset      func(ctx context.Context) error
}

func TestPostgresBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	suite.Run(t, &BackendContractSuite{
		newBackend: func() storage.Backend { return storage.NewPostgresBackend(pg.Pool) },
		reset: func(ctx context.Context) error {
			return pg.TruncateTables(ctx, "smp_records")
		},
	})
}

func TestRedisBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	suite.Run(t, &BackendContractSuite{
		newBackend: func() storage.Backend {
			return storage.NewRedisBackend(rc.Client, storage.WithKeyPrefix("smp:test:"))
		},
		reset: rc.FlushDB,
	})
}

func (s *BackendContractSuite) SetupTest() {
	s.Require().NoError(s.reset(context.Background()))
}

func (s *BackendContractSuite) TestRoundTrip() {
	ctx := context.Background()
	backend := s.newBackend()
	s.Require().NoError(backend.Ping(ctx))

	p, err := backend.Persister("service-groups")
	s.Require().NoError(err)

	s.Require().NoError(p.Put(ctx, "b", []byte{0x01}))
	s.Require().NoError(p.Put(ctx, "a", []byte{0x02}))
	s.Require().NoError(p.Put(ctx, "b", []byte{0x03}))

	records, err := p.LoadAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("a", records[0].ID)
	s.Equal([]byte{0x03}, records[1].Data)

	s.Require().NoError(p.Delete(ctx, "a"))
	s.Require().NoError(p.Delete(ctx, "never-existed"))
	records, err = p.LoadAll(ctx)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *BackendContractSuite) TestNamespacesAreIsolated() {
	ctx := context.Background()
	backend := s.newBackend()

	redirects, err := backend.Persister("redirects")
	s.Require().NoError(err)
	spf, err := backend.Persister("spf-policies")
	s.Require().NoError(err)

	s.Require().NoError(redirects.Put(ctx, "same-id", []byte("r")))
	s.Require().NoError(spf.Put(ctx, "same-id", []byte("s")))

	got, err := spf.LoadAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal([]byte("s"), got[0].Data)
}

func (s *BackendContractSuite) TestConcurrentPuts() {
	ctx := context.Background()
	p, err := s.newBackend().Persister("migrations")
	s.Require().NoError(err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(p.Put(ctx, uuid.NewString(), []byte("x")))
		}()
	}
	wg.Wait()

	records, err := p.LoadAll(ctx)
	s.Require().NoError(err)
	s.Len(records, writers)
}
