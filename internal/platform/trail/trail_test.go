package trail

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smp/internal/platform/logger"
	"smp/internal/platform/metrics"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/audit/publisher"
	"smp/pkg/platform/audit/store/memory"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	pub := publisher.NewPublisher(store)
	defer pub.Close()
	m := metrics.New(prometheus.NewRegistry())

	r := New(logger.Discard(), pub, m)
	r.Record(ctx, audit.CreateSuccess(audit.ObjectRedirect, "r1"))
	r.Record(ctx, audit.CreateFailure(audit.ObjectRedirect, "r2", "unknown service group"))
	r.Count(audit.ObjectRedirect, 1)

	events, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("smp-redirect", "create", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Entities.WithLabelValues("smp-redirect")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Record(context.Background(), audit.DeleteSuccess(audit.ObjectSettings, "x"))
		r.Count(audit.ObjectSettings, 1)
	})
}
