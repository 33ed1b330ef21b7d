package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smp/internal/platform/config"
	"smp/internal/platform/logger"
	audit "smp/pkg/platform/audit"
)

func TestNewAuditSink(t *testing.T) {
	ctx := context.Background()

	t.Run("none disables auditing", func(t *testing.T) {
		sink, err := newAuditSink(ctx, config.Audit{Sink: "none"}, logger.Discard())
		require.NoError(t, err)
		assert.Nil(t, sink.emitter())
		sink.Close()
	})

	t.Run("log sink accepts events", func(t *testing.T) {
		sink, err := newAuditSink(ctx, config.Audit{Sink: "log", Buffer: 4}, logger.Discard())
		require.NoError(t, err)
		defer sink.Close()
		require.NotNil(t, sink.emitter())
		assert.NoError(t, sink.emitter().Emit(ctx, audit.CreateSuccess(audit.ObjectServiceGroup, "iso6523-actorid-upis::9915:x")))
	})

	t.Run("kafka sink needs brokers", func(t *testing.T) {
		_, err := newAuditSink(ctx, config.Audit{Sink: "kafka"}, logger.Discard())
		assert.Error(t, err)
	})
}
