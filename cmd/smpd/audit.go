package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"smp/internal/platform/config"
	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/audit/publisher"
	kafkastore "smp/pkg/platform/audit/store/kafka"
)

// auditSink is the configured audit pipeline and the resources it owns.
type auditSink struct {
	publisher *publisher.Publisher
	client    *kgo.Client
}

// newAuditSink returns a nil sink for "none". The kafka sink falls back to the
// log store while the broker is unreachable.
func newAuditSink(ctx context.Context, cfg config.Audit, logger *slog.Logger) (*auditSink, error) {
	var (
		store  audit.Store
		client *kgo.Client
	)
	switch cfg.Sink {
	case "none":
		return nil, nil
	case "kafka":
		c, err := kafkastore.NewClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		if cfg.Kafka.EnsureTopic {
			if err := kafkastore.EnsureTopic(ctx, c, cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
				c.Close()
				return nil, fmt.Errorf("ensure audit topic: %w", err)
			}
		}
		client = c
		store = kafkastore.New(c,
			kafkastore.WithTopic(cfg.Kafka.Topic),
			kafkastore.WithLogger(logger),
			kafkastore.WithFallback(audit.NewLogStore(logger)),
		)
	default:
		store = audit.NewLogStore(logger)
	}
	pub := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(cfg.Buffer),
		publisher.WithLogger(logger),
	)
	logger.InfoContext(ctx, "audit sink ready", "sink", cfg.Sink, "buffer", cfg.Buffer)
	return &auditSink{publisher: pub, client: client}, nil
}

// emitter is nil-safe so a disabled sink disables auditing.
func (s *auditSink) emitter() audit.Emitter {
	if s == nil {
		return nil
	}
	return s.publisher
}

// Close drains the buffer before the client goes away.
func (s *auditSink) Close() {
	if s == nil {
		return
	}
	s.publisher.Close()
	if s.client != nil {
		s.client.Close()
	}
}
