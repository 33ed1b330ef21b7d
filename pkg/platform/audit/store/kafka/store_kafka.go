// Package kafka ships audit events to a Kafka topic. While the broker is
// unreachable a circuit breaker routes events to a fallback store.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/circuit"
)

const DefaultTopic = "smp.audit"

// Producer is the subset of *kgo.Client used by Store.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store appends audit events to a topic, keyed by object ID so that all events
// of one object land on the same partition.
type Store struct {
	producer Producer
	topic    string
	fallback audit.Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	now      func() time.Time

	timeout       time.Duration
	probeInterval time.Duration
	mu            sync.Mutex
	lastProbe     time.Time
}

type Option func(*Store)

func WithTopic(topic string) Option {
	return func(s *Store) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// WithFallback sets the store used while the circuit is open.
func WithFallback(store audit.Store) Option {
	return func(s *Store) {
		s.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Store) {
		if b != nil {
			s.breaker = b
		}
	}
}

// WithTimeout bounds a single produce call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithProbeInterval sets how often an open circuit retries the broker.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.probeInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(producer Producer, opts ...Option) *Store {
	s := &Store{
		producer: producer,
		topic:    DefaultTopic,
		breaker:  circuit.New("audit-kafka"),
		logger:   slog.Default(),
		now:      time.Now,

		timeout:       5 * time.Second,
		probeInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback == nil {
		s.fallback = audit.NewLogStore(s.logger)
	}
	return s
}

// NewClient connects a franz-go client for the given seed brokers.
func NewClient(brokers []string, topic string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("smpd"),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resps, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resps.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if s.breaker.IsOpen() && !s.dueForProbe() {
		return s.fallback.Append(ctx, event)
	}

	err := s.produce(ctx, event)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "audit kafka circuit closed", "topic", s.topic)
		}
		return nil
	}
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "audit kafka circuit opened", "topic", s.topic, "error", err)
	}
	if useFallback {
		return s.fallback.Append(ctx, event)
	}
	return fmt.Errorf("produce audit event: %w", err)
}

func (s *Store) dueForProbe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastProbe) < s.probeInterval {
		return false
	}
	s.lastProbe = now
	return true
}

func (s *Store) produce(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ObjectID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "object_type", Value: []byte(event.ObjectType)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.producer.ProduceSync(ctx, record).FirstErr()
}
