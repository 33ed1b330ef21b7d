package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "smp/pkg/platform/audit"
)

// ErrBufferFull is returned by Emit in async mode when the buffer cannot
// accept another event.
var ErrBufferFull = errors.New("audit buffer full")

// ErrNotListable is returned by List when the store has no read side.
var ErrNotListable = errors.New("audit store does not support listing")

// Lister is implemented by stores that can replay events for an object.
type Lister interface {
	ListByObject(ctx context.Context, objectID string) ([]audit.Event, error)
}

// Publisher forwards events to a Store, either inline or through a bounded
// buffer drained by a single goroutine.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	buffer int
	events chan queued
	wg     sync.WaitGroup
	once   sync.Once
}

type queued struct {
	ctx   context.Context
	event audit.Event
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// WithLogger sets the logger used for failed async appends.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.events = make(chan queued, p.buffer)
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records an event. A zero Timestamp is set to the current time.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if p.events == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.events <- queued{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrBufferFull
}

// List returns the events recorded for objectID when the store supports it.
func (p *Publisher) List(ctx context.Context, objectID string) ([]audit.Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return lister.ListByObject(ctx, objectID)
}

// Close stops accepting async events and waits until the buffer is drained.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.events != nil {
			close(p.events)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for q := range p.events {
		if err := p.store.Append(q.ctx, q.event); err != nil {
			p.logger.WarnContext(q.ctx, "audit append failed",
				"object_type", q.event.ObjectType,
				"object_id", q.event.ObjectID,
				"error", err,
			)
		}
	}
}
