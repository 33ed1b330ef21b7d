package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"smp/internal/platform/metrics"
	"smp/internal/storage"
	"smp/pkg/domain"
	audit "smp/pkg/platform/audit"
)

const defaultProbeTimeout = 3 * time.Second

// Provider hands out persisters and holds the connection tri-state. The state
// is Undefined until the first probe or explicit set.
type Provider struct {
	backend storage.Backend
	logger  *slog.Logger
	emitter audit.Emitter
	metrics *metrics.Metrics
	timeout time.Duration

	mu    sync.RWMutex
	state domain.TriState
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func WithAuditPublisher(emitter audit.Emitter) Option {
	return func(p *Provider) {
		p.emitter = emitter
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

func WithProbeTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewProvider(b storage.Backend, opts ...Option) *Provider {
	p := &Provider{backend: b, logger: slog.Default(), timeout: defaultProbeTimeout}
	for _, opt := range opts {
		opt(p)
	}
	p.metrics.SetBackendConnection(-1)
	return p
}

func (p *Provider) Name() string {
	return p.backend.Name()
}

func (p *Provider) Persister(namespace string) (storage.Persister, error) {
	return p.backend.Persister(namespace)
}

func (p *Provider) State() domain.TriState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState records a new connection state. trigger names what observed it.
// It reports Changed only on an actual transition.
func (p *Provider) SetState(ctx context.Context, state domain.TriState, trigger string) domain.Change {
	p.mu.Lock()
	prev := p.state
	p.state = state
	p.mu.Unlock()

	if prev == state {
		return domain.Unchanged
	}
	switch state {
	case domain.True:
		p.metrics.SetBackendConnection(1)
	case domain.False:
		p.metrics.SetBackendConnection(0)
	default:
		p.metrics.SetBackendConnection(-1)
	}
	p.logger.InfoContext(ctx, "backend connection state changed",
		"backend", p.backend.Name(),
		"from", prev.String(),
		"to", state.String(),
		"trigger", trigger,
	)
	audit.Emit(ctx, p.emitter, p.logger, audit.ModifySuccess(audit.ObjectBackendConnection, "state", p.backend.Name(), state.String(), trigger))
	return domain.Changed
}

// Probe pings the backend and records the result.
func (p *Provider) Probe(ctx context.Context) domain.TriState {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	state := domain.True
	if err := p.backend.Ping(ctx); err != nil {
		p.logger.WarnContext(ctx, "backend ping failed", "backend", p.backend.Name(), "error", err)
		state = domain.False
	}
	p.SetState(ctx, state, "probe")
	return state
}

func (p *Provider) Close() error {
	return p.backend.Close()
}
