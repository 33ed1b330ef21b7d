// Package backend opens the configured persistence substrate and tracks
// whether it is reachable.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"smp/internal/platform/config"
	"smp/internal/platform/postgres"
	redisclient "smp/internal/platform/redis"
	"smp/internal/storage"
	dErrors "smp/pkg/domain-errors"
)

// Factory opens a backend of one kind.
type Factory func(ctx context.Context, cfg config.Backend, logger *slog.Logger) (storage.Backend, error)

// Registry maps backend kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry knows the memory, file, postgres and redis backends.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.BackendMemory, openMemory)
	r.Register(config.BackendFile, openFile)
	r.Register(config.BackendPostgres, openPostgres)
	r.Register(config.BackendRedis, openRedis)
	return r
}

// Register adds or replaces the factory of kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Open builds the backend selected by cfg.Kind.
func (r *Registry) Open(ctx context.Context, cfg config.Backend, logger *slog.Logger) (storage.Backend, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInitialization, "unknown backend kind %q", cfg.Kind)
	}
	if logger == nil {
		logger = slog.Default()
	}
	b, err := f(ctx, cfg, logger)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInitialization, fmt.Sprintf("failed to open %s backend", cfg.Kind))
	}
	logger.InfoContext(ctx, "persistence backend opened", "backend", b.Name())
	return b, nil
}

func openMemory(context.Context, config.Backend, *slog.Logger) (storage.Backend, error) {
	return storage.NewMemoryBackend(), nil
}

func openFile(_ context.Context, cfg config.Backend, logger *slog.Logger) (storage.Backend, error) {
	return storage.NewFileBackend(cfg.File.Dir, storage.WithFileLogger(logger))
}

func openPostgres(ctx context.Context, cfg config.Backend, logger *slog.Logger) (storage.Backend, error) {
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(cfg.Postgres.DSN); err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "postgres schema is up to date")
	}
	pool, err := postgres.Open(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewPostgresBackend(pool), nil
}

func openRedis(ctx context.Context, cfg config.Backend, _ *slog.Logger) (storage.Backend, error) {
	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "redis URL is not configured")
	}
	return storage.NewRedisBackend(client.Client, storage.WithKeyPrefix(cfg.Redis.KeyPrefix)), nil
}
