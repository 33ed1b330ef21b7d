package storage

import (
	"context"
)

// Record is one persisted entity payload.
type Record struct {
	ID   string
	Data []byte
}

// Persisters are interface-driven so a manager can run against the in-memory,
// file, Postgres or Redis substrate without rewiring domain code. Each manager
// owns exactly one namespace.
type Persister interface {
	// LoadAll returns the current state of the namespace.
	LoadAll(ctx context.Context) ([]Record, error)
	// Put creates or replaces the record with the given ID.
	Put(ctx context.Context, id string, data []byte) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
}

// Backend hands out per-namespace persisters over one durable substrate.
type Backend interface {
	Name() string
	Persister(namespace string) (Persister, error)
	// Ping reports whether the substrate is reachable.
	Ping(ctx context.Context) error
	Close() error
}
