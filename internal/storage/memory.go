package storage

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps payloads in process memory. Data survives reopening a
// Store on the same backend, which makes it the substrate for unit tests and
// for throwaway deployments.
type MemoryBackend struct {
	mu         sync.RWMutex
	namespaces map[string]map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{namespaces: make(map[string]map[string][]byte)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Persister(namespace string) (Persister, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.namespaces[namespace]; !ok {
		b.namespaces[namespace] = make(map[string][]byte)
	}
	return &memoryPersister{backend: b, namespace: namespace}, nil
}

func (b *MemoryBackend) Ping(context.Context) error { return nil }

func (b *MemoryBackend) Close() error { return nil }

// Raw stores a payload directly, bypassing any encoding. Tests use it to plant
// corrupt records.
func (b *MemoryBackend) Raw(namespace, id string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ns, ok := b.namespaces[namespace]
	if !ok {
		ns = make(map[string][]byte)
		b.namespaces[namespace] = ns
	}
	ns[id] = slices.Clone(data)
}

type memoryPersister struct {
	backend   *MemoryBackend
	namespace string
}

func (p *memoryPersister) LoadAll(context.Context) ([]Record, error) {
	p.backend.mu.RLock()
	defer p.backend.mu.RUnlock()
	ns := p.backend.namespaces[p.namespace]
	records := make([]Record, 0, len(ns))
	for _, id := range sortedKeys(ns) {
		records = append(records, Record{ID: id, Data: slices.Clone(ns[id])})
	}
	return records, nil
}

func (p *memoryPersister) Put(_ context.Context, id string, data []byte) error {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	p.backend.namespaces[p.namespace][id] = slices.Clone(data)
	return nil
}

func (p *memoryPersister) Delete(_ context.Context, id string) error {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	delete(p.backend.namespaces[p.namespace], id)
	return nil
}
