package storage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smp/internal/platform/codec"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/sentinel"
)

// Entity is a record kept in a Store. Clone must return a deep copy so callers
// never share mutable state with the store.
type Entity[T any] interface {
	StoreID() string
	Clone() T
}

// cborNull is the encoding of a nil value.
const cborNull = 0xf6

// validatable entities are checked after decoding at load time.
type validatable interface {
	Validate() error
}

// Store is a lock-guarded in-memory map of entities backed by a Persister.
// Reads are served from memory. A write holds the exclusive lock, persists the
// change and only then applies it to memory, so memory never runs ahead of
// the durable state.
type Store[T Entity[T]] struct {
	mu        sync.RWMutex
	namespace string
	items     map[string]T
	persister Persister
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open loads every record of the persister into memory. Undecodable or invalid
// records abort the load with a persistence error.
func Open[T Entity[T]](ctx context.Context, namespace string, persister Persister, opts ...Option) (*Store[T], error) {
	if persister == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "persister is required")
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		namespace: namespace,
		items:     make(map[string]T),
		persister: persister,
		logger:    o.logger,
		tracer:    otel.Tracer("smp/storage"),
	}

	ctx, span := s.tracer.Start(ctx, "storage.Open", trace.WithAttributes(attribute.String("namespace", namespace)))
	defer span.End()

	records, err := persister.LoadAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, fmt.Sprintf("load %s", namespace))
	}
	for _, rec := range records {
		item, err := decode[T](rec.Data)
		if err != nil {
			return nil, dErrors.Wrap(fmt.Errorf("record %q: %w", rec.ID, err), dErrors.CodePersistence, fmt.Sprintf("load %s", namespace))
		}
		if v, ok := any(item).(validatable); ok {
			if err := v.Validate(); err != nil {
				return nil, dErrors.Wrap(fmt.Errorf("record %q: %w: %w", rec.ID, sentinel.ErrCorrupt, err), dErrors.CodePersistence, fmt.Sprintf("load %s", namespace))
			}
		}
		if item.StoreID() != rec.ID {
			return nil, dErrors.Wrap(fmt.Errorf("record %q carries id %q: %w", rec.ID, item.StoreID(), sentinel.ErrCorrupt), dErrors.CodePersistence, fmt.Sprintf("load %s", namespace))
		}
		s.items[rec.ID] = item
	}
	s.logger.DebugContext(ctx, "store loaded", "namespace", namespace, "records", len(s.items))
	return s, nil
}

func decode[T any](data []byte) (T, error) {
	var item T
	if len(data) == 0 || data[0] == cborNull {
		return item, fmt.Errorf("%w: empty payload", sentinel.ErrCorrupt)
	}
	if err := codec.Unmarshal(data, &item); err != nil {
		return item, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, err)
	}
	return item, nil
}

// Namespace returns the persisted namespace of the store.
func (s *Store[T]) Namespace() string { return s.namespace }

// Get returns a copy of the entity with the given ID.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return item.Clone(), true
}

func (s *Store[T]) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

func (s *Store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// All returns copies of every entity ordered by ID.
func (s *Store[T]) All() []T {
	return s.Find(nil)
}

// IDs returns every stored ID in ascending order.
func (s *Store[T]) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.items)
}

// Find returns copies of the entities matching pred, ordered by ID. A nil
// predicate matches everything.
func (s *Store[T]) Find(pred func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findLocked(s.items, pred)
}

// FindFirst returns the first match in ID order.
func (s *Store[T]) FindFirst(pred func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sortedKeys(s.items) {
		if item := s.items[id]; pred(item) {
			return item.Clone(), true
		}
	}
	var zero T
	return zero, false
}

// CountWhere counts the entities matching pred.
func (s *Store[T]) CountWhere(pred func(T) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		if pred(item) {
			n++
		}
	}
	return n
}

// Create persists a new entity. An existing ID yields sentinel.ErrConflict.
func (s *Store[T]) Create(ctx context.Context, item T) error {
	return s.Write(ctx, func(tx *Tx[T]) error { return tx.Create(item) })
}

// Update replaces an existing entity. A missing ID yields sentinel.ErrNotFound.
func (s *Store[T]) Update(ctx context.Context, item T) error {
	return s.Write(ctx, func(tx *Tx[T]) error { return tx.Update(item) })
}

// Put creates or replaces an entity.
func (s *Store[T]) Put(ctx context.Context, item T) error {
	return s.Write(ctx, func(tx *Tx[T]) error { return tx.Put(item) })
}

// Delete removes an entity and returns the removed copy. A missing ID reports
// false without error.
func (s *Store[T]) Delete(ctx context.Context, id string) (T, bool, error) {
	var (
		removed T
		found   bool
	)
	err := s.Write(ctx, func(tx *Tx[T]) error {
		var err error
		removed, found, err = tx.Delete(id)
		return err
	})
	return removed, found, err
}

// Write runs fn while holding the exclusive lock. Guard checks made through
// the Tx and the mutations that depend on them are therefore atomic with
// respect to other writers.
func (s *Store[T]) Write(ctx context.Context, fn func(tx *Tx[T]) error) error {
	ctx, span := s.tracer.Start(ctx, "storage.Write", trace.WithAttributes(attribute.String("namespace", s.namespace)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(&Tx[T]{ctx: ctx, store: s})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *Store[T]) persist(ctx context.Context, item T) error {
	data, err := codec.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", s.namespace, item.StoreID(), err)
	}
	if err := s.persister.Put(ctx, item.StoreID(), data); err != nil {
		return fmt.Errorf("persist %s/%s: %w", s.namespace, item.StoreID(), err)
	}
	return nil
}

// Tx is the mutation surface available inside Store.Write. It must not be
// retained after the callback returns.
type Tx[T Entity[T]] struct {
	ctx   context.Context
	store *Store[T]
}

// Get returns a copy of the entity with the given ID.
func (tx *Tx[T]) Get(id string) (T, bool) {
	item, ok := tx.store.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return item.Clone(), true
}

func (tx *Tx[T]) Contains(id string) bool {
	_, ok := tx.store.items[id]
	return ok
}

// Find returns copies of the matching entities ordered by ID.
func (tx *Tx[T]) Find(pred func(T) bool) []T {
	return findLocked(tx.store.items, pred)
}

// Any reports whether at least one entity matches pred.
func (tx *Tx[T]) Any(pred func(T) bool) bool {
	for _, item := range tx.store.items {
		if pred(item) {
			return true
		}
	}
	return false
}

func (tx *Tx[T]) Create(item T) error {
	id := item.StoreID()
	if _, exists := tx.store.items[id]; exists {
		return fmt.Errorf("%s/%s: %w", tx.store.namespace, id, sentinel.ErrConflict)
	}
	if err := tx.store.persist(tx.ctx, item); err != nil {
		return err
	}
	tx.store.items[id] = item.Clone()
	return nil
}

func (tx *Tx[T]) Update(item T) error {
	id := item.StoreID()
	if _, exists := tx.store.items[id]; !exists {
		return fmt.Errorf("%s/%s: %w", tx.store.namespace, id, sentinel.ErrNotFound)
	}
	if err := tx.store.persist(tx.ctx, item); err != nil {
		return err
	}
	tx.store.items[id] = item.Clone()
	return nil
}

// Put creates or replaces an entity without an existence check.
func (tx *Tx[T]) Put(item T) error {
	if err := tx.store.persist(tx.ctx, item); err != nil {
		return err
	}
	tx.store.items[item.StoreID()] = item.Clone()
	return nil
}

func (tx *Tx[T]) Delete(id string) (T, bool, error) {
	item, exists := tx.store.items[id]
	if !exists {
		var zero T
		return zero, false, nil
	}
	if err := tx.store.persister.Delete(tx.ctx, id); err != nil {
		var zero T
		return zero, false, fmt.Errorf("delete %s/%s: %w", tx.store.namespace, id, err)
	}
	delete(tx.store.items, id)
	return item, true, nil
}

func findLocked[T Entity[T]](items map[string]T, pred func(T) bool) []T {
	out := make([]T, 0)
	for _, id := range sortedKeys(items) {
		item := items[id]
		if pred == nil || pred(item) {
			out = append(out, item.Clone())
		}
	}
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
