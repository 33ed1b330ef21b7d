// Package callback holds ordered observer lists invoked synchronously.
//
// A failing observer is logged and skipped: the triggering operation has
// already been committed and must not be rolled back by a listener.
package callback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// FailureFunc is notified for every observer that returned an error or panicked.
type FailureFunc func(event string, err error)

// List is an ordered, concurrency-safe list of observers of type T.
type List[T any] struct {
	mu        sync.RWMutex
	items     []T
	logger    *slog.Logger
	onFailure FailureFunc
}

// NewList creates an empty list. A nil logger falls back to slog.Default.
func NewList[T any](logger *slog.Logger, onFailure FailureFunc) *List[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &List[T]{logger: logger, onFailure: onFailure}
}

// Add appends an observer. Observers run in registration order.
func (l *List[T]) Add(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// ForEach calls invoke for every observer. Errors and panics are logged and
// reported to the failure hook; the remaining observers still run. It returns
// the number of failed observers.
func (l *List[T]) ForEach(ctx context.Context, event string, invoke func(item T) error) int {
	l.mu.RLock()
	items := make([]T, len(l.items))
	copy(items, l.items)
	l.mu.RUnlock()

	failed := 0
	for i, item := range items {
		if err := l.call(item, invoke); err != nil {
			failed++
			l.logger.ErrorContext(ctx, "callback failed",
				"event", event,
				"index", i,
				"error", err,
			)
			if l.onFailure != nil {
				l.onFailure(event, err)
			}
		}
	}
	return failed
}

func (l *List[T]) call(item T, invoke func(T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	return invoke(item)
}
