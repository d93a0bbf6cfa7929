// Package mirror keeps local read-only copies of remote collections.
package mirror

import (
	"context"
	"errors"
	"sync"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/store"
)

var ErrAlreadyStarted = errors.New("mirror already started")

// Source pushes full snapshots of a collection until unsubscribed.
// Satisfied by *store.Feed; tests use a fake that emits synthetic snapshots.
type Source[T any] interface {
	Subscribe(ctx context.Context, onChange func([]T)) (store.Unsubscribe, error)
}

// Mirror holds the latest snapshot of one collection. Every notification
// replaces the snapshot wholesale; readers never see a partial update.
type Mirror[T any] struct {
	collection enum.Collection
	source     Source[T]
	filter     func(T) bool

	mu          sync.RWMutex
	docs        []T
	listeners   []func([]T)
	unsubscribe store.Unsubscribe
}

// Option configures a Mirror.
type Option[T any] func(*Mirror[T])

// WithFilter keeps only the documents for which keep returns true.
func WithFilter[T any](keep func(T) bool) Option[T] {
	return func(m *Mirror[T]) { m.filter = keep }
}

// New creates a Mirror over source. Call Start to subscribe.
func New[T any](c enum.Collection, source Source[T], opts ...Option[T]) *Mirror[T] {
	m := &Mirror[T]{collection: c, source: source, docs: []T{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Collection returns the mirrored collection name.
func (m *Mirror[T]) Collection() enum.Collection {
	return m.collection
}

// OnChange registers fn to run after every replacement with the new
// snapshot. Register listeners before Start.
func (m *Mirror[T]) OnChange(fn func([]T)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Start establishes the standing subscription.
func (m *Mirror[T]) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.mu.Unlock()

	unsubscribe, err := m.source.Subscribe(ctx, m.replace)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

// Stop tears the subscription down. The last snapshot stays readable.
func (m *Mirror[T]) Stop() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns a copy of the current documents.
func (m *Mirror[T]) Snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]T{}, m.docs...)
}

func (m *Mirror[T]) replace(docs []T) {
	next := make([]T, 0, len(docs))
	for _, d := range docs {
		if m.filter == nil || m.filter(d) {
			next = append(next, d)
		}
	}

	m.mu.Lock()
	m.docs = next
	listeners := append([]func([]T){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(append([]T{}, next...))
	}
}
