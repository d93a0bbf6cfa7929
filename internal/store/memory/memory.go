// Package memory is an in-process store backend. It backs tests and the
// "memory" store driver used for local development.
package memory

import (
	"context"
	"sync"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/store"
)

// Store keeps every collection in memory and notifies watchers
// synchronously after each write.
type Store struct {
	*store.Notifier

	mu         sync.RWMutex
	tables     []model.Table
	items      []model.MenuItem
	waiters    []model.Waiter
	categories []model.Category
	orders     []model.Order
	lastID     int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{Notifier: store.NewNotifier()}
}

// --- Reference collections ---

func (s *Store) ListTables(_ context.Context) ([]model.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Table{}, s.tables...), nil
}

func (s *Store) ListItems(_ context.Context) ([]model.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.MenuItem{}, s.items...), nil
}

func (s *Store) ListWaiters(_ context.Context) ([]model.Waiter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Waiter{}, s.waiters...), nil
}

func (s *Store) ListCategories(_ context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category{}, s.categories...), nil
}

// Seed replaces every reference collection and notifies their watchers.
func (s *Store) Seed(_ context.Context, c store.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.tables = append([]model.Table{}, c.Tables...)
	s.waiters = append([]model.Waiter{}, c.Waiters...)
	s.categories = append([]model.Category{}, c.Categories...)
	s.items = append([]model.MenuItem{}, c.Items...)
	s.mu.Unlock()

	s.Notify(enum.CollectionTables)
	s.Notify(enum.CollectionWaiters)
	s.Notify(enum.CollectionCategories)
	s.Notify(enum.CollectionItems)
	return nil
}

// PutItems replaces the item collection.
func (s *Store) PutItems(items ...model.MenuItem) error {
	if err := model.ValidateAll(items); err != nil {
		return err
	}
	s.mu.Lock()
	s.items = append([]model.MenuItem{}, items...)
	s.mu.Unlock()
	s.Notify(enum.CollectionItems)
	return nil
}

// --- Orders ---

func (s *Store) ListOrders(_ context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, len(s.orders))
	for i, o := range s.orders {
		o.Items = o.Items.Clone()
		out[i] = o
	}
	return out, nil
}

func (s *Store) CreateOrder(_ context.Context, n model.NewOrder) (model.Order, error) {
	if err := model.Validate(n); err != nil {
		return model.Order{}, err
	}

	s.mu.Lock()
	s.lastID++
	o := model.FromNew(s.lastID, n)
	s.orders = append(s.orders, o)
	s.mu.Unlock()

	s.Notify(enum.CollectionOrders)
	o.Items = o.Items.Clone()
	return o, nil
}

func (s *Store) DeactivateOrder(_ context.Context, id int64) (model.Order, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.orders {
		if s.orders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.Order{}, store.ErrOrderNotFound
	}
	s.orders[idx].IsActive = false
	o := s.orders[idx]
	o.Items = o.Items.Clone()
	s.mu.Unlock()

	s.Notify(enum.CollectionOrders)
	return o, nil
}
