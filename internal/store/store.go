// Package store defines the contract every remote data store backend
// satisfies, plus the Feed adapter that turns change notifications into
// full collection snapshots.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
)

// Errors returned by store backends.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Unsubscribe stops a watch. Safe to call more than once.
type Unsubscribe func()

// Watcher signals every change to a collection. The callback carries no
// payload; consumers relist the collection.
type Watcher interface {
	Watch(ctx context.Context, c enum.Collection, onChange func()) (Unsubscribe, error)
}

// Store is the remote data store contract. Implemented by the memory,
// postgres and mongo packages.
type Store interface {
	Watcher

	ListTables(ctx context.Context) ([]model.Table, error)
	ListItems(ctx context.Context) ([]model.MenuItem, error)
	ListWaiters(ctx context.Context) ([]model.Waiter, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListOrders(ctx context.Context) ([]model.Order, error)

	// CreateOrder writes a new order under a store-allocated id. Ids
	// never collide, even across concurrent writers.
	CreateOrder(ctx context.Context, o model.NewOrder) (model.Order, error)

	// DeactivateOrder sets is_active=false on exactly one order and
	// leaves every other field untouched.
	DeactivateOrder(ctx context.Context, id int64) (model.Order, error)
}

// Catalog is the reference data loaded by the seed command.
type Catalog struct {
	Tables     []model.Table
	Waiters    []model.Waiter
	Categories []model.Category
	Items      []model.MenuItem
}

// Validate checks every document in the catalog and that no two documents
// in a collection share a key.
func (c Catalog) Validate() error {
	if err := model.ValidateAll(c.Tables); err != nil {
		return err
	}
	if err := model.ValidateAll(c.Waiters); err != nil {
		return err
	}
	if err := model.ValidateAll(c.Categories); err != nil {
		return err
	}
	if err := model.ValidateAll(c.Items); err != nil {
		return err
	}

	if err := uniqueKeys(enum.CollectionTables, c.Tables, func(t model.Table) string { return t.Number }); err != nil {
		return err
	}
	if err := uniqueKeys(enum.CollectionWaiters, c.Waiters, func(w model.Waiter) string { return w.Name }); err != nil {
		return err
	}
	if err := uniqueKeys(enum.CollectionCategories, c.Categories, func(cat model.Category) string { return cat.Name }); err != nil {
		return err
	}
	return uniqueKeys(enum.CollectionItems, c.Items, func(i model.MenuItem) string { return i.Name })
}

func uniqueKeys[T any](c enum.Collection, docs []T, key func(T) string) error {
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		k := key(d)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%s[%d]: %w: duplicate key %q", c, i, model.ErrInvalidDocument, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Seeder replaces the reference collections wholesale.
type Seeder interface {
	Seed(ctx context.Context, c Catalog) error
}
