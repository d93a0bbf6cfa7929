package store

import (
	"context"
	"sync"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/sirupsen/logrus"
)

// Feed turns a Watcher plus a list function into a snapshot source: the
// subscriber receives the full collection once on Subscribe and again
// after every change notification.
type Feed[T any] struct {
	watcher    Watcher
	collection enum.Collection
	list       func(ctx context.Context) ([]T, error)
	log        logrus.FieldLogger

	// Deliveries are serialized so a slower relist never overwrites a
	// newer snapshot.
	mu sync.Mutex
}

// NewFeed creates a Feed for one collection.
func NewFeed[T any](w Watcher, c enum.Collection, list func(ctx context.Context) ([]T, error), log logrus.FieldLogger) *Feed[T] {
	return &Feed[T]{
		watcher:    w,
		collection: c,
		list:       list,
		log:        log.WithField("collection", string(c)),
	}
}

// Collection returns the collection this feed relists.
func (f *Feed[T]) Collection() enum.Collection {
	return f.collection
}

// Subscribe delivers the current snapshot, then one snapshot per change.
// A relist that fails (store error or invalid document) is logged and
// dropped; the subscriber keeps its previous snapshot.
func (f *Feed[T]) Subscribe(ctx context.Context, onChange func([]T)) (Unsubscribe, error) {
	deliver := func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		docs, err := f.list(ctx)
		if err != nil {
			f.log.WithError(err).Error("relist collection")
			return
		}
		onChange(docs)
	}

	unsubscribe, err := f.watcher.Watch(ctx, f.collection, deliver)
	if err != nil {
		return nil, err
	}
	deliver()
	return unsubscribe, nil
}

// Feeds bundles one feed per mirrored collection.
type Feeds struct {
	Tables     *Feed[model.Table]
	Items      *Feed[model.MenuItem]
	Waiters    *Feed[model.Waiter]
	Categories *Feed[model.Category]
	Orders     *Feed[model.Order]
}

// NewFeeds wires every collection of s into a Feed.
func NewFeeds(s Store, log logrus.FieldLogger) Feeds {
	return Feeds{
		Tables:     NewFeed(s, enum.CollectionTables, s.ListTables, log),
		Items:      NewFeed(s, enum.CollectionItems, s.ListItems, log),
		Waiters:    NewFeed(s, enum.CollectionWaiters, s.ListWaiters, log),
		Categories: NewFeed(s, enum.CollectionCategories, s.ListCategories, log),
		Orders:     NewFeed(s, enum.CollectionOrders, s.ListOrders, log),
	}
}
