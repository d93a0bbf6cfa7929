package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/sirupsen/logrus"
)

// Set is the five mirrors a terminal works against. Orders is filtered
// down to active orders.
type Set struct {
	Tables       *Mirror[model.Table]
	Items        *Mirror[model.MenuItem]
	Waiters      *Mirror[model.Waiter]
	Categories   *Mirror[model.Category]
	ActiveOrders *Mirror[model.Order]

	log logrus.FieldLogger
}

// Sources supplies one snapshot source per collection.
type Sources struct {
	Tables     Source[model.Table]
	Items      Source[model.MenuItem]
	Waiters    Source[model.Waiter]
	Categories Source[model.Category]
	Orders     Source[model.Order]
}

// SourcesFromFeeds adapts store feeds to mirror sources.
func SourcesFromFeeds(f store.Feeds) Sources {
	return Sources{
		Tables:     f.Tables,
		Items:      f.Items,
		Waiters:    f.Waiters,
		Categories: f.Categories,
		Orders:     f.Orders,
	}
}

func isActive(o model.Order) bool { return o.IsActive }

// NewSet builds the mirror set. Call Start to subscribe.
func NewSet(src Sources, log logrus.FieldLogger) *Set {
	return &Set{
		Tables:       New(enum.CollectionTables, src.Tables),
		Items:        New(enum.CollectionItems, src.Items),
		Waiters:      New(enum.CollectionWaiters, src.Waiters),
		Categories:   New(enum.CollectionCategories, src.Categories),
		ActiveOrders: New(enum.CollectionOrders, src.Orders, WithFilter(isActive)),
		log:          log,
	}
}

// Start subscribes every mirror. On failure the ones already started are
// stopped again.
func (s *Set) Start(ctx context.Context) error {
	starters := []interface {
		Start(context.Context) error
		Stop()
		Collection() enum.Collection
	}{s.Tables, s.Items, s.Waiters, s.Categories, s.ActiveOrders}

	for i, m := range starters {
		if err := m.Start(ctx); err != nil {
			for _, started := range starters[:i] {
				started.Stop()
			}
			return fmt.Errorf("start %s mirror: %w", m.Collection(), err)
		}
		s.log.WithField("collection", string(m.Collection())).Debug("mirror subscribed")
	}
	return nil
}

// Close tears down every subscription.
func (s *Set) Close() {
	s.Tables.Stop()
	s.Items.Stop()
	s.Waiters.Stop()
	s.Categories.Stop()
	s.ActiveOrders.Stop()
}

// FindActiveOrder looks an order up in the active mirror.
func (s *Set) FindActiveOrder(id int64) (model.Order, bool) {
	for _, o := range s.ActiveOrders.Snapshot() {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

// SnapshotJSON encodes the current snapshot of collection c.
func (s *Set) SnapshotJSON(c enum.Collection) (json.RawMessage, error) {
	var v any
	switch c {
	case enum.CollectionTables:
		v = s.Tables.Snapshot()
	case enum.CollectionItems:
		v = s.Items.Snapshot()
	case enum.CollectionWaiters:
		v = s.Waiters.Snapshot()
	case enum.CollectionCategories:
		v = s.Categories.Snapshot()
	case enum.CollectionOrders:
		v = s.ActiveOrders.Snapshot()
	default:
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return json.Marshal(v)
}

// Broadcast registers publish on every mirror so each replacement is
// forwarded, JSON encoded, under its collection name.
func (s *Set) Broadcast(publish func(c enum.Collection, payload json.RawMessage)) {
	Forward(s.Tables, publish, s.log)
	Forward(s.Items, publish, s.log)
	Forward(s.Waiters, publish, s.log)
	Forward(s.Categories, publish, s.log)
	Forward(s.ActiveOrders, publish, s.log)
}

// Forward registers publish on a single mirror.
func Forward[T any](m *Mirror[T], publish func(c enum.Collection, payload json.RawMessage), log logrus.FieldLogger) {
	m.OnChange(func(docs []T) {
		payload, err := json.Marshal(docs)
		if err != nil {
			log.WithError(err).WithField("collection", string(m.Collection())).Error("encode snapshot")
			return
		}
		publish(m.Collection(), payload)
	})
}
