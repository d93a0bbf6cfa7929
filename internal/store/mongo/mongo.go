// Package mongo is the MongoDB store backend. Changes are observed
// through a database change stream, which needs a replica set; on a
// standalone server the store still notifies for its own writes.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collTables     = "tables"
	collWaiters    = "waiters"
	collCategories = "categories"
	collItems      = "items"
	collOrders     = "orders"
	collCounters   = "counters"

	orderCounterID = "orders"
)

// Store reads and writes the five collections of one Mongo database.
type Store struct {
	*store.Notifier

	uri    string
	dbName string
	log    logrus.FieldLogger

	client *mongo.Client
	db     *mongo.Database

	minBackoff time.Duration
	maxBackoff time.Duration
}

// New creates a Store. Call Start before use.
func New(uri, dbName string, log logrus.FieldLogger) *Store {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if dbName == "" {
		dbName = "takeorder"
	}
	return &Store{
		Notifier:   store.NewNotifier(),
		uri:        uri,
		dbName:     dbName,
		log:        log.WithField("store", "mongo"),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Start connects and pings the server.
func (s *Store) Start(ctx context.Context) error {
	clientOptions := options.Client().ApplyURI(s.uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	s.client = client
	s.db = client.Database(s.dbName)
	s.log.WithField("database", s.dbName).Info("connected to MongoDB")
	return nil
}

// Stop disconnects the client.
func (s *Store) Stop(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
	}
	s.log.Info("disconnected from MongoDB")
	return nil
}

// Run follows the database change stream until ctx is done, resyncing
// every collection on each (re)connect.
func (s *Store) Run(ctx context.Context) error {
	backoff := s.minBackoff
	for {
		err := s.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.log.WithError(err).WithField("retry_in", backoff.String()).Warn("change stream closed")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

type changeEvent struct {
	NS struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
}

func (s *Store) watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "ns.coll", Value: bson.D{{Key: "$in", Value: bson.A{
			collTables, collWaiters, collCategories, collItems, collOrders,
		}}}}}}},
	}
	stream, err := s.db.Watch(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer stream.Close(context.Background())

	s.log.Info("change stream connected")
	s.NotifyAll()

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			s.log.WithError(err).Warn("decode change event")
			continue
		}
		if c, ok := enum.ParseCollection(ev.NS.Coll); ok {
			s.Notify(c)
		}
	}
	return stream.Err()
}

// --- Reference collections ---

var byPosition = options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}})

func (s *Store) ListTables(ctx context.Context) ([]model.Table, error) {
	var docs []tableDoc
	if err := s.findAll(ctx, collTables, &docs); err != nil {
		return nil, err
	}
	tables := make([]model.Table, len(docs))
	for i, d := range docs {
		tables[i] = model.Table{Number: d.Number}
	}
	return tables, model.ValidateAll(tables)
}

func (s *Store) ListWaiters(ctx context.Context) ([]model.Waiter, error) {
	var docs []waiterDoc
	if err := s.findAll(ctx, collWaiters, &docs); err != nil {
		return nil, err
	}
	waiters := make([]model.Waiter, len(docs))
	for i, d := range docs {
		waiters[i] = model.Waiter{Name: d.Name}
	}
	return waiters, model.ValidateAll(waiters)
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	var docs []categoryDoc
	if err := s.findAll(ctx, collCategories, &docs); err != nil {
		return nil, err
	}
	categories := make([]model.Category, len(docs))
	for i, d := range docs {
		categories[i] = model.Category{Name: d.Name}
	}
	return categories, model.ValidateAll(categories)
}

func (s *Store) ListItems(ctx context.Context) ([]model.MenuItem, error) {
	var docs []itemDoc
	if err := s.findAll(ctx, collItems, &docs); err != nil {
		return nil, err
	}
	items := make([]model.MenuItem, len(docs))
	for i, d := range docs {
		it, err := d.model()
		if err != nil {
			return nil, err
		}
		items[i] = it
	}
	return items, model.ValidateAll(items)
}

// Seed replaces every reference collection.
func (s *Store) Seed(ctx context.Context, c store.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	tables := make([]interface{}, len(c.Tables))
	for i, t := range c.Tables {
		tables[i] = tableDoc{Number: t.Number, SortOrder: i}
	}
	waiters := make([]interface{}, len(c.Waiters))
	for i, w := range c.Waiters {
		waiters[i] = waiterDoc{Name: w.Name, SortOrder: i}
	}
	categories := make([]interface{}, len(c.Categories))
	for i, cat := range c.Categories {
		categories[i] = categoryDoc{Name: cat.Name, SortOrder: i}
	}
	items := make([]interface{}, len(c.Items))
	for i, it := range c.Items {
		d, err := fromItem(it, i)
		if err != nil {
			return err
		}
		items[i] = d
	}

	for _, r := range []struct {
		coll string
		docs []interface{}
		c    enum.Collection
	}{
		{collTables, tables, enum.CollectionTables},
		{collWaiters, waiters, enum.CollectionWaiters},
		{collCategories, categories, enum.CollectionCategories},
		{collItems, items, enum.CollectionItems},
	} {
		if err := s.replaceAll(ctx, r.coll, r.docs); err != nil {
			return err
		}
		s.Notify(r.c)
	}
	return nil
}

// --- Orders ---

func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	var docs []orderDoc
	cursor, err := s.db.Collection(collOrders).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	orders := make([]model.Order, len(docs))
	for i, d := range docs {
		o, err := d.model()
		if err != nil {
			return nil, err
		}
		orders[i] = o
	}
	return orders, model.ValidateAll(orders)
}

// CreateOrder allocates the id from an atomically incremented counter
// document, then inserts the order.
func (s *Store) CreateOrder(ctx context.Context, n model.NewOrder) (model.Order, error) {
	if err := model.Validate(n); err != nil {
		return model.Order{}, err
	}

	id, err := s.nextOrderID(ctx)
	if err != nil {
		return model.Order{}, err
	}

	o := model.FromNew(id, n)
	doc, err := fromOrder(o)
	if err != nil {
		return model.Order{}, err
	}
	if _, err := s.db.Collection(collOrders).InsertOne(ctx, doc); err != nil {
		return model.Order{}, fmt.Errorf("cannot create order: %w", err)
	}

	s.Notify(enum.CollectionOrders)
	return o, nil
}

func (s *Store) DeactivateOrder(ctx context.Context, id int64) (model.Order, error) {
	var doc orderDoc
	err := s.db.Collection(collOrders).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Order{}, store.ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("cannot deactivate order: %w", err)
	}

	s.Notify(enum.CollectionOrders)
	return doc.model()
}

// --- Helpers ---

func (s *Store) nextOrderID(ctx context.Context) (int64, error) {
	var c counterDoc
	err := s.db.Collection(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": orderCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("cannot allocate order id: %w", err)
	}
	return c.Seq, nil
}

func (s *Store) findAll(ctx context.Context, coll string, out interface{}) error {
	cursor, err := s.db.Collection(coll).Find(ctx, bson.M{}, byPosition)
	if err != nil {
		return fmt.Errorf("cannot list %s: %w", coll, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("cannot decode %s: %w", coll, err)
	}
	return nil
}

func (s *Store) replaceAll(ctx context.Context, coll string, docs []interface{}) error {
	c := s.db.Collection(coll)
	if _, err := c.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("cannot clear %s: %w", coll, err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := c.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("cannot insert %s: %w", coll, err)
	}
	return nil
}
