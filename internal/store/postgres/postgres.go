// Package postgres is the PostgreSQL store backend. Changes are observed
// through LISTEN/NOTIFY on the collection_changed channel.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const notifyChannel = "collection_changed"

// Store reads and writes the five collections through a pgx pool.
type Store struct {
	*store.Notifier

	pool *pgxpool.Pool
	log  logrus.FieldLogger

	// reconnect delay bounds for the LISTEN loop
	minBackoff time.Duration
	maxBackoff time.Duration
}

// New creates a Store on an existing pool. Call Run to start delivering
// change notifications.
func New(pool *pgxpool.Pool, log logrus.FieldLogger) *Store {
	return &Store{
		Notifier:   store.NewNotifier(),
		pool:       pool,
		log:        log.WithField("store", "postgres"),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Run holds a dedicated connection listening for collection changes until
// ctx is done. Every (re)connect triggers a full resync so no change made
// while disconnected is missed.
func (s *Store) Run(ctx context.Context) error {
	backoff := s.minBackoff
	for {
		err := s.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.log.WithError(err).WithField("retry_in", backoff.String()).Warn("change feed disconnected")

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

func (s *Store) listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.log.Info("change feed connected")
	s.NotifyAll()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		c, ok := enum.ParseCollection(n.Payload)
		if !ok {
			s.log.WithField("payload", n.Payload).Warn("ignoring unknown collection notification")
			continue
		}
		s.Notify(c)
	}
}

// --- Reference collections ---

func (s *Store) ListTables(ctx context.Context) ([]model.Table, error) {
	rows, err := s.pool.Query(ctx, `SELECT number FROM restaurant_tables ORDER BY sort_order, number`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Table, error) {
		var t model.Table
		err := row.Scan(&t.Number)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan tables: %w", err)
	}
	return tables, model.ValidateAll(tables)
}

func (s *Store) ListWaiters(ctx context.Context) ([]model.Waiter, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM waiters ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list waiters: %w", err)
	}
	waiters, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Waiter, error) {
		var w model.Waiter
		err := row.Scan(&w.Name)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan waiters: %w", err)
	}
	return waiters, model.ValidateAll(waiters)
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Category, error) {
		var c model.Category
		err := row.Scan(&c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return categories, model.ValidateAll(categories)
}

func (s *Store) ListItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, price, image_url, description, category
		FROM menu_items
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.MenuItem, error) {
		var (
			it    model.MenuItem
			price pgtype.Numeric
		)
		if err := row.Scan(&it.Name, &price, &it.ImageURL, &it.Description, &it.Category); err != nil {
			return it, err
		}
		d, err := numericToDecimal(price)
		if err != nil {
			return it, fmt.Errorf("item %q price: %w", it.Name, err)
		}
		it.Price = d
		return it, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, model.ValidateAll(items)
}

// Seed replaces every reference collection in one transaction. Position
// in each slice becomes sort_order.
func (s *Store) Seed(ctx context.Context, c store.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE restaurant_tables, waiters, categories, menu_items`); err != nil {
			return fmt.Errorf("truncate reference data: %w", err)
		}

		batch := &pgx.Batch{}
		for i, t := range c.Tables {
			batch.Queue(`INSERT INTO restaurant_tables (number, sort_order) VALUES ($1, $2)`, t.Number, i)
		}
		for i, w := range c.Waiters {
			batch.Queue(`INSERT INTO waiters (name, sort_order) VALUES ($1, $2)`, w.Name, i)
		}
		for i, cat := range c.Categories {
			batch.Queue(`INSERT INTO categories (name, sort_order) VALUES ($1, $2)`, cat.Name, i)
		}
		for i, it := range c.Items {
			batch.Queue(`
				INSERT INTO menu_items (name, price, image_url, description, category, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				it.Name, decimalToNumeric(it.Price), it.ImageURL, it.Description, it.Category, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert reference data: %w", err)
		}
		return nil
	})
}

// --- Orders ---

const orderColumns = `id, waiter, table_number, items, payment_method, ordered_at, total, is_active, notes`

func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return orders, model.ValidateAll(orders)
}

// CreateOrder inserts n; the id comes from the BIGSERIAL sequence.
func (s *Store) CreateOrder(ctx context.Context, n model.NewOrder) (model.Order, error) {
	if err := model.Validate(n); err != nil {
		return model.Order{}, err
	}

	items, err := json.Marshal(n.Items)
	if err != nil {
		return model.Order{}, fmt.Errorf("encode items: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO orders (waiter, table_number, items, payment_method, ordered_at, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+orderColumns,
		n.Waiter, n.Table, items, n.PaymentMethod, n.OrderedAt, decimalToNumeric(n.Total), n.Notes)

	o, err := scanOrder(row)
	if err != nil {
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (s *Store) DeactivateOrder(ctx context.Context, id int64) (model.Order, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE orders SET is_active = FALSE
		WHERE id = $1
		RETURNING `+orderColumns, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, store.ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("deactivate order: %w", err)
	}
	return o, nil
}

// --- Helpers ---

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o     model.Order
		items []byte
		total pgtype.Numeric
	)
	if err := row.Scan(&o.ID, &o.Waiter, &o.Table, &items, &o.PaymentMethod, &o.OrderedAt, &total, &o.IsActive, &o.Notes); err != nil {
		return model.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("order %d items: %w", o.ID, err)
	}
	d, err := numericToDecimal(total)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %d total: %w", o.ID, err)
	}
	o.Total = d
	return o, nil
}

// numericToDecimal converts pgtype.Numeric to decimal.Decimal.
func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(val.(string))
}

// decimalToNumeric converts decimal.Decimal to pgtype.Numeric.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
