package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/events"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/selection"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/sirupsen/logrus"
)

// OrderedAtLayout renders the creation instant the way floor staff read
// it (es-MX short date, 24h clock).
const OrderedAtLayout = "2/1/2006, 15:04:05"

// Errors returned by the order service.
var (
	ErrWaiterRequired        = errors.New("waiter is required")
	ErrTableRequired         = errors.New("table is required")
	ErrPaymentMethodRequired = errors.New("payment_method is required")
	ErrInvalidPaymentMethod  = errors.New("invalid payment_method")
	ErrEmptyItems            = errors.New("items are required")
	ErrInvalidQuantity       = errors.New("quantity must be > 0")
	ErrItemNotFound          = errors.New("item not found in catalog")
	ErrZeroTotal             = errors.New("total must be > 0")
	ErrInvalidOrderID        = errors.New("invalid order id")
	ErrOrderNotFound         = store.ErrOrderNotFound
)

// OrderStore defines the store methods needed to create and settle orders.
// Satisfied by every store backend; narrow interface for testability.
type OrderStore interface {
	CreateOrder(ctx context.Context, o model.NewOrder) (model.Order, error)
	DeactivateOrder(ctx context.Context, id int64) (model.Order, error)
}

// CatalogFunc returns the current, unfiltered menu. Normally the items
// mirror's Snapshot.
type CatalogFunc func() []model.MenuItem

// OrderService handles order business logic.
type OrderService struct {
	store     OrderStore
	catalog   CatalogFunc
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewOrderService creates a new OrderService. OrderedAt timestamps are
// rendered in loc.
func NewOrderService(st OrderStore, catalog CatalogFunc, pub events.Publisher, loc *time.Location, log logrus.FieldLogger) *OrderService {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{
		store:     st,
		catalog:   catalog,
		publisher: pub,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// Submit validates a pending order and writes it. The total is recomputed
// from the catalog; p.Total is ignored. Nothing is written when validation
// fails.
func (s *OrderService) Submit(ctx context.Context, p model.PendingOrder) (model.Order, error) {
	catalog := s.catalog()

	if err := validatePending(p, catalog); err != nil {
		return model.Order{}, err
	}

	total := selection.Total(catalog, p.Items)
	if !total.IsPositive() {
		return model.Order{}, ErrZeroTotal
	}

	order, err := s.store.CreateOrder(ctx, model.NewOrder{
		Waiter:        p.Waiter,
		Table:         p.Table,
		Items:         p.Items.Clone(),
		PaymentMethod: p.PaymentMethod,
		OrderedAt:     FormatOrderedAt(s.now(), s.loc),
		Total:         total,
		Notes:         p.Notes,
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"table":    order.Table,
		"waiter":   order.Waiter,
		"total":    order.Total.String(),
	}).Info("order created")

	s.publish(ctx, enum.SubjectOrderCreated, order)
	return order, nil
}

// MarkPaid flips is_active to false on exactly the given order.
func (s *OrderService) MarkPaid(ctx context.Context, id int64) (model.Order, error) {
	if id <= 0 {
		return model.Order{}, ErrInvalidOrderID
	}

	order, err := s.store.DeactivateOrder(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("deactivate order %d: %w", id, err)
	}

	s.log.WithField("order_id", id).Info("order marked paid")
	s.publish(ctx, enum.SubjectOrderPaid, order)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, subject string, o model.Order) {
	if err := events.PublishOrder(ctx, s.publisher, subject, o); err != nil {
		s.log.WithError(err).WithField("subject", subject).Warn("publish order event")
	}
}

// --- Helpers ---

func validatePending(p model.PendingOrder, catalog []model.MenuItem) error {
	if p.Waiter == "" {
		return ErrWaiterRequired
	}
	if p.Table == "" {
		return ErrTableRequired
	}
	if p.PaymentMethod == "" {
		return ErrPaymentMethodRequired
	}
	if !enum.IsValidPaymentMethod(p.PaymentMethod) {
		return ErrInvalidPaymentMethod
	}
	if len(p.Items) == 0 {
		return ErrEmptyItems
	}
	for name, qty := range p.Items {
		if qty <= 0 {
			return fmt.Errorf("item %q: %w", name, ErrInvalidQuantity)
		}
	}
	if missing := selection.Unknown(catalog, p.Items); len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("item %q: %w", missing[0], ErrItemNotFound)
	}
	return nil
}

// FormatOrderedAt renders t in loc using OrderedAtLayout.
func FormatOrderedAt(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(OrderedAtLayout)
}

// IsValidationError reports whether err is a rejected-input error that
// should be surfaced to the user as-is.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWaiterRequired) ||
		errors.Is(err, ErrTableRequired) ||
		errors.Is(err, ErrPaymentMethodRequired) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrEmptyItems) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrZeroTotal) ||
		errors.Is(err, ErrInvalidOrderID)
}
