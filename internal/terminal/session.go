// Package terminal holds the per-terminal pending order and the
// "mark as paid" confirmation flow.
package terminal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/selection"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoTargetOrder    = errors.New("no order selected for payment")
	ErrOrderNotActive   = errors.New("order is not active")
	ErrSubmitInProgress = errors.New("submit already in progress")
)

// OrderServicer defines the lifecycle operations a session drives.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	Submit(ctx context.Context, p model.PendingOrder) (model.Order, error)
	MarkPaid(ctx context.Context, id int64) (model.Order, error)
}

// Catalog exposes the mirrored reference data a session reads.
// Satisfied by MirrorCatalog.
type Catalog interface {
	Items() []model.MenuItem
	ActiveOrder(id int64) (model.Order, bool)
}

// State is a point-in-time copy of a session.
type State struct {
	ID          uuid.UUID          `json:"id"`
	Pending     model.PendingOrder `json:"pending"`
	TargetOrder *int64             `json:"target_order"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// PendingUpdate carries optional form field changes; nil fields are kept.
type PendingUpdate struct {
	Waiter        *string
	Table         *string
	PaymentMethod *string
	Notes         *string
}

// Session is one terminal's order form. All mutations replace the pending
// order as a whole under the lock.
type Session struct {
	id      uuid.UUID
	svc     OrderServicer
	catalog Catalog

	mu         sync.Mutex
	pending    model.PendingOrder
	target     *int64
	submitting bool
	updatedAt  time.Time
}

func newSession(svc OrderServicer, catalog Catalog) *Session {
	return &Session{
		id:        uuid.New(),
		svc:       svc,
		catalog:   catalog,
		pending:   emptyPending(),
		updatedAt: time.Now(),
	}
}

func emptyPending() model.PendingOrder {
	return model.PendingOrder{Items: model.Selection{}, Total: decimal.Zero}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	p := s.pending
	p.Items = p.Items.Clone()
	st := State{ID: s.id, Pending: p, UpdatedAt: s.updatedAt}
	if s.target != nil {
		id := *s.target
		st.TargetOrder = &id
	}
	return st
}

// Adjust steps one item up or down and recomputes the total against the
// full catalog.
func (s *Session) Adjust(itemName, direction string) (State, error) {
	catalog := s.catalog.Items()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return State{}, ErrSubmitInProgress
	}
	items, total, err := selection.Adjust(s.pending.Items, catalog, itemName, direction)
	if err != nil {
		return State{}, err
	}
	s.pending.Items = items
	s.pending.Total = total
	s.updatedAt = time.Now()
	return s.stateLocked(), nil
}

// Update applies form field changes.
func (s *Session) Update(u PendingUpdate) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return State{}, ErrSubmitInProgress
	}
	if u.Waiter != nil {
		s.pending.Waiter = *u.Waiter
	}
	if u.Table != nil {
		s.pending.Table = *u.Table
	}
	if u.PaymentMethod != nil {
		s.pending.PaymentMethod = *u.PaymentMethod
	}
	if u.Notes != nil {
		s.pending.Notes = *u.Notes
	}
	s.updatedAt = time.Now()
	return s.stateLocked(), nil
}

// Submit sends the pending order. On success the whole form resets; on any
// failure the pending order is left exactly as it was so the user can
// retry. The lock is not held during the write; edits made meanwhile are
// rejected with ErrSubmitInProgress.
func (s *Session) Submit(ctx context.Context) (model.Order, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return model.Order{}, ErrSubmitInProgress
	}
	s.submitting = true
	pending := s.pending
	pending.Items = pending.Items.Clone()
	s.mu.Unlock()

	order, err := s.svc.Submit(ctx, pending)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		return model.Order{}, err
	}
	s.pending = emptyPending()
	s.updatedAt = time.Now()
	return order, nil
}

// TargetOrder selects an active order for the paid confirmation.
func (s *Session) TargetOrder(id int64) (model.Order, error) {
	order, ok := s.catalog.ActiveOrder(id)
	if !ok {
		return model.Order{}, ErrOrderNotActive
	}

	s.mu.Lock()
	s.target = &id
	s.updatedAt = time.Now()
	s.mu.Unlock()
	return order, nil
}

// CancelPaid drops the targeted order without writing.
func (s *Session) CancelPaid() {
	s.mu.Lock()
	s.target = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// ConfirmPaid marks the targeted order paid. The target is cleared whether
// or not the write succeeds.
func (s *Session) ConfirmPaid(ctx context.Context) (model.Order, error) {
	s.mu.Lock()
	if s.target == nil {
		s.mu.Unlock()
		return model.Order{}, ErrNoTargetOrder
	}
	id := *s.target
	s.target = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return s.svc.MarkPaid(ctx, id)
}
