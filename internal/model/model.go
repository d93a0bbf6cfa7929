// Package model holds the typed documents exchanged with the store.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidDocument wraps every shape mismatch found at the store boundary.
var ErrInvalidDocument = errors.New("invalid document")

// MenuItem is a read-only catalog entry. Name is the primary key.
type MenuItem struct {
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

type Table struct {
	Number string `json:"number" validate:"required"`
}

type Waiter struct {
	Name string `json:"name" validate:"required"`
}

// Category is informational; item grouping derives from MenuItem.Category.
type Category struct {
	Name string `json:"name" validate:"required"`
}

// Selection maps item name to a positive quantity.
type Selection map[string]int

// Clone returns an independent copy. A nil selection clones to an empty one.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Display renders the selection as "name x qty" entries joined by ", ",
// sorted by name.
func (s Selection) Display() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s x%d", name, s[name])
	}
	return strings.Join(parts, ", ")
}

// PendingOrder is the in-progress order a terminal is composing.
type PendingOrder struct {
	Waiter        string          `json:"waiter"`
	Table         string          `json:"table"`
	Items         Selection       `json:"items"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	Total         decimal.Decimal `json:"total"`
}

// NewOrder is what gets written; the store assigns the ID.
type NewOrder struct {
	Waiter        string          `validate:"required"`
	Table         string          `validate:"required"`
	Items         Selection       `validate:"required,min=1,dive,gt=0"`
	PaymentMethod string          `validate:"required,oneof=cash card transfer"`
	OrderedAt     string          `validate:"required"`
	Total         decimal.Decimal `validate:"gt=0"`
	Notes         string
}

// Order is a persisted order. The only permitted mutation is IsActive
// going from true to false.
type Order struct {
	ID            int64           `json:"id" validate:"gt=0"`
	Waiter        string          `json:"waiter" validate:"required"`
	Table         string          `json:"table" validate:"required"`
	Items         Selection       `json:"items" validate:"dive,gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	OrderedAt     string          `json:"ordered_at"`
	Total         decimal.Decimal `json:"total" validate:"gte=0"`
	IsActive      bool            `json:"is_active"`
	Notes         string          `json:"notes"`
}

// FromNew builds the persisted form of n under the given id.
func FromNew(id int64, n NewOrder) Order {
	return Order{
		ID:            id,
		Waiter:        n.Waiter,
		Table:         n.Table,
		Items:         n.Items.Clone(),
		PaymentMethod: n.PaymentMethod,
		OrderedAt:     n.OrderedAt,
		Total:         n.Total,
		IsActive:      true,
		Notes:         n.Notes,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks doc against its struct tags.
func Validate(doc any) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// ValidateAll validates every document, reporting the first failing index.
func ValidateAll[T any](docs []T) error {
	for i := range docs {
		if err := Validate(docs[i]); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}
