package mongo

import (
	"fmt"

	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Documents as stored. Money is Decimal128 so prices keep their scale.

type tableDoc struct {
	Number    string `bson:"number"`
	SortOrder int    `bson:"sort_order"`
}

type waiterDoc struct {
	Name      string `bson:"name"`
	SortOrder int    `bson:"sort_order"`
}

type categoryDoc struct {
	Name      string `bson:"name"`
	SortOrder int    `bson:"sort_order"`
}

type itemDoc struct {
	Name        string               `bson:"name"`
	Price       primitive.Decimal128 `bson:"price"`
	ImageURL    string               `bson:"image_url"`
	Description string               `bson:"description"`
	Category    string               `bson:"category"`
	SortOrder   int                  `bson:"sort_order"`
}

type orderDoc struct {
	ID            int64                `bson:"_id"`
	Waiter        string               `bson:"waiter"`
	Table         string               `bson:"table"`
	Items         map[string]int       `bson:"items"`
	PaymentMethod string               `bson:"payment_method"`
	OrderedAt     string               `bson:"ordered_at"`
	Total         primitive.Decimal128 `bson:"total"`
	IsActive      bool                 `bson:"is_active"`
	Notes         string               `bson:"notes"`
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func fromItem(it model.MenuItem, sortOrder int) (itemDoc, error) {
	price, err := toDecimal128(it.Price)
	if err != nil {
		return itemDoc{}, fmt.Errorf("item %q price: %w", it.Name, err)
	}
	return itemDoc{
		Name:        it.Name,
		Price:       price,
		ImageURL:    it.ImageURL,
		Description: it.Description,
		Category:    it.Category,
		SortOrder:   sortOrder,
	}, nil
}

func (d itemDoc) model() (model.MenuItem, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("item %q price: %w", d.Name, err)
	}
	return model.MenuItem{
		Name:        d.Name,
		Price:       price,
		ImageURL:    d.ImageURL,
		Description: d.Description,
		Category:    d.Category,
	}, nil
}

func fromOrder(o model.Order) (orderDoc, error) {
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDoc{}, fmt.Errorf("order %d total: %w", o.ID, err)
	}
	return orderDoc{
		ID:            o.ID,
		Waiter:        o.Waiter,
		Table:         o.Table,
		Items:         o.Items.Clone(),
		PaymentMethod: o.PaymentMethod,
		OrderedAt:     o.OrderedAt,
		Total:         total,
		IsActive:      o.IsActive,
		Notes:         o.Notes,
	}, nil
}

func (d orderDoc) model() (model.Order, error) {
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %d total: %w", d.ID, err)
	}
	return model.Order{
		ID:            d.ID,
		Waiter:        d.Waiter,
		Table:         d.Table,
		Items:         model.Selection(d.Items).Clone(),
		PaymentMethod: d.PaymentMethod,
		OrderedAt:     d.OrderedAt,
		Total:         total,
		IsActive:      d.IsActive,
		Notes:         d.Notes,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}
