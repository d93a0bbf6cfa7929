// Package selection implements the per-item quantity stepper and the
// derived order total.
package selection

import (
	"errors"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownItem      = errors.New("item not found in catalog")
	ErrInvalidDirection = errors.New("direction must be increment or decrement")
)

// Adjust steps the quantity of itemName by one in the given direction and
// returns the new selection together with its total. The input selection
// is never modified. Decrementing an absent item is a no-op; reaching zero
// removes the entry. A name already in sel can still be decremented after
// it leaves the catalog.
func Adjust(sel model.Selection, catalog []model.MenuItem, itemName, direction string) (model.Selection, decimal.Decimal, error) {
	stale := direction == enum.DirectionDecrement && sel[itemName] > 0
	if !stale && !inCatalog(catalog, itemName) {
		return nil, decimal.Zero, ErrUnknownItem
	}

	next := sel.Clone()
	switch direction {
	case enum.DirectionIncrement:
		next[itemName]++
	case enum.DirectionDecrement:
		if next[itemName] > 0 {
			next[itemName]--
		}
		if next[itemName] <= 0 {
			delete(next, itemName)
		}
	default:
		return nil, decimal.Zero, ErrInvalidDirection
	}

	return next, Total(catalog, next), nil
}

// Total is sum(price * qty) over sel, with prices from the full catalog.
// Names missing from the catalog contribute nothing.
func Total(catalog []model.MenuItem, sel model.Selection) decimal.Decimal {
	total := decimal.Zero
	for _, item := range catalog {
		qty, ok := sel[item.Name]
		if !ok || qty <= 0 {
			continue
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}

// Unknown returns the names in sel that the catalog does not carry.
func Unknown(catalog []model.MenuItem, sel model.Selection) []string {
	var missing []string
	for name := range sel {
		if !inCatalog(catalog, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func inCatalog(catalog []model.MenuItem, name string) bool {
	for _, item := range catalog {
		if item.Name == name {
			return true
		}
	}
	return false
}
