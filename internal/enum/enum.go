package enum

// ── Collections mirrored from the store ──

type Collection string

const (
	CollectionTables     Collection = "tables"
	CollectionItems      Collection = "items"
	CollectionWaiters    Collection = "waiters"
	CollectionCategories Collection = "categories"
	CollectionOrders     Collection = "orders"
)

// Collections lists every mirrored collection in subscription order.
var Collections = []Collection{
	CollectionTables,
	CollectionItems,
	CollectionWaiters,
	CollectionCategories,
	CollectionOrders,
}

// ParseCollection returns the collection named by s.
func ParseCollection(s string) (Collection, bool) {
	for _, c := range Collections {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ── Payment methods (closed set) ──

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
)

func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// ── Selection stepper ──

const (
	DirectionIncrement = "increment"
	DirectionDecrement = "decrement"
)

// ── Event subjects ──

const (
	SubjectOrderCreated = "orders.created"
	SubjectOrderPaid    = "orders.paid"
)

// ── Websocket event types ──

const (
	EventSnapshot = "snapshot"
)
