package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fake source ---

// fakeSource records the subscriber so tests can emit synthetic snapshots.
type fakeSource[T any] struct {
	mu           sync.Mutex
	onChange     func([]T)
	initial      []T
	err          error
	unsubscribed bool
}

func (f *fakeSource[T]) Subscribe(_ context.Context, onChange func([]T)) (store.Unsubscribe, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()
	if f.initial != nil {
		onChange(f.initial)
	}
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeSource[T]) emit(docs []T) {
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	fn(docs)
}

func (f *fakeSource[T]) isUnsubscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func order(id int64, active bool) model.Order {
	return model.Order{
		ID: id, Waiter: "Ana", Table: "1", Items: model.Selection{"Tacos": 1},
		PaymentMethod: enum.PaymentMethodCash, Total: decimal.NewFromInt(50), IsActive: active,
	}
}

// --- Mirror ---

func TestMirror_InitialSnapshot(t *testing.T) {
	src := &fakeSource[model.Table]{initial: []model.Table{{Number: "1"}, {Number: "2"}}}
	m := New(enum.CollectionTables, src)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, []model.Table{{Number: "1"}, {Number: "2"}}, m.Snapshot())
}

func TestMirror_ReplacesWholesale(t *testing.T) {
	src := &fakeSource[model.Waiter]{initial: []model.Waiter{{Name: "Ana"}, {Name: "Luis"}}}
	m := New(enum.CollectionWaiters, src)
	require.NoError(t, m.Start(context.Background()))

	src.emit([]model.Waiter{{Name: "Sofía"}})

	assert.Equal(t, []model.Waiter{{Name: "Sofía"}}, m.Snapshot())
}

func TestMirror_EmptyBeforeFirstSnapshot(t *testing.T) {
	m := New(enum.CollectionItems, &fakeSource[model.MenuItem]{})

	require.NotNil(t, m.Snapshot())
	assert.Empty(t, m.Snapshot())
}

func TestMirror_FilterKeepsActiveOrders(t *testing.T) {
	src := &fakeSource[model.Order]{}
	m := New(enum.CollectionOrders, src, WithFilter(isActive))
	require.NoError(t, m.Start(context.Background()))

	src.emit([]model.Order{order(1, true), order(2, false), order(3, true)})

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(1), snap[0].ID)
	assert.Equal(t, int64(3), snap[1].ID)
}

func TestMirror_SnapshotIsACopy(t *testing.T) {
	src := &fakeSource[model.Table]{initial: []model.Table{{Number: "1"}}}
	m := New(enum.CollectionTables, src)
	require.NoError(t, m.Start(context.Background()))

	snap := m.Snapshot()
	snap[0].Number = "99"

	assert.Equal(t, "1", m.Snapshot()[0].Number)
}

func TestMirror_ListenersSeeEveryReplacement(t *testing.T) {
	src := &fakeSource[model.Table]{initial: []model.Table{{Number: "1"}}}
	m := New(enum.CollectionTables, src)

	var seen [][]model.Table
	m.OnChange(func(docs []model.Table) { seen = append(seen, docs) })
	require.NoError(t, m.Start(context.Background()))

	src.emit([]model.Table{{Number: "1"}, {Number: "2"}})

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 2)
}

func TestMirror_StopUnsubscribes(t *testing.T) {
	src := &fakeSource[model.Table]{initial: []model.Table{{Number: "1"}}}
	m := New(enum.CollectionTables, src)
	require.NoError(t, m.Start(context.Background()))

	m.Stop()

	assert.True(t, src.isUnsubscribed())
	assert.Len(t, m.Snapshot(), 1, "last snapshot stays readable")
}

func TestMirror_StartTwice(t *testing.T) {
	m := New(enum.CollectionTables, &fakeSource[model.Table]{})
	require.NoError(t, m.Start(context.Background()))

	assert.ErrorIs(t, m.Start(context.Background()), ErrAlreadyStarted)
}

// --- Set ---

func newFakeSet() (*Set, Sources, *fakeSource[model.Order]) {
	orders := &fakeSource[model.Order]{initial: []model.Order{order(1, true), order(2, false)}}
	src := Sources{
		Tables:     &fakeSource[model.Table]{initial: []model.Table{{Number: "1"}}},
		Items:      &fakeSource[model.MenuItem]{},
		Waiters:    &fakeSource[model.Waiter]{},
		Categories: &fakeSource[model.Category]{},
		Orders:     orders,
	}
	return NewSet(src, quietLogger()), src, orders
}

func TestSet_StartAndFindActiveOrder(t *testing.T) {
	set, _, orders := newFakeSet()
	require.NoError(t, set.Start(context.Background()))

	_, ok := set.FindActiveOrder(1)
	assert.True(t, ok)
	_, ok = set.FindActiveOrder(2)
	assert.False(t, ok, "inactive orders are not mirrored")

	orders.emit([]model.Order{order(1, false)})
	_, ok = set.FindActiveOrder(1)
	assert.False(t, ok)
}

func TestSet_StartFailureStopsStartedMirrors(t *testing.T) {
	tables := &fakeSource[model.Table]{}
	src := Sources{
		Tables:     tables,
		Items:      &fakeSource[model.MenuItem]{err: errors.New("boom")},
		Waiters:    &fakeSource[model.Waiter]{},
		Categories: &fakeSource[model.Category]{},
		Orders:     &fakeSource[model.Order]{},
	}
	set := NewSet(src, quietLogger())

	err := set.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "items")
	assert.True(t, tables.isUnsubscribed())
}

func TestSet_CloseStopsAll(t *testing.T) {
	set, src, _ := newFakeSet()
	require.NoError(t, set.Start(context.Background()))

	set.Close()

	assert.True(t, src.Tables.(*fakeSource[model.Table]).isUnsubscribed())
	assert.True(t, src.Orders.(*fakeSource[model.Order]).isUnsubscribed())
}

func TestSet_BroadcastForwardsSnapshots(t *testing.T) {
	set, _, orders := newFakeSet()

	got := map[enum.Collection][]json.RawMessage{}
	set.Broadcast(func(c enum.Collection, payload json.RawMessage) {
		got[c] = append(got[c], payload)
	})
	require.NoError(t, set.Start(context.Background()))

	orders.emit([]model.Order{order(5, true)})

	require.Len(t, got[enum.CollectionOrders], 2)
	var latest []model.Order
	require.NoError(t, json.Unmarshal(got[enum.CollectionOrders][1], &latest))
	require.Len(t, latest, 1)
	assert.Equal(t, int64(5), latest[0].ID)
}

func TestSet_SnapshotJSON(t *testing.T) {
	set, _, _ := newFakeSet()
	require.NoError(t, set.Start(context.Background()))

	raw, err := set.SnapshotJSON(enum.CollectionTables)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"number":"1"}]`, string(raw))

	_, err = set.SnapshotJSON("menus")
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
}
