package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/brizuela-go/takeorderhd/internal/enum"
)

// Notifier is a registry of change callbacks keyed by collection. Store
// backends embed it and call Notify after a write or when their change
// feed reports one.
type Notifier struct {
	mu       sync.Mutex
	watchers map[enum.Collection]map[uint64]func()
	next     uint64
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{watchers: make(map[enum.Collection]map[uint64]func())}
}

// Watch registers onChange for collection c until the returned
// Unsubscribe is called or ctx is done.
func (n *Notifier) Watch(ctx context.Context, c enum.Collection, onChange func()) (Unsubscribe, error) {
	if _, ok := enum.ParseCollection(string(c)); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	n.mu.Lock()
	n.next++
	id := n.next
	if n.watchers[c] == nil {
		n.watchers[c] = make(map[uint64]func())
	}
	n.watchers[c][id] = onChange
	n.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.watchers[c], id)
			n.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}, nil
}

// Notify runs every callback registered for c on the calling goroutine.
// Callbacks run outside the registry lock and may call Watch.
func (n *Notifier) Notify(c enum.Collection) {
	n.mu.Lock()
	callbacks := make([]func(), 0, len(n.watchers[c]))
	for _, fn := range n.watchers[c] {
		callbacks = append(callbacks, fn)
	}
	n.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// NotifyAll notifies every collection, used to resync after a change feed
// reconnects.
func (n *Notifier) NotifyAll() {
	for _, c := range enum.Collections {
		n.Notify(c)
	}
}

// Watchers returns the number of callbacks registered for c.
func (n *Notifier) Watchers(c enum.Collection) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watchers[c])
}
