package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/modules/cart"
)

// memStore is an in-memory Repository and cart.Reader sharing one lock, so
// order creation and cart clearing are atomic like the postgres transaction.
type memStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
	carts  map[string][]cart.Item

	// mutateCartBeforeCommit simulates a cart edit racing checkout.
	mutateCartBeforeCommit bool
	createErr              error
}

func newMemStore() *memStore {
	return &memStore{orders: map[uuid.UUID]*Order{}, carts: map[string][]cart.Item{}}
}

func (m *memStore) addToCart(userID uuid.UUID, price string, qty int, vendorID uuid.UUID, name string) cart.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := cart.Item{
		ID:          uuid.New(),
		ProductID:   uuid.New(),
		VendorID:    vendorID,
		UnitPrice:   mustDecimal(price),
		Quantity:    qty,
		ProductName: name,
		SKU:         "SKU-" + name,
	}
	m.carts[userID.String()] = append(m.carts[userID.String()], item)
	return item
}

func (m *memStore) GetCartItems(ctx context.Context, userID string) ([]cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cart.Item{}, m.carts[userID]...), nil
}

func (m *memStore) CreateOrder(ctx context.Context, o *Order, claims []CartClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	key := o.UserID.String()
	if m.mutateCartBeforeCommit && len(m.carts[key]) > 0 {
		m.carts[key][0].Quantity++
	}

	remaining := append([]cart.Item{}, m.carts[key]...)
	for _, c := range claims {
		idx := -1
		for i, it := range remaining {
			if it.ID == c.ID && it.Quantity == c.Quantity {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrCartChanged
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	m.orders[o.ID] = o.Clone()
	m.carts[key] = remaining
	return nil
}

func (m *memStore) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[uid]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (m *memStore) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNumber == number {
			return o.Clone(), nil
		}
	}
	return nil, ErrOrderNotFound
}

func (m *memStore) ListOrdersByUser(ctx context.Context, userID string) ([]*Order, error) {
	all, _ := m.sorted()
	out := []*Order{}
	for _, o := range all {
		if o.UserID.String() == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListOrders(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	all, total := m.sorted()
	if offset >= len(all) {
		return []*Order{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Version != expectedVersion {
		return ErrConcurrentUpdate
	}
	o.Status = status
	o.Version++
	o.UpdatedAt = at
	return nil
}

// put stores o directly, bypassing the engine.
func (m *memStore) put(o *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o.Clone()
}

func (m *memStore) sorted() ([]*Order, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*Order, 0, len(m.orders))
	for _, o := range m.orders {
		all = append(all, o.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderNumber > all[j].OrderNumber })
	return all, len(all)
}

type statusEvent struct {
	order    *Order
	previous Status
}

type recordingListener struct {
	mu     sync.Mutex
	events []statusEvent
}

func (l *recordingListener) OnStatusChange(ctx context.Context, o *Order, previous Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, statusEvent{order: o, previous: previous})
}

func (l *recordingListener) recorded() []statusEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]statusEvent(nil), l.events...)
}

func mustDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }
