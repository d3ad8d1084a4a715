package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*service, *memStore, *recordingListener) {
	t.Helper()
	store := newMemStore()
	listener := &recordingListener{}
	svc := NewService(store, store, listener).(*service)
	return svc, store, listener
}

func TestCreateOrder_FromCart(t *testing.T) {
	svc, store, listener := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	vendorA, vendorB := uuid.New(), uuid.New()
	store.addToCart(userID, "10.00", 2, vendorA, "mug")
	store.addToCart(userID, "5.00", 1, vendorB, "card")

	o, err := svc.CreateOrder(ctx, userID.String(), "leave at door")
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(mustDecimal("25.00")), "subtotal %s", o.Subtotal)
	assert.True(t, o.Total.Equal(o.Subtotal))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 1, o.Version)
	assert.Equal(t, "leave at door", o.Notes)
	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].LineTotal.Equal(mustDecimal("20")))
	assert.Equal(t, vendorA, o.Items[0].VendorID)
	assert.Equal(t, "mug", o.Items[0].ProductName)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))

	items, err := store.GetCartItems(ctx, userID.String())
	require.NoError(t, err)
	assert.Empty(t, items, "cart must be cleared with the order")

	stored, err := store.GetOrderByID(ctx, o.ID.String())
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, stored.OrderNumber)

	events := listener.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, Status(""), events[0].previous)
	assert.Equal(t, StatusPending, events[0].order.Status)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc, store, listener := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), uuid.NewString(), "")

	assert.ErrorIs(t, err, ErrEmptyCart)
	_, total := store.sorted()
	assert.Zero(t, total)
	assert.Empty(t, listener.recorded())
}

func TestCreateOrder_CartChangedRollsBack(t *testing.T) {
	svc, store, listener := newTestService(t)
	userID := uuid.New()
	store.addToCart(userID, "3.50", 1, uuid.New(), "pen")
	store.mutateCartBeforeCommit = true

	_, err := svc.CreateOrder(context.Background(), userID.String(), "")

	assert.ErrorIs(t, err, ErrCartChanged)
	_, total := store.sorted()
	assert.Zero(t, total)
	items, _ := store.GetCartItems(context.Background(), userID.String())
	assert.Len(t, items, 1)
	assert.Empty(t, listener.recorded())
}

func TestCreateOrder_PersistFailure(t *testing.T) {
	svc, store, listener := newTestService(t)
	userID := uuid.New()
	store.addToCart(userID, "1.00", 1, uuid.New(), "pin")
	store.createErr = errors.New("connection reset")

	_, err := svc.CreateOrder(context.Background(), userID.String(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist order")
	assert.Empty(t, listener.recorded())
}

func TestCreateOrder_NumbersAreUnique(t *testing.T) {
	const n = 200
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			numbers <- generateOrderNumber()
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate order number %s", num)
		seen[num] = true
	}
}

func seedOrder(store *memStore, status Status) *Order {
	o := &Order{
		ID:          uuid.New(),
		OrderNumber: generateOrderNumber(),
		UserID:      uuid.New(),
		Status:      status,
		Subtotal:    mustDecimal("12.00"),
		Total:       mustDecimal("12.00"),
		Version:     1,
		Items: []*Item{{
			ID: uuid.New(), ProductID: uuid.New(), VendorID: uuid.New(),
			ProductName: "tote", SKU: "SKU-tote", UnitPrice: mustDecimal("12.00"),
			Quantity: 1, LineTotal: mustDecimal("12.00"),
		}},
	}
	store.put(o)
	return o
}

func TestUpdateStatus_Confirm(t *testing.T) {
	svc, store, listener := newTestService(t)
	o := seedOrder(store, StatusPending)

	updated, err := svc.UpdateStatus(context.Background(), o.ID.String(), StatusConfirmed)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Equal(t, 2, updated.Version)
	events := listener.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, StatusPending, events[0].previous)
	assert.Equal(t, StatusConfirmed, events[0].order.Status)
}

func TestUpdateStatus_PendingToShippedRejected(t *testing.T) {
	svc, store, listener := newTestService(t)
	o := seedOrder(store, StatusPending)

	_, err := svc.UpdateStatus(context.Background(), o.ID.String(), StatusShipped)

	require.ErrorIs(t, err, ErrInvalidTransition)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusPending, te.From)
	assert.Equal(t, StatusShipped, te.To)

	stored, _ := store.GetOrderByID(context.Background(), o.ID.String())
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, listener.recorded())
}

func TestUpdateStatus_NoOpNeverMutates(t *testing.T) {
	for _, status := range Statuses() {
		t.Run(string(status), func(t *testing.T) {
			svc, store, listener := newTestService(t)
			o := seedOrder(store, status)

			_, err := svc.UpdateStatus(context.Background(), o.ID.String(), status)

			assert.ErrorIs(t, err, ErrNoOpTransition)
			stored, _ := store.GetOrderByID(context.Background(), o.ID.String())
			assert.Equal(t, 1, stored.Version)
			assert.Empty(t, listener.recorded())
		})
	}
}

func TestUpdateStatus_FollowsTransitionTable(t *testing.T) {
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if from == to {
				continue
			}
			svc, store, _ := newTestService(t)
			o := seedOrder(store, from)

			_, err := svc.UpdateStatus(context.Background(), o.ID.String(), to)

			if CanTransition(from, to) {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestUpdateStatus_NotFoundAndInvalidStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateStatus(context.Background(), uuid.NewString(), StatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.UpdateStatus(context.Background(), uuid.NewString(), Status("LOST"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_ConcurrentTransitionsSerialize(t *testing.T) {
	svc, store, listener := newTestService(t)
	o := seedOrder(store, StatusPending)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStatus(context.Background(), o.ID.String(), StatusConfirmed)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrNoOpTransition),
			"unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, listener.recorded(), 1)

	stored, _ := store.GetOrderByID(context.Background(), o.ID.String())
	assert.Equal(t, 2, stored.Version)
}

func TestListOrders_Pagination(t *testing.T) {
	svc, store, _ := newTestService(t)
	for i := 0; i < 7; i++ {
		seedOrder(store, StatusPending)
	}

	page, err := svc.ListOrders(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, Meta{Total: 7, Page: 2, Limit: 3, TotalPages: 3}, page.Meta)

	page, err = svc.ListOrders(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, defaultPageLimit, page.Meta.Limit)

	page, err = svc.ListOrders(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxPageLimit, page.Meta.Limit)
}
