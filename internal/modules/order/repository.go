package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for orders.
type Repository interface {
	// CreateOrder persists the order and its items and deletes the claimed
	// cart rows in one transaction. ErrCartChanged if any claim no longer
	// matches the cart.
	CreateOrder(ctx context.Context, o *Order, claims []CartClaim) error

	// GetOrderByID retrieves an order with its items by UUID.
	GetOrderByID(ctx context.Context, id string) (*Order, error)

	// GetOrderByNumber retrieves an order by its human-readable order number.
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// ListOrdersByUser returns all orders placed by a user, newest first.
	ListOrdersByUser(ctx context.Context, userID string) ([]*Order, error)

	// ListOrders returns one page of all orders, newest first, and the total count.
	ListOrders(ctx context.Context, limit, offset int) ([]*Order, int, error)

	// UpdateStatus sets status only if the stored version still equals
	// expectedVersion, bumping the version. ErrConcurrentUpdate otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status Status, at time.Time) error
}
