package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/modules/cart"
)

// Service is the order lifecycle engine: order creation from a cart and
// every status change go through it.
type Service interface {
	// CreateOrder snapshots the user's cart into a PENDING order and clears
	// the cart in the same transaction.
	CreateOrder(ctx context.Context, userID, notes string) (*Order, error)

	// GetOrder retrieves a full order with its items by UUID.
	GetOrder(ctx context.Context, id string) (*Order, error)

	// GetOrderByNumber retrieves an order by its human-readable number.
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// ListUserOrders returns every order placed by a user.
	ListUserOrders(ctx context.Context, userID string) ([]*Order, error)

	// ListOrders returns one page of all orders.
	ListOrders(ctx context.Context, page, limit int) (*Page, error)

	// UpdateStatus validates and applies a transition from the current status.
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
}

// StatusListener observes committed status changes. Implementations must
// return quickly; previous is "" for a newly created order.
type StatusListener interface {
	OnStatusChange(ctx context.Context, o *Order, previous Status)
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type service struct {
	repo      Repository
	carts     cart.Reader
	listeners []StatusListener
	now       func() time.Time
}

// NewService creates the order lifecycle engine.
func NewService(repo Repository, carts cart.Reader, listeners ...StatusListener) Service {
	return &service{repo: repo, carts: carts, listeners: listeners, now: time.Now}
}

func (s *service) CreateOrder(ctx context.Context, userID, notes string) (*Order, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	cartItems, err := s.carts.GetCartItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	// ── Snapshot line items ───────────────────────────────────────────────────
	items := make([]*Item, 0, len(cartItems))
	claims := make([]CartClaim, 0, len(cartItems))
	subtotal := decimal.Zero

	for _, ci := range cartItems {
		if ci.Quantity <= 0 {
			return nil, fmt.Errorf("cart item %s has quantity %d", ci.ID, ci.Quantity)
		}
		lineTotal := ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		items = append(items, &Item{
			ID:          uuid.New(),
			ProductID:   ci.ProductID,
			VendorID:    ci.VendorID,
			ProductName: ci.ProductName,
			SKU:         ci.SKU,
			UnitPrice:   ci.UnitPrice,
			Quantity:    ci.Quantity,
			LineTotal:   lineTotal,
		})
		claims = append(claims, CartClaim{ID: ci.ID, Quantity: ci.Quantity})
	}

	o := &Order{
		ID:          uuid.New(),
		OrderNumber: generateOrderNumber(),
		UserID:      uid,
		Status:      StatusPending,
		Subtotal:    subtotal,
		Total:       subtotal,
		Notes:       notes,
		Version:     1,
		Items:       items,
	}
	for _, item := range items {
		item.OrderID = o.ID
	}

	if err := s.repo.CreateOrder(ctx, o, claims); err != nil {
		if errors.Is(err, ErrCartChanged) {
			return nil, err
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	log.Printf("order %s: created for user %s, total %s", o.OrderNumber, o.UserID, o.Total.StringFixed(2))
	s.notify(ctx, o, "")
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *service) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.repo.GetOrderByNumber(ctx, orderNumber)
}

func (s *service) ListUserOrders(ctx context.Context, userID string) ([]*Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

func (s *service) ListOrders(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	orders, total, err := s.repo.ListOrders(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &Page{
		Data: orders,
		Meta: Meta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(o.Status, status); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.UpdateStatus(ctx, o.ID, o.Version, status, now); err != nil {
		return nil, err
	}

	previous := o.Status
	o.Status = status
	o.Version++
	o.UpdatedAt = now

	log.Printf("order %s: status %s -> %s", o.OrderNumber, previous, status)
	s.notify(ctx, o, previous)
	return o, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) notify(ctx context.Context, o *Order, previous Status) {
	for _, l := range s.listeners {
		l.OnStatusChange(ctx, o.Clone(), previous)
	}
}

// generateOrderNumber creates a human-readable order number: ORD-<ULID>.
// ULIDs are monotonic within the process and carry 80 bits of entropy.
func generateOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}
