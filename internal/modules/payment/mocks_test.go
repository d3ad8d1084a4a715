package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/config"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
)

// ── in-memory Repository ─────────────────────────────────────────────────────

type memRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*Payment
	writes   int
}

func newMemRepo() *memRepo { return &memRepo{payments: map[uuid.UUID]*Payment{}} }

func (m *memRepo) CreatePayment(ctx context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.OrderID == p.OrderID {
			return fmt.Errorf("%w: order %s", ErrPaymentExists, p.OrderID)
		}
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	m.payments[p.ID] = &cp
	m.writes++
	return nil
}

func (m *memRepo) GetPaymentByTransactionID(ctx context.Context, txID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID == txID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *memRepo) GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID.String() == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *memRepo) UpdatePayment(ctx context.Context, id uuid.UUID, status Status, paidAt *time.Time, raw json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return ErrPaymentNotFound
	}
	p.Status, p.PaidAt = status, paidAt
	if len(raw) > 0 {
		p.RawResponse = raw
	}
	m.writes++
	return nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

// ── fake order engine ────────────────────────────────────────────────────────

type fakeOrders struct {
	mu          sync.Mutex
	orders      map[string]*order.Order
	transitions int
}

func newFakeOrders() *fakeOrders { return &fakeOrders{orders: map[string]*order.Order{}} }

func (f *fakeOrders) add(status order.Status, total string) *order.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := &order.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-" + uuid.NewString()[:8],
		UserID:      uuid.New(),
		Status:      status,
		Subtotal:    decimal.RequireFromString(total),
		Total:       decimal.RequireFromString(total),
		Version:     1,
	}
	f.orders[o.ID.String()] = o
	return o.Clone()
}

func (f *fakeOrders) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	switch {
	case o.Status == status:
		return nil, fmt.Errorf("%w: %s", order.ErrNoOpTransition, status)
	case !order.CanTransition(o.Status, status):
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, status)
	}
	o.Status = status
	o.Version++
	f.transitions++
	return o.Clone(), nil
}

func (f *fakeOrders) status(id uuid.UUID) order.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id.String()].Status
}

func (f *fakeOrders) applied() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transitions
}

// ── stub gateway ─────────────────────────────────────────────────────────────

// stubGateway counts calls and can be made to fail or hang.
type stubGateway struct {
	name    string
	calls   atomic.Int32
	err     error
	hang    bool
	reports Status
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) call(ctx context.Context) error {
	g.calls.Add(1)
	if g.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return g.err
}

func (g *stubGateway) InitializePayment(ctx context.Context, amount decimal.Decimal, currency string, meta Metadata) (*InitResponse, error) {
	if err := g.call(ctx); err != nil {
		return nil, err
	}
	return &InitResponse{TransactionID: newTransactionID("STUB"), Status: StatusPending}, nil
}

func (g *stubGateway) VerifyPayment(ctx context.Context, txID string) (*GatewayStatus, error) {
	if err := g.call(ctx); err != nil {
		return nil, err
	}
	status := StatusCompleted
	if g.reports != "" {
		status = g.reports
	}
	return &GatewayStatus{TransactionID: txID, Status: status}, nil
}

func (g *stubGateway) RefundPayment(ctx context.Context, txID string, amount *decimal.Decimal) (*RefundResponse, error) {
	if err := g.call(ctx); err != nil {
		return nil, err
	}
	return &RefundResponse{TransactionID: txID, RefundID: "R-1", Status: "SUCCEEDED", Amount: *amount}, nil
}

func (g *stubGateway) GetPaymentLink(ctx context.Context, txID string) (string, error) {
	return "", g.call(ctx)
}

// ── fixtures ─────────────────────────────────────────────────────────────────

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		DefaultCurrency: "usd",
		GatewayTimeout:  time.Second,
		BreakerFailures: 5,
		BreakerCooldown: time.Minute,
		Sandbox:         true,
		Card:            config.CardGatewayConfig{BaseURL: "https://checkout.test"},
		Wallet:          config.WalletGatewayConfig{CheckoutURL: "https://wallet.test/checkout"},
		BankTransfer:    config.BankTransferConfig{BankName: "Test Bank", AccountNumber: "42", Deadline: 72 * time.Hour},
		COD:             config.CODConfig{CodeTTL: 24 * time.Hour},
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

type testEnv struct {
	svc    *service
	repo   *memRepo
	orders *fakeOrders
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, cfg config.PaymentConfig, extra ...Gateway) *testEnv {
	t.Helper()
	mr, rdb := newTestRedis(t)
	gateways := append([]Gateway{
		NewCardGateway(cfg.Card.SecretKey, cfg.Card.BaseURL, cfg.Sandbox),
		NewWalletGateway(cfg.Wallet.ClientID, cfg.Wallet.ClientSecret, cfg.Wallet.CheckoutURL, cfg.Sandbox),
		NewBankTransferGateway(cfg.BankTransfer),
		NewCODGateway(NewRedisCodeStore(rdb), cfg.COD.CodeTTL),
	}, extra...)
	repo, orders := newMemRepo(), newFakeOrders()
	svc := NewService(repo, orders, NewRegistry(gateways...), cfg).(*service)
	return &testEnv{svc: svc, repo: repo, orders: orders, mr: mr}
}
