package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/config"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
)

// Service is the payment orchestrator. It owns the local payment records and
// is the only path from a gateway result to an order status change.
type Service interface {
	// Methods lists the registered payment methods.
	Methods() []MethodInfo

	// CreatePayment opens a gateway transaction for an order and records it as PENDING.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)

	// VerifyPayment syncs the local record with the gateway and confirms the
	// order when the payment completed. Safe to call repeatedly.
	VerifyPayment(ctx context.Context, transactionID, method string) (*VerifyResult, error)

	// RefundPayment refunds a completed payment and marks it REFUNDED.
	RefundPayment(ctx context.Context, transactionID, method string, amount *decimal.Decimal) (*RefundResult, error)

	// ConfirmDelivery completes a cash-on-delivery payment with the delivery code.
	ConfirmDelivery(ctx context.Context, transactionID, deliveryCode string) (*VerifyResult, error)

	GetPayment(ctx context.Context, transactionID string) (*Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID string) (*Payment, error)
	GetPaymentLink(ctx context.Context, transactionID string) (string, error)
	GetInstructions(ctx context.Context, transactionID string) (*Instructions, error)
}

// Orders is the slice of the order engine the orchestrator depends on.
type Orders interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
}

type service struct {
	repo            Repository
	orders          Orders
	gateways        Registry
	guard           *guard
	defaultCurrency string
	now             func() time.Time
}

// NewService creates the payment orchestrator.
func NewService(repo Repository, orders Orders, gateways Registry, cfg config.PaymentConfig) Service {
	currency := strings.ToUpper(cfg.DefaultCurrency)
	if currency == "" {
		currency = "USD"
	}
	return &service{
		repo:            repo,
		orders:          orders,
		gateways:        gateways,
		guard:           newGuard(cfg.GatewayTimeout, cfg.BreakerFailures, cfg.BreakerCooldown),
		defaultCurrency: currency,
		now:             time.Now,
	}
}

func (s *service) Methods() []MethodInfo { return s.gateways.Methods() }

func (s *service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	gw, err := s.gateways.Resolve(req.Method)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotPayable, o.OrderNumber, o.Status)
	}

	switch _, err := s.repo.GetPaymentByOrderID(ctx, o.ID.String()); {
	case err == nil:
		return nil, fmt.Errorf("%w: order %s", ErrPaymentExists, o.OrderNumber)
	case !errors.Is(err, ErrPaymentNotFound):
		return nil, fmt.Errorf("load payment: %w", err)
	}

	amount := o.Total
	if req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	meta := Metadata{
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		Description: "Order " + o.OrderNumber,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	}
	resp, err := invoke(ctx, s.guard, gw.Name(), "initialize", func(ctx context.Context) (*InitResponse, error) {
		return gw.InitializePayment(ctx, amount, currency, meta)
	})
	if err != nil {
		return nil, err
	}

	p := &Payment{
		ID:            uuid.New(),
		OrderID:       o.ID,
		Method:        gw.Name(),
		Amount:        amount,
		Currency:      currency,
		TransactionID: resp.TransactionID,
		Status:        StatusPending,
		RawResponse:   resp.RawResponse,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("[payment] %s payment %s created for order %s", p.Method, p.TransactionID, o.OrderNumber)
	return &CreatePaymentResult{PaymentID: p.ID, InitResponse: resp}, nil
}

func (s *service) VerifyPayment(ctx context.Context, transactionID, method string) (*VerifyResult, error) {
	p, gw, err := s.load(ctx, transactionID, method)
	if err != nil {
		return nil, err
	}
	st, err := invoke(ctx, s.guard, gw.Name(), "verify", func(ctx context.Context) (*GatewayStatus, error) {
		return gw.VerifyPayment(ctx, transactionID)
	})
	if err != nil {
		return nil, err
	}
	return s.sync(ctx, p, st)
}

func (s *service) ConfirmDelivery(ctx context.Context, transactionID, deliveryCode string) (*VerifyResult, error) {
	p, gw, err := s.load(ctx, transactionID, "")
	if err != nil {
		return nil, err
	}
	confirmer, ok := gw.(DeliveryConfirmer)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot confirm delivery", ErrUnsupportedOperation, gw.Name())
	}
	if p.Status != StatusPending && p.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: payment is %s", ErrInvalidPaymentState, p.Status)
	}
	st, err := invoke(ctx, s.guard, gw.Name(), "confirm", func(ctx context.Context) (*GatewayStatus, error) {
		return confirmer.ConfirmPayment(ctx, transactionID, deliveryCode)
	})
	if err != nil {
		return nil, err
	}
	return s.sync(ctx, p, st)
}

func (s *service) RefundPayment(ctx context.Context, transactionID, method string, amount *decimal.Decimal) (*RefundResult, error) {
	p, gw, err := s.load(ctx, transactionID, method)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: only COMPLETED payments can be refunded, payment is %s", ErrInvalidPaymentState, p.Status)
	}
	refund := p.Amount
	if amount != nil {
		refund = *amount
	}
	if !refund.IsPositive() || refund.GreaterThan(p.Amount) {
		return nil, fmt.Errorf("%w: refund %s of %s", ErrInvalidAmount, refund, p.Amount)
	}

	rr, err := invoke(ctx, s.guard, gw.Name(), "refund", func(ctx context.Context) (*RefundResponse, error) {
		return gw.RefundPayment(ctx, transactionID, &refund)
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePayment(ctx, p.ID, StatusRefunded, p.PaidAt, rr.RawResponse); err != nil {
		return nil, fmt.Errorf("mark payment refunded: %w", err)
	}
	p.Status = StatusRefunded
	if len(rr.RawResponse) > 0 {
		p.RawResponse = rr.RawResponse
	}
	log.Printf("[payment] refund %s of %s %s for %s", rr.RefundID, rr.Amount, p.Currency, transactionID)
	return &RefundResult{Payment: p, Refund: rr}, nil
}

func (s *service) GetPayment(ctx context.Context, transactionID string) (*Payment, error) {
	return s.repo.GetPaymentByTransactionID(ctx, transactionID)
}

func (s *service) GetPaymentByOrder(ctx context.Context, orderID string) (*Payment, error) {
	return s.repo.GetPaymentByOrderID(ctx, orderID)
}

func (s *service) GetPaymentLink(ctx context.Context, transactionID string) (string, error) {
	_, gw, err := s.load(ctx, transactionID, "")
	if err != nil {
		return "", err
	}
	return invoke(ctx, s.guard, gw.Name(), "link", func(ctx context.Context) (string, error) {
		return gw.GetPaymentLink(ctx, transactionID)
	})
}

func (s *service) GetInstructions(ctx context.Context, transactionID string) (*Instructions, error) {
	_, gw, err := s.load(ctx, transactionID, "")
	if err != nil {
		return nil, err
	}
	provider, ok := gw.(InstructionProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no payment instructions", ErrUnsupportedOperation, gw.Name())
	}
	return invoke(ctx, s.guard, gw.Name(), "instructions", func(ctx context.Context) (*Instructions, error) {
		return provider.Instructions(ctx, transactionID)
	})
}

// ── helpers ───────────────────────────────────────────────────────────────────

// load fetches the local record and the gateway it was created with. A
// non-empty method must match the recorded one.
func (s *service) load(ctx context.Context, transactionID, method string) (*Payment, Gateway, error) {
	p, err := s.repo.GetPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if method != "" && !strings.EqualFold(strings.TrimSpace(method), p.Method) {
		return nil, nil, fmt.Errorf("%w: %s was paid with %s", ErrMethodMismatch, transactionID, p.Method)
	}
	gw, err := s.gateways.Resolve(p.Method)
	if err != nil {
		return nil, nil, err
	}
	return p, gw, nil
}

// nextStatus applies a reported status without walking a payment backwards:
// REFUNDED is final and COMPLETED can only become REFUNDED.
func nextStatus(local, reported Status) Status {
	switch local {
	case StatusRefunded:
		return StatusRefunded
	case StatusCompleted:
		if reported == StatusRefunded {
			return StatusRefunded
		}
		return StatusCompleted
	}
	return reported
}

// sync writes the gateway's view onto the local record and, for a completed
// payment, moves the order to CONFIRMED.
func (s *service) sync(ctx context.Context, p *Payment, st *GatewayStatus) (*VerifyResult, error) {
	status := nextStatus(p.Status, st.Status)
	if status != st.Status {
		log.Printf("[payment] %s: keeping %s, gateway reported %s", p.TransactionID, p.Status, st.Status)
	}
	paidAt := p.PaidAt
	if paidAt == nil && st.PaidAt != nil {
		paidAt = st.PaidAt
	}
	if paidAt == nil && status == StatusCompleted {
		at := s.now().UTC()
		paidAt = &at
	}
	if err := s.repo.UpdatePayment(ctx, p.ID, status, paidAt, st.RawResponse); err != nil {
		return nil, fmt.Errorf("sync payment: %w", err)
	}
	p.Status, p.PaidAt = status, paidAt
	if len(st.RawResponse) > 0 {
		p.RawResponse = st.RawResponse
	}

	if status != StatusCompleted {
		return &VerifyResult{Payment: p, OrderTransition: TransitionNone}, nil
	}
	transition, err := s.confirmOrder(ctx, p)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Payment: p, OrderTransition: transition}, nil
}

// confirmOrder applies PENDING -> CONFIRMED. An order that is already
// confirmed, or has moved past CONFIRMED, is left alone.
func (s *service) confirmOrder(ctx context.Context, p *Payment) (OrderTransition, error) {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		_, err = s.orders.UpdateStatus(ctx, p.OrderID.String(), order.StatusConfirmed)
		switch {
		case err == nil:
			log.Printf("[payment] order %s confirmed by payment %s", p.OrderID, p.TransactionID)
			return TransitionApplied, nil
		case errors.Is(err, order.ErrNoOpTransition):
			return TransitionAlreadyConfirmed, nil
		case errors.Is(err, order.ErrInvalidTransition):
			log.Printf("[payment] payment %s completed but order %s not confirmed: %v", p.TransactionID, p.OrderID, err)
			return TransitionSkipped, nil
		case errors.Is(err, order.ErrConcurrentUpdate):
			continue
		default:
			return "", fmt.Errorf("confirm order %s: %w", p.OrderID, err)
		}
	}
	return "", fmt.Errorf("confirm order %s: %w", p.OrderID, err)
}
