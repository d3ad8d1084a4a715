package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for payment records.
type Repository interface {
	// CreatePayment fails with ErrPaymentExists when the order already has one.
	CreatePayment(ctx context.Context, p *Payment) error
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error)
	// UpdatePayment synchronizes the gateway-reported fields.
	UpdatePayment(ctx context.Context, id uuid.UUID, status Status, paidAt *time.Time, raw json.RawMessage) error
}
