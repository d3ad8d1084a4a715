package payment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Registered method names.
const (
	MethodCard         = "card"
	MethodWallet       = "wallet"
	MethodBankTransfer = "bank_transfer"
	MethodCOD          = "cod"
)

// Status is the lifecycle of a payment, both locally and as reported by a gateway.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// Payment is the local record of the single payment attached to an order.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id"`
	Status        Status          `json:"status"`
	RawResponse   json.RawMessage `json:"raw_response,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ── Gateway contract types ────────────────────────────────────────────────────

// Metadata is passed through to the gateway on initialization.
type Metadata struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Description string `json:"description,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

// InitResponse is what a gateway returns after initializing a payment.
type InitResponse struct {
	TransactionID string          `json:"transaction_id"`
	Status        Status          `json:"status"`
	RedirectURL   string          `json:"redirect_url,omitempty"`
	// DeliveryCode is only set by cash-on-delivery and is never persisted.
	DeliveryCode string          `json:"delivery_code,omitempty"`
	RawResponse  json.RawMessage `json:"raw_response,omitempty"`
}

// GatewayStatus is a gateway's view of a transaction.
type GatewayStatus struct {
	TransactionID string          `json:"transaction_id"`
	Status        Status          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	RawResponse   json.RawMessage `json:"raw_response,omitempty"`
}

// RefundResponse describes a refund request accepted by a gateway.
type RefundResponse struct {
	TransactionID string          `json:"transaction_id"`
	RefundID      string          `json:"refund_id"`
	Status        string          `json:"status"` // SUCCEEDED | PENDING
	Amount        decimal.Decimal `json:"amount"`
	RawResponse   json.RawMessage `json:"raw_response,omitempty"`
}

// Instructions tell the customer how to complete an offline payment.
type Instructions struct {
	Lines     []string          `json:"instructions"`
	Details   map[string]string `json:"details,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// MethodInfo is one entry of the payment method listing.
type MethodInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ── Orchestrator DTOs ─────────────────────────────────────────────────────────

// CreatePaymentRequest is the payload to start a payment for an order.
type CreatePaymentRequest struct {
	OrderID   string           `json:"order_id"`
	Method    string           `json:"method"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`   // defaults to the order total
	Currency  string           `json:"currency,omitempty"` // defaults to payment.default_currency
	ReturnURL string           `json:"return_url,omitempty"`
	CancelURL string           `json:"cancel_url,omitempty"`
}

// CreatePaymentResult is the gateway response plus the local record id.
type CreatePaymentResult struct {
	PaymentID uuid.UUID `json:"payment_id"`
	*InitResponse
}

// OrderTransition reports what a completed payment did to its order.
type OrderTransition string

const (
	TransitionApplied          OrderTransition = "applied"
	TransitionAlreadyConfirmed OrderTransition = "already_confirmed"
	TransitionSkipped          OrderTransition = "skipped"
	TransitionNone             OrderTransition = "none"
)

// VerifyResult is the synchronized payment and the effect on its order.
type VerifyResult struct {
	Payment         *Payment        `json:"payment"`
	OrderTransition OrderTransition `json:"order_transition"`
}

// RefundResult is the refunded payment and the gateway's refund receipt.
type RefundResult struct {
	Payment *Payment        `json:"payment"`
	Refund  *RefundResponse `json:"refund"`
}

type VerifyPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
	Method        string `json:"method,omitempty"`
}

type RefundPaymentRequest struct {
	TransactionID string           `json:"transaction_id"`
	Method        string           `json:"method,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"` // full refund when omitted
}

type ConfirmDeliveryRequest struct {
	TransactionID string `json:"transaction_id"`
	DeliveryCode  string `json:"delivery_code"`
}
