package notification

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects how a job is rendered and who receives it.
type Kind string

const (
	KindCustomer Kind = "customer-order"
	KindVendor   Kind = "vendor-order"
	KindAdmin    Kind = "admin-order"
)

var (
	ErrUnknownKind = errors.New("notification: unknown job kind")
	ErrNoRecipient = errors.New("notification: recipient has no email address")
)

// LineItem is one order line as shown in an email.
type LineItem struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	VendorName string          `json:"vendor_name,omitempty"`
}

// Payload is everything a template needs; jobs never reference live rows.
type Payload struct {
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	To             string          `json:"to"`
	CustomerName   string          `json:"customer_name"`
	CustomerEmail  string          `json:"customer_email"`
	VendorName     string          `json:"vendor_name,omitempty"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Items          []LineItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	OrderDate      time.Time       `json:"order_date"`
}

// Job is one queued email.
type Job struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Payload     Payload    `json:"payload"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	LastError   string     `json:"last_error,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
