package payment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Gateway is the provider-agnostic interface every payment method implements.
// To add a new provider, implement this interface and register it by name.
type Gateway interface {
	// Name is the method name the gateway is registered under.
	Name() string
	// InitializePayment opens a transaction with the provider.
	InitializePayment(ctx context.Context, amount decimal.Decimal, currency string, meta Metadata) (*InitResponse, error)
	// VerifyPayment queries the provider for the current status of a transaction.
	VerifyPayment(ctx context.Context, transactionID string) (*GatewayStatus, error)
	// RefundPayment refunds amount, or the remaining balance when amount is nil.
	RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (*RefundResponse, error)
	// GetPaymentLink returns the hosted checkout URL, or "" when the method has none.
	GetPaymentLink(ctx context.Context, transactionID string) (string, error)
}

// DeliveryConfirmer is implemented by methods that complete on physical delivery.
type DeliveryConfirmer interface {
	ConfirmPayment(ctx context.Context, transactionID, deliveryCode string) (*GatewayStatus, error)
}

// InstructionProvider is implemented by offline methods that need customer action.
type InstructionProvider interface {
	Instructions(ctx context.Context, transactionID string) (*Instructions, error)
}

// ── Registry ──────────────────────────────────────────────────────────────────

var methodLabels = map[string]string{
	MethodCard:         "Credit / Debit Card",
	MethodWallet:       "PayPal",
	MethodBankTransfer: "Bank Transfer",
	MethodCOD:          "Cash on Delivery",
}

// Registry maps method names to their Gateway implementations. It is
// populated once at startup and read-only afterwards.
type Registry map[string]Gateway

// NewRegistry registers each gateway under its Name.
func NewRegistry(gateways ...Gateway) Registry {
	r := make(Registry, len(gateways))
	for _, g := range gateways {
		r[g.Name()] = g
	}
	return r
}

// Resolve returns the gateway registered under method.
func (r Registry) Resolve(method string) (Gateway, error) {
	g, ok := r[strings.ToLower(strings.TrimSpace(method))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, method)
	}
	return g, nil
}

// Methods lists the registered methods sorted by name.
func (r Registry) Methods() []MethodInfo {
	out := make([]MethodInfo, 0, len(r))
	for name := range r {
		label, ok := methodLabels[name]
		if !ok {
			label = name
		}
		out = append(out, MethodInfo{Name: name, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// newTransactionID returns "<prefix>-<ULID>". ulid.Make draws from a
// goroutine-safe monotonic source, so ids stay unique under concurrency.
func newTransactionID(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	return nil
}
