package payment

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// ── Cash on Delivery Adapter ──────────────────────────────────────────────────
// A one-time delivery code is issued at checkout and handed over by the
// customer on delivery. The generic verify path stays PENDING until the
// courier confirms the code through ConfirmPayment.

const deliveryCodeDigits = 6

type codGateway struct {
	codes   CodeStore
	codeTTL time.Duration
	now     func() time.Time
}

// NewCODGateway returns the cash-on-delivery gateway. It also implements
// DeliveryConfirmer and InstructionProvider.
func NewCODGateway(codes CodeStore, codeTTL time.Duration) Gateway {
	return &codGateway{codes: codes, codeTTL: codeTTL, now: time.Now}
}

func (g *codGateway) Name() string { return MethodCOD }

func (g *codGateway) InitializePayment(ctx context.Context, amount decimal.Decimal, currency string, meta Metadata) (*InitResponse, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	code, err := newDeliveryCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash delivery code: %w", err)
	}

	txID := newTransactionID("COD")
	rec := CodeRecord{Hash: string(hash), Amount: amount, Currency: currency}
	if err := g.codes.Save(ctx, txID, rec, g.codeTTL); err != nil {
		return nil, err
	}
	log.Printf("[payment] cash on delivery initialized: %s", txID)

	return &InitResponse{
		TransactionID: txID,
		Status:        StatusPending,
		DeliveryCode:  code,
		RawResponse: rawJSON(map[string]any{
			"transaction_id": txID,
			"amount":         amount,
			"currency":       currency,
			"method":         "cash_on_delivery",
			"order_id":       meta.OrderID,
			"expires_at":     g.now().Add(g.codeTTL).UTC(),
			"confirmed_by":   "Delivery confirmation code",
		}),
	}, nil
}

func (g *codGateway) VerifyPayment(ctx context.Context, transactionID string) (*GatewayStatus, error) {
	rec, err := g.codes.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	st := &GatewayStatus{
		TransactionID: transactionID,
		Status:        StatusPending,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		RawResponse:   rawJSON(map[string]string{"message": "COD payment will be verified upon delivery"}),
	}
	if rec.ConfirmedAt != nil {
		st.Status = StatusCompleted
		st.PaidAt = rec.ConfirmedAt
		st.RawResponse = rawJSON(map[string]any{"message": "Payment collected on delivery", "confirmed_at": rec.ConfirmedAt})
	}
	return st, nil
}

// ConfirmPayment completes the payment when deliveryCode matches the issued code.
// Confirming twice with the right code reports the original confirmation.
func (g *codGateway) ConfirmPayment(ctx context.Context, transactionID, deliveryCode string) (*GatewayStatus, error) {
	rec, err := g.codes.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.Hash), []byte(deliveryCode)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDeliveryCode, transactionID)
	}
	if rec.ConfirmedAt == nil {
		if _, err := g.codes.MarkConfirmed(ctx, transactionID, g.now()); err != nil {
			return nil, err
		}
	}
	return g.VerifyPayment(ctx, transactionID)
}

func (g *codGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (*RefundResponse, error) {
	refund := decimal.Zero
	if amount != nil {
		refund = *amount
	}
	refundID := newTransactionID("COD-REF")
	log.Printf("[payment] cash on delivery refund initiated: %s for %s", refundID, transactionID)
	return &RefundResponse{
		TransactionID: transactionID,
		RefundID:      refundID,
		Status:        "PENDING",
		Amount:        refund,
		RawResponse: rawJSON(map[string]string{
			"message":     "COD refund requires manual processing",
			"instruction": "Process refund via bank transfer or cash",
		}),
	}, nil
}

func (g *codGateway) GetPaymentLink(ctx context.Context, transactionID string) (string, error) {
	return "", nil
}

func (g *codGateway) Instructions(ctx context.Context, transactionID string) (*Instructions, error) {
	at, err := issuedAt(transactionID)
	if err != nil {
		return nil, err
	}
	return &Instructions{
		Lines: []string{
			"Pay when your order is delivered",
			"Payment can be made in cash or via mobile payment",
			"Please have the exact amount ready if possible",
			"The delivery person will provide a receipt",
			"Provide the delivery confirmation code upon payment",
		},
		ExpiresAt: at.Add(g.codeTTL),
	}, nil
}

func newDeliveryCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate delivery code: %w", err)
	}
	return fmt.Sprintf("%0*d", deliveryCodeDigits, n.Int64()), nil
}
