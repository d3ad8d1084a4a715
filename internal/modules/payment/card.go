package payment

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// ── Card Processor Adapter ────────────────────────────────────────────────────
// Hosted checkout sessions. In production, replace the sandbox ledger with the
// processor's checkout-session API.

type cardGateway struct {
	secretKey string
	baseURL   string
	sandbox   bool
	ledger    *sandboxLedger
}

// NewCardGateway returns the card adapter. With sandbox set, verification
// settles pending sessions as if the customer had paid; without it a
// session stays PENDING until the processor reports otherwise.
func NewCardGateway(secretKey, baseURL string, sandbox bool) Gateway {
	return &cardGateway{secretKey: secretKey, baseURL: strings.TrimRight(baseURL, "/"), sandbox: sandbox, ledger: newSandboxLedger()}
}

func (g *cardGateway) Name() string { return MethodCard }

func (g *cardGateway) InitializePayment(ctx context.Context, amount decimal.Decimal, currency string, meta Metadata) (*InitResponse, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}

	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// POST /v1/checkout/sessions
	//   Authorization: Bearer <secret key>
	//   Body: { mode: "payment", line_items: [{ price_data: { currency,
	//           unit_amount: amount in minor units }, quantity: 1 }],
	//           success_url, cancel_url, metadata: { order_id, order_number } }
	// Store session.id as transaction_id and session.url as the redirect.
	// ──────────────────────────────────────────────────────────────────────────

	txID := newTransactionID("CS")
	link := g.baseURL + "/pay/" + txID
	g.ledger.open(txID, amount, currency, link)
	return &InitResponse{
		TransactionID: txID,
		Status:        StatusPending,
		RedirectURL:   link,
		RawResponse: rawJSON(map[string]any{
			"id": txID, "url": link, "amount_total": amount, "currency": strings.ToLower(currency),
			"metadata": meta, "success_url": meta.ReturnURL, "cancel_url": meta.CancelURL,
		}),
	}, nil
}

func (g *cardGateway) VerifyPayment(ctx context.Context, transactionID string) (*GatewayStatus, error) {
	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// GET /v1/checkout/sessions/{id}
	// Map payment_status: paid -> COMPLETED, unpaid -> PENDING, expired -> FAILED
	// ──────────────────────────────────────────────────────────────────────────

	if g.sandbox {
		// Sandbox stub: simulate a paid session
		return g.ledger.capture(transactionID)
	}
	return g.ledger.lookup(transactionID)
}

func (g *cardGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (*RefundResponse, error) {
	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// POST /v1/refunds  { payment_intent, amount? }
	// ──────────────────────────────────────────────────────────────────────────

	refunded, err := g.ledger.refund(transactionID, amount)
	if err != nil {
		return nil, err
	}
	refundID := newTransactionID("RE")
	return &RefundResponse{
		TransactionID: transactionID,
		RefundID:      refundID,
		Status:        "SUCCEEDED",
		Amount:        refunded,
		RawResponse:   rawJSON(map[string]any{"id": refundID, "status": "succeeded", "amount": refunded}),
	}, nil
}

func (g *cardGateway) GetPaymentLink(ctx context.Context, transactionID string) (string, error) {
	return g.ledger.link(transactionID)
}
