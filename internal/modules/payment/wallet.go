package payment

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
)

// ── Wallet Redirect Adapter ───────────────────────────────────────────────────
// PayPal-style orders: the customer approves on the wallet's site and the
// payment is captured on verification.

type walletGateway struct {
	clientID     string
	clientSecret string
	checkoutURL  string
	sandbox      bool
	ledger       *sandboxLedger
}

// NewWalletGateway returns the wallet adapter; sandbox has the same meaning
// as for NewCardGateway.
func NewWalletGateway(clientID, clientSecret, checkoutURL string, sandbox bool) Gateway {
	return &walletGateway{clientID: clientID, clientSecret: clientSecret, checkoutURL: checkoutURL, sandbox: sandbox, ledger: newSandboxLedger()}
}

func (g *walletGateway) Name() string { return MethodWallet }

func (g *walletGateway) InitializePayment(ctx context.Context, amount decimal.Decimal, currency string, meta Metadata) (*InitResponse, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}

	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// 1. POST /v1/oauth2/token (client credentials grant)
	// 2. POST /v2/checkout/orders
	//    Body: { intent: "CAPTURE", purchase_units: [{ reference_id: order_number,
	//            amount: { currency_code, value } }],
	//            application_context: { return_url, cancel_url } }
	// 3. Store order.id as transaction_id and the "approve" link as the redirect.
	// ──────────────────────────────────────────────────────────────────────────

	txID := newTransactionID("PP")
	link := g.checkoutURL + "?token=" + url.QueryEscape(txID)
	g.ledger.open(txID, amount, currency, link)
	return &InitResponse{
		TransactionID: txID,
		Status:        StatusPending,
		RedirectURL:   link,
		RawResponse: rawJSON(map[string]any{
			"id": txID, "status": "CREATED", "intent": "CAPTURE",
			"purchase_units": []map[string]any{{
				"reference_id": meta.OrderNumber,
				"amount":       map[string]any{"currency_code": currency, "value": amount.StringFixed(2)},
			}},
			"links": []map[string]string{{"rel": "approve", "href": link}},
		}),
	}, nil
}

func (g *walletGateway) VerifyPayment(ctx context.Context, transactionID string) (*GatewayStatus, error) {
	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// POST /v2/checkout/orders/{id}/capture
	// Map status: COMPLETED -> COMPLETED, APPROVED/CREATED -> PENDING, VOIDED -> FAILED
	// ──────────────────────────────────────────────────────────────────────────

	if g.sandbox {
		// Sandbox stub: simulate an approved and captured order
		return g.ledger.capture(transactionID)
	}
	return g.ledger.lookup(transactionID)
}

func (g *walletGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (*RefundResponse, error) {
	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// POST /v2/payments/captures/{capture_id}/refund  { amount? }
	// ──────────────────────────────────────────────────────────────────────────

	refunded, err := g.ledger.refund(transactionID, amount)
	if err != nil {
		return nil, err
	}
	refundID := newTransactionID("PPR")
	return &RefundResponse{
		TransactionID: transactionID,
		RefundID:      refundID,
		Status:        "SUCCEEDED",
		Amount:        refunded,
		RawResponse:   rawJSON(map[string]any{"id": refundID, "status": "COMPLETED", "amount": refunded}),
	}, nil
}

func (g *walletGateway) GetPaymentLink(ctx context.Context, transactionID string) (string, error) {
	return g.ledger.link(transactionID)
}
