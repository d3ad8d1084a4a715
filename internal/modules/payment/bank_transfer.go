package payment

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/config"
)

// ── Bank Transfer Adapter ─────────────────────────────────────────────────────
// The customer wires the funds using the issued reference. Reconciliation is
// manual, so verification reports PENDING until an operator settles it.

type bankTransferGateway struct {
	cfg config.BankTransferConfig
}

func NewBankTransferGateway(cfg config.BankTransferConfig) Gateway {
	return &bankTransferGateway{cfg: cfg}
}

func (g *bankTransferGateway) Name() string { return MethodBankTransfer }

func (g *bankTransferGateway) InitializePayment(ctx context.Context, amount decimal.Decimal, currency string, meta Metadata) (*InitResponse, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	txID := newTransactionID("BT")
	instr, err := g.Instructions(ctx, txID)
	if err != nil {
		return nil, err
	}
	log.Printf("[payment] bank transfer initialized: %s", txID)
	return &InitResponse{
		TransactionID: txID,
		Status:        StatusPending,
		RawResponse: rawJSON(map[string]any{
			"transaction_id": txID,
			"amount":         amount,
			"currency":       currency,
			"instructions":   instr,
			"metadata":       meta,
		}),
	}, nil
}

func (g *bankTransferGateway) VerifyPayment(ctx context.Context, transactionID string) (*GatewayStatus, error) {
	if _, err := issuedAt(transactionID); err != nil {
		return nil, err
	}
	return &GatewayStatus{
		TransactionID: transactionID,
		Status:        StatusPending,
		RawResponse:   rawJSON(map[string]string{"message": "Bank transfer requires manual verification"}),
	}, nil
}

func (g *bankTransferGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (*RefundResponse, error) {
	refund := decimal.Zero
	if amount != nil {
		refund = *amount
	}
	refundID := newTransactionID("BTR")
	log.Printf("[payment] bank transfer refund requested: %s for %s", refundID, transactionID)
	return &RefundResponse{
		TransactionID: transactionID,
		RefundID:      refundID,
		Status:        "PENDING",
		Amount:        refund,
		RawResponse:   rawJSON(map[string]string{"message": "Bank transfer refund requires manual processing"}),
	}, nil
}

func (g *bankTransferGateway) GetPaymentLink(ctx context.Context, transactionID string) (string, error) {
	return "", nil
}

func (g *bankTransferGateway) Instructions(ctx context.Context, transactionID string) (*Instructions, error) {
	at, err := issuedAt(transactionID)
	if err != nil {
		return nil, err
	}
	return &Instructions{
		Lines: []string{
			fmt.Sprintf("Transfer the order total to %s, account %s", g.cfg.BankName, g.cfg.AccountNumber),
			fmt.Sprintf("Use %s as the payment reference", transactionID),
			"Your order is confirmed once the transfer has been reconciled",
		},
		Details: map[string]string{
			"bank_name":      g.cfg.BankName,
			"account_name":   g.cfg.AccountName,
			"account_number": g.cfg.AccountNumber,
			"routing_number": g.cfg.RoutingNumber,
			"iban":           g.cfg.IBAN,
			"swift":          g.cfg.SWIFT,
			"reference":      transactionID,
		},
		ExpiresAt: at.Add(g.cfg.Deadline),
	}, nil
}
