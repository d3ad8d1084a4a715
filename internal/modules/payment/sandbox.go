package payment

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// sandboxLedger is the in-process provider state behind the hosted-checkout
// gateways until their real provider calls are wired.
type sandboxLedger struct {
	mu      sync.Mutex
	entries map[string]*ledgerEntry
	now     func() time.Time
}

type ledgerEntry struct {
	amount   decimal.Decimal
	refunded decimal.Decimal
	currency string
	status   Status
	link     string
	paidAt   *time.Time
}

func newSandboxLedger() *sandboxLedger {
	return &sandboxLedger{entries: map[string]*ledgerEntry{}, now: time.Now}
}

func (l *sandboxLedger) open(txID string, amount decimal.Decimal, currency, link string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[txID] = &ledgerEntry{amount: amount, currency: currency, status: StatusPending, link: link}
}

// capture completes a pending entry and reports its state.
func (l *sandboxLedger) capture(txID string) (*GatewayStatus, error) {
	return l.report(txID, true)
}

// lookup reports an entry's state without settling it.
func (l *sandboxLedger) lookup(txID string) (*GatewayStatus, error) {
	return l.report(txID, false)
}

func (l *sandboxLedger) report(txID string, settle bool) (*GatewayStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	if settle && e.status == StatusPending {
		at := l.now().UTC()
		e.status = StatusCompleted
		e.paidAt = &at
	}
	return &GatewayStatus{
		TransactionID: txID,
		Status:        e.status,
		Amount:        e.amount,
		Currency:      e.currency,
		PaidAt:        e.paidAt,
		RawResponse:   rawJSON(map[string]any{"id": txID, "status": e.status, "amount_refunded": e.refunded}),
	}, nil
}

// refund deducts amount (or the remaining balance) and returns what was refunded.
func (l *sandboxLedger) refund(txID string, amount *decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[txID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	if e.status != StatusCompleted {
		return decimal.Zero, fmt.Errorf("%w: transaction %s is %s", ErrInvalidAmount, txID, e.status)
	}
	remaining := e.amount.Sub(e.refunded)
	refund := remaining
	if amount != nil {
		refund = *amount
	}
	if !refund.IsPositive() || refund.GreaterThan(remaining) {
		return decimal.Zero, fmt.Errorf("%w: refund %s exceeds remaining %s", ErrInvalidAmount, refund, remaining)
	}
	e.refunded = e.refunded.Add(refund)
	if e.refunded.Equal(e.amount) {
		e.status = StatusRefunded
	}
	return refund, nil
}

func (l *sandboxLedger) link(txID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[txID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	return e.link, nil
}

func rawJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
