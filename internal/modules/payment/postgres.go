package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectPaymentSQL = `
	SELECT id, order_id, method, amount, currency, transaction_id, status,
	       raw_response, paid_at, created_at, updated_at
	FROM payments`

func (r *postgresRepo) CreatePayment(ctx context.Context, p *Payment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments
		  (id, order_id, method, amount, currency, transaction_id, status, raw_response, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.OrderID, p.Method, p.Amount, p.Currency, p.TransactionID, p.Status,
		jsonParam(p.RawResponse), p.PaidAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: order %s", ErrPaymentExists, p.OrderID)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, selectPaymentSQL+` WHERE transaction_id = $1`, transactionID))
}

func (r *postgresRepo) GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrPaymentNotFound
	}
	return scanPayment(r.db.QueryRowContext(ctx, selectPaymentSQL+` WHERE order_id = $1`, orderID))
}

func (r *postgresRepo) UpdatePayment(ctx context.Context, id uuid.UUID, status Status, paidAt *time.Time, raw json.RawMessage) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, paid_at = $3, raw_response = COALESCE($4::jsonb, raw_response), updated_at = NOW()
		WHERE id = $1`,
		id, status, paidAt, jsonParam(raw))
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func scanPayment(row *sql.Row) (*Payment, error) {
	var (
		p   Payment
		raw []byte
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Currency, &p.TransactionID,
		&p.Status, &raw, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		p.RawResponse = json.RawMessage(raw)
	}
	return &p, nil
}

// jsonParam passes JSON as text; lib/pq would send raw bytes as bytea.
func jsonParam(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
