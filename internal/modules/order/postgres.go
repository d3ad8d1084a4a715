package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectOrderSQL = `
	SELECT id, order_number, user_id, status, subtotal, total, notes, version, created_at, updated_at
	FROM orders`

// CreateOrder inserts the order and all its items, then clears exactly the
// claimed cart rows, inside a single transaction.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order, claims []CartClaim) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders
		  (id, order_number, user_id, status, subtotal, total, notes, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.Subtotal, o.Total, o.Notes, o.Version,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items
			  (id, order_id, position, product_id, vendor_id, product_name, sku, unit_price, quantity, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING created_at`,
			item.ID, o.ID, i, item.ProductID, item.VendorID, item.ProductName, item.SKU,
			item.UnitPrice, item.Quantity, item.LineTotal,
		).Scan(&item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	ids := make([]string, len(claims))
	qtys := make([]int64, len(claims))
	for i, c := range claims {
		ids[i] = c.ID.String()
		qtys[i] = int64(c.Quantity)
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items c
		USING unnest($2::uuid[], $3::int[]) AS claimed(id, quantity)
		WHERE c.user_id = $1 AND c.id = claimed.id AND c.quantity = claimed.quantity`,
		o.UserID, pq.Array(ids), pq.Array(qtys))
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if cleared != int64(len(claims)) {
		return fmt.Errorf("%w: cleared %d of %d rows", ErrCartChanged, cleared, len(claims))
	}

	return tx.Commit()
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderSQL+` WHERE id=$1`, uid))
	if err != nil {
		return nil, err
	}
	return o, r.attachItems(ctx, o)
}

func (r *postgresRepo) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderSQL+` WHERE order_number=$1`, orderNumber))
	if err != nil {
		return nil, err
	}
	return o, r.attachItems(ctx, o)
}

func (r *postgresRepo) ListOrdersByUser(ctx context.Context, userID string) ([]*Order, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return []*Order{}, nil
	}
	return r.queryOrders(ctx, selectOrderSQL+` WHERE user_id=$1 ORDER BY created_at DESC`, uid)
}

func (r *postgresRepo) ListOrders(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	orders, err := r.queryOrders(ctx, selectOrderSQL+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	return orders, total, err
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, version=version+1, updated_at=$2 WHERE id=$3 AND version=$4`,
		status, at, id, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrOrderNotFound
	}
	return ErrConcurrentUpdate
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Subtotal, &o.Total,
		&o.Notes, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Items = []*Item{}
	return o, nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, r.attachItems(ctx, orders...)
}

// attachItems loads the line items of every order in one query.
func (r *postgresRepo) attachItems(ctx context.Context, orders ...*Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, vendor_id, product_name, sku, unit_price, quantity, line_total, created_at
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VendorID,
			&item.ProductName, &item.SKU, &item.UnitPrice, &item.Quantity, &item.LineTotal,
			&item.CreatedAt); err != nil {
			return err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}
