package cart

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type postgresReader struct{ db *sql.DB }

func NewPostgresReader(db *sql.DB) Reader { return &postgresReader{db: db} }

func (r *postgresReader) GetCartItems(ctx context.Context, userID string) ([]Item, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, p.id, p.vendor_id, p.price, ci.quantity, p.name, p.sku
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC, ci.id ASC`, uid)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.VendorID, &it.UnitPrice,
			&it.Quantity, &it.ProductName, &it.SKU); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
