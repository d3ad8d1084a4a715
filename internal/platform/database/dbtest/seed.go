package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// SeedUser inserts a user with the given role and returns its id.
func SeedUser(t *testing.T, db *sql.DB, email, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role) VALUES ($1,$2,'x','Test','User',$3)`,
		id, email, role)
	require.NoError(t, err)
	return id
}

// SeedVendor inserts a vendor owned by a fresh vendor-role user.
func SeedVendor(t *testing.T, db *sql.DB, name, contactEmail string) uuid.UUID {
	t.Helper()
	owner := SeedUser(t, db, uuid.NewString()+"@vendors.test", "vendor")
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO vendors (id, owner_id, business_name, contact_email) VALUES ($1,$2,$3,$4)`,
		id, owner, name, contactEmail)
	require.NoError(t, err)
	return id
}

// SeedProduct inserts a product priced at price (a decimal string).
func SeedProduct(t *testing.T, db *sql.DB, vendorID uuid.UUID, name, sku, price string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO products (id, vendor_id, name, sku, price) VALUES ($1,$2,$3,$4,$5::numeric)`,
		id, vendorID, name, sku, price)
	require.NoError(t, err)
	return id
}

// AddToCart puts qty of productID in userID's cart.
func AddToCart(t *testing.T, db *sql.DB, userID, productID uuid.UUID, qty int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO cart_items (id, user_id, product_id, quantity) VALUES ($1,$2,$3,$4)`,
		id, userID, productID, qty)
	require.NoError(t, err)
	return id
}

// CartSize counts the rows in userID's cart.
func CartSize(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM cart_items WHERE user_id=$1`, userID).Scan(&n))
	return n
}
