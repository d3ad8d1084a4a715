package cart

import "context"

// Reader returns the current contents of a user's cart.
type Reader interface {
	// GetCartItems returns an empty slice, not an error, for an empty cart.
	GetCartItems(ctx context.Context, userID string) ([]Item, error)
}
