package notification

import (
	"context"
	"fmt"

	"github.com/georgemunganga/crafty-backend/internal/modules/user"
	"github.com/georgemunganga/crafty-backend/internal/modules/vendor"
)

// Contact is a display name and address.
type Contact struct {
	Name  string
	Email string
}

// Directory resolves the people an order notification is addressed to.
type Directory interface {
	Customer(ctx context.Context, userID string) (Contact, error)
	// Vendors returns contacts keyed by vendor id; unknown ids are omitted.
	Vendors(ctx context.Context, ids []string) (map[string]Contact, error)
}

type userLookup interface {
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

type vendorLookup interface {
	GetVendorsByIDs(ctx context.Context, ids []string) ([]*vendor.Vendor, error)
}

type repoDirectory struct {
	users   userLookup
	vendors vendorLookup
}

// NewDirectory reads contacts straight from the user and vendor stores.
func NewDirectory(users userLookup, vendors vendorLookup) Directory {
	return &repoDirectory{users: users, vendors: vendors}
}

func (d *repoDirectory) Customer(ctx context.Context, userID string) (Contact, error) {
	u, err := d.users.GetUserByID(ctx, userID)
	if err != nil {
		return Contact{}, fmt.Errorf("lookup customer %s: %w", userID, err)
	}
	return Contact{Name: u.FullName(), Email: u.Email}, nil
}

func (d *repoDirectory) Vendors(ctx context.Context, ids []string) (map[string]Contact, error) {
	vs, err := d.vendors.GetVendorsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup vendors: %w", err)
	}
	out := make(map[string]Contact, len(vs))
	for _, v := range vs {
		out[v.ID.String()] = Contact{Name: v.BusinessName, Email: v.ContactEmail}
	}
	return out, nil
}
