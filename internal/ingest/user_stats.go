package ingest

import (
	"context"
	"fmt"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// UserStatAggregator maintains cumulative per-wallet trading totals.
type UserStatAggregator struct {
	users storage.UserStore
}

// NewUserStatAggregator creates a new user stat aggregator.
func NewUserStatAggregator(users storage.UserStore) *UserStatAggregator {
	return &UserStatAggregator{users: users}
}

// ApplySale merges both sides of one sale into user totals. The seller
// and buyer merges are independent: a self-trade applies both to the
// same address.
func (a *UserStatAggregator) ApplySale(ctx context.Context, sale *domain.Sale) error {
	if err := a.users.ApplySaleSide(ctx, sale.Seller, domain.RoleSeller, sale.Price, sale.Timestamp); err != nil {
		return fmt.Errorf("apply seller side for %s: %w", sale.Seller, err)
	}
	if err := a.users.ApplySaleSide(ctx, sale.Buyer, domain.RoleBuyer, sale.Price, sale.Timestamp); err != nil {
		return fmt.Errorf("apply buyer side for %s: %w", sale.Buyer, err)
	}
	return nil
}
