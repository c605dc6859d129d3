package postgres

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// applySaleUnit runs the sale-effect shape used in production: sale row
// plus both user sides in one transaction.
func applySaleUnit(ctx context.Context, pool *Pool, sales *SaleStore, users *UserStore, sale *domain.Sale) error {
	return pool.RunInTx(ctx, func(ctx context.Context) error {
		if err := sales.Insert(ctx, sale); err != nil {
			return err
		}
		if err := users.ApplySaleSide(ctx, sale.Seller, domain.RoleSeller, sale.Price, sale.Timestamp); err != nil {
			return err
		}
		return users.ApplySaleSide(ctx, sale.Buyer, domain.RoleBuyer, sale.Price, sale.Timestamp)
	})
}

func TestPool_RunInTxCommits(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	sales := NewSaleStore(pool)
	users := NewUserStore(pool)

	sale := testSale("0xtx1", 0)
	require.NoError(t, applySaleUnit(ctx, pool, sales, users, sale))

	u, err := users.Get(ctx, sale.Seller)
	require.NoError(t, err)
	assert.Zero(t, u.TotalVolumeSold.Cmp(sale.Price))
	assert.Equal(t, int64(1), u.TotalItemsSold)
}

func TestPool_RunInTxRollsBackWholeUnit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	sales := NewSaleStore(pool)
	users := NewUserStore(pool)

	sale := testSale("0xtx1", 0)
	require.NoError(t, applySaleUnit(ctx, pool, sales, users, sale))

	// Redelivery: the duplicate insert aborts the unit, so neither user
	// side is applied a second time.
	err := applySaleUnit(ctx, pool, sales, users, sale)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	u, err := users.Get(ctx, sale.Seller)
	require.NoError(t, err)
	assert.Zero(t, u.TotalVolumeSold.Cmp(sale.Price))
	assert.Equal(t, int64(1), u.TotalItemsSold)

	b, err := users.Get(ctx, sale.Buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.TotalItemsBought)
}

func TestPool_RunInTxRollsBackOnLaterFailure(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	sales := NewSaleStore(pool)
	users := NewUserStore(pool)

	sale := testSale("0xtx1", 0)
	err := pool.RunInTx(ctx, func(ctx context.Context) error {
		if err := sales.Insert(ctx, sale); err != nil {
			return err
		}
		// Invalid role fails after the sale row was written in-tx
		return users.ApplySaleSide(ctx, sale.Seller, domain.TradeRole("broker"), big.NewInt(1), 1)
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// The sale row must not have survived the rollback
	exists, err := sales.Exists(ctx, "0xtx1", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}
