package ingest

import (
	"context"
	"math/big"
	"testing"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage/memory"
)

func TestUserStatAggregator_AppliesBothSides(t *testing.T) {
	users := memory.NewUserStore()
	agg := NewUserStatAggregator(users)
	ctx := context.Background()

	sale := &domain.Sale{
		Seller:    "0xseller",
		Buyer:     "0xbuyer",
		Price:     big.NewInt(500),
		Timestamp: 1000,
	}
	if err := agg.ApplySale(ctx, sale); err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	seller, err := users.Get(ctx, "0xseller")
	if err != nil {
		t.Fatalf("Get seller failed: %v", err)
	}
	if seller.TotalVolumeSold.Int64() != 500 || seller.TotalItemsBought != 0 {
		t.Errorf("Seller side wrong: %s sold, %d bought", seller.TotalVolumeSold, seller.TotalItemsBought)
	}

	buyer, err := users.Get(ctx, "0xbuyer")
	if err != nil {
		t.Fatalf("Get buyer failed: %v", err)
	}
	if buyer.TotalVolumeBought.Int64() != 500 || buyer.TotalItemsSold != 0 {
		t.Errorf("Buyer side wrong: %s bought, %d sold", buyer.TotalVolumeBought, buyer.TotalItemsSold)
	}
}

func TestUserStatAggregator_SelfTrade(t *testing.T) {
	users := memory.NewUserStore()
	agg := NewUserStatAggregator(users)
	ctx := context.Background()

	sale := &domain.Sale{
		Seller:    "0xsame",
		Buyer:     "0xsame",
		Price:     big.NewInt(100),
		Timestamp: 1000,
	}
	if err := agg.ApplySale(ctx, sale); err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	u, err := users.Get(ctx, "0xsame")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if u.TotalVolumeSold.Int64() != 100 || u.TotalVolumeBought.Int64() != 100 {
		t.Errorf("Self-trade must apply both sides, got %s/%s", u.TotalVolumeSold, u.TotalVolumeBought)
	}
	if u.TotalItemsSold != 1 || u.TotalItemsBought != 1 {
		t.Errorf("Self-trade item counts wrong: %d/%d", u.TotalItemsSold, u.TotalItemsBought)
	}
}
