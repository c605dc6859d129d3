package ingest

import (
	"context"
	"log"
	"math/big"
	"testing"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage/memory"
)

// fixture wires the full pipeline against in-memory stores.
type fixture struct {
	sales         *memory.SaleStore
	offers        *memory.OfferStore
	cancellations *memory.CancellationStore
	users         *memory.UserStore
	collections   *memory.CollectionStore
	snapshots     *memory.SnapshotStore
	pipeline      *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		sales:         memory.NewSaleStore(),
		offers:        memory.NewOfferStore(),
		cancellations: memory.NewCancellationStore(),
		users:         memory.NewUserStore(),
		collections:   memory.NewCollectionStore(),
		snapshots:     memory.NewSnapshotStore(),
	}

	recorder := NewSaleRecorder(SaleRecorderOptions{
		Unit:    memory.NewUnit(),
		Sales:   f.sales,
		Users:   NewUserStatAggregator(f.users),
		Windows: NewVolumeWindowTracker(f.collections, f.snapshots),
	})

	f.pipeline = NewPipeline(PipelineOptions{
		Sales:         recorder,
		Offers:        NewOfferRecorder(f.offers, domain.PlatformFlowties),
		Cancellations: NewCancellationRecorder(f.cancellations),
		Logger:        log.Default(),
	})
	return f
}

// fulfilledLog builds a simple one-item sale: one NFT offered, one
// native payment of 5 FLOW in consideration.
func fulfilledLog(txHash string, logIndex uint) *domain.RawLog {
	price, _ := new(big.Int).SetString("5000000000000000000", 10)
	return &domain.RawLog{
		Name: domain.EventOrderFulfilled,
		Args: map[string]any{
			"orderHash": "0xorder-" + txHash,
			"offerer":   "0xSeller0000000000000000000000000000000001",
			"zone":      domain.ZeroAddress,
			"recipient": "0xBuyer00000000000000000000000000000000002",
			"offer": []any{
				map[string]any{
					"itemType":   2,
					"token":      "0xC0110000000000000000000000000000000000aa",
					"identifier": "42",
					"amount":     "1",
				},
			},
			"consideration": []any{
				map[string]any{
					"itemType":   0,
					"token":      domain.ZeroAddress,
					"identifier": "0",
					"amount":     price.String(),
					"recipient":  "0xSeller0000000000000000000000000000000001",
				},
			},
		},
		BlockNumber: 100,
		Timestamp:   1700000000,
		TxHash:      txHash,
		LogIndex:    logIndex,
		GasUsed:     21000,
		GasPrice:    big.NewInt(1000000000),
	}
}

func TestPipeline_SimpleSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.pipeline.Process(ctx, fulfilledLog("0xtx1", 0)); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	sale, err := f.sales.GetByTxLog(ctx, "0xtx1", 0)
	if err != nil {
		t.Fatalf("Sale not recorded: %v", err)
	}

	want, _ := new(big.Int).SetString("5000000000000000000", 10)
	if sale.Price.Cmp(want) != 0 {
		t.Errorf("Expected price 5e18, got %s", sale.Price)
	}
	if sale.Currency != domain.NativeCurrencySymbol || sale.CurrencyAddress != domain.ZeroAddress {
		t.Errorf("Expected native currency, got %s/%s", sale.Currency, sale.CurrencyAddress)
	}
	if sale.Seller != "0xseller0000000000000000000000000000000001" {
		t.Errorf("Expected offerer as seller, got %s", sale.Seller)
	}
	if sale.Buyer != "0xbuyer00000000000000000000000000000000002" {
		t.Errorf("Expected recipient as buyer, got %s", sale.Buyer)
	}
	if sale.Collection != "0xc0110000000000000000000000000000000000aa" || sale.TokenID != "42" {
		t.Errorf("Expected asset leg on sale, got %s/%s", sale.Collection, sale.TokenID)
	}

	seller, err := f.users.Get(ctx, sale.Seller)
	if err != nil {
		t.Fatalf("Seller stats missing: %v", err)
	}
	if seller.TotalVolumeSold.Cmp(want) != 0 || seller.TotalItemsSold != 1 {
		t.Errorf("Seller totals wrong: %s/%d", seller.TotalVolumeSold, seller.TotalItemsSold)
	}

	buyer, err := f.users.Get(ctx, sale.Buyer)
	if err != nil {
		t.Fatalf("Buyer stats missing: %v", err)
	}
	if buyer.TotalVolumeBought.Cmp(want) != 0 || buyer.TotalItemsBought != 1 {
		t.Errorf("Buyer totals wrong: %s/%d", buyer.TotalVolumeBought, buyer.TotalItemsBought)
	}

	col, err := f.collections.Get(ctx, sale.Collection)
	if err != nil {
		t.Fatalf("Collection missing: %v", err)
	}
	if col.TotalVolume.Cmp(want) != 0 || col.TotalSales != 1 {
		t.Errorf("Collection totals wrong: %s/%d", col.TotalVolume, col.TotalSales)
	}
	if col.Volume24h.Cmp(want) != 0 || col.Sales24h != 1 {
		t.Errorf("Collection 24h window wrong: %s/%d", col.Volume24h, col.Sales24h)
	}

	snap, err := f.snapshots.Get(ctx, sale.Collection, domain.SnapshotBucket(sale.Timestamp))
	if err != nil {
		t.Fatalf("Snapshot bucket missing: %v", err)
	}
	if snap.BucketVolume.Cmp(want) != 0 || snap.BucketSales != 1 {
		t.Errorf("Snapshot bucket wrong: %s/%d", snap.BucketVolume, snap.BucketSales)
	}
	if snap.AvgPrice1h.Cmp(want) != 0 {
		t.Errorf("Expected avg price 5e18 for single sale, got %s", snap.AvgPrice1h)
	}
}

func TestPipeline_ReplayIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.pipeline.Process(ctx, fulfilledLog("0xtx1", 0)); err != nil {
			t.Fatalf("Process on delivery %d failed: %v", i, err)
		}
	}

	seller, err := f.users.Get(ctx, "0xseller0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("Seller stats missing: %v", err)
	}
	if seller.TotalItemsSold != 1 {
		t.Errorf("Replay inflated seller items: %d", seller.TotalItemsSold)
	}

	col, err := f.collections.Get(ctx, "0xc0110000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("Collection missing: %v", err)
	}
	if col.TotalSales != 1 {
		t.Errorf("Replay inflated collection sales: %d", col.TotalSales)
	}
}

func TestPipeline_AggregateSum(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := uint(0); i < 4; i++ {
		if err := f.pipeline.Process(ctx, fulfilledLog("0xtx1", i)); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	sales, err := f.sales.GetBySeller(ctx, "0xseller0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("GetBySeller failed: %v", err)
	}

	sum := new(big.Int)
	for _, sale := range sales {
		sum.Add(sum, sale.Price)
	}

	seller, err := f.users.Get(ctx, "0xseller0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("Seller stats missing: %v", err)
	}
	if seller.TotalVolumeSold.Cmp(sum) != 0 {
		t.Errorf("User volume %s does not equal sale sum %s", seller.TotalVolumeSold, sum)
	}
	if seller.TotalItemsSold != int64(len(sales)) {
		t.Errorf("User items %d does not equal sale count %d", seller.TotalItemsSold, len(sales))
	}

	col, err := f.collections.Get(ctx, "0xc0110000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("Collection missing: %v", err)
	}
	if col.TotalVolume.Cmp(sum) != 0 || col.TotalSales != int64(len(sales)) {
		t.Errorf("Collection totals %s/%d do not match sale sum %s/%d", col.TotalVolume, col.TotalSales, sum, len(sales))
	}
}

func TestPipeline_MissingAssetLegRecordsSentinel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	raw := fulfilledLog("0xtx1", 0)
	// Currency-only order: no NFT leg anywhere.
	raw.Args["offer"] = []any{
		map[string]any{
			"itemType":   0,
			"token":      domain.ZeroAddress,
			"identifier": "0",
			"amount":     "1000",
		},
	}

	if err := f.pipeline.Process(ctx, raw); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	sale, err := f.sales.GetByTxLog(ctx, "0xtx1", 0)
	if err != nil {
		t.Fatalf("Sale not recorded: %v", err)
	}
	if sale.Collection != domain.ZeroAddress || sale.TokenID != "" {
		t.Errorf("Expected sentinel asset leg, got %s/%s", sale.Collection, sale.TokenID)
	}
}

func TestPipeline_UndecodableLogSkipped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	raw := &domain.RawLog{
		Name:   "CounterIncremented",
		Args:   map[string]any{},
		TxHash: "0xtx1",
	}
	if err := f.pipeline.Process(ctx, raw); err != nil {
		t.Fatalf("Expected undecodable log to be skipped, got %v", err)
	}

	malformed := fulfilledLog("0xtx2", 0)
	delete(malformed.Args, "orderHash")
	if err := f.pipeline.Process(ctx, malformed); err != nil {
		t.Fatalf("Expected malformed log to be skipped, got %v", err)
	}

	users, err := f.users.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("Skipped logs must not touch aggregates, got %d users", len(users))
	}
}

func TestPipeline_LifecycleEventsDoNotTouchSaleAggregates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.pipeline.Process(ctx, fulfilledLog("0xtx1", 0)); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	validated := &domain.RawLog{
		Name: domain.EventOrderValidated,
		Args: map[string]any{
			"orderHash": "0xorder-0xtx1",
			"offerer":   "0xSeller0000000000000000000000000000000001",
			"zone":      domain.ZeroAddress,
		},
		BlockNumber: 101,
		Timestamp:   1700000100,
		TxHash:      "0xtx2",
		LogIndex:    0,
	}
	if err := f.pipeline.Process(ctx, validated); err != nil {
		t.Fatalf("Process validated failed: %v", err)
	}

	cancelled := &domain.RawLog{
		Name: domain.EventOrderCancelled,
		Args: map[string]any{
			"orderHash": "0xorder-0xtx1",
			"offerer":   "0xSeller0000000000000000000000000000000001",
			"zone":      domain.ZeroAddress,
		},
		BlockNumber: 102,
		Timestamp:   1700000200,
		TxHash:      "0xtx3",
		LogIndex:    0,
	}
	if err := f.pipeline.Process(ctx, cancelled); err != nil {
		t.Fatalf("Process cancelled failed: %v", err)
	}

	offers, err := f.offers.GetByOfferer(ctx, "0xseller0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("GetByOfferer failed: %v", err)
	}
	if len(offers) != 1 || offers[0].Status != domain.OfferStatusActive {
		t.Fatalf("Expected one active offer, got %+v", offers)
	}

	cancels, err := f.cancellations.GetByOrderHash(ctx, "0xorder-0xtx1")
	if err != nil {
		t.Fatalf("GetByOrderHash failed: %v", err)
	}
	if len(cancels) != 1 {
		t.Fatalf("Expected one cancellation, got %d", len(cancels))
	}

	// The cancellation of a fulfilled order's hash must not unwind the
	// sale's aggregates.
	seller, err := f.users.Get(ctx, "0xseller0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("Seller stats missing: %v", err)
	}
	if seller.TotalItemsSold != 1 {
		t.Errorf("Cancellation altered sale aggregates: %d items sold", seller.TotalItemsSold)
	}

	col, err := f.collections.Get(ctx, "0xc0110000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("Collection missing: %v", err)
	}
	if col.TotalSales != 1 {
		t.Errorf("Cancellation altered collection totals: %d sales", col.TotalSales)
	}
}

func TestPipeline_ReplayedOfferAndCancellationAreNoOps(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	validated := &domain.RawLog{
		Name: domain.EventOrderValidated,
		Args: map[string]any{
			"orderHash": "0xorder1",
			"offerer":   "0xAA00000000000000000000000000000000000001",
			"zone":      domain.ZeroAddress,
		},
		TxHash:   "0xtx1",
		LogIndex: 0,
	}

	for i := 0; i < 2; i++ {
		if err := f.pipeline.Process(ctx, validated); err != nil {
			t.Fatalf("Process on delivery %d failed: %v", i, err)
		}
	}

	offers, err := f.offers.GetByOfferer(ctx, "0xaa00000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("GetByOfferer failed: %v", err)
	}
	if len(offers) != 1 {
		t.Errorf("Replay duplicated offer rows: %d", len(offers))
	}
}
