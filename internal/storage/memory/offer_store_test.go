package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

func testOffer(txHash string, logIndex uint) *domain.Offer {
	return &domain.Offer{
		TxHash:      txHash,
		LogIndex:    logIndex,
		OrderHash:   "0xorder",
		Offerer:     "0xofferer",
		Price:       new(big.Int),
		Currency:    domain.NativeCurrencySymbol,
		Platform:    domain.PlatformFlowties,
		Status:      domain.OfferStatusActive,
		BlockNumber: 100,
		Timestamp:   1700000000,
	}
}

func TestOfferStore_InsertAndGet(t *testing.T) {
	store := NewOfferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testOffer("0xtx1", 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	o, err := store.GetByTxLog(ctx, "0xtx1", 0)
	if err != nil {
		t.Fatalf("GetByTxLog failed: %v", err)
	}
	if o.Status != domain.OfferStatusActive {
		t.Errorf("Expected active status, got %s", o.Status)
	}

	err = store.Insert(ctx, testOffer("0xtx1", 0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestOfferStore_InsertRejectsUnknownStatus(t *testing.T) {
	store := NewOfferStore()

	o := testOffer("0xtx1", 0)
	o.Status = domain.OfferStatus("pending")

	err := store.Insert(context.Background(), o)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestOfferStore_UpdateStatus(t *testing.T) {
	store := NewOfferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testOffer("0xtx1", 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.UpdateStatus(ctx, "0xtx1", 0, domain.OfferStatusAccepted); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	o, err := store.GetByTxLog(ctx, "0xtx1", 0)
	if err != nil {
		t.Fatalf("GetByTxLog failed: %v", err)
	}
	if o.Status != domain.OfferStatusAccepted {
		t.Errorf("Expected accepted, got %s", o.Status)
	}

	// Terminal states are final
	err = store.UpdateStatus(ctx, "0xtx1", 0, domain.OfferStatusCancelled)
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}

	err = store.UpdateStatus(ctx, "0xmissing", 0, domain.OfferStatusAccepted)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestOfferStore_GetByOfferer(t *testing.T) {
	store := NewOfferStore()
	ctx := context.Background()

	first := testOffer("0xtx1", 1)
	second := testOffer("0xtx1", 0)
	other := testOffer("0xtx2", 0)
	other.Offerer = "0xother"

	for _, o := range []*domain.Offer{first, second, other} {
		if err := store.Insert(ctx, o); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	offers, err := store.GetByOfferer(ctx, "0xofferer")
	if err != nil {
		t.Fatalf("GetByOfferer failed: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("Expected 2 offers, got %d", len(offers))
	}
	if offers[0].LogIndex != 0 || offers[1].LogIndex != 1 {
		t.Errorf("Expected log index order, got %d, %d", offers[0].LogIndex, offers[1].LogIndex)
	}
}
