package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

func testCancellation(txHash string, logIndex uint) *domain.Cancellation {
	return &domain.Cancellation{
		TxHash:      txHash,
		LogIndex:    logIndex,
		OrderHash:   "0xorder",
		Offerer:     "0xofferer",
		BlockNumber: 100,
		Timestamp:   1700000000,
	}
}

func TestCancellationStore_InsertAndDuplicate(t *testing.T) {
	store := NewCancellationStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testCancellation("0xtx1", 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.Insert(ctx, testCancellation("0xtx1", 0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	if err := store.Insert(ctx, testCancellation("0xtx1", 1)); err != nil {
		t.Errorf("Insert with different log index failed: %v", err)
	}
}

func TestCancellationStore_GetByOrderHash(t *testing.T) {
	store := NewCancellationStore()
	ctx := context.Background()

	first := testCancellation("0xtx1", 0)
	first.BlockNumber = 200
	second := testCancellation("0xtx2", 0)
	second.BlockNumber = 100
	other := testCancellation("0xtx3", 0)
	other.OrderHash = "0xotherorder"

	for _, c := range []*domain.Cancellation{first, second, other} {
		if err := store.Insert(ctx, c); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	cancels, err := store.GetByOrderHash(ctx, "0xorder")
	if err != nil {
		t.Fatalf("GetByOrderHash failed: %v", err)
	}
	if len(cancels) != 2 {
		t.Fatalf("Expected 2 cancellations, got %d", len(cancels))
	}
	if cancels[0].TxHash != "0xtx2" || cancels[1].TxHash != "0xtx1" {
		t.Errorf("Expected block order 0xtx2, 0xtx1, got %s, %s", cancels[0].TxHash, cancels[1].TxHash)
	}

	none, err := store.GetByOrderHash(ctx, "0xunknown")
	if err != nil {
		t.Fatalf("GetByOrderHash failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no cancellations, got %d", len(none))
	}
}
