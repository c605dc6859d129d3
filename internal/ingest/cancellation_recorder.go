package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/observability"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// CancellationRecorder persists order cancellations. Sale aggregates
// are untouched: cancelling an order after its sale was recorded does
// not unwind the sale.
type CancellationRecorder struct {
	cancellations storage.CancellationStore
}

// NewCancellationRecorder creates a new cancellation recorder.
func NewCancellationRecorder(cancellations storage.CancellationStore) *CancellationRecorder {
	return &CancellationRecorder{cancellations: cancellations}
}

// Record persists one cancellation. Redelivery is a no-op.
func (r *CancellationRecorder) Record(ctx context.Context, ev *domain.CancelledEvent) error {
	c := ev.Context()
	cancellation := &domain.Cancellation{
		TxHash:      c.TxHash,
		LogIndex:    c.LogIndex,
		OrderHash:   ev.OrderHash,
		Offerer:     ev.Offerer,
		BlockNumber: c.BlockNumber,
		Timestamp:   c.Timestamp,
	}

	err := r.cancellations.Insert(ctx, cancellation)
	if errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordDuplicateSkip("cancellation")
		return nil
	}
	if err != nil {
		return fmt.Errorf("record cancellation %s/%d: %w", cancellation.TxHash, cancellation.LogIndex, err)
	}

	observability.RecordCancellation()
	return nil
}
