package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/observability"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// OfferRecorder persists validated orders as active offers. The
// lifecycle event carries no price or asset detail, so those fields are
// written as placeholders for a later enrichment step to fill.
type OfferRecorder struct {
	offers   storage.OfferStore
	platform string
}

// NewOfferRecorder creates a new offer recorder.
func NewOfferRecorder(offers storage.OfferStore, platform string) *OfferRecorder {
	if platform == "" {
		platform = domain.PlatformFlowties
	}
	return &OfferRecorder{offers: offers, platform: platform}
}

// Record persists one validated order. Redelivery is a no-op.
func (r *OfferRecorder) Record(ctx context.Context, ev *domain.ValidatedEvent) error {
	c := ev.Context()
	offer := &domain.Offer{
		TxHash:      c.TxHash,
		LogIndex:    c.LogIndex,
		OrderHash:   ev.OrderHash,
		Offerer:     ev.Offerer,
		Price:       new(big.Int),
		Currency:    domain.NativeCurrencySymbol,
		Platform:    r.platform,
		Status:      domain.OfferStatusActive,
		BlockNumber: c.BlockNumber,
		Timestamp:   c.Timestamp,
	}

	err := r.offers.Insert(ctx, offer)
	if errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordDuplicateSkip("offer")
		return nil
	}
	if err != nil {
		return fmt.Errorf("record offer %s/%d: %w", offer.TxHash, offer.LogIndex, err)
	}

	observability.RecordOffer()
	return nil
}
