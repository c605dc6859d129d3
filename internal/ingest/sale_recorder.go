package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/observability"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// SaleRecorder applies a fulfilled order's full storage effect: the
// sale row, both user sides, and the collection aggregates, committed
// as one unit. The sale insert doubles as the idempotency guard: a
// duplicate identity aborts the unit before any aggregate is touched,
// and the redelivery is treated as success.
type SaleRecorder struct {
	unit     storage.TxRunner
	sales    storage.SaleStore
	users    *UserStatAggregator
	windows  *VolumeWindowTracker
	archive  storage.SaleArchive
	platform string
	logger   *log.Logger
}

// SaleRecorderOptions contains configuration for creating a SaleRecorder.
type SaleRecorderOptions struct {
	Unit    storage.TxRunner
	Sales   storage.SaleStore
	Users   *UserStatAggregator
	Windows *VolumeWindowTracker

	// Archive is an optional best-effort analytic copy; failures are
	// logged and counted but never fail the sale.
	Archive storage.SaleArchive

	// Platform tag written on sale rows. Default: flowties.
	Platform string

	Logger *log.Logger
}

// NewSaleRecorder creates a new sale recorder.
func NewSaleRecorder(opts SaleRecorderOptions) *SaleRecorder {
	platform := opts.Platform
	if platform == "" {
		platform = domain.PlatformFlowties
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &SaleRecorder{
		unit:     opts.Unit,
		sales:    opts.Sales,
		users:    opts.Users,
		windows:  opts.Windows,
		archive:  opts.Archive,
		platform: platform,
		logger:   logger,
	}
}

// Record persists one fulfilled order. Redelivery of an already
// recorded identity is a no-op; any other failure rolls the whole unit
// back and surfaces for retry.
func (r *SaleRecorder) Record(ctx context.Context, ev *domain.FulfilledEvent, asset domain.AssetLeg, payment domain.PaymentLeg) error {
	sale := r.saleFromEvent(ev, asset, payment)

	start := time.Now()
	err := r.unit.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.sales.Insert(ctx, sale); err != nil {
			return err
		}
		if err := r.users.ApplySale(ctx, sale); err != nil {
			return err
		}
		return r.windows.ApplySale(ctx, sale.Collection, sale.Price, sale.Timestamp)
	})
	observability.ObserveSaleUnit(time.Since(start).Seconds())

	if errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordDuplicateSkip("sale")
		return nil
	}
	if err != nil {
		observability.RecordTransactionFailure()
		return fmt.Errorf("record sale %s/%d: %w", sale.TxHash, sale.LogIndex, err)
	}

	observability.RecordSale()

	if r.archive != nil {
		if err := r.archive.InsertBulk(ctx, []*domain.Sale{sale}); err != nil {
			observability.RecordArchiveFailure()
			r.logger.Printf("Error archiving sale %s/%d: %v", sale.TxHash, sale.LogIndex, err)
		}
	}

	return nil
}

// saleFromEvent builds the sale row. The offerer sold, the recipient
// bought.
func (r *SaleRecorder) saleFromEvent(ev *domain.FulfilledEvent, asset domain.AssetLeg, payment domain.PaymentLeg) *domain.Sale {
	ctx := ev.Context()
	return &domain.Sale{
		TxHash:          ctx.TxHash,
		LogIndex:        ctx.LogIndex,
		OrderHash:       ev.OrderHash,
		Collection:      asset.Collection,
		TokenID:         asset.TokenID,
		Seller:          ev.Offerer,
		Buyer:           ev.Recipient,
		Price:           payment.Amount,
		Currency:        payment.Symbol,
		CurrencyAddress: payment.Currency,
		Platform:        r.platform,
		BlockNumber:     ctx.BlockNumber,
		Timestamp:       ctx.Timestamp,
		GasUsed:         ctx.GasUsed,
		GasPrice:        ctx.GasPrice,
	}
}
