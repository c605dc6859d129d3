package ingest

import (
	"context"
	"log"

	"github.com/camdengrieh/flowties-sub000/internal/decode"
	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/observability"
)

// Pipeline decodes raw logs and routes each event variant to its
// recorder.
type Pipeline struct {
	sales         *SaleRecorder
	offers        *OfferRecorder
	cancellations *CancellationRecorder
	logger        *log.Logger
}

// PipelineOptions contains configuration for creating a Pipeline.
type PipelineOptions struct {
	Sales         *SaleRecorder
	Offers        *OfferRecorder
	Cancellations *CancellationRecorder
	Logger        *log.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Pipeline{
		sales:         opts.Sales,
		offers:        opts.Offers,
		cancellations: opts.Cancellations,
		logger:        logger,
	}
}

// Process handles one raw log. Undecodable logs are counted and
// skipped; only storage errors propagate, so the caller can redeliver
// the log and lean on the idempotency guard.
func (p *Pipeline) Process(ctx context.Context, raw *domain.RawLog) error {
	event, err := decode.Decode(raw)
	if err != nil {
		observability.RecordDecodeFailure()
		p.logger.Printf("Skipping undecodable log %s/%d: %v", raw.TxHash, raw.LogIndex, err)
		return nil
	}

	observability.RecordEventProcessed(raw.Name)

	switch ev := event.(type) {
	case *domain.FulfilledEvent:
		asset := decode.ClassifyAsset(ev.Offer)
		payment := decode.ClassifyPayment(ev.Consideration)
		if !asset.Found() {
			observability.RecordClassificationGap()
			p.logger.Printf("No asset leg in order %s, recording sentinel", ev.OrderHash)
		}
		return p.sales.Record(ctx, ev, asset, payment)

	case *domain.ValidatedEvent:
		return p.offers.Record(ctx, ev)

	case *domain.CancelledEvent:
		return p.cancellations.Record(ctx, ev)
	}

	return nil
}
