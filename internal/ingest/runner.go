package ingest

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/observability"
)

// Runner consumes the chain log stream and drives the pipeline with
// deterministic ordering.
type Runner struct {
	source         LogSource
	pipeline       *Pipeline
	blockLagWindow uint64        // Number of blocks to buffer for ordering
	flushInterval  time.Duration // Interval for periodic buffer flush
	retryBaseDelay time.Duration
	logger         *log.Logger

	// Block-keyed buffer for deterministic ordering. A block's logs are
	// processed once the stream head is past it by the lag window.
	buffer       map[uint64][]*domain.RawLog
	highestBlock uint64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source   LogSource
	Pipeline *Pipeline

	// BlockLagWindow is how many blocks behind the stream head a block
	// must be before its logs are processed. Default: 3 blocks.
	BlockLagWindow uint64

	// FlushInterval forces buffered logs through periodically even if no
	// new blocks arrive. Default: 5s.
	FlushInterval time.Duration

	// RetryBaseDelay is the initial backoff when a log's storage effect
	// fails. Default: 1s.
	RetryBaseDelay time.Duration

	Logger *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	blockLagWindow := opts.BlockLagWindow
	if blockLagWindow == 0 {
		blockLagWindow = 3
	}

	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	retryBaseDelay := opts.RetryBaseDelay
	if retryBaseDelay == 0 {
		retryBaseDelay = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		source:         opts.Source,
		pipeline:       opts.Pipeline,
		blockLagWindow: blockLagWindow,
		flushInterval:  flushInterval,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
		buffer:         make(map[uint64][]*domain.RawLog),
	}
}

// Run starts continuous ingestion. It blocks until context is cancelled
// or the log channel closes.
func (r *Runner) Run(ctx context.Context) error {
	logs, err := r.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	r.logger.Printf("Runner started, block lag window: %d, flush interval: %v", r.blockLagWindow, r.flushInterval)

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Flush all remaining logs before shutdown
			r.flushAllBlocks(ctx)
			r.logger.Println("Runner stopping...")
			return ctx.Err()

		case raw, ok := <-logs:
			if !ok {
				r.flushAllBlocks(ctx)
				r.logger.Println("Log channel closed")
				return errors.New("log channel closed")
			}
			r.bufferLog(ctx, raw)

		case <-flushTicker.C:
			// Periodic flush: process finalized blocks (respects the lag
			// window) so buffered logs are written even if the stream
			// goes quiet.
			r.processFinalizedBlocks(ctx)
		}
	}
}

// bufferLog adds a log to the block buffer and processes finalized blocks.
func (r *Runner) bufferLog(ctx context.Context, raw *domain.RawLog) {
	block := raw.BlockNumber
	r.buffer[block] = append(r.buffer[block], raw)

	if block > r.highestBlock {
		r.highestBlock = block
		observability.UpdateHighestBlock(block)
		r.processFinalizedBlocks(ctx)
	} else if r.highestBlock >= r.blockLagWindow && block <= r.highestBlock-r.blockLagWindow {
		// Late log for an already-finalized block: process immediately
		r.processBlock(ctx, block)
	}
}

// processFinalizedBlocks processes all blocks behind the stream head by
// the lag window, in order.
func (r *Runner) processFinalizedBlocks(ctx context.Context) {
	if r.highestBlock < r.blockLagWindow {
		return
	}
	finalized := r.highestBlock - r.blockLagWindow

	var blocks []uint64
	for block := range r.buffer {
		if block <= finalized {
			blocks = append(blocks, block)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	for _, block := range blocks {
		r.processBlock(ctx, block)
	}
	observability.UpdateLogBufferSize(len(r.buffer))
}

// processBlock processes all logs for a single block with deterministic
// ordering.
func (r *Runner) processBlock(ctx context.Context, block uint64) {
	logs := r.buffer[block]
	delete(r.buffer, block)
	if len(logs) == 0 {
		return
	}

	SortRawLogs(logs)
	for _, raw := range logs {
		r.processWithRetry(ctx, raw)
	}
}

// flushAllBlocks processes all remaining buffered logs on shutdown.
func (r *Runner) flushAllBlocks(ctx context.Context) {
	var blocks []uint64
	for block := range r.buffer {
		blocks = append(blocks, block)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	for _, block := range blocks {
		r.processBlock(ctx, block)
	}
}

// processWithRetry redelivers one log until its storage effect lands.
// Only storage errors surface from Process, so retrying preserves the
// at-least-once contract; the idempotency guard absorbs overlap if a
// retry races a partial write.
func (r *Runner) processWithRetry(ctx context.Context, raw *domain.RawLog) {
	delay := r.retryBaseDelay
	for {
		err := r.pipeline.Process(ctx, raw)
		if err == nil {
			return
		}
		r.logger.Printf("Error processing log %s/%d, retrying in %v: %v", raw.TxHash, raw.LogIndex, delay, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}
