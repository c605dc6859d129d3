package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camdengrieh/flowties-sub000/internal/chainlog"
	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/ingest"
	"github.com/camdengrieh/flowties-sub000/internal/observability"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
	clickstore "github.com/camdengrieh/flowties-sub000/internal/storage/clickhouse"
	"github.com/camdengrieh/flowties-sub000/internal/storage/memory"
	"github.com/camdengrieh/flowties-sub000/internal/storage/migrations"
	pgstore "github.com/camdengrieh/flowties-sub000/internal/storage/postgres"
)

func main() {
	// Parse flags
	wsEndpoint := flag.String("ws-endpoint", "", "Chain log relay WebSocket endpoint")
	contract := flag.String("contract", "", "Settlement contract address to monitor")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the analytic sale archive (empty to disable)")
	platform := flag.String("platform", domain.PlatformFlowties, "Platform tag written on records")
	blockLag := flag.Uint64("block-lag", 3, "Blocks to buffer for deterministic ordering")
	flushInterval := flag.Duration("flush-interval", 5*time.Second, "Interval for periodic buffer flush")
	migrate := flag.Bool("migrate", true, "Apply storage migrations on startup")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err := run(ctx, logger, runConfig{
		wsEndpoint:    *wsEndpoint,
		contract:      *contract,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		platform:      *platform,
		blockLag:      *blockLag,
		flushInterval: *flushInterval,
		migrate:       *migrate,
		useMemory:     *useMemory,
	})

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runConfig struct {
	wsEndpoint    string
	contract      string
	postgresDSN   string
	clickhouseDSN string
	platform      string
	blockLag      uint64
	flushInterval time.Duration
	migrate       bool
	useMemory     bool
}

// run wires the stores, recorders and runner, then ingests until the
// context is cancelled.
func run(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	if cfg.wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}
	if cfg.contract == "" {
		return fmt.Errorf("--contract is required")
	}
	if !cfg.useMemory && cfg.postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create stores (use interfaces)
	var (
		unit              storage.TxRunner          = memory.NewUnit()
		saleStore         storage.SaleStore         = memory.NewSaleStore()
		offerStore        storage.OfferStore        = memory.NewOfferStore()
		cancellationStore storage.CancellationStore = memory.NewCancellationStore()
		userStore         storage.UserStore         = memory.NewUserStore()
		collectionStore   storage.CollectionStore   = memory.NewCollectionStore()
		snapshotStore     storage.SnapshotStore     = memory.NewSnapshotStore()
	)

	if !cfg.useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if cfg.migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return fmt.Errorf("run postgres migrations: %w", err)
			}
			logger.Println("Postgres migrations applied")
		}

		unit = pool
		saleStore = pgstore.NewSaleStore(pool)
		offerStore = pgstore.NewOfferStore(pool)
		cancellationStore = pgstore.NewCancellationStore(pool)
		userStore = pgstore.NewUserStore(pool)
		collectionStore = pgstore.NewCollectionStore(pool)
		snapshotStore = pgstore.NewSnapshotStore(pool)
	}

	// Optional analytic archive
	var archive storage.SaleArchive
	if cfg.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer conn.Close()

		archive = clickstore.NewSaleArchiveStore(conn)
		logger.Println("Sale archive enabled")
	}

	// Create recorders
	saleRecorder := ingest.NewSaleRecorder(ingest.SaleRecorderOptions{
		Unit:     unit,
		Sales:    saleStore,
		Users:    ingest.NewUserStatAggregator(userStore),
		Windows:  ingest.NewVolumeWindowTracker(collectionStore, snapshotStore),
		Archive:  archive,
		Platform: cfg.platform,
		Logger:   logger,
	})

	pipeline := ingest.NewPipeline(ingest.PipelineOptions{
		Sales:         saleRecorder,
		Offers:        ingest.NewOfferRecorder(offerStore, cfg.platform),
		Cancellations: ingest.NewCancellationRecorder(cancellationStore),
		Logger:        logger,
	})

	source := chainlog.NewWSSource(cfg.wsEndpoint, cfg.contract, nil, logger)

	runner := ingest.NewRunner(ingest.RunnerOptions{
		Source:         source,
		Pipeline:       pipeline,
		BlockLagWindow: cfg.blockLag,
		FlushInterval:  cfg.flushInterval,
		Logger:         logger,
	})

	logger.Printf("Starting live ingestion for contract %s", cfg.contract)
	return runner.Run(ctx)
}
