package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/camdengrieh/flowties-sub000/internal/audit"
	pgstore "github.com/camdengrieh/flowties-sub000/internal/storage/postgres"
)

func main() {
	// Parse flags
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall reconciliation timeout")
	verbose := flag.Bool("verbose", false, "Print every violation, not just the summary")

	flag.Parse()

	logger := log.New(os.Stdout, "[audit] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	reconciler := audit.NewReconciler(audit.ReconcilerOptions{
		Sales:       pgstore.NewSaleStore(pool),
		Users:       pgstore.NewUserStore(pool),
		Collections: pgstore.NewCollectionStore(pool),
		Logger:      logger,
	})

	report, err := reconciler.VerifyAll(ctx)
	if err != nil {
		logger.Fatalf("Reconciliation failed: %v", err)
	}

	logger.Printf("Users: %d/%d matched, Collections: %d/%d matched",
		report.UsersMatched, report.UsersChecked,
		report.CollectionsMatched, report.CollectionsChecked)

	if *verbose {
		for _, u := range report.Users {
			for _, v := range u.Violations {
				logger.Printf("user %s: %s expected=%s actual=%s", u.Address, v.Field, v.Expected, v.Actual)
			}
		}
		for _, c := range report.Collections {
			for _, v := range c.Violations {
				logger.Printf("collection %s: %s expected=%s actual=%s", c.Address, v.Field, v.Expected, v.Actual)
			}
		}
	}

	if violations := report.Violations(); violations > 0 {
		logger.Printf("FAIL: %d violations", violations)
		os.Exit(1)
	}

	logger.Println("OK: all aggregates reconcile")
}
