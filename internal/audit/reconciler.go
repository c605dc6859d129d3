// Package audit reconciles stored aggregates against the sale rows they
// were derived from. The sales table is the source of truth: any
// aggregate that cannot be recomputed from it is a violation.
package audit

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/big"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/observability"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// FieldViolation represents a mismatch between a recomputed and a
// stored aggregate value.
type FieldViolation struct {
	Field    string // field name
	Expected string // value recomputed from sale rows
	Actual   string // stored value
}

// UserResult contains the result of reconciling a single user.
type UserResult struct {
	Address    string
	Match      bool
	Violations []FieldViolation
}

// CollectionResult contains the result of reconciling a single collection.
type CollectionResult struct {
	Address    string
	Match      bool
	Violations []FieldViolation
}

// Report contains results for a full reconciliation pass.
type Report struct {
	UsersChecked       int
	UsersMatched       int
	CollectionsChecked int
	CollectionsMatched int
	Users              []UserResult
	Collections        []CollectionResult
}

// Violations returns the total number of field violations found.
func (r *Report) Violations() int {
	total := 0
	for _, u := range r.Users {
		total += len(u.Violations)
	}
	for _, c := range r.Collections {
		total += len(c.Violations)
	}
	return total
}

// Reconciler recomputes user and collection aggregates from stored
// sales and compares them against the stored rows.
type Reconciler struct {
	sales       storage.SaleStore
	users       storage.UserStore
	collections storage.CollectionStore
	logger      *log.Logger
}

// ReconcilerOptions contains configuration for creating a Reconciler.
type ReconcilerOptions struct {
	Sales       storage.SaleStore
	Users       storage.UserStore
	Collections storage.CollectionStore
	Logger      *log.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Reconciler{
		sales:       opts.Sales,
		users:       opts.Users,
		collections: opts.Collections,
		logger:      logger,
	}
}

// VerifyAll reconciles every stored user and collection.
func (r *Reconciler) VerifyAll(ctx context.Context) (*Report, error) {
	report := &Report{}

	users, err := r.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, user := range users {
		result, err := r.verifyUser(ctx, user)
		if err != nil {
			return nil, err
		}
		report.UsersChecked++
		if result.Match {
			report.UsersMatched++
		}
		report.Users = append(report.Users, *result)
	}

	collections, err := r.collections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, collection := range collections {
		result, err := r.verifyCollection(ctx, collection)
		if err != nil {
			return nil, err
		}
		report.CollectionsChecked++
		if result.Match {
			report.CollectionsMatched++
		}
		report.Collections = append(report.Collections, *result)
	}

	if v := report.Violations(); v > 0 {
		observability.RecordAuditViolation(v)
		r.logger.Printf("Reconciliation found %d violations across %d users and %d collections",
			v, report.UsersChecked, report.CollectionsChecked)
	}

	return report, nil
}

// verifyUser recomputes one user's totals from their sale rows.
func (r *Reconciler) verifyUser(ctx context.Context, user *domain.User) (*UserResult, error) {
	sold, err := r.sales.GetBySeller(ctx, user.Address)
	if err != nil {
		return nil, fmt.Errorf("load sales for seller %s: %w", user.Address, err)
	}
	bought, err := r.sales.GetByBuyer(ctx, user.Address)
	if err != nil {
		return nil, fmt.Errorf("load sales for buyer %s: %w", user.Address, err)
	}

	soldVolume, lastSold := sumSales(sold)
	boughtVolume, lastBought := sumSales(bought)

	lastActivity := lastSold
	if lastBought > lastActivity {
		lastActivity = lastBought
	}

	result := &UserResult{Address: user.Address}
	result.Violations = appendBigViolation(result.Violations, "TotalVolumeSold", soldVolume, user.TotalVolumeSold)
	result.Violations = appendIntViolation(result.Violations, "TotalItemsSold", int64(len(sold)), user.TotalItemsSold)
	result.Violations = appendBigViolation(result.Violations, "TotalVolumeBought", boughtVolume, user.TotalVolumeBought)
	result.Violations = appendIntViolation(result.Violations, "TotalItemsBought", int64(len(bought)), user.TotalItemsBought)
	result.Violations = appendIntViolation(result.Violations, "LastActivity", lastActivity, user.LastActivity)
	result.Match = len(result.Violations) == 0

	return result, nil
}

// verifyCollection recomputes one collection's totals from its sale rows.
func (r *Reconciler) verifyCollection(ctx context.Context, collection *domain.Collection) (*CollectionResult, error) {
	sales, err := r.sales.GetByCollectionTimeRange(ctx, collection.Address, 0, math.MaxInt64)
	if err != nil {
		return nil, fmt.Errorf("load sales for collection %s: %w", collection.Address, err)
	}

	volume, lastSaleAt := sumSales(sales)

	result := &CollectionResult{Address: collection.Address}
	result.Violations = appendBigViolation(result.Violations, "TotalVolume", volume, collection.TotalVolume)
	result.Violations = appendIntViolation(result.Violations, "TotalSales", int64(len(sales)), collection.TotalSales)
	result.Violations = appendIntViolation(result.Violations, "LastSaleAt", lastSaleAt, collection.LastSaleAt)
	result.Match = len(result.Violations) == 0

	return result, nil
}

// sumSales returns the price sum and the latest timestamp of a sale set.
func sumSales(sales []*domain.Sale) (*big.Int, int64) {
	volume := new(big.Int)
	var latest int64
	for _, sale := range sales {
		if sale.Price != nil {
			volume.Add(volume, sale.Price)
		}
		if sale.Timestamp > latest {
			latest = sale.Timestamp
		}
	}
	return volume, latest
}

func appendBigViolation(violations []FieldViolation, field string, expected, actual *big.Int) []FieldViolation {
	if actual == nil {
		actual = new(big.Int)
	}
	if expected.Cmp(actual) == 0 {
		return violations
	}
	return append(violations, FieldViolation{
		Field:    field,
		Expected: expected.String(),
		Actual:   actual.String(),
	})
}

func appendIntViolation(violations []FieldViolation, field string, expected, actual int64) []FieldViolation {
	if expected == actual {
		return violations
	}
	return append(violations, FieldViolation{
		Field:    field,
		Expected: fmt.Sprintf("%d", expected),
		Actual:   fmt.Sprintf("%d", actual),
	})
}
