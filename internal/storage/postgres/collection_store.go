package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// CollectionStore implements storage.CollectionStore using PostgreSQL.
type CollectionStore struct {
	pool *Pool
}

// NewCollectionStore creates a new CollectionStore.
func NewCollectionStore(pool *Pool) *CollectionStore {
	return &CollectionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CollectionStore = (*CollectionStore)(nil)

// ApplySale merges one sale into the cumulative totals.
func (s *CollectionStore) ApplySale(ctx context.Context, address string, amount *big.Int, timestamp int64) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO collections (
			address, total_volume, total_sales,
			volume_24h, volume_7d, sales_24h, sales_7d, last_sale_at
		) VALUES ($1, $2, 1, 0, 0, 0, 0, $3)
		ON CONFLICT (address) DO UPDATE SET
			total_volume = collections.total_volume + EXCLUDED.total_volume,
			total_sales  = collections.total_sales + 1,
			last_sale_at = GREATEST(collections.last_sale_at, EXCLUDED.last_sale_at)
	`

	_, err := s.pool.db(ctx).Exec(ctx, query, address, numericArg(amount), timestamp)
	if err != nil {
		return fmt.Errorf("apply sale to collection %s: %w", address, err)
	}
	return nil
}

// SetWindows replaces the rolling window totals.
func (s *CollectionStore) SetWindows(ctx context.Context, address string, w domain.CollectionWindows) error {
	query := `
		UPDATE collections
		SET volume_24h = $2, volume_7d = $3, sales_24h = $4, sales_7d = $5
		WHERE address = $1
	`

	tag, err := s.pool.db(ctx).Exec(ctx, query,
		address, numericArg(w.Volume24h), numericArg(w.Volume7d), w.Sales24h, w.Sales7d,
	)
	if err != nil {
		return fmt.Errorf("set collection windows: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves a collection by address. Returns ErrNotFound if not exists.
func (s *CollectionStore) Get(ctx context.Context, address string) (*domain.Collection, error) {
	query := `
		SELECT address, total_volume::text, total_sales,
			volume_24h::text, volume_7d::text, sales_24h, sales_7d, last_sale_at
		FROM collections
		WHERE address = $1
	`

	row := s.pool.db(ctx).QueryRow(ctx, query, address)
	collection, err := scanCollection(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return collection, nil
}

// List retrieves all collections, ordered by address ASC.
func (s *CollectionStore) List(ctx context.Context) ([]*domain.Collection, error) {
	query := `
		SELECT address, total_volume::text, total_sales,
			volume_24h::text, volume_7d::text, sales_24h, sales_7d, last_sale_at
		FROM collections
		ORDER BY address ASC
	`

	rows, err := s.pool.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		collections = append(collections, collection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection rows: %w", err)
	}

	return collections, nil
}

func scanCollection(row pgx.Row) (*domain.Collection, error) {
	var (
		c                              domain.Collection
		totalVolume, vol24h, vol7d string
	)

	err := row.Scan(
		&c.Address,
		&totalVolume,
		&c.TotalSales,
		&vol24h,
		&vol7d,
		&c.Sales24h,
		&c.Sales7d,
		&c.LastSaleAt,
	)
	if err != nil {
		return nil, err
	}

	if c.TotalVolume, err = parseNumeric(totalVolume); err != nil {
		return nil, err
	}
	if c.Volume24h, err = parseNumeric(vol24h); err != nil {
		return nil, err
	}
	if c.Volume7d, err = parseNumeric(vol7d); err != nil {
		return nil, err
	}

	return &c, nil
}
