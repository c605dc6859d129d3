package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	collection, bucket, bucket_volume::text, bucket_sales,
	volume_1h::text, volume_24h::text, sales_1h, sales_24h,
	avg_price_1h::text, avg_price_24h::text
`

// ApplySale merges a sale into the (collection, bucket) partial sums.
func (s *SnapshotStore) ApplySale(ctx context.Context, collection string, bucket int64, amount *big.Int) error {
	if collection == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO volume_snapshots (
			collection, bucket, bucket_volume, bucket_sales,
			volume_1h, volume_24h, sales_1h, sales_24h, avg_price_1h, avg_price_24h
		) VALUES ($1, $2, $3, 1, 0, 0, 0, 0, 0, 0)
		ON CONFLICT (collection, bucket) DO UPDATE SET
			bucket_volume = volume_snapshots.bucket_volume + EXCLUDED.bucket_volume,
			bucket_sales  = volume_snapshots.bucket_sales + 1
	`

	_, err := s.pool.db(ctx).Exec(ctx, query, collection, bucket, numericArg(amount))
	if err != nil {
		return fmt.Errorf("apply sale to snapshot %s/%d: %w", collection, bucket, err)
	}
	return nil
}

// SetWindows replaces the rolled window totals on a bucket.
func (s *SnapshotStore) SetWindows(ctx context.Context, collection string, bucket int64, w domain.SnapshotWindows) error {
	query := `
		UPDATE volume_snapshots
		SET volume_1h = $3, volume_24h = $4, sales_1h = $5, sales_24h = $6,
			avg_price_1h = $7, avg_price_24h = $8
		WHERE collection = $1 AND bucket = $2
	`

	tag, err := s.pool.db(ctx).Exec(ctx, query,
		collection, bucket,
		numericArg(w.Volume1h), numericArg(w.Volume24h),
		w.Sales1h, w.Sales24h,
		numericArg(w.AvgPrice1h), numericArg(w.AvgPrice24h),
	)
	if err != nil {
		return fmt.Errorf("set snapshot windows: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves one bucket. Returns ErrNotFound if not exists.
func (s *SnapshotStore) Get(ctx context.Context, collection string, bucket int64) (*domain.VolumeSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM volume_snapshots WHERE collection = $1 AND bucket = $2`

	row := s.pool.db(ctx).QueryRow(ctx, query, collection, bucket)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// GetSince retrieves all buckets for a collection with bucket >= since.
func (s *SnapshotStore) GetSince(ctx context.Context, collection string, since int64) ([]*domain.VolumeSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM volume_snapshots
		WHERE collection = $1 AND bucket >= $2
		ORDER BY bucket ASC
	`

	rows, err := s.pool.db(ctx).Query(ctx, query, collection, since)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.VolumeSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

func scanSnapshot(row pgx.Row) (*domain.VolumeSnapshot, error) {
	var (
		snap                               domain.VolumeSnapshot
		bucketVol, vol1h, vol24h           string
		avg1h, avg24h                      string
	)

	err := row.Scan(
		&snap.Collection,
		&snap.Bucket,
		&bucketVol,
		&snap.BucketSales,
		&vol1h,
		&vol24h,
		&snap.Sales1h,
		&snap.Sales24h,
		&avg1h,
		&avg24h,
	)
	if err != nil {
		return nil, err
	}

	if snap.BucketVolume, err = parseNumeric(bucketVol); err != nil {
		return nil, err
	}
	if snap.Volume1h, err = parseNumeric(vol1h); err != nil {
		return nil, err
	}
	if snap.Volume24h, err = parseNumeric(vol24h); err != nil {
		return nil, err
	}
	if snap.AvgPrice1h, err = parseNumeric(avg1h); err != nil {
		return nil, err
	}
	if snap.AvgPrice24h, err = parseNumeric(avg24h); err != nil {
		return nil, err
	}

	return &snap, nil
}
