package ingest

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// Rolling windows maintained per collection.
const (
	Window1h  = time.Hour
	Window24h = 24 * time.Hour
	Window7d  = 7 * 24 * time.Hour
)

// VolumeWindowTracker maintains per-collection trade aggregates: the
// cumulative totals, the hourly snapshot buckets, and the rolling
// window totals derived from them. Window totals are recomputed from
// bucket partials on every sale rather than decayed incrementally, so a
// replayed stream always converges to the same values.
type VolumeWindowTracker struct {
	collections storage.CollectionStore
	snapshots   storage.SnapshotStore
}

// NewVolumeWindowTracker creates a new volume window tracker.
func NewVolumeWindowTracker(collections storage.CollectionStore, snapshots storage.SnapshotStore) *VolumeWindowTracker {
	return &VolumeWindowTracker{collections: collections, snapshots: snapshots}
}

// ApplySale merges one sale into the collection totals and its hour
// bucket, then refreshes the rolled window totals as of the sale's
// timestamp.
func (t *VolumeWindowTracker) ApplySale(ctx context.Context, collection string, amount *big.Int, timestamp int64) error {
	if err := t.collections.ApplySale(ctx, collection, amount, timestamp); err != nil {
		return fmt.Errorf("apply sale to collection: %w", err)
	}

	bucket := domain.SnapshotBucket(timestamp)
	if err := t.snapshots.ApplySale(ctx, collection, bucket, amount); err != nil {
		return fmt.Errorf("apply sale to snapshot bucket: %w", err)
	}

	snaps, err := t.snapshots.GetSince(ctx, collection, windowFloor(timestamp, Window7d))
	if err != nil {
		return fmt.Errorf("load snapshot buckets: %w", err)
	}

	w1 := sumWindow(snaps, timestamp, Window1h)
	w24 := sumWindow(snaps, timestamp, Window24h)
	w7 := sumWindow(snaps, timestamp, Window7d)

	err = t.snapshots.SetWindows(ctx, collection, bucket, domain.SnapshotWindows{
		Volume1h:    w1.volume,
		Volume24h:   w24.volume,
		Sales1h:     w1.sales,
		Sales24h:    w24.sales,
		AvgPrice1h:  w1.avgPrice(),
		AvgPrice24h: w24.avgPrice(),
	})
	if err != nil {
		return fmt.Errorf("roll snapshot windows: %w", err)
	}

	err = t.collections.SetWindows(ctx, collection, domain.CollectionWindows{
		Volume24h: w24.volume,
		Volume7d:  w7.volume,
		Sales24h:  w24.sales,
		Sales7d:   w7.sales,
	})
	if err != nil {
		return fmt.Errorf("roll collection windows: %w", err)
	}
	return nil
}

// WindowTotals recomputes one rolling window's (volume, sales) for a
// collection from its bucket partials, as of the given timestamp.
func (t *VolumeWindowTracker) WindowTotals(ctx context.Context, collection string, asOf int64, window time.Duration) (*big.Int, int64, error) {
	snaps, err := t.snapshots.GetSince(ctx, collection, windowFloor(asOf, window))
	if err != nil {
		return nil, 0, fmt.Errorf("load snapshot buckets: %w", err)
	}
	w := sumWindow(snaps, asOf, window)
	return w.volume, w.sales, nil
}

type windowTotal struct {
	volume *big.Int
	sales  int64
}

func (w windowTotal) avgPrice() *big.Int {
	if w.sales == 0 {
		return new(big.Int)
	}
	return new(big.Int).Div(w.volume, big.NewInt(w.sales))
}

// sumWindow folds the bucket partials a window covers into one total.
// A window covers the buckets from the hour containing asOf-window up
// to the hour containing asOf; bucket granularity bounds the error at
// the trailing edge to under one hour.
func sumWindow(snaps []*domain.VolumeSnapshot, asOf int64, window time.Duration) windowTotal {
	since := windowFloor(asOf, window)
	until := domain.SnapshotBucket(asOf)

	total := windowTotal{volume: new(big.Int)}
	for _, snap := range snaps {
		if snap.Bucket < since || snap.Bucket > until {
			continue
		}
		total.volume.Add(total.volume, snap.BucketVolume)
		total.sales += snap.BucketSales
	}
	return total
}

func windowFloor(asOf int64, window time.Duration) int64 {
	return domain.SnapshotBucket(asOf - int64(window/time.Second))
}
