package domain

import "math/big"

// SnapshotBucketSeconds is the coarse timestamp granularity of volume
// snapshots: one bucket per hour.
const SnapshotBucketSeconds int64 = 3600

// SnapshotBucket truncates a Unix-seconds timestamp to its hour bucket.
func SnapshotBucket(timestamp int64) int64 {
	return timestamp - timestamp%SnapshotBucketSeconds
}

// VolumeSnapshot is one hour bucket of per-collection trading activity.
// Corresponds to the volume_snapshots table; identity is
// (collection, bucket). Rows are created or merged on each sale and
// never deleted, forming the trend history surge detection reads.
//
// BucketVolume/BucketSales are partial sums local to the bucket; window
// totals are the sum of partials over the buckets a window covers. The
// rolled 1h/24h fields are the window totals as of the bucket's last
// update.
type VolumeSnapshot struct {
	Collection   string // PRIMARY KEY part 1
	Bucket       int64  // PRIMARY KEY part 2, hour-truncated Unix seconds
	BucketVolume *big.Int
	BucketSales  int64
	Volume1h     *big.Int
	Volume24h    *big.Int
	Sales1h      int64
	Sales24h     int64
	AvgPrice1h   *big.Int
	AvgPrice24h  *big.Int
}

// SnapshotWindows are the rolled window totals written back onto the
// bucket a sale landed in.
type SnapshotWindows struct {
	Volume1h    *big.Int
	Volume24h   *big.Int
	Sales1h     int64
	Sales24h    int64
	AvgPrice1h  *big.Int
	AvgPrice24h *big.Int
}
