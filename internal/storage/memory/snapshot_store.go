package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// snapshotKey is the composite key for volume snapshot buckets.
type snapshotKey struct {
	Collection string
	Bucket     int64
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.VolumeSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.VolumeSnapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// ApplySale merges a sale into the (collection, bucket) partial sums.
func (s *SnapshotStore) ApplySale(_ context.Context, collection string, bucket int64, amount *big.Int) error {
	if collection == "" {
		return storage.ErrInvalidInput
	}
	if amount == nil {
		amount = new(big.Int)
	}

	key := snapshotKey{Collection: collection, Bucket: bucket}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, exists := s.data[key]
	if !exists {
		s.data[key] = &domain.VolumeSnapshot{
			Collection:   collection,
			Bucket:       bucket,
			BucketVolume: new(big.Int).Set(amount),
			BucketSales:  1,
			Volume1h:     new(big.Int),
			Volume24h:    new(big.Int),
			AvgPrice1h:   new(big.Int),
			AvgPrice24h:  new(big.Int),
		}
		return nil
	}

	snap.BucketVolume = new(big.Int).Add(snap.BucketVolume, amount)
	snap.BucketSales++
	return nil
}

// SetWindows replaces the rolled window totals on a bucket.
func (s *SnapshotStore) SetWindows(_ context.Context, collection string, bucket int64, w domain.SnapshotWindows) error {
	key := snapshotKey{Collection: collection, Bucket: bucket}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, exists := s.data[key]
	if !exists {
		return storage.ErrNotFound
	}

	snap.Volume1h = bigOrZero(w.Volume1h)
	snap.Volume24h = bigOrZero(w.Volume24h)
	snap.Sales1h = w.Sales1h
	snap.Sales24h = w.Sales24h
	snap.AvgPrice1h = bigOrZero(w.AvgPrice1h)
	snap.AvgPrice24h = bigOrZero(w.AvgPrice24h)
	return nil
}

// Get retrieves one bucket. Returns ErrNotFound if not exists.
func (s *SnapshotStore) Get(_ context.Context, collection string, bucket int64) (*domain.VolumeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotKey{Collection: collection, Bucket: bucket}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// GetSince retrieves all buckets for a collection with bucket >= since.
func (s *SnapshotStore) GetSince(_ context.Context, collection string, since int64) ([]*domain.VolumeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VolumeSnapshot
	for key, snap := range s.data {
		if key.Collection == collection && key.Bucket >= since {
			result = append(result, copySnapshot(snap))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Bucket < result[j].Bucket
	})

	return result, nil
}

func copySnapshot(snap *domain.VolumeSnapshot) *domain.VolumeSnapshot {
	copy := *snap
	copy.BucketVolume = new(big.Int).Set(snap.BucketVolume)
	copy.Volume1h = new(big.Int).Set(snap.Volume1h)
	copy.Volume24h = new(big.Int).Set(snap.Volume24h)
	copy.AvgPrice1h = new(big.Int).Set(snap.AvgPrice1h)
	copy.AvgPrice24h = new(big.Int).Set(snap.AvgPrice24h)
	return &copy
}
