package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// CancellationStore is an in-memory implementation of storage.CancellationStore.
type CancellationStore struct {
	mu   sync.RWMutex
	data []*domain.Cancellation
	keys map[logKey]bool
}

// NewCancellationStore creates a new in-memory cancellation store.
func NewCancellationStore() *CancellationStore {
	return &CancellationStore{
		data: make([]*domain.Cancellation, 0),
		keys: make(map[logKey]bool),
	}
}

// Compile-time interface check.
var _ storage.CancellationStore = (*CancellationStore)(nil)

// Insert adds a new cancellation. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
func (s *CancellationStore) Insert(_ context.Context, c *domain.Cancellation) error {
	if c == nil {
		return storage.ErrInvalidInput
	}

	key := logKey{TxHash: c.TxHash, LogIndex: c.LogIndex}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	copy := *c
	s.data = append(s.data, &copy)
	s.keys[key] = true

	return nil
}

// GetByOrderHash retrieves all cancellations for an order hash.
func (s *CancellationStore) GetByOrderHash(_ context.Context, orderHash string) ([]*domain.Cancellation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Cancellation
	for _, c := range s.data {
		if c.OrderHash == orderHash {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].LogIndex < result[j].LogIndex
	})

	return result, nil
}
