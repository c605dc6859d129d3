package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// OfferStore is an in-memory implementation of storage.OfferStore.
type OfferStore struct {
	mu   sync.RWMutex
	data map[logKey]*domain.Offer
}

// NewOfferStore creates a new in-memory offer store.
func NewOfferStore() *OfferStore {
	return &OfferStore{
		data: make(map[logKey]*domain.Offer),
	}
}

// Compile-time interface check.
var _ storage.OfferStore = (*OfferStore)(nil)

// Insert adds a new offer. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
func (s *OfferStore) Insert(_ context.Context, o *domain.Offer) error {
	if o == nil || !o.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	key := logKey{TxHash: o.TxHash, LogIndex: o.LogIndex}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *o
	s.data[key] = &copy

	return nil
}

// GetByTxLog retrieves an offer by identity. Returns ErrNotFound if not exists.
func (s *OfferStore) GetByTxLog(_ context.Context, txHash string, logIndex uint) (*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[logKey{TxHash: txHash, LogIndex: logIndex}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *o
	return &copy, nil
}

// GetByOfferer retrieves all offers made by an address.
func (s *OfferStore) GetByOfferer(_ context.Context, address string) ([]*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Offer
	for _, o := range s.data {
		if o.Offerer == address {
			copy := *o
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

// UpdateStatus moves an offer to a terminal status, enforcing the
// forward-only state machine.
func (s *OfferStore) UpdateStatus(_ context.Context, txHash string, logIndex uint, next domain.OfferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, exists := s.data[logKey{TxHash: txHash, LogIndex: logIndex}]
	if !exists {
		return storage.ErrNotFound
	}
	if !o.Status.CanTransitionTo(next) {
		return storage.ErrInvalidTransition
	}
	o.Status = next
	return nil
}
