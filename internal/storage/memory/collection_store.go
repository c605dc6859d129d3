package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// CollectionStore is an in-memory implementation of storage.CollectionStore.
type CollectionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Collection
}

// NewCollectionStore creates a new in-memory collection store.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		data: make(map[string]*domain.Collection),
	}
}

// Compile-time interface check.
var _ storage.CollectionStore = (*CollectionStore)(nil)

// ApplySale merges one sale into the cumulative totals.
func (s *CollectionStore) ApplySale(_ context.Context, address string, amount *big.Int, timestamp int64) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	if amount == nil {
		amount = new(big.Int)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[address]
	if !exists {
		s.data[address] = &domain.Collection{
			Address:     address,
			TotalVolume: new(big.Int).Set(amount),
			TotalSales:  1,
			Volume24h:   new(big.Int),
			Volume7d:    new(big.Int),
			LastSaleAt:  timestamp,
		}
		return nil
	}

	c.TotalVolume = new(big.Int).Add(c.TotalVolume, amount)
	c.TotalSales++
	if timestamp > c.LastSaleAt {
		c.LastSaleAt = timestamp
	}
	return nil
}

// SetWindows replaces the rolling window totals.
func (s *CollectionStore) SetWindows(_ context.Context, address string, w domain.CollectionWindows) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}

	c.Volume24h = bigOrZero(w.Volume24h)
	c.Volume7d = bigOrZero(w.Volume7d)
	c.Sales24h = w.Sales24h
	c.Sales7d = w.Sales7d
	return nil
}

// Get retrieves a collection by address. Returns ErrNotFound if not exists.
func (s *CollectionStore) Get(_ context.Context, address string) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyCollection(c), nil
}

// List retrieves all collections, ordered by address ASC.
func (s *CollectionStore) List(_ context.Context) ([]*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Collection, 0, len(s.data))
	for _, c := range s.data {
		result = append(result, copyCollection(c))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

func copyCollection(c *domain.Collection) *domain.Collection {
	copy := *c
	copy.TotalVolume = new(big.Int).Set(c.TotalVolume)
	copy.Volume24h = new(big.Int).Set(c.Volume24h)
	copy.Volume7d = new(big.Int).Set(c.Volume7d)
	return &copy
}

// bigOrZero copies n, treating nil as zero.
func bigOrZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(n)
}
