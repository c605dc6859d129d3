package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// logKey is the composite identity every write path keys on.
type logKey struct {
	TxHash   string
	LogIndex uint
}

// SaleStore is an in-memory implementation of storage.SaleStore.
type SaleStore struct {
	mu   sync.RWMutex
	data []*domain.Sale
	keys map[logKey]bool
}

// NewSaleStore creates a new in-memory sale store.
func NewSaleStore() *SaleStore {
	return &SaleStore{
		data: make([]*domain.Sale, 0),
		keys: make(map[logKey]bool),
	}
}

// Compile-time interface check.
var _ storage.SaleStore = (*SaleStore)(nil)

// Insert adds a new sale. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
func (s *SaleStore) Insert(_ context.Context, sale *domain.Sale) error {
	if sale == nil {
		return storage.ErrInvalidInput
	}

	key := logKey{TxHash: sale.TxHash, LogIndex: sale.LogIndex}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	s.data = append(s.data, copySale(sale))
	s.keys[key] = true

	return nil
}

// Exists reports whether a sale with the given identity was recorded.
func (s *SaleStore) Exists(_ context.Context, txHash string, logIndex uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[logKey{TxHash: txHash, LogIndex: logIndex}], nil
}

// GetByTxLog retrieves a sale by identity. Returns ErrNotFound if not exists.
func (s *SaleStore) GetByTxLog(_ context.Context, txHash string, logIndex uint) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.data {
		if sale.TxHash == txHash && sale.LogIndex == logIndex {
			return copySale(sale), nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetBySeller retrieves all sales where the address is the seller.
func (s *SaleStore) GetBySeller(_ context.Context, address string) ([]*domain.Sale, error) {
	return s.filter(func(sale *domain.Sale) bool { return sale.Seller == address }), nil
}

// GetByBuyer retrieves all sales where the address is the buyer.
func (s *SaleStore) GetByBuyer(_ context.Context, address string) ([]*domain.Sale, error) {
	return s.filter(func(sale *domain.Sale) bool { return sale.Buyer == address }), nil
}

// GetByCollectionTimeRange retrieves sales for a collection within [start, end] (inclusive).
func (s *SaleStore) GetByCollectionTimeRange(_ context.Context, collection string, start, end int64) ([]*domain.Sale, error) {
	result := s.filter(func(sale *domain.Sale) bool {
		return sale.Collection == collection && sale.Timestamp >= start && sale.Timestamp <= end
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].LogIndex < result[j].LogIndex
	})
	return result, nil
}

// filter copies matching sales ordered by (block_number, log_index).
func (s *SaleStore) filter(match func(*domain.Sale) bool) []*domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Sale
	for _, sale := range s.data {
		if match(sale) {
			result = append(result, copySale(sale))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].LogIndex < result[j].LogIndex
	})

	return result
}

// copySale deep-copies a sale so callers cannot mutate stored amounts.
func copySale(sale *domain.Sale) *domain.Sale {
	copy := *sale
	copy.Price = bigOrZero(sale.Price)
	copy.GasPrice = bigOrZero(sale.GasPrice)
	return &copy
}
