package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore. The
// merge itself is domain.User.ApplySaleSide; the store lock makes the
// read-modify-write atomic per call, matching the Postgres upsert.
type UserStore struct {
	mu   sync.RWMutex
	data map[string]*domain.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		data: make(map[string]*domain.User),
	}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// ApplySaleSide merges one sale side into the user's cumulative totals,
// creating the row on first contact.
func (s *UserStore) ApplySaleSide(_ context.Context, address string, role domain.TradeRole, amount *big.Int, timestamp int64) error {
	if address == "" || !role.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.data[address]
	if !exists {
		s.data[address] = domain.NewUserFromSale(address, role, amount, timestamp)
		return nil
	}

	u.ApplySaleSide(role, amount, timestamp)
	return nil
}

// Get retrieves a user by address. Returns ErrNotFound if not exists.
func (s *UserStore) Get(_ context.Context, address string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

// List retrieves all users, ordered by address ASC.
func (s *UserStore) List(_ context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.User, 0, len(s.data))
	for _, u := range s.data {
		result = append(result, copyUser(u))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// copyUser deep-copies a user so callers cannot mutate stored totals.
func copyUser(u *domain.User) *domain.User {
	copy := *u
	copy.TotalVolumeSold = new(big.Int).Set(u.TotalVolumeSold)
	copy.TotalVolumeBought = new(big.Int).Set(u.TotalVolumeBought)
	return &copy
}
