package memory

import (
	"context"
	"sync"
)

// Unit is the in-memory storage.TxRunner. Memory store operations are
// infallible once the duplicate-key guard has passed, so the unit only
// needs to serialize whole sale-effect applications; there is no
// rollback machinery. The Postgres runner provides real transactional
// rollback for the same call sites.
type Unit struct {
	mu sync.Mutex
}

// NewUnit creates a new in-memory transaction runner.
func NewUnit() *Unit {
	return &Unit{}
}

// RunInTx serializes fn against all other units run through this runner.
func (u *Unit) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(ctx)
}
