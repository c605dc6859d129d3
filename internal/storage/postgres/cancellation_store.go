package postgres

import (
	"context"
	"fmt"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// CancellationStore implements storage.CancellationStore using PostgreSQL.
type CancellationStore struct {
	pool *Pool
}

// NewCancellationStore creates a new CancellationStore.
func NewCancellationStore(pool *Pool) *CancellationStore {
	return &CancellationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CancellationStore = (*CancellationStore)(nil)

// Insert adds a new cancellation. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
func (s *CancellationStore) Insert(ctx context.Context, c *domain.Cancellation) error {
	if c == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO cancellations (
			tx_hash, log_index, order_hash, offerer, block_number, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.db(ctx).Exec(ctx, query,
		c.TxHash,
		c.LogIndex,
		c.OrderHash,
		c.Offerer,
		c.BlockNumber,
		c.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert cancellation: %w", err)
	}
	return nil
}

// GetByOrderHash retrieves all cancellations for an order hash.
func (s *CancellationStore) GetByOrderHash(ctx context.Context, orderHash string) ([]*domain.Cancellation, error) {
	query := `
		SELECT tx_hash, log_index, order_hash, offerer, block_number, timestamp
		FROM cancellations
		WHERE order_hash = $1
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.db(ctx).Query(ctx, query, orderHash)
	if err != nil {
		return nil, fmt.Errorf("query cancellations: %w", err)
	}
	defer rows.Close()

	var cancellations []*domain.Cancellation
	for rows.Next() {
		var c domain.Cancellation
		err := rows.Scan(&c.TxHash, &c.LogIndex, &c.OrderHash, &c.Offerer, &c.BlockNumber, &c.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan cancellation row: %w", err)
		}
		cancellations = append(cancellations, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cancellation rows: %w", err)
	}

	return cancellations, nil
}
