package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// SaleStore implements storage.SaleStore using PostgreSQL.
type SaleStore struct {
	pool *Pool
}

// NewSaleStore creates a new SaleStore.
func NewSaleStore(pool *Pool) *SaleStore {
	return &SaleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SaleStore = (*SaleStore)(nil)

const saleColumns = `
	tx_hash, log_index, order_hash, collection, token_id, seller, buyer,
	price::text, currency, currency_address, platform, block_number,
	timestamp, gas_used, gas_price::text
`

// Insert adds a new sale. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
func (s *SaleStore) Insert(ctx context.Context, sale *domain.Sale) error {
	if sale == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sales (
			tx_hash, log_index, order_hash, collection, token_id, seller, buyer,
			price, currency, currency_address, platform, block_number,
			timestamp, gas_used, gas_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.db(ctx).Exec(ctx, query,
		sale.TxHash,
		sale.LogIndex,
		sale.OrderHash,
		sale.Collection,
		sale.TokenID,
		sale.Seller,
		sale.Buyer,
		numericArg(sale.Price),
		sale.Currency,
		sale.CurrencyAddress,
		sale.Platform,
		sale.BlockNumber,
		sale.Timestamp,
		sale.GasUsed,
		numericArg(sale.GasPrice),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// Exists reports whether a sale with the given identity was recorded.
func (s *SaleStore) Exists(ctx context.Context, txHash string, logIndex uint) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sales WHERE tx_hash = $1 AND log_index = $2)`

	var exists bool
	if err := s.pool.db(ctx).QueryRow(ctx, query, txHash, logIndex).Scan(&exists); err != nil {
		return false, fmt.Errorf("check sale exists: %w", err)
	}
	return exists, nil
}

// GetByTxLog retrieves a sale by identity. Returns ErrNotFound if not exists.
func (s *SaleStore) GetByTxLog(ctx context.Context, txHash string, logIndex uint) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE tx_hash = $1 AND log_index = $2`

	row := s.pool.db(ctx).QueryRow(ctx, query, txHash, logIndex)
	sale, err := scanSale(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

// GetBySeller retrieves all sales where the address is the seller.
func (s *SaleStore) GetBySeller(ctx context.Context, address string) ([]*domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE seller = $1
		ORDER BY block_number ASC, log_index ASC
	`
	return s.querySales(ctx, query, address)
}

// GetByBuyer retrieves all sales where the address is the buyer.
func (s *SaleStore) GetByBuyer(ctx context.Context, address string) ([]*domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE buyer = $1
		ORDER BY block_number ASC, log_index ASC
	`
	return s.querySales(ctx, query, address)
}

// GetByCollectionTimeRange retrieves sales for a collection within [start, end] (inclusive).
func (s *SaleStore) GetByCollectionTimeRange(ctx context.Context, collection string, start, end int64) ([]*domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE collection = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, block_number ASC, log_index ASC
	`
	return s.querySales(ctx, query, collection, start, end)
}

func (s *SaleStore) querySales(ctx context.Context, query string, args ...any) ([]*domain.Sale, error) {
	rows, err := s.pool.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale rows: %w", err)
	}

	return sales, nil
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var (
		sale     domain.Sale
		price    string
		gasPrice string
	)

	err := row.Scan(
		&sale.TxHash,
		&sale.LogIndex,
		&sale.OrderHash,
		&sale.Collection,
		&sale.TokenID,
		&sale.Seller,
		&sale.Buyer,
		&price,
		&sale.Currency,
		&sale.CurrencyAddress,
		&sale.Platform,
		&sale.BlockNumber,
		&sale.Timestamp,
		&sale.GasUsed,
		&gasPrice,
	)
	if err != nil {
		return nil, err
	}

	if sale.Price, err = parseNumeric(price); err != nil {
		return nil, err
	}
	if sale.GasPrice, err = parseNumeric(gasPrice); err != nil {
		return nil, err
	}

	return &sale, nil
}
