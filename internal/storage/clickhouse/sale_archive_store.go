package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// SaleArchiveStore writes finalized sales to the analytic archive.
// Writes are append-only and best-effort; the transactional source of
// truth stays in Postgres.
type SaleArchiveStore struct {
	conn *Conn
}

// NewSaleArchiveStore creates a new ClickHouse sale archive store.
func NewSaleArchiveStore(conn *Conn) *SaleArchiveStore {
	return &SaleArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SaleArchive = (*SaleArchiveStore)(nil)

// InsertBulk appends a batch of sales to the archive.
func (s *SaleArchiveStore) InsertBulk(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	batch, err := s.conn.conn.PrepareBatch(ctx, `
		INSERT INTO sales_archive (
			tx_hash, log_index, order_hash, collection, token_id,
			seller, buyer, price, currency, currency_address,
			platform, block_number, timestamp, gas_used, gas_price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare sale archive batch: %w", err)
	}

	for _, sale := range sales {
		err := batch.Append(
			sale.TxHash,
			uint64(sale.LogIndex),
			sale.OrderHash,
			sale.Collection,
			sale.TokenID,
			sale.Seller,
			sale.Buyer,
			archiveAmount(sale.Price),
			sale.Currency,
			sale.CurrencyAddress,
			sale.Platform,
			sale.BlockNumber,
			time.Unix(sale.Timestamp, 0).UTC(),
			sale.GasUsed,
			archiveAmount(sale.GasPrice),
		)
		if err != nil {
			return fmt.Errorf("append sale %s/%d: %w", sale.TxHash, sale.LogIndex, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send sale archive batch: %w", err)
	}

	return nil
}

// archiveAmount normalizes nil big.Ints for the UInt256 columns.
func archiveAmount(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}
