package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// OfferStore implements storage.OfferStore using PostgreSQL.
type OfferStore struct {
	pool *Pool
}

// NewOfferStore creates a new OfferStore.
func NewOfferStore(pool *Pool) *OfferStore {
	return &OfferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OfferStore = (*OfferStore)(nil)

const offerColumns = `
	tx_hash, log_index, order_hash, collection, token_id, offerer,
	recipient, price::text, currency, platform, expiration, status,
	block_number, timestamp
`

// Insert adds a new offer. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
func (s *OfferStore) Insert(ctx context.Context, o *domain.Offer) error {
	if o == nil {
		return storage.ErrInvalidInput
	}
	if !o.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO offers (
			tx_hash, log_index, order_hash, collection, token_id, offerer,
			recipient, price, currency, platform, expiration, status,
			block_number, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.db(ctx).Exec(ctx, query,
		o.TxHash,
		o.LogIndex,
		o.OrderHash,
		o.Collection,
		o.TokenID,
		o.Offerer,
		o.Recipient,
		numericArg(o.Price),
		o.Currency,
		o.Platform,
		o.Expiration,
		string(o.Status),
		o.BlockNumber,
		o.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// GetByTxLog retrieves an offer by identity. Returns ErrNotFound if not exists.
func (s *OfferStore) GetByTxLog(ctx context.Context, txHash string, logIndex uint) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE tx_hash = $1 AND log_index = $2`

	row := s.pool.db(ctx).QueryRow(ctx, query, txHash, logIndex)
	offer, err := scanOffer(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return offer, nil
}

// GetByOfferer retrieves all offers made by an address.
func (s *OfferStore) GetByOfferer(ctx context.Context, address string) ([]*domain.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE offerer = $1
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.db(ctx).Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query offers by offerer: %w", err)
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer row: %w", err)
		}
		offers = append(offers, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offer rows: %w", err)
	}

	return offers, nil
}

// UpdateStatus moves an offer to a terminal status. The guarded UPDATE
// only matches rows still in the active state, so the forward-only rule
// is enforced by the store itself under concurrency.
func (s *OfferStore) UpdateStatus(ctx context.Context, txHash string, logIndex uint, next domain.OfferStatus) error {
	if !domain.OfferStatusActive.CanTransitionTo(next) {
		return storage.ErrInvalidTransition
	}

	query := `
		UPDATE offers
		SET status = $3
		WHERE tx_hash = $1 AND log_index = $2 AND status = $4
	`

	tag, err := s.pool.db(ctx).Exec(ctx, query, txHash, logIndex, string(next), string(domain.OfferStatusActive))
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row transitioned: distinguish missing from already terminal.
	if _, err := s.GetByTxLog(ctx, txHash, logIndex); err != nil {
		return err
	}
	return storage.ErrInvalidTransition
}

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var (
		offer  domain.Offer
		price  string
		status string
	)

	err := row.Scan(
		&offer.TxHash,
		&offer.LogIndex,
		&offer.OrderHash,
		&offer.Collection,
		&offer.TokenID,
		&offer.Offerer,
		&offer.Recipient,
		&price,
		&offer.Currency,
		&offer.Platform,
		&offer.Expiration,
		&status,
		&offer.BlockNumber,
		&offer.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if offer.Price, err = parseNumeric(price); err != nil {
		return nil, err
	}
	offer.Status = domain.OfferStatus(status)

	return &offer, nil
}
