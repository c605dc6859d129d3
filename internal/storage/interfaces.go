package storage

import (
	"context"
	"math/big"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
)

// TxRunner executes fn inside a single transaction scope. Every store
// call made with the ctx passed to fn joins the same transaction; any
// error from fn rolls the whole unit back. The in-memory implementation
// degrades to a mutex (its store operations cannot fail mid-unit).
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SaleStore provides access to sales storage. Rows are immutable.
type SaleStore interface {
	// Insert adds a new sale. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
	Insert(ctx context.Context, s *domain.Sale) error

	// Exists reports whether a sale with the given identity was recorded.
	Exists(ctx context.Context, txHash string, logIndex uint) (bool, error)

	// GetByTxLog retrieves a sale by identity. Returns ErrNotFound if not exists.
	GetByTxLog(ctx context.Context, txHash string, logIndex uint) (*domain.Sale, error)

	// GetBySeller retrieves all sales where the address is the seller,
	// ordered by (block_number, log_index) ASC.
	GetBySeller(ctx context.Context, address string) ([]*domain.Sale, error)

	// GetByBuyer retrieves all sales where the address is the buyer,
	// ordered by (block_number, log_index) ASC.
	GetByBuyer(ctx context.Context, address string) ([]*domain.Sale, error)

	// GetByCollectionTimeRange retrieves sales for a collection within
	// [start, end] (inclusive), ordered by timestamp ASC.
	GetByCollectionTimeRange(ctx context.Context, collection string, start, end int64) ([]*domain.Sale, error)
}

// OfferStore provides access to offers storage.
type OfferStore interface {
	// Insert adds a new offer. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
	Insert(ctx context.Context, o *domain.Offer) error

	// GetByTxLog retrieves an offer by identity. Returns ErrNotFound if not exists.
	GetByTxLog(ctx context.Context, txHash string, logIndex uint) (*domain.Offer, error)

	// GetByOfferer retrieves all offers made by an address,
	// ordered by (block_number, log_index) ASC.
	GetByOfferer(ctx context.Context, address string) ([]*domain.Offer, error)

	// UpdateStatus moves an offer to a terminal status. Returns
	// ErrNotFound if the offer does not exist and ErrInvalidTransition
	// if the transition is not active -> terminal.
	UpdateStatus(ctx context.Context, txHash string, logIndex uint, next domain.OfferStatus) error
}

// CancellationStore provides access to cancellations storage. Rows are
// immutable and carry no foreign-key requirement toward offers.
type CancellationStore interface {
	// Insert adds a new cancellation. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
	Insert(ctx context.Context, c *domain.Cancellation) error

	// GetByOrderHash retrieves all cancellations for an order hash.
	GetByOrderHash(ctx context.Context, orderHash string) ([]*domain.Cancellation, error)
}

// UserStore provides access to users storage.
type UserStore interface {
	// ApplySaleSide merges one sale side into the user's cumulative
	// totals as a single conditional upsert (see domain.User.ApplySaleSide
	// for the merge semantics). Creates the row on first contact.
	ApplySaleSide(ctx context.Context, address string, role domain.TradeRole, amount *big.Int, timestamp int64) error

	// Get retrieves a user by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.User, error)

	// List retrieves all users, ordered by address ASC.
	List(ctx context.Context) ([]*domain.User, error)
}

// CollectionStore provides access to collections storage.
type CollectionStore interface {
	// ApplySale merges one sale into the cumulative totals
	// (total_volume += amount, total_sales += 1) as a conditional upsert.
	ApplySale(ctx context.Context, address string, amount *big.Int, timestamp int64) error

	// SetWindows replaces the rolling window totals.
	// Returns ErrNotFound if the collection does not exist.
	SetWindows(ctx context.Context, address string, w domain.CollectionWindows) error

	// Get retrieves a collection by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.Collection, error)

	// List retrieves all collections, ordered by address ASC.
	List(ctx context.Context) ([]*domain.Collection, error)
}

// SnapshotStore provides access to volume_snapshots storage.
type SnapshotStore interface {
	// ApplySale merges a sale into the (collection, bucket) partial sums,
	// creating the bucket row if needed.
	ApplySale(ctx context.Context, collection string, bucket int64, amount *big.Int) error

	// SetWindows replaces the rolled window totals on a bucket.
	// Returns ErrNotFound if the bucket row does not exist.
	SetWindows(ctx context.Context, collection string, bucket int64, w domain.SnapshotWindows) error

	// Get retrieves one bucket. Returns ErrNotFound if not exists.
	Get(ctx context.Context, collection string, bucket int64) (*domain.VolumeSnapshot, error)

	// GetSince retrieves all buckets for a collection with
	// bucket >= since, ordered by bucket ASC.
	GetSince(ctx context.Context, collection string, since int64) ([]*domain.VolumeSnapshot, error)
}

// SaleArchive is an append-only analytic copy of sales, written
// best-effort after the transactional unit commits.
type SaleArchive interface {
	// InsertBulk appends sales to the archive.
	InsertBulk(ctx context.Context, sales []*domain.Sale) error
}
