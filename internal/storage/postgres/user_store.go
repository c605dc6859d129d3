package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
	"github.com/camdengrieh/flowties-sub000/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// ApplySaleSide merges one sale side into the user's cumulative totals.
// The upsert mirrors domain.User.ApplySaleSide: role totals accumulate,
// last_activity advances monotonically and first_seen is written only
// on row creation. Row-level locking on the conflict target serializes
// concurrent applications for the same address.
func (s *UserStore) ApplySaleSide(ctx context.Context, address string, role domain.TradeRole, amount *big.Int, timestamp int64) error {
	if address == "" || !role.IsValid() {
		return storage.ErrInvalidInput
	}

	soldVolume, boughtVolume := "0", "0"
	var soldItems, boughtItems int64
	switch role {
	case domain.RoleSeller:
		soldVolume = numericArg(amount)
		soldItems = 1
	case domain.RoleBuyer:
		boughtVolume = numericArg(amount)
		boughtItems = 1
	}

	query := `
		INSERT INTO users (
			address, total_volume_sold, total_items_sold,
			total_volume_bought, total_items_bought, first_seen, last_activity
		) VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (address) DO UPDATE SET
			total_volume_sold   = users.total_volume_sold + EXCLUDED.total_volume_sold,
			total_items_sold    = users.total_items_sold + EXCLUDED.total_items_sold,
			total_volume_bought = users.total_volume_bought + EXCLUDED.total_volume_bought,
			total_items_bought  = users.total_items_bought + EXCLUDED.total_items_bought,
			last_activity       = GREATEST(users.last_activity, EXCLUDED.last_activity)
	`

	_, err := s.pool.db(ctx).Exec(ctx, query,
		address, soldVolume, soldItems, boughtVolume, boughtItems, timestamp,
	)
	if err != nil {
		return fmt.Errorf("apply sale side for %s: %w", address, err)
	}
	return nil
}

// Get retrieves a user by address. Returns ErrNotFound if not exists.
func (s *UserStore) Get(ctx context.Context, address string) (*domain.User, error) {
	query := `
		SELECT address, total_volume_sold::text, total_items_sold,
			total_volume_bought::text, total_items_bought, first_seen, last_activity
		FROM users
		WHERE address = $1
	`

	row := s.pool.db(ctx).QueryRow(ctx, query, address)
	user, err := scanUser(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List retrieves all users, ordered by address ASC.
func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT address, total_volume_sold::text, total_items_sold,
			total_volume_bought::text, total_items_bought, first_seen, last_activity
		FROM users
		ORDER BY address ASC
	`

	rows, err := s.pool.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user   domain.User
		sold   string
		bought string
	)

	err := row.Scan(
		&user.Address,
		&sold,
		&user.TotalItemsSold,
		&bought,
		&user.TotalItemsBought,
		&user.FirstSeen,
		&user.LastActivity,
	)
	if err != nil {
		return nil, err
	}

	if user.TotalVolumeSold, err = parseNumeric(sold); err != nil {
		return nil, err
	}
	if user.TotalVolumeBought, err = parseNumeric(bought); err != nil {
		return nil, err
	}

	return &user, nil
}
