package domain

import "math/big"

// TradeRole is the side a user took in a sale.
type TradeRole string

const (
	RoleSeller TradeRole = "seller"
	RoleBuyer  TradeRole = "buyer"
)

// IsValid checks if the role is a known value.
func (r TradeRole) IsValid() bool {
	return r == RoleSeller || r == RoleBuyer
}

// User holds cumulative trading totals for one wallet address.
// Corresponds to the users table; identity is the address.
//
// Invariant: TotalVolumeSold/Bought equal the sum of Sale.Price over
// all sales where the user is seller/buyer, and must hold after any
// replay of the event stream.
type User struct {
	Address           string // PRIMARY KEY
	TotalVolumeSold   *big.Int
	TotalItemsSold    int64
	TotalVolumeBought *big.Int
	TotalItemsBought  int64
	FirstSeen         int64 // set once, minimum timestamp seen
	LastActivity      int64 // maximum timestamp seen
}

// NewUserFromSale seeds a User row from the first sale observed for an
// address. The role decides which side of the totals the amount lands on.
func NewUserFromSale(address string, role TradeRole, amount *big.Int, timestamp int64) *User {
	u := &User{
		Address:           address,
		TotalVolumeSold:   new(big.Int),
		TotalVolumeBought: new(big.Int),
		FirstSeen:         timestamp,
		LastActivity:      timestamp,
	}
	u.merge(role, amount, timestamp)
	return u
}

// ApplySaleSide merges one sale side into the totals: add amount to the
// role's volume, increment the role's item count, advance LastActivity
// to max(LastActivity, timestamp). FirstSeen is never updated after
// creation.
//
// This is the single source of truth for the merge semantics; the
// Postgres store expresses the same merge as one conditional upsert so
// concurrent applications for the same address serialize in the store.
func (u *User) ApplySaleSide(role TradeRole, amount *big.Int, timestamp int64) {
	u.merge(role, amount, timestamp)
}

func (u *User) merge(role TradeRole, amount *big.Int, timestamp int64) {
	if u.TotalVolumeSold == nil {
		u.TotalVolumeSold = new(big.Int)
	}
	if u.TotalVolumeBought == nil {
		u.TotalVolumeBought = new(big.Int)
	}
	switch role {
	case RoleSeller:
		u.TotalVolumeSold = new(big.Int).Add(u.TotalVolumeSold, amount)
		u.TotalItemsSold++
	case RoleBuyer:
		u.TotalVolumeBought = new(big.Int).Add(u.TotalVolumeBought, amount)
		u.TotalItemsBought++
	}
	if timestamp > u.LastActivity {
		u.LastActivity = timestamp
	}
}
