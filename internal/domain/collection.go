package domain

import "math/big"

// Collection holds cumulative and rolling trade aggregates for one
// asset contract. Corresponds to the collections table; identity is the
// contract address. Floor price, owner and supply counts are sourced
// externally and not tracked here.
type Collection struct {
	Address     string // PRIMARY KEY
	TotalVolume *big.Int
	TotalSales  int64
	Volume24h   *big.Int
	Volume7d    *big.Int
	Sales24h    int64
	Sales7d     int64
	LastSaleAt  int64 // Unix seconds
}

// CollectionWindows are the rolling totals refreshed on every sale.
type CollectionWindows struct {
	Volume24h *big.Int
	Volume7d  *big.Int
	Sales24h  int64
	Sales7d   int64
}
