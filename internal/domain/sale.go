package domain

import "math/big"

// PlatformFlowties is the default platform tag written on records
// produced by this ingestion deployment.
const PlatformFlowties = "flowties"

// Sale is one fulfilled order. Corresponds to the sales table.
// Identity is (tx_hash, log_index); rows are immutable once written.
type Sale struct {
	TxHash     string // PRIMARY KEY part 1
	LogIndex   uint   // PRIMARY KEY part 2
	OrderHash  string
	Collection string // asset contract address, zero address if unclassified
	TokenID    string // decimal token id, empty if unclassified
	Seller     string
	Buyer      string
	Price      *big.Int // settlement amount, unsigned 256-bit
	Currency   string   // currency symbol (FLOW / TOKEN)
	CurrencyAddress string
	Platform    string
	BlockNumber uint64
	Timestamp   int64 // block timestamp, Unix seconds
	GasUsed     uint64
	GasPrice    *big.Int
}
