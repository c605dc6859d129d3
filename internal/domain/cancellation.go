package domain

// Cancellation is an on-chain order cancellation. Corresponds to the
// cancellations table; identity is (tx_hash, log_index). Immutable.
//
// A cancellation is recorded independently of any Offer row: the
// minimal event set carries no reliable join key between order_hash and
// a previously recorded offer, so offer status is not flipped here.
type Cancellation struct {
	TxHash      string // PRIMARY KEY part 1
	LogIndex    uint   // PRIMARY KEY part 2
	OrderHash   string
	Offerer     string
	BlockNumber uint64
	Timestamp   int64
}
