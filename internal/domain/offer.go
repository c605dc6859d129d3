package domain

import "math/big"

// OfferStatus is the lifecycle state of an offer. Transitions only move
// forward: active is the initial state, the other three are terminal.
type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "active"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusExpired   OfferStatus = "expired"
)

// IsValid checks if the status is a known value.
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferStatusActive, OfferStatusAccepted, OfferStatusCancelled, OfferStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s OfferStatus) IsTerminal() bool {
	return s.IsValid() && s != OfferStatusActive
}

// CanTransitionTo reports whether the status may move to next.
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	return s == OfferStatusActive && next.IsTerminal()
}

// Offer is a validated order awaiting fulfillment. Corresponds to the
// offers table; identity is (tx_hash, log_index).
//
// The OrderValidated event carries no price or asset detail, so those
// fields start as zero/nil placeholders until an off-chain enrichment
// step fills them in.
type Offer struct {
	TxHash      string // PRIMARY KEY part 1
	LogIndex    uint   // PRIMARY KEY part 2
	OrderHash   string
	Collection  *string // nil until enriched
	TokenID     *string // nil = unknown or collection-wide
	Offerer     string
	Recipient   *string // nil = collection-wide offer
	Price       *big.Int
	Currency    string
	Platform    string
	Expiration  *int64 // Unix seconds, nil = unknown
	Status      OfferStatus
	BlockNumber uint64
	Timestamp   int64
}
