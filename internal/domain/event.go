package domain

import "math/big"

// Protocol event names emitted by the settlement contract.
const (
	EventOrderFulfilled = "OrderFulfilled"
	EventOrderValidated = "OrderValidated"
	EventOrderCancelled = "OrderCancelled"
)

// RawLog is a decoded protocol log as delivered by the chain log source:
// a discriminant event name, an untyped argument bag, and the block and
// transaction context the log was emitted in.
type RawLog struct {
	Name string         // event name discriminant
	Args map[string]any // raw argument bag, validated once at decode time

	BlockNumber uint64
	Timestamp   int64 // block timestamp, Unix seconds
	TxHash      string
	LogIndex    uint
	GasUsed     uint64
	GasPrice    *big.Int
}

// EventContext carries the block/transaction metadata attached to every
// decoded event.
type EventContext struct {
	BlockNumber uint64
	Timestamp   int64
	TxHash      string
	LogIndex    uint
	GasUsed     uint64
	GasPrice    *big.Int
}

// Event is the closed set of canonical protocol events. Exactly
// FulfilledEvent, ValidatedEvent and CancelledEvent implement it.
type Event interface {
	Context() EventContext
	eventVariant()
}

// FulfilledEvent is an OrderFulfilled settlement: an order matched and
// its offer/consideration items transferred.
type FulfilledEvent struct {
	OrderHash     string
	Offerer       string
	Zone          string
	Recipient     string
	Offer         []OfferItem
	Consideration []ConsiderationItem
	Ctx           EventContext
}

// ValidatedEvent is an OrderValidated lifecycle event: an order was
// registered on chain and is open for fulfillment.
type ValidatedEvent struct {
	OrderHash string
	Offerer   string
	Zone      string
	Ctx       EventContext
}

// CancelledEvent is an OrderCancelled lifecycle event.
type CancelledEvent struct {
	OrderHash string
	Offerer   string
	Zone      string
	Ctx       EventContext
}

func (e *FulfilledEvent) Context() EventContext { return e.Ctx }
func (e *ValidatedEvent) Context() EventContext { return e.Ctx }
func (e *CancelledEvent) Context() EventContext { return e.Ctx }

func (*FulfilledEvent) eventVariant() {}
func (*ValidatedEvent) eventVariant() {}
func (*CancelledEvent) eventVariant() {}
