package domain

import "math/big"

// ItemType tags an order item as payment or asset, matching the
// settlement protocol's enumeration.
type ItemType uint8

const (
	ItemTypeNative   ItemType = 0 // native currency payment
	ItemTypeFungible ItemType = 1 // fungible token payment
	ItemTypeAsset    ItemType = 2 // single-unit non-fungible asset
	ItemTypeMulti    ItemType = 3 // multi-unit non-fungible asset
)

// IsAsset reports whether the item type denotes a non-fungible asset.
func (t ItemType) IsAsset() bool {
	return t >= ItemTypeAsset
}

// IsPayment reports whether the item type denotes a payment leg.
func (t ItemType) IsPayment() bool {
	return t == ItemTypeNative || t == ItemTypeFungible
}

// OfferItem is one entry on the seller's side of an order.
type OfferItem struct {
	ItemType   ItemType
	Token      string   // contract address
	Identifier *big.Int // token id for asset items
	Amount     *big.Int
}

// ConsiderationItem is one entry on the buyer's side of an order.
type ConsiderationItem struct {
	OfferItem
	Recipient string
}

// AssetLeg is the transferred non-fungible asset extracted from an
// order's offer items. The zero-address/empty-token-id pair is the
// sentinel for an order whose asset leg could not be classified.
type AssetLeg struct {
	Collection string
	TokenID    string
}

// Found reports whether a real asset leg was classified.
func (l AssetLeg) Found() bool {
	return l.Collection != ZeroAddress
}

// PaymentLeg is the payment extracted from an order's consideration
// items. Amount is zero when no payment item was found.
type PaymentLeg struct {
	Amount   *big.Int
	Currency string // currency contract address, zero address for native
	Symbol   string
}
