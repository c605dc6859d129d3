package decode

import (
	"math/big"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
)

// ClassifyAsset extracts the transferred non-fungible asset from an
// order's offer items: the first item whose type denotes an asset wins,
// in array order. A missing asset leg yields the zero-address/empty
// sentinel; the event still represents settlement activity.
func ClassifyAsset(offer []domain.OfferItem) domain.AssetLeg {
	for _, item := range offer {
		if item.ItemType.IsAsset() {
			tokenID := ""
			if item.Identifier != nil {
				tokenID = item.Identifier.String()
			}
			return domain.AssetLeg{Collection: item.Token, TokenID: tokenID}
		}
	}
	return domain.AssetLeg{Collection: domain.ZeroAddress, TokenID: ""}
}

// ClassifyPayment extracts the payment leg from an order's
// consideration items: the first native-currency or fungible-token item
// wins, in array order. Native currency maps to the chain's well-known
// symbol; any token address maps to the generic token symbol (symbol
// resolution is a later enrichment step). A missing payment leg yields
// a zero amount on the native currency.
func ClassifyPayment(consideration []domain.ConsiderationItem) domain.PaymentLeg {
	for _, item := range consideration {
		if !item.ItemType.IsPayment() {
			continue
		}
		amount := item.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		symbol := domain.NativeCurrencySymbol
		if item.ItemType == domain.ItemTypeFungible && item.Token != domain.ZeroAddress {
			symbol = domain.TokenCurrencySymbol
		}
		return domain.PaymentLeg{
			Amount:   new(big.Int).Set(amount),
			Currency: item.Token,
			Symbol:   symbol,
		}
	}
	return domain.PaymentLeg{
		Amount:   new(big.Int),
		Currency: domain.ZeroAddress,
		Symbol:   domain.NativeCurrencySymbol,
	}
}
