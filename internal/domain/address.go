package domain

import "strings"

// ZeroAddress is the EVM zero address, used both for native currency
// and as the sentinel collection for unclassifiable asset legs.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Currency symbols assigned at classification time. Token symbol
// resolution is a later enrichment step; on-chain visibility only
// distinguishes native currency from some fungible token.
const (
	NativeCurrencySymbol = "FLOW"
	TokenCurrencySymbol  = "TOKEN"
)

// NormalizeAddress lowercases a 0x-hex address so addresses compare
// byte-for-byte regardless of checksum casing in the source log.
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}
