package postgres

import (
	"fmt"
	"math/big"
)

// numericArg renders a big.Int for a NUMERIC(78,0) column. Nil is
// written as zero so amount columns stay NOT NULL.
func numericArg(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

// parseNumeric converts a NUMERIC value selected as text back into a
// big.Int.
func parseNumeric(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse numeric %q", s)
	}
	return n, nil
}
