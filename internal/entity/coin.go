// Package entity defines core data structures used throughout the sale client.
package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// microExponent is the decimal shift between a chain micro denomination and
// its display unit (1 JUNO = 1_000_000 ujuno).
const microExponent = 6

// Coin is an amount of a specific denomination in micro units.
type Coin struct {
	Amount decimal.Decimal `json:"amount"`
	Denom  string          `json:"denom"`
}

// NewCoin creates a coin from a micro amount and denom.
func NewCoin(amount decimal.Decimal, denom string) Coin {
	return Coin{Amount: amount, Denom: denom}
}

// String returns a human-readable display representation, e.g. "1.5 JUNO".
func (c Coin) String() string {
	return fmt.Sprintf("%s %s", FromMicro(c.Amount).String(), DisplayDenom(c.Denom))
}

// FromMicro converts a micro amount to display units by an exact decimal shift.
func FromMicro(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(-microExponent)
}

// ToMicro converts a display amount to micro units, truncating precision
// below one micro unit.
func ToMicro(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(microExponent).Truncate(0)
}

// DisplayDenom strips the micro prefix from a denom, e.g. "ujuno" -> "JUNO".
func DisplayDenom(denom string) string {
	return strings.ToUpper(strings.TrimPrefix(denom, "u"))
}
