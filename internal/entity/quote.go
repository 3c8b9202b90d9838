package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is the sale contract price observed at a point in time.
// Stale quotes are replaced wholesale, never merged.
type PriceQuote struct {
	// Price is the cost of one sale token in micro units of PriceDenom.
	Price      decimal.Decimal
	PriceDenom string
	ObservedAt time.Time
}

// IsZero reports whether the quote has never been populated.
func (q PriceQuote) IsZero() bool {
	return q.ObservedAt.IsZero()
}
