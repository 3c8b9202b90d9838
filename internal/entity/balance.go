package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot holds the balances known for an address at a point in time.
// A nil field error means the corresponding query succeeded; a non-nil one
// marks that field as unavailable without invalidating its sibling.
type BalanceSnapshot struct {
	Address     string
	Native      Coin
	Token       decimal.Decimal
	TokenSymbol string
	AsOf        time.Time
	NativeErr   error
	TokenErr    error
}

// Complete reports whether both balance queries succeeded.
func (s BalanceSnapshot) Complete() bool {
	return s.NativeErr == nil && s.TokenErr == nil
}

// SnapshotRecord is the journal form of a balance snapshot.
// String fields avoid precision issues when rendered in UI layers.
type SnapshotRecord struct {
	Timestamp   time.Time `json:"ts"`
	Address     string    `json:"address"`
	Native      string    `json:"native"`
	NativeDenom string    `json:"native_denom"`
	Token       string    `json:"token,omitempty"`
	TokenSymbol string    `json:"token_symbol,omitempty"`
}

// SnapshotRecordEntry bundles a record with the journal index it originated from.
type SnapshotRecordEntry struct {
	Index  uint64
	Record SnapshotRecord
}

// Record converts the snapshot to its journal form. Fields whose query
// failed are left empty.
func (s BalanceSnapshot) Record() SnapshotRecord {
	rec := SnapshotRecord{
		Timestamp: s.AsOf,
		Address:   s.Address,
	}
	if s.NativeErr == nil {
		rec.Native = s.Native.Amount.String()
		rec.NativeDenom = s.Native.Denom
	}
	if s.TokenErr == nil {
		rec.Token = s.Token.String()
		rec.TokenSymbol = s.TokenSymbol
	}
	return rec
}
