package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus tags the outcome of a purchase attempt.
type PurchaseStatus string

const (
	// PurchaseSuccess means the transaction was accepted by the chain.
	PurchaseSuccess PurchaseStatus = "success"
	// PurchaseRejected means validation refused the request before submission.
	PurchaseRejected PurchaseStatus = "rejected"
	// PurchaseFailed means the chain or the network rejected the transaction.
	PurchaseFailed PurchaseStatus = "failed"
)

// PurchaseRequest is a single user-submitted purchase attempt. It lives only
// until the controller resolves it.
type PurchaseRequest struct {
	ID          string
	AmountInput string
}

// NewPurchaseRequest creates a request from raw user input in display units.
func NewPurchaseRequest(input string) PurchaseRequest {
	return PurchaseRequest{
		ID:          uuid.NewString(),
		AmountInput: input,
	}
}

// ValidatedPurchase is a request that passed validation and is ready to submit.
type ValidatedPurchase struct {
	RequestID   string
	Sender      string
	AmountMicro decimal.Decimal
	Denom       string
}

// PurchaseResult is the resolved outcome of a purchase attempt.
type PurchaseResult struct {
	Status PurchaseStatus
	TxHash string
	// Reason explains a rejection, Cause carries a submission failure.
	Reason string
	Cause  error
}

// PurchaseRecord is the journal form of a resolved purchase.
type PurchaseRecord struct {
	Timestamp   time.Time `json:"ts"`
	RequestID   string    `json:"request_id"`
	Address     string    `json:"address"`
	AmountMicro string    `json:"amount_micro"`
	Denom       string    `json:"denom"`
	Status      string    `json:"status"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// PurchaseRecordEntry bundles a record with the journal index it originated from.
type PurchaseRecordEntry struct {
	Index  uint64
	Record PurchaseRecord
}
