package entity

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrConnection means the chain endpoint is unreachable or returned a
	// malformed handshake.
	ErrConnection = errors.New("chain endpoint unreachable")
	// ErrSignerUnavailable means the wallet provider is absent.
	ErrSignerUnavailable = errors.New("wallet signer unavailable")
	// ErrSignerRejected means the user declined wallet authorization.
	ErrSignerRejected = errors.New("wallet authorization rejected")
	// ErrContractQuery means a smart query errored or returned an
	// unparseable shape.
	ErrContractQuery = errors.New("contract query failed")
	// ErrBalanceQuery means a balance sub-query could not be completed.
	ErrBalanceQuery = errors.New("balance query failed")
	// ErrInvalidPrice means the sale contract reported a zero price.
	ErrInvalidPrice = errors.New("sale price is zero")
	// ErrNotConnected means no wallet address is connected.
	ErrNotConnected = errors.New("wallet is not connected")
	// ErrEmptyAmount means the purchase amount is empty or not positive.
	ErrEmptyAmount = errors.New("purchase amount is empty or not positive")
	// ErrStaleSnapshot means a balance refresh resolved after the session
	// moved to another address or disconnected; its result was discarded.
	ErrStaleSnapshot = errors.New("balance snapshot superseded")
	// ErrAlreadyInFlight means a purchase for this session is still submitting.
	ErrAlreadyInFlight = errors.New("a purchase is already in flight")
	// ErrTransactionFailed means the chain rejected the execute transaction.
	ErrTransactionFailed = errors.New("transaction failed")
)

// InsufficientFundsError reports a purchase exceeding the available native
// balance. Both amounts are in micro units.
type InsufficientFundsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s",
		e.Requested.String(), e.Available.String())
}
