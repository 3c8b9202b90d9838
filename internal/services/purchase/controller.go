// Package purchase validates and submits token purchases against the sale
// contract.
package purchase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poodlabs/junosale/internal/entity"
	"github.com/poodlabs/junosale/internal/events"
	"github.com/poodlabs/junosale/internal/services/wallet"
)

// buyMsg is the fixed execute message the sale contract expects.
type buyMsg struct {
	Buy struct{} `json:"buy"`
}

// session is the slice of the wallet session the controller depends on.
type session interface {
	Address() string
	Client() (wallet.SigningClient, error)
}

// refresher re-queries balances once a purchase has resolved.
type refresher interface {
	Refresh(ctx context.Context, address string) (entity.BalanceSnapshot, error)
	Invalidate()
}

// journal persists resolved purchases for the dashboard stream.
type journal interface {
	SavePurchase(record entity.PurchaseRecord) error
}

// Controller validates purchase requests against live state and submits the
// signed execute transaction. At most one submission is in flight per session.
type Controller struct {
	session      session
	balances     refresher
	journal      journal
	notifier     *events.Notifier
	logger       *zap.Logger
	saleContract string
	nativeDenom  string

	inFlight atomic.Bool
}

// NewController creates a purchase controller for the sale contract.
func NewController(sess session, balances refresher, journal journal, notifier *events.Notifier,
	saleContract, nativeDenom string, logger *zap.Logger) *Controller {
	return &Controller{
		session:      sess,
		balances:     balances,
		journal:      journal,
		notifier:     notifier,
		logger:       logger,
		saleContract: saleContract,
		nativeDenom:  nativeDenom,
	}
}

// Validate checks a request against the session and the given balance
// snapshot. It is a pure function of current state and never touches the
// network. The returned purchase carries the amount in micro units.
func (c *Controller) Validate(req entity.PurchaseRequest, snapshot entity.BalanceSnapshot) (entity.ValidatedPurchase, error) {
	address := c.session.Address()
	if address == "" {
		return entity.ValidatedPurchase{}, entity.ErrNotConnected
	}

	input := strings.TrimSpace(req.AmountInput)
	if input == "" {
		return entity.ValidatedPurchase{}, entity.ErrEmptyAmount
	}
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return entity.ValidatedPurchase{}, errors.Wrapf(entity.ErrEmptyAmount, "unparseable amount %q", input)
	}
	if !amount.IsPositive() {
		return entity.ValidatedPurchase{}, entity.ErrEmptyAmount
	}

	micro := entity.ToMicro(amount)
	if micro.GreaterThan(snapshot.Native.Amount) {
		return entity.ValidatedPurchase{}, &entity.InsufficientFundsError{
			Requested: micro,
			Available: snapshot.Native.Amount,
		}
	}

	return entity.ValidatedPurchase{
		RequestID:   req.ID,
		Sender:      address,
		AmountMicro: micro,
		Denom:       c.nativeDenom,
	}, nil
}

// Submit executes the purchase on chain. A second submission while one is in
// flight for this session is rejected, never queued. Exactly one balance
// refresh follows resolution, success or failure; the cached balance is never
// mutated optimistically.
func (c *Controller) Submit(ctx context.Context, validated entity.ValidatedPurchase) (entity.PurchaseResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.notifier.Publish(entity.LevelWarning, fmt.Sprintf("purchase rejected: %s", entity.ErrAlreadyInFlight))
		return entity.PurchaseResult{
			Status: entity.PurchaseRejected,
			Reason: entity.ErrAlreadyInFlight.Error(),
		}, entity.ErrAlreadyInFlight
	}
	defer c.inFlight.Store(false)

	client, err := c.session.Client()
	if err != nil {
		c.notifier.Publish(entity.LevelError, fmt.Sprintf("purchase rejected: %s", err))
		return entity.PurchaseResult{Status: entity.PurchaseRejected, Reason: err.Error()}, err
	}

	c.notifier.Publish(entity.LevelInfo, fmt.Sprintf("submitting purchase of %s", entity.NewCoin(validated.AmountMicro, validated.Denom)))

	funds := []entity.Coin{entity.NewCoin(validated.AmountMicro, validated.Denom)}
	txHash, err := client.Execute(ctx, validated.Sender, c.saleContract, buyMsg{}, funds)

	var result entity.PurchaseResult
	if err != nil {
		result = entity.PurchaseResult{Status: entity.PurchaseFailed, Cause: err}
		c.logger.Error("purchase failed", zap.String("request_id", validated.RequestID), zap.Error(err))
		c.notifier.Publish(entity.LevelError, fmt.Sprintf("purchase failed: %s", err))
	} else {
		result = entity.PurchaseResult{Status: entity.PurchaseSuccess, TxHash: txHash}
		c.logger.Info("purchase succeeded",
			zap.String("request_id", validated.RequestID),
			zap.String("tx_hash", txHash))
		c.notifier.Publish(entity.LevelSuccess, fmt.Sprintf("purchase confirmed, tx %s", txHash))
	}

	c.record(validated, result)
	c.refreshAfter(ctx, validated.Sender)

	if err != nil {
		return result, errors.Wrap(entity.ErrTransactionFailed, err.Error())
	}
	return result, nil
}

// InFlight reports whether a submission is currently active.
func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

func (c *Controller) record(validated entity.ValidatedPurchase, result entity.PurchaseResult) {
	rec := entity.PurchaseRecord{
		Timestamp:   time.Now(),
		RequestID:   validated.RequestID,
		Address:     validated.Sender,
		AmountMicro: validated.AmountMicro.String(),
		Denom:       validated.Denom,
		Status:      string(result.Status),
		TxHash:      result.TxHash,
	}
	if result.Cause != nil {
		rec.Detail = result.Cause.Error()
	}

	if err := c.journal.SavePurchase(rec); err != nil {
		c.logger.Warn("failed to journal purchase", zap.String("request_id", validated.RequestID), zap.Error(err))
	}
}

// refreshAfter re-queries balances once the purchase resolved; the chain may
// have charged fees even on a failed execute.
func (c *Controller) refreshAfter(ctx context.Context, address string) {
	c.balances.Invalidate()
	if _, err := c.balances.Refresh(ctx, address); err != nil && !errors.Is(err, entity.ErrStaleSnapshot) {
		c.logger.Warn("balance refresh after purchase failed", zap.String("address", address), zap.Error(err))
	}
}
