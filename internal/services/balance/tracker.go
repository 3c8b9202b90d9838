// Package balance keeps native and token balances for the connected address.
package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poodlabs/junosale/internal/entity"
	"github.com/poodlabs/junosale/internal/events"
	"github.com/poodlabs/junosale/internal/services/wallet"
)

// session is the slice of the wallet session the tracker depends on.
type session interface {
	Client() (wallet.SigningClient, error)
	Epoch() uint64
}

// Tracker queries native and cw20 balances and exposes the latest snapshot.
// Results from queries started before an address change are discarded.
type Tracker struct {
	session       session
	nativeDenom   string
	tokenContract string
	notifier      *events.Notifier
	logger        *zap.Logger

	mu       sync.Mutex
	current  entity.BalanceSnapshot
	hasValue bool

	symbolMu    sync.Mutex
	tokenSymbol string
}

// NewTracker creates a tracker for the configured denom and token contract.
func NewTracker(sess session, nativeDenom, tokenContract string, notifier *events.Notifier, logger *zap.Logger) *Tracker {
	return &Tracker{
		session:       sess,
		nativeDenom:   nativeDenom,
		tokenContract: tokenContract,
		notifier:      notifier,
		logger:        logger,
	}
}

// Refresh queries both balances for the address. The two queries run
// concurrently and are both attempted even when one fails; a failing query
// marks its own field and leaves the sibling usable. A refresh raced by an
// address change or disconnect returns ErrStaleSnapshot and leaves no trace.
func (t *Tracker) Refresh(ctx context.Context, address string) (entity.BalanceSnapshot, error) {
	client, err := t.session.Client()
	if err != nil {
		return entity.BalanceSnapshot{}, err
	}
	epoch := t.session.Epoch()

	snapshot := entity.BalanceSnapshot{
		Address: address,
		AsOf:    time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		coin, err := client.Balance(gctx, address, t.nativeDenom)
		if err != nil {
			snapshot.NativeErr = err
			return nil
		}
		snapshot.Native = coin
		return nil
	})

	g.Go(func() error {
		amount, symbol, err := t.tokenBalance(gctx, client, address)
		if err != nil {
			snapshot.TokenErr = err
			return nil
		}
		snapshot.Token = amount
		snapshot.TokenSymbol = symbol
		return nil
	})

	_ = g.Wait()

	if t.session.Epoch() != epoch {
		// address changed or disconnected while queries were in flight
		t.logger.Debug("discarding stale balance snapshot", zap.String("address", address))
		return entity.BalanceSnapshot{}, entity.ErrStaleSnapshot
	}

	if snapshot.NativeErr != nil {
		t.logger.Warn("native balance query failed", zap.String("address", address), zap.Error(snapshot.NativeErr))
		t.notifier.Publish(entity.LevelWarning, fmt.Sprintf("native balance unavailable: %s", snapshot.NativeErr))
	}
	if snapshot.TokenErr != nil {
		t.logger.Warn("token balance query failed", zap.String("address", address), zap.Error(snapshot.TokenErr))
		t.notifier.Publish(entity.LevelWarning, fmt.Sprintf("token balance unavailable: %s", snapshot.TokenErr))
	}

	t.mu.Lock()
	t.current = snapshot
	t.hasValue = true
	t.mu.Unlock()

	return snapshot, nil
}

// tokenBalance runs the cw20 balance query, resolving the token symbol once.
func (t *Tracker) tokenBalance(ctx context.Context, client wallet.SigningClient, address string) (decimal.Decimal, string, error) {
	symbol, err := t.symbol(ctx, client)
	if err != nil {
		return decimal.Decimal{}, "", err
	}

	raw, err := client.QueryContractSmart(ctx, t.tokenContract, map[string]any{
		"balance": map[string]string{"address": address},
	})
	if err != nil {
		return decimal.Decimal{}, "", errors.Wrap(entity.ErrBalanceQuery, err.Error())
	}

	var resp struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Balance == "" {
		return decimal.Decimal{}, "", errors.Wrapf(entity.ErrBalanceQuery, "contract %s returned malformed balance", t.tokenContract)
	}

	amount, err := decimal.NewFromString(resp.Balance)
	if err != nil {
		return decimal.Decimal{}, "", errors.Wrapf(entity.ErrBalanceQuery, "bad token balance %q", resp.Balance)
	}

	return amount, symbol, nil
}

// symbol fetches token_info once and caches the symbol for later refreshes.
func (t *Tracker) symbol(ctx context.Context, client wallet.SigningClient) (string, error) {
	t.symbolMu.Lock()
	defer t.symbolMu.Unlock()

	if t.tokenSymbol != "" {
		return t.tokenSymbol, nil
	}

	raw, err := client.QueryContractSmart(ctx, t.tokenContract, map[string]any{"token_info": struct{}{}})
	if err != nil {
		return "", errors.Wrap(entity.ErrBalanceQuery, err.Error())
	}

	var info struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(raw, &info); err != nil || info.Symbol == "" {
		return "", errors.Wrapf(entity.ErrBalanceQuery, "contract %s returned malformed token_info", t.tokenContract)
	}

	t.tokenSymbol = info.Symbol
	return info.Symbol, nil
}

// Current returns the latest snapshot; ok is false when no snapshot is held
// or it has been invalidated.
func (t *Tracker) Current() (entity.BalanceSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.hasValue
}

// Invalidate drops the cached snapshot. Called on address changes and after
// a purchase resolves, so stale values are never trusted.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	t.current = entity.BalanceSnapshot{}
	t.hasValue = false
	t.mu.Unlock()
}
