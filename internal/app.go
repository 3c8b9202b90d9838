// Package internal wires the wallet session, chain clients and sale services
// into a single client application.
package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poodlabs/junosale/config"
	"github.com/poodlabs/junosale/internal/clients"
	"github.com/poodlabs/junosale/internal/entity"
	"github.com/poodlabs/junosale/internal/events"
	"github.com/poodlabs/junosale/internal/services/balance"
	"github.com/poodlabs/junosale/internal/services/purchase"
	"github.com/poodlabs/junosale/internal/services/quote"
	"github.com/poodlabs/junosale/internal/services/wallet"
	"github.com/poodlabs/junosale/internal/storage/journal"
	"github.com/poodlabs/junosale/internal/web"
)

// SaleApp is a single token-sale client instance: one wallet session, one
// sale contract, one poll loop.
type SaleApp struct {
	Session   *wallet.Session
	Quotes    *quote.Engine
	Balances  *balance.Tracker
	Purchases *purchase.Controller
	Journal   *journal.WALStore
	Notifier  *events.Notifier

	conf   config.Config
	logger *zap.Logger
}

// NewSaleApp creates the client from configuration. Price and token queries
// use a read-only client; signing happens only after the wallet connects.
func NewSaleApp(conf config.Config, provider clients.WalletProvider, logger *zap.Logger) (*SaleApp, error) {
	queryClient, err := clients.NewQueryClient(conf.ChainEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open chain query client")
	}

	journalStore, err := journal.NewWALStore(conf.JournalDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal store")
	}

	notifier := events.NewNotifier(256)
	session := wallet.NewSession(conf.ChainEndpoint, conf.ChainID, provider, notifier, logger)
	quotes := quote.NewEngine(queryClient, conf.SaleContract, logger)
	balances := balance.NewTracker(session, conf.StakingDenom, conf.TokenContract, notifier, logger)
	purchases := purchase.NewController(session, balances, journalStore, notifier,
		conf.SaleContract, conf.StakingDenom, logger)

	return &SaleApp{
		Session:   session,
		Quotes:    quotes,
		Balances:  balances,
		Purchases: purchases,
		Journal:   journalStore,
		Notifier:  notifier,
		conf:      conf,
		logger:    logger,
	}, nil
}

// Connect establishes the wallet session and runs the first balance refresh
// for the new address.
func (a *SaleApp) Connect(ctx context.Context) error {
	if err := a.Session.Connect(ctx); err != nil {
		return err
	}

	a.Balances.Invalidate()
	if _, err := a.Balances.Refresh(ctx, a.Session.Address()); err != nil {
		a.logger.Warn("initial balance refresh failed", zap.Error(err))
	}
	return nil
}

// Disconnect tears down the wallet session and drops address-bound caches.
func (a *SaleApp) Disconnect() {
	a.Session.Disconnect()
	a.Balances.Invalidate()
}

// Purchase validates raw user input against live state and, if accepted,
// submits the buy transaction.
func (a *SaleApp) Purchase(ctx context.Context, amountInput string) (entity.PurchaseResult, error) {
	req := entity.NewPurchaseRequest(amountInput)

	snapshot, ok := a.Balances.Current()
	if !ok && a.Session.Address() != "" {
		var err error
		snapshot, err = a.Balances.Refresh(ctx, a.Session.Address())
		if err != nil {
			return entity.PurchaseResult{Status: entity.PurchaseRejected, Reason: err.Error()}, err
		}
	}

	validated, err := a.Purchases.Validate(req, snapshot)
	if err != nil {
		a.Notifier.Publish(entity.LevelError, fmt.Sprintf("purchase rejected: %s", err))
		return entity.PurchaseResult{Status: entity.PurchaseRejected, Reason: err.Error()}, err
	}

	return a.Purchases.Submit(ctx, validated)
}

// Quote previews how many sale tokens the given native amount (display units)
// buys at the current price. When no price has been observed yet one is
// fetched first.
func (a *SaleApp) Quote(ctx context.Context, amountInput string) (web.QuoteView, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountInput))
	if err != nil || !amount.IsPositive() {
		return web.QuoteView{}, errors.Wrapf(entity.ErrEmptyAmount, "amount %q", amountInput)
	}

	q, ok := a.Quotes.Current()
	if !ok {
		if q, err = a.Quotes.FetchPrice(ctx); err != nil {
			return web.QuoteView{}, err
		}
	}

	tokens, err := quote.ComputeQuote(entity.ToMicro(amount), q)
	if err != nil {
		return web.QuoteView{}, err
	}

	return web.QuoteView{
		Amount:     amount.String(),
		Tokens:     tokens.String(),
		Price:      q.Price.String(),
		PriceDenom: q.PriceDenom,
	}, nil
}

// Run polls the price and the connected address's balances until ctx ends.
func (a *SaleApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.conf.PollInterval)
	defer ticker.Stop()

	a.logger.Info("starting sale client loop",
		zap.String("sale_contract", a.conf.SaleContract),
		zap.Duration("poll_interval", a.conf.PollInterval))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("context done, stopping sale client loop")
			return ctx.Err()
		case <-ticker.C:
			a.poll(ctx)
		}
	}
}

func (a *SaleApp) poll(ctx context.Context) {
	if _, err := a.Quotes.FetchPrice(ctx); err != nil {
		// previous quote stays displayed
		a.logger.Warn("price fetch failed", zap.Error(err))
	}

	address := a.Session.Address()
	if address == "" {
		return
	}

	snapshot, err := a.Balances.Refresh(ctx, address)
	if err != nil {
		if !errors.Is(err, entity.ErrStaleSnapshot) {
			a.logger.Warn("balance refresh failed", zap.String("address", address), zap.Error(err))
		}
		return
	}
	if err := a.Journal.SaveSnapshot(snapshot.Record()); err != nil {
		a.logger.Warn("failed to journal balance snapshot", zap.Error(err))
	}
}

// StateView assembles the read-only view served to the dashboard.
func (a *SaleApp) StateView() web.StateView {
	state := a.Session.State()
	view := web.StateView{
		Address:  state.Address,
		Status:   string(state.Status),
		InFlight: a.Purchases.InFlight(),
	}
	if state.LastErr != nil {
		view.LastError = state.LastErr.Error()
	}

	if q, ok := a.Quotes.Current(); ok {
		view.Price = q.Price.String()
		view.PriceDenom = q.PriceDenom
	}
	if snapshot, ok := a.Balances.Current(); ok {
		if snapshot.NativeErr == nil {
			view.Native = entity.FromMicro(snapshot.Native.Amount).String()
			view.NativeDenom = entity.DisplayDenom(snapshot.Native.Denom)
		}
		if snapshot.TokenErr == nil {
			view.Token = snapshot.Token.String()
			view.TokenSymbol = snapshot.TokenSymbol
		}
	}

	return view
}

// Close releases resources owned by the app.
func (a *SaleApp) Close() error {
	return a.Journal.Close()
}
