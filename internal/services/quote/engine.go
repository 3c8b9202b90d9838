// Package quote derives the sale price from the chain and computes how many
// tokens a purchase amount buys.
package quote

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poodlabs/junosale/internal/entity"
)

// contractQuerier is the read-only contract access the engine needs.
type contractQuerier interface {
	QueryContractSmart(ctx context.Context, contract string, queryMsg any) (json.RawMessage, error)
}

// Engine fetches the sale contract price and keeps the most recent quote.
// Concurrent fetches resolve last-fetch-wins: a result from a superseded
// fetch never overwrites a newer one.
type Engine struct {
	querier      contractQuerier
	saleContract string
	logger       *zap.Logger

	fetchSeq atomic.Uint64

	mu         sync.Mutex
	appliedSeq uint64
	current    entity.PriceQuote
}

// NewEngine creates a quote engine for the sale contract.
func NewEngine(querier contractQuerier, saleContract string, logger *zap.Logger) *Engine {
	return &Engine{
		querier:      querier,
		saleContract: saleContract,
		logger:       logger,
	}
}

// priceResponse is the expected shape of the get_price query result.
type priceResponse struct {
	Price struct {
		Amount string `json:"amount"`
		Denom  string `json:"denom"`
	} `json:"price"`
}

// FetchPrice queries the sale contract for its current price. On success the
// engine's current quote is replaced wholesale, unless a later fetch already
// landed. On failure the previous quote stays in place.
func (e *Engine) FetchPrice(ctx context.Context) (entity.PriceQuote, error) {
	seq := e.fetchSeq.Add(1)

	raw, err := e.querier.QueryContractSmart(ctx, e.saleContract, map[string]any{"get_price": struct{}{}})
	if err != nil {
		return entity.PriceQuote{}, err
	}

	var resp priceResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Price.Amount == "" {
		return entity.PriceQuote{}, errors.Wrapf(entity.ErrContractQuery, "contract %s: unexpected get_price shape", e.saleContract)
	}

	amount, err := decimal.NewFromString(resp.Price.Amount)
	if err != nil {
		return entity.PriceQuote{}, errors.Wrapf(entity.ErrContractQuery, "contract %s: bad price amount %q", e.saleContract, resp.Price.Amount)
	}

	fetched := entity.PriceQuote{
		Price:      amount,
		PriceDenom: resp.Price.Denom,
		ObservedAt: time.Now(),
	}

	e.mu.Lock()
	if seq > e.appliedSeq {
		e.appliedSeq = seq
		e.current = fetched
	}
	e.mu.Unlock()

	e.logger.Debug("price fetched",
		zap.String("price", amount.String()),
		zap.String("denom", resp.Price.Denom))

	return fetched, nil
}

// Current returns the most recently applied quote; ok is false before the
// first successful fetch.
func (e *Engine) Current() (entity.PriceQuote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, !e.current.IsZero()
}

// ComputeQuote returns the number of sale tokens obtainable for the given
// native amount (micro units) at the quoted price. A zero amount yields zero;
// a zero price is an error rather than an infinite quote.
func ComputeQuote(amountMicro decimal.Decimal, q entity.PriceQuote) (decimal.Decimal, error) {
	if amountMicro.IsZero() {
		return decimal.Zero, nil
	}
	if q.Price.IsZero() {
		return decimal.Decimal{}, entity.ErrInvalidPrice
	}
	return amountMicro.Div(q.Price), nil
}
