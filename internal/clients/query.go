// Package clients provides chain access: a read-only LCD query client and a
// signing client bound to an external wallet provider.
package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/poodlabs/junosale/internal/entity"
	"github.com/poodlabs/junosale/pkg/retrier"
)

const queryTimeout = 15 * time.Second

// QueryClient is a read-only client for chain and contract state, backed by
// the chain's LCD REST API. It requires no wallet authorization.
type QueryClient struct {
	endpoint   string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewQueryClient connects to the LCD endpoint and verifies it with a node
// info handshake. Safe to call repeatedly for the same endpoint.
func NewQueryClient(endpoint string) (*QueryClient, error) {
	c := &QueryClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: queryTimeout,
		},
		retrier: retrier.New(retrier.WithMaxRetries(2)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := c.handshake(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// handshake fetches node info to prove the endpoint speaks the LCD API.
func (c *QueryClient) handshake(ctx context.Context) error {
	body, err := c.get(ctx, "/cosmos/base/tendermint/v1beta1/node_info")
	if err != nil {
		return errors.Wrap(entity.ErrConnection, err.Error())
	}

	var info struct {
		DefaultNodeInfo struct {
			Network string `json:"network"`
		} `json:"default_node_info"`
	}
	if err := json.Unmarshal(body, &info); err != nil || info.DefaultNodeInfo.Network == "" {
		return errors.Wrapf(entity.ErrConnection, "malformed node info from %s", c.endpoint)
	}

	return nil
}

// QueryContractSmart runs a smart query against a CosmWasm contract and
// returns the raw result payload.
func (c *QueryClient) QueryContractSmart(ctx context.Context, contract string, queryMsg any) (json.RawMessage, error) {
	msg, err := json.Marshal(queryMsg)
	if err != nil {
		return nil, errors.Wrap(entity.ErrContractQuery, err.Error())
	}

	path := fmt.Sprintf("/cosmwasm/wasm/v1/contract/%s/smart/%s",
		url.PathEscape(contract), base64.StdEncoding.EncodeToString(msg))

	body, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, path)
	})
	if err != nil {
		return nil, errors.Wrapf(entity.ErrContractQuery, "contract %s: %s", contract, err.Error())
	}

	var result struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Data == nil {
		return nil, errors.Wrapf(entity.ErrContractQuery, "contract %s returned malformed response", contract)
	}

	return result.Data, nil
}

// Balance fetches the native ledger balance of an address for a denom.
func (c *QueryClient) Balance(ctx context.Context, address, denom string) (entity.Coin, error) {
	path := fmt.Sprintf("/cosmos/bank/v1beta1/balances/%s/by_denom?denom=%s",
		url.PathEscape(address), url.QueryEscape(denom))

	body, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, path)
	})
	if err != nil {
		return entity.Coin{}, errors.Wrapf(entity.ErrBalanceQuery, "address %s: %s", address, err.Error())
	}

	var result struct {
		Balance struct {
			Amount string `json:"amount"`
			Denom  string `json:"denom"`
		} `json:"balance"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Balance.Denom == "" {
		return entity.Coin{}, errors.Wrapf(entity.ErrBalanceQuery, "address %s: malformed balance response", address)
	}

	amount, err := decimal.NewFromString(result.Balance.Amount)
	if err != nil {
		return entity.Coin{}, errors.Wrapf(entity.ErrBalanceQuery, "address %s: bad amount %q", address, result.Balance.Amount)
	}

	return entity.NewCoin(amount, result.Balance.Denom), nil
}

func (c *QueryClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
