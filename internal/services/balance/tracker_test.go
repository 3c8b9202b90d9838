package balance

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poodlabs/junosale/internal/entity"
	"github.com/poodlabs/junosale/internal/events"
	"github.com/poodlabs/junosale/internal/services/wallet"
)

type fakeChainClient struct {
	mu sync.Mutex

	balance    entity.Coin
	balanceErr error

	tokenBalance  string
	tokenErr      error
	tokenInfoErr  error
	tokenInfoHits int

	// onBalance runs inside the native balance query, before it returns
	onBalance func()
}

func (c *fakeChainClient) Balance(ctx context.Context, address, denom string) (entity.Coin, error) {
	if c.onBalance != nil {
		c.onBalance()
	}
	if c.balanceErr != nil {
		return entity.Coin{}, c.balanceErr
	}
	return c.balance, nil
}

func (c *fakeChainClient) QueryContractSmart(ctx context.Context, contract string, queryMsg any) (json.RawMessage, error) {
	payload, _ := json.Marshal(queryMsg)

	if json.Valid(payload) && string(payload) == `{"token_info":{}}` {
		c.mu.Lock()
		c.tokenInfoHits++
		c.mu.Unlock()
		if c.tokenInfoErr != nil {
			return nil, c.tokenInfoErr
		}
		return json.RawMessage(`{"name":"Pood Token","symbol":"POOD","decimals":6}`), nil
	}

	if c.tokenErr != nil {
		return nil, c.tokenErr
	}
	return json.RawMessage(`{"balance":"` + c.tokenBalance + `"}`), nil
}

func (c *fakeChainClient) Execute(ctx context.Context, sender, contract string, msg any, funds []entity.Coin) (string, error) {
	return "", errors.New("not implemented")
}

func (c *fakeChainClient) Disconnect() {}

func (c *fakeChainClient) tokenInfoCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenInfoHits
}

type fakeSession struct {
	client wallet.SigningClient
	err    error
	epoch  atomic.Uint64
}

func (s *fakeSession) Client() (wallet.SigningClient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

func (s *fakeSession) Epoch() uint64 {
	return s.epoch.Load()
}

func newTestTracker(client *fakeChainClient) (*Tracker, *fakeSession) {
	sess := &fakeSession{client: client}
	tracker := NewTracker(sess, "ujuno", "juno1token", events.NewNotifier(8), zap.NewNop())
	return tracker, sess
}

func TestRefreshBothQueriesSucceed(t *testing.T) {
	client := &fakeChainClient{
		balance:      entity.NewCoin(decimal.NewFromInt(500), "ujuno"),
		tokenBalance: "250",
	}
	tracker, _ := newTestTracker(client)

	snapshot, err := tracker.Refresh(context.Background(), "juno1abc")
	require.NoError(t, err)
	require.True(t, snapshot.Complete())
	require.Equal(t, "500", snapshot.Native.Amount.String())
	require.Equal(t, "ujuno", snapshot.Native.Denom)
	require.Equal(t, "250", snapshot.Token.String())
	require.Equal(t, "POOD", snapshot.TokenSymbol)

	current, ok := tracker.Current()
	require.True(t, ok)
	require.Equal(t, "juno1abc", current.Address)
}

func TestRefreshPartialFailure(t *testing.T) {
	t.Run("token query fails, native survives", func(t *testing.T) {
		client := &fakeChainClient{
			balance:  entity.NewCoin(decimal.NewFromInt(500), "ujuno"),
			tokenErr: errors.New("contract panicked"),
		}
		tracker, _ := newTestTracker(client)

		snapshot, err := tracker.Refresh(context.Background(), "juno1abc")
		require.NoError(t, err)
		require.False(t, snapshot.Complete())
		require.NoError(t, snapshot.NativeErr)
		require.ErrorIs(t, snapshot.TokenErr, entity.ErrBalanceQuery)
		require.Equal(t, "500", snapshot.Native.Amount.String())
	})

	t.Run("native query fails, token survives", func(t *testing.T) {
		client := &fakeChainClient{
			balanceErr:   errors.Wrap(entity.ErrBalanceQuery, "node down"),
			tokenBalance: "250",
		}
		tracker, _ := newTestTracker(client)

		snapshot, err := tracker.Refresh(context.Background(), "juno1abc")
		require.NoError(t, err)
		require.ErrorIs(t, snapshot.NativeErr, entity.ErrBalanceQuery)
		require.NoError(t, snapshot.TokenErr)
		require.Equal(t, "250", snapshot.Token.String())
	})
}

func TestRefreshNotConnected(t *testing.T) {
	tracker, sess := newTestTracker(&fakeChainClient{})
	sess.err = entity.ErrNotConnected

	_, err := tracker.Refresh(context.Background(), "juno1abc")
	require.ErrorIs(t, err, entity.ErrNotConnected)
}

func TestRefreshDiscardedAfterEpochChange(t *testing.T) {
	client := &fakeChainClient{
		balance:      entity.NewCoin(decimal.NewFromInt(500), "ujuno"),
		tokenBalance: "250",
	}
	tracker, sess := newTestTracker(client)

	// simulate a disconnect landing while the queries are in flight
	client.onBalance = func() {
		sess.epoch.Add(1)
	}

	snapshot, err := tracker.Refresh(context.Background(), "juno1abc")
	require.ErrorIs(t, err, entity.ErrStaleSnapshot)
	require.Empty(t, snapshot.Address)

	// nothing written to tracker state either
	_, ok := tracker.Current()
	require.False(t, ok)
}

func TestTokenSymbolFetchedOnce(t *testing.T) {
	client := &fakeChainClient{
		balance:      entity.NewCoin(decimal.NewFromInt(500), "ujuno"),
		tokenBalance: "250",
	}
	tracker, _ := newTestTracker(client)

	for i := 0; i < 3; i++ {
		_, err := tracker.Refresh(context.Background(), "juno1abc")
		require.NoError(t, err)
	}

	require.Equal(t, 1, client.tokenInfoCalls())
}

func TestInvalidate(t *testing.T) {
	client := &fakeChainClient{
		balance:      entity.NewCoin(decimal.NewFromInt(500), "ujuno"),
		tokenBalance: "250",
	}
	tracker, _ := newTestTracker(client)

	_, err := tracker.Refresh(context.Background(), "juno1abc")
	require.NoError(t, err)

	tracker.Invalidate()

	_, ok := tracker.Current()
	require.False(t, ok)
}
