package purchase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poodlabs/junosale/internal/entity"
	"github.com/poodlabs/junosale/internal/events"
	"github.com/poodlabs/junosale/internal/services/wallet"
)

type fakeSession struct {
	address string
	client  wallet.SigningClient
	err     error
}

func (s *fakeSession) Address() string { return s.address }

func (s *fakeSession) Client() (wallet.SigningClient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

type fakeClient struct {
	mu sync.Mutex

	txHash string
	err    error
	// gate, when set, blocks Execute until closed
	gate chan struct{}

	executeCalls int
	lastContract string
	lastFunds    []entity.Coin
}

func (c *fakeClient) Execute(ctx context.Context, sender, contract string, msg any, funds []entity.Coin) (string, error) {
	c.mu.Lock()
	c.executeCalls++
	c.lastContract = contract
	c.lastFunds = funds
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if c.err != nil {
		return "", c.err
	}
	return c.txHash, nil
}

func (c *fakeClient) Balance(ctx context.Context, address, denom string) (entity.Coin, error) {
	return entity.Coin{}, errors.New("not implemented")
}

func (c *fakeClient) QueryContractSmart(ctx context.Context, contract string, queryMsg any) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeClient) Disconnect() {}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executeCalls
}

type fakeBalances struct {
	mu          sync.Mutex
	refreshes   int
	invalidates int
}

func (b *fakeBalances) Refresh(ctx context.Context, address string) (entity.BalanceSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshes++
	return entity.BalanceSnapshot{Address: address}, nil
}

func (b *fakeBalances) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invalidates++
}

func (b *fakeBalances) refreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}

type fakeJournal struct {
	mu      sync.Mutex
	records []entity.PurchaseRecord
	err     error
}

func (j *fakeJournal) SavePurchase(record entity.PurchaseRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, record)
	return j.err
}

func (j *fakeJournal) saved() []entity.PurchaseRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]entity.PurchaseRecord(nil), j.records...)
}

func newTestController(sess *fakeSession, client *fakeClient) (*Controller, *fakeBalances, *fakeJournal, *events.Notifier) {
	if sess.client == nil {
		sess.client = client
	}
	balances := &fakeBalances{}
	journal := &fakeJournal{}
	notifier := events.NewNotifier(8)
	ctrl := NewController(sess, balances, journal, notifier, "juno1sale", "ujuno", zap.NewNop())
	return ctrl, balances, journal, notifier
}

// requireNotification reads from ch until a notification with the given level
// and message fragment arrives.
func requireNotification(t *testing.T, ch chan entity.Notification, level entity.NotificationLevel, substr string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case note := <-ch:
			if note.Level == level && strings.Contains(note.Message, substr) {
				return
			}
		case <-deadline:
			t.Fatalf("no %s notification containing %q", level, substr)
		}
	}
}

func snapshotWithNative(micro int64) entity.BalanceSnapshot {
	return entity.BalanceSnapshot{
		Address: "juno1abc",
		Native:  entity.NewCoin(decimal.NewFromInt(micro), "ujuno"),
	}
}

func TestValidate(t *testing.T) {
	sess := &fakeSession{address: "juno1abc"}
	ctrl, _, _, _ := newTestController(sess, &fakeClient{})

	t.Run("valid amount converts to micro", func(t *testing.T) {
		validated, err := ctrl.Validate(entity.NewPurchaseRequest("1.5"), snapshotWithNative(2_000_000))
		require.NoError(t, err)
		require.Equal(t, "juno1abc", validated.Sender)
		require.Equal(t, "1500000", validated.AmountMicro.String())
		require.Equal(t, "ujuno", validated.Denom)
	})

	t.Run("empty and malformed inputs", func(t *testing.T) {
		for _, input := range []string{"", "   ", "abc", "0", "-1"} {
			_, err := ctrl.Validate(entity.NewPurchaseRequest(input), snapshotWithNative(2_000_000))
			require.ErrorIs(t, err, entity.ErrEmptyAmount, "input %q", input)
		}
	})

	t.Run("insufficient funds carries both sides", func(t *testing.T) {
		_, err := ctrl.Validate(entity.NewPurchaseRequest("0.001"), snapshotWithNative(500))
		var insufficient *entity.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, "1000", insufficient.Requested.String())
		require.Equal(t, "500", insufficient.Available.String())
	})

	t.Run("exact balance is allowed", func(t *testing.T) {
		_, err := ctrl.Validate(entity.NewPurchaseRequest("0.0005"), snapshotWithNative(500))
		require.NoError(t, err)
	})
}

func TestValidateNotConnected(t *testing.T) {
	sess := &fakeSession{address: ""}
	ctrl, _, _, _ := newTestController(sess, &fakeClient{})

	// rejected regardless of the amount's own validity
	for _, input := range []string{"1", ""} {
		_, err := ctrl.Validate(entity.NewPurchaseRequest(input), snapshotWithNative(2_000_000))
		require.ErrorIs(t, err, entity.ErrNotConnected)
	}
}

func TestSubmitSuccess(t *testing.T) {
	sess := &fakeSession{address: "juno1abc"}
	client := &fakeClient{txHash: "ABC123"}
	ctrl, balances, journal, _ := newTestController(sess, client)

	validated := entity.ValidatedPurchase{
		RequestID:   "req-1",
		Sender:      "juno1abc",
		AmountMicro: decimal.NewFromInt(2000),
		Denom:       "ujuno",
	}

	result, err := ctrl.Submit(context.Background(), validated)
	require.NoError(t, err)
	require.Equal(t, entity.PurchaseSuccess, result.Status)
	require.Equal(t, "ABC123", result.TxHash)

	require.Equal(t, 1, client.calls())
	require.Equal(t, "juno1sale", client.lastContract)
	require.Len(t, client.lastFunds, 1)
	require.Equal(t, "2000", client.lastFunds[0].Amount.String())
	require.Equal(t, "ujuno", client.lastFunds[0].Denom)

	// exactly one refresh after resolution
	require.Equal(t, 1, balances.refreshCount())
	require.Equal(t, 1, balances.invalidates)

	records := journal.saved()
	require.Len(t, records, 1)
	require.Equal(t, "success", records[0].Status)
	require.Equal(t, "ABC123", records[0].TxHash)
	require.Equal(t, "2000", records[0].AmountMicro)

	require.False(t, ctrl.InFlight())
}

func TestSubmitExecuteFailure(t *testing.T) {
	sess := &fakeSession{address: "juno1abc"}
	client := &fakeClient{err: errors.New("out of gas")}
	ctrl, balances, journal, _ := newTestController(sess, client)

	validated := entity.ValidatedPurchase{
		RequestID:   "req-1",
		Sender:      "juno1abc",
		AmountMicro: decimal.NewFromInt(2000),
		Denom:       "ujuno",
	}

	result, err := ctrl.Submit(context.Background(), validated)
	require.ErrorIs(t, err, entity.ErrTransactionFailed)
	require.Equal(t, entity.PurchaseFailed, result.Status)
	require.Error(t, result.Cause)

	// fees may have been charged even on failure, so balances refresh anyway
	require.Equal(t, 1, balances.refreshCount())

	records := journal.saved()
	require.Len(t, records, 1)
	require.Equal(t, "failed", records[0].Status)
	require.Contains(t, records[0].Detail, "out of gas")

	// the controller is ready for the next attempt
	require.False(t, ctrl.InFlight())
}

func TestSubmitRejectedWhileInFlight(t *testing.T) {
	sess := &fakeSession{address: "juno1abc"}
	client := &fakeClient{txHash: "ABC123", gate: make(chan struct{})}
	ctrl, balances, _, notifier := newTestController(sess, client)
	notes := notifier.Subscribe()
	defer notifier.Unsubscribe(notes)

	validated := entity.ValidatedPurchase{
		RequestID:   "req-1",
		Sender:      "juno1abc",
		AmountMicro: decimal.NewFromInt(2000),
		Denom:       "ujuno",
	}

	done := make(chan entity.PurchaseResult, 1)
	go func() {
		result, _ := ctrl.Submit(context.Background(), validated)
		done <- result
	}()

	require.Eventually(t, ctrl.InFlight, time.Second, 5*time.Millisecond)

	second := validated
	second.RequestID = "req-2"
	result, err := ctrl.Submit(context.Background(), second)
	require.ErrorIs(t, err, entity.ErrAlreadyInFlight)
	require.Equal(t, entity.PurchaseRejected, result.Status)

	// the rejection surfaces to the user, not just to the caller
	requireNotification(t, notes, entity.LevelWarning, "already in flight")

	// the rejected attempt must not have touched the chain or the balances
	require.Equal(t, 1, client.calls())
	require.Equal(t, 0, balances.refreshCount())

	close(client.gate)
	first := <-done
	require.Equal(t, entity.PurchaseSuccess, first.Status)

	// exactly one refresh for the purchase that actually ran
	require.Equal(t, 1, balances.refreshCount())
	require.False(t, ctrl.InFlight())
}

func TestSubmitSessionGone(t *testing.T) {
	sess := &fakeSession{address: "juno1abc", err: entity.ErrNotConnected}
	client := &fakeClient{}
	ctrl, balances, journal, notifier := newTestController(sess, client)
	notes := notifier.Subscribe()
	defer notifier.Unsubscribe(notes)

	validated := entity.ValidatedPurchase{
		RequestID:   "req-1",
		Sender:      "juno1abc",
		AmountMicro: decimal.NewFromInt(2000),
		Denom:       "ujuno",
	}

	result, err := ctrl.Submit(context.Background(), validated)
	require.ErrorIs(t, err, entity.ErrNotConnected)
	require.Equal(t, entity.PurchaseRejected, result.Status)
	require.Equal(t, 0, client.calls())
	require.Equal(t, 0, balances.refreshCount())
	require.Empty(t, journal.saved())
	requireNotification(t, notes, entity.LevelError, "not connected")
}
