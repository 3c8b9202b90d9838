// Package wallet owns the lifecycle of the connection to the user's wallet.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/poodlabs/junosale/internal/clients"
	"github.com/poodlabs/junosale/internal/entity"
	"github.com/poodlabs/junosale/internal/events"
)

// Status is the connection state of the wallet session.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// SigningClient is the authenticated chain handle owned by the session.
// Other components borrow it per call and must not retain it.
type SigningClient interface {
	QueryContractSmart(ctx context.Context, contract string, queryMsg any) (json.RawMessage, error)
	Balance(ctx context.Context, address, denom string) (entity.Coin, error)
	Execute(ctx context.Context, sender, contract string, msg any, funds []entity.Coin) (string, error)
	Disconnect()
}

// State is a read-only view of the session for display.
type State struct {
	Address string
	Status  Status
	LastErr error
}

// Session holds the connected wallet address and the signing client handle.
// It is the single source of truth for whose balances and quotes are shown.
type Session struct {
	endpoint string
	chainID  string
	provider clients.WalletProvider
	notifier *events.Notifier
	logger   *zap.Logger

	// newClient is swapped out in tests
	newClient func(endpoint string, signer clients.SignerHandle) (SigningClient, error)

	mu      sync.Mutex
	status  Status
	address string
	client  SigningClient
	lastErr error
	epoch   uint64
}

// NewSession creates a disconnected session.
func NewSession(endpoint, chainID string, provider clients.WalletProvider, notifier *events.Notifier, logger *zap.Logger) *Session {
	return &Session{
		endpoint: endpoint,
		chainID:  chainID,
		provider: provider,
		notifier: notifier,
		logger:   logger,
		status:   StatusDisconnected,
		newClient: func(endpoint string, signer clients.SignerHandle) (SigningClient, error) {
			return clients.NewSigningClient(endpoint, signer)
		},
	}
}

// Connect authorizes the wallet for the configured chain, opens a signing
// client and stores the first account address. Calling it while a connect
// attempt is already in flight is a no-op; exactly one attempt runs at a time.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusConnecting
	s.lastErr = nil
	s.mu.Unlock()

	s.notifier.Publish(entity.LevelInfo, "connecting wallet")

	signer, err := s.provider.Authorize(ctx, s.chainID)
	if err != nil {
		return s.connectFailed(errors.Wrap(err, "authorize wallet"))
	}

	client, err := s.newClient(s.endpoint, signer)
	if err != nil {
		_ = signer.Close()
		return s.connectFailed(errors.Wrap(err, "open signing client"))
	}

	accounts, err := signer.Accounts(ctx)
	if err != nil {
		client.Disconnect()
		return s.connectFailed(errors.Wrap(err, "list wallet accounts"))
	}
	if len(accounts) == 0 {
		client.Disconnect()
		return s.connectFailed(errors.Wrap(entity.ErrSignerUnavailable, "wallet exposed no accounts"))
	}

	address := accounts[0].Address

	s.mu.Lock()
	if s.status != StatusConnecting {
		// an explicit disconnect landed while the wallet was authorizing;
		// it wins, and the fresh client must not outlive it
		s.mu.Unlock()
		client.Disconnect()
		s.logger.Info("connect superseded by disconnect", zap.String("address", address))
		return nil
	}
	s.status = StatusConnected
	s.address = address
	s.client = client
	s.epoch++
	s.mu.Unlock()

	s.logger.Info("wallet connected", zap.String("address", address), zap.String("chain_id", s.chainID))
	s.notifier.Publish(entity.LevelSuccess, fmt.Sprintf("wallet connected: %s", address))

	return nil
}

func (s *Session) connectFailed(err error) error {
	s.mu.Lock()
	s.status = StatusDisconnected
	s.address = ""
	s.client = nil
	s.lastErr = err
	s.mu.Unlock()

	s.logger.Error("wallet connect failed", zap.Error(err))
	s.notifier.Publish(entity.LevelError, fmt.Sprintf("wallet connect failed: %s", err))

	return err
}

// Disconnect releases the signing client and clears the address. It always
// succeeds, whatever the prior state. The epoch bump makes in-flight queries
// keyed to the old address discard their results.
func (s *Session) Disconnect() {
	s.mu.Lock()
	client := s.client
	wasConnected := s.status == StatusConnected
	s.status = StatusDisconnected
	s.address = ""
	s.client = nil
	s.epoch++
	s.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
	if wasConnected {
		s.logger.Info("wallet disconnected")
		s.notifier.Publish(entity.LevelInfo, "wallet disconnected")
	}
}

// Address returns the connected address, empty when disconnected.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// State returns a read-only view for display.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Address: s.address, Status: s.status, LastErr: s.lastErr}
}

// Epoch returns a counter that changes whenever the connected address does.
// Asynchronous queries capture it before starting and drop their results if
// it moved on.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Client lends out the signing client for the duration of one call.
func (s *Session) Client() (SigningClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, entity.ErrNotConnected
	}
	return s.client, nil
}
