package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/poodlabs/junosale/internal/entity"
)

// WalletProvider grants access to an external wallet's signing capability.
// The wallet performs all key management and cryptography itself; the core
// only ever sees an authorized handle.
type WalletProvider interface {
	// Authorize asks the wallet to approve this client for the given chain.
	Authorize(ctx context.Context, chainID string) (SignerHandle, error)
}

// SignerHandle is an authorized signing session inside the wallet provider.
type SignerHandle interface {
	// Accounts lists the wallet accounts exposed to this session.
	Accounts(ctx context.Context) ([]Account, error)
	// SignAndBroadcast signs a contract execute message, broadcasts it and
	// returns the transaction hash.
	SignAndBroadcast(ctx context.Context, sender, contract string, msg json.RawMessage, funds []entity.Coin) (string, error)
	// Close tears down the session inside the wallet.
	Close() error
}

// Account is a wallet account visible through an authorized session.
type Account struct {
	Address string `json:"address"`
}

const bridgeTimeout = 60 * time.Second

// BridgeWalletProvider talks to a local wallet bridge daemon over HTTP. The
// bridge holds the keys and asks the user for approval; this client only
// relays requests.
type BridgeWalletProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewBridgeWalletProvider creates a provider for the bridge at baseURL.
func NewBridgeWalletProvider(baseURL string) *BridgeWalletProvider {
	return &BridgeWalletProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// generous: the user may take a while to approve in the wallet
			Timeout: bridgeTimeout,
		},
	}
}

// Authorize requests wallet authorization for the chain and returns a handle
// bound to the approved session.
func (p *BridgeWalletProvider) Authorize(ctx context.Context, chainID string) (SignerHandle, error) {
	payload, _ := json.Marshal(map[string]string{"chain_id": chainID})

	body, status, err := p.post(ctx, "/authorize", payload)
	if err != nil {
		return nil, errors.Wrap(entity.ErrSignerUnavailable, err.Error())
	}
	if status == http.StatusForbidden || status == http.StatusUnauthorized {
		return nil, errors.Wrapf(entity.ErrSignerRejected, "chain %s", chainID)
	}
	if status != http.StatusOK {
		return nil, errors.Wrapf(entity.ErrSignerUnavailable, "bridge returned status %d", status)
	}

	var resp struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Session == "" {
		return nil, errors.Wrap(entity.ErrSignerUnavailable, "malformed authorize response")
	}

	return &bridgeSigner{provider: p, session: resp.Session}, nil
}

func (p *BridgeWalletProvider) post(ctx context.Context, path string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

type bridgeSigner struct {
	provider *BridgeWalletProvider
	session  string
}

func (s *bridgeSigner) Accounts(ctx context.Context) ([]Account, error) {
	payload, _ := json.Marshal(map[string]string{"session": s.session})

	body, status, err := s.provider.post(ctx, "/accounts", payload)
	if err != nil {
		return nil, errors.Wrap(entity.ErrSignerUnavailable, err.Error())
	}
	if status != http.StatusOK {
		return nil, errors.Wrapf(entity.ErrSignerUnavailable, "bridge returned status %d", status)
	}

	var accounts []Account
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, errors.Wrap(entity.ErrSignerUnavailable, "malformed accounts response")
	}

	return accounts, nil
}

func (s *bridgeSigner) SignAndBroadcast(ctx context.Context, sender, contract string, msg json.RawMessage, funds []entity.Coin) (string, error) {
	type fund struct {
		Amount string `json:"amount"`
		Denom  string `json:"denom"`
	}
	req := struct {
		Session  string          `json:"session"`
		Sender   string          `json:"sender"`
		Contract string          `json:"contract"`
		Msg      json.RawMessage `json:"msg"`
		Funds    []fund          `json:"funds"`
	}{
		Session:  s.session,
		Sender:   sender,
		Contract: contract,
		Msg:      msg,
	}
	for _, c := range funds {
		req.Funds = append(req.Funds, fund{Amount: c.Amount.String(), Denom: c.Denom})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "marshal execute request")
	}

	body, status, err := s.provider.post(ctx, "/execute", payload)
	if err != nil {
		return "", errors.Wrap(entity.ErrTransactionFailed, err.Error())
	}
	if status == http.StatusForbidden || status == http.StatusUnauthorized {
		return "", errors.Wrap(entity.ErrSignerRejected, "user declined to sign")
	}
	if status != http.StatusOK {
		return "", errors.Wrapf(entity.ErrTransactionFailed, "bridge returned status %d: %s", status, strings.TrimSpace(string(body)))
	}

	var resp struct {
		TxHash string `json:"tx_hash"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.TxHash == "" {
		return "", errors.Wrap(entity.ErrTransactionFailed, "malformed execute response")
	}

	return resp.TxHash, nil
}

func (s *bridgeSigner) Close() error {
	payload, _ := json.Marshal(map[string]string{"session": s.session})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, status, err := s.provider.post(ctx, "/session/close", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("bridge returned status %d", status)
	}
	return nil
}
