package clients

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/poodlabs/junosale/internal/entity"
)

// SigningClient submits contract executions signed by an external wallet.
// It embeds a query client for the same endpoint, so holders can also read
// chain state.
type SigningClient struct {
	*QueryClient
	signer SignerHandle
}

// NewSigningClient connects to the LCD endpoint and binds the authorized
// signer to it. The handshake is the only side effect.
func NewSigningClient(endpoint string, signer SignerHandle) (*SigningClient, error) {
	if signer == nil {
		return nil, errors.Wrap(entity.ErrSignerUnavailable, "no authorized signer")
	}

	qc, err := NewQueryClient(endpoint)
	if err != nil {
		return nil, err
	}

	return &SigningClient{QueryClient: qc, signer: signer}, nil
}

// Execute runs a contract execute message with the attached funds and returns
// the transaction hash.
func (c *SigningClient) Execute(ctx context.Context, sender, contract string, msg any, funds []entity.Coin) (string, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(err, "marshal execute msg")
	}

	return c.signer.SignAndBroadcast(ctx, sender, contract, raw, funds)
}

// Disconnect tears down the wallet session. Errors are ignored: the handle is
// unusable afterwards either way.
func (c *SigningClient) Disconnect() {
	_ = c.signer.Close()
}
