package stub

import (
	"context"
	"sync"

	"diamond-token/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu       sync.RWMutex
	Supplies map[string]solana.TokenAmount    // by mint
	Accounts map[string][]solana.TokenAccount // by owner
	Slot     int64                            // stamped on stored supplies
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Supplies: make(map[string]solana.TokenAmount),
		Accounts: make(map[string][]solana.TokenAccount),
	}
}

// GetTokenSupply returns the stored supply or solana.ErrAccountNotFound.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	amt, ok := c.Supplies[mint]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return &amt, nil
}

// GetTokenAccountsByOwner returns owner's stored accounts filtered by mint.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []solana.TokenAccount
	for _, a := range c.Accounts[owner] {
		if a.Mint == mint {
			out = append(out, a)
		}
	}
	return out, nil
}

// SetSupply stores the supply of mint.
func (c *RPCClient) SetSupply(mint string, amount uint64, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Supplies[mint] = solana.TokenAmount{Amount: amount, Decimals: decimals, Slot: c.Slot}
}

// AddAccount stores a token account under its owner.
func (c *RPCClient) AddAccount(acct solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[acct.Owner] = append(c.Accounts[acct.Owner], acct)
}

var _ solana.RPCClient = (*RPCClient)(nil)
