package solana

import "context"

// RPCClient defines the Solana RPC HTTP reads used for reserve attestation.
type RPCClient interface {
	// GetTokenSupply returns the circulating supply of a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetTokenAccountsByOwner lists owner's token accounts for mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error)
}
