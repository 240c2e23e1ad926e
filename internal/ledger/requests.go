package ledger

import (
	"strconv"

	"diamond-token/internal/access"
	"diamond-token/internal/domain"
)

// Operation kinds, as signed in access.Operation digests.
const (
	OpInitialize      = "initialize"
	OpIssue           = "issue"
	OpBurn            = "burn"
	OpUpdateMaxSupply = "update_max_supply"
	OpPause           = "pause"
	OpUnpause         = "unpause"
	OpBlacklistAdd    = "blacklist_add"
	OpBlacklistRemove = "blacklist_remove"
	OpPurchase        = "purchase"
	OpTransfer        = "transfer"
	OpDeposit         = "deposit"
)

// InitializeRequest creates the ledger.
type InitializeRequest struct {
	InitialSupply uint64
	MaxSupply     uint64
	Mint          domain.Pubkey
	Owners        []domain.Pubkey
	Threshold     uint64
}

// Operation returns the digest input. Initialization always runs at version 0.
func (r InitializeRequest) Operation() access.Operation {
	params := []string{u64(r.InitialSupply), u64(r.MaxSupply), r.Mint.String(), u64(r.Threshold)}
	for _, o := range r.Owners {
		params = append(params, o.String())
	}
	return access.NewOperation(OpInitialize, 0, params...)
}

// IssueRequest buys newly minted tokens with a payment asset.
type IssueRequest struct {
	Amount          uint64
	PaymentMint     domain.Pubkey
	PaymentDecimals uint8
}

// Operation returns the digest input at version.
func (r IssueRequest) Operation(version uint64) access.Operation {
	return access.NewOperation(OpIssue, version, u64(r.Amount), r.PaymentMint.String(), strconv.Itoa(int(r.PaymentDecimals)))
}

// BurnRequest destroys vault-held supply, optionally draining Secondary.
type BurnRequest struct {
	Amount    uint64
	Secondary *domain.Pubkey
}

// Operation returns the digest input at version.
func (r BurnRequest) Operation(version uint64) access.Operation {
	secondary := ""
	if r.Secondary != nil {
		secondary = r.Secondary.String()
	}
	return access.NewOperation(OpBurn, version, u64(r.Amount), secondary)
}

// UpdateMaxSupplyRequest lowers the supply cap.
type UpdateMaxSupplyRequest struct {
	NewMaxSupply uint64
}

// Operation returns the digest input at version.
func (r UpdateMaxSupplyRequest) Operation(version uint64) access.Operation {
	return access.NewOperation(OpUpdateMaxSupply, version, u64(r.NewMaxSupply))
}

// BlacklistRequest names the address to add or remove.
type BlacklistRequest struct {
	Address domain.Pubkey
}

// AddOperation returns the digest input for an add at version.
func (r BlacklistRequest) AddOperation(version uint64) access.Operation {
	return access.NewOperation(OpBlacklistAdd, version, r.Address.String())
}

// RemoveOperation returns the digest input for a remove at version.
func (r BlacklistRequest) RemoveOperation(version uint64) access.Operation {
	return access.NewOperation(OpBlacklistRemove, version, r.Address.String())
}

// PauseOperation returns the digest input for pause at version.
func PauseOperation(version uint64) access.Operation {
	return access.NewOperation(OpPause, version)
}

// UnpauseOperation returns the digest input for unpause at version.
func UnpauseOperation(version uint64) access.Operation {
	return access.NewOperation(OpUnpause, version)
}

// PurchaseRequest spends tokens into the vault.
type PurchaseRequest struct {
	Amount uint64
}

// Operation returns the digest input at version.
func (r PurchaseRequest) Operation(version uint64) access.Operation {
	return access.NewOperation(OpPurchase, version, u64(r.Amount))
}

// TransferRequest moves tokens from the caller to To.
type TransferRequest struct {
	To     domain.Pubkey
	Amount uint64
}

// Operation returns the digest input at version.
func (r TransferRequest) Operation(version uint64) access.Operation {
	return access.NewOperation(OpTransfer, version, r.To.String(), u64(r.Amount))
}

// DepositRequest credits an external payment asset to Owner.
type DepositRequest struct {
	Owner  domain.Pubkey
	Mint   domain.Pubkey
	Amount uint64
}

// Operation returns the digest input at version.
func (r DepositRequest) Operation(version uint64) access.Operation {
	return access.NewOperation(OpDeposit, version, r.Owner.String(), r.Mint.String(), u64(r.Amount))
}

// CheckTransferRequest asks the transfer gate about a movement.
type CheckTransferRequest struct {
	Source      domain.Pubkey
	Destination domain.Pubkey
	Amount      uint64
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
