package ledger

import (
	"context"
	"fmt"

	"diamond-token/internal/access"
	"diamond-token/internal/blacklist"
	"diamond-token/internal/domain"
	"diamond-token/internal/pause"
	"diamond-token/internal/pricing"
	"diamond-token/internal/solana"
)

// Initialize creates the ledger. existing must be nil; the caller becomes
// the authority and the vault is credited with the initial supply.
func (e *Engine) Initialize(existing *domain.Snapshot, inv Invocation, req InitializeRequest) (*Result, error) {
	if existing != nil {
		return nil, domain.ErrAlreadyInitialized
	}
	if err := e.verifyCaller(inv, req.Operation()); err != nil {
		return nil, err
	}

	cfg := domain.MultisigConfig{Owners: req.Owners, Threshold: req.Threshold}
	if err := access.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if _, err := e.policy(cfg); err != nil {
		return nil, err
	}
	if req.MaxSupply == 0 || req.InitialSupply > req.MaxSupply {
		return nil, domain.ErrInvalidMaxSupply
	}
	if req.Mint.IsZero() {
		return nil, domain.ErrInvalidTokenAccount
	}

	_, bump, err := solana.FindProgramAddress([][]byte{[]byte(SeedTokenState)}, e.programID)
	if err != nil {
		return nil, fmt.Errorf("derive token state address: %w", err)
	}
	vault, _, err := solana.FindProgramAddress([][]byte{[]byte(SeedVault)}, e.programID)
	if err != nil {
		return nil, fmt.Errorf("derive vault address: %w", err)
	}
	multisig, _, err := solana.FindProgramAddress([][]byte{[]byte(SeedMultisig)}, e.programID)
	if err != nil {
		return nil, fmt.Errorf("derive multisig address: %w", err)
	}

	next := &domain.Snapshot{
		State: domain.TokenState{
			Authority:   inv.Caller,
			Mint:        req.Mint,
			TotalSupply: req.InitialSupply,
			MaxSupply:   req.MaxSupply,
			Multisig:    multisig,
			Vault:       vault,
			Bump:        bump,
		},
		Blacklist: domain.Blacklist{Addresses: []domain.Pubkey{}},
		Multisig:  cfg.Clone(),
		Holdings:  make(domain.Holdings),
	}
	if req.InitialSupply > 0 {
		next.Holdings.Set(vault, req.Mint, req.InitialSupply)
	}

	return commit(&domain.Snapshot{}, next, inv, domain.EventInitialized, &domain.InitializedPayload{
		Mint:          req.Mint,
		Vault:         vault,
		Multisig:      multisig,
		InitialSupply: req.InitialSupply,
		MaxSupply:     req.MaxSupply,
	})
}

// Issue sells amount newly minted tokens to the caller. The payment moves
// from the caller to the vault, the tokens are minted to the caller and
// total supply grows, all together or not at all.
func (e *Engine) Issue(ctx context.Context, snap *domain.Snapshot, inv Invocation, req IssueRequest) (*Result, error) {
	if err := e.begin(snap, inv, req.Operation(versionOf(snap))); err != nil {
		return nil, err
	}
	if err := pause.RequireActive(snap.State); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	buyer := inv.Caller
	if blacklist.Contains(snap.Blacklist, buyer) {
		return nil, domain.ErrAddressBlacklisted
	}

	payment, err := e.pricing.Payment(ctx, req.Amount, pricing.Asset{Mint: req.PaymentMint, Decimals: req.PaymentDecimals}, inv.Now)
	if err != nil {
		return nil, err
	}

	newSupply, err := checkedAdd(snap.State.TotalSupply, req.Amount)
	if err != nil {
		return nil, err
	}
	if newSupply > snap.State.MaxSupply {
		return nil, domain.ErrMaxSupplyExceeded
	}

	pay, err := planMove(snap.Holdings, snap.Blacklist, req.PaymentMint, buyer, snap.State.Vault, payment)
	if err != nil {
		return nil, err
	}
	buyerTokens, err := checkedAdd(snap.Holdings.Balance(buyer, snap.State.Mint), req.Amount)
	if err != nil {
		return nil, err
	}

	next := snap.Clone()
	pay.apply(next.Holdings)
	next.Holdings.Set(buyer, next.State.Mint, buyerTokens)
	next.State.TotalSupply = newSupply

	return commit(snap, next, inv, domain.EventIssued, &domain.IssuedPayload{
		Amount:        req.Amount,
		PaymentMint:   req.PaymentMint,
		PaymentAmount: payment,
		TotalSupply:   newSupply,
	})
}

// Burn destroys amount tokens held by the vault. When Secondary is set, that
// account's whole token balance is burned as well.
func (e *Engine) Burn(snap *domain.Snapshot, inv Invocation, req BurnRequest) (*Result, error) {
	if err := e.beginPrivileged(snap, inv, req.Operation(versionOf(snap))); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	st := snap.State
	vaultBal := snap.Holdings.Balance(st.Vault, st.Mint)
	if vaultBal < req.Amount {
		return nil, domain.ErrInsufficientBalance
	}
	newSupply, err := checkedSub(st.TotalSupply, req.Amount)
	if err != nil {
		return nil, err
	}

	var secondaryAmount uint64
	if req.Secondary != nil {
		if *req.Secondary == st.Vault {
			return nil, domain.ErrInvalidTokenAccount
		}
		secondaryAmount = snap.Holdings.Balance(*req.Secondary, st.Mint)
		if newSupply, err = checkedSub(newSupply, secondaryAmount); err != nil {
			return nil, err
		}
	}

	next := snap.Clone()
	next.Holdings.Set(st.Vault, st.Mint, vaultBal-req.Amount)
	if req.Secondary != nil && secondaryAmount > 0 {
		next.Holdings.Set(*req.Secondary, st.Mint, 0)
	}
	next.State.TotalSupply = newSupply

	return commit(snap, next, inv, domain.EventBurned, &domain.BurnedPayload{
		Amount:          req.Amount,
		Secondary:       req.Secondary,
		SecondaryAmount: secondaryAmount,
		TotalSupply:     newSupply,
	})
}

// UpdateMaxSupply lowers the cap. It never raises it, never drops it below
// the circulating supply and never cuts more than half in one call.
func (e *Engine) UpdateMaxSupply(snap *domain.Snapshot, inv Invocation, req UpdateMaxSupplyRequest) (*Result, error) {
	if err := e.beginPrivileged(snap, inv, req.Operation(versionOf(snap))); err != nil {
		return nil, err
	}

	st := snap.State
	if req.NewMaxSupply >= st.MaxSupply {
		return nil, domain.ErrCannotIncreaseMaxSupply
	}
	if req.NewMaxSupply < st.TotalSupply {
		return nil, domain.ErrInvalidMaxSupply
	}
	if req.NewMaxSupply < st.MaxSupply-st.MaxSupply/2 {
		return nil, domain.ErrMaxSupplyReductionTooLarge
	}

	next := snap.Clone()
	next.State.MaxSupply = req.NewMaxSupply

	return commit(snap, next, inv, domain.EventMaxSupplyUpdated, &domain.MaxSupplyUpdatedPayload{
		OldMaxSupply: st.MaxSupply,
		NewMaxSupply: req.NewMaxSupply,
	})
}

func versionOf(snap *domain.Snapshot) uint64 {
	if snap == nil {
		return 0
	}
	return snap.Version
}
